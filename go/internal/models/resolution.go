package models

import "strings"

// ResolutionKind describes how a round ended.
type ResolutionKind string

const (
	ResolutionAnsweredPoints    ResolutionKind = "AP"
	ResolutionAnsweredNoPoints  ResolutionKind = "ANP"
	ResolutionDelegatedPoints   ResolutionKind = "DP"
	ResolutionDelegatedNoPoints ResolutionKind = "DNP"
	ResolutionTimeoutNoPoints   ResolutionKind = "TNP"
)

var resolutionKindNames = map[string]ResolutionKind{
	"ap":                ResolutionAnsweredPoints,
	"answeredpoints":    ResolutionAnsweredPoints,
	"anp":               ResolutionAnsweredNoPoints,
	"answerednopoints":  ResolutionAnsweredNoPoints,
	"dp":                ResolutionDelegatedPoints,
	"delegatedpoints":   ResolutionDelegatedPoints,
	"dnp":               ResolutionDelegatedNoPoints,
	"delegatednopoints": ResolutionDelegatedNoPoints,
	"tnp":               ResolutionTimeoutNoPoints,
	"timeoutnopoints":   ResolutionTimeoutNoPoints,
}

// ParseResolutionKind accepts the short codes (AP, ANP, DP, DNP, TNP) and the
// long names (AnsweredPoints, ...), ignoring case. ok is false for anything else.
func ParseResolutionKind(s string) (kind ResolutionKind, ok bool) {
	kind, ok = resolutionKindNames[strings.ToLower(strings.TrimSpace(s))]
	return kind, ok
}

// AwardsPoints reports whether the kind counts as a correct answer.
func (k ResolutionKind) AwardsPoints() bool {
	return k == ResolutionAnsweredPoints || k == ResolutionDelegatedPoints
}

func (k ResolutionKind) String() string {
	return string(k)
}

// GameResolution is the outcome broadcast once per committed round.
type GameResolution struct {
	IsAnswerCorrect bool    `json:"isAnswerCorrect"`
	PointsAwarded   int     `json:"pointsAwarded"`
	CurrentScore    int     `json:"currentScore"`
	TeamAnswer      *string `json:"teamAnswer"`
}
