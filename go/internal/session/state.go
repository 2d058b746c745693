// Package session holds the authoritative mutable record of the single live
// game session. Every field is guarded by one mutex; State is a plain data
// mutator and knows nothing about the catalog or the countdown.
package session

import (
	"sync"

	"github.com/mcdev12/teamplay/go/internal/models"
)

// Position is the current place in the content tree. Either index may be nil.
type Position struct {
	BlockIndex   *int `json:"blockIndex"`
	ProblemIndex *int `json:"problemIndex"`
}

// PendingResolution is a resolution that has been requested but not committed.
type PendingResolution struct {
	Kind   models.ResolutionKind `json:"kind"`
	Answer *string               `json:"answer"`
}

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	ParticipantName *string              `json:"participantName"`
	ConfederateName *string              `json:"confederateName"`
	Score           int                  `json:"score"`
	Position        Position             `json:"position"`
	Live            bool                 `json:"live"`
	Pending         *PendingResolution   `json:"pending"`
	Chimes          *models.ChimesConfig `json:"chimes"`
	MessageCount    int                  `json:"messageCount"`
}

type State struct {
	mu sync.Mutex

	messages        []models.Message
	participantName *string
	confederateName *string
	score           int
	blockIndex      *int
	problemIndex    *int
	live            bool
	pendingKind     *models.ResolutionKind
	pendingAnswer   *string
	chimes          *models.ChimesConfig
}

func NewState() *State {
	return &State{}
}

// AddMessage appends m to the message buffer.
func (s *State) AddMessage(m models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

// Messages returns a copy of the buffered messages without draining them.
func (s *State) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// DrainMessages returns every buffered message and swaps in an empty buffer.
// The returned slice is never nil.
func (s *State) DrainMessages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	drained := make([]models.Message, len(s.messages))
	copy(drained, s.messages)
	s.messages = nil
	return drained
}

func (s *State) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = true
}

func (s *State) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = false
}

func (s *State) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// SetSelection overwrites both indices. No bounds checks.
func (s *State) SetSelection(blockIndex, problemIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockIndex = intPtr(blockIndex)
	s.problemIndex = intPtr(problemIndex)
}

func (s *State) FirstBlock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockIndex = intPtr(0)
	s.problemIndex = intPtr(0)
}

// AdvanceBlock moves to the next block and its first problem. An unset block
// index counts as -1, so the first call lands on block 0.
func (s *State) AdvanceBlock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := 0
	if s.blockIndex != nil && *s.blockIndex >= 0 {
		next = *s.blockIndex + 1
	}
	s.blockIndex = intPtr(next)
	s.problemIndex = intPtr(0)
}

// AdvanceProblem increments the problem index, wrapping to 0 after
// cycleLength-1. An unset problem index becomes 0.
func (s *State) AdvanceProblem(cycleLength int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.problemIndex != nil && *s.problemIndex < cycleLength-1 {
		s.problemIndex = intPtr(*s.problemIndex + 1)
		return
	}
	s.problemIndex = intPtr(0)
}

func (s *State) Position() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionLocked()
}

// AwardPoints adds n to the score. Non-positive awards are ignored so the
// score never goes below zero.
func (s *State) AwardPoints(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awardLocked(n)
}

func (s *State) ResetScore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score = 0
}

func (s *State) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// SetPendingResolution stores kind and answer together. Last writer wins.
func (s *State) SetPendingResolution(kind models.ResolutionKind, answer *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := kind
	s.pendingKind = &k
	s.pendingAnswer = copyString(answer)
}

func (s *State) ClearPendingResolution() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearPendingLocked()
}

// Pending returns the pending resolution, if one has been requested.
func (s *State) Pending() (PendingResolution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

func (s *State) SetParticipantName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participantName = &name
}

func (s *State) ParticipantName() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participantName == nil {
		return "", false
	}
	return *s.participantName, true
}

func (s *State) SetConfederateName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confederateName = &name
}

func (s *State) ConfederateName() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confederateName == nil {
		return "", false
	}
	return *s.confederateName, true
}

func (s *State) SetChimes(c models.ChimesConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chimes = &c
}

func (s *State) Chimes() (models.ChimesConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chimes == nil {
		return models.ChimesConfig{}, false
	}
	return *s.chimes, true
}

// FullReset restores every field to its initial value.
func (s *State) FullReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.participantName = nil
	s.confederateName = nil
	s.score = 0
	s.blockIndex = nil
	s.problemIndex = nil
	s.live = false
	s.clearPendingLocked()
	s.chimes = nil
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ParticipantName: copyString(s.participantName),
		ConfederateName: copyString(s.confederateName),
		Score:           s.score,
		Position:        s.positionLocked(),
		Live:            s.live,
		MessageCount:    len(s.messages),
	}
	if p, ok := s.pendingLocked(); ok {
		snap.Pending = &p
	}
	if s.chimes != nil {
		c := *s.chimes
		snap.Chimes = &c
	}
	return snap
}

// Update runs fn with the lock held for its full duration. fn must only use
// the Tx it is given; calling other State methods from fn deadlocks.
func (s *State) Update(fn func(tx *Tx)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&Tx{s: s})
}

func (s *State) positionLocked() Position {
	return Position{
		BlockIndex:   copyInt(s.blockIndex),
		ProblemIndex: copyInt(s.problemIndex),
	}
}

func (s *State) pendingLocked() (PendingResolution, bool) {
	if s.pendingKind == nil {
		return PendingResolution{}, false
	}
	return PendingResolution{Kind: *s.pendingKind, Answer: copyString(s.pendingAnswer)}, true
}

func (s *State) clearPendingLocked() {
	s.pendingKind = nil
	s.pendingAnswer = nil
}

func (s *State) awardLocked(n int) {
	if n > 0 {
		s.score += n
	}
}

func intPtr(v int) *int {
	return &v
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
