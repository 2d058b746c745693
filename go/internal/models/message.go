package models

import "time"

// Message is a chat line exchanged between participant and confederate.
type Message struct {
	User   string    `json:"user"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"timestamp"`
}

// FormattedTimestamp renders SentAt as HH:mm:ss, the format used in chat logs.
func (m Message) FormattedTimestamp() string {
	return m.SentAt.Format("15:04:05")
}
