package models

// ChimesConfig toggles the audio notifications played by clients.
type ChimesConfig struct {
	MessageSent     bool `json:"messageSent"`
	MessageReceived bool `json:"messageReceived"`
	Timer           bool `json:"timer"`
}
