package model

// AudioPayload is the raw audio body downloaded from the content API.
type AudioPayload []byte

// Transcript is the text produced by the transcription service.
type Transcript string

// ReplyText is the diary passage sent back to the sender.
type ReplyText string

// AudioEvent is the part of an inbound audio message event the pipeline needs.
type AudioEvent struct {
	MessageID  string
	ReplyToken string
	UserID     string
	EventID    string
	DurationMs int64
}
