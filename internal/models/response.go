// Package models defines messaging event structures for TajerBot.
package models

// Response is one inbound customer message event emitted by a messaging
// service. The dispatcher converts it into an InboundMessage for resolution.
type Response struct {
	From      string `json:"from"`
	Body      string `json:"body"`
	PayloadID string `json:"payload_id,omitempty"` // structured selection id for button/list taps
	Time      int64  `json:"time"`
}
