// Package messaging is the outbound delivery collaborator and inbound
// ingestion boundary of TajerBot. It renders router Actions for the
// underlying channel and feeds customer messages into the dispatcher.
package messaging

import (
	"context"
	"errors"
	"regexp"

	"github.com/tajerhq/tajerbot/internal/models"
)

// ErrServiceStopped is returned by sends after Stop.
var ErrServiceStopped = errors.New("messaging service stopped")

// Service defines a pluggable message delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// identifier. Each service implements its own recipient rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendAction delivers one router Action to a recipient, rendering rich
	// payloads as the channel allows.
	SendAction(ctx context.Context, to string, action models.Action) error

	// Start begins any background processing (e.g. event polling).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Responses returns a channel of incoming customer messages.
	Responses() <-chan models.Response
}

// phoneNumberRegex strips everything but digits from a recipient.
var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// canonicalizePhone removes non-numeric characters and validates the result
// has at least 6 digits. Shared by the WhatsApp and Twilio services.
func canonicalizePhone(recipient string) (string, error) {
	if recipient == "" {
		return "", errors.New("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", errors.New("invalid phone number: no digits found")
	}
	if len(canonical) < 6 {
		return "", errors.New("invalid phone number: too short")
	}
	return canonical, nil
}
