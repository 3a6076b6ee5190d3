package messaging

import (
	"context"

	"github.com/pkg/errors"
)

var ErrNotConnected = errors.New("messaging session is not connected")

// Messenger sends a text to a driver's stored phone number.
type Messenger interface {
	Connected() bool
	SendMessage(ctx context.Context, phoneNumber, text string) error
}

// Provider is a Messenger with a login lifecycle driven by the process.
type Provider interface {
	Messenger
	Start(ctx context.Context) error
	Stop()
}
