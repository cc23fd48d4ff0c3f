// Package transport contains the exchange drivers behind the message
// sources: TCP for LAN peers, a watched file for shared-file exchange and a
// platform gateway for SMS. The manual source has no driver; its envelopes
// travel by copy/paste.
package transport

import (
	"context"

	"github.com/dmitrijs2005/cryptool/internal/models"
)

// Inbound is where received envelopes are routed. Implemented by the
// message exchange service.
type Inbound interface {
	Receive(ctx context.Context, sender models.Source, envelope string) (*models.Message, error)
}

// SmsGateway is the platform telephony collaborator.
type SmsGateway interface {
	Send(ctx context.Context, phone, body string) error
}
