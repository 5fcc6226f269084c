package bridge

import "context"

// InboundMessage is one text message received from the linked external
// messaging account.
type InboundMessage struct {
	// ID is the provider's message id, used to drop redeliveries. May be
	// empty, in which case no dedupe happens.
	ID     string
	ChatID string
	// Sender is the display name of the author; empty means anonymous.
	Sender string
	Text   string
}

// PairingEvent signals progress of linking the external account. QR is
// set when the provider issued a new pairing token; Ready is set once
// the account is linked.
type PairingEvent struct {
	QR    string
	Ready bool
}

// ChannelClient is the transport to the external messaging provider.
// Implementations deliver inbound traffic on channels and send replies
// back out.
type ChannelClient interface {
	Messages() <-chan InboundMessage
	PairingEvents() <-chan PairingEvent
	Send(ctx context.Context, chatID, text string) error
}
