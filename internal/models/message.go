package models

// Ownership marks which side of the channel produced a message.
type Ownership string

const (
	// OwnershipOwn marks a message produced on this device.
	OwnershipOwn Ownership = "OWN"
	// OwnershipOther marks a message received from the peer.
	OwnershipOther Ownership = "OTHER"
)

// Message is one exchanged text unit on a channel. Both the plaintext and the
// envelope are stored: the envelope is what travels over the channel's source
// and is kept verbatim across exports/imports, never re-encrypted.
type Message struct {
	// Id is a globally unique, stable identifier.
	Id string

	// ChannelId references the owning Channel.
	ChannelId string

	// Text is the plaintext.
	Text string

	// Envelope is the encrypted form produced by the envelope codec under
	// the owning channel's password and cipher version at creation time.
	Envelope string

	// TimestampMillis is the creation time in Unix milliseconds.
	TimestampMillis int64

	// Favorite marks the message as pinned.
	Favorite bool

	// Ownership tells whether the device produced or received the message.
	Ownership Ownership
}
