// Package models defines the core Cryptool entities: encryption channels,
// exchanged messages, transport sources and the gatekeeper access state.
package models

// CipherVersion selects the envelope cipher parameters used for new
// encryptions on a channel. Old envelopes stay decodable regardless of the
// channel's current version because the envelope is self-describing.
type CipherVersion string

const (
	// CipherV1 is the legacy cipher, kept for decoding historical data.
	CipherV1 CipherVersion = "V1"
	// CipherV2 is the current cipher.
	CipherV2 CipherVersion = "V2"
)

// Valid reports whether v is a known cipher version.
func (v CipherVersion) Valid() bool {
	return v == CipherV1 || v == CipherV2
}

// Channel is a named encryption context. Its password and cipher version
// drive the envelope codec for every message sent on it; its optional Source
// selects the transport used to exchange envelopes.
type Channel struct {
	// Id is a globally unique, stable identifier.
	Id string

	// Name is a display label; not unique.
	Name string

	// Password is the shared secret for this channel. Never logged.
	Password string

	// Cipher is the version used for future encryptions on this channel.
	Cipher CipherVersion

	// Source is the bound transport, or nil when unbound.
	Source Source

	// Favorite marks the channel as pinned.
	Favorite bool

	// Unread counts incoming messages not yet acknowledged.
	Unread int
}
