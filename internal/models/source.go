package models

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/dmitrijs2005/cryptool/internal/common"
)

// Source is the closed set of transports a channel can exchange envelopes
// over. The set is sealed so that serialization, exclusivity checks and
// transport dispatch can match variants exhaustively.
type Source interface {
	// Serialize returns the flat single-line form persisted with the channel
	// and compared during exclusivity checks. It round-trips exactly through
	// ParseSource.
	Serialize() string

	// Exclusive reports whether at most one channel may bind this source
	// value. Only the manual source is shareable.
	Exclusive() bool

	// Validate checks the variant payload.
	Validate() error

	isSource()
}

const (
	sourceManualTag = "manual"
	sourceSmsTag    = "sms"
	sourceLanTag    = "lan"
	sourceFileTag   = "file"
)

// SourceManual is the copy/paste transport: no I/O, never exclusive.
type SourceManual struct{}

func (SourceManual) Serialize() string { return sourceManualTag }
func (SourceManual) Exclusive() bool   { return false }
func (SourceManual) Validate() error   { return nil }
func (SourceManual) isSource()         {}

// SourceSms exchanges envelopes with a phone number over SMS.
type SourceSms struct {
	Phone string
}

func (s SourceSms) Serialize() string { return sourceSmsTag + ":" + s.Phone }
func (SourceSms) Exclusive() bool     { return true }
func (SourceSms) isSource()           {}

func (s SourceSms) Validate() error {
	return validation.Validate(s.Phone, validation.Required, is.E164)
}

// SourceLan exchanges envelopes with a peer socket on the local network.
type SourceLan struct {
	Address string
	Port    string
}

func (s SourceLan) Serialize() string {
	return sourceLanTag + ":" + s.Address + ":" + s.Port
}
func (SourceLan) Exclusive() bool { return true }
func (SourceLan) isSource()       {}

func (s SourceLan) Validate() error {
	return validation.Errors{
		"address": validation.Validate(s.Address, validation.Required, is.Host),
		"port":    validation.Validate(s.Port, validation.Required, is.Port),
	}.Filter()
}

// SourceFile exchanges envelopes through a shared file.
type SourceFile struct {
	Path string
}

func (s SourceFile) Serialize() string { return sourceFileTag + ":" + s.Path }
func (SourceFile) Exclusive() bool     { return true }
func (SourceFile) isSource()           {}

func (s SourceFile) Validate() error {
	return validation.Validate(s.Path, validation.Required)
}

// ParseSource is the inverse of Source.Serialize. It fails with
// common.ErrMalformedSource on an unknown tag or an invalid payload.
func ParseSource(s string) (Source, error) {
	if s == sourceManualTag {
		return SourceManual{}, nil
	}

	tag, payload, found := strings.Cut(s, ":")
	if !found || payload == "" {
		return nil, common.ErrMalformedSource
	}

	var src Source
	switch tag {
	case sourceSmsTag:
		src = SourceSms{Phone: payload}
	case sourceLanTag:
		// The address may itself contain colons (IPv6), the port cannot.
		idx := strings.LastIndex(payload, ":")
		if idx <= 0 || idx == len(payload)-1 {
			return nil, common.ErrMalformedSource
		}
		src = SourceLan{Address: payload[:idx], Port: payload[idx+1:]}
	case sourceFileTag:
		src = SourceFile{Path: payload}
	default:
		return nil, common.ErrMalformedSource
	}

	if err := src.Validate(); err != nil {
		return nil, common.ErrMalformedSource
	}
	return src, nil
}
