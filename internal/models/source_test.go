package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cryptool/internal/common"
)

func TestSourceSerializeRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		source     Source
		serialized string
	}{
		{"manual", SourceManual{}, "manual"},
		{"sms", SourceSms{Phone: "+15551234567"}, "sms:+15551234567"},
		{"lan", SourceLan{Address: "192.168.1.20", Port: "9650"}, "lan:192.168.1.20:9650"},
		{"file", SourceFile{Path: "/tmp/exchange.txt"}, "file:/tmp/exchange.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.serialized, tt.source.Serialize())

			parsed, err := ParseSource(tt.serialized)
			require.NoError(t, err)
			assert.Equal(t, tt.source, parsed)
		})
	}
}

func TestParseSourceMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"unknown tag", "carrierpigeon:coop1"},
		{"sms without payload", "sms:"},
		{"sms invalid phone", "sms:not-a-number"},
		{"lan without port", "lan:192.168.1.20"},
		{"lan bad port", "lan:192.168.1.20:notaport"},
		{"file without path", "file:"},
		{"bare word", "lan"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSource(tt.in)
			assert.ErrorIs(t, err, common.ErrMalformedSource)
		})
	}
}

func TestSourceExclusivity(t *testing.T) {
	assert.False(t, SourceManual{}.Exclusive())
	assert.True(t, SourceSms{Phone: "+15551234567"}.Exclusive())
	assert.True(t, SourceLan{Address: "10.0.0.2", Port: "9650"}.Exclusive())
	assert.True(t, SourceFile{Path: "/tmp/exchange.txt"}.Exclusive())
}

func TestCipherVersionValid(t *testing.T) {
	assert.True(t, CipherV1.Valid())
	assert.True(t, CipherV2.Valid())
	assert.False(t, CipherVersion("V3").Valid())
	assert.False(t, CipherVersion("").Valid())
}
