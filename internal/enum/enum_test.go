package enum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEmailSecurity(t *testing.T) {
	tests := []struct {
		in    string
		want  EmailSecurity
		valid bool
	}{
		{"ssl", EmailSecuritySSL, true},
		{"TLS", EmailSecurityTLS, true},
		{"startTLS", EmailSecurityStartTLS, true},
		{" none ", EmailSecurityNone, true},
		{"smtps", EmailSecurity("smtps"), false},
		{"", EmailSecurity(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseEmailSecurity(tt.in)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.True(t, EmailSecuritySSL.ImplicitTLS())
	assert.True(t, EmailSecurityTLS.ImplicitTLS())
	assert.False(t, EmailSecurityStartTLS.ImplicitTLS())
}

func TestNewFlagSet(t *testing.T) {
	fs := NewFlagSet([]string{`\seen`, `\FLAGGED`, "$Forwarded", `\Recent`})
	assert.Equal(t, FlagSet{Seen: true, Flagged: true, Recent: true}, fs)

	assert.Equal(t, FlagSet{}, NewFlagSet(nil))

	f, ok := ParseMessageFlag(`\draft`)
	assert.True(t, ok)
	assert.Equal(t, FlagDraft, f)

	_, ok = ParseMessageFlag("$Junk")
	assert.False(t, ok)
}
