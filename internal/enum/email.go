package enum

import "strings"

type EmailSecurity string

const (
	EmailSecurityNone     EmailSecurity = "none"
	EmailSecuritySSL      EmailSecurity = "ssl"
	EmailSecurityTLS      EmailSecurity = "tls"
	EmailSecurityStartTLS EmailSecurity = "starttls"
)

var emailSecurityValues = []EmailSecurity{
	EmailSecuritySSL,
	EmailSecurityTLS,
	EmailSecurityStartTLS,
	EmailSecurityNone,
}

func (t EmailSecurity) String() string {
	return string(t)
}

func (t EmailSecurity) IsValid() bool {
	for _, v := range emailSecurityValues {
		if v == t {
			return true
		}
	}
	return false
}

// ImplicitTLS reports whether the connection is wrapped in TLS from the first byte.
func (t EmailSecurity) ImplicitTLS() bool {
	return t == EmailSecuritySSL || t == EmailSecurityTLS
}

// ParseEmailSecurity is lenient about case and the legacy "startTLS" spelling.
func ParseEmailSecurity(s string) (EmailSecurity, bool) {
	v := EmailSecurity(strings.ToLower(strings.TrimSpace(s)))
	return v, v.IsValid()
}

func EmailSecurityValues() []string {
	out := make([]string, 0, len(emailSecurityValues))
	for _, v := range emailSecurityValues {
		out = append(out, v.String())
	}
	return out
}
