package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	tests := map[string]string{
		"john.doe@example.com": "jo***@example.com",
		"ab@example.com":       "***@example.com",
		"not-an-email":         "***@***",
		"a@b@c":                "***@***",
	}
	for in, want := range tests {
		assert.Equal(t, want, Email(in), in)
	}
}

func TestEmails(t *testing.T) {
	got := Emails([]string{"casey@x.com", "al@y.org"})
	assert.Equal(t, "ca***@x.com, ***@y.org", got)
}
