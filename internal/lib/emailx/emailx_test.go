package emailx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "plain address", input: "user@example.com", want: true},
		{name: "subdomain and plus", input: "a.b+tag@mail.example.org", want: true},
		{name: "surrounding spaces", input: "  user@example.com  ", want: true},
		{name: "missing at", input: "user.example.com", want: false},
		{name: "missing tld", input: "user@example", want: false},
		{name: "pipe is not allowed", input: "us|er@example.com", want: false},
		{name: "empty", input: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.input))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "user@example.com", Normalize("  User@Example.COM "))
}
