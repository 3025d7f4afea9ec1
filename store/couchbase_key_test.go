package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentID(t *testing.T) {
	tests := []struct {
		name  string
		table string
		key   []byte
		want  string
	}{
		{"ascii key", "session", []byte("client1"), "session::Y2xpZW50MQ"},
		{"binary key", "iterator", []byte{0x00, 0xff, 0x10}, "iterator::AP8Q"},
		{"empty key", "session", nil, "session::"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, documentID(tt.table, tt.key))
		})
	}
}
