package hasher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash(t *testing.T) {
	const helloDigest = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

	tests := []struct {
		name string
		size int
		want string
	}{
		{"full digest", 0, helloDigest},
		{"truncated", 16, helloDigest[:16]},
		{"oversized keeps digest", 100, helloDigest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.size).Hash([]byte("hello")))
		})
	}
}
