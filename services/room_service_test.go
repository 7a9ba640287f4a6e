package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRoomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := generateRoomCode()
		assert.Len(t, code, roomCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(roomCodeAlphabet, r),
				"code %q contains %q outside the alphabet", code, r)
		}
		seen[code] = true
	}

	// Not a uniqueness guarantee, but 200 draws from 32^6 colliding down
	// to a handful would mean the generator is broken.
	assert.Greater(t, len(seen), 190)
}

func TestRoomCodeAlphabetExcludesAmbiguous(t *testing.T) {
	for _, r := range "IO01" {
		assert.False(t, strings.ContainsRune(roomCodeAlphabet, r),
			"ambiguous glyph %q must not be in the alphabet", r)
	}

	// L stays: codes are shared as links or read aloud, and lowercase
	// display is not a supported surface.
	assert.True(t, strings.ContainsRune(roomCodeAlphabet, 'L'))
	assert.Len(t, roomCodeAlphabet, 32)
}
