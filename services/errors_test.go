package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateKeyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "postgres unique violation",
			err:  errors.New(`ERROR: duplicate key value violates unique constraint "idx_tournament_entry" (SQLSTATE 23505)`),
			want: true,
		},
		{
			name: "generic unique constraint",
			err:  errors.New("UNIQUE constraint failed: tournament_participants.tournament_id"),
			want: true,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
		{
			name: "unrelated error",
			err:  errors.New("connection refused"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isDuplicateKeyError(tt.err))
		})
	}
}

func TestIsStructuralStoreError(t *testing.T) {
	assert.True(t, isStructuralStoreError(errors.New(`ERROR: relation "music_charts" does not exist (SQLSTATE 42P01)`)))
	assert.False(t, isStructuralStoreError(errors.New("connection refused")))
	assert.False(t, isStructuralStoreError(nil))
}
