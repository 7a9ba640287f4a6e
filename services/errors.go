package services

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors: surfaced immediately, nothing mutated.
var (
	ErrBetTooLow           = errors.New("bet below minimum")
	ErrBetTooHigh          = errors.New("bet above maximum")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientDemo    = errors.New("insufficient demo balance")
)

// Not-found errors: surfaced, no implied retry.
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrMatchNotFound = errors.New("match not found")
	ErrPoolNotFound  = errors.New("tournament not found")
)

// Concurrency conflicts: the racing second caller gets a no-op or this.
var (
	ErrRoomAlreadyFull = errors.New("room already full")
	ErrPoolFull        = errors.New("tournament is full")
	ErrAlreadyEntered  = errors.New("already entered")
)

// EloGateError reports a failed popularity-similarity check. The caller
// may retry with another track or accept queuing.
type EloGateError struct {
	Diff int64
}

func (e *EloGateError) Error() string {
	return fmt.Sprintf("elo gate blocked: score difference %d (limit %d)", e.Diff, eloGateMaxDiff)
}

// isStructuralStoreError detects "the backing table does not exist" class
// failures, which open the ELO circuit breaker instead of failing matchmaking.
func isStructuralStoreError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "undefined table") ||
		strings.Contains(msg, "relation") ||
		strings.Contains(msg, "no such table")
}

// isDuplicateKeyError detects a unique-constraint violation, the store's
// answer to two racing inserts of the same logical row.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
