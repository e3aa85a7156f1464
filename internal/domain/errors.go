package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrCapacity           = errors.New("all channel categories are full")
	ErrGuildLimit         = errors.New("guild room limit reached")
	ErrUserLimit          = errors.New("user room limit reached")
	ErrCooldown           = errors.New("room creation is cooling down")
	ErrOwnerPresent       = errors.New("room owner is still present")
	ErrNotManaged         = errors.New("room is not managed")
	ErrNotPresent         = errors.New("member is not in the room")
	ErrDisabled           = errors.New("temporary voice rooms are disabled")
	ErrMissingCreatorRole = errors.New("member lacks a creator role")
	ErrTransferDisabled   = errors.New("ownership transfer is disabled")
	ErrTransientPlatform  = errors.New("voice platform request failed")
	ErrStoreUnavailable   = errors.New("persistent store unavailable")
	ErrInvalidSettings    = errors.New("invalid settings")
	ErrInvalidInput       = errors.New("invalid input")
)

// PlatformError wraps a failed gateway call. It matches ErrTransientPlatform.
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform %s: %v", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

func (e *PlatformError) Is(target error) bool {
	return target == ErrTransientPlatform
}

// CooldownError reports how long a member must wait. It matches ErrCooldown.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("room creation is cooling down for %s", e.Remaining.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldown
}

// ValidationError names the offending settings field. It matches ErrInvalidSettings.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid settings: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidSettings
}
