// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package save

import (
	"errors"
	"fmt"
)

// Reason classifies why a save or load did not complete.
type Reason string

const (
	ReasonSlotLimitReached      Reason = "slot_limit_reached"
	ReasonDecodeFailed          Reason = "decode_failed"
	ReasonStaleResponse         Reason = "stale_response"
	ReasonSceneTransitionFailed Reason = "scene_transition_failed"
	ReasonUnitRestoreSkipped    Reason = "unit_restore_skipped"
	ReasonBackendFailed         Reason = "backend_failed"
	ReasonCaptureFailed         Reason = "capture_failed"
	ReasonRestoreFailed         Reason = "restore_failed"
)

var (
	ErrSlotLimitReached      = errors.New("save: slot limit reached")
	ErrDecodeFailed          = errors.New("save: decode failed")
	ErrStaleResponse         = errors.New("save: stale response")
	ErrSceneTransitionFailed = errors.New("save: scene transition failed")
	ErrBackend               = errors.New("save: backend failure")
	ErrCaptureFailed         = errors.New("save: capture failed")
	ErrRestoreFailed         = errors.New("save: restore failed")
)

var reasonSentinels = map[Reason]error{
	ReasonSlotLimitReached:      ErrSlotLimitReached,
	ReasonDecodeFailed:          ErrDecodeFailed,
	ReasonStaleResponse:         ErrStaleResponse,
	ReasonSceneTransitionFailed: ErrSceneTransitionFailed,
	ReasonBackendFailed:         ErrBackend,
	ReasonCaptureFailed:         ErrCaptureFailed,
	ReasonRestoreFailed:         ErrRestoreFailed,
}

// Error reports a failed save, load or import.
type Error struct {
	Op     string
	Reason Reason
	Key    SlotKey
	Err    error
}

// NewError builds an Error for op on key.
func NewError(op string, reason Reason, key SlotKey, err error) *Error {
	return &Error{Op: op, Reason: reason, Key: key, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Key, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Key, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel error for the reason.
func (e *Error) Is(target error) bool {
	sentinel, ok := reasonSentinels[e.Reason]
	return ok && sentinel == target
}

// ReasonOf extracts the reason from err, or "" when err is not an *Error.
func ReasonOf(err error) Reason {
	var se *Error
	if errors.As(err, &se) {
		return se.Reason
	}
	return ""
}
