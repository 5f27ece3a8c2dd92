package model

import (
	"errors"
	"fmt"
)

var (
	ErrOffline          = errors.New("offline: connect to the internet to chat")
	ErrTurnInProgress   = errors.New("a turn is already in progress")
	ErrSessionNotFound  = errors.New("chat session does not exist")
	ErrMessageNotFound  = errors.New("message does not exist")
	ErrMissingAudioData = errors.New("synthesis response has no audio data")
)

// ConfigurationError reports a missing credential or setting required by the
// generation service.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s is required", e.Setting)
}

// StreamError is returned when a streamed turn fails. Partial holds the text that
// was already delivered.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
