// Package capture turns a platform recognizer into one continuous
// recording session that survives recognizer restarts.
package capture

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is returned by every operation of an unsupported capture.
	ErrUnsupported = errors.New("speech capture is not supported on this host")
	// ErrAlreadyActive is returned by Start while a session is running.
	ErrAlreadyActive = errors.New("capture session already active")
	// ErrNoSpeech is a benign platform error; the session keeps listening.
	ErrNoSpeech = errors.New("no speech detected")
)

// Capture is the recording capability the workflow depends on.
type Capture interface {
	Supported() error
	Start(ctx context.Context) error
	Current() string
	Stop(ctx context.Context) (string, error)
	Failures() <-chan error
}

// EventKind distinguishes recognizer events.
type EventKind int

const (
	EventResult EventKind = iota
	EventError
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one recognizer notification. Result events carry the full text
// of the current platform session.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Recognizer is one platform recognition session.
type Recognizer interface {
	Events() <-chan Event
	// Stop drains pending results and returns the session text.
	Stop(ctx context.Context) (string, error)
	// Abort releases the microphone without waiting for results.
	Abort()
}

// Platform opens recognizer sessions.
type Platform interface {
	Open(ctx context.Context) (Recognizer, error)
}

// PlatformFunc adapts a function to Platform.
type PlatformFunc func(ctx context.Context) (Recognizer, error)

func (f PlatformFunc) Open(ctx context.Context) (Recognizer, error) {
	return f(ctx)
}

// Unsupported is the capture used when the host cannot recognize speech.
type Unsupported struct {
	Reason string
}

func (u Unsupported) err() error {
	if u.Reason == "" {
		return ErrUnsupported
	}
	return fmt.Errorf("%w: %s", ErrUnsupported, u.Reason)
}

func (u Unsupported) Supported() error                   { return u.err() }
func (u Unsupported) Start(context.Context) error        { return u.err() }
func (Unsupported) Current() string                      { return "" }
func (Unsupported) Stop(context.Context) (string, error) { return "", nil }
func (Unsupported) Failures() <-chan error               { return nil }
