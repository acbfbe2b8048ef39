package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Session keeps one logical recording alive across platform sessions.
// Platform sessions that end on their own are reopened with the text heard
// so far carried over; only Stop ends the recording.
type Session struct {
	platform Platform
	logger   *slog.Logger

	mu       sync.Mutex
	active   bool
	rec      Recognizer
	quit     chan struct{}
	carried  string
	current  string
	last     string
	restarts int

	failures chan error
}

// New returns a supported capture backed by platform.
func New(platform Platform, logger *slog.Logger) *Session {
	return &Session{
		platform: platform,
		logger:   logger,
		failures: make(chan error, 1),
	}
}

func (s *Session) Supported() error {
	return nil
}

// Start opens the first platform session. ctx bounds the whole recording,
// including restarts.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return ErrAlreadyActive
	}

	rec, err := s.platform.Open(ctx)
	if err != nil {
		return fmt.Errorf("open recognizer: %w", err)
	}

	// Drop a failure left over from a previous recording.
	select {
	case <-s.failures:
	default:
	}

	s.active = true
	s.rec = rec
	s.quit = make(chan struct{})
	s.carried = ""
	s.current = ""
	s.restarts = 0
	go s.watch(ctx, rec, s.quit)
	return nil
}

// Current returns the live transcript including interim text.
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Stop ends the recording and returns the trimmed transcript. Stopping an
// inactive session returns the previous result.
func (s *Session) Stop(ctx context.Context) (string, error) {
	s.mu.Lock()
	if !s.active {
		last := s.last
		s.mu.Unlock()
		return last, nil
	}
	rec := s.rec
	carried := s.carried
	live := s.current
	s.active = false
	s.rec = nil
	close(s.quit)
	s.mu.Unlock()

	var (
		text string
		err  error
	)
	if rec != nil {
		text, err = rec.Stop(ctx)
	}
	final := strings.TrimSpace(joinText(carried, text))
	if err != nil && !errors.Is(err, ErrNoSpeech) {
		final = strings.TrimSpace(live)
		if final == "" {
			return "", fmt.Errorf("stop recognizer: %w", err)
		}
		s.logWarn("recognizer stop failed; using live transcript", "error", err.Error())
	}
	if final == "" {
		// Final drain can lose an interim that was already shown.
		final = strings.TrimSpace(live)
	}

	s.mu.Lock()
	s.current = final
	s.last = final
	s.mu.Unlock()
	return final, nil
}

// Failures delivers at most one failure per recording.
func (s *Session) Failures() <-chan error {
	return s.failures
}

// Restarts reports how many platform sessions were reopened in the current
// or most recent recording.
func (s *Session) Restarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}

func (s *Session) watch(ctx context.Context, rec Recognizer, quit <-chan struct{}) {
	for {
		var (
			ev Event
			ok bool
		)
		select {
		case <-quit:
			return
		case ev, ok = <-rec.Events():
			if !ok {
				ev = Event{Kind: EventEnd}
			}
		}

		switch ev.Kind {
		case EventResult:
			s.mu.Lock()
			if s.rec == rec {
				s.current = joinText(s.carried, ev.Text)
			}
			s.mu.Unlock()

		case EventError:
			if errors.Is(ev.Err, ErrNoSpeech) {
				s.logDebug("recognizer heard no speech")
				continue
			}
			s.fail(rec, ev.Err)
			return

		case EventEnd:
			next, err := s.restart(ctx, rec)
			if err != nil {
				s.fail(nil, err)
				return
			}
			if next == nil {
				return
			}
			rec = next
		}
	}
}

// restart reopens the platform after a session ended by itself. While the
// new session opens s.rec is nil, so a concurrent Stop uses the carried
// text alone. It returns nil, nil when the recording was stopped meanwhile.
func (s *Session) restart(ctx context.Context, ended Recognizer) (Recognizer, error) {
	s.mu.Lock()
	if !s.active || s.rec != ended {
		s.mu.Unlock()
		return nil, nil
	}
	s.carried = s.current
	s.rec = nil
	s.mu.Unlock()

	ended.Abort()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("restart recognizer: %w", err)
	}

	next, err := s.platform.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("restart recognizer: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.rec != nil {
		next.Abort()
		return nil, nil
	}
	s.rec = next
	s.restarts++
	s.logDebug("recognizer restarted", "restarts", s.restarts)
	return next, nil
}

// fail deactivates the session if rec is still current, releases the
// microphone and reports err. A nil rec means a restart was in progress.
func (s *Session) fail(rec Recognizer, err error) {
	s.mu.Lock()
	if !s.active || s.rec != rec {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.rec = nil
	s.last = strings.TrimSpace(s.current)
	close(s.quit)
	s.mu.Unlock()

	if rec != nil {
		rec.Abort()
	}

	select {
	case s.failures <- err:
	default:
	}
}

func joinText(carried string, text string) string {
	carried = strings.TrimSpace(carried)
	text = strings.TrimSpace(text)
	switch {
	case carried == "":
		return text
	case text == "":
		return carried
	default:
		return carried + " " + text
	}
}

func (s *Session) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Session) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
