package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	events   chan Event
	stopText string
	stopErr  error
	stops    atomic.Int32
	aborts   atomic.Int32
}

func newFakeRecognizer(stopText string) *fakeRecognizer {
	return &fakeRecognizer{events: make(chan Event, 8), stopText: stopText}
}

func (r *fakeRecognizer) Events() <-chan Event { return r.events }

func (r *fakeRecognizer) Stop(context.Context) (string, error) {
	r.stops.Add(1)
	return r.stopText, r.stopErr
}

func (r *fakeRecognizer) Abort() { r.aborts.Add(1) }

type fakePlatform struct {
	mu    sync.Mutex
	queue []*fakeRecognizer
	errs  []error
	opens int
}

func (p *fakePlatform) Open(context.Context) (Recognizer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.opens
	p.opens++
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	return p.queue[i], nil
}

func (p *fakePlatform) openCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens
}

func eventuallyCurrent(t *testing.T, s *Session, want string) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Current() == want }, 2*time.Second, 5*time.Millisecond)
}

func TestSessionTracksResultsAndStops(t *testing.T) {
	rec := newFakeRecognizer("  problema al motore  ")
	s := New(&fakePlatform{queue: []*fakeRecognizer{rec}}, nil)
	require.NoError(t, s.Supported())

	require.NoError(t, s.Start(context.Background()))
	require.ErrorIs(t, s.Start(context.Background()), ErrAlreadyActive)

	rec.events <- Event{Kind: EventResult, Text: "problema"}
	eventuallyCurrent(t, s, "problema")
	rec.events <- Event{Kind: EventResult, Text: "problema al mot"}
	eventuallyCurrent(t, s, "problema al mot")

	text, err := s.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, "problema al motore", text)

	again, err := s.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, text, again)
	require.Equal(t, int32(1), rec.stops.Load())
}

func TestSessionIgnoresNoSpeech(t *testing.T) {
	rec := newFakeRecognizer("dopo")
	s := New(&fakePlatform{queue: []*fakeRecognizer{rec}}, nil)
	require.NoError(t, s.Start(context.Background()))

	rec.events <- Event{Kind: EventError, Err: ErrNoSpeech}
	rec.events <- Event{Kind: EventResult, Text: "dopo"}
	eventuallyCurrent(t, s, "dopo")

	select {
	case err := <-s.Failures():
		t.Fatalf("unexpected failure: %v", err)
	default:
	}
	require.Zero(t, rec.aborts.Load())

	_, err := s.Stop(context.Background())
	require.NoError(t, err)
}

func TestSessionErrorReleasesAndAllowsNewStart(t *testing.T) {
	first := newFakeRecognizer("")
	second := newFakeRecognizer("di nuovo")
	s := New(&fakePlatform{queue: []*fakeRecognizer{first, second}}, nil)
	require.NoError(t, s.Start(context.Background()))

	boom := errors.New("microphone unplugged")
	first.events <- Event{Kind: EventError, Err: boom}

	select {
	case err := <-s.Failures():
		require.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("no failure delivered")
	}
	require.Equal(t, int32(1), first.aborts.Load())

	require.NoError(t, s.Start(context.Background()))
	text, err := s.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, "di nuovo", text)
}

func TestSessionRestartsAndCarriesText(t *testing.T) {
	first := newFakeRecognizer("")
	second := newFakeRecognizer("seconda parte")
	platform := &fakePlatform{queue: []*fakeRecognizer{first, second}}
	s := New(platform, nil)
	require.NoError(t, s.Start(context.Background()))

	first.events <- Event{Kind: EventResult, Text: "prima parte"}
	eventuallyCurrent(t, s, "prima parte")
	first.events <- Event{Kind: EventEnd}

	require.Eventually(t, func() bool { return platform.openCount() == 2 }, 2*time.Second, 5*time.Millisecond)
	second.events <- Event{Kind: EventResult, Text: "seconda"}
	eventuallyCurrent(t, s, "prima parte seconda")

	text, err := s.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, "prima parte seconda parte", text)
	require.Equal(t, 1, s.Restarts())
	require.Equal(t, int32(1), first.aborts.Load())
}

func TestSessionRestartFailureIsReported(t *testing.T) {
	first := newFakeRecognizer("")
	boom := errors.New("device gone")
	s := New(&fakePlatform{queue: []*fakeRecognizer{first}, errs: []error{nil, boom}}, nil)
	require.NoError(t, s.Start(context.Background()))

	close(first.events)

	select {
	case err := <-s.Failures():
		require.ErrorIs(t, err, boom)
		require.Contains(t, err.Error(), "restart recognizer")
	case <-time.After(2 * time.Second):
		t.Fatal("no failure delivered")
	}
}

func TestSessionWhitespaceTranscriptIsEmpty(t *testing.T) {
	rec := newFakeRecognizer(" \n\t ")
	s := New(&fakePlatform{queue: []*fakeRecognizer{rec}}, nil)
	require.NoError(t, s.Start(context.Background()))

	text, err := s.Stop(context.Background())
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestSessionStopFallsBackToLiveTextOnDrainError(t *testing.T) {
	rec := newFakeRecognizer("")
	rec.stopErr = errors.New("drain timeout")
	s := New(&fakePlatform{queue: []*fakeRecognizer{rec}}, nil)
	require.NoError(t, s.Start(context.Background()))

	rec.events <- Event{Kind: EventResult, Text: "guasto"}
	eventuallyCurrent(t, s, "guasto")

	text, err := s.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, "guasto", text)
}

func TestSessionStopErrorWithoutText(t *testing.T) {
	rec := newFakeRecognizer("")
	rec.stopErr = errors.New("drain timeout")
	s := New(&fakePlatform{queue: []*fakeRecognizer{rec}}, nil)
	require.NoError(t, s.Start(context.Background()))

	_, err := s.Stop(context.Background())
	require.ErrorContains(t, err, "drain timeout")
}

func TestSessionStartOpenFailure(t *testing.T) {
	s := New(&fakePlatform{errs: []error{errors.New("no pulse")}}, nil)
	require.ErrorContains(t, s.Start(context.Background()), "no pulse")

	text, err := s.Stop(context.Background())
	require.NoError(t, err)
	require.Empty(t, text)
}
