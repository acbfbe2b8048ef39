// Package workflow drives one problem report from recording to submission.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/segnala/internal/capture"
	"github.com/rbright/segnala/internal/fsm"
	"github.com/rbright/segnala/internal/ipc"
	"github.com/rbright/segnala/internal/logging"
	"github.com/rbright/segnala/internal/report"
)

// stopTimeout bounds the final drain of the capture after a stop request.
const stopTimeout = 15 * time.Second

// Extractor turns a transcript into a structured report.
type Extractor interface {
	Extract(ctx context.Context, transcript string) (report.ProblemReport, error)
}

// Submitter delivers a report to the spreadsheet endpoint.
type Submitter interface {
	Submit(ctx context.Context, r report.ProblemReport) error
}

// KeyStore accepts an API key entered while the owner is running.
type KeyStore interface {
	Override(key string)
}

// Indicator is the workflow-facing subset of user feedback.
type Indicator interface {
	ShowRecording(context.Context)
	ShowProcessing(context.Context)
	ShowSuccess(context.Context, report.ProblemReport)
	ShowError(context.Context, string)
	Hide(context.Context)
}

// Output receives every report that reached the spreadsheet.
type Output interface {
	Publish(context.Context, report.ProblemReport) error
}

type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)                     {}
func (noopIndicator) ShowProcessing(context.Context)                    {}
func (noopIndicator) ShowSuccess(context.Context, report.ProblemReport) {}
func (noopIndicator) ShowError(context.Context, string)                 {}
func (noopIndicator) Hide(context.Context)                              {}

// Deps are the collaborators of a Controller. Capture, Extractor and
// Submitter are required.
type Deps struct {
	Capture   capture.Capture
	Extractor Extractor
	Submitter Submitter
	Keys      KeyStore
	Indicator Indicator
	Output    Output
	Logger    *slog.Logger
}

// Snapshot is a consistent view of the workflow.
type Snapshot struct {
	State      fsm.State
	Message    string
	Transcript string
	Report     *report.ProblemReport
	CycleID    string
}

type command struct {
	req   ipc.Request
	reply chan ipc.Response
}

type stopResult struct {
	cycleID string
	text    string
	err     error
}

type processResult struct {
	cycleID string
	report  report.ProblemReport
	err     error
}

// Controller owns the workflow state. All transitions happen on the Run
// loop; Handle and Snapshot are safe from any goroutine.
type Controller struct {
	capture   capture.Capture
	extractor Extractor
	submitter Submitter
	keys      KeyStore
	indicator Indicator
	output    Output
	logger    *slog.Logger
	newID     func() string

	commands  chan command
	stopped   chan stopResult
	processed chan processResult
	done      chan struct{}

	mu   sync.RWMutex
	snap Snapshot

	// Loop-owned.
	runCtx   context.Context
	stopping bool
	started  time.Time
}

// NewController wires a controller in the idle state.
func NewController(deps Deps) *Controller {
	if deps.Capture == nil {
		deps.Capture = capture.Unsupported{Reason: "no capture configured"}
	}
	if deps.Indicator == nil {
		deps.Indicator = noopIndicator{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}

	return &Controller{
		capture:   deps.Capture,
		extractor: deps.Extractor,
		submitter: deps.Submitter,
		keys:      deps.Keys,
		indicator: deps.Indicator,
		output:    deps.Output,
		logger:    deps.Logger,
		newID:     uuid.NewString,
		commands:  make(chan command),
		stopped:   make(chan stopResult, 1),
		processed: make(chan processResult, 1),
		done:      make(chan struct{}),
		snap:      Snapshot{State: fsm.StateIdle},
	}
}

// Snapshot returns the current workflow view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Run processes commands and capture events until ctx is canceled. An
// active recording is stopped before Run returns.
func (c *Controller) Run(ctx context.Context) {
	c.runCtx = ctx
	defer close(c.done)

	failures := c.capture.Failures()
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case cmd := <-c.commands:
			cmd.reply <- c.dispatch(ctx, cmd.req)
		case err := <-failures:
			c.captureFailed(ctx, err)
		case res := <-c.stopped:
			c.finishStop(ctx, res)
		case res := <-c.processed:
			c.finishProcessing(ctx, res)
		}
	}
}

// Handle serves one IPC command through the Run loop.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	cmd := command{req: req, reply: make(chan ipc.Response, 1)}
	select {
	case c.commands <- cmd:
	case <-c.done:
		return ipc.Response{OK: false, Error: "workflow stopped"}
	case <-ctx.Done():
		return ipc.Response{OK: false, Error: ctx.Err().Error()}
	}

	select {
	case resp := <-cmd.reply:
		return resp
	case <-ctx.Done():
		return ipc.Response{OK: false, Error: ctx.Err().Error()}
	}
}

func (c *Controller) dispatch(ctx context.Context, req ipc.Request) ipc.Response {
	switch strings.ToLower(strings.TrimSpace(req.Command)) {
	case "status":
		return c.respond(c.Snapshot().Message)
	case "start":
		return c.start(ctx)
	case "stop":
		return c.stop()
	case "toggle":
		switch c.Snapshot().State {
		case fsm.StateRecording:
			return c.stop()
		default:
			return c.start(ctx)
		}
	case "retry":
		return c.reset(ctx, fsm.EventRetry, "ready for a new recording")
	case "new":
		return c.reset(ctx, fsm.EventReset, "ready for a new report")
	case "key":
		return c.setKey(req.Value)
	default:
		return c.refuse(fmt.Sprintf("unknown command: %s", req.Command))
	}
}

func (c *Controller) start(ctx context.Context) ipc.Response {
	switch state := c.Snapshot().State; state {
	case fsm.StateProcessing:
		return c.refuse("a report is being processed; wait for it to finish")
	case fsm.StateRecording:
		return c.refuse("already recording")
	case fsm.StateError:
		return c.refuse("cannot start from state error; run `segnala retry` first")
	case fsm.StateSuccess:
		if err := c.apply(fsm.EventReset, nil); err != nil {
			return c.refuse(err.Error())
		}
	}

	if err := c.capture.Supported(); err != nil {
		return c.refuse(Message(err))
	}

	cycleID := c.newID()
	if err := c.apply(fsm.EventStart, func(s *Snapshot) { s.CycleID = cycleID }); err != nil {
		return c.refuse(err.Error())
	}
	c.started = time.Now()

	if err := c.capture.Start(c.runCtx); err != nil {
		c.fail(ctx, fmt.Errorf("%w: start: %w", ErrCapture, err))
		return c.refuse(c.Snapshot().Message)
	}

	c.logger.Info("recording started", "cycle_id", cycleID)
	c.indicator.ShowRecording(ctx)
	return c.respond("recording")
}

func (c *Controller) stop() ipc.Response {
	snap := c.Snapshot()
	switch snap.State {
	case fsm.StateRecording:
	case fsm.StateProcessing:
		return c.refuse("already processing")
	default:
		return c.refuse(fmt.Sprintf("cannot stop from state %s", snap.State))
	}
	if c.stopping {
		return c.respond("stop already requested")
	}

	c.stopping = true
	runCtx := c.runCtx
	go func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), stopTimeout)
		defer cancel()
		text, err := c.capture.Stop(stopCtx)
		c.stopped <- stopResult{cycleID: snap.CycleID, text: text, err: err}
	}()
	return c.respond("stop requested")
}

func (c *Controller) finishStop(ctx context.Context, res stopResult) {
	c.stopping = false
	snap := c.Snapshot()
	if snap.State != fsm.StateRecording || snap.CycleID != res.cycleID {
		return
	}

	text := strings.TrimSpace(res.text)
	elapsed := time.Since(c.started).Milliseconds()
	if res.err != nil && text == "" {
		c.fail(ctx, fmt.Errorf("%w: stop: %w", ErrCapture, res.err))
		return
	}
	if text == "" {
		_ = c.apply(fsm.EventEmpty, nil)
		c.logger.Info("recording ended without speech", "cycle_id", res.cycleID, "recording_ms", elapsed)
		c.indicator.Hide(ctx)
		return
	}

	if err := c.apply(fsm.EventStop, func(s *Snapshot) { s.Transcript = text }); err != nil {
		c.logger.Error("stop transition rejected", "cycle_id", res.cycleID, "error", err.Error())
		return
	}
	c.logger.Info("recording stopped", "cycle_id", res.cycleID, "recording_ms", elapsed, "transcript_chars", len(text))
	c.indicator.ShowProcessing(ctx)

	go c.process(ctx, res.cycleID, text)
}

// process runs extraction then submission; submission never starts before
// extraction has resolved.
func (c *Controller) process(ctx context.Context, cycleID string, transcript string) {
	res := processResult{cycleID: cycleID}
	r, err := c.extractor.Extract(ctx, transcript)
	if err != nil {
		res.err = fmt.Errorf("extract report: %w", err)
		c.processed <- res
		return
	}
	if err := c.submitter.Submit(ctx, r); err != nil {
		res.err = fmt.Errorf("submit report: %w", err)
		c.processed <- res
		return
	}
	res.report = r
	c.processed <- res
}

func (c *Controller) finishProcessing(ctx context.Context, res processResult) {
	if snap := c.Snapshot(); snap.State != fsm.StateProcessing || snap.CycleID != res.cycleID {
		return
	}
	if res.err != nil {
		c.fail(ctx, res.err)
		return
	}

	r := res.report
	if err := c.apply(fsm.EventSucceed, func(s *Snapshot) {
		s.Report = &r
		s.Message = "Segnalazione inviata"
	}); err != nil {
		c.logger.Error("success transition rejected", "cycle_id", res.cycleID, "error", err.Error())
		return
	}
	c.logger.Info("report submitted",
		"cycle_id", res.cycleID,
		"odl", r.ODL,
		"problem_type", r.ProblemType,
	)
	c.indicator.ShowSuccess(ctx, r)

	if c.output != nil {
		if err := c.output.Publish(ctx, r); err != nil {
			c.logger.Warn("report output failed", "cycle_id", res.cycleID, "error", err.Error())
		}
	}
}

func (c *Controller) captureFailed(ctx context.Context, err error) {
	if c.Snapshot().State != fsm.StateRecording || c.stopping {
		c.logger.Debug("ignoring capture failure", "error", err.Error())
		return
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	_, _ = c.capture.Stop(stopCtx)
	cancel()

	c.fail(ctx, fmt.Errorf("%w: %w", ErrCapture, err))
}

// fail moves the workflow to error with the user-facing message for err.
func (c *Controller) fail(ctx context.Context, err error) {
	msg := Message(err)
	cycleID := c.Snapshot().CycleID
	if applyErr := c.apply(fsm.EventFail, func(s *Snapshot) { s.Message = msg }); applyErr != nil {
		c.logger.Error("fail transition rejected", "cycle_id", cycleID, "error", applyErr.Error())
		return
	}
	c.logger.Error("workflow failed", "cycle_id", cycleID, "error", err.Error())
	c.indicator.ShowError(ctx, msg)
}

func (c *Controller) reset(ctx context.Context, event fsm.Event, message string) ipc.Response {
	if err := c.apply(event, nil); err != nil {
		return c.refuse(fmt.Sprintf("cannot %s from state %s", event, c.Snapshot().State))
	}
	c.indicator.Hide(ctx)
	return c.respond(message)
}

func (c *Controller) setKey(value string) ipc.Response {
	value = strings.TrimSpace(value)
	if value == "" {
		return c.refuse("key requires a value")
	}
	if c.keys == nil {
		return c.refuse("runtime API key is not supported")
	}
	c.keys.Override(value)
	c.logger.Info("api key replaced for this session")
	return c.respond("API key updated")
}

func (c *Controller) shutdown() {
	if c.Snapshot().State != fsm.StateRecording || c.stopping {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := c.capture.Stop(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		c.logger.Warn("stop capture on shutdown", "error", err.Error())
	}
	c.indicator.Hide(ctx)
}

// apply runs one FSM transition. Entering idle clears everything the
// previous cycle held.
func (c *Controller) apply(event fsm.Event, update func(*Snapshot)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.snap.State, event)
	if err != nil {
		return err
	}
	if next == fsm.StateIdle {
		c.snap = Snapshot{}
	}
	c.snap.State = next
	if update != nil {
		update(&c.snap)
	}
	return nil
}

func (c *Controller) respond(message string) ipc.Response {
	snap := c.Snapshot()
	transcript := snap.Transcript
	if snap.State == fsm.StateRecording {
		transcript = c.capture.Current()
	}
	return ipc.Response{
		OK:         true,
		State:      string(snap.State),
		Message:    message,
		Transcript: transcript,
		Report:     snap.Report,
		CycleID:    snap.CycleID,
	}
}

func (c *Controller) refuse(reason string) ipc.Response {
	resp := c.respond(c.Snapshot().Message)
	resp.OK = false
	resp.Error = reason
	return resp
}
