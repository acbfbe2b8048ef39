// Package pipeline wires microphone capture to the streaming recognizer and
// exposes the result as a capture platform.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rbright/segnala/internal/audio"
	"github.com/rbright/segnala/internal/capture"
	"github.com/rbright/segnala/internal/config"
	"github.com/rbright/segnala/internal/logging"
	"github.com/rbright/segnala/internal/speech"
)

const collectTimeout = 10 * time.Second

type recorder interface {
	Chunks() <-chan []byte
	Stop() error
	PCM() []byte
	BytesCaptured() int64
}

type recognitionStream interface {
	Send(chunk []byte) error
	Text() string
	Updates() <-chan struct{}
	Done() <-chan struct{}
	Err() error
	CloseAndCollect(ctx context.Context) (string, error)
	Cancel() error
}

// Platform opens one Pulse recording plus one StreamingRecognize call per
// recognizer session.
type Platform struct {
	cfg    config.Config
	logger *slog.Logger

	selectDevice  func(ctx context.Context, input string, fallback string) (audio.Selection, error)
	dialStream    func(ctx context.Context, cfg speech.Config) (recognitionStream, error)
	startRecorder func(ctx context.Context, device audio.Device, keepPCM bool) (recorder, error)
}

// NewPlatform builds the host platform from runtime config.
func NewPlatform(cfg config.Config, logger *slog.Logger) *Platform {
	return &Platform{
		cfg:          cfg,
		logger:       logger,
		selectDevice: audio.SelectDevice,
		dialStream: func(ctx context.Context, sc speech.Config) (recognitionStream, error) {
			return speech.Dial(ctx, sc)
		},
		startRecorder: func(ctx context.Context, device audio.Device, keepPCM bool) (recorder, error) {
			return audio.Record(ctx, device, keepPCM)
		},
	}
}

// SpeechConfig maps the speech section of cfg to a recognizer connection
// config without phrases or debug sink.
func SpeechConfig(cfg config.Config) speech.Config {
	return speech.Config{
		Endpoint:             cfg.Speech.Endpoint,
		Insecure:             cfg.Speech.Insecure,
		LanguageCode:         cfg.Speech.LanguageCode,
		Model:                cfg.Speech.Model,
		AutomaticPunctuation: cfg.Speech.AutomaticPunctuation,
		DialTimeout:          time.Duration(cfg.Speech.DialTimeoutMS) * time.Millisecond,
	}
}

// Open starts a recognizer session. ctx bounds the session lifetime.
func (p *Platform) Open(ctx context.Context) (capture.Recognizer, error) {
	phrases, _, err := config.BuildSpeechPhrases(p.cfg)
	if err != nil {
		return nil, fmt.Errorf("build speech contexts: %w", err)
	}

	selection, err := p.selectDevice(ctx, p.cfg.Audio.Input, p.cfg.Audio.Fallback)
	if err != nil {
		return nil, err
	}
	if selection.Warning != "" && p.logger != nil {
		p.logger.Warn(selection.Warning)
	}

	r := &recognizer{
		logger:    p.logger,
		device:    selection.Device,
		audioDump: p.cfg.Debug.AudioDump,
		events:    make(chan capture.Event, 16),
		quit:      make(chan struct{}),
		sendDone:  make(chan error, 1),
	}

	var sink io.Writer
	if p.cfg.Debug.GRPCDump {
		file, ferr := logging.CreateDebugFile("grpc", "jsonl")
		if ferr != nil {
			return nil, ferr
		}
		r.grpcDump = file
		sink = file
	}

	hints := make([]speech.Phrase, 0, len(phrases))
	for _, phrase := range phrases {
		hints = append(hints, speech.Phrase{Text: phrase.Phrase, Boost: phrase.Boost})
	}

	sc := SpeechConfig(p.cfg)
	sc.Phrases = hints
	sc.DebugSink = sink
	stream, err := p.dialStream(ctx, sc)
	if err != nil {
		r.closeDebug()
		return nil, err
	}
	r.stream = stream

	rec, err := p.startRecorder(ctx, selection.Device, p.cfg.Debug.AudioDump)
	if err != nil {
		_ = stream.Cancel()
		r.closeDebug()
		return nil, err
	}
	r.rec = rec

	if p.logger != nil {
		p.logger.Debug("recognizer opened", "device", selection.Device.String())
	}

	go r.pump()
	go r.watch()
	return r, nil
}

// recognizer is one capture.Recognizer backed by a recorder and a stream.
type recognizer struct {
	logger    *slog.Logger
	device    audio.Device
	audioDump bool

	rec    recorder
	stream recognitionStream

	events   chan capture.Event
	quit     chan struct{}
	quitOnce sync.Once
	sendDone chan error

	finishOnce sync.Once
	grpcDump   *os.File
}

func (r *recognizer) Events() <-chan capture.Event {
	return r.events
}

// Stop ends capture, drains the recognizer and returns its final text.
func (r *recognizer) Stop(ctx context.Context) (string, error) {
	r.close()
	_ = r.rec.Stop()
	defer r.finish()

	if err := <-r.sendDone; err != nil && !errors.Is(err, io.EOF) {
		_ = r.stream.Cancel()
		return r.stream.Text(), fmt.Errorf("send audio stream: %w", err)
	}

	collectCtx, cancel := context.WithTimeout(ctx, collectTimeout)
	defer cancel()
	text, err := r.stream.CloseAndCollect(collectCtx)
	if err != nil {
		return text, fmt.Errorf("collect final transcript: %w", err)
	}
	return text, nil
}

// Abort releases the microphone and the stream without waiting.
func (r *recognizer) Abort() {
	r.close()
	_ = r.rec.Stop()
	_ = r.stream.Cancel()
	r.finish()
}

func (r *recognizer) close() {
	r.quitOnce.Do(func() { close(r.quit) })
}

// pump forwards PCM to the stream and reports the first send failure.
func (r *recognizer) pump() {
	for chunk := range r.rec.Chunks() {
		if len(chunk) == 0 {
			continue
		}
		if err := r.stream.Send(chunk); err != nil {
			_ = r.rec.Stop()
			r.sendDone <- err
			return
		}
	}
	r.sendDone <- nil
}

// watch translates stream progress into capture events.
func (r *recognizer) watch() {
	for {
		select {
		case <-r.quit:
			return
		case <-r.stream.Updates():
			r.emit(capture.Event{Kind: capture.EventResult, Text: r.stream.Text()})
		case <-r.stream.Done():
			if text := r.stream.Text(); text != "" {
				r.emit(capture.Event{Kind: capture.EventResult, Text: text})
			}
			err := r.stream.Err()
			switch {
			case errors.Is(err, speech.ErrNoSpeech):
				r.emit(capture.Event{Kind: capture.EventError, Err: capture.ErrNoSpeech})
				r.emit(capture.Event{Kind: capture.EventEnd})
			case err != nil:
				r.emit(capture.Event{Kind: capture.EventError, Err: fmt.Errorf("speech recognition: %w", err)})
			default:
				r.emit(capture.Event{Kind: capture.EventEnd})
			}
			return
		}
	}
}

func (r *recognizer) emit(ev capture.Event) {
	select {
	case r.events <- ev:
	case <-r.quit:
	}
}

// finish writes debug artifacts once the session is over.
func (r *recognizer) finish() {
	r.finishOnce.Do(func() {
		r.writeDebugAudio()
		r.closeDebug()
	})
}

func (r *recognizer) closeDebug() {
	if r.grpcDump != nil {
		_ = r.grpcDump.Close()
		r.grpcDump = nil
	}
}

// writeDebugAudio dumps the captured PCM as WAV when debug.audio_dump is set.
func (r *recognizer) writeDebugAudio() {
	if !r.audioDump || r.rec == nil {
		return
	}
	pcm := r.rec.PCM()
	if len(pcm) == 0 {
		return
	}

	file, err := logging.CreateDebugFile("audio", "wav")
	if err != nil {
		r.logWarn("unable to create debug audio dump", err)
		return
	}
	defer file.Close()

	if err := audio.WriteWAV(file, pcm, audio.SampleRate); err != nil {
		r.logWarn("unable to write debug audio dump", err)
	}
}

func (r *recognizer) logWarn(msg string, err error) {
	if r.logger != nil {
		r.logger.Warn(msg, "error", err.Error(), "device", r.device.String(), "bytes", r.rec.BytesCaptured())
	}
}
