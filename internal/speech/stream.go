// Package speech streams PCM audio to a Cloud Speech StreamingRecognize endpoint.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc"
)

// ErrNoSpeech reports that the recognizer heard no audio it could use.
var ErrNoSpeech = errors.New("no speech detected")

// Phrase is one recognition hint.
type Phrase struct {
	Text  string
	Boost float32
}

// Config controls dialing and recognition for one stream.
type Config struct {
	Endpoint             string
	Insecure             bool
	LanguageCode         string
	Model                string
	AutomaticPunctuation bool
	Phrases              []Phrase
	DialTimeout          time.Duration
	// DebugSink receives one protojson line per recognizer response.
	DebugSink io.Writer
}

// Stream is one StreamingRecognize call. Responses are merged into a running
// transcript readable with Text while audio is still being sent.
type Stream struct {
	conn   *grpc.ClientConn
	stream speechpb.Speech_StreamingRecognizeClient
	cancel context.CancelFunc

	recvDone chan struct{}
	updates  chan struct{}

	mu         sync.Mutex
	segments   []string
	interim    string
	stability  float32
	recvErr    error
	closedSend bool
	canceled   bool
	debugSink  io.Writer
}

// Dial connects, sends the streaming config and starts receiving.
func Dial(ctx context.Context, cfg Config) (*Stream, error) {
	cfg = withDefaults(cfg)
	if cfg.Endpoint == "" {
		return nil, errors.New("speech endpoint is empty")
	}

	conn, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	client := speechpb.NewSpeechClient(conn)
	stream, err := openWithTimeout(streamCtx, cfg.DialTimeout, func() (speechpb.Speech_StreamingRecognizeClient, error) {
		return client.StreamingRecognize(streamCtx)
	})
	if err != nil {
		cancel()
		_ = conn.Close()
		return nil, fmt.Errorf("open streaming recognizer: %w", err)
	}

	if err := runWithTimeout(streamCtx, cfg.DialTimeout, func() error {
		return stream.Send(configRequest(cfg))
	}); err != nil {
		cancel()
		_ = conn.Close()
		return nil, fmt.Errorf("send streaming config: %w", err)
	}

	s := &Stream{
		conn:      conn,
		stream:    stream,
		cancel:    cancel,
		recvDone:  make(chan struct{}),
		updates:   make(chan struct{}, 1),
		debugSink: cfg.DebugSink,
	}
	go s.recvLoop()
	return s, nil
}

func withDefaults(cfg Config) Config {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if strings.TrimSpace(cfg.LanguageCode) == "" {
		cfg.LanguageCode = "it-IT"
	}
	return cfg
}

func configRequest(cfg Config) *speechpb.StreamingRecognizeRequest {
	recognition := &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            16000,
		AudioChannelCount:          1,
		LanguageCode:               cfg.LanguageCode,
		EnableAutomaticPunctuation: cfg.AutomaticPunctuation,
		Model:                      strings.TrimSpace(cfg.Model),
	}
	for _, phrase := range cfg.Phrases {
		text := strings.TrimSpace(phrase.Text)
		if text == "" {
			continue
		}
		recognition.SpeechContexts = append(recognition.SpeechContexts, &speechpb.SpeechContext{
			Phrases: []string{text},
			Boost:   phrase.Boost,
		})
	}

	return &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:         recognition,
				InterimResults: true,
			},
		},
	}
}

// Send forwards one PCM chunk.
func (s *Stream) Send(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.mu.Lock()
	closed := s.closedSend
	recvErr := s.recvErr
	s.mu.Unlock()

	if closed {
		return errors.New("stream already closed for sending")
	}
	if recvErr != nil {
		return fmt.Errorf("stream receive loop failed: %w", recvErr)
	}

	return s.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{AudioContent: chunk},
	})
}

// Text returns committed segments plus the pending interim hypothesis.
func (s *Stream) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(collectSegments(s.segments, s.interim), " ")
}

// Updates signals after every response that changed Text.
func (s *Stream) Updates() <-chan struct{} {
	return s.updates
}

// Done is closed when the receive side has finished.
func (s *Stream) Done() <-chan struct{} {
	return s.recvDone
}

// Err is the classified receive error once Done is closed. A nil error means
// the server ended the stream normally; ErrNoSpeech means it timed out
// waiting for audio.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recvErr
}

// CloseAndCollect half-closes the stream, waits for the final results and
// returns the transcript.
func (s *Stream) CloseAndCollect(ctx context.Context) (string, error) {
	s.mu.Lock()
	if !s.closedSend {
		s.closedSend = true
		_ = s.stream.CloseSend()
	}
	s.mu.Unlock()

	defer s.release()

	select {
	case <-s.recvDone:
	case <-ctx.Done():
		return s.Text(), ctx.Err()
	}

	err := s.Err()
	if errors.Is(err, ErrNoSpeech) {
		err = nil
	}
	return s.Text(), err
}

// Cancel aborts the call without waiting for results.
func (s *Stream) Cancel() error {
	s.mu.Lock()
	s.canceled = true
	if !s.closedSend {
		s.closedSend = true
		_ = s.stream.CloseSend()
	}
	s.mu.Unlock()
	return s.release()
}

func (s *Stream) release() error {
	s.cancel()
	return s.conn.Close()
}
