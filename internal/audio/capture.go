package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	// SampleRate is the capture rate sent to the recognizer.
	SampleRate = 16000
	// ChunkBytes is 20ms of 16 kHz mono s16.
	ChunkBytes = 640
)

// Recorder streams fixed-size PCM chunks from one Pulse source.
type Recorder struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	chunks chan []byte
	done   chan struct{}

	mu      sync.Mutex
	pending []byte
	pcm     []byte
	keepPCM bool
	stopped bool

	writers sync.WaitGroup
	total   atomic.Int64
}

// Record opens a 16 kHz mono s16 stream on device. When keepPCM is set the
// raw audio is retained for debug dumps.
func Record(ctx context.Context, device Device, keepPCM bool) (*Recorder, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", device.ID, err)
	}

	r := &Recorder{
		device:  device,
		client:  client,
		chunks:  make(chan []byte, 128),
		done:    make(chan struct{}),
		keepPCM: keepPCM,
	}

	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(r.write), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(ChunkBytes),
		pulse.RecordMediaName("segnala report"),
	)
	if err != nil {
		_ = r.Stop()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	r.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = r.Stop()
		case <-r.done:
		}
	}()

	return r, nil
}

// Device returns the source being recorded.
func (r *Recorder) Device() Device {
	return r.device
}

// Chunks yields PCM until Stop; the channel is closed exactly once.
func (r *Recorder) Chunks() <-chan []byte {
	return r.chunks
}

// BytesCaptured reports how many PCM bytes Pulse delivered.
func (r *Recorder) BytesCaptured() int64 {
	return r.total.Load()
}

// PCM returns a copy of the retained audio.
func (r *Recorder) PCM() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.pcm...)
}

// Stop releases the microphone, flushes the partial chunk and closes Chunks.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	close(r.done)
	r.mu.Unlock()

	if r.stream != nil {
		r.stream.Stop()
		r.stream.Close()
	}
	if r.client != nil {
		r.client.Close()
	}

	r.writers.Wait()

	r.mu.Lock()
	tail := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(tail) > 0 {
		select {
		case r.chunks <- tail:
		default:
		}
	}
	close(r.chunks)
	return nil
}

func (r *Recorder) write(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return 0, io.EOF
	}
	// Add under mu so Stop cannot Wait between the check and the Add.
	r.writers.Add(1)
	defer r.writers.Done()

	if r.keepPCM {
		r.pcm = append(r.pcm, buffer...)
	}
	r.pending = append(r.pending, buffer...)
	var ready [][]byte
	for len(r.pending) >= ChunkBytes {
		chunk := make([]byte, ChunkBytes)
		copy(chunk, r.pending[:ChunkBytes])
		r.pending = r.pending[ChunkBytes:]
		ready = append(ready, chunk)
	}
	r.mu.Unlock()

	r.total.Add(int64(len(buffer)))

	for _, chunk := range ready {
		select {
		case <-r.done:
			return 0, io.EOF
		case r.chunks <- chunk:
		}
	}
	return len(buffer), nil
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
