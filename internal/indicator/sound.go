package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/jfreymuth/pulse"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueSuccess
	cueError
)

const cueSampleRate = 16000

type tone struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

var cues = map[cueKind][]int16{
	cueStart: synthesizeCue([]tone{
		{frequencyHz: 880, duration: 70 * time.Millisecond, volume: 0.18},
		{frequencyHz: 1175, duration: 70 * time.Millisecond, volume: 0.18},
	}),
	cueStop: synthesizeCue([]tone{
		{frequencyHz: 620, duration: 120 * time.Millisecond, volume: 0.18},
	}),
	cueSuccess: synthesizeCue([]tone{
		{frequencyHz: 740, duration: 65 * time.Millisecond, volume: 0.18},
		{frequencyHz: 988, duration: 65 * time.Millisecond, volume: 0.18},
		{frequencyHz: 1319, duration: 110 * time.Millisecond, volume: 0.16},
	}),
	cueError: synthesizeCue([]tone{
		{frequencyHz: 480, duration: 110 * time.Millisecond, volume: 0.2},
		{frequencyHz: 320, duration: 160 * time.Millisecond, volume: 0.2},
	}),
}

func emitCue(kind cueKind) error {
	samples := cues[kind]
	if len(samples) == 0 {
		return nil
	}
	return playPCM(samples)
}

func playPCM(samples []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("segnala"),
		pulse.ClientApplicationIconName("dialog-information"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	stream, err := client.NewPlayback(
		pcmReader(samples),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("segnala cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

// pcmReader feeds samples once and then signals end of data.
func pcmReader(samples []int16) pulse.Reader {
	cursor := 0
	return pulse.Int16Reader(func(buf []int16) (int, error) {
		if cursor >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})
}

// synthesizeCue joins tones with short silent gaps.
func synthesizeCue(parts []tone) []int16 {
	gap := samplesFor(22 * time.Millisecond)
	var pcm []int16
	for i, part := range parts {
		if i > 0 {
			pcm = append(pcm, make([]int16, gap)...)
		}
		pcm = append(pcm, synthesizeTone(part)...)
	}
	return pcm
}

// synthesizeTone renders a sine with a short linear attack and release.
func synthesizeTone(t tone) []int16 {
	n := samplesFor(t.duration)
	if n <= 0 || t.frequencyHz <= 0 || t.volume <= 0 {
		return nil
	}

	ramp := min(n/10, cueSampleRate/200)
	ramp = max(ramp, 1)

	pcm := make([]int16, n)
	for i := range pcm {
		envelope := 1.0
		if i < ramp {
			envelope = float64(i) / float64(ramp)
		}
		if tail := n - i - 1; tail < ramp {
			envelope = min(envelope, float64(tail)/float64(ramp))
		}
		sample := math.Sin(2 * math.Pi * t.frequencyHz * float64(i) / cueSampleRate)
		pcm[i] = int16(math.Round(sample * t.volume * envelope * math.MaxInt16))
	}
	return pcm
}

func samplesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
