package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCuesPresent(t *testing.T) {
	for _, kind := range []cueKind{cueStart, cueStop, cueSuccess, cueError} {
		require.NotEmpty(t, cues[kind], "cue %d", kind)
	}
}

func TestSynthesizeToneDuration(t *testing.T) {
	got := synthesizeTone(tone{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0.2})
	require.Len(t, got, samplesFor(100*time.Millisecond))
	require.Zero(t, got[0])
}

func TestSynthesizeToneInvalidSpecReturnsEmpty(t *testing.T) {
	require.Empty(t, synthesizeTone(tone{frequencyHz: 0, duration: 100 * time.Millisecond, volume: 0.2}))
	require.Empty(t, synthesizeTone(tone{frequencyHz: 440, duration: 0, volume: 0.2}))
	require.Empty(t, synthesizeTone(tone{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0}))
}

func TestSynthesizeCueInsertsGaps(t *testing.T) {
	one := tone{frequencyHz: 440, duration: 10 * time.Millisecond, volume: 0.2}
	got := synthesizeCue([]tone{one, one})
	require.Len(t, got, 2*samplesFor(10*time.Millisecond)+samplesFor(22*time.Millisecond))
}
