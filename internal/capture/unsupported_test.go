package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnsupportedRefusesEverything(t *testing.T) {
	var c Capture = Unsupported{Reason: "no audio server"}

	require.ErrorIs(t, c.Supported(), ErrUnsupported)
	err := c.Start(context.Background())
	require.ErrorIs(t, err, ErrUnsupported)
	require.Contains(t, err.Error(), "no audio server")
	require.Empty(t, c.Current())
	require.Nil(t, c.Failures())

	text, err := c.Stop(context.Background())
	require.NoError(t, err)
	require.Empty(t, text)

	require.Equal(t, ErrUnsupported, Unsupported{}.Supported())
}

func TestEventKindString(t *testing.T) {
	require.Equal(t, "result", EventResult.String())
	require.Equal(t, "end", EventEnd.String())
	require.Equal(t, "EventKind(9)", EventKind(9).String())
}
