package logging

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func resetRing() {
	ringMu.Lock()
	ring = make([]string, 0, MaxLines)
	ringMu.Unlock()
}

func TestPushLineAndGetReturnsMostRecentLast(t *testing.T) {
	resetRing()
	pushLine("first")
	pushLine("second")
	pushLine("third")

	got := Get(2)
	require.Equal(t, []string{"second", "third"}, got)
}

func TestGetWithNonPositiveLimitUsesDefault(t *testing.T) {
	resetRing()
	for i := 0; i < 5; i++ {
		pushLine("line")
	}
	got := Get(0)
	require.Len(t, got, 5)
}

func TestGetClampsLimitToMaxLines(t *testing.T) {
	resetRing()
	pushLine("only")
	got := Get(MaxLines + 100)
	require.Equal(t, []string{"only"}, got)
}

func TestPushLineEvictsOldestWhenFull(t *testing.T) {
	resetRing()
	for i := 0; i < MaxLines; i++ {
		pushLine("filler")
	}
	pushLine("newest")

	ringMu.Lock()
	length := len(ring)
	last := ring[len(ring)-1]
	ringMu.Unlock()

	require.Equal(t, MaxLines, length)
	require.Equal(t, "newest", last)
}

func TestPushLineSkipsEmptyLines(t *testing.T) {
	resetRing()
	pushLine("")
	got := Get(10)
	require.Empty(t, got)
}

func TestStripANSIRemovesColorCodes(t *testing.T) {
	colored := []byte("\x1b[31mred text\x1b[0m")
	require.Equal(t, "red text", stripANSI(colored))
}

func TestStripANSIPassesThroughPlainText(t *testing.T) {
	plain := []byte("plain line with no escapes")
	require.Equal(t, string(plain), stripANSI(plain))
}

func TestRingWriterSplitsMultipleLinesPerWrite(t *testing.T) {
	resetRing()
	w := ringWriter{}
	payload := "one\ntwo\nthree\n"
	n, err := w.Write([]byte(payload))
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	got := Get(10)
	require.Equal(t, []string{"one", "two", "three"}, got)
}

func TestInitReturnsLoggerWritingThroughRing(t *testing.T) {
	resetRing()
	logger := Init(zerolog.InfoLevel)
	logger.Info().Msg("hello from init")

	got := Get(10)
	require.NotEmpty(t, got)
	found := false
	for _, line := range got {
		if strings.Contains(line, "hello from init") {
			found = true
		}
	}
	require.True(t, found)
}
