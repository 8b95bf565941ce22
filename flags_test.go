package scmd

import (
	"errors"
	"math/bits"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFlagsDefaultTable(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
		want  string
	}{
		{"zero", 0, ""},
		{"tagged", FlagTagged, "TAGGED"},
		{"initialized", FlagTagged | FlagInitialized, "TAGGED|INITIALIZED"},
		{"batch end", FlagInitialized | FlagLast, "INITIALIZED|LAST"},
		{"unnamed bit", FlagInitialized | FlagFailIfRecovering, "INITIALIZED|4"},
		{"gap inside table", 1 << 3, "3"},
		{"beyond table", FlagTagged | 1<<63, "TAGGED|63"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlagsString(tt.flags, DefaultFlagTable))
		})
	}
}

func TestFlagsStringer(t *testing.T) {
	assert.Equal(t, "TAGGED|INITIALIZED|LAST", (FlagTagged | FlagInitialized | FlagLast).String())
}

func TestFormatFlagsTokenProperties(t *testing.T) {
	table := NewFlagTable(map[int]string{0: "A", 5: "F", 9: "J"})
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		f := Flags(rng.Uint64() >> uint(rng.Intn(64)))
		out := FlagsString(f, table)

		if f == 0 {
			require.Empty(t, out)
			continue
		}
		tokens := strings.Split(out, "|")
		require.Len(t, tokens, bits.OnesCount64(uint64(f)), "flags=%#x out=%q", uint64(f), out)

		prev := -1
		for _, tok := range tokens {
			pos := tokenPosition(t, table, tok)
			require.Greater(t, pos, prev, "tokens out of order in %q", out)
			require.NotZero(t, f&(1<<uint(pos)), "token %q for unset bit", tok)
			if pos >= table.Len() {
				require.Equal(t, strconv.Itoa(pos), tok)
			}
			prev = pos
		}
	}
}

func tokenPosition(t *testing.T, table *FlagTable, tok string) int {
	t.Helper()
	for bit := 0; bit < table.Len(); bit++ {
		if name, ok := table.Name(bit); ok && name == tok {
			return bit
		}
	}
	pos, err := strconv.Atoi(tok)
	require.NoError(t, err, "token %q is neither a name nor a position", tok)
	return pos
}

func TestFormatFlagsZeroForAnyTable(t *testing.T) {
	for _, table := range []*FlagTable{nil, NewFlagTable(nil), DefaultFlagTable} {
		assert.Empty(t, FlagsString(0, table))
	}
}

func TestFormatFlagsNilTable(t *testing.T) {
	assert.Equal(t, "0|1|2", FlagsString(FlagTagged|FlagInitialized|FlagLast, nil))
}

func TestNewFlagTable(t *testing.T) {
	table := NewFlagTable(map[int]string{
		-1: "NEGATIVE",
		3:  "D",
		64: "OVERFLOW",
		7:  "",
	})

	assert.Equal(t, 4, table.Len())
	name, ok := table.Name(3)
	assert.True(t, ok)
	assert.Equal(t, "D", name)

	_, ok = table.Name(0)
	assert.False(t, ok)
	_, ok = table.Name(7)
	assert.False(t, ok)
	_, ok = table.Name(-1)
	assert.False(t, ok)
}

type failingWriter struct {
	failAfter int
	writes    int
}

var errSinkClosed = errors.New("sink closed")

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.writes >= w.failAfter {
		w.writes++
		return 0, errSinkClosed
	}
	w.writes++
	return len(p), nil
}

func TestFormatFlagsWriterError(t *testing.T) {
	w := &failingWriter{failAfter: 1}
	err := FormatFlags(w, FlagTagged|FlagInitialized|FlagLast, DefaultFlagTable)

	require.ErrorIs(t, err, errSinkClosed)
	assert.Equal(t, 2, w.writes, "writes should stop after the first failure")
}
