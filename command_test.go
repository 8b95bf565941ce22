package scmd

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labelled(label string) Classifier {
	return ClassifierFunc(func() (string, bool) { return label, true })
}

func TestFormatCommandInitialized(t *testing.T) {
	cmd := &Command{
		Flags:       FlagTagged | FlagInitialized,
		CDB:         []byte{0x28, 0, 0, 0, 0, 0x08, 0, 0, 0x08, 0},
		Retries:     2,
		Allowed:     3,
		Result:      0x2,
		AllocatedAt: 10 * time.Second,
		Timeout:     30500 * time.Millisecond,
	}

	out := CommandString(cmd, FormatOptions{
		Classifier: labelled("on eh_abort_list"),
		Now:        10*time.Second + 2004*time.Millisecond,
	})

	want := ", .cmd=opcode=0x28 28 00 00 00 00 08 00 00 08 00" +
		", .retries=2, .allowed=3, .result = 0x2, on eh_abort_list" +
		", .timeout=30.500, allocated 2.004 s ago" +
		", .flags=TAGGED|INITIALIZED"
	assert.Equal(t, want, out)

	assert.Contains(t, out, ".retries=2")
	assert.Contains(t, out, ".allowed=3")
	assert.Contains(t, out, ".result = 0x2")
	assert.Contains(t, out, "on eh_abort_list")
}

func TestFormatCommandNotInitialized(t *testing.T) {
	classified := false
	cmd := &Command{
		Flags:   FlagTagged,
		CDB:     []byte{0x00, 0, 0, 0, 0, 0},
		Retries: 1,
		Allowed: 5,
		Result:  0x30000,
		Timeout: time.Second,
	}

	out := CommandString(cmd, FormatOptions{
		Classifier: ClassifierFunc(func() (string, bool) {
			classified = true
			return "on eh_cmd_q", true
		}),
	})

	assert.Equal(t, ", .flags=TAGGED", out)
	for _, field := range []string{".cmd=", ".retries=", ".allowed=", ".result", ".timeout=", "allocated"} {
		assert.NotContains(t, out, field)
	}
	assert.False(t, classified, "uninitialized commands are not classified")
}

func TestFormatCommandNoFlags(t *testing.T) {
	assert.Equal(t, ", .flags=", CommandString(&Command{}, FormatOptions{}))
}

func TestFormatCommandNoClassification(t *testing.T) {
	cmd := &Command{Flags: FlagInitialized, CDB: []byte{0x00, 0, 0, 0, 0, 0}}
	out := CommandString(cmd, FormatOptions{
		Classifier: ClassifierFunc(func() (string, bool) { return "", false }),
	})
	assert.Equal(t, ", .cmd=opcode=0x00 00 00 00 00 00 00, .retries=0, .allowed=0, .result = 0"+
		", .timeout=0.000, allocated 0.000 s ago, .flags=INITIALIZED", out)
}

func TestFormatCommandResultHex(t *testing.T) {
	tests := []struct {
		result int32
		want   string
	}{
		{0, ".result = 0,"},
		{0x2, ".result = 0x2,"},
		{0x30000, ".result = 0x30000,"},
		{-5, ".result = 0xfffffffb,"},
	}

	for _, tt := range tests {
		cmd := &Command{Flags: FlagInitialized, Result: tt.result}
		assert.Contains(t, CommandString(cmd, FormatOptions{}), tt.want)
	}
}

func TestFormatCommandDurations(t *testing.T) {
	tests := []struct {
		name    string
		alloc   time.Duration
		now     time.Duration
		timeout time.Duration
		want    string
	}{
		{"sub-second", 0, 7 * time.Millisecond, 999 * time.Millisecond, ".timeout=0.999, allocated 0.007 s ago"},
		{"whole seconds", time.Second, 3 * time.Second, 30 * time.Second, ".timeout=30.000, allocated 2.000 s ago"},
		{"sub-millisecond truncates", 0, 1500 * time.Microsecond, 1999999 * time.Microsecond, ".timeout=1.999, allocated 0.001 s ago"},
		{"clock behind allocation", 5 * time.Second, time.Second, time.Minute, ".timeout=60.000, allocated 0.000 s ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &Command{Flags: FlagInitialized, AllocatedAt: tt.alloc, Timeout: tt.timeout}
			assert.Contains(t, CommandString(cmd, FormatOptions{Now: tt.now}), tt.want)
		})
	}
}

func TestFormatCommandIdempotent(t *testing.T) {
	cmd := &Command{
		Flags:       FlagTagged | FlagInitialized | FlagLast | FlagFailIfRecovering,
		CDB:         []byte{0x35, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		Retries:     1,
		Allowed:     5,
		AllocatedAt: time.Second,
		Timeout:     30 * time.Second,
	}
	opts := FormatOptions{Classifier: labelled("on eh_cmd_q"), Now: 4 * time.Second}

	first := CommandString(cmd, opts)
	second := CommandString(cmd, opts)
	assert.Equal(t, first, second)
	assert.True(t, strings.HasSuffix(first, ".flags=TAGGED|INITIALIZED|LAST|4"))
}

func TestFormatCommandDoesNotMutate(t *testing.T) {
	cdb := []byte{0x2a, 0, 0, 0, 0x10, 0, 0, 0, 0x01, 0}
	cmd := &Command{Flags: FlagInitialized, CDB: cdb, Retries: 1, Allowed: 2}
	before := *cmd
	beforeCDB := append([]byte(nil), cdb...)

	_ = CommandString(cmd, FormatOptions{})

	assert.Equal(t, before.Flags, cmd.Flags)
	assert.Equal(t, before.Retries, cmd.Retries)
	assert.Equal(t, beforeCDB, cmd.CDB)
}

func TestFormatCommandTruncatesCDB(t *testing.T) {
	cdb := make([]byte, 32)
	for i := range cdb {
		cdb[i] = byte(i)
	}
	cmd := &Command{Flags: FlagInitialized, CDB: cdb}
	out := CommandString(cmd, FormatOptions{})

	start := strings.Index(out, ".cmd=") + len(".cmd=")
	end := strings.Index(out, ", .retries=")
	text := out[start:end]

	assert.LessOrEqual(t, len(text), MaxCDBDisplay)
	assert.True(t, strings.HasSuffix(text, TruncatedMarker), "got %q", text)
	assert.True(t, strings.HasPrefix(text, "opcode=0x00 00 01 02"))
}

func TestFormatCommandEmptyCDB(t *testing.T) {
	cmd := &Command{Flags: FlagInitialized}
	assert.Contains(t, CommandString(cmd, FormatOptions{}), ".cmd=(?),")
}

func TestFormatCommandClampsMisbehavingFormatter(t *testing.T) {
	greedy := CDBFormatterFunc(func(dst, cdb []byte) []byte {
		return append(dst, strings.Repeat("x", 200)...)
	})
	cmd := &Command{Flags: FlagInitialized, CDB: []byte{0}}
	out := CommandString(cmd, FormatOptions{CDB: greedy})

	want := ".cmd=" + strings.Repeat("x", MaxCDBDisplay-len(TruncatedMarker)) + TruncatedMarker + ","
	assert.Contains(t, out, want)
}

func TestFormatCommandCustomTable(t *testing.T) {
	table := NewFlagTable(map[int]string{1: "READY"})
	cmd := &Command{Flags: FlagTagged | FlagInitialized}
	out := CommandString(cmd, FormatOptions{Table: table})
	assert.True(t, strings.HasSuffix(out, ".flags=0|READY"))
}

func TestFormatCommandWriterError(t *testing.T) {
	w := &failingWriter{failAfter: 2}
	cmd := &Command{Flags: FlagInitialized, CDB: []byte{0}}
	err := FormatCommand(w, cmd, FormatOptions{})

	require.ErrorIs(t, err, errSinkClosed)
	assert.Equal(t, 3, w.writes)
}

func TestCommandElapsed(t *testing.T) {
	cmd := &Command{AllocatedAt: 2 * time.Second}
	assert.Equal(t, time.Second, cmd.Elapsed(3*time.Second))
	assert.Zero(t, cmd.Elapsed(time.Second))
}

func TestFormatAllocationsBounded(t *testing.T) {
	cmd := &Command{
		Flags:       FlagInitialized,
		CDB:         []byte{0x28, 0, 0, 0, 0, 0x08, 0, 0, 0x08, 0},
		Retries:     1,
		Allowed:     5,
		Result:      0x30000,
		AllocatedAt: time.Second,
		Timeout:     30 * time.Second,
	}
	opts := FormatOptions{Now: 3 * time.Second}

	few := testing.AllocsPerRun(100, func() {
		_ = FormatCommand(io.Discard, cmd, opts)
	})
	cmd.Flags = ^Flags(0)
	all := testing.AllocsPerRun(100, func() {
		_ = FormatCommand(io.Discard, cmd, opts)
	})
	assert.LessOrEqual(t, few, 1.0)
	assert.Equal(t, few, all, "allocations must not grow with the number of flags")

	flagsOnly := testing.AllocsPerRun(100, func() {
		_ = FormatFlags(io.Discard, ^Flags(0), DefaultFlagTable)
	})
	assert.LessOrEqual(t, flagsOnly, 1.0)
}
