package scmd

import (
	"io"
	"math/bits"
	"strconv"
	"strings"
)

// Flags is the per-command attribute bitmask.
type Flags uint64

const (
	FlagTagged           Flags = 1 << 0 // command carries a queue tag
	FlagInitialized      Flags = 1 << 1 // CDB copied and counters set up
	FlagLast             Flags = 1 << 2 // last command of a submitted batch
	FlagFailIfRecovering Flags = 1 << 4 // reject instead of waiting out error recovery
)

// Has reports whether every bit of req is set.
func (f Flags) Has(req Flags) bool { return f&req == req }

// String renders f with DefaultFlagTable.
func (f Flags) String() string {
	return FlagsString(f, DefaultFlagTable)
}

// FlagTable maps bit positions to display names. It may be sparse: a
// position with no name renders as its decimal number. A FlagTable is
// immutable once built and safe for concurrent use.
type FlagTable struct {
	names []string
}

// DefaultFlagTable names the command flags a host sets. FlagFailIfRecovering
// has no name and renders as "4".
var DefaultFlagTable = NewFlagTable(map[int]string{
	bits.TrailingZeros64(uint64(FlagTagged)):      "TAGGED",
	bits.TrailingZeros64(uint64(FlagInitialized)): "INITIALIZED",
	bits.TrailingZeros64(uint64(FlagLast)):        "LAST",
})

// NewFlagTable builds a table from bit position to name. Positions outside
// [0, 64) and empty names are ignored.
func NewFlagTable(names map[int]string) *FlagTable {
	size := 0
	for bit, name := range names {
		if bit < 0 || bit >= 64 || name == "" {
			continue
		}
		if bit+1 > size {
			size = bit + 1
		}
	}
	t := &FlagTable{names: make([]string, size)}
	for bit, name := range names {
		if bit >= 0 && bit < size {
			t.names[bit] = name
		}
	}
	return t
}

// Len returns the number of bit positions the table covers.
func (t *FlagTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// Name returns the name registered for bit, if any.
func (t *FlagTable) Name(bit int) (string, bool) {
	if bit < 0 || bit >= t.Len() || t.names[bit] == "" {
		return "", false
	}
	return t.names[bit], true
}

// FormatFlags writes the set bits of flags in ascending order, separated
// by "|". Zero flags write nothing. The only error returned is the
// writer's.
func FormatFlags(w io.Writer, flags Flags, table *FlagTable) error {
	sw := sink{w: w}
	sw.flags(flags, table)
	return sw.err
}

// FlagsString is FormatFlags into a string.
func FlagsString(flags Flags, table *FlagTable) string {
	var sb strings.Builder
	_ = FormatFlags(&sb, flags, table)
	return sb.String()
}

// sink is a sequential writer that remembers its first error and drops
// everything after it.
type sink struct {
	w       io.Writer
	err     error
	scratch [24]byte
}

func (s *sink) str(v string) {
	if s.err != nil || v == "" {
		return
	}
	_, s.err = io.WriteString(s.w, v)
}

func (s *sink) bytes(v []byte) {
	if s.err != nil || len(v) == 0 {
		return
	}
	_, s.err = s.w.Write(v)
}

func (s *sink) int(v int64) {
	s.bytes(strconv.AppendInt(s.scratch[:0], v, 10))
}

func (s *sink) flags(flags Flags, table *FlagTable) {
	rest := uint64(flags)
	sep := false
	for rest != 0 {
		bit := bits.TrailingZeros64(rest)
		rest &^= 1 << bit

		if sep {
			s.str("|")
		}
		sep = true
		if name, ok := table.Name(bit); ok {
			s.str(name)
		} else {
			s.int(int64(bit))
		}
	}
}
