// Package scmd renders the status of in-flight storage commands: flags,
// CDB, retry counters, result, error handling queue and age. Output is
// written straight to an io.Writer through one fixed-size scratch area per
// call, so allocation does not grow with the number of fields or flags.
package scmd

import (
	"io"
	"strings"
	"time"

	"github.com/ehrlich-b/go-scmd/internal/constants"
)

// Command is a point-in-time view of one in-flight command. It is borrowed
// for the duration of a single FormatCommand call and never retained.
type Command struct {
	Flags   Flags
	CDB     []byte
	Retries int
	Allowed int
	Result  int32

	// AllocatedAt is the monotonic clock reading taken when the command's
	// tag was allocated.
	AllocatedAt time.Duration
	Timeout     time.Duration
}

// Elapsed returns the time since allocation as seen at now. A reading older
// than the allocation (a snapshot racing a reallocation) yields zero.
func (c *Command) Elapsed(now time.Duration) time.Duration {
	if now < c.AllocatedAt {
		return 0
	}
	return now - c.AllocatedAt
}

// CDBFormatter renders a command descriptor block for display. AppendCDB
// appends to dst, which has room for CDBDisplayBuffer bytes, and must
// not grow it past MaxCDBDisplay.
type CDBFormatter interface {
	AppendCDB(dst []byte, cdb []byte) []byte
}

// CDBFormatterFunc adapts a function to CDBFormatter.
type CDBFormatterFunc func(dst, cdb []byte) []byte

func (f CDBFormatterFunc) AppendCDB(dst, cdb []byte) []byte { return f(dst, cdb) }

// HexCDB renders "opcode=0xNN" followed by every byte as " %02x".
var HexCDB CDBFormatter = CDBFormatterFunc(func(dst, cdb []byte) []byte {
	if len(cdb) == 0 {
		return append(dst, UnknownCDB...)
	}
	dst = append(dst, "opcode=0x"...)
	dst = append(dst, hexDigits[cdb[0]>>4], hexDigits[cdb[0]&0xf])
	return AppendCDBBytes(dst, cdb)
})

// UnknownCDB is rendered for a command without a CDB.
const UnknownCDB = "(?)"

// TruncatedMarker terminates a CDB rendering that did not fit.
const TruncatedMarker = "..."

const hexDigits = "0123456789abcdef"

// AppendCDBBytes appends " %02x" for each byte of cdb, stopping at
// MaxCDBDisplay. A rendering cut short ends in TruncatedMarker.
func AppendCDBBytes(dst, cdb []byte) []byte {
	for _, b := range cdb {
		if len(dst)+3 > constants.MaxCDBDisplay {
			return Truncate(dst)
		}
		dst = append(dst, ' ', hexDigits[b>>4], hexDigits[b&0xf])
	}
	return dst
}

// Truncate ends text with TruncatedMarker, cutting it so the result fits
// in MaxCDBDisplay.
func Truncate(text []byte) []byte {
	limit := constants.MaxCDBDisplay - len(TruncatedMarker)
	if len(text) > limit {
		text = text[:limit]
	}
	return append(text, TruncatedMarker...)
}

// FormatOptions supplies the collaborators FormatCommand needs.
type FormatOptions struct {
	// Table names flag bits. Nil means DefaultFlagTable.
	Table *FlagTable

	// Classifier reports shared-queue membership. Nil means none.
	Classifier Classifier

	// CDB renders the command bytes. Nil means HexCDB.
	CDB CDBFormatter

	// Now is the monotonic clock reading the elapsed time is measured to.
	Now time.Duration
}

// FormatCommand writes the status of cmd to w. Initialized commands get
// their CDB, retry counters, result, optional queue classification,
// timeout and age; every command gets its flags:
//
//	, .cmd=Read(10) 28 00 00 00 00 08 00 00 08 00, .retries=0, .allowed=5, .result = 0, .timeout=30.000, allocated 0.012 s ago, .flags=TAGGED|INITIALIZED
//
// The classifier runs before anything is written. The only error returned
// is the writer's.
func FormatCommand(w io.Writer, cmd *Command, opts FormatOptions) error {
	table := opts.Table
	if table == nil {
		table = DefaultFlagTable
	}
	// One value holds both scratch areas so the call allocates at most once.
	var f struct {
		sink
		cdb [constants.CDBDisplayBuffer]byte
	}
	f.w = w
	s := &f.sink

	if cmd.Flags.Has(FlagInitialized) {
		var label string
		var classified bool
		if opts.Classifier != nil {
			label, classified = opts.Classifier.Classify()
		}

		cdbFmt := opts.CDB
		if cdbFmt == nil {
			cdbFmt = HexCDB
		}
		text := cdbFmt.AppendCDB(f.cdb[:0], cmd.CDB)
		if len(text) > constants.MaxCDBDisplay {
			text = Truncate(text)
		}

		s.str(", .cmd=")
		s.bytes(text)
		s.str(", .retries=")
		s.int(int64(cmd.Retries))
		s.str(", .allowed=")
		s.int(int64(cmd.Allowed))
		s.str(", .result = ")
		s.hex(uint32(cmd.Result))
		if classified {
			s.str(", ")
			s.str(label)
		}
		s.str(", .timeout=")
		s.millis(cmd.Timeout)
		s.str(", allocated ")
		s.millis(cmd.Elapsed(opts.Now))
		s.str(" s ago")
	}

	s.str(", .flags=")
	s.flags(cmd.Flags, table)
	return s.err
}

// CommandString is FormatCommand into a string.
func CommandString(cmd *Command, opts FormatOptions) string {
	var sb strings.Builder
	_ = FormatCommand(&sb, cmd, opts)
	return sb.String()
}

// hex writes v the way C's "%#x" does: "0" for zero, "0x..." otherwise.
func (s *sink) hex(v uint32) {
	if v == 0 {
		s.str("0")
		return
	}
	b := append(s.scratch[:0], '0', 'x')
	started := false
	for shift := 28; shift >= 0; shift -= 4 {
		nib := (v >> uint(shift)) & 0xf
		if nib == 0 && !started {
			continue
		}
		started = true
		b = append(b, hexDigits[nib])
	}
	s.bytes(b)
}

// millis writes d as seconds with millisecond precision ("30.500").
// Negative durations render as "0.000".
func (s *sink) millis(d time.Duration) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	s.int(ms / 1000)
	frac := ms % 1000
	b := append(s.scratch[:0], '.', byte('0'+frac/100), byte('0'+frac/10%10), byte('0'+frac%10))
	s.bytes(b)
}
