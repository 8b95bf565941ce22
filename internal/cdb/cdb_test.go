package cdb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scmd "github.com/ehrlich-b/go-scmd"
)

func TestFormatterNamedOpcode(t *testing.T) {
	got := String(BuildRead10(0x10, 8))
	assert.Equal(t, "Read(10) 28 00 00 00 00 10 00 00 08 00", got)
}

func TestFormatterUnnamedOpcode(t *testing.T) {
	got := String([]byte{0xc1, 0x01})
	assert.Equal(t, "opcode=0xc1 c1 01", got)
}

func TestFormatterVariableLength(t *testing.T) {
	cdb := make([]byte, 32)
	cdb[0] = VariableLength
	cdb[8], cdb[9] = 0x00, 0x0b

	got := String(cdb)
	assert.True(t, strings.HasPrefix(got, "opcode=0x7f sa=0x000b 7f"), got)
	assert.LessOrEqual(t, len(got), scmd.MaxCDBDisplay)
	assert.True(t, strings.HasSuffix(got, scmd.TruncatedMarker), got)
}

func TestFormatterEmpty(t *testing.T) {
	assert.Equal(t, scmd.UnknownCDB, String(nil))
}

func TestFormatterInCommand(t *testing.T) {
	cmd := &scmd.Command{
		Flags:   scmd.FlagInitialized,
		CDB:     BuildSyncCache10(),
		Allowed: 5,
	}
	got := scmd.CommandString(cmd, scmd.FormatOptions{CDB: Formatter{}})
	assert.Contains(t, got, ".cmd=Synchronize Cache(10) 35 00 00 00 00 00 00 00 00 00,")
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		cdb  []byte
		want Request
	}{
		{
			name: "read10",
			cdb:  BuildRead10(100, 8),
			want: Request{Opcode: Read10, Op: scmd.OpRead, LBA: 100, Blocks: 8},
		},
		{
			name: "write10",
			cdb:  BuildWrite10(7, 1),
			want: Request{Opcode: Write10, Op: scmd.OpWrite, LBA: 7, Blocks: 1},
		},
		{
			name: "read16 high lba",
			cdb:  BuildRead16(1<<40, 16),
			want: Request{Opcode: Read16, Op: scmd.OpRead, LBA: 1 << 40, Blocks: 16},
		},
		{
			name: "write16",
			cdb:  BuildWrite16(3, 2),
			want: Request{Opcode: Write16, Op: scmd.OpWrite, LBA: 3, Blocks: 2},
		},
		{
			name: "read6 zero length",
			cdb:  []byte{Read6, 0x01, 0x02, 0x03, 0x00, 0x00},
			want: Request{Opcode: Read6, Op: scmd.OpRead, LBA: 0x010203, Blocks: 256},
		},
		{
			name: "write6",
			cdb:  []byte{Write6, 0xe0, 0x00, 0x04, 0x02, 0x00},
			want: Request{Opcode: Write6, Op: scmd.OpWrite, LBA: 4, Blocks: 2},
		},
		{
			name: "sync cache",
			cdb:  BuildSyncCache10(),
			want: Request{Opcode: SynchronizeCache, Op: scmd.OpFlush},
		},
		{
			name: "write same unmap",
			cdb:  BuildWriteSame16(8, 4, true),
			want: Request{Opcode: WriteSame16, Op: scmd.OpDiscard, LBA: 8, Blocks: 4, Same: true, Unmap: true},
		},
		{
			name: "write same data",
			cdb:  BuildWriteSame16(8, 4, false),
			want: Request{Opcode: WriteSame16, Op: scmd.OpWrite, LBA: 8, Blocks: 4, Same: true},
		},
		{
			name: "test unit ready",
			cdb:  BuildTestUnitReady(),
			want: Request{Opcode: TestUnitReady, Op: scmd.OpOther},
		},
		{
			name: "inquiry",
			cdb:  BuildInquiry(96),
			want: Request{Opcode: Inquiry, Op: scmd.OpOther},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.cdb)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(nil)
	assert.True(t, scmd.IsCode(err, scmd.ErrCodeInvalidParameters))

	_, err = Decode([]byte{Read10, 0, 0})
	assert.True(t, scmd.IsCode(err, scmd.ErrCodeInvalidParameters))

	unmap := make([]byte, 10)
	unmap[0] = Unmap
	_, err = Decode(unmap)
	assert.ErrorIs(t, err, scmd.ErrCodeNotSupported)
}

func TestLen(t *testing.T) {
	assert.Equal(t, 6, Len(TestUnitReady))
	assert.Equal(t, 10, Len(Read10))
	assert.Equal(t, 10, Len(ModeSense10))
	assert.Equal(t, 16, Len(Read16))
	assert.Equal(t, 12, Len(ReportLuns))
	assert.Equal(t, 0, Len(VariableLength))
}

func TestHostResult(t *testing.T) {
	assert.Equal(t, int32(0x30000), HostResult(HostTimeOut))
	assert.Equal(t, int32(0), HostResult(HostOK))
}

func TestParseHex(t *testing.T) {
	got, err := ParseHex("28", "00", "00:00:00:10", "00-00-08", "00")
	require.NoError(t, err)
	assert.Equal(t, BuildRead10(0x10, 8), got)

	got, err = ParseHex("0x2a00000000070000 0100")
	require.NoError(t, err)
	assert.Equal(t, BuildWrite10(7, 1), got)

	_, err = ParseHex("zz")
	assert.True(t, scmd.IsCode(err, scmd.ErrCodeInvalidParameters))

	_, err = ParseHex(strings.Repeat("00", 33))
	assert.True(t, scmd.IsCode(err, scmd.ErrCodeInvalidParameters))
}
