package cdb

import (
	"encoding/binary"
	"fmt"

	scmd "github.com/ehrlich-b/go-scmd"
)

// Request is the data-path meaning of a CDB.
type Request struct {
	Opcode byte
	Op     scmd.OpClass
	LBA    uint64
	Blocks uint32

	// Unmap is set for WRITE SAME with the UNMAP bit.
	Unmap bool
	// Same is set for WRITE SAME: one block of data fills the range.
	Same bool
}

const writeSameUnmapBit = 0x08

// Decode interprets cdb for execution. CDBs shorter than their opcode
// group require fail with ErrCodeInvalidParameters; opcodes a host cannot
// execute fail with ErrCodeNotSupported.
func Decode(cdb []byte) (Request, error) {
	if len(cdb) == 0 {
		return Request{}, scmd.NewError("DECODE", scmd.ErrCodeInvalidParameters, "empty cdb")
	}
	op := cdb[0]
	req := Request{Opcode: op}

	if need := Len(op); need > 0 && len(cdb) < need {
		return req, scmd.NewError("DECODE", scmd.ErrCodeInvalidParameters,
			fmt.Sprintf("cdb for opcode 0x%02x is %d bytes, need %d", op, len(cdb), need))
	}

	switch op {
	case TestUnitReady, RequestSense, Inquiry, ModeSense6, ModeSense10,
		ReadCapacity10, ReportLuns, Verify10:
		req.Op = scmd.OpOther

	case Read6, Write6:
		req.Op = scmd.OpRead
		if op == Write6 {
			req.Op = scmd.OpWrite
		}
		req.LBA = uint64(cdb[1]&0x1f)<<16 | uint64(cdb[2])<<8 | uint64(cdb[3])
		req.Blocks = uint32(cdb[4])
		if req.Blocks == 0 {
			req.Blocks = 256
		}

	case Read10, Write10, SynchronizeCache, WriteSame10:
		req.LBA = uint64(binary.BigEndian.Uint32(cdb[2:6]))
		req.Blocks = uint32(binary.BigEndian.Uint16(cdb[7:9]))
		req.Op = classify(op, cdb)
		req.Same = op == WriteSame10
		req.Unmap = req.Same && cdb[1]&writeSameUnmapBit != 0

	case Read16, Write16, SynchronizeCache16, WriteSame16:
		req.LBA = binary.BigEndian.Uint64(cdb[2:10])
		req.Blocks = binary.BigEndian.Uint32(cdb[10:14])
		req.Op = classify(op, cdb)
		req.Same = op == WriteSame16
		req.Unmap = req.Same && cdb[1]&writeSameUnmapBit != 0

	default:
		return req, scmd.NewError("DECODE", scmd.ErrCodeNotSupported,
			fmt.Sprintf("opcode 0x%02x not supported", op))
	}
	return req, nil
}

func classify(op byte, cdb []byte) scmd.OpClass {
	switch op {
	case Read10, Read16:
		return scmd.OpRead
	case SynchronizeCache, SynchronizeCache16:
		return scmd.OpFlush
	case WriteSame10, WriteSame16:
		if cdb[1]&writeSameUnmapBit != 0 {
			return scmd.OpDiscard
		}
	}
	return scmd.OpWrite
}

// Builders

// BuildTestUnitReady returns a TEST UNIT READY CDB.
func BuildTestUnitReady() []byte {
	return make([]byte, group0Len)
}

// BuildInquiry returns a standard INQUIRY CDB.
func BuildInquiry(allocLen uint16) []byte {
	b := make([]byte, group0Len)
	b[0] = Inquiry
	binary.BigEndian.PutUint16(b[3:5], allocLen)
	return b
}

// BuildRead10 returns a READ(10) CDB.
func BuildRead10(lba uint32, blocks uint16) []byte {
	return build10(Read10, 0, lba, blocks)
}

// BuildWrite10 returns a WRITE(10) CDB.
func BuildWrite10(lba uint32, blocks uint16) []byte {
	return build10(Write10, 0, lba, blocks)
}

// BuildSyncCache10 returns a SYNCHRONIZE CACHE(10) CDB covering the whole
// logical unit.
func BuildSyncCache10() []byte {
	return build10(SynchronizeCache, 0, 0, 0)
}

// BuildRead16 returns a READ(16) CDB.
func BuildRead16(lba uint64, blocks uint32) []byte {
	return build16(Read16, 0, lba, blocks)
}

// BuildWrite16 returns a WRITE(16) CDB.
func BuildWrite16(lba uint64, blocks uint32) []byte {
	return build16(Write16, 0, lba, blocks)
}

// BuildWriteSame16 returns a WRITE SAME(16) CDB, optionally with UNMAP.
func BuildWriteSame16(lba uint64, blocks uint32, unmap bool) []byte {
	var flags byte
	if unmap {
		flags = writeSameUnmapBit
	}
	return build16(WriteSame16, flags, lba, blocks)
}

func build10(op, flags byte, lba uint32, blocks uint16) []byte {
	b := make([]byte, group1Len)
	b[0], b[1] = op, flags
	binary.BigEndian.PutUint32(b[2:6], lba)
	binary.BigEndian.PutUint16(b[7:9], blocks)
	return b
}

func build16(op, flags byte, lba uint64, blocks uint32) []byte {
	b := make([]byte, group4Len)
	b[0], b[1] = op, flags
	binary.BigEndian.PutUint64(b[2:10], lba)
	binary.BigEndian.PutUint32(b[10:14], blocks)
	return b
}
