package host

import (
	"encoding/binary"
	"fmt"

	scmd "github.com/ehrlich-b/go-scmd"
	"github.com/ehrlich-b/go-scmd/internal/cdb"
	"github.com/ehrlich-b/go-scmd/internal/interfaces"
)

// Identification returned for INQUIRY
const (
	inquiryVendor  = "SCMD    "
	inquiryProduct = "MEMDISK         "
	inquiryRev     = "0001"
	inquiryLen     = 36
)

// execute runs one dispatch of a command against the backend.
func (h *Host) execute(j job) {
	c := j.cmd

	c.mu.Lock()
	if c.state != StateInFlight || c.attempt != j.attempt {
		// Timed out before a worker got to it; the error handler owns it.
		c.mu.Unlock()
		return
	}
	c.executing = true
	req := c.req
	decodeErr := c.decodeErr
	buf := c.data
	c.mu.Unlock()

	var (
		result int32
		err    error
		n      int
	)
	if decodeErr == nil {
		decodeErr = h.checkRange(c.tag, req)
	}
	if decodeErr != nil {
		result, err = resultCheckCondition, decodeErr
	} else {
		switch req.Op {
		case scmd.OpRead:
			buf = getBuffer(h.transferLen(req))
		case scmd.OpOther:
			buf = getBuffer(inquiryLen)
		}
		result, n, err = h.run(c.tag, req, buf)
	}

	c.mu.Lock()
	c.executing = false
	current := c.state == StateInFlight && c.attempt == j.attempt
	if current && result == resultGood && (req.Op == scmd.OpRead || req.Op == scmd.OpOther) {
		copy(c.readDst, buf[:n])
	}
	c.mu.Unlock()

	if buf != nil && req.Op != scmd.OpWrite {
		putBuffer(buf)
	}
	if !current {
		h.log.Debug("execution finished after timeout", "tag", c.tag, "attempt", j.attempt)
		return
	}
	h.complete(c, j.attempt, result, err, uint64(n))
}

// checkRange rejects data commands that reach past the end of the
// backend. It runs before any buffer is sized from the CDB.
func (h *Host) checkRange(tag uint16, req cdb.Request) error {
	if req.Op == scmd.OpOther || req.Op == scmd.OpFlush {
		return nil
	}
	blocks := uint64(h.cfg.Backend.Size()) / uint64(h.cfg.BlockSize)
	if req.LBA > blocks || uint64(req.Blocks) > blocks-req.LBA {
		return scmd.NewTagError("EXECUTE", h.id, tag, scmd.ErrCodeInvalidParameters,
			fmt.Sprintf("lba %d+%d out of range (%d blocks)", req.LBA, req.Blocks, blocks))
	}
	return nil
}

// run executes a range-checked req. It returns the result, the bytes moved
// and the error behind a non-good result.
func (h *Host) run(tag uint16, req cdb.Request, buf []byte) (int32, int, error) {
	bs := int64(h.cfg.BlockSize)
	be := h.cfg.Backend
	off := int64(req.LBA) * bs
	length := int64(req.Blocks) * bs

	var err error
	var n int
	switch req.Op {
	case scmd.OpRead:
		n, err = be.ReadAt(buf, off)
	case scmd.OpWrite:
		if req.Same {
			n, err = h.writeSame(buf, off, length)
		} else {
			n, err = be.WriteAt(buf, off)
		}
	case scmd.OpFlush:
		err = be.Flush()
	case scmd.OpDiscard:
		db, ok := be.(interfaces.DiscardBackend)
		if !ok {
			return resultCheckCondition, 0, scmd.NewTagError("EXECUTE", h.id, tag,
				scmd.ErrCodeNotSupported, "backend cannot discard")
		}
		err = db.Discard(off, length)
		if err == nil {
			n = int(length)
		}
	default:
		return resultGood, h.runNonData(req, buf), nil
	}

	if err != nil {
		return resultError, n, scmd.WrapError("EXECUTE", err)
	}
	return resultGood, n, nil
}

// runNonData answers commands that never touch the backend's data. It
// fills buf with any response and returns its length.
func (h *Host) runNonData(req cdb.Request, buf []byte) int {
	switch req.Opcode {
	case cdb.Inquiry:
		clear(buf[:inquiryLen])
		buf[2] = 0x05 // SPC-3
		buf[3] = 0x02
		buf[4] = inquiryLen - 5
		copy(buf[8:16], inquiryVendor)
		copy(buf[16:32], inquiryProduct)
		copy(buf[32:36], inquiryRev)
		return inquiryLen
	case cdb.ReadCapacity10:
		blocks := h.cfg.Backend.Size() / int64(h.cfg.BlockSize)
		last := uint32(0xffffffff)
		if blocks > 0 && blocks-1 < int64(last) {
			last = uint32(blocks - 1)
		}
		binary.BigEndian.PutUint32(buf[0:4], last)
		binary.BigEndian.PutUint32(buf[4:8], uint32(h.cfg.BlockSize))
		return 8
	}
	return 0
}

// writeSame replicates one block across [off, off+length). All-zero
// blocks go to WriteZeroes when the backend has it.
func (h *Host) writeSame(block []byte, off, length int64) (int, error) {
	be := h.cfg.Backend
	if isZero(block) {
		if wz, ok := be.(interfaces.WriteZeroesBackend); ok {
			if err := wz.WriteZeroes(off, length); err != nil {
				return 0, err
			}
			return int(length), nil
		}
	}
	written := 0
	for pos := off; pos < off+length; pos += int64(len(block)) {
		n, err := be.WriteAt(block, pos)
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
