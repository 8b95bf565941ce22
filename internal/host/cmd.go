package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	scmd "github.com/ehrlich-b/go-scmd"
	"github.com/ehrlich-b/go-scmd/internal/cdb"
	"github.com/ehrlich-b/go-scmd/internal/constants"
)

// State is where a command sits in the host's lifecycle
type State int

const (
	StateFree     State = iota // tag unallocated
	StateInFlight              // dispatched, owned by a worker or queued for one
	StateTimedOut              // on eh_abort_list
	StateFailing               // on eh_cmd_q, waiting for execution to stop
	StateComplete              // result final, tag released
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateInFlight:
		return "in-flight"
	case StateTimedOut:
		return "timed-out"
	case StateFailing:
		return "failing"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result values
var (
	resultGood           int32 = cdb.StatusGood
	resultCheckCondition int32 = cdb.StatusCheckCondition
	resultError                = cdb.HostResult(cdb.HostError)
	resultTimedOut             = cdb.HostResult(cdb.HostTimeOut)
	resultAborted              = cdb.HostResult(cdb.HostAborted)
)

// Request is one command to submit.
type Request struct {
	CDB []byte

	// Data is the write payload, or the destination for data-in commands.
	// Write payloads are copied at submission; reads are copied in only
	// when the command completes successfully.
	Data []byte

	// FailIfRecovering rejects the command while the error handler has
	// work pending instead of queueing behind it.
	FailIfRecovering bool
}

// Cmd is one allocated command. Its fields are guarded by mu; a Cmd is
// never reused after completion.
type Cmd struct {
	tag uint16

	mu     sync.Mutex
	state  State
	flags  scmd.Flags
	cdb    [constants.MaxCDBSize]byte
	cdbLen int

	req       cdb.Request
	decodeErr error
	data      []byte // pooled bounce buffer
	readDst   []byte

	retries int
	allowed int
	result  int32
	err     error

	allocatedAt  time.Duration
	dispatchedAt time.Duration
	timeout      time.Duration
	attempt      int
	executing    bool

	done chan struct{}
}

// Tag returns the queue tag the command holds.
func (c *Cmd) Tag() uint16 { return c.tag }

// State returns the command's lifecycle state.
func (c *Cmd) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Retries returns how many times the error handler re-dispatched the command.
func (c *Cmd) Retries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retries
}

// Done is closed when the command completes.
func (c *Cmd) Done() <-chan struct{} { return c.done }

// Result returns the final result and error. It is only meaningful once
// Done is closed.
func (c *Cmd) Result() (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.err
}

// Submit allocates a tag for req and dispatches it.
func (h *Host) Submit(req Request) (*Cmd, error) {
	cmds, err := h.SubmitBatch([]Request{req})
	if err != nil {
		return nil, err
	}
	return cmds[0], nil
}

// SubmitBatch allocates tags for every request and dispatches them in
// order. The final command carries FlagLast. Either every request gets a
// tag or none does.
func (h *Host) SubmitBatch(reqs []Request) ([]*Cmd, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	if h.isClosed() {
		return nil, scmd.NewHostError("SUBMIT", h.id, scmd.ErrCodeHostOffline, "host closed")
	}

	cmds := make([]*Cmd, len(reqs))
	for i, req := range reqs {
		c, err := h.prepare(req)
		if err != nil {
			for _, p := range cmds[:i] {
				putBuffer(p.data)
			}
			return nil, err
		}
		cmds[i] = c
	}

	if h.Recovering() {
		for _, req := range reqs {
			if req.FailIfRecovering {
				for _, c := range cmds {
					putBuffer(c.data)
				}
				return nil, scmd.NewHostError("SUBMIT", h.id, scmd.ErrCodeRecovering,
					"error handler active and request may not wait")
			}
		}
	}

	if err := h.allocate(cmds); err != nil {
		for _, c := range cmds {
			putBuffer(c.data)
		}
		return nil, err
	}

	now := h.clock.Now()
	for i, c := range cmds {
		c.mu.Lock()
		c.allocatedAt = now
		c.dispatchedAt = now
		c.state = StateInFlight
		c.flags |= scmd.FlagInitialized
		if i == len(cmds)-1 {
			c.flags |= scmd.FlagLast
		}
		c.mu.Unlock()
	}

	h.obs.ObserveQueueDepth(uint32(h.Busy()))
	for _, c := range cmds {
		if !h.send(job{cmd: c}) {
			h.complete(c, -1, resultAborted,
				scmd.NewTagError("SUBMIT", h.id, c.tag, scmd.ErrCodeHostOffline, "host stopping"), 0)
		}
	}
	return cmds, nil
}

// prepare validates req and builds an unallocated command for it.
func (h *Host) prepare(req Request) (*Cmd, error) {
	if len(req.CDB) == 0 {
		return nil, scmd.NewHostError("SUBMIT", h.id, scmd.ErrCodeInvalidParameters, "empty cdb")
	}
	if len(req.CDB) > constants.MaxCDBSize {
		return nil, scmd.NewHostError("SUBMIT", h.id, scmd.ErrCodeInvalidParameters,
			fmt.Sprintf("cdb of %d bytes exceeds %d", len(req.CDB), constants.MaxCDBSize))
	}

	c := &Cmd{
		allowed: h.cfg.Allowed,
		timeout: h.cfg.Timeout,
		done:    make(chan struct{}),
	}
	c.cdbLen = copy(c.cdb[:], req.CDB)
	if h.cfg.Tagged {
		c.flags |= scmd.FlagTagged
	}
	if req.FailIfRecovering {
		c.flags |= scmd.FlagFailIfRecovering
	}

	c.req, c.decodeErr = cdb.Decode(req.CDB)
	if c.decodeErr != nil {
		// Executed as CHECK CONDITION so the command is still visible while queued.
		return c, nil
	}

	n := h.transferLen(c.req)
	switch c.req.Op {
	case scmd.OpWrite:
		if len(req.Data) < n {
			return nil, scmd.NewHostError("SUBMIT", h.id, scmd.ErrCodeInvalidParameters,
				fmt.Sprintf("write needs %d bytes of data, have %d", n, len(req.Data)))
		}
		c.data = getBuffer(n)
		copy(c.data, req.Data)
	case scmd.OpRead:
		c.readDst = req.Data
	case scmd.OpOther:
		c.readDst = req.Data
	}
	return c, nil
}

// transferLen is the data buffer a request moves. WRITE SAME carries a
// single block.
func (h *Host) transferLen(r cdb.Request) int {
	switch {
	case r.Op == scmd.OpRead:
		return int(r.Blocks) * h.cfg.BlockSize
	case r.Op == scmd.OpWrite && r.Same:
		return h.cfg.BlockSize
	case r.Op == scmd.OpWrite:
		return int(r.Blocks) * h.cfg.BlockSize
	}
	return 0
}

// allocate assigns the lowest free tags to cmds.
func (h *Host) allocate(cmds []*Cmd) error {
	h.slotMu.Lock()
	defer h.slotMu.Unlock()

	if len(h.slots)-h.busy < len(cmds) {
		return scmd.NewHostError("SUBMIT", h.id, scmd.ErrCodeQueueFull,
			fmt.Sprintf("%d tags requested, %d free", len(cmds), len(h.slots)-h.busy))
	}
	next := 0
	for _, c := range cmds {
		for h.slots[next] != nil {
			next++
		}
		c.tag = uint16(next)
		h.slots[next] = c
		h.busy++
	}
	return nil
}

// release frees c's tag.
func (h *Host) release(c *Cmd) {
	h.slotMu.Lock()
	defer h.slotMu.Unlock()
	if h.slots[c.tag] == c {
		h.slots[c.tag] = nil
		h.busy--
	}
}

// Wait blocks until c completes or ctx is done.
func (h *Host) Wait(ctx context.Context, c *Cmd) (int32, error) {
	select {
	case <-c.done:
		return c.Result()
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// complete finalizes c. attempt must match the command's current dispatch
// unless it is -1. It reports whether this call completed the command.
func (h *Host) complete(c *Cmd, attempt int, result int32, err error, bytes uint64) bool {
	c.mu.Lock()
	if c.state == StateComplete || (attempt >= 0 && attempt != c.attempt) {
		c.mu.Unlock()
		return false
	}
	c.state = StateComplete
	c.result = result
	c.err = err
	op := c.req.Op
	latency := h.clock.Now() - c.allocatedAt
	buf := c.data
	c.data = nil
	c.mu.Unlock()

	h.release(c)
	putBuffer(buf)

	if latency < 0 {
		latency = 0
	}
	h.obs.ObserveCommand(op, bytes, uint64(latency.Nanoseconds()), result == resultGood)
	if result != resultGood {
		h.log.CommandFailed(c.tag, result, err)
	}
	close(c.done)
	return true
}
