package host

import (
	"iter"

	scmd "github.com/ehrlich-b/go-scmd"
)

// Queue labels reported by Classify
const (
	LabelAbortList = "on eh_abort_list"
	LabelCmdQ      = "on eh_cmd_q"
)

// EHStats summarizes one error handler run.
type EHStats struct {
	Aborted int // commands taken off eh_abort_list
	Retried int // re-dispatched
	Failed  int // completed with a failure by the recovery pass
	Pending int // left on eh_cmd_q because execution has not stopped
}

// CheckTimeouts moves every in-flight command whose current dispatch has
// outlived the timeout onto eh_abort_list. It returns how many moved.
func (h *Host) CheckTimeouts() int {
	now := h.clock.Now()
	moved := 0

	for _, c := range h.inFlight() {
		c.mu.Lock()
		expired := c.state == StateInFlight && now-c.dispatchedAt > c.timeout
		if !expired {
			c.mu.Unlock()
			continue
		}
		c.state = StateTimedOut
		elapsed := now - c.allocatedAt
		timeout := c.timeout
		c.mu.Unlock()

		h.lock.Lock()
		h.abortList = append(h.abortList, c)
		h.lock.Unlock()

		moved++
		h.obs.ObserveTimeout()
		h.log.CommandTimeout(c.tag, elapsed.Milliseconds(), timeout.Milliseconds())
	}
	return moved
}

// Recovering reports whether either error handling list is non-empty.
func (h *Host) Recovering() bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.abortList) > 0 || len(h.cmdQ) > 0
}

// RunErrorHandler processes the error handling lists. The abort pass takes
// every command off eh_abort_list: one whose execution has stopped is
// re-dispatched while it has retries left and otherwise marked timed out;
// both the exhausted ones and those still executing move to eh_cmd_q. The
// recovery pass then fails every command on eh_cmd_q whose execution has
// stopped and leaves the rest queued.
func (h *Host) RunErrorHandler() EHStats {
	var (
		stats    EHStats
		retry    []job
		failed   []*Cmd
		attempts []int
	)

	h.lock.Lock()
	h.log.EHStart(len(h.abortList), len(h.cmdQ))

	for _, c := range h.abortList {
		stats.Aborted++
		c.mu.Lock()
		switch {
		case c.executing:
			c.state = StateFailing
			h.cmdQ = append(h.cmdQ, c)
		case c.retries < c.allowed:
			c.retries++
			c.attempt++
			c.state = StateInFlight
			c.dispatchedAt = h.clock.Now()
			retry = append(retry, job{cmd: c, attempt: c.attempt})
			h.log.CommandRetry(c.tag, c.retries, c.allowed)
		default:
			c.state = StateFailing
			c.result = resultTimedOut
			h.cmdQ = append(h.cmdQ, c)
		}
		c.mu.Unlock()
	}
	clear(h.abortList)
	h.abortList = h.abortList[:0]

	pending := h.cmdQ[:0]
	for _, c := range h.cmdQ {
		c.mu.Lock()
		if c.executing {
			pending = append(pending, c)
		} else {
			failed = append(failed, c)
			attempts = append(attempts, c.attempt)
		}
		c.mu.Unlock()
	}
	clear(h.cmdQ[len(pending):])
	h.cmdQ = pending
	stats.Pending = len(pending)
	h.lock.Unlock()

	for _, j := range retry {
		stats.Retried++
		h.obs.ObserveRetry()
		if !h.send(j) {
			h.complete(j.cmd, j.attempt, resultAborted,
				scmd.NewTagError("EH_RETRY", h.id, j.cmd.tag, scmd.ErrCodeHostOffline, "host stopping"), 0)
		}
	}
	for i, c := range failed {
		if h.complete(c, attempts[i], resultTimedOut,
			scmd.NewTagError("EH_RECOVER", h.id, c.tag, scmd.ErrCodeTimeout, "command timed out"), 0) {
			stats.Failed++
			h.obs.ObserveEHFailure()
		}
	}

	h.log.EHDone(stats.Retried, stats.Failed)
	return stats
}

// Classify reports which error handling list holds c, if any. The lists
// are searched under the host lock, eh_abort_list first.
func (h *Host) Classify(c *Cmd) (string, bool) {
	return scmd.Classify(&h.lock, c,
		scmd.Queue[*Cmd]{Label: LabelAbortList, Entries: listEntries(&h.abortList)},
		scmd.Queue[*Cmd]{Label: LabelCmdQ, Entries: listEntries(&h.cmdQ)},
	)
}

// listEntries ranges over *list as it is when iteration starts, so the
// slice header is read under the caller's lock.
func listEntries(list *[]*Cmd) iter.Seq[*Cmd] {
	return func(yield func(*Cmd) bool) {
		for _, c := range *list {
			if !yield(c) {
				return
			}
		}
	}
}
