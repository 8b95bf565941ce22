package host

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	scmd "github.com/ehrlich-b/go-scmd"
	"github.com/ehrlich-b/go-scmd/internal/cdb"
	"github.com/ehrlich-b/go-scmd/internal/constants"
	"github.com/ehrlich-b/go-scmd/internal/debugfs"
)

var opNames = [...]string{
	scmd.OpOther:   "OTHER",
	scmd.OpRead:    "READ",
	scmd.OpWrite:   "WRITE",
	scmd.OpFlush:   "FLUSH",
	scmd.OpDiscard: "DISCARD",
}

// snapshotInto copies c's status under its lock. The CDB is copied into
// buf so the view stays valid while c changes.
func (c *Cmd) snapshotInto(buf *[constants.MaxCDBSize]byte) (scmd.Command, scmd.OpClass, State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := copy(buf[:], c.cdb[:c.cdbLen])
	return scmd.Command{
		Flags:       c.flags,
		CDB:         buf[:n],
		Retries:     c.retries,
		Allowed:     c.allowed,
		Result:      c.result,
		AllocatedAt: c.allocatedAt,
		Timeout:     c.timeout,
	}, c.req.Op, c.state
}

// Snapshot returns a copy of c's status.
func (h *Host) Snapshot(c *Cmd) scmd.Command {
	var buf [constants.MaxCDBSize]byte
	cmd, _, _ := c.snapshotInto(&buf)
	cmd.CDB = append([]byte(nil), cmd.CDB...)
	return cmd
}

func (h *Host) formatOptions(c *Cmd) scmd.FormatOptions {
	return scmd.FormatOptions{
		Classifier: scmd.ClassifierFunc(func() (string, bool) { return h.Classify(c) }),
		CDB:        cdb.Formatter{},
		Now:        h.clock.Now(),
	}
}

// ShowCommand writes c's status line fields.
func (h *Host) ShowCommand(w io.Writer, c *Cmd) error {
	var buf [constants.MaxCDBSize]byte
	cmd, _, _ := c.snapshotInto(&buf)
	return scmd.FormatCommand(w, &cmd, h.formatOptions(c))
}

// ShowBusy writes one line per allocated tag, in tag order:
//
//	tag=3 {.op=READ, .state=timed-out, .cmd=Read(10) 28 00 ..., .flags=TAGGED|INITIALIZED|LAST}
func (h *Host) ShowBusy(w io.Writer) error {
	var buf [constants.MaxCDBSize]byte
	for _, c := range h.inFlight() {
		cmd, op, state := c.snapshotInto(&buf)
		if state == StateFree || state == StateComplete {
			continue
		}
		if _, err := fmt.Fprintf(w, "tag=%d {.op=%s, .state=%s", c.tag, opNames[op], state); err != nil {
			return err
		}
		if err := scmd.FormatCommand(w, &cmd, h.formatOptions(c)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "}\n"); err != nil {
			return err
		}
	}
	return nil
}

// ShowState writes the host's identity and queue occupancy.
func (h *Host) ShowState(w io.Writer) error {
	h.lock.Lock()
	aborts, cmdQ := len(h.abortList), len(h.cmdQ)
	h.lock.Unlock()

	state := "running"
	switch {
	case h.isClosed():
		state = "offline"
	case aborts+cmdQ > 0:
		state = "recovery"
	}

	_, err := fmt.Fprintf(w,
		"host=%d\nuuid=%s\nstate=%s\ndepth=%d\nbusy=%d\neh_abort_list=%d\neh_cmd_q=%d\ntimeout=%s\nbackend=%s\n",
		h.id, h.uuid, state, h.cfg.Depth, h.Busy(), aborts, cmdQ, h.cfg.Timeout,
		humanize.IBytes(uint64(h.cfg.Backend.Size())))
	return err
}

// ShowStats writes the host's counters, then any backend counters with a
// "backend." prefix.
func (h *Host) ShowStats(w io.Writer) error {
	s := h.metrics.Snapshot()
	lines := []struct {
		key string
		val string
	}{
		{"reads", humanize.Comma(int64(s.ReadOps))},
		{"writes", humanize.Comma(int64(s.WriteOps))},
		{"flushes", humanize.Comma(int64(s.FlushOps))},
		{"discards", humanize.Comma(int64(s.DiscardOps))},
		{"other", humanize.Comma(int64(s.OtherOps))},
		{"read_bytes", humanize.IBytes(s.ReadBytes)},
		{"write_bytes", humanize.IBytes(s.WriteBytes)},
		{"failed", humanize.Comma(int64(s.Failed))},
		{"timeouts", humanize.Comma(int64(s.Timeouts))},
		{"retries", humanize.Comma(int64(s.Retries))},
		{"eh_failures", humanize.Comma(int64(s.EHFailures))},
		{"max_queue_depth", humanize.Comma(int64(s.MaxQueueDepth))},
		{"latency_p50_us", humanize.Comma(int64(s.LatencyP50Ns / 1000))},
		{"latency_p99_us", humanize.Comma(int64(s.LatencyP99Ns / 1000))},
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%s=%s\n", l.key, l.val); err != nil {
			return err
		}
	}

	sb, ok := h.cfg.Backend.(scmd.StatBackend)
	if !ok {
		return nil
	}
	stats := sb.Stats()
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "backend.%s=%v\n", strings.ReplaceAll(k, " ", "_"), stats[k]); err != nil {
			return err
		}
	}
	return nil
}

// Register publishes the host's status files under root as
// host<N>/{busy,state,stats}.
func (h *Host) Register(root *debugfs.Dir) (*debugfs.Dir, error) {
	dir, err := root.Mkdir(fmt.Sprintf("host%d", h.id))
	if err != nil {
		return nil, err
	}
	files := []struct {
		name string
		fn   debugfs.ShowFunc
	}{
		{"busy", h.ShowBusy},
		{"state", h.ShowState},
		{"stats", h.ShowStats},
	}
	for _, f := range files {
		if err := dir.Create(f.name, f.fn); err != nil {
			_ = root.Remove(dir.Name())
			return nil, err
		}
	}
	return dir, nil
}
