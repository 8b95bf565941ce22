package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ehrlich-b/go-scmd/backend"
	"github.com/ehrlich-b/go-scmd/internal/cdb"
	"github.com/ehrlich-b/go-scmd/internal/debugfs"
	"github.com/ehrlich-b/go-scmd/internal/host"
)

type simulateOptions struct {
	commands   int
	duration   time.Duration
	depth      int
	timeout    time.Duration
	allowed    int
	stallEvery int
	stallDelay time.Duration
}

func newSimulateCommand(ctx *commandContext) *cobra.Command {
	var opts simulateOptions

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a memory-backed host with stalling commands and show its status files",
		Long: `Run a host over a memory backend that stalls every Nth operation, submit
a mixed read/write/flush workload, and print host<N>/busy while stalled
commands sit on the error handling lists. A statistics table follows.

Flags override the configuration file.`,
		Example: `  scmd simulate --timeout 500ms --stall-every 3 --stall-delay 3s --duration 1s`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, ctx, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.commands, "commands", "n", 16, "Number of commands to submit")
	cmd.Flags().DurationVar(&opts.duration, "duration", 2*time.Second, "How long to run before printing status")
	cmd.Flags().IntVar(&opts.depth, "depth", 0, "Queue depth (overrides host.depth)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Command timeout (overrides host.timeout)")
	cmd.Flags().IntVar(&opts.allowed, "allowed", 0, "Allowed retries (overrides host.allowed_retries)")
	cmd.Flags().IntVar(&opts.stallEvery, "stall-every", 0, "Stall every Nth backend operation (overrides backend.stall_every)")
	cmd.Flags().DurationVar(&opts.stallDelay, "stall-delay", 0, "Stall length (overrides backend.stall_delay)")
	return cmd
}

func runSimulate(cmd *cobra.Command, ctx *commandContext, opts simulateOptions) error {
	cfg := ctx.config
	flags := cmd.Flags()

	size := cfg.BackendSize()
	stallEvery, stallDelay := cfg.Backend.StallEvery, cfg.StallDelay()
	if flags.Changed("stall-every") {
		stallEvery = opts.stallEvery
	}
	if flags.Changed("stall-delay") {
		stallDelay = opts.stallDelay
	}

	mem := backend.NewMemory(size)
	defer mem.Close()
	be := backend.NewDelayed(mem, stallEvery, stallDelay)

	hc := cfg.HostConfig(be)
	hc.Logger = ctx.logger
	if flags.Changed("depth") {
		hc.Depth = opts.depth
	}
	if flags.Changed("timeout") {
		hc.Timeout = opts.timeout
	}
	if flags.Changed("allowed") {
		hc.Allowed = opts.allowed
	}

	h, err := host.New(hc)
	if err != nil {
		return err
	}
	defer h.Close()

	root := debugfs.NewRoot()
	if _, err := h.Register(root); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if err := h.Start(runCtx); err != nil {
		return err
	}

	ctx.logger.Info("simulation started",
		"backend", humanize.IBytes(uint64(size)),
		"commands", opts.commands,
		"stall_every", stallEvery,
		"stall_delay", stallDelay.String())

	submitted, rejected := submitWorkload(h, hc.BlockSize, size, opts.commands)

	select {
	case <-time.After(opts.duration):
	case <-runCtx.Done():
		return runCtx.Err()
	}

	out := cmd.OutOrStdout()
	path := fmt.Sprintf("host%d/busy", h.ID())
	fmt.Fprintf(out, "== %s ==\n", path)
	if err := root.Read(path, out); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n== host%d/state ==\n", h.ID())
	if err := root.Read(fmt.Sprintf("host%d/state", h.ID()), out); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderStats(out, h.Metrics().Snapshot(), submitted, rejected, be.Stalled()))
	return nil
}

// submitWorkload cycles through write, read and flush commands over
// successive LBAs. Submissions refused for lack of a tag are counted.
func submitWorkload(h *host.Host, blockSize int, size int64, n int) (submitted, rejected int) {
	const blocks = 8
	span := int64(blockSize * blocks)
	payload := make([]byte, span)
	for i := range payload {
		payload[i] = byte(i)
	}

	for i := 0; i < n; i++ {
		lba := (int64(i) * span % max(size-span, span)) / int64(blockSize)
		var req host.Request
		switch i % 3 {
		case 0:
			req = host.Request{CDB: cdb.BuildWrite10(uint32(lba), blocks), Data: payload}
		case 1:
			req = host.Request{CDB: cdb.BuildRead10(uint32(lba), blocks), Data: make([]byte, span)}
		default:
			req = host.Request{CDB: cdb.BuildSyncCache10()}
		}
		if _, err := h.Submit(req); err != nil {
			rejected++
			continue
		}
		submitted++
	}
	return submitted, rejected
}
