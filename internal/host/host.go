// Package host runs a tagged command queue over a backend, with a timeout
// scanner and a two-list error handler. It exposes each in-flight command's
// status in the same layout a SCSI host's debugfs "busy" file uses.
package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	scmd "github.com/ehrlich-b/go-scmd"
	"github.com/ehrlich-b/go-scmd/internal/clock"
	"github.com/ehrlich-b/go-scmd/internal/constants"
	"github.com/ehrlich-b/go-scmd/internal/interfaces"
	"github.com/ehrlich-b/go-scmd/internal/logging"
)

// Config describes one host.
type Config struct {
	ID           int
	Depth        int
	Workers      int
	Timeout      time.Duration
	ScanInterval time.Duration
	Allowed      int
	BlockSize    int
	Tagged       bool

	Backend  interfaces.Backend
	Clock    clock.Clock
	Logger   *logging.Logger
	Observer scmd.Observer
}

// DefaultConfig returns a tagged host configuration over backend.
func DefaultConfig(backend interfaces.Backend) Config {
	return Config{
		Depth:        constants.DefaultQueueDepth,
		Workers:      constants.DefaultWorkers,
		Timeout:      constants.DefaultCommandTimeout,
		ScanInterval: constants.DefaultScanInterval,
		Allowed:      constants.DefaultAllowedRetries,
		BlockSize:    constants.DefaultLogicalBlockSize,
		Tagged:       true,
		Backend:      backend,
	}
}

func (c *Config) validate() error {
	if c.Backend == nil {
		return scmd.NewHostError("NEW_HOST", c.ID, scmd.ErrCodeInvalidParameters, "backend is required")
	}
	if c.Depth <= 0 || c.Depth > constants.MaxQueueDepth {
		return scmd.NewHostError("NEW_HOST", c.ID, scmd.ErrCodeInvalidParameters,
			fmt.Sprintf("depth %d out of range [1, %d]", c.Depth, constants.MaxQueueDepth))
	}
	if c.BlockSize < 512 || c.BlockSize&(c.BlockSize-1) != 0 {
		return scmd.NewHostError("NEW_HOST", c.ID, scmd.ErrCodeInvalidParameters,
			fmt.Sprintf("block size %d is not a power of two >= 512", c.BlockSize))
	}
	if c.Allowed < 0 {
		return scmd.NewHostError("NEW_HOST", c.ID, scmd.ErrCodeInvalidParameters, "allowed retries must not be negative")
	}
	if c.Timeout <= 0 {
		return scmd.NewHostError("NEW_HOST", c.ID, scmd.ErrCodeInvalidParameters, "timeout must be positive")
	}
	return nil
}

// Host owns a tag space of Depth commands. Tags are allocated per command
// and freed on completion.
type Host struct {
	id    int
	uuid  uuid.UUID
	cfg   Config
	clock clock.Clock
	log   *logging.Logger

	metrics *scmd.Metrics
	obs     scmd.Observer

	// slots[tag] is the command holding tag, nil when free
	slotMu sync.Mutex
	slots  []*Cmd
	busy   int

	// lock guards the two error-handling lists and nothing else
	lock      sync.Mutex
	abortList []*Cmd
	cmdQ      []*Cmd

	dispatch chan job
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	stateMu sync.Mutex
	started bool
	closed  bool
}

// job is one dispatch of a command. attempt guards against stale entries
// left in the channel after the error handler re-dispatched the command.
type job struct {
	cmd     *Cmd
	attempt int
}

// New creates a host. Commands may be submitted before Start; they are
// held in the dispatch queue until workers run.
func New(cfg Config) (*Host, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = constants.DefaultWorkers
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = constants.DefaultScanInterval
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Monotonic()
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Host{
		id:       cfg.ID,
		uuid:     uuid.New(),
		cfg:      cfg,
		clock:    cfg.Clock,
		log:      log.WithHost(cfg.ID),
		metrics:  scmd.NewMetrics(),
		slots:    make([]*Cmd, cfg.Depth),
		dispatch: make(chan job, cfg.Depth*(cfg.Allowed+1)),
		ctx:      ctx,
		cancel:   cancel,
	}
	h.obs = teeObserver{scmd.NewMetricsObserver(h.metrics), cfg.Observer}
	return h, nil
}

// ID returns the host number.
func (h *Host) ID() int { return h.id }

// UUID returns the identifier generated for this host instance.
func (h *Host) UUID() uuid.UUID { return h.uuid }

// Metrics returns the host's counters.
func (h *Host) Metrics() *scmd.Metrics { return h.metrics }

// Start launches the execution workers and the timeout scanner. They stop
// when ctx is cancelled or Close is called.
func (h *Host) Start(ctx context.Context) error {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	if h.closed {
		return scmd.NewHostError("START", h.id, scmd.ErrCodeHostOffline, "host closed")
	}
	if h.started {
		return scmd.NewHostError("START", h.id, scmd.ErrCodeInvalidParameters, "host already started")
	}
	h.started = true

	for i := 0; i < h.cfg.Workers; i++ {
		h.wg.Add(1)
		go h.worker()
	}
	h.wg.Add(1)
	go h.scanLoop()

	go func() {
		select {
		case <-ctx.Done():
			h.cancel()
		case <-h.ctx.Done():
		}
	}()

	h.log.Info("host started", "uuid", h.uuid.String(), "depth", h.cfg.Depth,
		"workers", h.cfg.Workers, "timeout", h.cfg.Timeout.String())
	return nil
}

// Close stops the workers and completes every outstanding command with
// an aborted result.
func (h *Host) Close() error {
	h.stateMu.Lock()
	if h.closed {
		h.stateMu.Unlock()
		return nil
	}
	h.closed = true
	h.stateMu.Unlock()

	h.cancel()
	h.wg.Wait()

	h.lock.Lock()
	h.abortList = nil
	h.cmdQ = nil
	h.lock.Unlock()

	for _, c := range h.inFlight() {
		h.complete(c, -1, resultAborted,
			scmd.NewTagError("CLOSE", h.id, c.tag, scmd.ErrCodeAborted, "host closed"), 0)
	}
	h.metrics.Stop()
	h.log.Info("host stopped")
	return nil
}

func (h *Host) isClosed() bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	return h.closed
}

func (h *Host) worker() {
	defer h.wg.Done()
	for {
		select {
		case <-h.ctx.Done():
			return
		case j := <-h.dispatch:
			h.execute(j)
		}
	}
}

func (h *Host) scanLoop() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.CheckTimeouts()
			if h.Recovering() {
				h.RunErrorHandler()
			}
		}
	}
}

// send queues j for a worker. It gives up if the host is stopping.
func (h *Host) send(j job) bool {
	select {
	case h.dispatch <- j:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// inFlight returns the allocated commands in tag order.
func (h *Host) inFlight() []*Cmd {
	h.slotMu.Lock()
	defer h.slotMu.Unlock()
	cmds := make([]*Cmd, 0, h.busy)
	for _, c := range h.slots {
		if c != nil {
			cmds = append(cmds, c)
		}
	}
	return cmds
}

// Busy returns the number of allocated tags.
func (h *Host) Busy() int {
	h.slotMu.Lock()
	defer h.slotMu.Unlock()
	return h.busy
}

// teeObserver feeds the host's own metrics and an optional caller observer.
type teeObserver struct {
	metrics scmd.Observer
	extra   scmd.Observer
}

func (t teeObserver) ObserveCommand(op scmd.OpClass, bytes uint64, latencyNs uint64, success bool) {
	t.metrics.ObserveCommand(op, bytes, latencyNs, success)
	if t.extra != nil {
		t.extra.ObserveCommand(op, bytes, latencyNs, success)
	}
}

func (t teeObserver) ObserveTimeout() {
	t.metrics.ObserveTimeout()
	if t.extra != nil {
		t.extra.ObserveTimeout()
	}
}

func (t teeObserver) ObserveRetry() {
	t.metrics.ObserveRetry()
	if t.extra != nil {
		t.extra.ObserveRetry()
	}
}

func (t teeObserver) ObserveEHFailure() {
	t.metrics.ObserveEHFailure()
	if t.extra != nil {
		t.extra.ObserveEHFailure()
	}
}

func (t teeObserver) ObserveQueueDepth(depth uint32) {
	t.metrics.ObserveQueueDepth(depth)
	if t.extra != nil {
		t.extra.ObserveQueueDepth(depth)
	}
}
