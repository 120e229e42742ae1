package dltrouter

import (
	"context"
	"sync"
	"time"

	"github.com/ehrlich-b/dlt-router/internal/channel"
	"github.com/ehrlich-b/dlt-router/internal/config"
	"github.com/ehrlich-b/dlt-router/internal/constants"
	"github.com/ehrlich-b/dlt-router/internal/dcp"
	"github.com/ehrlich-b/dlt-router/internal/dltwire"
	"github.com/ehrlich-b/dlt-router/internal/dre"
	"github.com/ehrlich-b/dlt-router/internal/persistence"
	"github.com/ehrlich-b/dlt-router/internal/shm"
)

// Config is everything Daemon needs to wire itself: where the static
// config and persistence database live, and the shared-memory and DCP
// socket endpoints a producer and a diagnostic client connect to.
type Config struct {
	ConfigPath      string // static JSON config (internal/config.Load)
	PersistencePath string // buntdb file, or ":memory:" for an ephemeral store
	SocketPath      string // DCP AF_UNIX listen path

	// SharedMemoryName names the /dev/shm object the shared ACB lives in.
	// Empty selects shm.NewInProcessMapping instead, for the single-process
	// deployment this repository targets (see internal/shm/shared.go's
	// SharedData doc comment): the demo producer and the daemon as
	// goroutines sharing one mapping, rather than a real /dev/shm object.
	SharedMemoryName string
	// SharedMemoryBufferSize is the per-LCB size in bytes; both LCBs
	// together with the control region make up the full mapping
	// (shm.Size computes the total).
	SharedMemoryBufferSize int

	Logf func(format string, args ...any)
}

// Daemon owns one dre.Server, one shm.SharedData, and the DCP listener
// routing commands to it, wired the way cmd/dlt-router's main assembles
// them. It mirrors the teacher's Device: a handful of long-lived
// goroutines over shared state, torn down by cancelling a context.
type Daemon struct {
	cfg Config

	store   *persistence.Store
	mapping *shm.Mapping
	shared  *shm.SharedData
	writer  *shm.Writer
	reader  *shm.Reader
	server  *dre.Server
	dcp     *dcp.Server
	metrics *Metrics

	logf func(format string, args ...any)

	wg sync.WaitGroup
}

func noopLogf(string, ...any) {}

// New loads cfg.ConfigPath, opens the persistence store, builds the dre
// Server and shared-memory region, and listens on the DCP socket. It does
// not start serving; call Run for that. Any failure here is fatal to
// starting the daemon: a missing config file, a config that fails schema
// validation, a config with no channels, or a socket bind failure.
func New(cfg Config) (*Daemon, error) {
	logf := cfg.Logf
	if logf == nil {
		logf = noopLogf
	}

	staticCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, WrapConfigError("config.Load", err)
	}

	store, err := persistence.Open(cfg.PersistencePath)
	if err != nil {
		return nil, WrapError("persistence.Open", ErrCodeSocket, err)
	}

	bufferSize := cfg.SharedMemoryBufferSize
	if bufferSize <= 0 {
		bufferSize = constants.MaxDltMessageBytes
	}

	var mapping *shm.Mapping
	if cfg.SharedMemoryName == "" {
		mapping = shm.NewInProcessMapping(shm.Size(bufferSize))
	} else {
		mapping, err = shm.OpenOrCreate(cfg.SharedMemoryName, shm.Size(bufferSize))
		if err != nil {
			_ = store.Close()
			return nil, WrapError("shm.OpenOrCreate", ErrCodeSocket, err)
		}
	}
	shared := shm.New(mapping, bufferSize)

	server := dre.New(store, logf)
	server.InitLogChannels(staticCfg, config.NewQuotaLimiters(staticCfg.Quotas))

	metrics := NewMetrics()

	d := &Daemon{
		cfg:     cfg,
		store:   store,
		mapping: mapping,
		shared:  shared,
		writer:  shm.NewWriter(shared, func() int64 { return time.Now().UnixNano() }),
		reader:  shm.NewReader(shared),
		server:  server,
		metrics: metrics,
		logf:    logf,
	}

	factory := func(firstMessage []byte, handle dcp.SessionHandle) dcp.Session {
		inner := dcp.NewConfigSessionFactory(server)(firstMessage, handle)
		if inner == nil {
			return nil
		}
		metrics.ActiveSessions.Add(1)
		return &countingSession{inner: inner, metrics: metrics}
	}

	listener, err := dcp.Listen(cfg.SocketPath, factory, logf)
	if err != nil {
		_ = mapping.Close()
		_ = store.Close()
		return nil, WrapError("dcp.Listen", ErrCodeSocket, err)
	}
	d.dcp = listener

	return d, nil
}

// Writer exposes the shared-memory producer side, for a demo producer
// goroutine or a test harness to write records through (cmd/dlt-router's
// built-in demo producer and testing.go both use this rather than holding
// their own SharedData).
func (d *Daemon) Writer() *shm.Writer { return d.writer }

// Metrics returns this daemon's counters, for a caller to scrape over
// promhttp.HandlerFor(daemon.Metrics().Registry(), ...) or inspect via
// Snapshot.
func (d *Daemon) Metrics() *Metrics { return d.metrics }

// Server exposes the routing engine a DCP command mutates, for callers
// that want to drive it directly (tests, a demo CLI subcommand) without
// going through the socket.
func (d *Daemon) Server() *dre.Server { return d.server }

// confirmAcquisition performs spec.md §4.6's acquisition request/response
// handshake once, before any draining starts: the daemon asks for the
// producer's current switch_count and requires it to equal priorSwitchCount
// (0) + 1, which holds trivially at startup since a fresh ACB's switch_count
// is initialized to 1. The real handshake rides the DCP subscriber-session
// RPC a producer holds open for registration, which is explicitly out of
// this implementation's scope (spec.md §4.11); this daemon and its shared
// memory are owned by the same process (see shm.SharedData's doc comment),
// so the transport reads switch_count directly off the ACB it already holds
// rather than issuing a request over a connection. A mismatch is treated as
// a faulty producer per spec.md §7: the daemon does not start draining.
// Either way the shared-memory file is unlinked immediately afterward, so
// an abrupt exit never leaves a stale /dev/shm entry.
func (d *Daemon) confirmAcquisition(ctx context.Context) error {
	transport := shm.TransportFunc(func(context.Context) (uint32, error) {
		return d.shared.ACB.SwitchCount(), nil
	})
	acquiredBlockID, err := shm.ConfirmHandshake(ctx, transport, 0)
	if unlinkErr := d.mapping.Unlink(); unlinkErr != nil {
		d.logf("dltrouter: shm unlink: %v", unlinkErr)
	}
	if err != nil {
		return WrapError("shm.ConfirmHandshake", ErrCodeHandshake, err)
	}
	// Mirrors spec.md §4.6's RPC-driven first wait: the block ID came from
	// the handshake above rather than from the reader's own Switch, so it
	// is waited on externally via NotifyAcquisitionSetReader before the
	// normal Read/Run cycle (which performs its own Switch each iteration)
	// takes over.
	d.reader.NotifyAcquisitionSetReader(acquiredBlockID)
	return nil
}

// Run starts the daemon's two long-lived suspension points -- the DCP
// server's poll loop and the shared-memory drain/forward loop -- and
// blocks until ctx is cancelled or the DCP server returns a fatal error.
// Both goroutines are told to stop via ctx; Run waits for them before
// returning, then releases the daemon's resources. Run is not safe to
// call twice on the same Daemon.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.confirmAcquisition(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		errCh <- d.dcp.Serve(runCtx)
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.reader.Run(runCtx, d.handleTypeRegistration, d.handleRecord)
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
		cancel()
	}

	d.wg.Wait()
	d.close()
	return err
}

// close releases the daemon's held resources. Called once, at the end of
// Run, after both goroutines have stopped.
func (d *Daemon) close() {
	if err := d.dcp.Close(); err != nil {
		d.logf("dltrouter: dcp.Close: %v", err)
	}
	if err := d.mapping.Close(); err != nil {
		d.logf("dltrouter: shm mapping close: %v", err)
	}
	if err := d.store.Close(); err != nil {
		d.logf("dltrouter: persistence close: %v", err)
	}
}

// handleTypeRegistration logs a producer's type-registration frame. There
// is nothing routing-relevant in a registration record itself (spec.md
// §4.6's invented FLIF/FLST/FLDA/FLFI/FLER field lists describe file
// transfer metadata carried over the DLT channel, not the shm type
// registry), so this is purely observability.
func (d *Daemon) handleTypeRegistration(reg shm.TypeRegistration) {
	d.logf("dltrouter: producer registered type %d (%s)", reg.TypeID, reg.Name)
}

// handleRecord is the shm.Reader.Run recordCB: it recovers routing
// metadata from the drained record's wire bytes and hands it to
// FilterAndCall, the same dispatch core a DCP-driven demo producer or a
// future real out-of-process producer both flow through.
//
// ParseHeader cannot recover AppId/CtxId for a non-verbose record (this
// wire format's non-verbose layout carries no WAID/WCID bits); such
// records are routed using the zero ID and the server's default
// threshold, consistent with dre.Server.SendNonVerbose's own contract.
//
// A verbose record whose body opens with one of the five file-transfer
// tags (spec.md §4.7/§9) is routed through SendFTVerbose instead of
// SendVerbose, so a registered coredump channel bypasses filtering for it
// the way it does for a DCP-driven caller exercising that path directly.
func (d *Daemon) handleRecord(rec shm.SharedMemoryRecord) {
	parsed, ok := dltwire.ParseHeader(rec.Payload)
	if !ok {
		d.metrics.InvalidSize.Add(1)
		d.logf("dltrouter: drain: %v", NewError("dltwire.ParseHeader", ErrCodeWireProtocol, "malformed dlt record"))
		return
	}

	sender := dre.Sender(func(c *channel.Channel) {
		if c.Output == nil {
			return
		}
		if _, err := c.Output.Send([][]byte{rec.Payload}); err != nil {
			d.logf("dltrouter: channel %s send: %v", c.Name, err)
			return
		}
		d.metrics.ChannelSends.Add(1)
	})

	switch {
	case parsed.Verbose && parsed.BodyOffset <= len(rec.Payload) && isFileTransfer(rec.Payload[parsed.BodyOffset:]):
		d.server.SendFTVerbose(parsed.AppID, parsed.CtxID, parsed.Level, len(rec.Payload), sender)
	case parsed.Verbose:
		d.server.SendVerbose(parsed.AppID, parsed.CtxID, parsed.Level, len(rec.Payload), sender)
	default:
		d.server.SendNonVerbose(parsed.AppID, parsed.CtxID, parsed.Level, len(rec.Payload), sender)
	}
}

func isFileTransfer(body []byte) bool {
	_, ok := dltwire.DetectFileTransferTag(body)
	return ok
}

// countingSession decorates a dcp.Session with this daemon's DCP counters,
// so Metrics stays accurate without dcp.configSession needing to know
// anything about prometheus.
type countingSession struct {
	inner   dcp.Session
	metrics *Metrics
}

func (c *countingSession) OnCommand(data []byte) []byte {
	resp := c.inner.OnCommand(data)
	if len(resp) > 0 && resp[0] == dre.RetOK {
		c.metrics.DCPCommands.Add(1)
	} else {
		c.metrics.DCPErrors.Add(1)
	}
	return resp
}

func (c *countingSession) OnTick() bool { return c.inner.OnTick() }

func (c *countingSession) OnClosedByPeer() {
	c.inner.OnClosedByPeer()
	c.metrics.ActiveSessions.Add(-1)
}
