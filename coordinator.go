// Package faceslots coordinates which data provider is bound to each slot
// of a watch face.
//
// The Coordinator is the entry point: build one with New from a slot
// registry, a lookup client and a chooser launcher, then run it with Run (or
// Start/Stop). On start it asks the lookup client for the current binding of
// every slot and reports each answer to the registered view sinks as it
// arrives. Select starts a chooser session for one slot; the session's
// answer rebinds that slot.
//
// All binding state is owned by the goroutine running Run. Lookup results,
// chooser responses and caller commands reach it through channels, so no
// lock guards the binding table.
//
// Slots, lookup backends and the chooser are configured via [Config], which
// can be loaded from a YAML or JSON file using [LoadConfig].
package faceslots

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ferro-labs/faceslots/chooser"
	"github.com/ferro-labs/faceslots/internal/logging"
	"github.com/ferro-labs/faceslots/internal/metrics"
	"github.com/ferro-labs/faceslots/providers"
	"github.com/ferro-labs/faceslots/slots"
)

const defaultQueueSize = 64

// CoordinatorConfig holds the per-watch-face settings of a Coordinator.
type CoordinatorConfig struct {
	// WatchFace identifies the face to the lookup backend and the chooser.
	WatchFace string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithViewSink registers a sink notified of every binding change. Sinks
// are called in registration order.
func WithViewSink(s ViewSink) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.sinks = append(c.sinks, s)
		}
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithQueueSize sets the capacity of the inbound result and response
// queues.
func WithQueueSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

type bulkResult struct {
	slotID int
	info   *providers.Info
}

type command func(ctx context.Context)

// Coordinator is the slot-assignment state machine.
type Coordinator struct {
	cfg       CoordinatorConfig
	registry  *slots.Registry
	client    LookupClient
	launcher  Launcher
	sinks     []ViewSink
	logger    *slog.Logger
	queueSize int

	results   chan bulkResult
	responses chan chooser.Response
	commands  chan command
	ready     chan struct{} // closed once the loop accepts commands
	stopping  chan struct{} // closed when Run starts to return
	started   atomic.Bool

	// Owned by the Run goroutine.
	table   map[int]*binding
	pending *pendingSelection

	// Start/Stop bookkeeping.
	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	runErr    error
}

// New creates a Coordinator. Every present slot of registry starts in
// StateUnknown.
func New(cfg CoordinatorConfig, registry *slots.Registry, client LookupClient, launcher Launcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:       cfg,
		registry:  registry,
		client:    client,
		launcher:  launcher,
		logger:    slog.Default(),
		queueSize: defaultQueueSize,
		commands:  make(chan command),
		ready:     make(chan struct{}),
		stopping:  make(chan struct{}),
		table:     make(map[int]*binding),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.results = make(chan bulkResult, c.queueSize)
	c.responses = make(chan chooser.Response, c.queueSize)
	for _, s := range registry.Valid() {
		c.table[s.ID] = &binding{slot: s, resolved: StateUnknown}
	}
	return c
}

// Run initializes the lookup client, requests the binding of every present
// slot and processes results, chooser responses and commands until ctx is
// done. The lookup client is released on every return path. Run may be
// called once.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	log := logging.FromContext(ctx, c.logger).With("watch_face", c.cfg.WatchFace)

	// stopping closes before Release: workers parked on a full results
	// queue exit on it.
	defer c.releaseLookup(log)
	defer close(c.stopping)

	if err := c.client.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing lookup client: %w", err)
	}
	ids := c.registry.IDs()
	if err := c.client.RequestBulkInfo(c.cfg.WatchFace, ids, c.onLookupResult); err != nil {
		return fmt.Errorf("requesting provider info: %w", err)
	}
	log.Info("coordinator started", "slots", len(ids))
	close(c.ready)

	for {
		select {
		case <-ctx.Done():
			log.Info("coordinator stopping")
			return nil
		case r := <-c.results:
			c.applyBulkResult(ctx, r)
		case resp := <-c.responses:
			c.applyChooserResponse(ctx, resp)
		case cmd := <-c.commands:
			cmd(ctx)
		}
	}
}

// Start runs the coordinator in a new goroutine. Stop cancels it.
func (c *Coordinator) Start(ctx context.Context) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		err := c.Run(ctx)
		c.lifecycle.Lock()
		c.runErr = err
		c.lifecycle.Unlock()
	}()
}

// Stop cancels a coordinator started with Start, waits for Run to return
// and reports its error.
func (c *Coordinator) Stop() error {
	c.lifecycle.Lock()
	cancel, done := c.cancel, c.done
	c.lifecycle.Unlock()
	if done == nil {
		return nil
	}
	cancel()
	<-done
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return c.runErr
}

// Done is closed when a coordinator started with Start has stopped. It is
// nil before Start.
func (c *Coordinator) Done() <-chan struct{} {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return c.done
}

// Select starts a chooser session for the slot at loc and returns its
// token. It returns ErrSlotUnsupported, without launching anything, when
// the watch face does not offer loc. A later Select replaces the tracked
// session; the earlier session's answer is then ignored.
func (c *Coordinator) Select(ctx context.Context, loc slots.Location) (chooser.Token, error) {
	type verdict struct {
		token chooser.Token
		err   error
	}
	reply := make(chan verdict, 1)
	err := c.submit(ctx, func(loopCtx context.Context) {
		token, err := c.handleSelect(withCaller(loopCtx, ctx), loc)
		reply <- verdict{token, err}
	})
	if err != nil {
		return "", err
	}
	select {
	case v := <-reply:
		return v.token, v.err
	case <-c.stopping:
		select {
		case v := <-reply:
			return v.token, v.err
		default:
			return "", ErrNotRunning
		}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Snapshot returns a copy of the binding table and the tracked selection.
func (c *Coordinator) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	err := c.submit(ctx, func(context.Context) {
		reply <- c.snapshot()
	})
	if err != nil {
		return Snapshot{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-c.stopping:
		select {
		case s := <-reply:
			return s, nil
		default:
			return Snapshot{}, ErrNotRunning
		}
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (c *Coordinator) submit(ctx context.Context, cmd command) error {
	select {
	case <-c.ready:
	default:
		return ErrNotRunning
	}
	select {
	case c.commands <- cmd:
		return nil
	case <-c.stopping:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// withCaller keeps the caller's correlation ids on the loop context.
func withCaller(loopCtx, callerCtx context.Context) context.Context {
	if id := logging.RequestIDFromContext(callerCtx); id != "" {
		loopCtx = logging.WithRequestID(loopCtx, id)
	}
	return loopCtx
}

// onLookupResult runs on a lookup worker and hands the result to the loop.
func (c *Coordinator) onLookupResult(slotID int, info *providers.Info) {
	select {
	case c.results <- bulkResult{slotID: slotID, info: info.Clone()}:
	case <-c.stopping:
	}
}

// onChooserResponse runs on whatever goroutine the launcher answers from.
func (c *Coordinator) onChooserResponse(resp chooser.Response) {
	resp.Provider = resp.Provider.Clone()
	select {
	case c.responses <- resp:
	case <-c.stopping:
	}
}

func (c *Coordinator) releaseLookup(log *slog.Logger) {
	if err := c.client.Release(); err != nil {
		log.Warn("releasing lookup client", "error", err)
	}
}

func (c *Coordinator) applyBulkResult(ctx context.Context, r bulkResult) {
	log := logging.FromContext(ctx, c.logger)
	b, ok := c.table[r.slotID]
	if !ok {
		log.Warn("provider info for unknown slot ignored", "slot_id", r.slotID)
		metrics.BulkResults.WithLabelValues(metrics.OutcomeUnknownSlot).Inc()
		return
	}
	log.Debug("provider info received", "slot_id", r.slotID, "location", b.slot.Location.String(), "provider", r.info.String())

	b.set(r.info)
	metrics.BulkResults.WithLabelValues(outcomeOf(r.info)).Inc()
	c.updateBoundGauge()
	c.notify(ctx, b)
}

func (c *Coordinator) handleSelect(ctx context.Context, loc slots.Location) (chooser.Token, error) {
	log := logging.FromContext(ctx, c.logger)
	slot := c.registry.SlotFor(loc)
	b, ok := c.table[slot.ID]
	if !slot.Valid() || !ok {
		log.Info("slot not supported for reassignment", "location", loc.String(), "slot_id", slot.ID)
		metrics.ChooserSessions.WithLabelValues("unsupported").Inc()
		return "", fmt.Errorf("%w: %s", ErrSlotUnsupported, loc)
	}

	wasSelecting := b.selecting
	prev := c.pending
	if prev != nil {
		if pb, ok := c.table[prev.slotID]; ok {
			pb.selecting = false
		}
	}
	b.selecting = true

	token, err := c.launcher.Launch(ctx, chooser.Request{
		WatchFace:      c.cfg.WatchFace,
		SlotID:         slot.ID,
		SupportedTypes: slot.SupportedTypes,
	}, c.onChooserResponse)
	if err != nil {
		b.selecting = wasSelecting
		if prev != nil {
			if pb, ok := c.table[prev.slotID]; ok {
				pb.selecting = true
			}
		}
		log.Warn("chooser launch failed", "location", loc.String(), "slot_id", slot.ID, "error", err)
		metrics.ChooserSessions.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("launching chooser: %w", err)
	}

	c.pending = &pendingSelection{slotID: slot.ID, token: token}
	metrics.ChooserSessions.WithLabelValues("launched").Inc()
	log.Info("chooser launched", "location", loc.String(), "slot_id", slot.ID, "session_id", string(token))

	if !wasSelecting {
		c.notify(ctx, b)
	}
	// The superseded slot is back to its binding.
	if prev != nil && prev.slotID != slot.ID {
		log.Debug("pending selection replaced", "previous_slot_id", prev.slotID, "slot_id", slot.ID)
		if pb, ok := c.table[prev.slotID]; ok {
			c.notify(ctx, pb)
		}
	}
	return token, nil
}

func (c *Coordinator) applyChooserResponse(ctx context.Context, resp chooser.Response) {
	log := logging.FromContext(ctx, c.logger).With("session_id", string(resp.Token))
	if c.pending == nil {
		log.Debug("chooser response with no pending selection dropped", "slot_id", resp.SlotID)
		metrics.ChooserResponses.WithLabelValues(metrics.OutcomeOrphan).Inc()
		return
	}
	if resp.Token != c.pending.token {
		log.Info("stale chooser response dropped", "slot_id", resp.SlotID, "pending_slot_id", c.pending.slotID)
		metrics.ChooserResponses.WithLabelValues(metrics.OutcomeStale).Inc()
		return
	}

	b := c.table[c.pending.slotID]
	c.pending = nil
	b.selecting = false
	b.set(resp.Provider)
	log.Info("chooser response applied", "slot_id", b.slot.ID, "provider", resp.Provider.String())
	metrics.ChooserResponses.WithLabelValues(outcomeOf(resp.Provider)).Inc()
	c.updateBoundGauge()
	c.notify(ctx, b)
}

// notify hands every sink its own copy of the change.
func (c *Coordinator) notify(ctx context.Context, b *binding) {
	for _, sink := range c.sinks {
		c.deliver(ctx, sink, SlotChange{
			SlotID:   b.slot.ID,
			Location: b.slot.Location,
			Provider: b.provider.Clone(),
			State:    b.state(),
		})
	}
}

func (c *Coordinator) deliver(ctx context.Context, sink ViewSink, change SlotChange) {
	log := logging.FromContext(ctx, c.logger)
	defer func() {
		if r := recover(); r != nil {
			log.Error("view sink panicked", "slot_id", change.SlotID, "panic", r)
			metrics.ViewSinkFailures.Inc()
		}
	}()
	if err := sink.SlotChanged(ctx, change); err != nil {
		log.Warn("view sink failed", "slot_id", change.SlotID, "error", err)
		metrics.ViewSinkFailures.Inc()
	}
}

func (c *Coordinator) snapshot() Snapshot {
	s := Snapshot{WatchFace: c.cfg.WatchFace}
	for _, slot := range c.registry.Valid() {
		if b, ok := c.table[slot.ID]; ok {
			s.Slots = append(s.Slots, b.status())
		}
	}
	if c.pending != nil {
		s.Pending = &PendingSelection{
			SlotID:   c.pending.slotID,
			Location: c.table[c.pending.slotID].slot.Location,
			Token:    c.pending.token,
		}
	}
	return s
}

func (c *Coordinator) updateBoundGauge() {
	n := 0
	for _, b := range c.table {
		if b.provider != nil {
			n++
		}
	}
	metrics.SlotsBound.Set(float64(n))
}

func outcomeOf(info *providers.Info) string {
	if info == nil {
		return metrics.OutcomeUnbound
	}
	return metrics.OutcomeBound
}
