package lookup

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ferro-labs/faceslots/internal/metrics"
	"github.com/ferro-labs/faceslots/providers"
)

// Client lifecycle errors.
var (
	ErrNotInitialized     = errors.New("lookup client not initialized")
	ErrAlreadyInitialized = errors.New("lookup client already initialized")
	ErrReleased           = errors.New("lookup client released")
)

const defaultWorkers = 4

// ResultFunc receives one bulk lookup answer. It runs on a worker goroutine
// and must not call Release.
type ResultFunc func(slotID int, info *providers.Info)

type clientState int

const (
	stateNew clientState = iota
	stateReady
	stateReleased
)

// Client is the asynchronous batch front of a Backend.
type Client struct {
	backend Backend
	workers int
	logger  *slog.Logger

	mu     sync.RWMutex
	state  clientState
	ctx    context.Context
	cancel context.CancelFunc
	sem    chan struct{}
	wg     sync.WaitGroup
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithWorkers bounds the number of concurrent backend lookups. Values < 1
// fall back to the default of 4.
func WithWorkers(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient wraps backend. Initialize must be called before use.
func NewClient(backend Backend, opts ...ClientOption) *Client {
	c := &Client{
		backend: backend,
		workers: defaultWorkers,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the wrapped backend.
func (c *Client) Backend() Backend {
	return c.backend
}

// Initialize opens the backend. It may be called once.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateReady:
		return ErrAlreadyInitialized
	case stateReleased:
		return ErrReleased
	}
	if err := c.backend.Open(ctx); err != nil {
		return err
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.sem = make(chan struct{}, c.workers)
	c.state = stateReady
	c.logger.Debug("lookup client initialized", "backend", c.backend.Name(), "workers", c.workers)
	return nil
}

// RequestBulkInfo looks up every id asynchronously and returns immediately.
// onResult is called exactly once for each id the backend knows, from a
// worker goroutine, in no particular order. Ids the backend does not know,
// and ids whose lookup fails, never receive a result.
func (c *Client) RequestBulkInfo(watchFace string, ids []int, onResult ResultFunc) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch c.state {
	case stateNew:
		return ErrNotInitialized
	case stateReleased:
		return ErrReleased
	}

	for _, id := range ids {
		c.wg.Add(1)
		go c.lookup(watchFace, id, onResult)
	}
	return nil
}

func (c *Client) lookup(watchFace string, id int, onResult ResultFunc) {
	defer c.wg.Done()

	select {
	case c.sem <- struct{}{}:
	case <-c.ctx.Done():
		return
	}
	start := time.Now()
	info, known, err := c.backend.Lookup(c.ctx, watchFace, id)
	<-c.sem
	metrics.LookupDuration.WithLabelValues(c.backend.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		if c.ctx.Err() == nil {
			metrics.LookupErrors.WithLabelValues(c.backend.Name()).Inc()
			c.logger.Warn("provider lookup failed", "slot_id", id, "backend", c.backend.Name(), "error", err)
		}
		return
	}
	if !known {
		c.logger.Debug("provider lookup: slot unknown to backend", "slot_id", id)
		return
	}

	// Read lock spans onResult; Release flips state under the write lock.
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != stateReady {
		return
	}
	onResult(id, info)
}

// Release stops delivery, waits for in-flight lookups to finish and closes
// the backend. After Release returns no ResultFunc is running or will run.
// Further calls are no-ops.
func (c *Client) Release() error {
	c.mu.Lock()
	prev := c.state
	c.state = stateReleased
	c.mu.Unlock()

	if prev != stateReady {
		return nil
	}
	c.cancel()
	c.wg.Wait()
	c.logger.Debug("lookup client released", "backend", c.backend.Name())
	return c.backend.Close()
}

// Released reports whether Release has been called.
func (c *Client) Released() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == stateReleased
}
