package chooser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ferro-labs/faceslots/internal/circuitbreaker"
	"github.com/ferro-labs/faceslots/internal/logging"
	"github.com/ferro-labs/faceslots/internal/metrics"
	"github.com/ferro-labs/faceslots/providers"
)

// CallbackPath is where the external chooser reports a session result,
// relative to the callback base URL. The token replaces {token}.
const CallbackPath = "/v1/chooser/sessions/{token}"

// SessionRequest is the JSON body posted to the external chooser service.
type SessionRequest struct {
	Token          Token            `json:"token"`
	WatchFace      string           `json:"watch_face"`
	SlotID         int              `json:"slot_id"`
	SupportedTypes []providers.Type `json:"supported_types"`
	CallbackURL    string           `json:"callback_url"`
}

type pendingSession struct {
	watchFace string
	slotID    int
	reply     ReplyFunc
	started   time.Time
}

// HTTP hands chooser sessions to an external service. The service answers
// later by calling back into the daemon, which forwards to Complete.
type HTTP struct {
	endpoint     string
	callbackBase string
	client       *http.Client
	breaker      *circuitbreaker.CircuitBreaker
	binder       Binder
	logger       *slog.Logger

	mu      sync.Mutex
	pending map[Token]pendingSession
}

// HTTPOption configures an HTTP launcher.
type HTTPOption func(*HTTP)

// WithHTTPClient overrides the client used to post sessions.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// WithBreaker overrides the circuit breaker guarding the chooser endpoint.
func WithBreaker(cb *circuitbreaker.CircuitBreaker) HTTPOption {
	return func(h *HTTP) {
		if cb != nil {
			h.breaker = cb
		}
	}
}

// WithHTTPBinder persists every non-nil answer before it is reported.
func WithHTTPBinder(b Binder) HTTPOption {
	return func(h *HTTP) { h.binder = b }
}

// WithHTTPLogger sets the launcher logger.
func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(h *HTTP) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHTTP creates a launcher posting sessions to endpoint. callbackBase is
// the externally reachable base URL of this daemon.
func NewHTTP(endpoint, callbackBase string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		endpoint:     endpoint,
		callbackBase: strings.TrimRight(callbackBase, "/"),
		client:       &http.Client{Timeout: 10 * time.Second},
		breaker:      circuitbreaker.New(5, 1, 30*time.Second),
		logger:       slog.Default(),
		pending:      make(map[Token]pendingSession),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.breaker.OnStateChange(func(s circuitbreaker.State) {
		metrics.ChooserCircuitState.Set(float64(s))
	})
	return h
}

// Launch implements Launcher. The post runs in the background; a failed
// post or an open circuit answers the session with a nil provider.
func (h *HTTP) Launch(ctx context.Context, req Request, reply ReplyFunc) (Token, error) {
	token := NewToken()
	req = cloneRequest(req)

	h.mu.Lock()
	h.pending[token] = pendingSession{
		watchFace: req.WatchFace,
		slotID:    req.SlotID,
		reply:     reply,
		started:   time.Now(),
	}
	h.mu.Unlock()

	sessionCtx := logging.WithSessionID(context.WithoutCancel(ctx), string(token))
	go h.post(sessionCtx, token, req)
	return token, nil
}

func (h *HTTP) post(ctx context.Context, token Token, req Request) {
	log := logging.FromContext(ctx, h.logger)

	body, err := json.Marshal(SessionRequest{
		Token:          token,
		WatchFace:      req.WatchFace,
		SlotID:         req.SlotID,
		SupportedTypes: req.SupportedTypes,
		CallbackURL:    h.callbackURL(token),
	})
	if err != nil {
		log.Error("chooser: encode session request", "error", err)
		h.finish(token, nil)
		return
	}

	err = h.breaker.Do(ctx, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		resp, err := h.client.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusMultipleChoices {
			return fmt.Errorf("chooser service returned %s", resp.Status)
		}
		return nil
	})
	if err != nil {
		log.Warn("chooser: session could not be started", "slot_id", req.SlotID, "error", err)
		h.finish(token, nil)
		return
	}
	log.Debug("chooser session started", "slot_id", req.SlotID, "endpoint", h.endpoint)
}

// Complete delivers the external chooser's answer for token. A nil provider
// means the user cancelled.
func (h *HTTP) Complete(token Token, provider *providers.Info) error {
	if !h.finish(token, provider) {
		return fmt.Errorf("%w: %s", ErrUnknownSession, token)
	}
	return nil
}

// Pending returns the number of sessions awaiting an answer.
func (h *HTTP) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

// finish removes token and replies once. It reports whether token was
// outstanding. A choice the binder cannot persist is reported as none.
func (h *HTTP) finish(token Token, provider *providers.Info) bool {
	h.mu.Lock()
	p, ok := h.pending[token]
	delete(h.pending, token)
	h.mu.Unlock()
	if !ok {
		return false
	}
	if provider != nil && h.binder != nil {
		ctx := logging.WithSessionID(context.Background(), string(token))
		if err := h.binder.Bind(ctx, p.watchFace, p.slotID, provider); err != nil {
			logging.FromContext(ctx, h.logger).Warn("chooser: persisting selection failed", "slot_id", p.slotID, "error", err)
			provider = nil
		}
	}
	h.logger.Debug("chooser session answered",
		"session_id", string(token),
		"slot_id", p.slotID,
		"provider", provider.String(),
		"duration_ms", time.Since(p.started).Milliseconds(),
	)
	p.reply(Response{Token: token, SlotID: p.slotID, Provider: provider.Clone()})
	return true
}

func (h *HTTP) callbackURL(token Token) string {
	return h.callbackBase + strings.Replace(CallbackPath, "{token}", string(token), 1)
}
