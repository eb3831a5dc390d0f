// Package chooser starts provider-chooser sessions for a single slot.
//
// A session is fire-and-forget from the caller's side: Launch returns a
// token immediately and the session answers later, exactly once, through the
// ReplyFunc handed to Launch. A Response with a nil Provider means the user
// cancelled or the session failed.
//
// Two launchers are provided: Local picks from a provider catalog in-process
// (demo, tests, headless setups) and HTTP hands the session to an external
// chooser service that answers out-of-band via Complete.
package chooser

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"

	"github.com/ferro-labs/faceslots/providers"
)

// ErrUnknownSession is returned when a completion names a token that is not
// outstanding.
var ErrUnknownSession = errors.New("unknown chooser session")

// Token correlates a chooser session with its response.
type Token string

// NewToken returns a fresh random session token.
func NewToken() Token {
	return Token(uuid.NewString())
}

// Request asks the chooser for a provider for one slot.
type Request struct {
	WatchFace      string
	SlotID         int
	SupportedTypes []providers.Type
}

// Response is the single answer to a launched session.
type Response struct {
	Token    Token
	SlotID   int
	Provider *providers.Info
}

// ReplyFunc receives the response of a session. It may be called from any
// goroutine.
type ReplyFunc func(Response)

// Launcher starts chooser sessions.
type Launcher interface {
	// Launch starts a session and returns without waiting for the user.
	// On success reply is called exactly once; on error never.
	Launch(ctx context.Context, req Request, reply ReplyFunc) (Token, error)
}

// Binder persists a chosen provider, the way the platform records a
// selection before reporting it. lookup backends satisfy it.
type Binder interface {
	Bind(ctx context.Context, watchFace string, slotID int, info *providers.Info) error
}

func cloneRequest(req Request) Request {
	req.SupportedTypes = slices.Clone(req.SupportedTypes)
	return req
}
