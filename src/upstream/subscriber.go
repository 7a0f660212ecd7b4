// Package upstream implements the client side of Simply Plural's websocket
// API: connect, authenticate, keep-alive, reconnect-with-backoff, and
// classify inbound frames so FleetManager knows when to re-resolve fronts.
// Grounded in simply_plural_websocket.rs's
// auto_reconnecting_websocket_client_to_simply_plural.
package upstream

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"sp2any/src/utils"
)

const (
	retryWait                 = 60 * time.Second
	retryWaitAfterAuthFailure = 60 * time.Minute
	keepAliveInterval         = 30 * time.Second
	authFailureMarker         = "Authentication violation"
	authSuccessMarker         = "Successfully authenticated"
)

// websocketURL is a var (not a const) so tests can point it at a local
// fake server instead of SP's real endpoint.
var websocketURL = "wss://api.apparyllis.com/v1/socket"

// State is the subscriber's current connection phase, surfaced for
// diagnostics (spec §4.4.1).
type State int

const (
	Connecting State = iota
	Authenticating
	Authenticated
	Closed
)

// Subscriber maintains one long-lived, auto-reconnecting connection to SP's
// websocket for a single user's token, delivering a relevance-classified
// event to OnEvent and one OnConnect callback per successful
// (re)authentication (so callers can re-resolve fronts after any gap that
// might have dropped events).
type Subscriber struct {
	LogPrefix string
	Token     string

	// OnEvent receives the raw JSON text of every message that arrives
	// after authentication completes.
	OnEvent func(ctx context.Context, raw string) error
	// OnConnect is called once per successful authentication, including
	// the very first one and every reconnect.
	OnConnect func(ctx context.Context) error

	state atomic.Int32
}

// Run drives the reconnect loop until ctx is canceled. It never returns
// before that (mirrors the source's `-> never::Never` signature via a
// blocking loop instead of a bottom type).
func (s *Subscriber) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			s.setState(Closed)
			return
		}

		logrus.WithField("ws", s.LogPrefix).Info("upstream subscriber starting")
		wait, err := s.runOnce(ctx)
		if err != nil {
			logrus.WithError(err).WithField("ws", s.LogPrefix).Warn("upstream subscriber connection ended")
		}

		s.setState(Connecting)
		select {
		case <-ctx.Done():
			s.setState(Closed)
			return
		case <-time.After(wait):
		}
	}
}

func (s *Subscriber) runOnce(ctx context.Context) (time.Duration, error) {
	s.setState(Connecting)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, websocketURL, nil)
	if err != nil {
		return retryWait, err
	}
	defer conn.Close()

	s.setState(Authenticating)
	if err := s.authenticate(conn); err != nil {
		return retryWait, err
	}

	authenticated := false
	done := make(chan error, 1)
	go s.readLoop(ctx, conn, &authenticated, done)

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0, nil
		case err := <-done:
			if err != nil && err.Error() == authFailureMarker {
				return retryWaitAfterAuthFailure, err
			}
			return retryWait, err
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
				return retryWait, err
			}
		}
	}
}

func (s *Subscriber) readLoop(ctx context.Context, conn *websocket.Conn, authenticated *bool, done chan<- error) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			done <- err
			return
		}
		text := string(msg)

		switch {
		case text == "pong":
			continue
		case text == "{}":
			continue
		case strings.Contains(text, authSuccessMarker):
			*authenticated = true
			s.setState(Authenticated)
			if s.OnConnect != nil {
				if err := s.OnConnect(ctx); err != nil {
					done <- err
					return
				}
			}
			continue
		case strings.Contains(text, authFailureMarker):
			done <- authFailureError{}
			return
		default:
			if !*authenticated {
				done <- authFailureError{}
				return
			}
			if s.OnEvent != nil {
				if err := s.OnEvent(ctx, text); err != nil {
					done <- err
					return
				}
			}
		}
	}
}

type authFailureError struct{}

func (authFailureError) Error() string { return authFailureMarker }

func (s *Subscriber) authenticate(conn *websocket.Conn) error {
	payload := map[string]string{"op": "authenticate", "token": s.Token}
	return conn.WriteJSON(payload)
}

func (s *Subscriber) setState(st State) {
	s.state.Store(int32(st))
	utils.Log.WithFields(logrus.Fields{"ws": s.LogPrefix, "state": st}).Debug("upstream subscriber state change")
}

// CurrentState returns the subscriber's last observed connection phase.
func (s *Subscriber) CurrentState() State { return State(s.state.Load()) }
