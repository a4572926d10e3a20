package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/htried/taxi-diff-privacy/pages"
	"github.com/htried/taxi-diff-privacy/tdp"
)

const (
	defaultInterval = 50 * time.Millisecond
	minInterval     = 10 * time.Millisecond
	maxInterval     = 10 * time.Second
)

var errStopped = errors.New("simulation stopped")

// control is a message from the client
type control struct {
	// "stop" ends the simulation, "eps" changes epsilon and starts a new histogram
	Action string  `json:"action"`
	Eps    float64 `json:"eps,omitempty"`
}

// simMessage is pushed to the client on every tick
type simMessage struct {
	Session string          `json:"session"`
	Eps     float64         `json:"eps"`
	Step    pages.WhiteStep `json:"step"`
}

// parseInterval reads the tick length in milliseconds
func parseInterval(r *http.Request, def time.Duration) (time.Duration, error) {
	v := r.URL.Query().Get("interval")
	if v == "" {
		return def, nil
	}
	ms, err := strconv.Atoi(v)
	d := time.Duration(ms) * time.Millisecond
	if err != nil || d < minInterval || d > maxInterval {
		return 0, &tdp.ValidationError{Param: "interval", Value: v, Msg: fmt.Sprintf("must be between %d and %d ms", minInterval.Milliseconds(), maxInterval.Milliseconds())}
	}
	return d, nil
}

// function to stream the white-page histogram as it fills up
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	vars, err := tdp.ValidateApiArgs(r)
	if err != nil {
		sendError(w, statusOf(err), err)
		return
	}
	interval, err := parseInterval(r, s.interval)
	if err != nil {
		sendError(w, statusOf(err), err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warningf("websocket upgrade error: %v", err)
		return
	}
	session := s.pages.White.NewSession(uuid.NewString())
	log.V(1).Infof("simulation %s started", session.ID)

	epsCh := make(chan float64, 1)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		return readControl(conn, epsCh)
	})
	g.Go(func() error {
		// closing the connection unblocks the reader
		defer conn.Close()
		return s.simulate(ctx, conn, session, vars, interval, epsCh)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errStopped) && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Warningf("simulation %s ended: %v", session.ID, err)
		return
	}
	log.V(1).Infof("simulation %s stopped", session.ID)
}

// readControl handles client messages until the client stops or leaves.
func readControl(conn *websocket.Conn, epsCh chan float64) error {
	for {
		var msg control
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		switch msg.Action {
		case "stop":
			return errStopped
		case "eps":
			if !tdp.ValidateEpsilon(msg.Eps) {
				continue
			}
			// keep only the latest change
			select {
			case <-epsCh:
			default:
			}
			epsCh <- msg.Eps
		}
	}
}

// simulate steps the session every interval until ctx is done.
func (s *Server) simulate(ctx context.Context, conn *websocket.Conn, session *pages.WhiteSession, vars tdp.PageVars, interval time.Duration, epsCh <-chan float64) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		case eps := <-epsCh:
			vars.Epsilon = eps
		case <-ticker.C:
			st := pages.NewState(vars, s.gen, s.policy.Get())
			step, err := session.Step(st)
			if err != nil {
				return err
			}
			if err := conn.WriteJSON(simMessage{Session: session.ID, Eps: vars.Epsilon, Step: step}); err != nil {
				return err
			}
		}
	}
}
