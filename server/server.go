// Package server implements the TCP accept loop (spec.md §5): one
// goroutine per connection running a session.Handler, a ConnRegistry so
// shutdown can force every socket closed, and a periodic sweep reaping
// finished games from the game.Registry. Grounded on the teacher's
// main.go (engine → room manager → HTTP/websocket server wiring, a
// blocking ListenAndServe unwound by its error return) and
// server/websocket.go's per-connection readLoop, translated from
// golang.org/x/net/websocket's accept-per-request model to a raw
// net.Listener loop, since this protocol is a custom TCP frame format
// rather than HTTP/websocket.
package server

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/ironrailgames/railserver/config"
	"github.com/ironrailgames/railserver/game"
	"github.com/ironrailgames/railserver/mapdata"
	"github.com/ironrailgames/railserver/session"
	"github.com/ironrailgames/railserver/store"
)

// Server owns the listener and every live connection's goroutine.
type Server struct {
	cfg   config.Config
	log   *slog.Logger
	games *game.Registry
	store *store.Store
	maps  *mapdata.Store

	conns *ConnRegistry
	wg    sync.WaitGroup

	ln net.Listener
}

// New builds a Server bound to the given collaborators. Listen must be
// called before Serve.
func New(cfg config.Config, games *game.Registry, st *store.Store, maps *mapdata.Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:   cfg,
		log:   log,
		games: games,
		store: st,
		maps:  maps,
		conns: newConnRegistry(),
	}
}

// Listen binds the TCP listener. Separated from Serve so callers can log
// the bound address (useful when ServerPort is 0, for tests) before
// blocking in the accept loop.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.cfg.ServerAddr, strconv.Itoa(s.cfg.ServerPort)))
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Addr returns the bound listener's address. Only valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until the listener is closed (by Shutdown),
// spawning one handler goroutine per connection. It also runs a
// background sweep reaping finished games out of the registry every tick
// period, mirroring spec.md §3's "removed from the registry and never
// reopened" without requiring every caller to remember to do it.
func (s *Server) Serve() error {
	reapStop := make(chan struct{})
	reapDone := make(chan struct{})
	go func() {
		defer close(reapDone)
		s.reapLoop(reapStop)
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			close(reapStop)
			<-reapDone
			s.wg.Wait()
			return err
		}
		s.conns.add(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.conns.remove(conn)
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in connection handler", "remote", conn.RemoteAddr(), "panic", r)
		}
	}()
	h := session.NewHandler(conn, s.cfg, s.games, s.store, s.maps, s.log)
	h.Serve()
}

func (s *Server) reapLoop(stop <-chan struct{}) {
	interval := s.cfg.TickTime
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			s.games.Reap()
		}
	}
}

// Shutdown closes the listener (unblocking Accept), force-closes every
// live connection (unblocking their Read calls), stops every game's tick
// driver, and waits for every spawned goroutine to exit or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.ln != nil {
		s.ln.Close()
	}
	s.conns.CloseAll()
	s.games.StopAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
