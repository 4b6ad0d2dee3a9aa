// Package server exposes the sample history over TCP: every non-empty
// request on a connection is answered with a full JSON snapshot.
package server

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/wwatcher/internal/errors"
	"codeberg.org/mutker/wwatcher/internal/logger"
	"codeberg.org/mutker/wwatcher/internal/shutdown"
	"codeberg.org/mutker/wwatcher/internal/store"
)

const (
	// RequestSize is the largest request read in one go; content is ignored.
	RequestSize = 32

	acceptBackoff = 50 * time.Millisecond
)

// Snapshotter yields a consistent copy of the history.
type Snapshotter interface {
	Snapshot() []store.Sample
}

type Config struct {
	Addr string
}

type Server struct {
	cfg    Config
	source Snapshotter
	flag   *shutdown.Flag

	ln     *net.TCPListener
	wg     sync.WaitGroup
	active atomic.Int32
}

func New(cfg Config, source Snapshotter, flag *shutdown.Flag) *Server {
	return &Server{cfg: cfg, source: source, flag: flag}
}

// Listen binds the listening socket.
func (s *Server) Listen() error {
	errFactory := errors.New()

	addr, err := net.ResolveTCPAddr("tcp", s.cfg.Addr)
	if err != nil {
		return errFactory.Wrap(errors.ErrNetworkFailure, err)
	}

	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return errFactory.Wrap(errors.ErrNetworkFailure, err)
	}
	s.ln = ln

	logger.Info().Str("addr", ln.Addr().String()).Msg("Snapshot server listening")

	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ActiveConnections returns the number of live client handlers.
func (s *Server) ActiveConnections() int {
	return int(s.active.Load())
}

// Serve accepts connections until the shutdown flag is set, then closes
// the listener. Open connections are left to finish on their own.
func (s *Server) Serve() error {
	errFactory := errors.New()

	if s.ln == nil {
		return errFactory.WithMessage(errors.ErrNetworkFailure, "server is not listening")
	}
	defer s.ln.Close()

	for !s.flag.IsSet() {
		if err := s.ln.SetDeadline(time.Now().Add(shutdown.PollInterval)); err != nil {
			return errFactory.Wrap(errors.ErrNetworkFailure, err)
		}

		conn, err := s.ln.AcceptTCP()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return errFactory.Wrap(errors.ErrNetworkFailure, err)
			}

			logger.Warn().Err(err).Msg("Accept failed")
			time.Sleep(acceptBackoff)
			continue
		}

		s.wg.Add(1)
		s.active.Add(1)
		go s.handle(conn)
	}

	logger.Info().Msg("Snapshot server stopped accepting")

	return nil
}

// Wait blocks until all connection handlers have returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) handle(conn *net.TCPConn) {
	defer s.wg.Done()
	defer s.active.Add(-1)
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	logger.Debug().Str("remote", remote).Msg("Client connected")

	buf := make([]byte, RequestSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			body, encErr := Encode(s.source.Snapshot())
			if encErr != nil {
				logger.Error().Err(encErr).Str("remote", remote).Msg("Failed to encode snapshot")
				return
			}
			if _, werr := conn.Write(body); werr != nil {
				logger.Debug().
					Err(errors.New().Wrap(errors.ErrNetworkFailure, werr)).
					Str("remote", remote).
					Msg("Write failed, closing connection")
				return
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug().
					Err(errors.New().Wrap(errors.ErrNetworkFailure, err)).
					Str("remote", remote).
					Msg("Read failed, closing connection")
			}
			logger.Debug().Str("remote", remote).Msg("Client disconnected")
			return
		}
	}
}
