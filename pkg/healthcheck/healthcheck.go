// Package healthcheck exposes the sampler daemon's readiness over a Unix
// domain socket, so that callers can block until sampling is live.
package healthcheck

import (
	"context"
	"net"
	"os"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
)

// ReadyMsg is the single byte written to a client once the sampler is ready.
const ReadyMsg = 0x01

type Server struct {
	ln         net.Listener
	readyCh    chan struct{}
	socketPath string
	logger     log.Logger
}

func NewServer(socketPath string, logger log.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		readyCh:    make(chan struct{}),
		logger:     logger.With().Str("component", "healthcheck").Logger(),
	}
}

// Listen binds the readiness socket and starts accepting connections. A
// stale socket file from a previous run is removed first.
func (s *Server) Listen(ctx context.Context) error {
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return errors.Wrap(err, "failed to listen on readiness socket")
	}
	s.ln = ln

	go s.accept(ctx)

	return nil
}

// NotifyReadiness unblocks every pending and future readiness probe.
func (s *Server) NotifyReadiness() {
	s.logger.Debug().Msg("marking readiness")
	close(s.readyCh)
}

// Shutdown closes the listener and removes the socket file.
func (s *Server) Shutdown() error {
	if s.ln != nil {
		if err := s.ln.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("error closing listener")
		}
	}
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove readiness socket")
	}

	return nil
}

func (s *Server) accept(ctx context.Context) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			s.logger.Warn().Err(err).Msg("accept error")
			continue
		}

		go s.serve(ctx, conn)
	}
}

// serve answers one readiness probe: it holds the connection open until the
// sampler is ready, then writes ReadyMsg.
func (s *Server) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	select {
	case <-s.readyCh:
		if _, err := conn.Write([]byte{ReadyMsg}); err != nil {
			s.logger.Debug().Err(err).Msg("failed to write readiness message")
		}
	case <-ctx.Done():
	}
}
