// Package network implements the stgmsg server (request loop, router,
// per-action handlers, mDNS advertisement) and the ClientSession peers
// use to talk to it.
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/stgmsg/stgmsg-node/pkg/discovery"
	"github.com/stgmsg/stgmsg-node/pkg/logging"
	"github.com/stgmsg/stgmsg-node/pkg/protocol"
	"github.com/stgmsg/stgmsg-node/pkg/storage"
)

const (
	// acceptPollInterval bounds how long an Accept can block, so the
	// loop observes shutdown promptly.
	acceptPollInterval = 500 * time.Millisecond

	// connTimeout bounds one full request/response exchange.
	connTimeout = 30 * time.Second

	// shutdownGrace is the bounded wait for the advertiser to unwind.
	shutdownGrace = 2 * time.Second
)

// Server is the stgmsg server: one mDNS advertisement loop plus one
// strictly serial request loop. A request is fully answered before the
// next one is accepted; that single-in-flight constraint is what makes
// the per-operation database access safe.
type Server struct {
	cfg     *Config
	logger  *logging.Logger
	router  *Router
	localIP string
}

// NewServer prepares the data directory, opens the stores and resolves
// the local address. Failure of any of these aborts startup.
func NewServer(cfg *Config) (*Server, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %v", err)
	}

	logger, err := logging.New(cfg.LogsDBPath(), cfg.Debug)
	if err != nil {
		return nil, err
	}

	users, err := storage.NewUserStore(cfg.UsersDBPath())
	if err != nil {
		return nil, err
	}
	mailbox, err := storage.NewMailboxStore(cfg.MailboxDBPath())
	if err != nil {
		return nil, err
	}

	localIP, err := discovery.LocalIP()
	if err != nil {
		return nil, err
	}

	logger.Logf("SERVER", "server initialized with IP: %s, port: %d", localIP, cfg.RequestPort)

	return &Server{
		cfg:     cfg,
		logger:  logger,
		router:  NewRouter(cfg, users, mailbox, logger),
		localIP: localIP,
	}, nil
}

// Stores exposes the user and mailbox stores so the admin API can read
// through the same handles the request loop writes.
func (s *Server) Stores() (*storage.UserStore, *storage.MailboxStore) {
	return s.router.users, s.router.mailbox
}

// LocalIP returns the address the server advertises.
func (s *Server) LocalIP() string {
	return s.localIP
}

// Run starts the advertisement loop and the request loop and blocks
// until ctx is cancelled. Shutdown is best-effort: both loops observe
// cancellation within one polling interval, and the advertiser gets a
// bounded grace period to unregister.
func (s *Server) Run(ctx context.Context) error {
	addr, err := net.ResolveTCPAddr("tcp", fmt.Sprintf(":%d", s.cfg.RequestPort))
	if err != nil {
		return err
	}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %v", s.cfg.RequestPort, err)
	}
	defer listener.Close()

	s.logger.Logf("SERVER", "listening on :%d", s.cfg.RequestPort)

	advertiser := discovery.NewAdvertiser(s.cfg.ServerID, s.localIP, s.cfg.ServicePort)
	advDone := make(chan struct{})
	go func() {
		defer close(advDone)
		if err := advertiser.Run(ctx); err != nil {
			// Discovery failures are logged, not fatal; the server keeps
			// answering requests for clients that already know its address.
			s.logger.Logf("ERROR", "service advertisement: %v", err)
		}
	}()

	s.requestLoop(ctx, listener)

	select {
	case <-advDone:
	case <-time.After(shutdownGrace):
		s.logger.Log("SERVER", "advertiser did not stop in time, proceeding")
	}

	s.logger.Log("SERVER", "server stopped")
	return nil
}

// requestLoop accepts and fully serves one connection at a time,
// re-checking for shutdown between accepts.
func (s *Server) requestLoop(ctx context.Context, listener *net.TCPListener) {
	for {
		if ctx.Err() != nil {
			return
		}

		if err := listener.SetDeadline(time.Now().Add(acceptPollInterval)); err != nil {
			s.logger.Logf("ERROR", "request loop: %v", err)
			return
		}

		conn, err := listener.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			s.logger.Logf("ERROR", "accept: %v", err)
			continue
		}

		s.serveConn(conn)
	}
}

// serveConn handles one request/response exchange and closes the
// connection. Every failure still produces a structured response.
func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(connTimeout))

	req, err := protocol.ReadRequest(conn)
	if err != nil {
		s.logger.Logf("ERROR", "read request from %s: %v", conn.RemoteAddr(), err)
		resp := protocol.Errorf("Malformed request")
		_ = protocol.WriteResponse(conn, &resp)
		return
	}

	resp := s.router.Handle(req)
	if err := protocol.WriteResponse(conn, &resp); err != nil {
		s.logger.Logf("ERROR", "write response to %s: %v", conn.RemoteAddr(), err)
	}
}
