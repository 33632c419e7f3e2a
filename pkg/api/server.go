// Package api provides a read-only HTTP admin API for a running stgmsg
// server: health, basic stats and the user directory. It exposes no
// ciphertext and no hashes.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stgmsg/stgmsg-node/pkg/storage"
)

// Server is the admin HTTP server. It is optional; the mail protocol
// works without it.
type Server struct {
	users   *storage.UserStore
	mailbox *storage.MailboxStore
	router  *gin.Engine
	port    int

	httpServer *http.Server
	startTime  time.Time
}

// StatsResponse reports directory and mailbox sizes.
type StatsResponse struct {
	Users         int    `json:"users"`
	Messages      int    `json:"messages"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Status        string `json:"status"`
}

// NewServer creates the admin API over the given stores.
func NewServer(port int, users *storage.UserStore, mailbox *storage.MailboxStore) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		users:     users,
		mailbox:   mailbox,
		router:    router,
		port:      port,
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/stats", s.handleStats)
		v1.GET("/users", s.handleUsers)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStats(c *gin.Context) {
	userCount, err := s.users.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	messageCount, err := s.mailbox.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, StatsResponse{
		Users:         userCount,
		Messages:      messageCount,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Status:        "ok",
	})
}

func (s *Server) handleUsers(c *gin.Context) {
	usernames, err := s.users.ListUsernames()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if usernames == nil {
		usernames = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"users": usernames})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
