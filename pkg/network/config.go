package network

import (
	"path/filepath"
	"time"

	"github.com/stgmsg/stgmsg-node/pkg/protocol"
)

// Config holds everything the server and client need. It is built once
// at startup and passed down explicitly; there is no global state.
type Config struct {
	ServerID        string        // mDNS instance name, e.g. "stgserver"
	DataDir         string        // root for databases and images
	ServicePort     int           // advertised via mDNS
	RequestPort     int           // JSON request/response channel
	APIPort         int           // admin HTTP API, 0 disables it
	DiscoverTimeout time.Duration // client browse window
	Debug           bool
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() *Config {
	return &Config{
		ServerID:        "stgserver",
		DataDir:         ".stgmsg",
		ServicePort:     protocol.DefaultServicePort,
		RequestPort:     protocol.DefaultRequestPort,
		DiscoverTimeout: 5 * time.Second,
	}
}

// UsersDBPath returns the path of the users database.
func (c *Config) UsersDBPath() string {
	return filepath.Join(c.DataDir, "users.db")
}

// MailboxDBPath returns the path of the mailbox database.
func (c *Config) MailboxDBPath() string {
	return filepath.Join(c.DataDir, "mailbox.db")
}

// LogsDBPath returns the path of the log database.
func (c *Config) LogsDBPath() string {
	return filepath.Join(c.DataDir, "logs.db")
}

// ImagesDir returns the directory holding user cover pictures.
func (c *Config) ImagesDir() string {
	return filepath.Join(c.DataDir, "images")
}
