package network

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/stgmsg/stgmsg-node/pkg/crypto"
	"github.com/stgmsg/stgmsg-node/pkg/discovery"
	"github.com/stgmsg/stgmsg-node/pkg/protocol"
	"github.com/stgmsg/stgmsg-node/pkg/stego"
)

var (
	ErrNotConnected     = errors.New("not connected")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Message is a fetched mail after client-side decryption.
type Message struct {
	From      string
	Body      string
	CreatedAt string
}

// ClientSession is the peer side of the protocol: it discovers a
// server, opens one synchronous request/response exchange per action
// and keeps the credentials needed to derive the user's own key.
// The password hash never leaves the session except as the 8-byte
// login prefix or embedded in the registration picture.
type ClientSession struct {
	cfg *Config

	serverAddr string

	username     string
	passwordHash []byte
}

// NewClientSession creates a session with no server attached yet.
func NewClientSession(cfg *Config) *ClientSession {
	return &ClientSession{cfg: cfg}
}

// DiscoverServers browses the LAN for the configured window and
// returns every advertised server, first-found first.
func (c *ClientSession) DiscoverServers(ctx context.Context) ([]discovery.ServiceRecord, error) {
	return discovery.NewDiscoverer(c.cfg.DiscoverTimeout).Discover(ctx)
}

// Connect binds the session to a server address. The request channel
// always lives on the fixed request port, not the advertised one.
func (c *ClientSession) Connect(address string) {
	c.serverAddr = net.JoinHostPort(address, strconv.Itoa(c.cfg.RequestPort))
}

// Username returns the authenticated username, if any.
func (c *ClientSession) Username() string {
	return c.username
}

// call performs one synchronous request/response exchange on a fresh
// connection.
func (c *ClientSession) call(req *protocol.Request) (*protocol.Response, error) {
	if c.serverAddr == "" {
		return nil, ErrNotConnected
	}

	conn, err := net.DialTimeout("tcp", c.serverAddr, connTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer conn.Close()

	if err := protocol.WriteRequest(conn, req); err != nil {
		return nil, err
	}
	return protocol.ReadResponse(conn)
}

// respErr folds an error response into a Go error.
func respErr(resp *protocol.Response) error {
	if resp.Status != protocol.StatusSuccess {
		return errors.New(resp.Message)
	}
	return nil
}

// Register hashes the password, embeds the hash into the cover picture
// and submits the result. On success the session is authenticated as
// the new user.
func (c *ClientSession) Register(username, password, picturePath string) error {
	cover, err := os.ReadFile(picturePath)
	if err != nil {
		return fmt.Errorf("failed to read picture: %w", err)
	}

	hash := crypto.HashPassword(password)

	stegoPNG, err := stego.EmbedPayload(cover, hash)
	if err != nil {
		return fmt.Errorf("failed to embed hash: %w", err)
	}

	resp, err := c.call(&protocol.Request{
		Action:       protocol.ActionRegister,
		Username:     username,
		Picture:      base64.StdEncoding.EncodeToString(stegoPNG),
		PasswordHash: base64.StdEncoding.EncodeToString(hash),
	})
	if err != nil {
		return err
	}
	if err := respErr(resp); err != nil {
		return err
	}

	c.username = username
	c.passwordHash = hash
	return nil
}

// Login authenticates with the first 8 bytes of the password hash. The
// full hash stays local; it is needed later to derive the user's key.
func (c *ClientSession) Login(username, password string) error {
	hash := crypto.HashPassword(password)
	prefix, err := crypto.HashPrefix(hash)
	if err != nil {
		return err
	}

	resp, err := c.call(&protocol.Request{
		Action:             protocol.ActionLogin,
		Username:           username,
		PasswordHashPrefix: base64.StdEncoding.EncodeToString(prefix),
	})
	if err != nil {
		return err
	}
	if err := respErr(resp); err != nil {
		return err
	}

	c.username = username
	c.passwordHash = hash
	return nil
}

// key derives the session user's own symmetric key.
func (c *ClientSession) key() ([]byte, error) {
	if c.username == "" {
		return nil, ErrNotAuthenticated
	}
	return crypto.DeriveKey(c.username, c.passwordHash)
}

// Send encrypts a message under the sender's own key and submits it;
// the server re-encrypts it for the recipient in transit.
func (c *ClientSession) Send(to, message string) error {
	key, err := c.key()
	if err != nil {
		return err
	}

	blob, err := crypto.Encrypt(key, message)
	if err != nil {
		return err
	}

	resp, err := c.call(&protocol.Request{
		Action: protocol.ActionSend,
		From:   c.username,
		To:     to,
		Body:   base64.StdEncoding.EncodeToString(blob),
	})
	if err != nil {
		return err
	}
	return respErr(resp)
}

// Fetch retrieves the session user's mailbox and decrypts each body
// with their own derived key. A body that fails to decrypt is kept
// with a placeholder rather than dropped, so the mailbox stays honest
// about what arrived.
func (c *ClientSession) Fetch() ([]Message, error) {
	key, err := c.key()
	if err != nil {
		return nil, err
	}

	resp, err := c.call(&protocol.Request{
		Action:   protocol.ActionFetch,
		Username: c.username,
	})
	if err != nil {
		return nil, err
	}
	if err := respErr(resp); err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(resp.Messages))
	for _, env := range resp.Messages {
		msg := Message{From: env.From, CreatedAt: env.CreatedAt}

		blob, err := base64.StdEncoding.DecodeString(env.Body)
		if err == nil {
			msg.Body, err = crypto.Decrypt(key, blob)
		}
		if err != nil {
			msg.Body = "(unreadable message)"
		}

		messages = append(messages, msg)
	}

	return messages, nil
}

// ListUsers returns every registered username on the server.
func (c *ClientSession) ListUsers() ([]string, error) {
	resp, err := c.call(&protocol.Request{Action: protocol.ActionGetUsers})
	if err != nil {
		return nil, err
	}
	if err := respErr(resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}
