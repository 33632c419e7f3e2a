package network

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/stgmsg/stgmsg-node/pkg/crypto"
	"github.com/stgmsg/stgmsg-node/pkg/logging"
	"github.com/stgmsg/stgmsg-node/pkg/protocol"
	"github.com/stgmsg/stgmsg-node/pkg/stego"
	"github.com/stgmsg/stgmsg-node/pkg/storage"
)

// systemSender is the synthetic author of server-generated envelopes.
// It has no identity row of its own.
const systemSender = "server"

// Router dispatches action requests to their handlers. Requests are
// self-contained, so the router keeps no per-connection state.
type Router struct {
	cfg     *Config
	users   *storage.UserStore
	mailbox *storage.MailboxStore
	logger  *logging.Logger
}

// NewRouter wires a router to its stores.
func NewRouter(cfg *Config, users *storage.UserStore, mailbox *storage.MailboxStore, logger *logging.Logger) *Router {
	return &Router{cfg: cfg, users: users, mailbox: mailbox, logger: logger}
}

// Handle routes one request and always returns a structured response.
// Arbitrary or hostile input must degrade to an error response; a
// single malformed request never takes the request loop down.
func (r *Router) Handle(req *protocol.Request) (resp protocol.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Logf("ERROR", "handler panic on %s: %v", req.Action, rec)
			resp = protocol.Errorf("Internal server error")
		}
	}()

	switch req.Action {
	case protocol.ActionRegister:
		return r.handleRegister(req)
	case protocol.ActionLogin:
		return r.handleLogin(req)
	case protocol.ActionSend:
		return r.handleSend(req)
	case protocol.ActionFetch:
		return r.handleFetch(req)
	case protocol.ActionGetUsers:
		return r.handleGetUsers(req)
	default:
		return protocol.Errorf("Unknown action")
	}
}

// handleRegister creates an identity. The 32-byte hash embedded in the
// submitted picture is authoritative; the separate password_hash field
// is advisory only and a mismatch is logged, not rejected.
func (r *Router) handleRegister(req *protocol.Request) protocol.Response {
	if req.Username == "" || req.Picture == "" {
		return protocol.Errorf("Missing required fields")
	}

	exists, err := r.users.Exists(req.Username)
	if err != nil {
		r.logger.Logf("ERROR", "register: %v", err)
		return protocol.Errorf("Storage failure")
	}
	if exists {
		return protocol.Errorf("Username already exists")
	}

	picture, err := base64.StdEncoding.DecodeString(req.Picture)
	if err != nil {
		return protocol.Errorf("Invalid picture encoding")
	}

	embeddedHash, err := stego.ExtractPayload(picture)
	if err != nil {
		return protocol.Errorf(fmt.Sprintf("Failed to extract hash from picture: %v", err))
	}

	if req.PasswordHash != "" {
		submitted, err := base64.StdEncoding.DecodeString(req.PasswordHash)
		if err != nil || !bytes.Equal(submitted, embeddedHash) {
			r.logger.Logf("REGISTER", "%s: submitted hash differs from embedded hash, trusting the image", req.Username)
		}
	}

	picturePath, err := r.savePicture(req.Username, picture)
	if err != nil {
		r.logger.Logf("ERROR", "register: %v", err)
		return protocol.Errorf("Failed to store picture")
	}

	identity := &storage.Identity{
		Username:     req.Username,
		PasswordHash: embeddedHash,
		PicturePath:  picturePath,
	}
	if err := r.users.CreateUser(identity); err != nil {
		if err == storage.ErrUserExists {
			return protocol.Errorf("Username already exists")
		}
		r.logger.Logf("ERROR", "register: %v", err)
		return protocol.Errorf("Storage failure")
	}

	if err := r.sendWelcome(req.Username, embeddedHash); err != nil {
		// The identity is already in place; a lost welcome mail is not
		// worth failing the registration over.
		r.logger.Logf("ERROR", "register: welcome mail: %v", err)
	}

	r.logger.Logf("REGISTER", "%s registered", req.Username)
	return protocol.Success()
}

// savePicture writes the stego picture under the images directory and
// returns its path relative to the data directory.
func (r *Router) savePicture(username string, picture []byte) (string, error) {
	if err := os.MkdirAll(r.cfg.ImagesDir(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create images directory: %v", err)
	}

	relative := filepath.Join("images", username+".png")
	if err := os.WriteFile(filepath.Join(r.cfg.DataDir, relative), picture, 0o644); err != nil {
		return "", fmt.Errorf("failed to write picture: %v", err)
	}

	return relative, nil
}

// sendWelcome stores a system-authored envelope encrypted under the new
// user's freshly derivable key.
func (r *Router) sendWelcome(username string, passwordHash []byte) error {
	key, err := crypto.DeriveKey(username, passwordHash)
	if err != nil {
		return err
	}

	body, err := crypto.Encrypt(key, fmt.Sprintf("Welcome to stgmsg, %s!", username))
	if err != nil {
		return err
	}

	return r.mailbox.SaveEnvelope(&storage.MailEnvelope{
		To:        username,
		From:      systemSender,
		Body:      body,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleLogin compares the submitted 8-byte prefix against the stored
// hash. The full hash never crosses the wire and no key is ever derived
// here; the response is deliberately uniform to avoid telling unknown
// usernames apart from wrong passwords.
func (r *Router) handleLogin(req *protocol.Request) protocol.Response {
	if req.Username == "" || req.PasswordHashPrefix == "" {
		return protocol.Errorf("Missing required fields")
	}

	identity, err := r.users.GetUser(req.Username)
	if err != nil {
		if err == storage.ErrNotFound {
			return protocol.Errorf("Invalid username or password")
		}
		r.logger.Logf("ERROR", "login: %v", err)
		return protocol.Errorf("Storage failure")
	}

	submitted, err := base64.StdEncoding.DecodeString(req.PasswordHashPrefix)
	if err != nil || len(submitted) != crypto.PrefixSize {
		return protocol.Errorf("Invalid username or password")
	}

	stored, err := crypto.HashPrefix(identity.PasswordHash)
	if err != nil || !bytes.Equal(submitted, stored) {
		return protocol.Errorf("Invalid username or password")
	}

	r.logger.Logf("LOGIN", "%s logged in", req.Username)
	return protocol.Success()
}

// handleSend relays a message: decrypt under the sender's derived key,
// re-encrypt under the recipient's, persist. Plaintext exists only
// transiently in memory here; at-rest storage stays ciphertext-only.
func (r *Router) handleSend(req *protocol.Request) protocol.Response {
	if req.From == "" || req.To == "" || req.Body == "" {
		return protocol.Errorf("Missing required fields")
	}

	senderKey, resp := r.deriveUserKey(req.From, "Unknown sender")
	if resp != nil {
		return *resp
	}
	recipientKey, resp := r.deriveUserKey(req.To, "Unknown recipient")
	if resp != nil {
		return *resp
	}

	blob, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		return protocol.Errorf("Invalid body encoding")
	}

	plaintext, err := crypto.Decrypt(senderKey, blob)
	if err != nil {
		return protocol.Errorf("Failed to decrypt message body")
	}

	body, err := crypto.Encrypt(recipientKey, plaintext)
	if err != nil {
		r.logger.Logf("ERROR", "send: %v", err)
		return protocol.Errorf("Failed to re-encrypt message body")
	}

	env := &storage.MailEnvelope{
		To:        req.To,
		From:      req.From,
		Body:      body,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.mailbox.SaveEnvelope(env); err != nil {
		r.logger.Logf("ERROR", "send: %v", err)
		return protocol.Errorf("Storage failure")
	}

	r.logger.Logf("SEND", "%s -> %s", req.From, req.To)
	return protocol.Success()
}

// deriveUserKey loads a user's stored hash and derives their key,
// mapping every failure to the given error message.
func (r *Router) deriveUserKey(username, errMessage string) ([]byte, *protocol.Response) {
	identity, err := r.users.GetUser(username)
	if err != nil {
		resp := protocol.Errorf(errMessage)
		if err != storage.ErrNotFound {
			r.logger.Logf("ERROR", "key derivation for %s: %v", username, err)
			resp = protocol.Errorf("Storage failure")
		}
		return nil, &resp
	}

	key, err := crypto.DeriveKey(username, identity.PasswordHash)
	if err != nil {
		resp := protocol.Errorf(errMessage)
		return nil, &resp
	}

	return key, nil
}

// handleFetch returns every envelope addressed to a user, oldest first,
// ciphertext untouched.
func (r *Router) handleFetch(req *protocol.Request) protocol.Response {
	if req.Username == "" {
		return protocol.Errorf("Missing required fields")
	}

	if _, err := r.users.GetUser(req.Username); err != nil {
		if err == storage.ErrNotFound {
			return protocol.Errorf("Unknown username")
		}
		r.logger.Logf("ERROR", "fetch: %v", err)
		return protocol.Errorf("Storage failure")
	}

	envelopes, err := r.mailbox.FetchEnvelopes(req.Username)
	if err != nil {
		r.logger.Logf("ERROR", "fetch: %v", err)
		return protocol.Errorf("Storage failure")
	}

	resp := protocol.Success()
	resp.Messages = make([]protocol.Envelope, 0, len(envelopes))
	for _, env := range envelopes {
		resp.Messages = append(resp.Messages, protocol.Envelope{
			From:      env.From,
			Body:      base64.StdEncoding.EncodeToString(env.Body),
			CreatedAt: env.CreatedAt,
		})
	}

	return resp
}

// handleGetUsers lists every registered username; an empty directory is
// a success with an empty list.
func (r *Router) handleGetUsers(_ *protocol.Request) protocol.Response {
	usernames, err := r.users.ListUsernames()
	if err != nil {
		r.logger.Logf("ERROR", "get users: %v", err)
		return protocol.Errorf("Storage failure")
	}

	resp := protocol.Success()
	resp.Users = usernames
	if resp.Users == nil {
		resp.Users = []string{}
	}
	return resp
}
