package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/stgmsg/stgmsg-node/pkg/network"
)

// shell is the line-oriented interactive client. It is intentionally
// thin: all protocol work happens inside the ClientSession.
type shell struct {
	cfg     *network.Config
	session *network.ClientSession
	in      *bufio.Scanner
}

func newShell(cfg *network.Config) *shell {
	return &shell{
		cfg:     cfg,
		session: network.NewClientSession(cfg),
		in:      bufio.NewScanner(os.Stdin),
	}
}

func (s *shell) run() error {
	fmt.Println("stgmsg client")

	if err := s.connect(); err != nil {
		return err
	}
	if err := s.authenticate(); err != nil {
		return err
	}

	fmt.Println("Commands: users, send <to> <message>, fetch, quit")

	for {
		fmt.Print("> ")
		if !s.in.Scan() {
			return nil
		}
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "users":
			s.cmdUsers()
		case "send":
			if len(fields) < 3 {
				fmt.Println("usage: send <to> <message>")
				continue
			}
			s.cmdSend(fields[1], strings.Join(fields[2:], " "))
		case "fetch":
			s.cmdFetch()
		case "quit", "exit":
			return nil
		default:
			fmt.Printf("unknown command: %s\n", fields[0])
		}
	}
}

// connect discovers servers on the LAN and binds to the first one.
func (s *shell) connect() error {
	fmt.Printf("Searching for servers (%s)...\n", s.cfg.DiscoverTimeout)

	servers, err := s.session.DiscoverServers(context.Background())
	if err != nil {
		return err
	}
	if len(servers) == 0 {
		return fmt.Errorf("no servers found on the local network")
	}

	for i, srv := range servers {
		fmt.Printf("  [%d] %s @ %s:%d\n", i, srv.Name, srv.Addresses[0], srv.Port)
	}

	chosen := servers[0]
	s.session.Connect(chosen.Addresses[0])
	fmt.Printf("Connected to %s\n", chosen.Name)
	return nil
}

// authenticate asks for login or register until one succeeds.
func (s *shell) authenticate() error {
	for {
		fmt.Print("login or register? ")
		if !s.in.Scan() {
			return fmt.Errorf("input closed")
		}
		mode := strings.TrimSpace(s.in.Text())

		username := s.prompt("username: ")
		password := s.prompt("password: ")

		var err error
		switch mode {
		case "register":
			picture := s.prompt("cover picture path: ")
			err = s.session.Register(username, password, picture)
		case "login":
			err = s.session.Login(username, password)
		default:
			fmt.Println("please answer: login or register")
			continue
		}

		if err != nil {
			fmt.Printf("failed: %v\n", err)
			continue
		}

		fmt.Printf("welcome, %s\n", username)
		return nil
	}
}

func (s *shell) prompt(label string) string {
	fmt.Print(label)
	if !s.in.Scan() {
		return ""
	}
	return strings.TrimSpace(s.in.Text())
}

func (s *shell) cmdUsers() {
	users, err := s.session.ListUsers()
	if err != nil {
		fmt.Printf("failed: %v\n", err)
		return
	}
	for _, u := range users {
		fmt.Printf("  %s\n", u)
	}
}

func (s *shell) cmdSend(to, message string) {
	if err := s.session.Send(to, message); err != nil {
		fmt.Printf("failed: %v\n", err)
		return
	}
	fmt.Println("sent")
}

func (s *shell) cmdFetch() {
	messages, err := s.session.Fetch()
	if err != nil {
		fmt.Printf("failed: %v\n", err)
		return
	}
	if len(messages) == 0 {
		fmt.Println("mailbox empty")
		return
	}
	for _, m := range messages {
		fmt.Printf("  [%s] %s: %s\n", m.CreatedAt, m.From, m.Body)
	}
}
