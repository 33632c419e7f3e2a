package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/stgmsg/stgmsg-node/pkg/api"
	"github.com/stgmsg/stgmsg-node/pkg/network"
	"github.com/stgmsg/stgmsg-node/pkg/protocol"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "server":
		runServer(os.Args[2:])
	case "client":
		runClient(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [server|client] [flags]\n", os.Args[0])
}

func runServer(args []string) {
	flags := flag.NewFlagSet("server", flag.ExitOnError)
	id := flags.String("id", "stgserver", "Server identity announced via mDNS")
	dataDir := flags.String("data", ".stgmsg", "Data directory for databases and images")
	servicePort := flags.Int("service-port", protocol.DefaultServicePort, "Advertised mDNS port")
	requestPort := flags.Int("port", protocol.DefaultRequestPort, "Request/response port")
	apiPort := flags.Int("api-port", 0, "Admin HTTP API port (0 disables)")
	debug := flags.Bool("debug", false, "Enable debug logging")
	flags.Parse(args)

	cfg := network.DefaultConfig()
	cfg.ServerID = *id
	cfg.DataDir = *dataDir
	cfg.ServicePort = *servicePort
	cfg.RequestPort = *requestPort
	cfg.APIPort = *apiPort
	cfg.Debug = *debug

	server, err := network.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received %v, shutting down...", sig)
		cancel()
	}()

	if cfg.APIPort > 0 {
		users, mailbox := server.Stores()
		adminAPI := api.NewServer(cfg.APIPort, users, mailbox)
		go func() {
			log.Printf("Admin API listening on :%d", cfg.APIPort)
			if err := adminAPI.Start(ctx); err != nil {
				log.Printf("Admin API error: %v", err)
			}
		}()
	}

	log.Printf("stgmsg server %q on %s (request port %d)", cfg.ServerID, server.LocalIP(), cfg.RequestPort)

	if err := server.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func runClient(args []string) {
	flags := flag.NewFlagSet("client", flag.ExitOnError)
	dataDir := flags.String("data", ".stgmsg", "Data directory")
	requestPort := flags.Int("port", protocol.DefaultRequestPort, "Server request port")
	debug := flags.Bool("debug", false, "Enable debug logging")
	flags.Parse(args)

	cfg := network.DefaultConfig()
	cfg.DataDir = *dataDir
	cfg.RequestPort = *requestPort
	cfg.Debug = *debug

	shell := newShell(cfg)
	if err := shell.run(); err != nil {
		log.Fatalf("Client error: %v", err)
	}
}
