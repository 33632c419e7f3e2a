package discovery

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/grandcat/zeroconf"
)

// Advertiser announces a stgmsg server on the local network via mDNS.
type Advertiser struct {
	ID   string
	Addr string
	Port int
}

// NewAdvertiser creates an advertiser for the given server identity.
func NewAdvertiser(id, addr string, port int) *Advertiser {
	return &Advertiser{ID: id, Addr: addr, Port: port}
}

// Run registers the mDNS service and blocks, polling for cancellation,
// until ctx is done; then it unregisters and returns. It is meant to
// run on its own goroutine so it never stalls request handling.
func (a *Advertiser) Run(ctx context.Context) error {
	if a.Addr == "" || a.Port == 0 {
		return fmt.Errorf("cannot register service: no address or port provided")
	}

	host := fmt.Sprintf("%s.%s", a.ID, ServiceDomain)

	server, err := zeroconf.RegisterProxy(
		a.ID, ServiceType, ServiceDomain, a.Port,
		host, []string{a.Addr}, nil, nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	log.Printf("[SERVICE] registered %s @ %s:%d", a.ID, a.Addr, a.Port)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			server.Shutdown()
			log.Printf("[SERVICE] %s unregistered", a.ID)
			return nil
		case <-ticker.C:
		}
	}
}
