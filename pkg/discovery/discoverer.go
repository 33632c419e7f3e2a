package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/grandcat/zeroconf"
)

// eventKind distinguishes service announcements from goodbyes.
type eventKind int

const (
	serviceAdded eventKind = iota
	serviceRemoved
)

// event is one browse observation folded into the result list.
type event struct {
	kind   eventKind
	record ServiceRecord
}

// Discoverer browses the LAN for stgmsg servers.
type Discoverer struct {
	Timeout time.Duration
}

// NewDiscoverer creates a discoverer with the given browse window.
func NewDiscoverer(timeout time.Duration) *Discoverer {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Discoverer{Timeout: timeout}
}

// Discover browses for the full timeout window and returns every server
// seen, deduplicated by (identity, first address). It deliberately waits
// out the whole window instead of returning on the first hit, trading
// latency for a complete picture of the LAN.
func (d *Discoverer) Discover(ctx context.Context) ([]ServiceRecord, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	browseCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(browseCtx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse: %w", err)
	}

	var found []ServiceRecord
	for entry := range entries {
		found = accumulate(found, entryEvent(entry))
	}

	return found, nil
}

// entryEvent maps a zeroconf entry to an Added or Removed event. A
// goodbye packet arrives as an entry with TTL zero.
func entryEvent(entry *zeroconf.ServiceEntry) event {
	record := ServiceRecord{
		Name:   identityLabel(entry.HostName, entry.Instance),
		Port:   entry.Port,
		Server: entry.HostName,
	}
	for _, ip := range entry.AddrIPv4 {
		record.Addresses = append(record.Addresses, ip.String())
	}

	kind := serviceAdded
	if entry.TTL == 0 {
		kind = serviceRemoved
	}
	return event{kind: kind, record: record}
}

// accumulate folds one event into the running result list. Added events
// append unless a record with the same identity and first address is
// already present; Removed events evict matching entries by name.
func accumulate(records []ServiceRecord, ev event) []ServiceRecord {
	switch ev.kind {
	case serviceAdded:
		if len(ev.record.Addresses) == 0 {
			return records
		}
		for _, r := range records {
			if r.Name == ev.record.Name && r.Addresses[0] == ev.record.Addresses[0] {
				return records
			}
		}
		return append(records, ev.record)

	case serviceRemoved:
		kept := records[:0]
		for _, r := range records {
			if r.Name != ev.record.Name {
				kept = append(kept, r)
			}
		}
		return kept
	}

	return records
}
