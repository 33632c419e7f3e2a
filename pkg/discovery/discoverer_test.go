package discovery

import (
	"testing"
)

func added(name, addr string, port int) event {
	return event{
		kind: serviceAdded,
		record: ServiceRecord{
			Name:      name,
			Addresses: []string{addr},
			Port:      port,
			Server:    name + ".local.",
		},
	}
}

func removed(name string) event {
	return event{kind: serviceRemoved, record: ServiceRecord{Name: name}}
}

func TestAccumulateDeduplicates(t *testing.T) {
	var records []ServiceRecord

	records = accumulate(records, added("stgserver", "192.168.1.10", 6161))
	records = accumulate(records, added("stgserver", "192.168.1.10", 6161))

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
}

func TestAccumulateKeepsDistinctServers(t *testing.T) {
	var records []ServiceRecord

	records = accumulate(records, added("stgserver", "192.168.1.10", 6161))
	records = accumulate(records, added("otherserver", "192.168.1.11", 6161))
	records = accumulate(records, added("stgserver", "192.168.1.12", 6161))

	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
}

func TestAccumulateRemovesByName(t *testing.T) {
	var records []ServiceRecord

	records = accumulate(records, added("stgserver", "192.168.1.10", 6161))
	records = accumulate(records, added("otherserver", "192.168.1.11", 6161))
	records = accumulate(records, removed("stgserver"))

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Name != "otherserver" {
		t.Errorf("remaining record = %q, want %q", records[0].Name, "otherserver")
	}
}

func TestAccumulateIgnoresAddressless(t *testing.T) {
	records := accumulate(nil, event{
		kind:   serviceAdded,
		record: ServiceRecord{Name: "stgserver", Port: 6161},
	})

	if len(records) != 0 {
		t.Fatalf("got %d records, want 0", len(records))
	}
}

func TestIdentityLabel(t *testing.T) {
	tests := []struct {
		name     string
		server   string
		instance string
		expected string
	}{
		{name: "from server label", server: "stgserver.local.", instance: "ignored", expected: "stgserver"},
		{name: "fallback to instance", server: "", instance: "stgserver._stgserver._tcp.local.", expected: "stgserver"},
		{name: "bare label", server: "myhost", instance: "", expected: "myhost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := identityLabel(tt.server, tt.instance); got != tt.expected {
				t.Errorf("identityLabel(%q, %q) = %q, want %q", tt.server, tt.instance, got, tt.expected)
			}
		})
	}
}

func TestLocalIP(t *testing.T) {
	ip, err := LocalIP()
	if err != nil {
		t.Skipf("no usable network address on this host: %v", err)
	}
	if ip == "" {
		t.Error("LocalIP() returned empty address without error")
	}
}
