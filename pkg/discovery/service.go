// Package discovery implements mDNS presence announcement and LAN
// lookup for stgmsg servers, built on grandcat/zeroconf.
//
// A server advertises itself as `<id>._stgserver._tcp.local.` with the
// host label `<id>.local.`, so discoverers recover the server identity
// from the first dot-separated segment of the host field.
package discovery

import (
	"errors"
	"net"
	"strings"
)

const (
	// ServiceType is the mDNS service type browsed and advertised
	ServiceType = "_stgserver._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."
)

var (
	ErrNoAddress = errors.New("no usable local network address")
)

// ServiceRecord describes one discovered server. It lives only for the
// duration of a discovery session.
type ServiceRecord struct {
	Name      string   // server identity, first label of Server
	Addresses []string // resolved IPv4 addresses, dotted strings
	Port      int
	Server    string // advertised host label, e.g. "stgserver.local."
}

// identityLabel derives the server identity from the advertised host
// label, falling back to the raw instance name when the host is absent.
func identityLabel(server, instance string) string {
	if server != "" {
		return strings.SplitN(server, ".", 2)[0]
	}
	return strings.SplitN(instance, ".", 2)[0]
}

// LocalIP returns the first non-loopback IPv4 address of this host. The
// outbound UDP dial never sends a packet; it only asks the kernel which
// source address would route to the internet.
func LocalIP() (string, error) {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err == nil {
		addr := conn.LocalAddr().(*net.UDPAddr)
		conn.Close()
		if ip := addr.IP.To4(); ip != nil && !ip.IsLoopback() {
			return ip.String(), nil
		}
	}

	// No default route; fall back to scanning the interfaces.
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", ErrNoAddress
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if ip := ipNet.IP.To4(); ip != nil && !ip.IsLoopback() {
			return ip.String(), nil
		}
	}

	return "", ErrNoAddress
}
