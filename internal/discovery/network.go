package discovery

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
)

// MaxIPv6Addresses caps enumeration of IPv6 blocks. Enumerating a full
// IPv6 prefix is unbounded for practical purposes, so Addresses returns at
// most this many hosts for IPv6 ranges.
const MaxIPv6Addresses = 1000

// NetworkRange is a CIDR block targeted for scanning, immutable once
// constructed.
type NetworkRange struct {
	prefix netip.Prefix
}

// RangeInfo is derived metadata about a network range
type RangeInfo struct {
	CIDR      string `json:"cidr"`
	FirstHost string `json:"first_host"`
	LastHost  string `json:"last_host"`
	HostCount uint64 `json:"host_count"`
	Private   bool   `json:"private"`
}

// ParseNetworkRange parses a literal CIDR (e.g., "192.168.1.0/24")
func ParseNetworkRange(text string) (*NetworkRange, error) {
	prefix, err := netip.ParsePrefix(text)
	if err != nil {
		return nil, fmt.Errorf("invalid network range %q: %w", text, err)
	}
	return &NetworkRange{prefix: prefix.Masked()}, nil
}

// DetectNetworkRange derives a /24 from the local machine's primary IPv4
// address. Returns an error when no usable IPv4 address exists; IPv6-only
// hosts are not supported.
func DetectNetworkRange() (*NetworkRange, error) {
	ip, err := primaryIPv4()
	if err != nil {
		return nil, err
	}
	prefix, err := ip.Prefix(24)
	if err != nil {
		return nil, fmt.Errorf("failed to derive /24 from %s: %w", ip, err)
	}
	return &NetworkRange{prefix: prefix}, nil
}

// primaryIPv4 finds the local address used for outbound traffic. The UDP
// dial never sends a packet; it only asks the kernel for a route.
func primaryIPv4() (netip.Addr, error) {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err == nil {
		defer func() { _ = conn.Close() }()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			if ip, ok := netip.AddrFromSlice(addr.IP.To4()); ok {
				return ip, nil
			}
		}
	}

	// No default route; fall back to interface enumeration
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("failed to list interface addresses: %w", err)
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		v4 := ipNet.IP.To4()
		if v4 == nil || ipNet.IP.IsLoopback() {
			continue
		}
		if ip, ok := netip.AddrFromSlice(v4); ok {
			return ip, nil
		}
	}

	return netip.Addr{}, fmt.Errorf("no usable IPv4 address found on this host")
}

// Addresses produces the ordered sequence of every address in the block.
// For IPv4 this includes the network and broadcast addresses; the scanner
// is responsible for excluding them. IPv6 enumeration is capped at
// MaxIPv6Addresses.
func (r *NetworkRange) Addresses() []netip.Addr {
	var out []netip.Addr
	limit := -1
	if r.prefix.Addr().Is6() {
		limit = MaxIPv6Addresses
	}

	for addr := r.prefix.Addr(); r.prefix.Contains(addr); addr = addr.Next() {
		out = append(out, addr)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Contains reports whether the address falls inside the range
func (r *NetworkRange) Contains(addr netip.Addr) bool {
	return r.prefix.Contains(addr)
}

// IsIPv4 reports whether this is an IPv4 range
func (r *NetworkRange) IsIPv4() bool {
	return r.prefix.Addr().Is4()
}

// Info returns derived metadata about the range
func (r *NetworkRange) Info() RangeInfo {
	addr := r.prefix.Addr()
	info := RangeInfo{
		CIDR:    r.prefix.String(),
		Private: addr.IsPrivate(),
	}

	if addr.Is4() {
		bits := r.prefix.Bits()
		total := uint64(1) << (32 - bits)
		a4 := addr.As4()
		base := binary.BigEndian.Uint32(a4[:])
		broadcast := base | (uint32(0xFFFFFFFF) >> bits)

		first := base
		last := broadcast
		info.HostCount = total
		if total > 2 {
			// Usable host span excludes network and broadcast
			first = base + 1
			last = broadcast - 1
			info.HostCount = total - 2
		}
		info.FirstHost = v4String(first)
		info.LastHost = v4String(last)
		return info
	}

	// IPv6: report the capped enumeration span
	count := uint64(MaxIPv6Addresses)
	if bits := 128 - r.prefix.Bits(); bits < 10 {
		count = uint64(1) << bits
	}
	info.HostCount = count
	info.FirstHost = addr.String()
	return info
}

// v4String formats a big-endian uint32 as dotted-quad notation
func v4String(v uint32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b).String()
}

// String returns the canonical CIDR notation
func (r *NetworkRange) String() string {
	return r.prefix.String()
}
