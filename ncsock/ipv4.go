package ncsock

import (
	"fmt"
	"net"
)

func parseIPv4(ip string) ([4]byte, error) {
	var out [4]byte
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return out, fmt.Errorf("invalid ipv4 address %q", ip)
	}
	v4 := parsed.To4()
	if v4 == nil {
		return out, fmt.Errorf("not an ipv4 address %q", ip)
	}
	copy(out[:], v4)
	return out, nil
}
