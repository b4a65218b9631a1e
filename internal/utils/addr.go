package utils

import (
	"fmt"
	"net"
	"strings"
)

// NormalizeMAC checks that s is a colon delimited 48-bit MAC address and
// returns it in lower case.
func NormalizeMAC(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.Count(s, ":") != 5 {
		return "", fmt.Errorf("mac address %q is not colon delimited", s)
	}
	hw, err := net.ParseMAC(s)
	if err != nil {
		return "", err
	}
	if len(hw) != 6 {
		return "", fmt.Errorf("mac address %q is not 48 bits", s)
	}
	return hw.String(), nil
}

// NormalizeIPv4 accepts an IPv4 address or prefix ("10.0.0.1", "10.0.0.0/24")
// and returns it in canonical form.
func NormalizeIPv4(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		ip, ipnet, err := net.ParseCIDR(s)
		if err != nil {
			return "", err
		}
		if ip.To4() == nil {
			return "", fmt.Errorf("%q is not an IPv4 prefix", s)
		}
		return ipnet.String(), nil
	}
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("%q is not an IPv4 address", s)
	}
	return ip.To4().String(), nil
}
