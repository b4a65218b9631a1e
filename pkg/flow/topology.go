package flow

import (
	"fmt"
	"strconv"
	"strings"
)

// DatapathID identifies a switch known to the controller.
type DatapathID uint64

// ParseDatapathID accepts "0x1a", "1A" and the zero padded 16 digit form the
// controller emits. The input is always read as hexadecimal.
func ParseDatapathID(s string) (DatapathID, error) {
	hex := strings.TrimSpace(strings.ToLower(s))
	hex = strings.TrimPrefix(hex, "0x")
	if hex == "" {
		return 0, fmt.Errorf("empty datapath id %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid datapath id %q: %w", s, err)
	}
	return DatapathID(v), nil
}

func (d DatapathID) String() string {
	return fmt.Sprintf("0x%x", uint64(d))
}

// Hex16 renders the id as 16 zero padded hex digits.
func (d DatapathID) Hex16() string {
	return fmt.Sprintf("%016x", uint64(d))
}

type Endpoint struct {
	DPID DatapathID `json:"dpid"`
	Port uint32     `json:"port"`
}

// Link is an edge between two switch ports as reported by the controller.
type Link struct {
	Endpoint1 Endpoint `json:"endpoint1"`
	Endpoint2 Endpoint `json:"endpoint2"`
}

// HostLocation is where the controller last saw a MAC address.
type HostLocation struct {
	MAC        string         `json:"mac"`
	DPID       DatapathID     `json:"dpid"`
	Port       uint32         `json:"port"`
	Attributes map[string]any `json:"attributes,omitempty"`
}
