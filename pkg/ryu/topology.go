package ryu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"ryu-ofctl/internal/utils"
	"ryu-ofctl/pkg/flow"
)

const (
	switchesPath    = "/topology/switches"
	linksPath       = "/topology/links"
	switchLinksPath = "/topology/switch/%s/links"
	macPath         = "/topology/mac/%s"
)

// ListSwitches returns the datapath ids of every switch the controller knows.
func (c *Client) ListSwitches(ctx context.Context) ([]flow.DatapathID, error) {
	resp, err := c.do(ctx, opListSwitches, http.MethodGet, switchesPath, nil)
	if err != nil {
		return nil, err
	}
	dpids := []flow.DatapathID{}
	if resp.Empty() {
		return dpids, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode switch list: %w", err)
	}
	for _, item := range raw {
		dpid, err := decodeSwitch(item)
		if err != nil {
			return nil, fmt.Errorf("failed to decode switch list: %w", err)
		}
		dpids = append(dpids, dpid)
	}
	return dpids, nil
}

// ListLinks returns every link in the controller's topology.
func (c *Client) ListLinks(ctx context.Context) ([]flow.Link, error) {
	resp, err := c.do(ctx, opListLinks, http.MethodGet, linksPath, nil)
	if err != nil {
		return nil, err
	}
	return decodeLinks(resp.Body)
}

// ListSwitchLinks returns the links attached to switch dpid.
func (c *Client) ListSwitchLinks(ctx context.Context, dpid flow.DatapathID) ([]flow.Link, error) {
	resp, err := c.do(ctx, opListSwitchLinks, http.MethodGet, fmt.Sprintf(switchLinksPath, dpid.Hex16()), nil)
	if err != nil {
		return nil, err
	}
	return decodeLinks(resp.Body)
}

// GetMacIngressPort returns the switch port where mac was last seen. It
// returns ErrHostNotFound when the controller reports nothing for it.
func (c *Client) GetMacIngressPort(ctx context.Context, mac string) (*flow.HostLocation, error) {
	normalized, err := utils.NormalizeMAC(mac)
	if err != nil {
		return nil, &ValidationError{Op: opGetMacLocation, Err: ErrInvalidMAC, Detail: err.Error()}
	}

	resp, err := c.do(ctx, opGetMacLocation, http.MethodGet, fmt.Sprintf(macPath, normalized), nil)
	if err != nil {
		return nil, err
	}
	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, fmt.Errorf("%s: %w", normalized, ErrHostNotFound)
	}

	fields, err := decodeObject(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode location of %s: %w", normalized, err)
	}

	loc := &flow.HostLocation{MAC: normalized}
	for key, value := range fields {
		switch key {
		case "dpid":
			if loc.DPID, err = decodeDPID(value); err != nil {
				return nil, fmt.Errorf("failed to decode location of %s: %w", normalized, err)
			}
		case "port", "port_no":
			if loc.Port, err = decodePort(value); err != nil {
				return nil, fmt.Errorf("failed to decode location of %s: %w", normalized, err)
			}
		case "mac":
		default:
			var v any
			if err := json.Unmarshal(value, &v); err != nil {
				return nil, fmt.Errorf("failed to decode location of %s: %w", normalized, err)
			}
			if loc.Attributes == nil {
				loc.Attributes = make(map[string]any)
			}
			loc.Attributes[key] = v
		}
	}
	return loc, nil
}

// decodeLinks unwraps {"items": [...]} and reshapes each dp1/port1/dp2/port2
// entry into a Link. A bare array is accepted as well.
func decodeLinks(body []byte) ([]flow.Link, error) {
	links := []flow.Link{}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return links, nil
	}

	var items []json.RawMessage
	if body[0] == '[' {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("failed to decode link list: %w", err)
		}
	} else {
		wrapper, err := decodeObject(body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode link list: %w", err)
		}
		if raw, ok := wrapper["items"]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("failed to decode link list: %w", err)
			}
		}
	}

	for i, item := range items {
		fields, err := decodeObject(item)
		if err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
		var link flow.Link
		for _, f := range []struct {
			key  string
			dpid *flow.DatapathID
			port *uint32
		}{
			{"1", &link.Endpoint1.DPID, &link.Endpoint1.Port},
			{"2", &link.Endpoint2.DPID, &link.Endpoint2.Port},
		} {
			rawDPID, ok := fields["dp"+f.key]
			if !ok {
				return nil, fmt.Errorf("link %d: missing dp%s", i, f.key)
			}
			if *f.dpid, err = decodeDPID(rawDPID); err != nil {
				return nil, fmt.Errorf("link %d: dp%s: %w", i, f.key, err)
			}
			rawPort, ok := fields["port"+f.key]
			if !ok {
				return nil, fmt.Errorf("link %d: missing port%s", i, f.key)
			}
			if *f.port, err = decodePort(rawPort); err != nil {
				return nil, fmt.Errorf("link %d: port%s: %w", i, f.key, err)
			}
		}
		links = append(links, link)
	}
	return links, nil
}

// decodeObject decodes a JSON object with its keys lower cased.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("expected a JSON object, got %s", data)
	}
	out := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out, nil
}

// decodeSwitch accepts either a bare dpid or an object carrying one.
func decodeSwitch(data json.RawMessage) (flow.DatapathID, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		fields, err := decodeObject(trimmed)
		if err != nil {
			return 0, err
		}
		raw, ok := fields["dpid"]
		if !ok {
			return 0, fmt.Errorf("switch entry %s has no dpid", trimmed)
		}
		return decodeDPID(raw)
	}
	return decodeDPID(data)
}

// decodeDPID reads a hex string dpid, or a plain JSON number.
func decodeDPID(data json.RawMessage) (flow.DatapathID, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return flow.ParseDatapathID(s)
	}
	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return 0, fmt.Errorf("invalid dpid %s", data)
	}
	return flow.DatapathID(n), nil
}

// decodePort reads a JSON number or a decimal string.
func decodePort(data json.RawMessage) (uint32, error) {
	var n uint32
	if err := json.Unmarshal(data, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return 0, fmt.Errorf("invalid port %s", data)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", s, err)
	}
	return uint32(v), nil
}
