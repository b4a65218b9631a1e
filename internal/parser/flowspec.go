package parser

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"ryu-ofctl/internal/model"
	"ryu-ofctl/internal/utils"
	"ryu-ofctl/pkg/flow"
	"ryu-ofctl/pkg/wellknown"
)

var ofctlActionNames = map[string]flow.ActionType{
	"output":       flow.ActionOutput,
	"mod_vlan_vid": flow.ActionSetVlanVid,
	"mod_vlan_pcp": flow.ActionSetVlanPcp,
	"strip_vlan":   flow.ActionStripVlan,
	"mod_dl_src":   flow.ActionSetDlSrc,
	"mod_dl_dst":   flow.ActionSetDlDst,
	"mod_nw_src":   flow.ActionSetNwSrc,
	"mod_nw_dst":   flow.ActionSetNwDst,
	"mod_nw_tos":   flow.ActionSetNwTos,
	"mod_tp_src":   flow.ActionSetTpSrc,
	"mod_tp_dst":   flow.ActionSetTpDst,
	"enqueue":      flow.ActionEnqueue,
}

// ParseDPID reads a datapath id the way a command line would: decimal, or
// hexadecimal with a 0x prefix.
func ParseDPID(s string) (flow.DatapathID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid datapath id %q: %w", s, err)
	}
	return flow.DatapathID(v), nil
}

// ParseFlowSpec parses an ovs-ofctl style flow description such as
// "priority=100,tcp,nw_dst=10.0.0.1,tp_dst=80,actions=output:2". The actions
// clause, when present, must come last.
func ParseFlowSpec(spec string) (*flow.FlowEntry, error) {
	entry := flow.NewFlowEntry()
	matchPart, actionPart, hasActions := splitActions(spec)

	seen := make(map[string]bool)
	for _, token := range splitTokens(matchPart) {
		key, value, isPair := strings.Cut(token, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if seen[key] {
			return nil, fmt.Errorf("duplicate field %q", key)
		}
		seen[key] = true

		if !isPair {
			if err := applyShorthand(entry, key); err != nil {
				return nil, err
			}
			continue
		}
		if err := applyField(entry, key, value); err != nil {
			return nil, err
		}
	}

	if hasActions {
		if err := parseActions(entry, actionPart); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

func splitActions(spec string) (string, string, bool) {
	lower := strings.ToLower(spec)
	idx := strings.Index(lower, "actions=")
	for idx > 0 {
		prev := rune(lower[idx-1])
		if prev == ',' || unicode.IsSpace(prev) {
			break
		}
		next := strings.Index(lower[idx+1:], "actions=")
		if next < 0 {
			idx = -1
			break
		}
		idx += next + 1
	}
	if idx < 0 {
		return spec, "", false
	}
	return spec[:idx], spec[idx+len("actions="):], true
}

func splitTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func applyShorthand(entry *flow.FlowEntry, name string) error {
	sh, ok := wellknown.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown protocol keyword %q", name)
	}
	if entry.DlType != nil && *entry.DlType != sh.DlType {
		return fmt.Errorf("protocol keyword %q conflicts with dl_type %#x", name, *entry.DlType)
	}
	dlType := sh.DlType
	entry.DlType = &dlType
	if sh.NwProto != nil {
		if entry.NwProto != nil && *entry.NwProto != *sh.NwProto {
			return fmt.Errorf("protocol keyword %q conflicts with nw_proto %d", name, *entry.NwProto)
		}
		proto := *sh.NwProto
		entry.NwProto = &proto
	}
	return nil
}

func applyField(entry *flow.FlowEntry, key, value string) error {
	var err error
	switch key {
	case "in_port":
		entry.InPort, err = parseUint[uint32](key, value, 32)
	case "dl_src":
		entry.DlSrc, err = parseMAC(key, value)
	case "dl_dst":
		entry.DlDst, err = parseMAC(key, value)
	case "dl_type":
		entry.DlType, err = parseUint[uint16](key, value, 16)
	case "dl_vlan":
		entry.DlVlan, err = parseUint[uint16](key, value, 16)
		if err == nil && *entry.DlVlan > 0xfff && *entry.DlVlan != 0xffff {
			err = fmt.Errorf("dl_vlan %d out of range", *entry.DlVlan)
		}
	case "dl_vlan_pcp":
		entry.DlVlanPcp, err = parseUint[uint8](key, value, 3)
	case "nw_src":
		entry.NwSrc, err = parseIPv4(key, value)
	case "nw_dst":
		entry.NwDst, err = parseIPv4(key, value)
	case "nw_proto":
		entry.NwProto, err = parseUint[uint8](key, value, 8)
	case "nw_tos":
		entry.NwTos, err = parseUint[uint8](key, value, 8)
	case "tp_src":
		entry.TpSrc, err = parseUint[uint16](key, value, 16)
	case "tp_dst":
		entry.TpDst, err = parseUint[uint16](key, value, 16)
	case "priority":
		entry.Priority, err = parseUint[uint16](key, value, 16)
	case "out_port":
		entry.OutPort, err = parseUint[uint32](key, value, 32)
	default:
		err = fmt.Errorf("unknown field %q", key)
	}
	return err
}

func parseActions(entry *flow.FlowEntry, s string) error {
	tokens := splitTokens(s)
	for _, token := range tokens {
		name, value, hasValue := strings.Cut(strings.TrimSpace(token), ":")
		name = strings.ToLower(name)

		if name == "drop" {
			if len(tokens) != 1 {
				return fmt.Errorf("drop must be the only action")
			}
			return nil
		}
		if port, err := strconv.ParseUint(name, 10, 32); err == nil && !hasValue {
			if err := entry.AddAction(flow.NewOutputAction(uint32(port))); err != nil {
				return err
			}
			continue
		}

		id, ok := ofctlActionNames[name]
		if !ok {
			return fmt.Errorf("unknown action %q", token)
		}
		if id == flow.ActionOutput {
			port, err := parseUint[uint32]("output", value, 32)
			if err != nil {
				return err
			}
			if err := entry.AddAction(flow.NewOutputAction(*port)); err != nil {
				return err
			}
			continue
		}
		var param any
		if hasValue {
			param = value
		}
		if err := entry.AddAction(flow.GenericAction{ID: id, Value: param}); err != nil {
			return err
		}
	}
	return nil
}

func parseUint[T uint8 | uint16 | uint32](key, value string, bits int) (*T, error) {
	v, err := strconv.ParseUint(value, 0, bits)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	t := T(v)
	return &t, nil
}

func parseMAC(key, value string) (*string, error) {
	mac, err := utils.NormalizeMAC(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &mac, nil
}

func parseIPv4(key, value string) (*string, error) {
	ip, err := utils.NormalizeIPv4(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &ip, nil
}

// FlowFileParser reads rule files with one "<dpid> <flow spec>" per line.
type FlowFileParser struct {
	scanner *bufio.Scanner
	name    string

	Rules []model.Rule
}

func NewFlowFileParser(name string, reader io.Reader) *FlowFileParser {
	return &FlowFileParser{
		scanner: bufio.NewScanner(reader),
		name:    name,
	}
}

func (p *FlowFileParser) Parse() error {
	lineNo := 0
	for p.scanner.Scan() {
		lineNo++
		line := p.scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		dpidField, spec, _ := strings.Cut(line, " ")
		if tab := strings.IndexByte(dpidField, '\t'); tab >= 0 {
			spec = dpidField[tab+1:] + " " + spec
			dpidField = dpidField[:tab]
		}
		dpid, err := ParseDPID(dpidField)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", p.name, lineNo, err)
		}
		entry, err := ParseFlowSpec(spec)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", p.name, lineNo, err)
		}
		p.Rules = append(p.Rules, model.Rule{
			Source: fmt.Sprintf("%s:%d", p.name, lineNo),
			DPID:   dpid,
			Entry:  entry,
		})
	}
	if err := p.scanner.Err(); err != nil {
		return fmt.Errorf("error reading rules file: %w", err)
	}
	return nil
}
