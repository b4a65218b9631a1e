package flow

import "errors"

const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeARP  uint16 = 0x0806

	IPProtoICMP uint8 = 1
	IPProtoTCP  uint8 = 6
	IPProtoUDP  uint8 = 17
)

var ErrTypeMismatch = errors.New("action does not implement flow.Action")

// Match is the OpenFlow 1.0 12-tuple. A nil field is a wildcard.
type Match struct {
	InPort    *uint32
	DlSrc     *string
	DlDst     *string
	DlType    *uint16
	DlVlan    *uint16
	DlVlanPcp *uint8
	NwSrc     *string
	NwDst     *string
	NwProto   *uint8
	NwTos     *uint8
	TpSrc     *uint16
	TpDst     *uint16
}

// IsAllWild reports whether no match field is constrained.
func (m *Match) IsAllWild() bool {
	return m.InPort == nil &&
		m.DlSrc == nil &&
		m.DlDst == nil &&
		m.DlType == nil &&
		m.DlVlan == nil &&
		m.DlVlanPcp == nil &&
		m.NwSrc == nil &&
		m.NwDst == nil &&
		m.NwProto == nil &&
		m.NwTos == nil &&
		m.TpSrc == nil &&
		m.TpDst == nil
}

// ValidateMatch returns false when a transport port is set outside of an
// IPv4 TCP or UDP context.
func (m *Match) ValidateMatch() bool {
	if m.TpSrc == nil && m.TpDst == nil {
		return true
	}
	if m.DlType == nil || *m.DlType != EtherTypeIPv4 {
		return false
	}
	if m.NwProto == nil {
		return false
	}
	return *m.NwProto == IPProtoTCP || *m.NwProto == IPProtoUDP
}

// FlowEntry is one flow rule: a match, the action list used on insert, and the
// out_port/priority selectors.
type FlowEntry struct {
	Match

	// OutPort restricts deletes to flows that output to this port. It is not
	// part of the match.
	OutPort *uint32
	// Priority breaks ties between overlapping matches; higher wins.
	Priority *uint16

	actions []Action
}

func NewFlowEntry() *FlowEntry {
	return &FlowEntry{}
}

// AddAction appends a to the action list. Order is preserved on the wire.
func (e *FlowEntry) AddAction(a Action) error {
	if a == nil {
		return ErrTypeMismatch
	}
	e.actions = append(e.actions, a)
	return nil
}

// Actions returns a copy of the action list.
func (e *FlowEntry) Actions() []Action {
	out := make([]Action, len(e.actions))
	copy(out, e.actions)
	return out
}

// Reset restores the entry to the all-wildcard state with no actions.
func (e *FlowEntry) Reset() {
	*e = FlowEntry{}
}
