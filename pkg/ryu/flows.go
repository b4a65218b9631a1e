package ryu

import (
	"context"
	"fmt"
	"net/http"

	"ryu-ofctl/pkg/flow"
)

const (
	addFlowPath    = "/stats/flowentry/add"
	deleteFlowPath = "/stats/flowentry/delete"
	clearFlowsPath = "/stats/flowentry/clear/%d"
)

// matchPayload is the controller's match object. Wildcard fields are omitted,
// never sent as null.
type matchPayload struct {
	InPort    *uint32 `json:"in_port,omitempty"`
	DlSrc     *string `json:"dl_src,omitempty"`
	DlDst     *string `json:"dl_dst,omitempty"`
	DlType    *uint16 `json:"dl_type,omitempty"`
	DlVlan    *uint16 `json:"dl_vlan,omitempty"`
	DlVlanPcp *uint8  `json:"dl_vlan_pcp,omitempty"`
	NwSrc     *string `json:"nw_src,omitempty"`
	NwDst     *string `json:"nw_dst,omitempty"`
	NwProto   *uint8  `json:"nw_proto,omitempty"`
	NwTos     *uint8  `json:"nw_tos,omitempty"`
	TpSrc     *uint16 `json:"tp_src,omitempty"`
	TpDst     *uint16 `json:"tp_dst,omitempty"`
}

func newMatchPayload(m *flow.Match) matchPayload {
	return matchPayload{
		InPort:    m.InPort,
		DlSrc:     m.DlSrc,
		DlDst:     m.DlDst,
		DlType:    m.DlType,
		DlVlan:    m.DlVlan,
		DlVlanPcp: m.DlVlanPcp,
		NwSrc:     m.NwSrc,
		NwDst:     m.NwDst,
		NwProto:   m.NwProto,
		NwTos:     m.NwTos,
		TpSrc:     m.TpSrc,
		TpDst:     m.TpDst,
	}
}

type actionPayload struct {
	Type string `json:"type"`
	Port uint32 `json:"port"`
}

type addFlowRequest struct {
	DPID     uint64          `json:"dpid"`
	Actions  []actionPayload `json:"actions"`
	Match    matchPayload    `json:"match"`
	Priority *uint16         `json:"priority,omitempty"`
}

type deleteFlowRequest struct {
	DPID    uint64       `json:"dpid"`
	Match   matchPayload `json:"match"`
	OutPort *uint32      `json:"out_port,omitempty"`
}

func actionsPayload(actions []flow.Action) ([]actionPayload, error) {
	out := make([]actionPayload, 0, len(actions))
	for i, a := range actions {
		switch act := a.(type) {
		case flow.OutputAction:
			out = append(out, actionPayload{Type: "OUTPUT", Port: act.OutPort})
		case *flow.OutputAction:
			if act == nil {
				return nil, &UnsupportedActionError{Index: i, Action: a}
			}
			out = append(out, actionPayload{Type: "OUTPUT", Port: act.OutPort})
		default:
			return nil, &UnsupportedActionError{Index: i, Action: a}
		}
	}
	return out, nil
}

// InsertFlow installs entry on switch dpid, overwriting an identical match.
// All-wildcard entries are refused so a single call cannot capture every packet.
func (c *Client) InsertFlow(ctx context.Context, dpid flow.DatapathID, entry *flow.FlowEntry) (*Response, error) {
	if entry == nil {
		return nil, &ValidationError{Op: opInsertFlow, Err: ErrNilEntry}
	}
	if entry.IsAllWild() {
		return nil, &ValidationError{Op: opInsertFlow, Err: ErrAllWildcard}
	}
	if !entry.ValidateMatch() {
		return nil, &ValidationError{Op: opInsertFlow, Err: ErrInvalidMatch}
	}

	actions, err := actionsPayload(entry.Actions())
	if err != nil {
		return nil, err
	}

	req := addFlowRequest{
		DPID:     uint64(dpid),
		Actions:  actions,
		Match:    newMatchPayload(&entry.Match),
		Priority: entry.Priority,
	}
	if req.Priority == nil {
		req.Priority = c.cfg.DefaultPriority
	}

	c.logger.Debug("Adding flow", "dpid", dpid, "actions", len(actions))
	return c.do(ctx, opInsertFlow, http.MethodPost, addFlowPath, req)
}

// DeleteFlow removes flows from switch dpid. An all-wildcard entry without
// out_port clears the whole switch through the bulk endpoint; anything else
// is a delete by match, narrowed by out_port when set.
func (c *Client) DeleteFlow(ctx context.Context, dpid flow.DatapathID, entry *flow.FlowEntry) (*Response, error) {
	if entry == nil {
		return nil, &ValidationError{Op: opDeleteFlow, Err: ErrNilEntry}
	}

	if entry.IsAllWild() && entry.OutPort == nil {
		c.logger.Debug("Deleting all flows", "dpid", dpid)
		return c.do(ctx, opClearFlows, http.MethodDelete, fmt.Sprintf(clearFlowsPath, uint64(dpid)), nil)
	}

	req := deleteFlowRequest{
		DPID:    uint64(dpid),
		Match:   newMatchPayload(&entry.Match),
		OutPort: entry.OutPort,
	}
	c.logger.Debug("Deleting flows by match", "dpid", dpid)
	return c.do(ctx, opDeleteFlow, http.MethodPost, deleteFlowPath, req)
}

// DeleteAllFlows clears every flow on switch dpid.
func (c *Client) DeleteAllFlows(ctx context.Context, dpid flow.DatapathID) (*Response, error) {
	return c.DeleteFlow(ctx, dpid, flow.NewFlowEntry())
}
