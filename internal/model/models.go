package model

import "ryu-ofctl/pkg/flow"

type Mode string // "add", "delete"

const (
	ModeAdd    Mode = "add"
	ModeDelete Mode = "delete"
)

// Rule is one flow entry bound to the switch it targets, as loaded from a
// provider.
type Rule struct {
	Source string // "rules.txt:12", "cfg_flow:7"
	DPID   flow.DatapathID
	Entry  *flow.FlowEntry
}

type ApplyResult struct {
	Source     string          `json:"source"`
	DPID       flow.DatapathID `json:"dpid"`
	Mode       Mode            `json:"mode"`
	StatusCode int             `json:"status_code,omitempty"`
	Error      string          `json:"error,omitempty"`
	Err        error           `json:"-"`
}

type LookupResult struct {
	MAC      string             `json:"mac"`
	Found    bool               `json:"found"`
	Location *flow.HostLocation `json:"location,omitempty"`
	Error    string             `json:"error,omitempty"`
}
