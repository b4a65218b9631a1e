package ryu

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"ryu-ofctl/pkg/flow"
)

func inPortFlow(t *testing.T, inPort, outPort uint32) *flow.FlowEntry {
	t.Helper()
	e := flow.NewFlowEntry()
	e.InPort = ptr.To(inPort)
	require.NoError(t, e.AddAction(flow.NewOutputAction(outPort)))
	return e
}

// matchFields sets one field each, keyed by its wire name.
var matchFields = map[string]func(m *flow.Match){
	"in_port":     func(m *flow.Match) { m.InPort = ptr.To(uint32(0)) },
	"dl_src":      func(m *flow.Match) { m.DlSrc = ptr.To("00:00:00:00:00:01") },
	"dl_dst":      func(m *flow.Match) { m.DlDst = ptr.To("00:00:00:00:00:02") },
	"dl_type":     func(m *flow.Match) { m.DlType = ptr.To(flow.EtherTypeARP) },
	"dl_vlan":     func(m *flow.Match) { m.DlVlan = ptr.To(uint16(100)) },
	"dl_vlan_pcp": func(m *flow.Match) { m.DlVlanPcp = ptr.To(uint8(0)) },
	"nw_src":      func(m *flow.Match) { m.NwSrc = ptr.To("10.0.0.0/24") },
	"nw_dst":      func(m *flow.Match) { m.NwDst = ptr.To("10.0.0.2") },
	"nw_proto":    func(m *flow.Match) { m.NwProto = ptr.To(flow.IPProtoUDP) },
	"nw_tos":      func(m *flow.Match) { m.NwTos = ptr.To(uint8(32)) },
	"tp_src":      func(m *flow.Match) { m.TpSrc = ptr.To(uint16(1024)) },
	"tp_dst":      func(m *flow.Match) { m.TpDst = ptr.To(uint16(0)) },
}

func TestInsertFlowRejectsAllWildcard(t *testing.T) {
	doer := &fakeDoer{}
	c := newTestClient(t, doer, Config{})

	e := flow.NewFlowEntry()
	require.NoError(t, e.AddAction(flow.NewOutputAction(1)))
	e.Priority = ptr.To(uint16(10))
	e.OutPort = ptr.To(uint32(3))

	_, err := c.InsertFlow(context.Background(), 1, e)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllWildcard)
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Empty(t, doer.calls(), "an all-wildcard insert must not reach the controller")

	_, err = c.InsertFlow(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrNilEntry)
	assert.Empty(t, doer.calls())
}

func TestInsertFlowRejectsPortsWithoutTransport(t *testing.T) {
	doer := &fakeDoer{}
	c := newTestClient(t, doer, Config{})

	e := flow.NewFlowEntry()
	e.TpDst = ptr.To(uint16(80))
	e.DlType = ptr.To(flow.EtherTypeIPv4)

	_, err := c.InsertFlow(context.Background(), 1, e)
	assert.ErrorIs(t, err, ErrInvalidMatch)
	assert.Empty(t, doer.calls())
}

func TestInsertFlowRejectsUnsupportedAction(t *testing.T) {
	doer := &fakeDoer{}
	c := newTestClient(t, doer, Config{})

	e := inPortFlow(t, 1, 2)
	require.NoError(t, e.AddAction(flow.GenericAction{ID: flow.ActionSetVlanVid, Value: 10}))

	_, err := c.InsertFlow(context.Background(), 1, e)
	var ue *UnsupportedActionError
	require.True(t, errors.As(err, &ue), "expected UnsupportedActionError, got %v", err)
	assert.Equal(t, 1, ue.Index)
	assert.Equal(t, flow.ActionSetVlanVid, ue.Action.ActionID())
	assert.Empty(t, doer.calls())
}

func TestInsertFlowPayload(t *testing.T) {
	doer := &fakeDoer{}
	c := newTestClient(t, doer, Config{})

	e := flow.NewFlowEntry()
	e.InPort = ptr.To(uint32(1))
	e.DlDst = ptr.To("00:11:22:33:44:55")
	require.NoError(t, e.AddAction(flow.NewOutputAction(3)))
	require.NoError(t, e.AddAction(&flow.OutputAction{OutPort: 2}))

	resp, err := c.InsertFlow(context.Background(), 42, e)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	calls := doer.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "/stats/flowentry/add", calls[0].Path)
	assert.JSONEq(t, `{
		"dpid": 42,
		"actions": [{"type": "OUTPUT", "port": 3}, {"type": "OUTPUT", "port": 2}],
		"match": {"in_port": 1, "dl_dst": "00:11:22:33:44:55"}
	}`, string(calls[0].Body))
}

func TestInsertFlowWithoutActionsSendsEmptyList(t *testing.T) {
	doer := &fakeDoer{}
	c := newTestClient(t, doer, Config{})

	e := flow.NewFlowEntry()
	e.DlSrc = ptr.To("00:00:00:00:00:01")
	_, err := c.InsertFlow(context.Background(), 1, e)
	require.NoError(t, err)

	body := decodeBody(t, doer.calls()[0].Body)
	assert.Equal(t, []any{}, body["actions"])
}

func TestInsertFlowPriority(t *testing.T) {
	testcases := []struct {
		name            string
		entryPriority   *uint16
		defaultPriority *uint16
		expected        any
	}{
		{"omitted", nil, nil, nil},
		{"from entry", ptr.To(uint16(100)), nil, float64(100)},
		{"from config", nil, ptr.To(uint16(32768)), float64(32768)},
		{"entry wins", ptr.To(uint16(0)), ptr.To(uint16(32768)), float64(0)},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			doer := &fakeDoer{}
			c := newTestClient(t, doer, Config{DefaultPriority: tc.defaultPriority})

			e := inPortFlow(t, 1, 2)
			e.Priority = tc.entryPriority
			_, err := c.InsertFlow(context.Background(), 1, e)
			require.NoError(t, err)

			body := decodeBody(t, doer.calls()[0].Body)
			priority, ok := body["priority"]
			if tc.expected == nil {
				assert.False(t, ok, "priority must be omitted, got %v", priority)
				return
			}
			assert.Equal(t, tc.expected, priority)
		})
	}
}

func TestInsertFlowTransportMatch(t *testing.T) {
	doer := &fakeDoer{}
	c := newTestClient(t, doer, Config{})

	e := flow.NewFlowEntry()
	e.DlType = ptr.To(flow.EtherTypeIPv4)
	e.NwProto = ptr.To(flow.IPProtoTCP)
	e.NwDst = ptr.To("10.0.0.1")
	e.TpDst = ptr.To(uint16(80))
	require.NoError(t, e.AddAction(flow.NewOutputAction(4)))

	_, err := c.InsertFlow(context.Background(), 1, e)
	require.NoError(t, err)
	body := decodeBody(t, doer.calls()[0].Body)
	assert.Equal(t, map[string]any{
		"dl_type":  float64(0x800),
		"nw_proto": float64(6),
		"nw_dst":   "10.0.0.1",
		"tp_dst":   float64(80),
	}, body["match"])
}

func TestDeleteFlowAllWildClearsSwitch(t *testing.T) {
	doer := &fakeDoer{}
	c := newTestClient(t, doer, Config{})

	_, err := c.DeleteFlow(context.Background(), 7, flow.NewFlowEntry())
	require.NoError(t, err)

	calls := doer.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodDelete, calls[0].Method)
	assert.Equal(t, "/stats/flowentry/clear/7", calls[0].Path)
	assert.Empty(t, calls[0].Body)
}

func TestDeleteAllFlowsUsesDecimalDPID(t *testing.T) {
	doer := &fakeDoer{}
	c := newTestClient(t, doer, Config{})

	_, err := c.DeleteAllFlows(context.Background(), 0x2a)
	require.NoError(t, err)
	calls := doer.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodDelete, calls[0].Method)
	assert.Equal(t, "/stats/flowentry/clear/42", calls[0].Path)
}

func TestDeleteFlowSingleFieldPostsMatch(t *testing.T) {
	for name, set := range matchFields {
		t.Run(name, func(t *testing.T) {
			doer := &fakeDoer{}
			c := newTestClient(t, doer, Config{})

			e := flow.NewFlowEntry()
			set(&e.Match)
			_, err := c.DeleteFlow(context.Background(), 1, e)
			require.NoError(t, err)

			calls := doer.calls()
			require.Len(t, calls, 1)
			assert.Equal(t, http.MethodPost, calls[0].Method)
			assert.Equal(t, "/stats/flowentry/delete", calls[0].Path)

			body := decodeBody(t, calls[0].Body)
			assert.Equal(t, float64(1), body["dpid"])
			assert.NotContains(t, body, "out_port")
			match, ok := body["match"].(map[string]any)
			require.True(t, ok)
			assert.Len(t, match, 1, "only %s may be present, got %v", name, match)
			assert.Contains(t, match, name)
		})
	}
}

func TestDeleteFlowByOutPort(t *testing.T) {
	doer := &fakeDoer{}
	c := newTestClient(t, doer, Config{})

	e := flow.NewFlowEntry()
	e.OutPort = ptr.To(uint32(2))
	_, err := c.DeleteFlow(context.Background(), 1, e)
	require.NoError(t, err)

	calls := doer.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/stats/flowentry/delete", calls[0].Path)
	assert.JSONEq(t, `{"dpid":1,"match":{},"out_port":2}`, string(calls[0].Body))
}

func TestDeleteFlowMatchAndOutPort(t *testing.T) {
	doer := &fakeDoer{}
	c := newTestClient(t, doer, Config{})

	e := inPortFlow(t, 3, 9)
	e.OutPort = ptr.To(uint32(4))
	_, err := c.DeleteFlow(context.Background(), 5, e)
	require.NoError(t, err)

	// Actions never travel with a delete.
	assert.JSONEq(t, `{"dpid":5,"match":{"in_port":3},"out_port":4}`, string(doer.calls()[0].Body))
}

func TestDeleteFlowRejectsNil(t *testing.T) {
	doer := &fakeDoer{}
	c := newTestClient(t, doer, Config{})
	_, err := c.DeleteFlow(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrNilEntry)
	assert.Empty(t, doer.calls())
}
