package ryu

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ryu-ofctl/pkg/flow"
)

func TestListSwitchesNormalizesHex(t *testing.T) {
	doer := &fakeDoer{body: `["0x1","0x2a"]`}
	c := newTestClient(t, doer, Config{})

	dpids, err := c.ListSwitches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []flow.DatapathID{1, 42}, dpids)

	calls := doer.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodGet, calls[0].Method)
	assert.Equal(t, "/topology/switches", calls[0].Path)
}

func TestListSwitchesAcceptsSwitchObjects(t *testing.T) {
	doer := &fakeDoer{body: `[{"dpid":"0000000000000001","ports":[]},{"DPID":"0000000000000003"}]`}
	c := newTestClient(t, doer, Config{})

	dpids, err := c.ListSwitches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []flow.DatapathID{1, 3}, dpids)
}

func TestListSwitchesEmpty(t *testing.T) {
	for _, body := range []string{"", "[]"} {
		c := newTestClient(t, &fakeDoer{body: body}, Config{})
		dpids, err := c.ListSwitches(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, dpids)
		assert.Empty(t, dpids)
	}
}

func TestListSwitchesBadDPID(t *testing.T) {
	c := newTestClient(t, &fakeDoer{body: `["0xzz"]`}, Config{})
	_, err := c.ListSwitches(context.Background())
	assert.Error(t, err)
}

func TestListLinksReshapesItems(t *testing.T) {
	doer := &fakeDoer{body: `{"items":[{"dp1":"0x1","port1":1,"dp2":"0x2","port2":3}]}`}
	c := newTestClient(t, doer, Config{})

	links, err := c.ListLinks(context.Background())
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, flow.Endpoint{DPID: 1, Port: 1}, links[0].Endpoint1)
	assert.Equal(t, flow.Endpoint{DPID: 2, Port: 3}, links[0].Endpoint2)
	assert.Equal(t, "/topology/links", doer.calls()[0].Path)
}

func TestListLinksAcceptsVariants(t *testing.T) {
	testcases := []struct {
		name     string
		body     string
		expected []flow.Link
	}{
		{"empty body", ``, []flow.Link{}},
		{"no items", `{}`, []flow.Link{}},
		{"null items", `{"items":null}`, []flow.Link{}},
		{"upper case keys", `{"Items":[{"DP1":"0x5","Port1":"2","DP2":"0x6","Port2":7}]}`, []flow.Link{
			{Endpoint1: flow.Endpoint{DPID: 5, Port: 2}, Endpoint2: flow.Endpoint{DPID: 6, Port: 7}},
		}},
		{"bare array", `[{"dp1":10,"port1":1,"dp2":"000000000000000b","port2":2}]`, []flow.Link{
			{Endpoint1: flow.Endpoint{DPID: 10, Port: 1}, Endpoint2: flow.Endpoint{DPID: 11, Port: 2}},
		}},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, &fakeDoer{body: tc.body}, Config{})
			links, err := c.ListLinks(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.expected, links)
		})
	}
}

func TestListLinksMalformed(t *testing.T) {
	for _, body := range []string{
		`{"items":[{"dp1":"0x1","port1":1,"dp2":"0x2"}]}`,
		`{"items":[{"dp1":"nope","port1":1,"dp2":"0x2","port2":1}]}`,
		`{"items":[{"dp1":"0x1","port1":-1,"dp2":"0x2","port2":1}]}`,
		`{"items":"x"}`,
		`not json`,
	} {
		c := newTestClient(t, &fakeDoer{body: body}, Config{})
		_, err := c.ListLinks(context.Background())
		assert.Error(t, err, "body %s", body)
	}
}

func TestListSwitchLinksPath(t *testing.T) {
	doer := &fakeDoer{body: `{"items":[]}`}
	c := newTestClient(t, doer, Config{})

	links, err := c.ListSwitchLinks(context.Background(), 0x1)
	require.NoError(t, err)
	assert.Empty(t, links)
	assert.Equal(t, "/topology/switch/0000000000000001/links", doer.calls()[0].Path)
}

func TestGetMacIngressPortNotFound(t *testing.T) {
	for _, body := range []string{"null", "", "  \n"} {
		doer := &fakeDoer{body: body}
		c := newTestClient(t, doer, Config{})

		loc, err := c.GetMacIngressPort(context.Background(), "00:11:22:33:44:55")
		assert.Nil(t, loc)
		assert.ErrorIs(t, err, ErrHostNotFound, "body %q", body)
		assert.Equal(t, "/topology/mac/00:11:22:33:44:55", doer.calls()[0].Path)
	}
}

func TestGetMacIngressPortEmptyObjectIsFound(t *testing.T) {
	c := newTestClient(t, &fakeDoer{body: `{}`}, Config{})

	loc, err := c.GetMacIngressPort(context.Background(), "00:11:22:33:44:55")
	require.NoError(t, err)
	assert.Equal(t, &flow.HostLocation{MAC: "00:11:22:33:44:55"}, loc)
}

func TestGetMacIngressPortNormalizes(t *testing.T) {
	doer := &fakeDoer{body: `{"DPID":"0x2a","Port":3,"mac":"AA:BB:CC:DD:EE:FF","vlan":10}`}
	c := newTestClient(t, doer, Config{})

	loc, err := c.GetMacIngressPort(context.Background(), "AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", loc.MAC)
	assert.Equal(t, flow.DatapathID(42), loc.DPID)
	assert.Equal(t, uint32(3), loc.Port)
	assert.Equal(t, map[string]any{"vlan": float64(10)}, loc.Attributes)
	assert.Equal(t, "/topology/mac/aa:bb:cc:dd:ee:ff", doer.calls()[0].Path)
}

func TestGetMacIngressPortRejectsMalformedMAC(t *testing.T) {
	doer := &fakeDoer{}
	c := newTestClient(t, doer, Config{})

	for _, mac := range []string{"", "001122334455", "00-11-22-33-44-55", "00:11:22:33:44:gg"} {
		_, err := c.GetMacIngressPort(context.Background(), mac)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve), "mac %q: expected ValidationError, got %v", mac, err)
		assert.ErrorIs(t, err, ErrInvalidMAC)
	}
	assert.Empty(t, doer.calls())
}

func TestGetMacIngressPortNonObject(t *testing.T) {
	c := newTestClient(t, &fakeDoer{body: `[1,2]`}, Config{})
	_, err := c.GetMacIngressPort(context.Background(), "00:11:22:33:44:55")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrHostNotFound))
}
