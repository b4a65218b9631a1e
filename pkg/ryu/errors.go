package ryu

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ryu-ofctl/pkg/flow"
)

var (
	ErrNilEntry     = errors.New("flow entry is nil")
	ErrAllWildcard  = errors.New("flow entry wildcards every match field")
	ErrInvalidMatch = errors.New("tp_src/tp_dst require dl_type=0x0800 and nw_proto tcp(6) or udp(17)")
	ErrInvalidMAC   = errors.New("mac address must be colon delimited hex")

	// ErrHostNotFound is returned when the controller has no location for a MAC.
	ErrHostNotFound = errors.New("mac address not known to the controller")
)

// ValidationError is raised before any request is sent.
type ValidationError struct {
	Op     string
	Err    error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// UnsupportedActionError reports an action the controller payload cannot
// express. Index is the position in the entry's action list.
type UnsupportedActionError struct {
	Index  int
	Action flow.Action
}

func (e *UnsupportedActionError) Error() string {
	return fmt.Sprintf("action %d (%v) is not supported, only OUTPUT actions can be installed", e.Index, e.Action)
}

// TransportError is a non-2xx controller reply, kept verbatim.
type TransportError struct {
	StatusCode int
	Reason     string
	Header     http.Header
	Body       []byte
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("controller returned code %d reason %s", e.StatusCode, e.Reason)
	if body := strings.TrimSpace(string(e.Body)); body != "" {
		msg += ": " + body
	}
	return msg
}

// ConnectionError means no complete response was received.
type ConnectionError struct {
	Op  string
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: request to %s failed: %v", e.Op, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
