package ryu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ryu-ofctl/internal/metrics"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8090
)

const (
	opInsertFlow      = "insert_flow"
	opDeleteFlow      = "delete_flow"
	opClearFlows      = "clear_flows"
	opListSwitches    = "list_switches"
	opListLinks       = "list_links"
	opListSwitchLinks = "list_switch_links"
	opGetMacLocation  = "get_mac_ingress_port"
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	Host string
	Port int
	// DefaultPriority is sent with inserted flows that do not set a priority.
	// When nil the field is left out and the controller picks its default.
	DefaultPriority *uint16
}

// Client talks to one controller's REST API. It is immutable once built and
// safe for concurrent use.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient Doer
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.httpClient = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if err := validateEndpoint(cfg.Host, cfg.Port); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.baseURL = baseURL(cfg.Host, cfg.Port)
	return c, nil
}

// WithEndpoint returns a copy of c that targets another controller. c itself
// is left untouched, so requests already in flight keep their endpoint.
func (c *Client) WithEndpoint(host string, port int) (*Client, error) {
	if err := validateEndpoint(host, port); err != nil {
		return nil, err
	}
	n := *c
	n.cfg.Host = host
	n.cfg.Port = port
	n.baseURL = baseURL(host, port)
	return &n, nil
}

// Endpoint returns the controller host and port.
func (c *Client) Endpoint() (string, int) {
	return c.cfg.Host, c.cfg.Port
}

func validateEndpoint(host string, port int) error {
	if strings.TrimSpace(host) == "" {
		return fmt.Errorf("controller host must not be empty")
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("controller port %d out of range", port)
	}
	return nil
}

func baseURL(host string, port int) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// Response is a successful (2xx) controller reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// Empty reports whether the controller acknowledged without a body.
func (r *Response) Empty() bool {
	return len(bytes.TrimSpace(r.Body)) == 0
}

// do is the only place that performs HTTP. body, when not nil, is sent as JSON.
func (c *Client) do(ctx context.Context, op, method, path string, body any) (*Response, error) {
	var payload []byte
	var reader io.Reader
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("Sending request to controller", "operation", op, "method", method, "url", req.URL.String(), "body", string(payload))
	metrics.ControllerOpsCount.WithLabelValues(op).Inc()
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ControllerOpsErrorCount.WithLabelValues(op, "connection").Inc()
		return nil, &ConnectionError{Op: op, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	metrics.ControllerOpsLatency.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.ControllerOpsErrorCount.WithLabelValues(op, "connection").Inc()
		return nil, &ConnectionError{Op: op, URL: req.URL.String(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ControllerOpsErrorCount.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
		c.logger.Debug("Controller rejected request", "operation", op, "status", resp.StatusCode, "body", string(data))
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Reason:     reasonPhrase(resp),
			Header:     resp.Header.Clone(),
			Body:       data,
		}
	}

	c.logger.Debug("Controller accepted request", "operation", op, "status", resp.StatusCode, "bytes", len(data))
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// reasonPhrase extracts the phrase from a "500 Internal Error" style status.
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}
