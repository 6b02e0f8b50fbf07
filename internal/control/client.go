// Package control implements the line-delimited JSON-RPC 2.0 client for the
// xmproxysrv control port. Every call opens a fresh connection; the relay's
// framing over a long-lived socket is ambiguous, and one short-lived
// connection per request keeps resource use bounded.
package control

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync/atomic"
	"time"
)

const (
	// DefaultCallTimeout bounds the connect-and-round-trip of Call.
	DefaultCallTimeout = 5 * time.Second
	// reachableTimeout bounds the bare connect probe of IsReachable.
	reachableTimeout = 2 * time.Second

	maxResponseBytes = 1 << 20
)

// request is a JSON-RPC 2.0 request object.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      uint64 `json:"id"`
}

// response is a JSON-RPC 2.0 response object.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
	ID      uint64          `json:"id"`
}

// Client talks JSON-RPC 2.0 to the relay's control port. It is safe for
// concurrent use; the request id counter is process-lifetime and strictly
// increasing across all calls.
type Client struct {
	addr        string
	callTimeout time.Duration
	nextID      atomic.Uint64
}

// NewClient builds a client for host:port. timeout <= 0 selects
// DefaultCallTimeout.
func NewClient(host string, port int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Client{
		addr:        net.JoinHostPort(host, strconv.Itoa(port)),
		callTimeout: timeout,
	}
}

// Addr returns the control endpoint address.
func (c *Client) Addr() string {
	return c.addr
}

// Call sends one newline-terminated request and decodes exactly one
// response. Transport problems (refusal, timeout, framing) surface as
// *TransportError; a response carrying an error member surfaces as
// *RemoteFault with the remote payload preserved. A response without a
// result decodes to an empty object.
func (c *Client) Call(method string, params map[string]any) (map[string]any, error) {
	id := c.nextID.Add(1)

	req := request{JSONRPC: "2.0", Method: method, ID: id}
	if len(params) > 0 {
		req.Params = params
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &TransportError{Op: "encode", Err: err}
	}

	deadline := time.Now().Add(c.callTimeout)

	conn, err := net.DialTimeout("tcp", c.addr, c.callTimeout)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return nil, &TransportError{Op: "deadline", Err: err}
	}

	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, &TransportError{Op: "write", Err: err}
	}

	// Read until a newline or until the peer closes; either terminates one
	// response.
	line, err := readResponseLine(conn)
	if err != nil {
		return nil, &TransportError{Op: "read", Err: err}
	}

	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, &TransportError{Op: "decode", Err: err}
	}

	if len(resp.Error) > 0 && string(resp.Error) != "null" {
		return nil, newRemoteFault(resp.Error)
	}

	result := map[string]any{}
	if len(resp.Result) > 0 && string(resp.Result) != "null" {
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return nil, &TransportError{Op: "decode", Err: err}
		}
	}
	return result, nil
}

func readResponseLine(conn net.Conn) ([]byte, error) {
	reader := bufio.NewReader(&limitedConn{conn: conn, remaining: maxResponseBytes})
	line, err := reader.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return line, nil
		}
		return nil, err
	}
	return line, nil
}

// limitedConn guards against a misbehaving peer streaming unbounded data.
type limitedConn struct {
	conn      net.Conn
	remaining int
}

func (l *limitedConn) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, fmt.Errorf("control response exceeds %d bytes", maxResponseBytes)
	}
	if len(p) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.conn.Read(p)
	l.remaining -= n
	return n, err
}

// IsReachable probes the control port with a bare TCP connect. It never
// returns an error: unreachable is an answer, not a failure.
func (c *Client) IsReachable() bool {
	conn, err := net.DialTimeout("tcp", c.addr, reachableTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// OnlineStatus asks the relay for its XMPP connection state. The expected
// values are "online" and "offline"; an absent status field reports
// "unknown".
func (c *Client) OnlineStatus() (string, error) {
	result, err := c.Call("get_online_status", nil)
	if err != nil {
		return "", err
	}
	status, _ := result["status"].(string)
	if status == "" {
		status = "unknown"
	}
	return status, nil
}

// SetOnlineStatus tells the relay to go online or offline.
func (c *Client) SetOnlineStatus(status string) error {
	_, err := c.Call("set_online_status", map[string]any{"status": status})
	return err
}

// RequestShutdown asks the relay to exit so its supervisor relaunches it.
// Fire-and-forget: the relay often closes the connection before answering,
// and the caller only needs the nudge delivered, so errors are discarded.
func (c *Client) RequestShutdown() {
	_, _ = c.Call("shutdown", nil)
}
