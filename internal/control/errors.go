package control

import (
	"encoding/json"
	"fmt"
)

// TransportError indicates the control port could not be reached or the
// exchange did not complete: connection refused, deadline exceeded, or a
// malformed frame.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("control %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteFault indicates the relay answered with a protocol-level error. The
// raw error payload is preserved for diagnostics.
type RemoteFault struct {
	Code    int
	Message string
	Payload json.RawMessage
}

func (e *RemoteFault) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("relay error: %s", e.Message)
	}
	return fmt.Sprintf("relay error: %s", string(e.Payload))
}

func newRemoteFault(payload json.RawMessage) *RemoteFault {
	fault := &RemoteFault{Payload: payload}

	var detail struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &detail); err == nil {
		fault.Code = detail.Code
		fault.Message = detail.Message
	}
	return fault
}
