package rpc

import "github.com/GriffinCanCode/gatedev/internal/domain/chardev"

// OpenRequest opens a session on an endpoint alias.
type OpenRequest struct {
	Endpoint string `json:"endpoint"`
	Actor    string `json:"actor,omitempty"`
}

type OpenResponse struct {
	Session chardev.SessionInfo `json:"session"`
}

// ReadRequest blocks until the next write. A nil Offset reads at the
// session position and advances it. Count is capped at the capacity; zero
// means the whole buffer.
type ReadRequest struct {
	Session string `json:"session"`
	Offset  *int64 `json:"offset,omitempty"`
	Count   int    `json:"count,omitempty"`
}

type ReadResponse struct {
	Data []byte `json:"data"`
}

// WriteRequest stores Data and wakes every parked reader. Offset works as in
// ReadRequest.
type WriteRequest struct {
	Session string `json:"session"`
	Offset  *int64 `json:"offset,omitempty"`
	Data    []byte `json:"data"`
}

type WriteResponse struct {
	Written int `json:"written"`
}

type CloseRequest struct {
	Session string `json:"session"`
}

type CloseResponse struct{}

type StatsRequest struct{}

type StatsResponse struct {
	Stats     chardev.Stats           `json:"stats"`
	Endpoints []chardev.EndpointInfo `json:"endpoints"`
}
