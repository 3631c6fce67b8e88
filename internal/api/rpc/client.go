package rpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/GriffinCanCode/gatedev/internal/domain/chardev"
)

// Client calls a remote gatedev.v1.Device service.
type Client struct {
	conn *grpc.ClientConn
	addr string
}

// Dial creates a client for addr. Extra options are appended after the
// defaults, so tests can supply a custom dialer.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	defaults := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                60 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: false,
		}),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}

	conn, err := grpc.NewClient(addr, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial device service: %w", err)
	}
	return &Client{conn: conn, addr: addr}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp); err != nil {
		return fromStatus(err)
	}
	return nil
}

// Open opens a session on endpoint.
func (c *Client) Open(ctx context.Context, endpoint, actor string) (chardev.SessionInfo, error) {
	var resp OpenResponse
	err := c.invoke(ctx, "Open", &OpenRequest{Endpoint: endpoint, Actor: actor}, &resp)
	return resp.Session, err
}

// ReadAt blocks until the next write and returns up to count bytes at off.
func (c *Client) ReadAt(ctx context.Context, session string, off int64, count int) ([]byte, error) {
	var resp ReadResponse
	err := c.invoke(ctx, "Read", &ReadRequest{Session: session, Offset: &off, Count: count}, &resp)
	return resp.Data, err
}

// Read reads at the session position.
func (c *Client) Read(ctx context.Context, session string, count int) ([]byte, error) {
	var resp ReadResponse
	err := c.invoke(ctx, "Read", &ReadRequest{Session: session, Count: count}, &resp)
	return resp.Data, err
}

// WriteAt writes data at off and returns the number of bytes stored.
func (c *Client) WriteAt(ctx context.Context, session string, data []byte, off int64) (int, error) {
	var resp WriteResponse
	err := c.invoke(ctx, "Write", &WriteRequest{Session: session, Offset: &off, Data: data}, &resp)
	return resp.Written, err
}

// Write writes at the session position.
func (c *Client) Write(ctx context.Context, session string, data []byte) (int, error) {
	var resp WriteResponse
	err := c.invoke(ctx, "Write", &WriteRequest{Session: session, Data: data}, &resp)
	return resp.Written, err
}

// CloseSession closes a remote session.
func (c *Client) CloseSession(ctx context.Context, session string) error {
	return c.invoke(ctx, "Close", &CloseRequest{Session: session}, &CloseResponse{})
}

// Stats fetches device counters and the endpoint table.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.invoke(ctx, "Stats", &StatsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
