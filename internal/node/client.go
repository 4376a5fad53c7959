package node

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"kvring/internal/ring"
)

// Client is a placement service client.
type Client struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn // set when the client owns the connection
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial creates a client for the service at addr.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return &Client{cc: conn, conn: conn}, nil
}

// Close closes the connection if the client created it.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// AddNode adds id with weight 1.
func (c *Client) AddNode(ctx context.Context, id string) error {
	return c.AddWeightedNode(ctx, id, 1)
}

// AddWeightedNode adds id with the given weight.
func (c *Client) AddWeightedNode(ctx context.Context, id string, weight int) error {
	req, err := weightRequest(id, weight)
	if err != nil {
		return err
	}
	return c.invoke(ctx, "AddNode", req, &emptypb.Empty{})
}

// RemoveNode removes id.
func (c *Client) RemoveNode(ctx context.Context, id string) error {
	req, err := nodeRequest(id)
	if err != nil {
		return err
	}
	return c.invoke(ctx, "RemoveNode", req, &emptypb.Empty{})
}

// SetWeight changes the weight of id.
func (c *Client) SetWeight(ctx context.Context, id string, weight int) error {
	req, err := weightRequest(id, weight)
	if err != nil {
		return err
	}
	return c.invoke(ctx, "SetWeight", req, &emptypb.Empty{})
}

// Locate returns up to replicas distinct node IDs for key.
func (c *Client) Locate(ctx context.Context, key string, replicas int) ([]string, error) {
	req, err := locateRequest(key, replicas)
	if err != nil {
		return nil, err
	}
	resp := &structpb.Struct{}
	if err := c.invoke(ctx, "Locate", req, resp); err != nil {
		return nil, err
	}
	return parseLocateResponse(resp)
}

// Snapshot returns the remote ring membership.
func (c *Client) Snapshot(ctx context.Context) (ring.Snapshot, error) {
	resp := &structpb.Struct{}
	if err := c.invoke(ctx, "Snapshot", &emptypb.Empty{}, resp); err != nil {
		return ring.Snapshot{}, err
	}
	return protoToSnapshot(resp)
}

// Healthy reports whether the remote placement service is serving.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	resp, err := healthpb.NewHealthClient(c.cc).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return false, err
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	if err := c.cc.Invoke(ctx, fullMethod(method), req, resp); err != nil {
		return fromStatus(method, err)
	}
	return nil
}
