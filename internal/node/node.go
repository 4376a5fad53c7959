package node

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"kvring/internal/logging"
	"kvring/internal/ring"
)

// Node serves the placement service for one ring.
type Node struct {
	nodeID     string
	listenAddr string
	ring       *ring.Ring
	log        logging.Logger
	grpcServer *grpc.Server
	health     *health.Server
}

// NewNode creates a new node instance.
func NewNode(nodeID, listenAddr string, r *ring.Ring, log logging.Logger) *Node {
	if log == nil {
		log = logging.Nop()
	}
	n := &Node{
		nodeID:     nodeID,
		listenAddr: listenAddr,
		ring:       r,
		log:        log,
		health:     health.NewServer(),
	}

	n.grpcServer = grpc.NewServer(grpc.ChainUnaryInterceptor(n.logUnary))
	RegisterRingServer(n.grpcServer, NewServer(r, log))
	healthpb.RegisterHealthServer(n.grpcServer, n.health)

	// Enable gRPC reflection for grpcurl
	reflection.Register(n.grpcServer)

	return n
}

// Ring returns the ring served by the node.
func (n *Node) Ring() *ring.Ring {
	return n.ring
}

// Start listens on the configured address and serves until Stop.
func (n *Node) Start() error {
	lis, err := net.Listen("tcp", n.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.listenAddr, err)
	}
	return n.Serve(lis)
}

// Serve serves on lis until Stop.
func (n *Node) Serve(lis net.Listener) error {
	n.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	n.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	n.log.Infof("Starting node %s on %s (nodes=%d, vnodes=%d)", n.nodeID, lis.Addr(), n.ring.Len(), n.ring.GetVNodes())
	if err := n.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop gracefully stops the node.
func (n *Node) Stop() {
	n.log.Infof("Stopping node %s", n.nodeID)
	n.health.Shutdown()
	n.grpcServer.GracefulStop()
}

func (n *Node) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		n.log.Warnf("%s failed after %v: %v", info.FullMethod, time.Since(start), err)
		return resp, err
	}
	n.log.Debugf("%s ok in %v", info.FullMethod, time.Since(start))
	return resp, nil
}
