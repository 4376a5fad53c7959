package node

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"kvring/internal/logging"
	"kvring/internal/ring"
)

// Server implements the placement gRPC service over a ring.
type Server struct {
	ring *ring.Ring
	log  logging.Logger
}

// NewServer creates a new gRPC server instance.
func NewServer(r *ring.Ring, log logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	return &Server{
		ring: r,
		log:  log,
	}
}

// AddNode handles AddNode requests. A missing weight means 1.
func (s *Server) AddNode(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, err := stringField(req, fieldID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	weight, err := intField(req, fieldWeight, 1)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.log.Debugf("AddNode request: id=%s, weight=%d", id, weight)

	if err := s.ring.AddWeightedNode(id, weight); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// RemoveNode handles RemoveNode requests.
func (s *Server) RemoveNode(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, err := stringField(req, fieldID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.log.Debugf("RemoveNode request: id=%s", id)

	if err := s.ring.RemoveNode(id); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// SetWeight handles SetWeight requests.
func (s *Server) SetWeight(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, err := stringField(req, fieldID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if _, ok := req.GetFields()[fieldWeight]; !ok {
		return nil, status.Errorf(codes.InvalidArgument, "missing field %q", fieldWeight)
	}
	weight, err := intField(req, fieldWeight, 0)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.log.Debugf("SetWeight request: id=%s, weight=%d", id, weight)

	if err := s.ring.SetWeight(id, weight); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// Locate handles Locate requests. A missing replica count means 1.
func (s *Server) Locate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, err := stringField(req, fieldKey)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	replicas, err := intField(req, fieldReplicas, 1)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.log.Debugf("Locate request: key=%s, replicas=%d", key, replicas)

	ids, err := s.ring.LocateString(key, replicas)
	if err != nil {
		return nil, toStatus(err)
	}
	resp, err := locateResponse(ids)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

// Snapshot handles Snapshot requests.
func (s *Server) Snapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	resp, err := snapshotToProto(s.ring.Snapshot())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}
