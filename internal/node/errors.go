package node

import (
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"kvring/internal/ring"
)

// errorDomain scopes the ErrorInfo reasons attached to failed calls.
const errorDomain = "kvring"

var ringErrors = []struct {
	reason string
	err    error
	code   codes.Code
}{
	{reason: "DUPLICATE_NODE", err: ring.ErrDuplicateNode, code: codes.AlreadyExists},
	{reason: "UNKNOWN_NODE", err: ring.ErrUnknownNode, code: codes.NotFound},
	{reason: "INVALID_WEIGHT", err: ring.ErrInvalidWeight, code: codes.InvalidArgument},
	{reason: "EMPTY_NODE_ID", err: ring.ErrEmptyNodeID, code: codes.InvalidArgument},
	{reason: "INVALID_REPLICAS", err: ring.ErrInvalidReplicas, code: codes.InvalidArgument},
	{reason: "EMPTY_RING", err: ring.ErrEmptyRing, code: codes.FailedPrecondition},
}

// RemoteError is a failed placement call. It unwraps to the ring error the
// server reported, so errors.Is(err, ring.ErrUnknownNode) works across the
// wire, and status.Code still sees the original code.
type RemoteError struct {
	Method string
	status *status.Status
	err    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("node: %s: %s (%s)", e.Method, e.status.Message(), e.status.Code())
}

func (e *RemoteError) Unwrap() error { return e.err }

// GRPCStatus lets status.FromError and status.Code see through the wrapper.
func (e *RemoteError) GRPCStatus() *status.Status { return e.status }

// toStatus maps ring errors to gRPC status codes and tags them with an
// ErrorInfo reason.
func toStatus(err error) error {
	for _, re := range ringErrors {
		if !errors.Is(err, re.err) {
			continue
		}
		st := status.New(re.code, err.Error())
		if detailed, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: re.reason, Domain: errorDomain}); derr == nil {
			st = detailed
		}
		return st.Err()
	}
	return status.Error(codes.Internal, err.Error())
}

// fromStatus maps a gRPC status back to the ring error it was produced from.
func fromStatus(method string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("node: %s: %w", method, err)
	}

	remote := &RemoteError{Method: method, status: st, err: err}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != errorDomain {
			continue
		}
		for _, re := range ringErrors {
			if re.reason == info.GetReason() {
				remote.err = re.err
			}
		}
	}
	return remote
}
