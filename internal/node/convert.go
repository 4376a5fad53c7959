package node

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"kvring/internal/ring"
)

// Request and response field names.
const (
	fieldID           = "id"
	fieldWeight       = "weight"
	fieldKey          = "key"
	fieldReplicas     = "replicas"
	fieldNodes        = "nodes"
	fieldVirtualNodes = "virtual_nodes"
	fieldBaseVNodes   = "base_vnodes"
	fieldCollisions   = "collisions"
)

// stringField returns a required string field.
func stringField(s *structpb.Struct, name string) (string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return "", fmt.Errorf("missing field %q", name)
	}
	str, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("field %q must be a string", name)
	}
	return str.StringValue, nil
}

// intField returns an optional integral number field, or def when absent.
func intField(s *structpb.Struct, name string, def int) (int, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return def, nil
	}
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("field %q must be a number", name)
	}
	f := num.NumberValue
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("field %q must be an integer, got %v", name, f)
	}
	return int(f), nil
}

func nodeRequest(id string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{fieldID: id})
}

func weightRequest(id string, weight int) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{fieldID: id, fieldWeight: weight})
}

func locateRequest(key string, replicas int) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldKey:      key,
		fieldReplicas: replicas,
	})
}

func locateResponse(ids []string) (*structpb.Struct, error) {
	nodes := make([]any, len(ids))
	for i, id := range ids {
		nodes[i] = id
	}
	return structpb.NewStruct(map[string]any{fieldNodes: nodes})
}

func parseLocateResponse(s *structpb.Struct) ([]string, error) {
	list := s.GetFields()[fieldNodes].GetListValue()
	if list == nil {
		return nil, fmt.Errorf("missing field %q", fieldNodes)
	}
	ids := make([]string, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		str, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("field %q must hold strings", fieldNodes)
		}
		ids = append(ids, str.StringValue)
	}
	return ids, nil
}

// snapshotToProto converts a ring.Snapshot to its wire form.
func snapshotToProto(snap ring.Snapshot) (*structpb.Struct, error) {
	nodes := make([]any, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		nodes = append(nodes, map[string]any{
			fieldID:           n.ID,
			fieldWeight:       n.Weight,
			fieldVirtualNodes: n.VirtualNodes,
		})
	}
	return structpb.NewStruct(map[string]any{
		fieldNodes:        nodes,
		fieldVirtualNodes: snap.VirtualNodes,
		fieldBaseVNodes:   snap.BaseVNodes,
		fieldCollisions:   snap.Collisions,
	})
}

// protoToSnapshot converts the wire form back to a ring.Snapshot.
func protoToSnapshot(s *structpb.Struct) (ring.Snapshot, error) {
	var (
		snap ring.Snapshot
		err  error
	)
	if snap.VirtualNodes, err = intField(s, fieldVirtualNodes, 0); err != nil {
		return ring.Snapshot{}, err
	}
	if snap.BaseVNodes, err = intField(s, fieldBaseVNodes, 0); err != nil {
		return ring.Snapshot{}, err
	}
	if snap.Collisions, err = intField(s, fieldCollisions, 0); err != nil {
		return ring.Snapshot{}, err
	}

	snap.Nodes = []ring.NodeInfo{}
	for _, v := range s.GetFields()[fieldNodes].GetListValue().GetValues() {
		entry := v.GetStructValue()
		if entry == nil {
			return ring.Snapshot{}, fmt.Errorf("field %q must hold objects", fieldNodes)
		}
		var info ring.NodeInfo
		if info.ID, err = stringField(entry, fieldID); err != nil {
			return ring.Snapshot{}, err
		}
		if info.Weight, err = intField(entry, fieldWeight, 1); err != nil {
			return ring.Snapshot{}, err
		}
		if info.VirtualNodes, err = intField(entry, fieldVirtualNodes, 0); err != nil {
			return ring.Snapshot{}, err
		}
		snap.Nodes = append(snap.Nodes, info)
	}
	return snap, nil
}
