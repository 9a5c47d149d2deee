package commitstore

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/sid"
	"github.com/graphledger/graphledger/internal/storage"
)

// flakeWire is flake.Flake's JSON-safe shape (sid.SID marshals fine as a
// uint64, but Object's Value is any and needs no special handling for the
// literal types the engine supports).
type flakeWire struct {
	S  uint64      `json:"s"`
	P  uint64      `json:"p"`
	O  objectWire  `json:"o"`
	T  int64       `json:"t"`
	Op bool        `json:"op"`
	M  flake.Meta  `json:"m,omitempty"`
}

type objectWire struct {
	Ref      uint64 `json:"ref,omitempty"`
	IsRef    bool   `json:"isRef,omitempty"`
	Value    any    `json:"value,omitempty"`
	Datatype uint64 `json:"datatype,omitempty"`
	Lang     string `json:"lang,omitempty"`
}

func toWire(f flake.Flake) flakeWire {
	return flakeWire{
		S: uint64(f.S), P: uint64(f.P), T: f.T, Op: f.Op, M: f.M,
		O: objectWire{
			Ref: uint64(f.O.Ref), IsRef: f.O.IsRef, Value: f.O.Value,
			Datatype: uint64(f.O.Datatype), Lang: f.O.Lang,
		},
	}
}

func fromWire(w flakeWire) flake.Flake {
	return flake.Flake{
		S: sid.SID(w.S), P: sid.SID(w.P), T: w.T, Op: w.Op, M: w.M,
		O: flake.Object{
			Ref: sid.SID(w.O.Ref), IsRef: w.O.IsRef, Value: w.O.Value,
			Datatype: sid.SID(w.O.Datatype), Lang: w.O.Lang,
		},
	}
}

func dataKey(hash string) string { return "data/" + hash }

// WriteData content-addresses and persists flakes, returning the key to
// record on a commit's Data field.
func WriteData(ctx context.Context, adapter storage.Adapter, flakes []flake.Flake) (string, error) {
	wire := make([]flakeWire, len(flakes))
	for i, f := range flakes {
		wire[i] = toWire(f)
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("commitstore: marshal data: %w", err)
	}
	sum := sha256.Sum256(data)
	key := fmt.Sprintf("sha256:%x", sum)
	if err := adapter.Write(ctx, dataKey(key), data); err != nil {
		return "", fmt.Errorf("commitstore: write data %s: %w", key, err)
	}
	return key, nil
}

// ReadData loads the flake set a commit's Data field points to.
func ReadData(ctx context.Context, adapter storage.Adapter, key string) ([]flake.Flake, error) {
	if key == "" {
		return nil, nil
	}
	data, err := adapter.Read(ctx, dataKey(key))
	if err != nil {
		return nil, fmt.Errorf("commitstore: read data %s: %w", key, err)
	}
	var wire []flakeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("commitstore: unmarshal data %s: %w", key, err)
	}
	out := make([]flake.Flake, len(wire))
	for i, w := range wire {
		out[i] = fromWire(w)
	}
	return out, nil
}
