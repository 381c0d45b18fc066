// Package wire implements the fixed-width binary codec for rendezvous
// payloads (spec §6 "Wire payloads"): flat records of a 3-D float64 box plus
// integer fields, encoded in a stable byte order. Modeled stylistically on
// flatgeobuf-flatgeobuf's index.NodeItem — a flat minX,minY,maxX,maxY
// float64 record — but hand-rolled over encoding/binary rather than real
// flatbuffers, since generating flatbuffers code requires running the flatc
// compiler (see DESIGN.md).
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/geopart/hopi/bound"
)

var order = binary.LittleEndian

const boxBytes = 6 * 8 // 3 mins + 3 maxes, float64

// PlanRecord is a rendezvous-plan wire record: a box paired with the local
// id of the source point it bounds.
type PlanRecord struct {
	Bound bound.Box3[float64]
	ID    uint64
}

// SourceRecord is a global-source wire record: a box plus the rank and id
// that originated it.
type SourceRecord struct {
	Bound bound.Box3[float64]
	Rank  uint32
	ID    uint64
}

func putBox(buf *bytes.Buffer, b bound.Box3[float64]) {
	for _, v := range b.Min {
		binary.Write(buf, order, v)
	}
	for _, v := range b.Max {
		binary.Write(buf, order, v)
	}
}

func getBox(r *bytes.Reader) (bound.Box3[float64], error) {
	var b bound.Box3[float64]
	for i := range b.Min {
		if err := binary.Read(r, order, &b.Min[i]); err != nil {
			return b, err
		}
	}
	for i := range b.Max {
		if err := binary.Read(r, order, &b.Max[i]); err != nil {
			return b, err
		}
	}
	return b, nil
}

// EncodePlan serializes a vector<(Box<f64,3>, u64)>.
func EncodePlan(records []PlanRecord) []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, order, uint64(len(records)))
	for _, rec := range records {
		putBox(buf, rec.Bound)
		binary.Write(buf, order, rec.ID)
	}
	return buf.Bytes()
}

// DecodePlan deserializes the output of EncodePlan.
func DecodePlan(data []byte) ([]PlanRecord, error) {
	r := bytes.NewReader(data)
	var n uint64
	if err := binary.Read(r, order, &n); err != nil {
		return nil, fmt.Errorf("wire: decode plan count: %w", err)
	}
	out := make([]PlanRecord, n)
	for i := range out {
		b, err := getBox(r)
		if err != nil {
			return nil, fmt.Errorf("wire: decode plan bound %d: %w", i, err)
		}
		var id uint64
		if err := binary.Read(r, order, &id); err != nil {
			return nil, fmt.Errorf("wire: decode plan id %d: %w", i, err)
		}
		out[i] = PlanRecord{Bound: b, ID: id}
	}
	return out, nil
}

// EncodeSources serializes a vector<(Box<f64,3>, u32 rank, u64 id)>.
func EncodeSources(records []SourceRecord) []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, order, uint64(len(records)))
	for _, rec := range records {
		putBox(buf, rec.Bound)
		binary.Write(buf, order, rec.Rank)
		binary.Write(buf, order, rec.ID)
	}
	return buf.Bytes()
}

// DecodeSources deserializes the output of EncodeSources.
func DecodeSources(data []byte) ([]SourceRecord, error) {
	r := bytes.NewReader(data)
	var n uint64
	if err := binary.Read(r, order, &n); err != nil {
		return nil, fmt.Errorf("wire: decode sources count: %w", err)
	}
	out := make([]SourceRecord, n)
	for i := range out {
		b, err := getBox(r)
		if err != nil {
			return nil, fmt.Errorf("wire: decode sources bound %d: %w", i, err)
		}
		var rank uint32
		var id uint64
		if err := binary.Read(r, order, &rank); err != nil {
			return nil, fmt.Errorf("wire: decode sources rank %d: %w", i, err)
		}
		if err := binary.Read(r, order, &id); err != nil {
			return nil, fmt.Errorf("wire: decode sources id %d: %w", i, err)
		}
		out[i] = SourceRecord{Bound: b, Rank: rank, ID: id}
	}
	return out, nil
}
