package remote

import (
	"testing"
	"time"

	"golang.org/x/exp/slices"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestFrameEncoding(t *testing.T) {
	cells := []bool{true, false}
	segments := []bool{false, true, true, false, false, false, false, false}
	msg, err := encodeFrame(cells, segments, 1500*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	gotCells, gotSegments, at, err := decodeFrame(msg)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(gotCells, cells) || !slices.Equal(gotSegments, segments) {
		t.Errorf("decoded %v %v, want %v %v", gotCells, gotSegments, cells, segments)
	}
	if at != 1500*time.Millisecond {
		t.Errorf("at = %v, want 1.5s", at)
	}
}

func TestDecodeFrame_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
	}{
		{"missing cells", map[string]any{"segments": []any{}, "elapsed_ns": 1.0}},
		{"segments not a list", map[string]any{"cells": []any{}, "segments": "on", "elapsed_ns": 1.0}},
		{"non-bool segment", map[string]any{"cells": []any{}, "segments": []any{1.0}, "elapsed_ns": 1.0}},
		{"missing elapsed", map[string]any{"cells": []any{}, "segments": []any{}}},
		{"elapsed not a number", map[string]any{"cells": []any{}, "segments": []any{}, "elapsed_ns": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := structpb.NewStruct(tt.fields)
			if err != nil {
				t.Fatal(err)
			}
			if _, _, _, err := decodeFrame(msg); err == nil {
				t.Error("decodeFrame accepted an invalid frame")
			}
		})
	}
}
