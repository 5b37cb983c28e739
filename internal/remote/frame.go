// Package remote carries display notifications over gRPC so a session can
// watch a display that lives in another process.
//
// The service has a single server-streaming method,
// segverify.Display/Watch, whose request is google.protobuf.Empty and whose
// responses are google.protobuf.Struct frames:
//
//	{"cells": [bool...], "segments": [bool...], "elapsed_ns": number}
//
// elapsed_ns is the display host's virtual time when the state changed.
package remote

import (
	"fmt"
	"time"

	"github.com/golang/protobuf/ptypes/empty"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName = "segverify.Display"
	watchMethod = "/" + serviceName + "/Watch"

	// subscribedHeader is sent once the server-side subscription is live.
	subscribedHeader = "segverify-subscribed"
)

// displayService is the server-side handler type of the Display service.
type displayService interface {
	Watch(req *empty.Empty, stream grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*displayService)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "segverify/display.proto",
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	req := new(empty.Empty)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(displayService).Watch(req, stream)
}

func encodeFrame(cells, segments []bool, at time.Duration) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"cells":      boolList(cells),
		"segments":   boolList(segments),
		"elapsed_ns": float64(at),
	})
}

func decodeFrame(msg *structpb.Struct) (cells, segments []bool, at time.Duration, err error) {
	fields := msg.GetFields()
	if cells, err = decodeBools(fields, "cells"); err != nil {
		return nil, nil, 0, err
	}
	if segments, err = decodeBools(fields, "segments"); err != nil {
		return nil, nil, 0, err
	}
	v, ok := fields["elapsed_ns"]
	if !ok {
		return nil, nil, 0, fmt.Errorf("frame: missing elapsed_ns")
	}
	if _, ok := v.GetKind().(*structpb.Value_NumberValue); !ok {
		return nil, nil, 0, fmt.Errorf("frame: elapsed_ns is not a number")
	}
	return cells, segments, time.Duration(v.GetNumberValue()), nil
}

func boolList(bs []bool) []any {
	out := make([]any, len(bs))
	for i, b := range bs {
		out[i] = b
	}
	return out
}

func decodeBools(fields map[string]*structpb.Value, key string) ([]bool, error) {
	v, ok := fields[key]
	if !ok {
		return nil, fmt.Errorf("frame: missing %s", key)
	}
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("frame: %s is not a list", key)
	}
	out := make([]bool, len(list.GetValues()))
	for i, e := range list.GetValues() {
		b, ok := e.GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return nil, fmt.Errorf("frame: %s[%d] is not a bool", key, i)
		}
		out[i] = b.BoolValue
	}
	return out, nil
}
