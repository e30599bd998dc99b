// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package command

import "testing"

type registerComputationArgs struct {
	SourceSignal string `json:"source_signal" validate:"required"`
	Kind         string `json:"computation_type" validate:"required"`
	OutputName   string `json:"output_name" validate:"required"`
}

func TestDecodeValidArgs(t *testing.T) {
	args := Args{
		"source_signal":    "can.speed",
		"computation_type": "running_average",
		"output_name":      "speed_avg",
	}

	var got registerComputationArgs
	if err := Decode(args, &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.SourceSignal != "can.speed" || got.Kind != "running_average" || got.OutputName != "speed_avg" {
		t.Errorf("unexpected decode result: %+v", got)
	}
}

func TestDecodeMissingRequiredField(t *testing.T) {
	args := Args{
		"source_signal": "can.speed",
	}

	var got registerComputationArgs
	if err := Decode(args, &got); err == nil {
		t.Fatal("expected validation error for missing required fields")
	}
}

func TestReplySubject(t *testing.T) {
	args := Args{"reply": "inbox.xyz"}
	reply, ok := ReplySubject(args)
	if !ok || reply != "inbox.xyz" {
		t.Errorf("expected reply subject to be extracted, got %q ok=%v", reply, ok)
	}

	_, ok = ReplySubject(Args{})
	if ok {
		t.Error("expected ok=false when reply key absent")
	}
}
