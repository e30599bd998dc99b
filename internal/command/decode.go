// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package command

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode marshals args back to JSON and unmarshals it into dest, then runs
// struct validation tags on it. This is the Go-native replacement for the
// duck-typed settings/command access pattern flagged in spec §9: handlers
// that need typed, validated arguments coerce once here at the handler
// boundary, instead of repeatedly probing the raw map at every use site.
//
//	type RegisterComputationArgs struct {
//	    SourceSignal string `json:"source_signal" validate:"required"`
//	    Kind         string `json:"computation_type" validate:"required"`
//	    OutputName   string `json:"output_name" validate:"required"`
//	}
//
//	var a RegisterComputationArgs
//	if err := command.Decode(args, &a); err != nil { ... }
func Decode(args Args, dest any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("command: encode args: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("command: decode args: %w", err)
	}
	if err := validate.Struct(dest); err != nil {
		return fmt.Errorf("command: validate args: %w", err)
	}
	return nil
}

// ReplySubject extracts the "reply" key injected by Router.Dispatch, if any.
func ReplySubject(args Args) (string, bool) {
	v, ok := args["reply"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
