// Package json routes encoding through jsoniter while keeping the
// encoding/json call shapes.
package json

import (
	stdjson "encoding/json"

	jsoniter "github.com/json-iterator/go"
)

// RawMessage is the standard library type so values cross package
// boundaries without conversion.
type RawMessage = stdjson.RawMessage

var (
	// JSON is the jsoniter.API used throughout the module.
	JSON = jsoniter.ConfigCompatibleWithStandardLibrary

	Marshal    = JSON.Marshal
	Unmarshal  = JSON.Unmarshal
	NewDecoder = JSON.NewDecoder
	NewEncoder = JSON.NewEncoder
)
