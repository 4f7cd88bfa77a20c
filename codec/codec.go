// Copyright 2026 Gavel Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package codec provides deterministic CBOR encoding for governance
// call payloads. Proposal payloads are content-addressed by hash, so
// the same logical payload must always produce identical bytes.
package codec

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: invalid encode options: %v", err))
	}
	encMode = em
	decOpts := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}
	dm, err := decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: invalid decode options: %v", err))
	}
	decMode = dm
}

// Marshal encodes a value as deterministic CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into the given value. Untyped maps
// decode as map[string]any.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Envelope is the wire form of a single governance call payload: an
// operation name plus an opaque operation body. Collaborators switch
// on Op and decode Body into their own payload types.
type Envelope struct {
	Op   string          `cbor:"op"`
	Body cbor.RawMessage `cbor:"body"`
}

// DecodeBody decodes the envelope body into the given value.
func (e Envelope) DecodeBody(v any) error {
	if len(e.Body) == 0 {
		return errors.New("empty envelope body")
	}
	return decMode.Unmarshal(e.Body, v)
}

// EncodeEnvelope builds the deterministic CBOR encoding of an
// operation envelope from an operation name and body value.
func EncodeEnvelope(op string, body any) ([]byte, error) {
	if op == "" {
		return nil, errors.New("empty operation name")
	}
	bodyData, err := encMode.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode envelope body: %w", err)
	}
	data, err := encMode.Marshal(Envelope{
		Op:   op,
		Body: cbor.RawMessage(bodyData),
	})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope parses an operation envelope from its CBOR encoding.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var envelope Envelope
	if err := decMode.Unmarshal(data, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.Op == "" {
		return Envelope{}, errors.New("envelope missing operation name")
	}
	return envelope, nil
}
