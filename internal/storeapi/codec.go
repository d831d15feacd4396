package storeapi

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content-subtype this package registers and dials
// with. The store-exposure endpoint carries only two small, rarely-called
// methods, so a JSON codec keeps the wire format human-debuggable without
// needing protoc-generated message types for a surface this thin.
const codecName = "storeapi-json"

// jsonCodec implements google.golang.org/grpc/encoding.Codec over
// encoding/json, letting the store-exposure service use plain Go structs
// as its request/response types instead of protoc-generated proto.Message
// implementations.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
