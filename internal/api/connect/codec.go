package connect

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// CodecName is the Connect codec name used by GameService; requests travel
// as application/json (unary) and application/connect+json (streams).
const CodecName = "json"

// jsonCodec encodes plain Go message structs with encoding/json.
// It replaces Connect's built-in protojson codec, which only accepts
// proto.Message values.
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string { return CodecName }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// WithJSONCodec returns the option that both handlers and clients need.
func WithJSONCodec() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
