// Package clipsyncv1 defines the ClipSync wire messages and gRPC service.
//
// Messages are plain Go structs carried by a JSON codec registered under the
// "json" content-subtype; clients created with NewClipSyncClient select it on
// every call, so no protobuf generation step is involved.
package clipsyncv1

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype used by ClipSync calls.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
