package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
)

// ProtoAny stores any proto.Message wrapped in a google.protobuf.Any so the
// payload carries its own type URL. Decode resolves the concrete message
// through the global registry, which means the message's Go package must be
// linked into the reading binary.
type ProtoAny struct{}

var _ Codec[any] = ProtoAny{}

func (ProtoAny) Encode(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("codec: ProtoAny cannot encode %T", v)
	}
	a, err := anypb.New(m)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(a)
}

func (ProtoAny) Decode(b []byte) (any, error) {
	var a anypb.Any
	if err := proto.Unmarshal(b, &a); err != nil {
		return nil, err
	}
	return a.UnmarshalNew()
}
