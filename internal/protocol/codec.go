package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var ErrMissingEvent = errors.New("envelope has no event name")

// Codec turns envelopes into frames and back.
type Codec interface {
	Name() string
	Binary() bool
	Encode(env Envelope) ([]byte, error)
	Decode(data []byte) (Envelope, error)
}

// CodecByName returns the codec for name. Empty selects JSON.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "proto", "protobuf":
		return Proto{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// JSON encodes envelopes as {"event": ..., "data": ...} text.
type JSON struct{}

func (JSON) Name() string { return "json" }
func (JSON) Binary() bool { return false }

func (JSON) Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func (JSON) Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, ErrMissingEvent
	}
	return env, nil
}

// Proto encodes envelopes as a google.protobuf.Struct with "event" and
// "data" fields, for clients that prefer binary frames.
type Proto struct{}

func (Proto) Name() string { return "proto" }
func (Proto) Binary() bool { return true }

func (Proto) Encode(env Envelope) ([]byte, error) {
	var data any
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("payload: %w", err)
		}
	}
	s, err := structpb.NewStruct(map[string]any{
		"event": env.Event,
		"data":  data,
	})
	if err != nil {
		return nil, fmt.Errorf("struct: %w", err)
	}
	return proto.Marshal(s)
}

func (Proto) Decode(data []byte) (Envelope, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(data, s); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal: %w", err)
	}
	env := Envelope{Event: s.GetFields()["event"].GetStringValue()}
	if env.Event == "" {
		return Envelope{}, ErrMissingEvent
	}
	if v, ok := s.GetFields()["data"]; ok && v.GetKind() != nil {
		if _, isNull := v.GetKind().(*structpb.Value_NullValue); !isNull {
			raw, err := protojson.Marshal(v)
			if err != nil {
				return Envelope{}, fmt.Errorf("payload: %w", err)
			}
			env.Data = raw
		}
	}
	return env, nil
}
