package telemetry

import (
	"fmt"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/ledchain/pkg/frame"
	"github.com/robotalks/ledchain/pkg/node"
)

// Field names of an encoded frame event.
const (
	fieldSeq       = "seq"
	fieldDeclared  = "declared"
	fieldRed       = "red"
	fieldGreen     = "green"
	fieldBlue      = "blue"
	fieldUpdated   = "updated"
	fieldRelayed   = "relayed"
	fieldTruncated = "truncated"
	fieldUnderflow = "underflow"
)

func numberValue(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

func boolValue(v bool) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_BoolValue{BoolValue: v}}
}

// EncodeFrameEvent encodes a FrameEvent as a protobuf Struct.
func EncodeFrameEvent(ev node.FrameEvent) ([]byte, error) {
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldSeq:       numberValue(float64(ev.Seq)),
		fieldDeclared:  numberValue(float64(ev.Declared)),
		fieldRed:       numberValue(float64(ev.Color.Red)),
		fieldGreen:     numberValue(float64(ev.Color.Green)),
		fieldBlue:      numberValue(float64(ev.Color.Blue)),
		fieldUpdated:   numberValue(float64(ev.Updated)),
		fieldRelayed:   numberValue(float64(ev.Relayed)),
		fieldTruncated: boolValue(ev.Truncated),
		fieldUnderflow: boolValue(ev.Underflow),
	}}
	return proto.Marshal(s)
}

// DecodeFrameEvent decodes a payload from EncodeFrameEvent.
func DecodeFrameEvent(payload []byte) (ev node.FrameEvent, err error) {
	var s structpb.Struct
	if err = proto.Unmarshal(payload, &s); err != nil {
		return
	}
	number := func(name string) float64 {
		v, ok := s.Fields[name]
		if !ok && err == nil {
			err = fmt.Errorf("missing field %q", name)
		}
		return v.GetNumberValue()
	}
	ev.Seq = uint64(number(fieldSeq))
	ev.Declared = byte(number(fieldDeclared))
	ev.Color = frame.Color{
		Red:   byte(number(fieldRed)),
		Green: byte(number(fieldGreen)),
		Blue:  byte(number(fieldBlue)),
	}
	ev.Updated = int(number(fieldUpdated))
	ev.Relayed = int(number(fieldRelayed))
	ev.Truncated = s.Fields[fieldTruncated].GetBoolValue()
	ev.Underflow = s.Fields[fieldUnderflow].GetBoolValue()
	return
}
