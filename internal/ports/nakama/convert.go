package nakama

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"kickoff/internal/app"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var errMissingCode = errors.New("decision payload requires a numeric code")

// toStruct converts any JSON-encodable value into a protobuf Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

// encodeSnapshot serialises a snapshot for OpSnapshot as a google.protobuf.Struct.
func encodeSnapshot(snap app.Snapshot) ([]byte, error) {
	s, err := toStruct(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot to struct: %w", err)
	}
	return proto.Marshal(s)
}

// decodeSnapshot reverses encodeSnapshot.
func decodeSnapshot(data []byte) (app.Snapshot, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return app.Snapshot{}, err
	}
	raw, err := protojson.Marshal(&s)
	if err != nil {
		return app.Snapshot{}, err
	}
	var snap app.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return app.Snapshot{}, err
	}
	return snap, nil
}

// decodeDecisionCode reads the "code" field of an OpSubmitDecision payload.
// Both binary and JSON encoded Structs are accepted.
func decodeDecisionCode(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, errMissingCode
	}
	var s structpb.Struct
	var err error
	if data[0] == '{' {
		err = protojson.Unmarshal(data, &s)
	} else {
		err = proto.Unmarshal(data, &s)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid decision payload: %w", err)
	}

	v, ok := s.GetFields()["code"]
	if !ok {
		return 0, errMissingCode
	}
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, errMissingCode
	}
	if num.NumberValue != math.Trunc(num.NumberValue) {
		return 0, fmt.Errorf("decision code %v is not an integer", num.NumberValue)
	}
	return int(num.NumberValue), nil
}

// encodeError builds the OpError payload.
func encodeError(code int, op int64, message string) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]interface{}{
		"code":    code,
		"op_code": op,
		"message": message,
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

// buildLabel renders the JSON match label used by MatchList queries.
func buildLabel(matchID, owner string, state app.State) (string, error) {
	label, err := structpb.NewStruct(map[string]interface{}{
		MatchLabelKey_MatchID: matchID,
		MatchLabelKey_Owner:   owner,
		MatchLabelKey_State:   state.String(),
	})
	if err != nil {
		return "", err
	}
	labelBytes, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(labelBytes), nil
}
