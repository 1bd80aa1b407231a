package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/astro-aspects/model"
)

// Request payloads carried inside google.protobuf.Struct messages. Field
// names are the JSON keys clients put in the Struct.

type CreateSubjectRequest struct {
	Name  string          `json:"name"`
	Birth model.BirthData `json:"birth"`
}

type SubjectRequest struct {
	SubjectID string `json:"subject_id"`
}

type NatalReportRequest struct {
	SubjectID string  `json:"subject_id"`
	Orb       float64 `json:"orb,omitempty"`
}

type TransitsRequest struct {
	SubjectID string  `json:"subject_id"`
	At        string  `json:"at,omitempty"` // RFC 3339; empty means now
	Orb       float64 `json:"orb,omitempty"`
}

type SynastryRequest struct {
	SubjectA string  `json:"subject_a"`
	SubjectB string  `json:"subject_b"`
	Orb      float64 `json:"orb,omitempty"`
	Top      int     `json:"top,omitempty"`
}

type MomentRequest struct {
	At string `json:"at,omitempty"`
}

type SolarReturnRequest struct {
	SubjectID string  `json:"subject_id"`
	Year      int     `json:"year"`
	Orb       float64 `json:"orb,omitempty"`
}

// ListSubjectsResponse wraps the subject list, since a Struct cannot be a
// bare array.
type ListSubjectsResponse struct {
	Subjects []*model.Subject `json:"subjects"`
}

// DeleteSubjectResponse acknowledges a deletion.
type DeleteSubjectResponse struct {
	SubjectID string `json:"subject_id"`
	Deleted   bool   `json:"deleted"`
}

// Encode converts v to a Struct through its JSON form.
func Encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return structpb.NewStruct(m)
}

// Decode fills dst from a Struct through its JSON form. Unknown keys are
// rejected.
func Decode(in *structpb.Struct, dst any) error {
	return decode(in, dst, true)
}

// DecodeResponse is Decode for replies, where newer servers may send keys
// an older client does not know.
func DecodeResponse(in *structpb.Struct, dst any) error {
	return decode(in, dst, false)
}

func decode(in *structpb.Struct, dst any, strict bool) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}

// ParseMoment parses an optional RFC 3339 timestamp.
func ParseMoment(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: at %q is not RFC 3339", ErrInvalidMessage, s)
	}
	return t, nil
}
