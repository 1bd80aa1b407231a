package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/astro-aspects/internal/chartsvc"
	"github.com/signalsfoundry/astro-aspects/model"
)

// ChartClient calls astro.v1.ChartService and decodes replies into the
// service's report types.
type ChartClient struct {
	cc grpc.ClientConnInterface
}

// NewChartClient wraps a client connection.
func NewChartClient(cc grpc.ClientConnInterface) *ChartClient {
	return &ChartClient{cc: cc}
}

// Call invokes method with req encoded as a Struct and decodes the reply
// into resp. resp may be nil.
func (c *ChartClient) Call(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := Encode(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ChartServiceName+"/"+method, in, out, opts...); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return DecodeResponse(out, resp)
}

// CreateSubject stores a subject.
func (c *ChartClient) CreateSubject(ctx context.Context, name string, birth model.BirthData) (*model.Subject, error) {
	var out model.Subject
	if err := c.Call(ctx, "CreateSubject", CreateSubjectRequest{Name: name, Birth: birth}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSubjects returns every stored subject.
func (c *ChartClient) ListSubjects(ctx context.Context) ([]*model.Subject, error) {
	var out ListSubjectsResponse
	if err := c.Call(ctx, "ListSubjects", struct{}{}, &out); err != nil {
		return nil, err
	}
	return out.Subjects, nil
}

// NatalReport fetches a natal report; orb 0 uses the server default.
func (c *ChartClient) NatalReport(ctx context.Context, subjectID string, orb float64) (*chartsvc.NatalReport, error) {
	var out chartsvc.NatalReport
	if err := c.Call(ctx, "NatalReport", NatalReportRequest{SubjectID: subjectID, Orb: orb}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transits fetches transits at the RFC 3339 moment at; empty means now.
func (c *ChartClient) Transits(ctx context.Context, subjectID, at string, orb float64) (*chartsvc.TransitReport, error) {
	var out chartsvc.TransitReport
	if err := c.Call(ctx, "Transits", TransitsRequest{SubjectID: subjectID, At: at, Orb: orb}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Synastry compares two subjects.
func (c *ChartClient) Synastry(ctx context.Context, a, b string, orb float64) (*chartsvc.SynastryReport, error) {
	var out chartsvc.SynastryReport
	if err := c.Call(ctx, "Synastry", SynastryRequest{SubjectA: a, SubjectB: b, Orb: orb}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
