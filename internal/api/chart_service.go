package api

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/astro-aspects/internal/chartsvc"
	"github.com/signalsfoundry/astro-aspects/internal/logging"
)

// ChartServiceName is the fully qualified gRPC service name.
const ChartServiceName = "astro.v1.ChartService"

// ChartServiceServer is the server API for astro.v1.ChartService. Every
// method takes and returns a google.protobuf.Struct.
type ChartServiceServer interface {
	CreateSubject(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSubject(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSubjects(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteSubject(context.Context, *structpb.Struct) (*structpb.Struct, error)
	NatalReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Transits(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Synastry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MoonPhase(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Retrogrades(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SolarReturn(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(ChartServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call structMethod) grpc.MethodDesc {
	fullMethod := "/" + ChartServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(ChartServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ChartServiceDesc describes astro.v1.ChartService for grpc.Server.
var ChartServiceDesc = grpc.ServiceDesc{
	ServiceName: ChartServiceName,
	HandlerType: (*ChartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateSubject", ChartServiceServer.CreateSubject),
		unaryMethod("GetSubject", ChartServiceServer.GetSubject),
		unaryMethod("ListSubjects", ChartServiceServer.ListSubjects),
		unaryMethod("DeleteSubject", ChartServiceServer.DeleteSubject),
		unaryMethod("NatalReport", ChartServiceServer.NatalReport),
		unaryMethod("Transits", ChartServiceServer.Transits),
		unaryMethod("Synastry", ChartServiceServer.Synastry),
		unaryMethod("MoonPhase", ChartServiceServer.MoonPhase),
		unaryMethod("Retrogrades", ChartServiceServer.Retrogrades),
		unaryMethod("SolarReturn", ChartServiceServer.SolarReturn),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "astro/v1/chart_service.proto",
}

// RegisterChartServiceServer registers srv on s.
func RegisterChartServiceServer(s grpc.ServiceRegistrar, srv ChartServiceServer) {
	s.RegisterService(&ChartServiceDesc, srv)
}

// ChartService implements ChartServiceServer on top of chartsvc.Service.
type ChartService struct {
	svc *chartsvc.Service
	log logging.Logger
}

var _ ChartServiceServer = (*ChartService)(nil)

// NewChartService constructs a ChartService.
func NewChartService(svc *chartsvc.Service, log logging.Logger) *ChartService {
	if log == nil {
		log = logging.Noop()
	}
	return &ChartService{svc: svc, log: log}
}

func (s *ChartService) ensureReady() error {
	if s == nil || s.svc == nil {
		return status.Error(codes.Unavailable, "chart service not initialised")
	}
	return nil
}

func requireID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	return nil
}

// reply encodes a result, mapping any error along the way.
func reply(v any, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, ToStatusError(err)
	}
	out, err := Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// CreateSubject stores a new subject and returns it with its natal chart.
func (s *ChartService) CreateSubject(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var req CreateSubjectRequest
	if err := Decode(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	return reply(s.svc.CreateSubject(ctx, req.Name, req.Birth))
}

// GetSubject returns one subject.
func (s *ChartService) GetSubject(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var req SubjectRequest
	if err := Decode(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	if err := requireID("subject_id", req.SubjectID); err != nil {
		return nil, err
	}
	return reply(s.svc.GetSubject(ctx, req.SubjectID))
}

// ListSubjects returns every subject.
func (s *ChartService) ListSubjects(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	subjects, err := s.svc.ListSubjects(ctx)
	return reply(ListSubjectsResponse{Subjects: subjects}, err)
}

// DeleteSubject removes one subject.
func (s *ChartService) DeleteSubject(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var req SubjectRequest
	if err := Decode(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	if err := requireID("subject_id", req.SubjectID); err != nil {
		return nil, err
	}
	err := s.svc.DeleteSubject(ctx, req.SubjectID)
	return reply(DeleteSubjectResponse{SubjectID: req.SubjectID, Deleted: err == nil}, err)
}

// NatalReport returns aspects, patterns, stelliums and dignities.
func (s *ChartService) NatalReport(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var req NatalReportRequest
	if err := Decode(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	if err := requireID("subject_id", req.SubjectID); err != nil {
		return nil, err
	}
	return reply(s.svc.NatalReport(ctx, req.SubjectID, req.Orb))
}

// Transits compares the sky at a moment with a subject's natal chart.
func (s *ChartService) Transits(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var req TransitsRequest
	if err := Decode(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	if err := requireID("subject_id", req.SubjectID); err != nil {
		return nil, err
	}
	at, err := ParseMoment(req.At)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return reply(s.svc.Transits(ctx, req.SubjectID, at, req.Orb))
}

// Synastry compares two subjects.
func (s *ChartService) Synastry(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var req SynastryRequest
	if err := Decode(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	if err := requireID("subject_a", req.SubjectA); err != nil {
		return nil, err
	}
	if err := requireID("subject_b", req.SubjectB); err != nil {
		return nil, err
	}
	return reply(s.svc.Synastry(ctx, req.SubjectA, req.SubjectB, req.Orb, req.Top))
}

// MoonPhase returns the lunation at a moment.
func (s *ChartService) MoonPhase(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var req MomentRequest
	if err := Decode(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	at, err := ParseMoment(req.At)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return reply(s.svc.MoonPhase(ctx, at))
}

// Retrogrades lists retrograde bodies at a moment.
func (s *ChartService) Retrogrades(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var req MomentRequest
	if err := Decode(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	at, err := ParseMoment(req.At)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return reply(s.svc.Retrogrades(ctx, at))
}

// SolarReturn casts the solar return chart for a year.
func (s *ChartService) SolarReturn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var req SolarReturnRequest
	if err := Decode(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	if err := requireID("subject_id", req.SubjectID); err != nil {
		return nil, err
	}
	return reply(s.svc.SolarReturn(ctx, req.SubjectID, req.Year, req.Orb))
}
