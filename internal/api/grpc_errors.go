package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/astro-aspects/ephem"
	"github.com/signalsfoundry/astro-aspects/internal/chartsvc"
	"github.com/signalsfoundry/astro-aspects/kb"
)

// ErrInvalidMessage is returned when a request Struct cannot be decoded.
var ErrInvalidMessage = errors.New("invalid message")

// ToStatusError maps service errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, kb.ErrSubjectNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidMessage),
		errors.Is(err, chartsvc.ErrInvalidRequest),
		errors.Is(err, ephem.ErrInvalidBirthData),
		errors.Is(err, ephem.ErrUnsupportedHouseSystem):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, kb.ErrSubjectExists):
		return status.Error(codes.AlreadyExists, err.Error())

	case errors.Is(err, chartsvc.ErrNoConvergence):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
