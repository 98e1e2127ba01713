package api

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/transit-planner/core"
	"github.com/signalsfoundry/transit-planner/internal/fares"
	linestatus "github.com/signalsfoundry/transit-planner/internal/status"
	"github.com/signalsfoundry/transit-planner/kb"
	"github.com/signalsfoundry/transit-planner/planner"
)

var (
	// ErrNotFound is used when a requested entity cannot be located.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest is used for malformed requests.
	ErrInvalidRequest = errors.New("invalid request")
)

// ToStatusError maps planner errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codeFor(err), err.Error())
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, kb.ErrStationNotFound),
		errors.Is(err, core.ErrUnknownStation):
		return codes.NotFound

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, planner.ErrInvalidQuery):
		return codes.InvalidArgument

	case errors.Is(err, linestatus.ErrUnavailable),
		errors.Is(err, fares.ErrUnavailable):
		return codes.Unavailable

	case errors.Is(err, context.Canceled):
		return codes.Canceled

	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded

	default:
		return codes.Internal
	}
}

// HTTPStatus maps planner errors onto HTTP status codes for the REST surface.
func HTTPStatus(err error) int {
	switch codeFor(err) {
	case codes.NotFound:
		return http.StatusNotFound
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.Canceled:
		return 499
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
