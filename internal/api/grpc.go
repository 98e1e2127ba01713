package api

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Fully-qualified names of the JourneyPlanner RPCs. Messages are
// google.protobuf.Struct values carrying the JSON forms of the request and
// response types in this package.
const (
	JourneyPlannerServiceName = "transit.planner.v1.JourneyPlanner"

	PlanJourneyFullMethod    = "/" + JourneyPlannerServiceName + "/PlanJourney"
	SearchStationsFullMethod = "/" + JourneyPlannerServiceName + "/SearchStations"
	LineStatusFullMethod     = "/" + JourneyPlannerServiceName + "/LineStatus"
)

// JourneyPlannerServer is the server API for the JourneyPlanner service.
type JourneyPlannerServer interface {
	PlanJourney(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SearchStations(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LineStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterJourneyPlannerServer registers srv on s.
func RegisterJourneyPlannerServer(s grpc.ServiceRegistrar, srv JourneyPlannerServer) {
	s.RegisterService(&JourneyPlannerServiceDesc, srv)
}

// JourneyPlannerServiceDesc describes the JourneyPlanner service.
var JourneyPlannerServiceDesc = grpc.ServiceDesc{
	ServiceName: JourneyPlannerServiceName,
	HandlerType: (*JourneyPlannerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PlanJourney", Handler: planJourneyHandler},
		{MethodName: "SearchStations", Handler: searchStationsHandler},
		{MethodName: "LineStatus", Handler: lineStatusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "transit/planner/v1/planner.proto",
}

func unaryHandler(fullMethod string, call func(JourneyPlannerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(JourneyPlannerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(JourneyPlannerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var (
	planJourneyHandler    = unaryHandler(PlanJourneyFullMethod, JourneyPlannerServer.PlanJourney)
	searchStationsHandler = unaryHandler(SearchStationsFullMethod, JourneyPlannerServer.SearchStations)
	lineStatusHandler     = unaryHandler(LineStatusFullMethod, JourneyPlannerServer.LineStatus)
)

// GRPCServer adapts a Service to JourneyPlannerServer.
type GRPCServer struct {
	svc *Service
}

// NewGRPCServer wraps svc.
func NewGRPCServer(svc *Service) *GRPCServer {
	return &GRPCServer{svc: svc}
}

// PlanJourney decodes a PlanRequest and returns a PlanResponse.
func (g *GRPCServer) PlanJourney(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req PlanRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	resp, err := g.svc.PlanJourney(ctx, req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return toStructStatus(resp)
}

// SearchStations decodes a StationSearchRequest and returns a
// StationSearchResponse.
func (g *GRPCServer) SearchStations(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req StationSearchRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	resp, err := g.svc.SearchStations(ctx, req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return toStructStatus(resp)
}

// LineStatus returns a LineStatusResponse. The request is ignored.
func (g *GRPCServer) LineStatus(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	resp, err := g.svc.LineStatus(ctx)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return toStructStatus(resp)
}

// JourneyPlannerClient calls the JourneyPlanner service with typed values.
type JourneyPlannerClient struct {
	cc grpc.ClientConnInterface
}

// NewJourneyPlannerClient wraps a connection.
func NewJourneyPlannerClient(cc grpc.ClientConnInterface) *JourneyPlannerClient {
	return &JourneyPlannerClient{cc: cc}
}

// PlanJourney plans a journey.
func (c *JourneyPlannerClient) PlanJourney(ctx context.Context, req PlanRequest, opts ...grpc.CallOption) (*PlanResponse, error) {
	var resp PlanResponse
	if err := c.invoke(ctx, PlanJourneyFullMethod, req, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchStations searches stations.
func (c *JourneyPlannerClient) SearchStations(ctx context.Context, req StationSearchRequest, opts ...grpc.CallOption) (*StationSearchResponse, error) {
	var resp StationSearchResponse
	if err := c.invoke(ctx, SearchStationsFullMethod, req, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LineStatus fetches the status board.
func (c *JourneyPlannerClient) LineStatus(ctx context.Context, opts ...grpc.CallOption) (*LineStatusResponse, error) {
	var resp LineStatusResponse
	if err := c.invoke(ctx, LineStatusFullMethod, struct{}{}, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *JourneyPlannerClient) invoke(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return err
	}
	return fromStruct(out, resp)
}

// toStruct converts a JSON-tagged value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	s := new(structpb.Struct)
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return s, nil
}

func toStructStatus(v any) (*structpb.Struct, error) {
	s, err := toStruct(v)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return s, nil
}

// fromStruct decodes a Struct into a JSON-tagged value. Malformed input is
// reported as ErrInvalidRequest.
func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		s = new(structpb.Struct)
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}
