package server

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// QueryMethod is the full gRPC method name of Query.
const QueryMethod = "/sensorsql.SensorSQL/Query"

// jsonCodec lets the service run without generated protobuf code.
type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// SensorSQLServer is the gRPC service (manual descriptor, no protobuf).
type SensorSQLServer interface {
	Query(context.Context, *QueryRequest) (*QueryResponse, error)
}

// RegisterSensorSQLServer registers srv on s.
func RegisterSensorSQLServer(s *grpc.Server, srv SensorSQLServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: "sensorsql.SensorSQL",
		HandlerType: (*SensorSQLServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Query", Handler: _SensorSQL_Query_Handler},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "sensorsql",
	}, srv)
}

func _SensorSQL_Query_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(QueryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SensorSQLServer).Query(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: QueryMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SensorSQLServer).Query(ctx, req.(*QueryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Query implements SensorSQLServer. Query failures travel in the response
// body, like the HTTP API; only transport problems are gRPC errors.
func (s *Server) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	resp, _ := s.query(ctx, req.SQL)
	return resp, nil
}

// Client calls a remote SensorSQL service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to addr without transport security. Extra options are
// appended, e.g. a custom dialer in tests.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Query runs sql remotely. A failed query returns the response together with
// an error carrying its message.
func (c *Client) Query(ctx context.Context, sql string) (*QueryResponse, error) {
	var resp QueryResponse
	if err := c.conn.Invoke(ctx, QueryMethod, &QueryRequest{SQL: sql}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return &resp, errors.New(resp.Error)
	}
	return &resp, nil
}

// Close releases the connection.
func (c *Client) Close() error { return c.conn.Close() }
