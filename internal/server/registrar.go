package server

import "google.golang.org/grpc"

// Registrar attaches one service implementation to a gRPC server.
// NewGRPCServer marks every registered service as SERVING in grpc.health.v1.
type Registrar interface {
	Register(s grpc.ServiceRegistrar)
}
