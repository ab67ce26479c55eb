package httpapi

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"refpay.org/internal/obs"
)

// GRPCHealth exposes the standard gRPC health protocol on a side port,
// mirroring the readiness probe behind /readyz.
type GRPCHealth struct {
	server *grpc.Server
	health *health.Server
	probe  ReadyProbe
}

func NewGRPCHealth(probe ReadyProbe) *GRPCHealth {
	g := &GRPCHealth{
		server: grpc.NewServer(),
		health: health.NewServer(),
		probe:  probe,
	}
	healthpb.RegisterHealthServer(g.server, g.health)
	return g
}

// Serve listens on addr until the context is canceled. The serving
// status is re-evaluated every ten seconds.
func (g *GRPCHealth) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	g.refresh(ctx)
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				g.server.GracefulStop()
				return
			case <-ticker.C:
				g.refresh(ctx)
			}
		}
	}()

	return g.server.Serve(lis)
}

func (g *GRPCHealth) refresh(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := g.probe.Check(probeCtx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		obs.SetReady(false)
	} else {
		obs.SetReady(true)
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus("refpay-api", status)
}
