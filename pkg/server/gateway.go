package server

import (
	"fmt"

	"github.com/NeuralTrust/TrustGuard/pkg/config"
	"github.com/NeuralTrust/TrustGuard/pkg/infra/prometheus"
	"github.com/NeuralTrust/TrustGuard/pkg/server/router"
	"github.com/sirupsen/logrus"
)

type (
	GatewayServerDI struct {
		Config  *config.Config
		Logger  *logrus.Logger
		Routers []router.ServerRouter
	}
	GatewayServer struct {
		*BaseServer
	}
)

func NewGatewayServer(di GatewayServerDI) *GatewayServer {
	if di.Config.Metrics.Enabled {
		prometheus.Initialize(prometheus.MetricsConfig{
			EnableLatency:     di.Config.Metrics.EnableLatency,
			EnableConnections: di.Config.Metrics.EnableConnections,
			EnableStore:       di.Config.Metrics.EnableStore,
		})
	}

	s := &GatewayServer{
		BaseServer: NewBaseServer(di.Config, di.Logger).WithRouters(di.Routers...),
	}
	s.setupMetricsEndpoint()
	return s
}

func (s *GatewayServer) Run() error {
	s.startMetricsServer()
	addr := fmt.Sprintf(":%d", s.Config.Server.Port)
	s.Logger.WithField("addr", addr).Info("starting gateway server")
	return s.Router.Listen(addr)
}

func (s *GatewayServer) Shutdown() error {
	return s.shutdown()
}
