package dependency_container

import (
	"errors"
	"fmt"
	"sync"

	appAdmission "github.com/NeuralTrust/TrustGuard/pkg/app/admission"
	"github.com/NeuralTrust/TrustGuard/pkg/config"
	"github.com/NeuralTrust/TrustGuard/pkg/domain/admission"
	handlers "github.com/NeuralTrust/TrustGuard/pkg/handlers/http"
	"github.com/NeuralTrust/TrustGuard/pkg/infra/cache"
	"github.com/NeuralTrust/TrustGuard/pkg/infra/providers"
	"github.com/NeuralTrust/TrustGuard/pkg/infra/providers/openai"
	"github.com/NeuralTrust/TrustGuard/pkg/infra/ratestore"
	"github.com/NeuralTrust/TrustGuard/pkg/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

type Container struct {
	RateStore           admission.RateStore
	Controller          appAdmission.Controller
	HandlerTransport    handlers.HandlerTransport
	MiddlewareTransport middleware.Transport

	redis *lazyRedis
}

type ContainerDI struct {
	Cfg    *config.Config
	Logger *logrus.Logger
	// StreamClient overrides the OpenAI client, mainly for tests.
	StreamClient providers.StreamClient
}

func NewContainer(di ContainerDI) (*Container, error) {
	if di.Cfg == nil {
		return nil, errors.New("config is required")
	}
	cfg := di.Cfg

	lazy := &lazyRedis{
		config: cache.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TLS:      cfg.Redis.TLS,
		},
		logger: di.Logger,
	}

	store, err := ratestore.NewStoreLocator(di.Logger, lazy.Client).GetStore(ratestore.Options{
		Backend:            cfg.RateLimit.Store,
		FilePath:           cfg.RateLimit.StorePath,
		OperationTimeout:   cfg.RateLimit.StoreTimeout,
		BreakerTimeout:     cfg.RateLimit.BreakerTimeout,
		BreakerMaxFailures: cfg.RateLimit.BreakerMaxFailures,
		TTL:                cfg.RateLimit.SustainedWindow,
	})
	if err != nil {
		lazy.Close()
		return nil, err
	}

	controller, err := appAdmission.NewController(store, cfg.RateLimit.Limits(), di.Logger, nil)
	if err != nil {
		_ = store.Close()
		lazy.Close()
		return nil, fmt.Errorf("failed to initialize admission controller: %w", err)
	}

	streamClient := di.StreamClient
	if streamClient == nil {
		streamClient = openai.NewOpenaiClient()
	}
	streamConfig := &providers.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
	}

	return &Container{
		RateStore:  store,
		Controller: controller,
		HandlerTransport: handlers.HandlerTransport{
			ValidateHandler:   handlers.NewValidateHandler(di.Logger, controller, cfg.Server.TrustProxyHeaders),
			StreamHandler:     handlers.NewStreamHandler(di.Logger, streamClient, streamConfig),
			GetVersionHandler: handlers.NewGetVersionHandler(di.Logger),
		},
		MiddlewareTransport: middleware.Transport{
			PanicRecoverMiddleware: middleware.NewPanicRecoverMiddleware(di.Logger),
			TraceMiddleware:        middleware.NewTraceMiddleware(nil),
			MetricsMiddleware:      middleware.NewMetricsMiddleware(di.Logger),
			CORSMiddleware: middleware.NewCORSGlobalMiddleware(
				middleware.ParseOrigins(cfg.Server.CorsAllowOrigins),
				nil,
				true,
				[]string{"Retry-After", "X-Trace-Id"},
				"600",
			),
		},
		redis: lazy,
	}, nil
}

// Close releases the rate store, then the redis connection if one was opened.
func (c *Container) Close() error {
	err := c.RateStore.Close()
	c.redis.Close()
	return err
}

type lazyRedis struct {
	config cache.Config
	logger *logrus.Logger

	mu     sync.Mutex
	client *redis.Client
}

func (l *lazyRedis) Client() (*redis.Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.client != nil {
		return l.client, nil
	}
	client, err := cache.NewRedisClient(l.config, l.logger)
	if err != nil {
		return nil, err
	}
	l.client = client
	return client, nil
}

func (l *lazyRedis) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.client != nil {
		_ = l.client.Close()
		l.client = nil
	}
}
