package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	apihttp "github.com/GriffinCanCode/gatedev/internal/api/http"
	"github.com/GriffinCanCode/gatedev/internal/api/middleware"
	"github.com/GriffinCanCode/gatedev/internal/api/rpc"
	"github.com/GriffinCanCode/gatedev/internal/api/ws"
	"github.com/GriffinCanCode/gatedev/internal/domain/chardev"
	"github.com/GriffinCanCode/gatedev/internal/infrastructure/config"
	"github.com/GriffinCanCode/gatedev/internal/infrastructure/logging"
	"github.com/GriffinCanCode/gatedev/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/gatedev/internal/infrastructure/tracing"
)

// Server owns the device and every transport that exposes it
type Server struct {
	config  *config.Config
	logger  *logging.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer

	ns     *chardev.Namespace
	device *chardev.Device

	router *gin.Engine
	http   *http.Server
	rpc    *grpc.Server

	closeOnce sync.Once
}

// Option customizes New
type Option func(*Server)

// WithLogger replaces the logger built from the config
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates the device and wires the HTTP, WebSocket and gRPC surfaces
// around it. Endpoint registration failures are returned.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Server{config: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		logger, err := logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
		s.logger = logger
	}
	log := s.logger.Logger

	log.Info("Initializing gatedev server",
		zap.String("http_addr", cfg.Server.Addr()),
		zap.Bool("rpc_enabled", cfg.RPC.Enabled),
		zap.String("rpc_addr", cfg.RPC.Address),
	)

	s.metrics = monitoring.NewMetrics()
	s.tracer = tracing.New("gatedev", log)

	devOpts, err := cfg.Device.ResolveDevice()
	if err != nil {
		s.tracer.Close()
		return nil, fmt.Errorf("failed to resolve device: %w", err)
	}
	devOpts.Logger = log
	devOpts.Recorder = s.metrics

	s.ns = chardev.NewNamespace()
	s.device, err = chardev.Start(s.ns, devOpts)
	if err != nil {
		s.tracer.Close()
		return nil, fmt.Errorf("failed to start device: %w", err)
	}

	s.router = s.buildRouter()
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.RPC.Enabled {
		s.rpc = rpc.NewServer(rpc.NewService(s.ns, s.device, log),
			tracing.GRPCUnaryInterceptor(s.tracer),
			rpc.MetricsInterceptor(s.metrics),
		)
	}

	log.Info("Server initialized",
		zap.String("device", s.device.Name()),
		zap.Int("capacity", s.device.Capacity()),
		zap.Any("endpoints", s.device.Endpoints()),
	)
	return s, nil
}

func (s *Server) buildRouter() *gin.Engine {
	cfg := s.config
	log := s.logger.Logger

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery(log))
	router.Use(tracing.HTTPMiddleware(s.tracer))
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.Logger(log))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		log.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	apihttp.NewHandlers(s.ns, s.device, log).Register(router)
	router.GET("/stream/:name", ws.NewHandler(s.ns, log, s.metrics).HandleConnection)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	router.GET("/metrics/json", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.metrics.Snapshot())
	})

	return router
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Device returns the device served by s
func (s *Server) Device() *chardev.Device {
	return s.device
}

// Run listens on the configured addresses and serves until ctx ends
func (s *Server) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Addr(), err)
	}

	var rpcLis net.Listener
	if s.rpc != nil {
		rpcLis, err = net.Listen("tcp", s.config.RPC.Address)
		if err != nil {
			httpLis.Close()
			return fmt.Errorf("failed to listen on %s: %w", s.config.RPC.Address, err)
		}
	}

	return s.Serve(ctx, httpLis, rpcLis)
}

// Serve serves on the given listeners until ctx ends or a server fails,
// then shuts everything down. rpcLis is ignored when RPC is disabled.
func (s *Server) Serve(ctx context.Context, httpLis, rpcLis net.Listener) error {
	log := s.logger.Logger
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Starting HTTP server", zap.String("addr", httpLis.Addr().String()))
		if err := s.http.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if s.rpc != nil && rpcLis != nil {
		g.Go(func() error {
			log.Info("Starting gRPC server", zap.String("addr", rpcLis.Addr().String()))
			if err := s.rpc.Serve(rpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

// shutdown stops the device first so parked readers return ErrShutdown
// and their requests can finish, then drains the transports.
func (s *Server) shutdown() error {
	log := s.logger.Logger
	log.Info("Shutting down server...")

	s.device.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	if s.rpc != nil {
		done := make(chan struct{})
		go func() {
			s.rpc.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.rpc.Stop()
			errs = append(errs, errors.New("grpc shutdown: timed out"))
		}
	}

	log.Info("Server stopped")
	return errors.Join(errs...)
}

// Close releases what New acquired. It is safe to call after Run returns.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.device.Stop()
		s.tracer.Close()
		s.logger.Sync()
	})
	return nil
}
