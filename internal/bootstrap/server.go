package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/skybooking/api"
	"github.com/Domenick1991/skybooking/config"
	"github.com/Domenick1991/skybooking/internal/middleware"
	"github.com/Domenick1991/skybooking/internal/service/booking"
	"github.com/Domenick1991/skybooking/internal/service/flights"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const swaggerDoc = "skybooking.swagger.json"

type Deps struct {
	Log      logrus.FieldLogger
	Flights  flights.FlightUseCase
	Bookings booking.BookingUseCase
}

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
	log        logrus.FieldLogger
}

// Run starts the HTTP API and the gRPC health server and blocks until ctx is
// canceled or a server fails.
func Run(ctx context.Context, cfg *config.Config, deps Deps) error {
	s := NewServers(cfg, deps)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.WithField("address", cfg.GRPC.Address).Info("gRPC health server listening")
		return s.grpcServer.Serve(lis)
	})
	g.Go(func() error {
		s.log.WithField("address", cfg.HTTP.Address).Info("HTTP server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown(time.Duration(cfg.HTTP.ShutdownTimeout) * time.Second)
	})

	return g.Wait()
}

func NewServers(cfg *config.Config, deps Deps) *Servers {
	if cfg.HTTP.GinMode != "" {
		gin.SetMode(cfg.HTTP.GinMode)
	}

	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)

	return &Servers{
		grpcServer: grpcSrv,
		health:     healthSrv,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           NewRouter(cfg.HTTP.SwaggerDir, deps),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: deps.Log,
	}
}

// healthService is the service name reported by the gRPC health server.
const healthService = "skybooking.Booking"

func (s *Servers) shutdown(timeout time.Duration) error {
	s.log.Info("shutting down servers")
	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.grpcServer.GracefulStop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// NewRouter builds the gin engine serving the booking API and its docs.
func NewRouter(swaggerDir string, deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.RequestLogger(deps.Log), middleware.Recovery(deps.Log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api")
	api.NewFlightHandler(deps.Flights, deps.Bookings).Register(apiGroup.Group("/flights"))
	api.NewBookingHandler(deps.Bookings).Register(apiGroup.Group("/bookings"))

	if swaggerDir != "" {
		router.StaticFS("/swagger", http.Dir(swaggerDir))
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/"+swaggerDoc))))
	}
	return router
}
