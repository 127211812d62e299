package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/orderdesk/internal/auth/domain"
	"github.com/smallbiznis/orderdesk/internal/config"
	customerdomain "github.com/smallbiznis/orderdesk/internal/customer/domain"
	notificationdomain "github.com/smallbiznis/orderdesk/internal/notification/domain"
	"github.com/smallbiznis/orderdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/orderdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/orderdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/orderdesk/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(httpMetrics.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log = log.Named("http.server")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	authsvc         authdomain.Service
	customerSvc     customerdomain.Service
	orderSvc        orderdomain.Service
	notificationSvc notificationdomain.Service
	tokenLimiter    TokenLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Authsvc         authdomain.Service
	CustomerSvc     customerdomain.Service
	OrderSvc        orderdomain.Service
	NotificationSvc notificationdomain.Service
	Limiter         *ratelimit.Limiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		authsvc:         p.Authsvc,
		customerSvc:     p.CustomerSvc,
		orderSvc:        p.OrderSvc,
		notificationSvc: p.NotificationSvc,
	}
	if p.Limiter.Enabled() {
		svc.tokenLimiter = p.Limiter
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	handle(s.engine, http.MethodPost, "/signup", s.Signup)
	handle(s.engine, http.MethodPost, "/token", s.TokenRateLimit(), s.ObtainToken)
	handle(s.engine, http.MethodPost, "/token/refresh", s.RefreshToken)
}

func (s *Server) registerAPIRoutes() {
	customers := s.engine.Group("/customers", s.AuthRequired())
	{
		handle(customers, http.MethodPost, "", s.CreateCustomer)
		handle(customers, http.MethodGet, "/:id", s.GetCustomerByID)
	}

	orders := s.engine.Group("/orders", s.AuthRequired())
	{
		handle(orders, http.MethodPost, "", s.CreateOrder)
		handle(orders, http.MethodGet, "/:slug", s.GetOrderBySlug)
	}
}

// handle registers path with and without a trailing slash.
func handle(r gin.IRoutes, method, path string, handlers ...gin.HandlerFunc) {
	path = strings.TrimSuffix(path, "/")
	r.Handle(method, path, handlers...)
	r.Handle(method, path+"/", handlers...)
}
