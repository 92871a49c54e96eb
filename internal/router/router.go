package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
	"github.com/jwalitptl/hospital-api/pkg/validator"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// StaffHandler also has routes reserved for receptionists and admins.
type StaffHandler interface {
	Handler
	RegisterStaffRoutes(*gin.RouterGroup)
}

// ClinicalHandler also has routes reserved for staff and doctors.
type ClinicalHandler interface {
	Handler
	RegisterClinicalRoutes(*gin.RouterGroup)
}

// OpsHandler serves unauthenticated operational endpoints at the root.
type OpsHandler interface {
	RegisterRoutes(gin.IRoutes)
}

type Router struct {
	engine       *gin.Engine
	auth         *middleware.AuthMiddleware
	authH        Handler
	appointmentH StaffHandler
	directoryH   ClinicalHandler
	healthH      OpsHandler
	metricsH     OpsHandler
}

type RouterConfig struct {
	Mode           string
	RateLimit      rate.Limit
	RateBurst      int
	RequestTimeout time.Duration
	MaxBodySize    int64
	CORSConfig     middleware.CORSConfig
	Metrics        *metrics.Metrics
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH Handler,
	appointmentH StaffHandler,
	directoryH ClinicalHandler,
	healthH OpsHandler,
	metricsH OpsHandler,
	config RouterConfig,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	validator.RegisterGinValidators()

	engine := gin.New()

	r := &Router{
		engine:       engine,
		auth:         auth,
		authH:        authH,
		appointmentH: appointmentH,
		directoryH:   directoryH,
		healthH:      healthH,
		metricsH:     metricsH,
	}

	if config.RequestTimeout <= 0 {
		config.RequestTimeout = middleware.DefaultTimeoutConfig().Duration
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = middleware.DefaultSizeLimitConfig().MaxBodySize
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NewNop()
	}

	// Add core middlewares
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.Metrics(config.Metrics),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.SizeLimit(middleware.SizeLimitConfig{MaxBodySize: config.MaxBodySize}),
	)

	if config.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	if r.healthH != nil {
		r.healthH.RegisterRoutes(r.engine)
	}
	if r.metricsH != nil {
		r.metricsH.RegisterRoutes(r.engine)
	}

	api := r.engine.Group("/api")

	// Public routes
	r.authH.RegisterRoutes(api)

	// Protected routes
	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.appointmentH.RegisterRoutes(protected)
	r.directoryH.RegisterRoutes(protected)

	staff := protected.Group("")
	staff.Use(r.auth.RequireRoles(model.RoleReceptionist, model.RoleAdmin))
	r.appointmentH.RegisterStaffRoutes(staff)

	clinical := protected.Group("")
	clinical.Use(r.auth.RequireRoles(model.RoleReceptionist, model.RoleAdmin, model.RoleDoctor))
	r.directoryH.RegisterClinicalRoutes(clinical)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
