package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/identitystore/identity-service/internal/api/handler"
	"github.com/identitystore/identity-service/internal/api/middleware"
	"github.com/identitystore/identity-service/internal/core/domain"
	"github.com/identitystore/identity-service/internal/core/ports"
)

// Deps holds what the router needs to serve requests.
type Deps struct {
	Users      ports.UserService
	Roles      ports.RoleService
	JWTSecret  string
	Checks     map[string]handler.Check
	Logger     zerolog.Logger
	// Registerer receives the HTTP request collectors. Defaults to the
	// global prometheus registerer.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	reg := d.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "identity_http",
		Registerer: reg,
	}))

	// --- Operational endpoints (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Checks)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Dependencies ---
	userHandler := handler.NewUserHandler(d.Users)
	roleHandler := handler.NewRoleHandler(d.Roles)
	adminHandler := handler.NewAdminHandler(d.Users, d.Roles)
	auth := middleware.Auth(d.JWTSecret)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	// --- Users ---
	e.POST("/users", userHandler.Create)

	users := e.Group("/users", auth)
	users.GET("", userHandler.List)
	users.GET("/my-info", userHandler.MyInfo)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	admin := e.Group("/admin", auth, adminOnly)
	admin.POST("/users/:role", userHandler.CreateWithRole)
	admin.GET("/stats", adminHandler.Stats)

	// --- Roles ---
	roles := e.Group("/roles", auth)
	roles.GET("", roleHandler.List)
	roles.POST("", roleHandler.Create, adminOnly)
	roles.DELETE("/:name", roleHandler.Delete, adminOnly)

	return e
}
