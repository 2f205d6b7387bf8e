package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/coursehub-api/internal/middleware"
	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/service"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
	"github.com/noah-isme/coursehub-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/coursehub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/coursehub-api/pkg/middleware/requestid"
	"github.com/noah-isme/coursehub-api/pkg/response"
)

type identityResolver interface {
	Resolve(ctx context.Context, token string) models.Identity
}

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Cookie         middleware.SessionCookie

	Logger   *zap.Logger
	Metrics  *service.MetricsService
	Resolver identityResolver

	Actions  *ActionHandler
	Courses  *CourseHandler
	Students *StudentHandler
	Me       *MeHandler
	Probes   *MetricsHandler
}

// NewRouter builds the HTTP engine. Reads are GET only; any other verb on a
// read route answers 405. Every mutation goes through POST {prefix}/actions.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(response.MethodNotAllowed)
	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})

	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log, identityFields))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))

	if cfg.Probes != nil {
		r.GET("/health", cfg.Probes.Health)
		r.GET("/ready", cfg.Probes.Ready)
		r.GET("/metrics", cfg.Probes.Prometheus)
	}
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, middleware.Identity(cfg.Resolver, cfg.Cookie))
	api.POST("/actions", cfg.Actions.Submit)

	admin := api.Group("", middleware.RequireRole(models.RoleAdmin))
	admin.GET("/courses", cfg.Courses.List)
	admin.GET("/courses/:slug", cfg.Courses.Get)
	admin.GET("/courses/:slug/segments", cfg.Courses.Segments)
	admin.GET("/courses/:slug/students", cfg.Courses.Roster)
	admin.GET("/courses/:slug/students/export", cfg.Courses.ExportRoster)
	admin.GET("/students", cfg.Students.List)
	admin.GET("/students/:id", cfg.Students.Get)

	student := api.Group("/me", middleware.RequireRole(models.RoleStudent))
	student.GET("", cfg.Me.Profile)
	student.GET("/courses", cfg.Me.Courses)
	student.GET("/courses/:slug", cfg.Me.Course)
	student.GET("/courses/:slug/segments/:segmentSlug", cfg.Me.Segment)

	return r
}

func identityFields(c *gin.Context) []zap.Field {
	identity := middleware.CurrentIdentity(c)
	if !identity.Authenticated {
		return nil
	}
	return []zap.Field{
		zap.String("principal_id", identity.PrincipalID),
		zap.String("role", string(identity.Role)),
	}
}
