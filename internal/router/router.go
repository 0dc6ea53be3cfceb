package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ziel-classes-api/api/swagger"
	"github.com/noah-isme/ziel-classes-api/internal/handler"
	"github.com/noah-isme/ziel-classes-api/internal/middleware"
	"github.com/noah-isme/ziel-classes-api/internal/models"
	"github.com/noah-isme/ziel-classes-api/internal/service"
	"github.com/noah-isme/ziel-classes-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ziel-classes-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ziel-classes-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Booking   *handler.BookingHandler
	Teacher   *handler.TeacherHandler
	Student   *handler.StudentHandler
	Dashboard *handler.DashboardHandler
	Auth      *handler.AuthHandler
	Metrics   *handler.MetricsHandler
}

// Params carries everything New needs to assemble the engine.
type Params struct {
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Auth           *service.AuthService
	Audit          *service.AuditService
	Dashboard      *service.DashboardService
	Handlers       Handlers
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
}

// New builds the gin engine with global middleware and every route.
// Reads are public; writes and the dashboard need an ADMIN token.
// Student registration is open and answers with the new student's token.
func New(p Params) *gin.Engine {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(p.AllowedOrigins))
	r.Use(middleware.Metrics(p.Metrics))

	h := p.Handlers
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if p.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(p.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	admin := []gin.HandlerFunc{middleware.JWT(p.Auth), middleware.RequireRoles(models.RoleAdmin)}
	write := func(action, resource string) []gin.HandlerFunc {
		chain := append([]gin.HandlerFunc{}, admin...)
		return append(chain,
			middleware.Audit(p.Audit, action, resource),
			middleware.InvalidateOnSuccess(p.Dashboard),
		)
	}
	with := func(chain []gin.HandlerFunc, fn gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, chain...), fn)
	}

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.GET("/me", middleware.JWT(p.Auth), h.Auth.Me)

	timeslots := api.Group("/timeslots")
	timeslots.GET("", h.Booking.List)
	timeslots.GET("/available", h.Booking.AvailableSlots)
	timeslots.GET("/available-students", h.Booking.AvailableStudents)
	timeslots.GET("/export", h.Booking.Export)
	timeslots.POST("", with(write(models.AuditActionCreate, models.AuditResourceBooking), h.Booking.Create)...)
	timeslots.PUT("/:id", with(write(models.AuditActionUpdate, models.AuditResourceBooking), h.Booking.Update)...)
	timeslots.DELETE("/:id", with(write(models.AuditActionDelete, models.AuditResourceBooking), h.Booking.Delete)...)

	teachers := api.Group("/teachers")
	teachers.GET("", h.Teacher.List)
	teachers.GET("/count", h.Teacher.Count)
	teachers.GET("/:id", h.Teacher.Get)
	teachers.POST("", with(write(models.AuditActionCreate, models.AuditResourceTeacher), h.Teacher.Create)...)
	teachers.PUT("/:id", with(write(models.AuditActionUpdate, models.AuditResourceTeacher), h.Teacher.Update)...)
	teachers.DELETE("/:id", with(write(models.AuditActionDelete, models.AuditResourceTeacher), h.Teacher.Delete)...)

	students := api.Group("/students")
	students.GET("", h.Student.List)
	students.GET("/count", h.Student.Count)
	students.GET("/:id", h.Student.Get)
	students.POST("",
		middleware.Audit(p.Audit, models.AuditActionCreate, models.AuditResourceStudent),
		middleware.InvalidateOnSuccess(p.Dashboard),
		h.Student.Register,
	)
	students.PUT("/:id", with(write(models.AuditActionUpdate, models.AuditResourceStudent), h.Student.Update)...)
	students.DELETE("/:id", with(write(models.AuditActionDelete, models.AuditResourceStudent), h.Student.Delete)...)

	if h.Dashboard != nil {
		api.GET("/dashboard/stats", with(admin, h.Dashboard.Stats)...)
	}

	return r
}
