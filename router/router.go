// Package router wires middleware, handlers and routes into the Gin engine.
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modular-health/modular-health-backend/config"
	"github.com/modular-health/modular-health-backend/handlers"
	"github.com/modular-health/modular-health-backend/middleware"
	"github.com/modular-health/modular-health-backend/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies struct holds all dependencies required for setting up routes.
type Dependencies struct {
	Config            *config.Config
	RateLimiter       services.RateLimiterInterface
	HealthHandler     *handlers.HealthHandler
	JobHandler        *handlers.JobHandler
	RoutineHandler    *handlers.RoutineHandler
	LogHandler        *handlers.LogHandler
	ProfileHandler    *handlers.ProfileHandler
	PreferenceHandler *handlers.PreferenceHandler
	PushTokenHandler  *handlers.PushTokenHandler
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Global Middleware
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	// Health and Metrics Routes (no auth)
	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		// Job triggers authenticate with the scheduler secret, not a user
		// token: they are invoked by an external scheduler.
		jobRoutes := v1.Group("/jobs")
		jobRoutes.Use(middleware.SchedulerAuth(&deps.Config.Server))
		if deps.RateLimiter != nil {
			jobRoutes.Use(middleware.RateLimiter(
				deps.RateLimiter,
				deps.Config.RateLimit.JobRequestsPerMinute,
				time.Duration(deps.Config.RateLimit.WindowSeconds)*time.Second,
			))
		}
		{
			jobRoutes.POST("/auto-log", deps.JobHandler.TriggerAutoLog)
			jobRoutes.POST("/reminders", deps.JobHandler.TriggerReminders)
		}

		// --- Authenticated user API ---
		authRoutes := v1.Group("")
		authRoutes.Use(middleware.AuthMiddleware(&deps.Config.Server))
		{
			routineRoutes := authRoutes.Group("/routines")
			{
				routineRoutes.POST("", deps.RoutineHandler.CreateRoutine)
				routineRoutes.GET("", deps.RoutineHandler.ListRoutines)
				routineRoutes.GET("/:id", deps.RoutineHandler.GetRoutine)
				routineRoutes.DELETE("/:id", deps.RoutineHandler.DeleteRoutine)

				variableRoutes := routineRoutes.Group("/:id/variables")
				{
					variableRoutes.POST("", deps.RoutineHandler.AddVariable)
					variableRoutes.PATCH("/:variableID", deps.RoutineHandler.UpdateVariable)
					variableRoutes.DELETE("/:variableID", deps.RoutineHandler.DeleteVariable)
				}
			}

			authRoutes.GET("/logs", deps.LogHandler.ListLogs)
			authRoutes.POST("/logs", deps.LogHandler.CreateLog)

			authRoutes.GET("/profile/timezone", deps.ProfileHandler.GetTimezone)
			authRoutes.PUT("/profile/timezone", deps.ProfileHandler.UpdateTimezone)

			authRoutes.GET("/preferences/notifications", deps.PreferenceHandler.GetPreferences)
			authRoutes.PUT("/preferences/notifications", deps.PreferenceHandler.UpdatePreferences)

			authRoutes.POST("/push-tokens", deps.PushTokenHandler.RegisterToken)
			authRoutes.DELETE("/push-tokens", deps.PushTokenHandler.DeregisterToken)
		}
	}

	return r
}
