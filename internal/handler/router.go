package handler

import (
	"net/http"
	"time"

	"maintenance-task-service/internal/handler/health"
	"maintenance-task-service/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type RouterConfig struct {
	TaskHandler         *TaskHandler
	NotificationHandler *NotificationHandler
	HealthHandler       health.HealthHandlerInterface
	Logger              zerolog.Logger
	RateLimit           rate.Limit
	RateBurst           int
}

func SetupRouter(cfg RouterConfig) *gin.Engine {

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(cfg.Logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.RateLimit > 0 && cfg.RateBurst > 0 {
		r.Use(middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst).Handler())
	}

	api := r.Group("/api/v1")
	{
		tasks := api.Group("/tasks")
		{
			tasks.GET("", cfg.TaskHandler.ListTasks)
			tasks.POST("", cfg.TaskHandler.CreateTask)
			tasks.POST("/bulk", cfg.TaskHandler.CreateBulkTask)

			tasks.GET("/search", cfg.TaskHandler.SearchTasks)
			tasks.GET("/overdue", cfg.TaskHandler.ListOverdue)
			tasks.GET("/assignee/:assigneeId", cfg.TaskHandler.ListByAssignee)
			tasks.GET("/creator/:creatorId", cfg.TaskHandler.ListByCreator)
			tasks.GET("/status/:status", cfg.TaskHandler.ListByStatus)
			tasks.GET("/priority/:priority", cfg.TaskHandler.ListByPriority)
			tasks.GET("/property/:propertyId", cfg.TaskHandler.ListByProperty)

			tasks.GET("/:id", cfg.TaskHandler.GetTask)
			tasks.PUT("/:id", cfg.TaskHandler.UpdateTask)
			tasks.DELETE("/:id", cfg.TaskHandler.DeleteTask)
			tasks.PATCH("/:id/priority", cfg.TaskHandler.UpdatePriority)
			tasks.PATCH("/:id/due-date", cfg.TaskHandler.UpdateDueDate)

			tasks.POST("/:id/assign/:assigneeId", cfg.TaskHandler.AssignTask)
			tasks.POST("/:id/start", cfg.TaskHandler.StartTask)
			tasks.POST("/:id/complete", cfg.TaskHandler.CompleteTask)
			tasks.POST("/:id/cancel", cfg.TaskHandler.CancelTask)
			tasks.POST("/:id/escalate", cfg.TaskHandler.EscalateTask)
		}

		api.GET("/metrics", cfg.TaskHandler.GetMetrics)

		if cfg.NotificationHandler != nil {
			api.GET("/users/:userId/notifications", cfg.NotificationHandler.ListForUser)
		}
	}

	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.Check)
	} else {
		r.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}

	return r
}
