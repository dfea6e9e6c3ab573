package health

import "github.com/gin-gonic/gin"

type HealthHandlerInterface interface {
	Check(c *gin.Context)
}
