package utils

import (
	"github.com/gin-gonic/gin"
)

// Every response uses the {success, error, message, data} envelope the admin UI reads.

func RespondWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   true,
		"message": message,
	})
}

func RespondWithData(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"error":   false,
		"message": message,
		"data":    data,
	})
}
