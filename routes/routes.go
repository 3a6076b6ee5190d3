package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"latch-backend/config"
	"latch-backend/controllers"
)

type Handlers struct {
	Drivers  *controllers.DriverController
	WhatsApp *controllers.WhatsAppController
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	r.Use(config.PerformanceLogger(cfg.SlowRequestThreshold))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// Driver routes
		api.GET("/get-all-drivers", h.Drivers.GetAllDrivers)
		api.GET("/search-driver", h.Drivers.SearchDriver)
		api.POST("/add-driver", h.Drivers.AddDriver)
		api.POST("/update-driver", h.Drivers.UpdateDriver)
		api.DELETE("/delete-driver", h.Drivers.DeleteDriver)

		// WhatsApp session routes
		api.GET("/whatsapp-qr", h.WhatsApp.GetQR)
		api.GET("/whatsapp-status", h.WhatsApp.GetStatus)
	}

	return r
}
