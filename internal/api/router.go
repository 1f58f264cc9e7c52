package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"droneDeliveryRouting/internal/notify"
)

// NewRouter wires HTTP handlers with their dependencies and returns the
// gin engine. This is the API composition root; handlers stay unaware of
// concrete adapters.
func NewRouter(rc *RouteController, hub *notify.Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	routes := r.Group("/api/routes")
	{
		routes.GET("/active", rc.ListActive)
		routes.GET("/:id", rc.GetRoute)
		routes.GET("/:id/current-position", rc.GetCurrentPosition)
		routes.POST("/start-delivery", rc.StartDelivery)
		routes.POST("/batch-delivery", rc.BatchDelivery)
		routes.POST("/:id/abort", rc.AbortRoute)
	}

	// Live telemetry: route/{id} carries position samples, order/{id}
	// carries fulfillment events.
	r.GET("/ws/routes/:id", func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		hub.Serve(c.Writer, c.Request, notify.RouteTopic(id))
	})
	r.GET("/ws/orders/:id", func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		hub.Serve(c.Writer, c.Request, notify.OrderTopic(id))
	})

	return r
}
