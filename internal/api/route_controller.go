package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"droneDeliveryRouting/internal/planner"
	"droneDeliveryRouting/internal/sim"
	"droneDeliveryRouting/models"
	"droneDeliveryRouting/repository"
)

// RouteController exposes planning and execution over HTTP. It validates
// request shape, delegates to the planner and engine, and serializes the
// results; all domain decisions live below it.
type RouteController struct {
	planner *planner.Planner
	engine  *sim.Engine
	routes  repository.RouteRepositoryI
	drones  repository.DroneRepositoryI
	stores  repository.StoreRepositoryI
}

func NewRouteController(p *planner.Planner, e *sim.Engine, routes repository.RouteRepositoryI, drones repository.DroneRepositoryI, stores repository.StoreRepositoryI) *RouteController {
	return &RouteController{planner: p, engine: e, routes: routes, drones: drones, stores: stores}
}

// GetRoute returns one route with its ordered stops.
func (rc *RouteController) GetRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	route, err := rc.routes.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if route == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
		return
	}
	c.JSON(http.StatusOK, rc.summarize(c, route))
}

// GetCurrentPosition returns the latest telemetry sample for a route.
func (rc *RouteController) GetCurrentPosition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pos, err := rc.routes.LatestPosition(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if pos == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no position recorded for route"})
		return
	}
	c.JSON(http.StatusOK, positionSummary(pos))
}

// ListActive returns all routes currently LAUNCHED or IN_PROGRESS.
func (rc *RouteController) ListActive(c *gin.Context) {
	routes, err := rc.routes.ListActive(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]RouteSummary, 0, len(routes))
	for _, r := range routes {
		out = append(out, rc.summarize(c, r))
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}

// StartDelivery plans one route from an explicit order selection and
// launches it immediately.
func (rc *RouteController) StartDelivery(c *gin.Context) {
	var req StartDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	route, err := rc.planner.PlanFromSelection(c.Request.Context(), req.OrderIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := rc.engine.Launch(c.Request.Context(), route.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rc.summarize(c, route))
}

// BatchDelivery plans all pending orders into as many feasible routes as
// capacity allows and launches each planned route. Deferred orders stay
// pending for a future run.
func (rc *RouteController) BatchDelivery(c *gin.Context) {
	result, err := rc.planner.PlanBatch(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := BatchSummary{
		BatchID:          result.BatchID,
		Routes:           make([]RouteSummary, 0, len(result.Routes)),
		DeferredOrderIDs: result.Deferred,
	}
	for _, route := range result.Routes {
		if err := rc.engine.Launch(c.Request.Context(), route.ID); err != nil {
			log.Printf("api: launch route %d from batch %s: %v", route.ID, result.BatchID, err)
		}
		out.Routes = append(out.Routes, rc.summarize(c, route))
	}
	c.JSON(http.StatusCreated, out)
}

// AbortRoute requests cancellation of an executing route.
func (rc *RouteController) AbortRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := rc.engine.Abort(id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"routeId": id, "status": "aborting"})
}

// summarize resolves display names; lookup failures degrade to ids only.
func (rc *RouteController) summarize(c *gin.Context, route *models.Route) RouteSummary {
	var droneModel, storeName string
	if d, err := rc.drones.GetByID(c.Request.Context(), route.DroneID); err == nil && d != nil {
		droneModel = d.Model
	}
	if s, err := rc.stores.GetByID(c.Request.Context(), route.StoreID); err == nil && s != nil {
		storeName = s.Name
	}
	return routeSummary(route, droneModel, storeName)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// writeError maps domain errors to HTTP status codes. Validation failures
// are 400, missing entities 404, capacity and lifecycle conflicts 409,
// anything unexpected 500.
func writeError(c *gin.Context, err error) {
	var capErr *planner.CapacityError
	switch {
	case errors.Is(err, planner.ErrNoOrders),
		errors.Is(err, planner.ErrTooManyOrders),
		errors.Is(err, planner.ErrMixedStores),
		errors.Is(err, planner.ErrOrderNotStartable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, planner.ErrOrderNotFound),
		errors.Is(err, sim.ErrRouteNotFound),
		errors.Is(err, sim.ErrStopNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &capErr):
		c.JSON(http.StatusConflict, gin.H{"error": capErr.Error(), "reason": capErr.Reason})
	case errors.Is(err, planner.ErrNoDroneAvailable),
		errors.Is(err, planner.ErrNoPendingOrders),
		errors.Is(err, sim.ErrRouteNotPlanned),
		errors.Is(err, sim.ErrRouteActive),
		errors.Is(err, sim.ErrRouteNotActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("api: internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
