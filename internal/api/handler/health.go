package handler

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const readinessTimeout = 3 * time.Second

// Dependency states reported by the readiness probe.
const (
	statusOK           = "ok"
	statusUnhealthy    = "unhealthy"
	statusUnconfigured = "unconfigured"
)

// HealthHandler answers the liveness probe.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": statusOK,
	})
}

// HealthDependenciesHandler answers the readiness probe. The tracker is ready
// when MongoDB serves its collections and Redis, which holds idempotency
// claims and session revocations, answers.
type HealthDependenciesHandler struct {
	mongo       *mongo.Database
	collections []string
	redis       *redis.Client
}

// NewHealthDependenciesHandler accepts nil dependencies; they are reported as
// unconfigured.
func NewHealthDependenciesHandler(db *mongo.Database, collections []string, rdb *redis.Client) *HealthDependenciesHandler {
	return &HealthDependenciesHandler{
		mongo:       db,
		collections: collections,
		redis:       rdb,
	}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

func (h *HealthDependenciesHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	deps := map[string]dependencyStatus{
		"mongodb": h.checkMongo(ctx),
		"redis":   h.checkRedis(ctx),
	}

	status, httpStatus := statusOK, http.StatusOK
	for _, d := range deps {
		if d.Status != statusOK {
			status, httpStatus = "degraded", http.StatusServiceUnavailable
			break
		}
	}
	return c.JSON(httpStatus, readinessResponse{Status: status, Dependencies: deps})
}

// checkMongo lists the tracker's collections, which needs a working
// connection and read access to the database.
func (h *HealthDependenciesHandler) checkMongo(ctx context.Context) dependencyStatus {
	if h.mongo == nil {
		return dependencyStatus{Status: statusUnconfigured}
	}
	names, err := h.mongo.ListCollectionNames(ctx, bson.M{"name": bson.M{"$in": h.collections}})
	if err != nil {
		return dependencyStatus{Status: statusUnhealthy, Error: err.Error()}
	}
	var missing []string
	for _, want := range h.collections {
		if !slices.Contains(names, want) {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return dependencyStatus{
			Status: statusUnhealthy,
			Error:  fmt.Sprintf("missing collections: %s", strings.Join(missing, ", ")),
		}
	}
	return dependencyStatus{Status: statusOK}
}

func (h *HealthDependenciesHandler) checkRedis(ctx context.Context) dependencyStatus {
	if h.redis == nil {
		return dependencyStatus{Status: statusUnconfigured}
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return dependencyStatus{Status: statusUnhealthy, Error: err.Error()}
	}
	return dependencyStatus{Status: statusOK}
}
