package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventfold/analytics/internal/analytics"
	"github.com/eventfold/analytics/internal/api/rest/dto"
	"github.com/eventfold/analytics/internal/auth"
	"github.com/eventfold/analytics/internal/domain"
	"github.com/eventfold/analytics/internal/store"
)

// Ingester accepts a batch of raw events for durable processing
type Ingester interface {
	Ingest(ctx context.Context, batch []domain.EventInput) (*domain.IngestResult, error)
}

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// IngestEvents accepts a batch of events for ingestion
	// POST /api/v1/events
	IngestEvents(c *gin.Context)

	// GetDAU retrieves daily active user counts over a date range
	// GET /api/v1/analytics/dau?from_date=<date>&to_date=<date>
	GetDAU(c *gin.Context)

	// GetTopEvents retrieves the most frequent event types over a date range
	// GET /api/v1/analytics/top-events?from_date=<date>&to_date=<date>&limit=<limit>
	GetTopEvents(c *gin.Context)

	// GetRetention retrieves a cohort's retention curve
	// GET /api/v1/analytics/retention?cohort_date=<date>&windows=<days>
	GetRetention(c *gin.Context)

	// GetCohorts retrieves the most recent cohorts with their populations
	// GET /api/v1/analytics/cohorts?limit=<limit>
	GetCohorts(c *gin.Context)

	// GetUserRetention retrieves a single user's retention history
	// GET /api/v1/analytics/users/:user_id/retention
	GetUserRetention(c *gin.Context)

	// GetUserStats retrieves a single user's event statistics
	// GET /api/v1/analytics/users/:user_id/stats
	GetUserStats(c *gin.Context)

	// GetIngestionMetrics retrieves store-wide ingestion totals
	// GET /api/v1/analytics/ingestion
	GetIngestionMetrics(c *gin.Context)

	// CreateUser creates a user record
	// POST /api/v1/users
	CreateUser(c *gin.Context)

	// GetUser retrieves a user record
	// GET /api/v1/users/:user_id
	GetUser(c *gin.Context)

	// ListUsers retrieves user records
	// GET /api/v1/users?active_only=<bool>
	ListUsers(c *gin.Context)

	// CreateAPIKey generates a new API key; the plaintext secret is returned once
	// POST /api/v1/keys
	CreateAPIKey(c *gin.Context)

	// ListAPIKeys retrieves a user's API keys
	// GET /api/v1/keys?user_id=<id>&active_only=<bool>
	ListAPIKeys(c *gin.Context)

	// RevokeAPIKey deactivates an API key
	// DELETE /api/v1/keys/:id
	RevokeAPIKey(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// Limits bounds what a single ingestion request may carry
type Limits struct {
	// MaxBatchSize is the maximum number of events per request
	MaxBatchSize int
	// RetentionHorizon is the oldest acceptable event age, in days
	RetentionHorizon int
}

// handler implements the Handler interface
type handler struct {
	ingester  Ingester
	analytics *analytics.Service
	keys      *auth.Manager
	store     store.Store
	limits    Limits
}

// NewHandler creates a new REST API handler
func NewHandler(ingester Ingester, svc *analytics.Service, keys *auth.Manager, s store.Store, limits Limits) Handler {
	return &handler{
		ingester:  ingester,
		analytics: svc,
		keys:      keys,
		store:     s,
		limits:    limits,
	}
}

// IngestEvents accepts a batch of events for ingestion
func (h *handler) IngestEvents(c *gin.Context) {
	var req dto.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if h.limits.MaxBatchSize > 0 && len(req.Events) > h.limits.MaxBatchSize {
		respondValidationError(c, fmt.Sprintf("batch of %d events exceeds the limit of %d", len(req.Events), h.limits.MaxBatchSize))
		return
	}

	batch := make([]domain.EventInput, 0, len(req.Events))
	for i, ev := range req.Events {
		if err := h.validateEvent(ev); err != nil {
			respondValidationError(c, fmt.Sprintf("event %d: %s", i, err.Error()))
			return
		}
		batch = append(batch, domain.EventInput{
			EventID:    ev.EventID,
			OccurredAt: ev.OccurredAt,
			UserID:     ev.UserID,
			EventType:  ev.EventType,
			Properties: ev.Properties,
		})
	}

	result, err := h.ingester.Ingest(c.Request.Context(), batch)
	if err != nil {
		respondInternalError(c, err, "Failed to ingest events", zap.Int("batchSize", len(batch)))
		return
	}

	c.JSON(http.StatusOK, result)
}

// validateEvent enforces the per-event input constraints the pipeline assumes
func (h *handler) validateEvent(ev dto.EventRequest) error {
	if !domain.UserID(ev.UserID).Valid() {
		return errors.New("user_id must be a non-empty string of at most 255 characters")
	}
	if !domain.EventType(ev.EventType).Valid() {
		return errors.New("event_type must match [A-Za-z0-9_.-]+ and be at most 255 characters")
	}
	now := time.Now().UTC()
	if ev.OccurredAt.After(now.Add(time.Minute)) {
		return errors.New("occurred_at must not be in the future")
	}
	if h.limits.RetentionHorizon > 0 && ev.OccurredAt.Before(now.AddDate(0, 0, -h.limits.RetentionHorizon)) {
		return fmt.Errorf("occurred_at predates the %d-day retention horizon", h.limits.RetentionHorizon)
	}
	return nil
}

// GetDAU retrieves daily active user counts over a date range
func (h *handler) GetDAU(c *gin.Context) {
	dates, err := ParseDateRangeQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	report, err := h.analytics.DailyActiveUsers(c.Request.Context(), dates.From, dates.To)
	if err != nil {
		respondInternalError(c, err, "Failed to compute daily active users")
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetTopEvents retrieves the most frequent event types over a date range
func (h *handler) GetTopEvents(c *gin.Context) {
	dates, err := ParseDateRangeQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}
	limit, err := ParseBoundedIntQuery(c, "limit", defaultTopLimit, maxTopLimit)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	report, err := h.analytics.TopEvents(c.Request.Context(), dates.From, dates.To, limit)
	if err != nil {
		respondInternalError(c, err, "Failed to rank event types")
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetRetention retrieves a cohort's retention curve
func (h *handler) GetRetention(c *gin.Context) {
	cohortDate, err := ParseDateQuery(c, "cohort_date")
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}
	windows, err := ParseBoundedIntQuery(c, "windows", defaultWindows, maxWindows)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	curve, err := h.analytics.Retention(c.Request.Context(), cohortDate, windows)
	if err != nil {
		respondInternalError(c, err, "Failed to compute retention curve")
		return
	}

	c.JSON(http.StatusOK, curve)
}

// GetCohorts retrieves the most recent cohorts with their populations
func (h *handler) GetCohorts(c *gin.Context) {
	limit, err := ParseBoundedIntQuery(c, "limit", defaultCohorts, maxCohorts)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	cohorts, err := h.analytics.Cohorts(c.Request.Context(), limit)
	if err != nil {
		respondInternalError(c, err, "Failed to list cohorts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"cohorts": cohorts})
}

// GetUserRetention retrieves a single user's retention history
func (h *handler) GetUserRetention(c *gin.Context) {
	userID := c.Param("user_id")
	if !domain.UserID(userID).Valid() {
		respondBadRequest(c, "Invalid user id")
		return
	}

	report, err := h.analytics.UserRetention(c.Request.Context(), userID)
	if err != nil {
		respondInternalError(c, err, "Failed to compute user retention", zap.String("userID", userID))
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetUserStats retrieves a single user's event statistics
func (h *handler) GetUserStats(c *gin.Context) {
	userID := c.Param("user_id")
	if !domain.UserID(userID).Valid() {
		respondBadRequest(c, "Invalid user id")
		return
	}

	report, err := h.analytics.UserStats(c.Request.Context(), userID)
	if err != nil {
		respondInternalError(c, err, "Failed to compute user stats", zap.String("userID", userID))
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetIngestionMetrics retrieves store-wide ingestion totals
func (h *handler) GetIngestionMetrics(c *gin.Context) {
	report, err := h.analytics.IngestionMetrics(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to compute ingestion metrics")
		return
	}

	c.JSON(http.StatusOK, report)
}

// CreateUser creates a user record
func (h *handler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	if !domain.UserID(req.UserID).Valid() {
		respondValidationError(c, "user_id must be a non-empty string of at most 255 characters")
		return
	}

	user, err := h.store.CreateUser(c.Request.Context(), req.UserID, req.Name, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			respondConflict(c, "User already exists")
			return
		}
		respondInternalError(c, err, "Failed to create user", zap.String("userID", req.UserID))
		return
	}

	c.JSON(http.StatusCreated, dto.NewUserResponse(user))
}

// GetUser retrieves a user record
func (h *handler) GetUser(c *gin.Context) {
	userID := c.Param("user_id")
	if !domain.UserID(userID).Valid() {
		respondBadRequest(c, "Invalid user id")
		return
	}

	user, err := h.store.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondInternalError(c, err, "Failed to get user", zap.String("userID", userID))
		return
	}
	if user == nil {
		respondNotFound(c, "User not found")
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// ListUsers retrieves user records
func (h *handler) ListUsers(c *gin.Context) {
	activeOnly, err := ParseBoolQuery(c, "active_only", false)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	users, err := h.store.ListUsers(c.Request.Context(), activeOnly)
	if err != nil {
		respondInternalError(c, err, "Failed to list users")
		return
	}

	responses := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, dto.NewUserResponse(u))
	}
	c.JSON(http.StatusOK, gin.H{"users": responses})
}

// CreateAPIKey generates a new API key
func (h *handler) CreateAPIKey(c *gin.Context) {
	var req dto.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	secret, key, err := h.keys.GenerateKey(c.Request.Context(), req.UserID, req.Name, req.Permissions, req.ExpiresDays)
	if err != nil {
		if _, parseErr := domain.ParsePermissions(req.Permissions); parseErr != nil {
			respondValidationError(c, parseErr.Error())
			return
		}
		respondInternalError(c, err, "Failed to generate API key", zap.String("userID", req.UserID))
		return
	}

	response := dto.NewAPIKeyResponse(key)
	response.Key = secret
	c.JSON(http.StatusCreated, response)
}

// ListAPIKeys retrieves a user's API keys
func (h *handler) ListAPIKeys(c *gin.Context) {
	userID := c.Query("user_id")
	activeOnly, err := ParseBoolQuery(c, "active_only", true)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	keys, err := h.keys.ListKeys(c.Request.Context(), userID, activeOnly)
	if err != nil {
		respondInternalError(c, err, "Failed to list API keys")
		return
	}

	responses := make([]dto.APIKeyResponse, 0, len(keys))
	for _, k := range keys {
		responses = append(responses, dto.NewAPIKeyResponse(k))
	}
	c.JSON(http.StatusOK, gin.H{"keys": responses})
}

// RevokeAPIKey deactivates an API key
func (h *handler) RevokeAPIKey(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid key id")
		return
	}

	if err := h.keys.RevokeKey(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrAPIKeyNotFound) {
			respondNotFound(c, "API key not found")
			return
		}
		respondInternalError(c, err, "Failed to revoke API key", zap.Int64("keyID", id))
		return
	}

	c.JSON(http.StatusOK, gin.H{"revoked": true})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().UTC(),
	})
}
