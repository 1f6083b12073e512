package server

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"RedeemLedger/internal/core"
	"RedeemLedger/internal/event"
	"RedeemLedger/internal/ingestion"
	"RedeemLedger/internal/observability"
	"RedeemLedger/internal/query"
)

// Sequencer allocates upstream source sequences for HTTP submissions.
type Sequencer interface {
	Next() int64
}

// Server is the HTTP command and query surface. Commands funnel into
// the same submission channel as NATS ingestion, so the core stays
// single-threaded; each handler waits on its Result channel to surface
// the core's verdict synchronously.
type Server struct {
	router     *gin.Engine
	submitChan chan<- ingestion.Submission
	queries    *query.Service
	sequencer  Sequencer
	health     *observability.HealthChecker
	metrics    *observability.Metrics
	log        zerolog.Logger

	submitTimeout time.Duration
}

func NewServer(
	submitChan chan<- ingestion.Submission,
	queries *query.Service,
	sequencer Sequencer,
	health *observability.HealthChecker,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Server {
	s := &Server{
		submitChan:    submitChan,
		queries:       queries,
		sequencer:     sequencer,
		health:        health,
		metrics:       metrics,
		log:           log,
		submitTimeout: 10 * time.Second,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(s.requestLogger(), gin.Recovery())

	router.GET("/healthz", gin.WrapF(health.LivenessHandler))
	router.GET("/readyz", gin.WrapF(health.ReadinessHandler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/batches", s.openBatch)
		v1.POST("/requests", s.submitRequest)
		v1.POST("/batches/:batch/cancel", s.cancelRequest)
		v1.POST("/batches/:batch/fulfill", s.fulfillBatch)

		v1.GET("/batches/:batch", s.getBatch)
		v1.GET("/batches/:batch/requests/:user", s.getRequest)
		v1.GET("/users/:user/locked", s.getLockedAmount)
		v1.GET("/users/:user/journal", s.getJournalHistory)
		v1.GET("/frontier", s.getFrontier)
		v1.GET("/settlements", s.getSettlements)
		v1.GET("/admin/integrity", s.verifyIntegrity)
	}

	s.router = router
	return s
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until the listener fails or the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}

// --- Command handlers ---

type openBatchRequest struct {
	OperationID string `json:"operation_id" binding:"required"`
	Operator    string `json:"operator" binding:"required"`
	TimestampUs int64  `json:"timestamp_us"`
}

func (s *Server) openBatch(c *gin.Context) {
	var req openBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	operationID, err := uuid.Parse(req.OperationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid operation_id"})
		return
	}
	operator, err := uuid.Parse(req.Operator)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid operator"})
		return
	}

	evt := &event.BatchOpened{
		OperationID: operationID,
		Operator:    operator,
		Sequence:    s.sequencer.Next(),
		Timestamp:   timestampOrNow(req.TimestampUs),
	}

	s.submit(c, evt, http.StatusCreated)
}

type submitRedemptionRequest struct {
	RequestID   string `json:"request_id" binding:"required"`
	UserID      string `json:"user_id" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"`
	TimestampUs int64  `json:"timestamp_us"`
}

func (s *Server) submitRequest(c *gin.Context) {
	var req submitRedemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request_id"})
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	evt := &event.RedemptionRequested{
		RequestID: requestID,
		UserID:    userID,
		Amount:    req.Amount,
		Sequence:  s.sequencer.Next(),
		Timestamp: timestampOrNow(req.TimestampUs),
	}

	s.submit(c, evt, http.StatusCreated)
}

type cancelRedemptionRequest struct {
	CancelID    string `json:"cancel_id" binding:"required"`
	UserID      string `json:"user_id" binding:"required"`
	TimestampUs int64  `json:"timestamp_us"`
}

func (s *Server) cancelRequest(c *gin.Context) {
	batch, err := strconv.ParseInt(c.Param("batch"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch index"})
		return
	}

	var req cancelRedemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cancelID, err := uuid.Parse(req.CancelID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cancel_id"})
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	evt := &event.RedemptionCancelled{
		CancelID:  cancelID,
		UserID:    userID,
		Batch:     batch,
		Sequence:  s.sequencer.Next(),
		Timestamp: timestampOrNow(req.TimestampUs),
	}

	s.submit(c, evt, http.StatusOK)
}

type fulfillBatchRequest struct {
	FulfillmentID string `json:"fulfillment_id" binding:"required"`
	Operator      string `json:"operator" binding:"required"`
	FiatAmount    int64  `json:"fiat_amount" binding:"required"`
	TimestampUs   int64  `json:"timestamp_us"`
}

func (s *Server) fulfillBatch(c *gin.Context) {
	batch, err := strconv.ParseInt(c.Param("batch"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch index"})
		return
	}

	var req fulfillBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fulfillmentID, err := uuid.Parse(req.FulfillmentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fulfillment_id"})
		return
	}
	operator, err := uuid.Parse(req.Operator)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid operator"})
		return
	}
	if req.FiatAmount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fiat_amount must be positive"})
		return
	}

	evt := &event.FulfillBatch{
		FulfillmentID: fulfillmentID,
		Operator:      operator,
		Batch:         batch,
		FiatAmount:    req.FiatAmount,
		Sequence:      s.sequencer.Next(),
		Timestamp:     timestampOrNow(req.TimestampUs),
	}

	s.submit(c, evt, http.StatusOK)
}

// submit funnels a typed command into the core and waits for its verdict.
func (s *Server) submit(c *gin.Context, evt event.Event, okStatus int) {
	sub := ingestion.Submission{
		Event:    evt,
		Enqueued: time.Now(),
		Result:   make(chan error, 1),
	}

	select {
	case s.submitChan <- sub:
	case <-time.After(s.submitTimeout):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "submission queue full"})
		return
	}

	select {
	case err := <-sub.Result:
		if err != nil {
			status, message := mapCoreError(err)
			c.JSON(status, gin.H{"error": message})
			return
		}
		c.JSON(okStatus, gin.H{
			"status":          "applied",
			"idempotency_key": evt.IdempotencyKey(),
		})
	case <-time.After(s.submitTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "processing timeout"})
	}
}

// mapCoreError translates the failure taxonomy to HTTP statuses.
func mapCoreError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, core.ErrInvalidBatchState):
		return http.StatusConflict, err.Error()
	case errors.Is(err, core.ErrInsufficientLiquidity):
		return http.StatusPaymentRequired, err.Error()
	case errors.Is(err, core.ErrInsufficientTokenBalance),
		errors.Is(err, core.ErrInsufficientPending):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, core.ErrTransferFailure):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, core.ErrSequenceGap):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// --- Query handlers ---

func (s *Server) getBatch(c *gin.Context) {
	batch, err := strconv.ParseInt(c.Param("batch"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch index"})
		return
	}

	resp, err := s.queries.GetBatch(c.Request.Context(), batch)
	if err != nil {
		s.queryError(c, "get_batch", err)
		return
	}
	s.queryOK(c, "get_batch", resp)
}

func (s *Server) getRequest(c *gin.Context) {
	batch, err := strconv.ParseInt(c.Param("batch"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch index"})
		return
	}
	userID, err := uuid.Parse(c.Param("user"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	resp, err := s.queries.GetRequest(c.Request.Context(), batch, userID)
	if err != nil {
		s.queryError(c, "get_request", err)
		return
	}
	s.queryOK(c, "get_request", resp)
}

func (s *Server) getLockedAmount(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	resp, err := s.queries.GetLockedAmount(c.Request.Context(), userID)
	if err != nil {
		s.queryError(c, "get_locked", err)
		return
	}
	s.queryOK(c, "get_locked", resp)
}

func (s *Server) getFrontier(c *gin.Context) {
	resp, err := s.queries.GetFrontier(c.Request.Context())
	if err != nil {
		s.queryError(c, "get_frontier", err)
		return
	}
	s.queryOK(c, "get_frontier", resp)
}

func (s *Server) getSettlements(c *gin.Context) {
	var batchIndex *int64
	if raw := c.Query("batch"); raw != "" {
		idx, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch"})
			return
		}
		batchIndex = &idx
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	var afterSequence *int64
	if raw := c.Query("after"); raw != "" {
		seq, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid after cursor"})
			return
		}
		afterSequence = &seq
	}

	resp, err := s.queries.GetSettlementHistory(c.Request.Context(), batchIndex, limit, afterSequence)
	if err != nil {
		s.queryError(c, "get_settlements", err)
		return
	}
	s.queryOK(c, "get_settlements", gin.H{"settlements": resp})
}

func (s *Server) getJournalHistory(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	var afterSequence *int64
	if raw := c.Query("after"); raw != "" {
		seq, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid after cursor"})
			return
		}
		afterSequence = &seq
	}

	resp, err := s.queries.GetJournalHistory(c.Request.Context(), userID, limit, afterSequence)
	if err != nil {
		s.queryError(c, "get_journal", err)
		return
	}
	s.queryOK(c, "get_journal", gin.H{"journal": resp})
}

func (s *Server) verifyIntegrity(c *gin.Context) {
	report, err := s.queries.VerifyIntegrity(c.Request.Context())
	if err != nil {
		s.queryError(c, "verify_integrity", err)
		return
	}
	s.queryOK(c, "verify_integrity", report)
}

func (s *Server) queryOK(c *gin.Context, endpoint string, body interface{}) {
	if s.metrics != nil {
		s.metrics.QueryRequests.WithLabelValues(endpoint, "ok").Inc()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) queryError(c *gin.Context, endpoint string, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		if s.metrics != nil {
			s.metrics.QueryRequests.WithLabelValues(endpoint, "not_found").Inc()
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if s.metrics != nil {
		s.metrics.QueryErrors.WithLabelValues(endpoint, "internal").Inc()
	}
	s.log.Error().Str("endpoint", endpoint).Err(err).Msg("query failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func timestampOrNow(us int64) time.Time {
	if us > 0 {
		return time.UnixMicro(us)
	}
	return time.Now()
}
