package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"report-generator/internal/gateway"
	"report-generator/internal/logger"
	"report-generator/internal/models"
	"report-generator/internal/services"
	"report-generator/internal/validation"
)

// Relay error texts
const (
	ErrTextMissingConfig = "Missing Airtable configuration. Please set AIRTABLE_API_KEY and AIRTABLE_BASE_ID environment variables."
	ErrTextMissingTable  = "Missing table parameter"
	ErrTextInvalidBody   = "Invalid request body"
	ErrTextUpstream      = "Airtable API error"
	ErrTextInternal      = "Internal server error"
	ErrTextInFlight      = "A request with this idempotency key is already in progress"
)

// ReplayedHeader marks a response served from the idempotency store
const ReplayedHeader = "Idempotent-Replayed"

// bookkeepingTimeout bounds ledger and metrics writes made after the
// client may have gone away
const bookkeepingTimeout = 5 * time.Second

// detached returns a context that survives cancellation of the request so
// that a claimed key is always completed or released.
func detached(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.Request.Context()), bookkeepingTimeout)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	upstream    *services.UpstreamService
	idempotency *services.IdempotencyService
	metrics     *services.MetricsService
}

// NewHandlers creates a new handlers instance. idempotency and metrics may
// be nil.
func NewHandlers(
	upstream *services.UpstreamService,
	idempotency *services.IdempotencyService,
	metrics *services.MetricsService,
) *Handlers {
	return &Handlers{
		upstream:    upstream,
		idempotency: idempotency,
		metrics:     metrics,
	}
}

func hasWriteBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// AirtableProxyHandler handles any method on /api/airtable-proxy?table=<id>
func (h *Handlers) AirtableProxyHandler(c *gin.Context) {
	start := time.Now()
	method := c.Request.Method
	table := c.Query(gateway.TableParam)
	replayed := false

	defer func() {
		ctx, cancel := detached(c)
		defer cancel()
		h.metrics.Record(ctx, services.RequestMetric{
			Method:   method,
			Table:    table,
			Status:   c.Writer.Status(),
			Duration: time.Since(start),
			Replayed: replayed,
			At:       start,
		})
	}()

	if !h.upstream.Configured() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": ErrTextMissingConfig})
		return
	}
	if table == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrTextMissingTable})
		return
	}

	query := c.Request.URL.Query()
	query.Del(gateway.TableParam)

	var body []byte
	if method != http.MethodGet {
		var err error
		body, err = io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": ErrTextInvalidBody, "message": err.Error()})
			return
		}
	}
	if hasWriteBody(method) {
		if err := validation.ValidateRecordsPayload(body); err != nil {
			var schemaErr *validation.SchemaError
			if errors.As(err, &schemaErr) {
				c.JSON(http.StatusBadRequest, gin.H{"error": ErrTextInvalidBody, "details": schemaErr.Issues})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": ErrTextInvalidBody, "message": err.Error()})
			return
		}
	}

	key := ""
	if method == http.MethodPost {
		key = c.GetHeader(gateway.IdempotencyHeader)
	}
	outcome, entry, err := h.idempotency.Begin(c.Request.Context(), key)
	if err != nil {
		// A broken ledger must not block submissions
		logger.Warn("Idempotency store unavailable", "error", err)
		key = ""
	}
	switch outcome {
	case services.OutcomeReplay:
		replayed = true
		c.Header(ReplayedHeader, "true")
		c.Data(entry.Status, "application/json", entry.Body)
		return
	case services.OutcomeConflict:
		c.JSON(http.StatusConflict, gin.H{"error": ErrTextInFlight})
		return
	}

	resp, err := h.upstream.Forward(c.Request.Context(), services.UpstreamRequest{
		Method: method,
		Table:  table,
		Query:  query,
		Body:   body,
	})
	ledgerCtx, cancel := detached(c)
	defer cancel()
	if err != nil {
		h.idempotency.Release(ledgerCtx, key)
		logger.Error("Airtable proxy error", "method", method, "table", table, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": ErrTextInternal, "message": err.Error()})
		return
	}

	if !resp.OK() {
		h.idempotency.Finish(ledgerCtx, key, resp.Status, nil)
		message := ErrTextUpstream
		var remote models.AirtableError
		if json.Unmarshal(resp.Body, &remote) == nil && remote.Message() != "" {
			message = remote.Message()
		}
		c.JSON(resp.Status, models.ErrorEnvelope{Error: message, Details: json.RawMessage(resp.Body)})
		return
	}

	h.idempotency.Finish(ledgerCtx, key, resp.Status, resp.Body)
	c.Data(resp.Status, "application/json", resp.Body)
}
