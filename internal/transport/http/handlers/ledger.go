package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Vaanter/alphapack-ledger/internal/core/domain"
	"github.com/Vaanter/alphapack-ledger/internal/core/port"
	"github.com/Vaanter/alphapack-ledger/internal/infra/runtime"
	"github.com/Vaanter/alphapack-ledger/internal/repository"
	"github.com/Vaanter/alphapack-ledger/internal/usecase"
)

const defaultRecentDecisions = 20

// LedgerHandler exposes the submission and lookup endpoints.
type LedgerHandler struct {
	ledger  *usecase.LedgerService
	archive port.DecisionArchive
	props   *runtime.Properties
}

func NewLedgerHandler(ledger *usecase.LedgerService, archive port.DecisionArchive, props *runtime.Properties) *LedgerHandler {
	return &LedgerHandler{
		ledger:  ledger,
		archive: archive,
		props:   props,
	}
}

// RegisterRoutes binds ledger endpoints.
func (h *LedgerHandler) RegisterRoutes(r *gin.RouterGroup, submitMiddlewares ...gin.HandlerFunc) {
	submitHandlers := append([]gin.HandlerFunc{}, submitMiddlewares...)
	submitHandlers = append(submitHandlers, h.Submit)
	r.POST("/submissions", submitHandlers...)

	r.GET("/entries/:fingerprint", h.Entry)
	r.GET("/scopes/:scope/stats", h.ScopeStats)
	r.GET("/scopes/:scope/decisions", h.ScopeDecisions)
}

// Submit decides one submission. Rejections are regular decisions, not
// errors: duplicates and quota exhaustion answer 200 with the outcome field.
func (h *LedgerHandler) Submit(c *gin.Context) {
	if h.props != nil && !h.props.LedgerEnabled() {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "submissions are disabled"))
		return
	}

	var req SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid submission payload"))
		return
	}

	token, err := base64.StdEncoding.DecodeString(req.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token must be base64 encoded"))
		return
	}

	if h.props != nil {
		h.props.BeginProcessing()
		defer h.props.EndProcessing()
	}

	decision, err := h.ledger.Submit(c.Request.Context(), token, req.Scope)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: domain.ErrInvalidToken, Status: http.StatusBadRequest, Message: "token is invalid"},
			{Err: domain.ErrScopeRequired, Status: http.StatusBadRequest, Message: "scope is required"},
			{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "ledger store is unavailable"},
			{Err: repository.ErrInconsistent, Status: http.StatusServiceUnavailable, Message: "ledger state is inconsistent"},
		}, http.StatusInternalServerError, "failed to process submission")
		return
	}

	c.JSON(http.StatusOK, newDecisionResponse(decision))
}

// Entry returns the live ledger entry for a fingerprint.
func (h *LedgerHandler) Entry(c *gin.Context) {
	fp, err := domain.ParseFingerprint(c.Param("fingerprint"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "fingerprint is invalid"))
		return
	}

	entry, err := h.ledger.Query(c.Request.Context(), fp)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "entry not found"},
			{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "ledger store is unavailable"},
			{Err: repository.ErrInconsistent, Status: http.StatusServiceUnavailable, Message: "ledger state is inconsistent"},
		}, http.StatusInternalServerError, "failed to look up entry")
		return
	}

	c.JSON(http.StatusOK, newLedgerEntryPayload(*entry))
}

// ScopeStats aggregates archived decisions for a scope.
func (h *LedgerHandler) ScopeStats(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "decision archive is not configured"))
		return
	}

	scope, err := domain.NormalizeScope(c.Param("scope"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "scope is required"))
		return
	}

	stats, err := h.archive.ScopeStats(c.Request.Context(), scope)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "no decisions recorded for scope"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load scope stats"))
		return
	}

	resp := ScopeStatsResponse{
		Scope:              stats.Scope.String(),
		Admitted:           stats.Admitted,
		DuplicateRejected:  stats.DuplicateRejected,
		QuotaRejected:      stats.QuotaRejected,
		FirstDecision:      stats.FirstDecision,
		MostRecentDecision: stats.MostRecentDecision,
	}

	c.JSON(http.StatusOK, resp)
}

// ScopeDecisions lists the newest archived decisions for a scope.
func (h *LedgerHandler) ScopeDecisions(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "decision archive is not configured"))
		return
	}

	scope, err := domain.NormalizeScope(c.Param("scope"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "scope is required"))
		return
	}

	limit := defaultRecentDecisions
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	decisions, err := h.archive.ListRecentByScope(c.Request.Context(), scope, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list decisions"))
		return
	}

	resp := ScopeDecisionsResponse{
		Scope:     scope.String(),
		Decisions: make([]ArchivedDecisionPayload, 0, len(decisions)),
	}
	for _, decision := range decisions {
		resp.Decisions = append(resp.Decisions, newArchivedDecisionPayload(decision))
	}

	c.JSON(http.StatusOK, resp)
}
