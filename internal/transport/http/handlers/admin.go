package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Vaanter/alphapack-ledger/internal/infra/runtime"
	"github.com/Vaanter/alphapack-ledger/internal/infra/telemetry"
)

// AdminHandler exposes the operator status and toggle endpoints.
type AdminHandler struct {
	props     *runtime.Properties
	telemetry *telemetry.Provider
}

func NewAdminHandler(props *runtime.Properties, provider *telemetry.Provider) *AdminHandler {
	return &AdminHandler{
		props:     props,
		telemetry: provider,
	}
}

// RegisterRoutes binds admin endpoints.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/status", h.Status)
	r.POST("/toggles", h.UpdateToggles)
}

// Status reports uptime, submission counters and the current toggle state.
func (h *AdminHandler) Status(c *gin.Context) {
	resp := AdminStatusResponse{
		Status: "ok",
		Uptime: h.telemetry.FormatUptime(),
	}

	if h.props != nil {
		resp.Received = h.props.Received()
		resp.Processing = h.props.Processing()
		resp.Toggles = h.currentToggles()
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateToggles flips the runtime switches named in the request body.
func (h *AdminHandler) UpdateToggles(c *gin.Context) {
	if h.props == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "runtime toggles are not configured"))
		return
	}

	var req ToggleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid toggle payload"))
		return
	}

	if req.Ledger == nil && req.Archive == nil && req.Events == nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "at least one toggle is required"))
		return
	}

	if req.Ledger != nil {
		h.props.SetLedgerEnabled(*req.Ledger)
	}
	if req.Archive != nil {
		h.props.SetArchiveEnabled(*req.Archive)
	}
	if req.Events != nil {
		h.props.SetEventsEnabled(*req.Events)
	}

	c.JSON(http.StatusOK, h.currentToggles())
}

func (h *AdminHandler) currentToggles() TogglesPayload {
	return TogglesPayload{
		Ledger:  h.props.LedgerEnabled(),
		Archive: h.props.ArchiveEnabled(),
		Events:  h.props.EventsEnabled(),
	}
}
