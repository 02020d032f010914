package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rowan/genbridge/internal/domain"
	"github.com/rowan/genbridge/internal/engine"
	"github.com/rowan/genbridge/internal/logger"
)

// WorkflowHandler exposes the sync engine over HTTP: job lists and output
// paths for the UI, plus the run/cancel/recheck entry points.
type WorkflowHandler struct {
	manager *engine.Manager
	logger  *logger.Logger
}

// NewWorkflowHandler creates a new workflow handler.
// Parameters:
//   - manager: engine view manager.
//   - log: logger instance.
// Returns:
//   - *WorkflowHandler: initialized handler.
func NewWorkflowHandler(manager *engine.Manager, log *logger.Logger) *WorkflowHandler {
	if log == nil {
		log = logger.GetDefault()
	}
	return &WorkflowHandler{manager: manager, logger: log}
}

// JobView is the API shape of a job, extending the record with a display
// duration computed against the view's clock tick.
type JobView struct {
	domain.Job
	DurationMs int64 `json:"duration_ms"`
}

// RunRequest represents the run API request.
type RunRequest struct {
	Inputs []domain.Input `json:"inputs" binding:"required"`
}

// ListJobs handles GET /api/v1/workflows/:id/jobs. Addressing a workflow
// selects it, switching away from any previously active one.
func (h *WorkflowHandler) ListJobs(c *gin.Context) {
	view := h.manager.Select(c.Param("id"))
	now := view.Now()

	jobs := view.Jobs()
	out := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		jv := JobView{Job: j}
		start := j.CreatedAt
		if j.StartedAt != nil {
			start = *j.StartedAt
		}
		end := now
		if j.CompletedAt != nil {
			end = *j.CompletedAt
		}
		if end.After(start) {
			jv.DurationMs = end.Sub(start).Milliseconds()
		}
		out = append(out, jv)
	}

	c.JSON(http.StatusOK, gin.H{"jobs": out})
}

// ListOutputs handles GET /api/v1/workflows/:id/outputs. Returns the ordered,
// deduplicated visible output path list used for prev/next navigation.
func (h *WorkflowHandler) ListOutputs(c *gin.Context) {
	view := h.manager.Select(c.Param("id"))
	paths := engine.VisiblePaths(view.Jobs())
	if paths == nil {
		paths = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"paths": paths})
}

// Run handles POST /api/v1/workflows/:id/run. Submission errors surface
// synchronously; nothing is stored client-side on failure.
func (h *WorkflowHandler) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	view := h.manager.Select(c.Param("id"))
	jobID, err := view.Submit(c.Request.Context(), req.Inputs)
	if err != nil {
		logger.CtxWarn(c.Request.Context(), "submission failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "job_id": jobID})
}

// Cancel handles POST /api/v1/jobs/:id/cancel against the active workflow
// view. The engine applies the optimistic cancelled state before the backend
// confirms.
func (h *WorkflowHandler) Cancel(c *gin.Context) {
	view := h.manager.Current()
	if view == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no workflow selected"})
		return
	}
	if err := view.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Recheck handles POST /api/v1/jobs/:id/recheck, the manual recheck path. It
// is not subject to the once-per-selection guard and may be repeated.
func (h *WorkflowHandler) Recheck(c *gin.Context) {
	view := h.manager.Current()
	if view == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no workflow selected"})
		return
	}
	if err := view.Recheck(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Status handles GET /api/v1/status. Exposes the push channel connectivity
// flag and active job count behind the UI's stale-progress warning.
func (h *WorkflowHandler) Status(c *gin.Context) {
	view := h.manager.Current()
	if view == nil {
		c.JSON(http.StatusOK, gin.H{"workflow_id": "", "connected": false, "active_jobs": 0})
		return
	}
	connected, active := view.Status()
	c.JSON(http.StatusOK, gin.H{
		"workflow_id": view.WorkflowID(),
		"connected":   connected,
		"active_jobs": active,
	})
}
