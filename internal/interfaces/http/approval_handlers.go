package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finvera/expense-approval/pkg/utils"
)

// StepActionRequest carries an approve/reject/skip decision
type StepActionRequest struct {
	Action   string `json:"action" binding:"required"`
	Comments string `json:"comments"`
}

// ProcessStepAction handles POST /api/steps/:id/action
func (h *Handlers) ProcessStepAction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req StepActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	step, err := h.approvalService.ProcessAction(
		c.Request.Context(), id, currentUserID(c), req.Action, utils.SanitizeString(req.Comments))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: step})
}

// GetWorkflow handles GET /api/expenses/:id/workflow
func (h *Handlers) GetWorkflow(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	steps, err := h.approvalService.GetWorkflow(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: steps})
}

// ListPendingApprovals handles GET /api/approvals/pending
func (h *Handlers) ListPendingApprovals(c *gin.Context) {
	expenses, err := h.approvalService.GetPendingForApprover(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expenses})
}

// ListApprovalHistory handles GET /api/approvals/history
func (h *Handlers) ListApprovalHistory(c *gin.Context) {
	steps, err := h.approvalService.GetApprovalHistory(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: steps})
}
