package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finvera/expense-approval/internal/application/service"
	"github.com/finvera/expense-approval/pkg/utils"
)

// maxReceiptSize caps receipt uploads at 10 MB
const maxReceiptSize = 10 << 20

// CreateExpenseRequest carries the fields of a new expense claim
type CreateExpenseRequest struct {
	Description string `json:"description" binding:"required"`
	Category    string `json:"category"`
	Notes       string `json:"notes"`
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Currency    string `json:"currency" binding:"required"`
	ExpenseDate string `json:"expense_date" binding:"required"`
}

// ListExpensesRequest carries list query parameters
type ListExpensesRequest struct {
	Scope  string `form:"scope"` // "mine" (default) or "company"
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// CreateExpense handles POST /api/expenses
func (h *Handlers) CreateExpense(c *gin.Context) {
	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	if err := utils.ValidateAmountCents(req.AmountCents); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}
	if err := utils.ValidateCurrency(req.Currency); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}
	expenseDate, err := time.Parse("2006-01-02", req.ExpenseDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "expense_date must be YYYY-MM-DD"})
		return
	}

	expense, err := h.expenseService.Create(c.Request.Context(), currentUserID(c), service.CreateExpenseInput{
		Description: utils.SanitizeString(req.Description),
		Category:    utils.SanitizeString(req.Category),
		Notes:       utils.SanitizeString(req.Notes),
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		ExpenseDate: expenseDate,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: expense})
}

// ListExpenses handles GET /api/expenses
func (h *Handlers) ListExpenses(c *gin.Context) {
	var req ListExpensesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid query parameters"})
		return
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	viewerID := currentUserID(c)
	var (
		expenses interface{}
		err      error
	)
	if req.Scope == "company" {
		expenses, err = h.expenseService.ListByCompany(c.Request.Context(), viewerID, req.Limit, req.Offset)
	} else {
		expenses, err = h.expenseService.ListByEmployee(c.Request.Context(), viewerID, req.Limit, req.Offset)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expenses})
}

// GetExpense handles GET /api/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	expense, err := h.expenseService.Get(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expense})
}

// SubmitExpense handles POST /api/expenses/:id/submit
func (h *Handlers) SubmitExpense(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	expense, err := h.expenseService.Submit(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expense})
}

// UploadReceipt handles POST /api/expenses/:id/receipt
func (h *Handlers) UploadReceipt(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	header, err := c.FormFile("receipt")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "receipt file is required"})
		return
	}
	if header.Size > maxReceiptSize {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "receipt exceeds size limit"})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer file.Close()

	expense, err := h.expenseService.AttachReceipt(c.Request.Context(), id, currentUserID(c), header.Filename, file)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expense})
}
