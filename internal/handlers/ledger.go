package handlers

import (
	"net/http"
	"time"

	"eskan-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// LedgerHandler serves the deal ledger and the private earnings journal.
type LedgerHandler struct {
	transactions *services.TransactionService
	earnings     *services.EarningService
}

type EarningRequest struct {
	PropertyName string  `json:"property_name" binding:"required,max=200"`
	Area         string  `json:"area" binding:"max=100"`
	PropertyType string  `json:"property_type" binding:"max=50"`
	Earnings     float64 `json:"earnings" binding:"gte=0"`
	DealDate     string  `json:"deal_date" binding:"required"`
	Notes        string  `json:"notes"`
}

func NewLedgerHandler(transactions *services.TransactionService, earnings *services.EarningService) *LedgerHandler {
	return &LedgerHandler{transactions: transactions, earnings: earnings}
}

func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	items, err := h.transactions.List(c.Request.Context(), viewer(c), c.Query("search"), c.Query("ordering"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *LedgerHandler) MyTransactions(c *gin.Context) {
	items, err := h.transactions.Mine(c.Request.Context(), viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *LedgerHandler) GetTransaction(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	t, err := h.transactions.Get(c.Request.Context(), viewer(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *LedgerHandler) CreateTransaction(c *gin.Context) {
	var req services.TransactionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	t, err := h.transactions.Create(c.Request.Context(), viewer(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *LedgerHandler) UpdateTransaction(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req services.TransactionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	t, err := h.transactions.Update(c.Request.Context(), viewer(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *LedgerHandler) DeleteTransaction(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.transactions.Delete(c.Request.Context(), viewer(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LedgerHandler) TransactionStatistics(c *gin.Context) {
	stats, err := h.transactions.Statistics(c.Request.Context(), viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TransactionsBy returns a handler grouping the ledger by column.
func (h *LedgerHandler) TransactionsBy(column string) gin.HandlerFunc {
	return func(c *gin.Context) {
		groups, err := h.transactions.GroupBy(c.Request.Context(), viewer(c), column)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, groups)
	}
}

func (h *LedgerHandler) ListEarnings(c *gin.Context) {
	h.listEarnings(c, c.Query("start_date"), c.Query("end_date"))
}

// FilterEarnings is the date range view; both bounds are required.
func (h *LedgerHandler) FilterEarnings(c *gin.Context) {
	start, end := c.Query("start_date"), c.Query("end_date")
	if start == "" || end == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date and end_date are required"})
		return
	}
	h.listEarnings(c, start, end)
}

func (h *LedgerHandler) listEarnings(c *gin.Context, start, end string) {
	q := services.EarningQuery{Search: c.Query("search"), Ordering: c.Query("ordering")}
	if start != "" {
		t, err := time.Parse(dateLayout, start)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format. Use YYYY-MM-DD"})
			return
		}
		q.From = &t
	}
	if end != "" {
		t, err := time.Parse(dateLayout, end)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format. Use YYYY-MM-DD"})
			return
		}
		q.To = &t
	}
	items, err := h.earnings.List(c.Request.Context(), viewer(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *LedgerHandler) GetEarning(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	e, err := h.earnings.Get(c.Request.Context(), viewer(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *LedgerHandler) CreateEarning(c *gin.Context) {
	in, ok := bindEarning(c)
	if !ok {
		return
	}
	e, err := h.earnings.Create(c.Request.Context(), viewer(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *LedgerHandler) UpdateEarning(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	in, ok := bindEarning(c)
	if !ok {
		return
	}
	e, err := h.earnings.Update(c.Request.Context(), viewer(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *LedgerHandler) DeleteEarning(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.earnings.Delete(c.Request.Context(), viewer(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LedgerHandler) EarningsSummary(c *gin.Context) {
	summary, err := h.earnings.Summary(c.Request.Context(), viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *LedgerHandler) EarningsBy(column string) gin.HandlerFunc {
	return func(c *gin.Context) {
		groups, err := h.earnings.GroupBy(c.Request.Context(), viewer(c), column)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, groups)
	}
}

func (h *LedgerHandler) MonthlyEarnings(c *gin.Context) {
	blocks, err := h.earnings.Monthly(c.Request.Context(), viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, blocks)
}

func bindEarning(c *gin.Context) (services.EarningInput, bool) {
	var req EarningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return services.EarningInput{}, false
	}
	deal, err := parseDateTime(req.DealDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "fields": gin.H{"deal_date": "invalid date"}})
		return services.EarningInput{}, false
	}
	return services.EarningInput{
		PropertyName: req.PropertyName,
		Area:         req.Area,
		PropertyType: req.PropertyType,
		Earnings:     req.Earnings,
		DealDate:     deal,
		Notes:        req.Notes,
	}, true
}
