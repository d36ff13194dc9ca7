package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/famboard/chores-api/internal/models"
	"github.com/famboard/chores-api/internal/service"
	"github.com/famboard/chores-api/pkg/response"
)

type ledgerService interface {
	ListEntries(ctx context.Context, childID string, actor models.Actor) ([]models.RewardEntryDetail, error)
	Balance(ctx context.Context, childID string, actor models.Actor) (*models.ChildBalance, error)
	Statement(ctx context.Context, childID, format string, actor models.Actor) ([]byte, string, error)
}

// LedgerHandler exposes the allowance ledger endpoints.
type LedgerHandler struct {
	ledger ledgerService
}

// NewLedgerHandler builds a new handler.
func NewLedgerHandler(ledger ledgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// ListEntries godoc
// @Summary List a child's reward entries
// @Tags Ledger
// @Produce json
// @Param childId path string true "Child id"
// @Success 200 {object} response.Envelope
// @Router /ledger/{childId}/entries [get]
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	entries, err := h.ledger.ListEntries(c.Request.Context(), c.Param("childId"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Balance godoc
// @Summary Get a child's aggregated balance
// @Tags Ledger
// @Produce json
// @Param childId path string true "Child id"
// @Success 200 {object} response.Envelope
// @Router /ledger/{childId}/balance [get]
func (h *LedgerHandler) Balance(c *gin.Context) {
	balance, err := h.ledger.Balance(c.Request.Context(), c.Param("childId"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}

// Statement godoc
// @Summary Download a child's allowance statement
// @Tags Ledger
// @Produce text/csv
// @Produce application/pdf
// @Param childId path string true "Child id"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /ledger/{childId}/statement [get]
func (h *LedgerHandler) Statement(c *gin.Context) {
	format := c.DefaultQuery("format", service.StatementCSV)
	payload, contentType, err := h.ledger.Statement(c.Request.Context(), c.Param("childId"), format, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("statement_%s.%s", time.Now().UTC().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
