package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/famboard/chores-api/internal/models"
	appErrors "github.com/famboard/chores-api/pkg/errors"
	"github.com/famboard/chores-api/pkg/export"
)

type ledgerStore interface {
	ListByChild(ctx context.Context, childID string) ([]models.RewardEntryDetail, error)
	BalanceByChild(ctx context.Context, childID string) (*models.ChildBalance, error)
}

// StatementFormat selects the export encoding for allowance statements.
const (
	StatementCSV = "csv"
	StatementPDF = "pdf"
)

// LedgerService reads the allowance ledger and renders statements. A child
// sees only its own ledger; a parent sees the ledgers of the children it
// administers.
type LedgerService struct {
	entries ledgerStore
	users   familyReader
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	title   string
	logger  *zap.Logger
}

// NewLedgerService creates a service instance.
func NewLedgerService(entries ledgerStore, users familyReader, title string, logger *zap.Logger) *LedgerService {
	if title == "" {
		title = "Allowance Statement"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		entries: entries,
		users:   users,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		title:   title,
		logger:  logger,
	}
}

// ListEntries returns a child's reward entries newest first.
func (s *LedgerService) ListEntries(ctx context.Context, childID string, actor models.Actor) ([]models.RewardEntryDetail, error) {
	if err := s.authorize(ctx, childID, actor); err != nil {
		return nil, err
	}
	entries, err := s.entries.ListByChild(ctx, childID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reward entries")
	}
	return entries, nil
}

// Balance returns the child's aggregated ledger.
func (s *LedgerService) Balance(ctx context.Context, childID string, actor models.Actor) (*models.ChildBalance, error) {
	if err := s.authorize(ctx, childID, actor); err != nil {
		return nil, err
	}
	balance, err := s.entries.BalanceByChild(ctx, childID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate ledger")
	}
	return balance, nil
}

// Statement renders the child's ledger as CSV or PDF and returns the bytes
// with their content type.
func (s *LedgerService) Statement(ctx context.Context, childID, format string, actor models.Actor) ([]byte, string, error) {
	entries, err := s.ListEntries(ctx, childID, actor)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "Task", "Amount"},
		Rows:    make([]map[string]string, 0, len(entries)),
	}
	var total float64
	for _, entry := range entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":   entry.RecordedAt.Format(time.DateOnly),
			"Task":   entry.TaskTitle,
			"Amount": fmt.Sprintf("%.2f", entry.Amount),
		})
		total += entry.Amount
	}

	switch strings.ToLower(format) {
	case StatementCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv statement")
		}
		return payload, "text/csv", nil
	case StatementPDF:
		summary := fmt.Sprintf("Total: %.2f", total)
		payload, err := s.pdf.Render(dataset, s.title, summary)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf statement")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported statement format")
	}
}

func (s *LedgerService) authorize(ctx context.Context, childID string, actor models.Actor) error {
	if actor.UserID == childID && actor.Role == models.RoleChild {
		return nil
	}
	if !actor.IsParent() {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to read this ledger")
	}
	child, err := s.users.FindByID(ctx, childID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	if child.ParentID == nil || *child.ParentID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "child is not administered by this parent")
	}
	return nil
}
