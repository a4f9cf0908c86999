package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sisb-tech/backoffice-billing-api/internal/models"
	appErrors "github.com/sisb-tech/backoffice-billing-api/pkg/errors"
)

// SelectionService owns the lifecycle of selection sessions: it creates
// engines, routes operations to them, and hands finalized selections to the
// invoicing flow.
type SelectionService struct {
	catalog  *CatalogService
	store    *sessionStore
	metrics  *MetricsService
	logger   *zap.Logger
	finalMu  sync.RWMutex
	finished map[string]*models.Selection
}

// NewSelectionService constructs a selection service. sessionTTL bounds how
// long an idle composing session survives.
func NewSelectionService(catalog *CatalogService, metrics *MetricsService, sessionTTL time.Duration, logger *zap.Logger) *SelectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelectionService{
		catalog:  catalog,
		store:    newSessionStore(sessionTTL),
		metrics:  metrics,
		logger:   logger,
		finished: make(map[string]*models.Selection),
	}
}

// Close stops background session maintenance.
func (s *SelectionService) Close() {
	s.store.close()
}

// StartSession opens a composing session for a grade.
func (s *SelectionService) StartSession(ctx context.Context, grade string) (models.SelectionView, error) {
	if grade == "" {
		return models.SelectionView{}, appErrors.Clone(appErrors.ErrValidation, "grade is required")
	}
	engine := NewSelectionEngine(uuid.NewString(), grade)
	s.store.put(engine)
	s.metrics.SetActiveSessions(s.store.len())
	s.logger.Info("selection session started",
		zap.String("session_id", engine.SessionID()), zap.String("grade", grade))
	return engine.View(), nil
}

// Session returns the current view of a session.
func (s *SelectionService) Session(ctx context.Context, sessionID string) (models.SelectionView, error) {
	var view models.SelectionView
	err := s.store.withEntry(sessionID, func(e *SelectionEngine) error {
		view = e.View()
		return nil
	})
	return view, err
}

// SelectCategory switches the category panel for a session and returns the
// items available in it.
func (s *SelectionService) SelectCategory(ctx context.Context, sessionID string, category models.FeeCategory) (models.SelectionView, []models.FeeItem, error) {
	var view models.SelectionView
	var grade string
	err := s.store.withEntry(sessionID, func(e *SelectionEngine) error {
		if err := e.SelectCategory(category); err != nil {
			return err
		}
		view = e.View()
		grade = e.Grade()
		return nil
	})
	if err != nil {
		return models.SelectionView{}, nil, err
	}
	items, err := s.catalog.ItemsFor(ctx, grade, category)
	if err != nil {
		return models.SelectionView{}, nil, err
	}
	return view, items, nil
}

// ToggleItem adds or removes a single item.
func (s *SelectionService) ToggleItem(ctx context.Context, sessionID, itemID string) (models.SelectionView, error) {
	item, err := s.catalog.Item(ctx, itemID)
	if err != nil {
		return models.SelectionView{}, err
	}
	var view models.SelectionView
	err = s.store.withEntry(sessionID, func(e *SelectionEngine) error {
		if err := e.ToggleItem(*item); err != nil {
			return err
		}
		view = e.View()
		return nil
	})
	return view, err
}

// ApplyTemplate resolves the template and unions its items into the session.
func (s *SelectionService) ApplyTemplate(ctx context.Context, sessionID, templateID string) (models.SelectionView, error) {
	template, items, err := s.catalog.Resolve(ctx, templateID)
	if err != nil {
		return models.SelectionView{}, err
	}
	var view models.SelectionView
	err = s.store.withEntry(sessionID, func(e *SelectionEngine) error {
		if err := e.ApplyTemplate(*template, items); err != nil {
			return err
		}
		view = e.View()
		return nil
	})
	return view, err
}

// ClearTemplate drops the items whose only provenance is the template.
func (s *SelectionService) ClearTemplate(ctx context.Context, sessionID, templateID string) (models.SelectionView, error) {
	var view models.SelectionView
	err := s.store.withEntry(sessionID, func(e *SelectionEngine) error {
		if err := e.ClearTemplate(templateID); err != nil {
			return err
		}
		view = e.View()
		return nil
	})
	return view, err
}

// SetPaymentMode activates or clears a tuition payment mode.
func (s *SelectionService) SetPaymentMode(ctx context.Context, sessionID string, mode models.PaymentMode) (models.SelectionView, error) {
	var view models.SelectionView
	err := s.store.withEntry(sessionID, func(e *SelectionEngine) error {
		if err := e.SetPaymentMode(mode); err != nil {
			return err
		}
		view = e.View()
		return nil
	})
	return view, err
}

// Finalize freezes the selection and retains the immutable snapshot for
// invoice generation. The live session is removed.
func (s *SelectionService) Finalize(ctx context.Context, sessionID string) (*models.Selection, error) {
	var selection *models.Selection
	err := s.store.withEntry(sessionID, func(e *SelectionEngine) error {
		frozen, err := e.Finalize(time.Now())
		if err != nil {
			return err
		}
		selection = frozen
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.finalMu.Lock()
	s.finished[sessionID] = selection
	s.finalMu.Unlock()
	s.store.remove(sessionID)
	s.metrics.SetActiveSessions(s.store.len())
	s.logger.Info("selection finalized",
		zap.String("session_id", sessionID),
		zap.Int("items", len(selection.Items)),
		zap.Int64("per_student_total", selection.PerStudentTotal()))
	return selection, nil
}

// Finalized returns a previously finalized selection snapshot.
func (s *SelectionService) Finalized(ctx context.Context, sessionID string) (*models.Selection, error) {
	s.finalMu.RLock()
	selection, ok := s.finished[sessionID]
	s.finalMu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "finalized selection not found")
	}
	return selection, nil
}
