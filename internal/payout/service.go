package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/puntomas/panel/internal/aggregate"
	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/commission"
)

// Backend is the part of the backend client the workflow needs.
type Backend interface {
	SellerDetail(ctx context.Context, token string, sellerID int64) (backend.SellerDetail, error)
	PayBatch(ctx context.Context, token string, mode commission.PayMode, saleIDs []int64) error
}

// Metrics observes submitted batches.
type Metrics interface {
	ObservePayout(mode string, ok bool)
}

// Actor identifies who drives the workflow.
type Actor struct {
	SessionID string
	Token     string
	Name      string
	Role      commission.Role
}

// View is everything the payment screen renders after an operation.
type View struct {
	Workflow           *Workflow                                   `json:"workflow"`
	Seller             commission.PersonRef                        `json:"vendedor"`
	Sales              []commission.Sale                           `json:"ventas"`
	SelectedTotal      decimal.Decimal                             `json:"totalSeleccionado"`
	SelectedTotalText  string                                      `json:"totalSeleccionadoTexto"`
	Totals             map[commission.PayMode]aggregate.ModeTotals `json:"totales"`
	SupervisorPayments []backend.SupervisorPayment                 `json:"pagosSupervisor"`
}

// Service runs workflow operations against the backend and the store.
type Service struct {
	backend  Backend
	store    Store
	auditor  Auditor
	metrics  Metrics
	logger   *slog.Logger
	loc      *time.Location
	now      func() time.Time
	newToken func() string
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithAuditor records every submitted batch.
func WithAuditor(a Auditor) ServiceOption {
	return func(s *Service) { s.auditor = a }
}

// WithMetrics observes submitted batches.
func WithMetrics(m Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLocation sets the zone date filters are interpreted in.
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides time and token generation.
func WithClock(now func() time.Time, newToken func() string) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
		if newToken != nil {
			s.newToken = newToken
		}
	}
}

// NewService constructs a Service.
func NewService(b Backend, store Store, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		backend:  b,
		store:    store,
		logger:   logger,
		loc:      time.UTC,
		now:      time.Now,
		newToken: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the zone date filters are interpreted in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// mutate loads the seller detail and workflow, applies fn, persists and renders.
// Writes hold the workflow lock, so they never interleave with a submit. A plain
// read during a submit renders the stored state without writing.
func (s *Service) mutate(ctx context.Context, actor Actor, sellerID int64, fn func(w *Workflow, sales []commission.Sale) error) (View, error) {
	detail, err := s.backend.SellerDetail(ctx, actor.Token, sellerID)
	if err != nil {
		return View{}, err
	}
	unlock, err := s.store.Lock(ctx, actor.SessionID, sellerID)
	if errors.Is(err, ErrSubmitting) && fn == nil {
		w, err := s.store.Load(ctx, actor.SessionID, sellerID)
		if err != nil {
			return View{}, err
		}
		return s.render(w, detail), nil
	}
	if err != nil {
		return View{}, err
	}
	defer unlock()

	w, err := s.store.Load(ctx, actor.SessionID, sellerID)
	if err != nil {
		return View{}, err
	}
	s.recoverInterrupted(w)
	w.Prune(detail.Sales)
	if fn != nil {
		if err := fn(w, detail.Sales); err != nil {
			return View{}, err
		}
	}
	if err := s.store.Save(ctx, actor.SessionID, w); err != nil {
		return View{}, err
	}
	return s.render(w, detail), nil
}

// recoverInterrupted fails a workflow stuck in Submitting. Callers hold the lock, so no
// submit is running for it.
func (s *Service) recoverInterrupted(w *Workflow) bool {
	if !w.Recover() {
		return false
	}
	s.logger.Warn("payout submit interrupted, marked failed", slog.Int64("seller_id", w.SellerID))
	return true
}

// State returns the current workflow of a seller.
func (s *Service) State(ctx context.Context, actor Actor, sellerID int64) (View, error) {
	return s.mutate(ctx, actor, sellerID, nil)
}

// Toggle flips one sale in or out of the selection.
func (s *Service) Toggle(ctx context.Context, actor Actor, sellerID, saleID int64) (View, error) {
	return s.mutate(ctx, actor, sellerID, func(w *Workflow, sales []commission.Sale) error {
		if !w.IsSelected(saleID) && !containsSale(sales, saleID) {
			return fmt.Errorf("%w: %d", ErrUnknownSale, saleID)
		}
		return w.Toggle(saleID)
	})
}

// SetRange changes the date filter applied to the listed sales.
func (s *Service) SetRange(ctx context.Context, actor Actor, sellerID int64, from, to string) (View, error) {
	r, err := commission.ParseDateRange(from, to, s.loc)
	if err != nil {
		return View{}, err
	}
	return s.mutate(ctx, actor, sellerID, func(w *Workflow, _ []commission.Sale) error {
		w.SetRange(r)
		return nil
	})
}

// SetPresetRange applies one of the quick date filters.
func (s *Service) SetPresetRange(ctx context.Context, actor Actor, sellerID int64, preset string) (View, error) {
	r, err := commission.PresetRange(preset, s.now(), s.loc)
	if err != nil {
		return View{}, err
	}
	return s.mutate(ctx, actor, sellerID, func(w *Workflow, _ []commission.Sale) error {
		w.SetRange(r)
		return nil
	})
}

// SelectAllPending selects every unpaid sale in the active date range.
func (s *Service) SelectAllPending(ctx context.Context, actor Actor, sellerID int64) (View, error) {
	return s.mutate(ctx, actor, sellerID, func(w *Workflow, sales []commission.Sale) error {
		return w.SelectAllPending(sales)
	})
}

// Clear empties the selection.
func (s *Service) Clear(ctx context.Context, actor Actor, sellerID int64) (View, error) {
	return s.mutate(ctx, actor, sellerID, func(w *Workflow, _ []commission.Sale) error {
		return w.Clear()
	})
}

// SwitchMode changes the payment mode and empties the selection.
func (s *Service) SwitchMode(ctx context.Context, actor Actor, sellerID int64, mode commission.PayMode) (View, error) {
	return s.mutate(ctx, actor, sellerID, func(w *Workflow, _ []commission.Sale) error {
		return w.SwitchMode(mode)
	})
}

// Confirm issues the confirmation token for the current selection.
func (s *Service) Confirm(ctx context.Context, actor Actor, sellerID int64) (View, error) {
	return s.mutate(ctx, actor, sellerID, func(w *Workflow, sales []commission.Sale) error {
		_, err := w.Confirm(sales, s.newToken(), s.now())
		return err
	})
}

// Submit pays the confirmed selection in one backend call. Guards run before
// any network call. On success the sale list is reloaded from the backend; on
// failure the selection is kept and the workflow moves to Failed.
func (s *Service) Submit(ctx context.Context, actor Actor, sellerID int64, token string) (View, error) {
	w, err := s.store.Load(ctx, actor.SessionID, sellerID)
	if err != nil {
		return View{}, err
	}
	if len(w.Selected) == 0 {
		return View{}, ErrEmptySelection
	}

	unlock, err := s.store.Lock(ctx, actor.SessionID, sellerID)
	if err != nil {
		return View{}, err
	}
	defer unlock()

	// reload under the lock; a concurrent request may have changed it
	if w, err = s.store.Load(ctx, actor.SessionID, sellerID); err != nil {
		return View{}, err
	}
	if s.recoverInterrupted(w) {
		if err := s.store.Save(ctx, actor.SessionID, w); err != nil {
			return View{}, err
		}
	}
	total := decimal.Zero
	if w.Confirmation != nil {
		total = w.Confirmation.Total
	}
	ids, err := w.BeginSubmit(token)
	if err != nil {
		return View{}, err
	}
	if err := s.store.Save(ctx, actor.SessionID, w); err != nil {
		return View{}, err
	}

	payErr := s.backend.PayBatch(ctx, actor.Token, w.Mode, ids)
	persistCtx := context.WithoutCancel(ctx)
	s.audit(persistCtx, actor, w, ids, total, payErr)
	if s.metrics != nil {
		s.metrics.ObservePayout(string(w.Mode), payErr == nil)
	}

	if payErr != nil {
		w.Fail(payErr)
		if err := s.store.Save(persistCtx, actor.SessionID, w); err != nil {
			s.logger.Error("persist failed payout", slog.Int64("seller_id", sellerID), slog.Any("error", err))
		}
		s.logger.Warn("payout rejected", slog.Int64("seller_id", sellerID), slog.String("mode", string(w.Mode)),
			slog.Int("sales", len(ids)), slog.Any("error", payErr))
		return View{}, payErr
	}

	w.Succeed()
	if err := s.store.Save(persistCtx, actor.SessionID, w); err != nil {
		return View{}, err
	}
	s.logger.Info("payout submitted", slog.Int64("seller_id", sellerID), slog.String("mode", string(w.Mode)),
		slog.Int("sales", len(ids)), slog.String("total", total.String()))

	detail, err := s.backend.SellerDetail(ctx, actor.Token, sellerID)
	if err != nil {
		return View{}, fmt.Errorf("payout: reload after submit: %w", err)
	}
	return s.render(w, detail), nil
}

// History lists past batches for a seller. It returns an empty list when no
// audit log is configured.
func (s *Service) History(ctx context.Context, sellerID int64, limit int) ([]AuditEntry, error) {
	if s.auditor == nil {
		return []AuditEntry{}, nil
	}
	return s.auditor.Recent(ctx, sellerID, limit)
}

// Forget drops every workflow of a session.
func (s *Service) Forget(ctx context.Context, sessionID string) error {
	return s.store.DeleteSession(ctx, sessionID)
}

func (s *Service) audit(ctx context.Context, actor Actor, w *Workflow, ids []int64, total decimal.Decimal, payErr error) {
	if s.auditor == nil {
		return
	}
	entry := AuditEntry{
		ActorName:  actor.Name,
		ActorRole:  actor.Role,
		SellerID:   w.SellerID,
		Mode:       w.Mode,
		SaleIDs:    ids,
		Total:      total,
		Outcome:    "success",
		OccurredAt: s.now(),
	}
	if payErr != nil {
		entry.Outcome = "failure"
		entry.Error = errorText(payErr)
	}
	if err := s.auditor.Record(ctx, entry); err != nil {
		s.logger.Error("record payout audit", slog.Int64("seller_id", w.SellerID), slog.Any("error", err))
	}
}

func (s *Service) render(w *Workflow, detail backend.SellerDetail) View {
	visible := commission.NewestFirst(commission.FilterSales(detail.Sales, w.Range))
	selected := w.Total(detail.Sales)
	return View{
		Workflow:          w,
		Seller:            detail.Seller,
		Sales:             visible,
		SelectedTotal:     selected,
		SelectedTotalText: commission.FormatARS(selected),
		Totals: map[commission.PayMode]aggregate.ModeTotals{
			commission.PayModeSeller:     aggregate.SaleTotals(visible, commission.PayModeSeller),
			commission.PayModeSupervisor: aggregate.SaleTotals(visible, commission.PayModeSupervisor),
		},
		SupervisorPayments: detail.SupervisorPayments,
	}
}

func containsSale(sales []commission.Sale, id int64) bool {
	for _, s := range sales {
		if s.ID == id {
			return true
		}
	}
	return false
}

func errorText(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
