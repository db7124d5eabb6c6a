// Package payout implements the batch commission payment workflow: selecting
// sales of a seller, confirming the running total and submitting one bulk
// "mark paid" request to the backend.
package payout

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/platform/httpx"
)

// State is the workflow position.
type State string

const (
	StateIdle       State = "idle"
	StateSelecting  State = "selecting"
	StateConfirming State = "confirming"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

var (
	// ErrEmptySelection rejects confirm or submit with nothing selected.
	ErrEmptySelection = fmt.Errorf("%w: no sales selected", httpx.ErrValidation)
	// ErrNotConfirmed rejects a submit without a matching confirmation.
	ErrNotConfirmed = fmt.Errorf("%w: payment not confirmed", httpx.ErrConflict)
	// ErrInvalidMode rejects an unknown payment mode.
	ErrInvalidMode = fmt.Errorf("%w: invalid payment mode", httpx.ErrValidation)
	// ErrSubmitting rejects changes while a submit is in flight.
	ErrSubmitting = fmt.Errorf("%w: payment already being submitted", httpx.ErrConflict)
	// ErrInterrupted is recorded on a submit that ended without an outcome.
	ErrInterrupted = errors.New("payment interrupted before the backend answered, confirm again")
	// ErrUnknownSale rejects selecting an id the seller does not own.
	ErrUnknownSale = fmt.Errorf("%w: sale does not belong to seller", httpx.ErrNotFound)
)

// Confirmation is the explicit acknowledgement required before submitting.
type Confirmation struct {
	Token    string             `json:"token"`
	Mode     commission.PayMode `json:"modo"`
	Count    int                `json:"cantidad"`
	Total    decimal.Decimal    `json:"total"`
	Message  string             `json:"mensaje"`
	IssuedAt time.Time          `json:"emitida"`
}

// Workflow is the selection state of one seller's payment view.
type Workflow struct {
	SellerID     int64                `json:"vendedorId"`
	Mode         commission.PayMode   `json:"modo"`
	State        State                `json:"estado"`
	Selected     []int64              `json:"seleccionadas"`
	Range        commission.DateRange `json:"rango"`
	Confirmation *Confirmation        `json:"confirmacion,omitempty"`
	LastError    string               `json:"ultimoError,omitempty"`
	UpdatedAt    time.Time            `json:"actualizado"`
}

// NewWorkflow starts an idle workflow in seller mode.
func NewWorkflow(sellerID int64) *Workflow {
	return &Workflow{
		SellerID: sellerID,
		Mode:     commission.PayModeSeller,
		State:    StateIdle,
		Selected: []int64{},
	}
}

// IsSelected reports whether id is in the selection.
func (w *Workflow) IsSelected(id int64) bool {
	return slices.Contains(w.Selected, id)
}

// Toggle adds id to the selection, or removes it when already present.
func (w *Workflow) Toggle(id int64) error {
	if w.State == StateSubmitting {
		return ErrSubmitting
	}
	if i := slices.Index(w.Selected, id); i >= 0 {
		w.Selected = slices.Delete(w.Selected, i, i+1)
	} else {
		w.Selected = append(w.Selected, id)
	}
	w.selectionChanged(StateSelecting)
	return nil
}

// SelectAllPending replaces the selection with every sale inside the active date
// range that is still unpaid for the active mode.
func (w *Workflow) SelectAllPending(sales []commission.Sale) error {
	if w.State == StateSubmitting {
		return ErrSubmitting
	}
	ids := make([]int64, 0, len(sales))
	for _, s := range commission.FilterSales(sales, w.Range) {
		if !s.Paid(w.Mode) {
			ids = append(ids, s.ID)
		}
	}
	w.Selected = ids
	w.selectionChanged(StateConfirming)
	return nil
}

// Clear empties the selection.
func (w *Workflow) Clear() error {
	if w.State == StateSubmitting {
		return ErrSubmitting
	}
	w.Selected = []int64{}
	w.selectionChanged(StateIdle)
	return nil
}

// SwitchMode changes the payment mode. The selection is always emptied.
func (w *Workflow) SwitchMode(mode commission.PayMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if w.State == StateSubmitting {
		return ErrSubmitting
	}
	w.Mode = mode
	w.Selected = []int64{}
	w.selectionChanged(StateIdle)
	return nil
}

// SetRange changes the date filter used by SelectAllPending.
func (w *Workflow) SetRange(r commission.DateRange) {
	w.Range = r
	w.touch()
}

// Total sums the active-mode commission over exactly the selected ids.
func (w *Workflow) Total(sales []commission.Sale) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sales {
		if w.IsSelected(s.ID) {
			total = total.Add(s.Commission(w.Mode))
		}
	}
	return total
}

// Confirm issues the confirmation the submit must present.
func (w *Workflow) Confirm(sales []commission.Sale, token string, now time.Time) (*Confirmation, error) {
	if w.State == StateSubmitting {
		return nil, ErrSubmitting
	}
	if len(w.Selected) == 0 {
		return nil, ErrEmptySelection
	}
	total := w.Total(sales)
	c := &Confirmation{
		Token:    token,
		Mode:     w.Mode,
		Count:    len(w.Selected),
		Total:    total,
		Message:  ConfirmationMessage(w.Mode, len(w.Selected), total),
		IssuedAt: now,
	}
	w.Confirmation = c
	w.State = StateConfirming
	w.LastError = ""
	w.touch()
	return c, nil
}

// BeginSubmit checks the guards and moves to Submitting. It returns the ids to pay.
func (w *Workflow) BeginSubmit(token string) ([]int64, error) {
	if w.State == StateSubmitting {
		return nil, ErrSubmitting
	}
	if len(w.Selected) == 0 {
		return nil, ErrEmptySelection
	}
	if w.Confirmation == nil || token == "" || w.Confirmation.Token != token {
		return nil, ErrNotConfirmed
	}
	w.State = StateSubmitting
	w.touch()
	return slices.Clone(w.Selected), nil
}

// Succeed records an acknowledged payment and empties the selection.
func (w *Workflow) Succeed() {
	w.Selected = []int64{}
	w.Confirmation = nil
	w.LastError = ""
	w.State = StateSuccess
	w.touch()
}

// Fail records a rejected payment. The selection is kept so the user can retry
// after confirming again.
func (w *Workflow) Fail(err error) {
	w.Confirmation = nil
	if err != nil {
		w.LastError = err.Error()
	}
	w.State = StateFailed
	w.touch()
}

// Recover moves a workflow left in Submitting by a submit that is no longer
// running to Failed. The selection is kept. It reports whether anything changed.
func (w *Workflow) Recover() bool {
	if w.State != StateSubmitting {
		return false
	}
	w.Fail(ErrInterrupted)
	return true
}

// Prune drops selected ids that are not in sales, e.g. after the list was
// reloaded with a different filter.
func (w *Workflow) Prune(sales []commission.Sale) {
	known := make(map[int64]struct{}, len(sales))
	for _, s := range sales {
		known[s.ID] = struct{}{}
	}
	kept := w.Selected[:0]
	for _, id := range w.Selected {
		if _, ok := known[id]; ok {
			kept = append(kept, id)
		}
	}
	if len(kept) != len(w.Selected) {
		w.Selected = kept
		w.selectionChanged(StateSelecting)
		return
	}
	w.Selected = kept
}

// selectionChanged invalidates any outstanding confirmation and settles the
// state: Idle for an empty selection, next otherwise.
func (w *Workflow) selectionChanged(next State) {
	w.Confirmation = nil
	w.LastError = ""
	if len(w.Selected) == 0 {
		w.State = StateIdle
	} else {
		w.State = next
	}
	w.touch()
}

func (w *Workflow) touch() {
	w.UpdatedAt = time.Now().UTC()
}

// ConfirmationMessage is the question shown before paying.
func ConfirmationMessage(mode commission.PayMode, count int, total decimal.Decimal) string {
	who := "al vendedor"
	if mode == commission.PayModeSupervisor {
		who = "al supervisor"
	}
	return fmt.Sprintf("¿Confirmás marcar como pagadas %s %d ventas por un total de %s?", who, count, commission.FormatARS(total))
}
