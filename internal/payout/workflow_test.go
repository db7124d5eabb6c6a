package payout

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/platform/httpx"
)

func day(s string) time.Time {
	t, err := time.Parse(commission.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t.Add(12 * time.Hour)
}

func sampleSales() []commission.Sale {
	return []commission.Sale{
		{ID: 1, Date: day("2024-03-01"), SellerCommission: decimal.NewFromInt(15000), SupervisorCommission: decimal.NewFromInt(5000)},
		{ID: 2, Date: day("2024-03-05"), SellerCommission: decimal.NewFromInt(15000), SupervisorCommission: decimal.NewFromInt(5000), PaidToSeller: true},
		{ID: 3, Date: day("2024-03-10"), SellerCommission: decimal.NewFromInt(15000), SupervisorCommission: decimal.NewFromInt(7000)},
		{ID: 4, Date: day("2024-04-02"), SellerCommission: decimal.NewFromInt(15000), SupervisorCommission: decimal.NewFromInt(5000), PaidToSupervisor: true},
	}
}

func TestToggleTwiceRestoresSelection(t *testing.T) {
	w := NewWorkflow(7)
	require.NoError(t, w.Toggle(1))
	require.NoError(t, w.Toggle(3))
	before := append([]int64(nil), w.Selected...)

	require.NoError(t, w.Toggle(4))
	require.NoError(t, w.Toggle(4))
	require.ElementsMatch(t, before, w.Selected)
	require.Equal(t, StateSelecting, w.State)

	require.NoError(t, w.Toggle(1))
	require.NoError(t, w.Toggle(3))
	require.Empty(t, w.Selected)
	require.Equal(t, StateIdle, w.State)
}

func TestSwitchModeAlwaysClears(t *testing.T) {
	w := NewWorkflow(7)
	require.NoError(t, w.SelectAllPending(sampleSales()))
	require.NotEmpty(t, w.Selected)

	require.NoError(t, w.SwitchMode(commission.PayModeSupervisor))
	require.Empty(t, w.Selected)
	require.Equal(t, commission.PayModeSupervisor, w.Mode)

	require.NoError(t, w.Toggle(1))
	require.NoError(t, w.SwitchMode(commission.PayModeSupervisor))
	require.Empty(t, w.Selected, "switching to the same mode still clears")

	require.ErrorIs(t, w.SwitchMode("otro"), ErrInvalidMode)
}

func TestSelectAllPendingUsesModeAndRange(t *testing.T) {
	sales := sampleSales()
	w := NewWorkflow(7)
	require.NoError(t, w.SelectAllPending(sales))
	require.Equal(t, []int64{1, 3, 4}, w.Selected)
	require.Equal(t, StateConfirming, w.State)

	require.NoError(t, w.SwitchMode(commission.PayModeSupervisor))
	require.NoError(t, w.SelectAllPending(sales))
	require.Equal(t, []int64{1, 2, 3}, w.Selected)

	r, err := commission.ParseDateRange("2024-03-04", "2024-03-31", time.UTC)
	require.NoError(t, err)
	w.SetRange(r)
	require.NoError(t, w.SelectAllPending(sales))
	require.Equal(t, []int64{2, 3}, w.Selected)
}

func TestTotalSumsActiveModeOverSelection(t *testing.T) {
	sales := sampleSales()
	w := NewWorkflow(7)
	require.NoError(t, w.Toggle(1))
	require.NoError(t, w.Toggle(3))
	require.True(t, decimal.NewFromInt(30000).Equal(w.Total(sales)))

	require.NoError(t, w.SwitchMode(commission.PayModeSupervisor))
	require.NoError(t, w.Toggle(1))
	require.NoError(t, w.Toggle(3))
	require.True(t, decimal.NewFromInt(12000).Equal(w.Total(sales)))
}

func TestSubmitGuards(t *testing.T) {
	sales := sampleSales()
	w := NewWorkflow(7)

	_, err := w.BeginSubmit("x")
	require.ErrorIs(t, err, ErrEmptySelection)
	_, err = w.Confirm(sales, "tok", time.Now())
	require.ErrorIs(t, err, ErrEmptySelection)

	require.NoError(t, w.Toggle(1))
	_, err = w.BeginSubmit("tok")
	require.ErrorIs(t, err, ErrNotConfirmed)

	c, err := w.Confirm(sales, "tok", time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, c.Count)
	require.Contains(t, c.Message, "$ 15.000")

	_, err = w.BeginSubmit("other")
	require.ErrorIs(t, err, ErrNotConfirmed)

	require.NoError(t, w.Toggle(3))
	require.Nil(t, w.Confirmation, "changing the selection invalidates the confirmation")
	_, err = w.BeginSubmit("tok")
	require.ErrorIs(t, err, ErrNotConfirmed)

	_, err = w.Confirm(sales, "tok2", time.Now())
	require.NoError(t, err)
	ids, err := w.BeginSubmit("tok2")
	require.NoError(t, err)
	require.Equal(t, []int64{1, 3}, ids)
	require.Equal(t, StateSubmitting, w.State)
	require.ErrorIs(t, w.Toggle(2), ErrSubmitting)
}

func TestFailKeepsSelectionAndSucceedClears(t *testing.T) {
	sales := sampleSales()
	w := NewWorkflow(7)
	require.NoError(t, w.Toggle(1))
	_, err := w.Confirm(sales, "tok", time.Now())
	require.NoError(t, err)
	_, err = w.BeginSubmit("tok")
	require.NoError(t, err)

	w.Fail(errors.New("boom"))
	require.Equal(t, StateFailed, w.State)
	require.Equal(t, []int64{1}, w.Selected)
	require.Equal(t, "boom", w.LastError)
	require.Nil(t, w.Confirmation)

	_, err = w.Confirm(sales, "tok3", time.Now())
	require.NoError(t, err)
	_, err = w.BeginSubmit("tok3")
	require.NoError(t, err)
	w.Succeed()
	require.Equal(t, StateSuccess, w.State)
	require.Empty(t, w.Selected)
}

func TestPruneDropsUnknownIDs(t *testing.T) {
	w := NewWorkflow(7)
	require.NoError(t, w.Toggle(1))
	require.NoError(t, w.Toggle(99))
	w.Prune(sampleSales())
	require.Equal(t, []int64{1}, w.Selected)
}

func TestWorkflowErrorsMapToHTTPSentinels(t *testing.T) {
	require.ErrorIs(t, ErrEmptySelection, httpx.ErrValidation)
	require.ErrorIs(t, ErrNotConfirmed, httpx.ErrConflict)
	require.ErrorIs(t, ErrUnknownSale, httpx.ErrNotFound)
}
