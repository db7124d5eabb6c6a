package aggregate

import (
	"github.com/shopspring/decimal"

	"github.com/puntomas/panel/internal/commission"
)

const (
	sumSellerCommission     = "seller_commission"
	sumSellerPaid           = "seller_paid"
	sumSupervisorCommission = "supervisor_commission"
	sumSupervisorPaid       = "supervisor_paid"
)

func sellerKey(s commission.Sale) (int64, bool) {
	return s.SellerID, s.SellerID > 0
}

// SellerSummaries groups sales by seller and derives totals, paid and pending
// amounts for both commissions. Summaries come out in first-sale order.
func SellerSummaries(sales []commission.Sale) []commission.SellerSummary {
	groups := GroupBy(sales, sellerKey,
		Count[commission.Sale](),
		Sum(sumSellerCommission, func(s commission.Sale) decimal.Decimal { return s.SellerCommission }),
		SumIf(sumSellerPaid, func(s commission.Sale) bool { return s.PaidToSeller },
			func(s commission.Sale) decimal.Decimal { return s.SellerCommission }),
		Sum(sumSupervisorCommission, func(s commission.Sale) decimal.Decimal { return s.SupervisorCommission }),
		SumIf(sumSupervisorPaid, func(s commission.Sale) bool { return s.PaidToSupervisor },
			func(s commission.Sale) decimal.Decimal { return s.SupervisorCommission }),
	)

	names := make(map[int64]string, len(groups))
	for _, s := range sales {
		if _, ok := names[s.SellerID]; !ok && s.SellerName != "" {
			names[s.SellerID] = s.SellerName
		}
	}

	out := make([]commission.SellerSummary, 0, len(groups))
	for _, id := range FirstSeen(sales, sellerKey) {
		t := groups[id]
		summary := commission.SellerSummary{
			SellerID:                  id,
			Name:                      names[id],
			SaleCount:                 t.Count,
			TotalSellerCommission:     t.Sum(sumSellerCommission),
			TotalSellerPaid:           t.Sum(sumSellerPaid),
			TotalSupervisorCommission: t.Sum(sumSupervisorCommission),
			TotalSupervisorPaid:       t.Sum(sumSupervisorPaid),
		}
		summary.TotalSellerPending = summary.TotalSellerCommission.Sub(summary.TotalSellerPaid)
		summary.TotalSupervisorPending = summary.TotalSupervisorCommission.Sub(summary.TotalSupervisorPaid)
		out = append(out, summary)
	}
	return out
}

// Fleet is the rollup of every seller summary on a page.
type Fleet struct {
	Sellers                   int             `json:"vendedores"`
	SaleCount                 int             `json:"totalVentas"`
	TotalSellerCommission     decimal.Decimal `json:"totalComisionVendedor"`
	TotalSellerPaid           decimal.Decimal `json:"totalPagadoVendedor"`
	TotalSellerPending        decimal.Decimal `json:"totalPendienteVendedor"`
	TotalSupervisorCommission decimal.Decimal `json:"totalComisionSupervisor"`
	TotalSupervisorPaid       decimal.Decimal `json:"totalPagadoSupervisor"`
	TotalSupervisorPending    decimal.Decimal `json:"totalPendienteSupervisor"`
	SellersOwedSeller         int             `json:"vendedoresConDeudaVendedor"`
	SellersSettledSeller      int             `json:"vendedoresAlDiaVendedor"`
	SellersOwedSupervisor     int             `json:"vendedoresConDeudaSupervisor"`
}

// FleetTotals sums summaries and counts the sellers that are still owed money.
func FleetTotals(summaries []commission.SellerSummary) Fleet {
	var f Fleet
	f.Sellers = len(summaries)
	for _, s := range summaries {
		f.SaleCount += s.SaleCount
		f.TotalSellerCommission = f.TotalSellerCommission.Add(s.TotalSellerCommission)
		f.TotalSellerPaid = f.TotalSellerPaid.Add(s.TotalSellerPaid)
		f.TotalSellerPending = f.TotalSellerPending.Add(s.TotalSellerPending)
		f.TotalSupervisorCommission = f.TotalSupervisorCommission.Add(s.TotalSupervisorCommission)
		f.TotalSupervisorPaid = f.TotalSupervisorPaid.Add(s.TotalSupervisorPaid)
		f.TotalSupervisorPending = f.TotalSupervisorPending.Add(s.TotalSupervisorPending)
		if s.TotalSellerPending.IsPositive() {
			f.SellersOwedSeller++
		}
		if s.TotalSupervisorPending.IsPositive() {
			f.SellersOwedSupervisor++
		}
	}
	f.SellersSettledSeller = f.Sellers - f.SellersOwedSeller
	return f
}

// RankByPending orders summaries by the pending amount of the given mode.
func RankByPending(summaries []commission.SellerSummary, mode commission.PayMode, topN int) []commission.SellerSummary {
	pending := func(s commission.SellerSummary) decimal.Decimal {
		if mode == commission.PayModeSupervisor {
			return s.TotalSupervisorPending
		}
		return s.TotalSellerPending
	}
	return RankDescFunc(summaries, func(a, b commission.SellerSummary) int {
		return pending(a).Cmp(pending(b))
	}, topN)
}

// ModeTotals is the commission/paid/pending triple for one payment mode.
type ModeTotals struct {
	Commission decimal.Decimal `json:"comision"`
	Paid       decimal.Decimal `json:"pagado"`
	Pending    decimal.Decimal `json:"pendiente"`
}

// SaleTotals sums the commission of the given mode across sales.
func SaleTotals(sales []commission.Sale, mode commission.PayMode) ModeTotals {
	var t ModeTotals
	for _, s := range sales {
		amount := s.Commission(mode)
		t.Commission = t.Commission.Add(amount)
		if s.Paid(mode) {
			t.Paid = t.Paid.Add(amount)
		}
	}
	t.Pending = t.Commission.Sub(t.Paid)
	return t
}
