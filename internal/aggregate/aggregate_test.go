package aggregate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/puntomas/panel/internal/commission"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func sale(id, seller int64, sellerPaid, supervisorPaid bool) commission.Sale {
	return commission.Sale{
		ID:                   id,
		SellerID:             seller,
		SellerCommission:     commission.DefaultSellerCommission,
		SupervisorCommission: commission.DefaultSupervisorCommission,
		PaidToSeller:         sellerPaid,
		PaidToSupervisor:     supervisorPaid,
	}
}

func TestGroupByConservesSums(t *testing.T) {
	sales := []commission.Sale{
		sale(1, 1, false, false),
		sale(2, 2, true, false),
		sale(3, 1, true, true),
		sale(4, 0, false, false),
		sale(5, 3, false, true),
	}
	sales[1].SellerCommission = dec(12345)

	groups := GroupBy(sales, sellerKey,
		Count[commission.Sale](),
		Sum("c", func(s commission.Sale) decimal.Decimal { return s.SellerCommission }))

	var grouped decimal.Decimal
	count := 0
	for _, g := range groups {
		grouped = grouped.Add(g.Sum("c"))
		count += g.Count
	}

	var expected decimal.Decimal
	for _, s := range sales {
		if s.SellerID > 0 {
			expected = expected.Add(s.SellerCommission)
		}
	}
	require.True(t, expected.Equal(grouped), "expected %s got %s", expected, grouped)
	require.Equal(t, 4, count)
	require.Len(t, groups, 3)
}

func TestGroupBySkipsMissingKeys(t *testing.T) {
	groups := GroupBy([]string{"a", "", "a", "b"}, StringKey(func(s string) string { return s }), Count[string]())
	require.Len(t, groups, 2)
	require.Equal(t, 2, groups["a"].Count)
	var nilTotals *Totals
	require.True(t, nilTotals.Sum("x").IsZero())
}

func TestHeatmapPercentOfMax(t *testing.T) {
	counts := []commission.ProvinceCount{
		{Province: "Cordoba", Count: 4},
		{Province: "San Luis", Count: 10},
	}
	heat := HeatmapFromCounts(counts)
	require.Len(t, heat, 2)
	require.Equal(t, "San Luis", heat[0].Province)
	require.InDelta(t, 100.0, heat[0].PercentOfMax, 0.001)
	require.Equal(t, "Cordoba", heat[1].Province)
	require.InDelta(t, 40.0, heat[1].PercentOfMax, 0.001)
}

func TestHeatmapDropsProvinceless(t *testing.T) {
	businesses := []commission.Business{
		{ID: 1, Province: "Mendoza"},
		{ID: 2},
		{ID: 3, Province: "San Juan"},
		{ID: 4, Province: "Mendoza"},
	}
	heat := Heatmap(businesses, func(b commission.Business) string { return b.Province })
	require.Equal(t, []commission.ProvinceCount{
		{Province: "Mendoza", Count: 2, PercentOfMax: 100},
		{Province: "San Juan", Count: 1, PercentOfMax: 50},
	}, heat)
	require.Empty(t, HeatmapFromCounts(nil))
}

func TestRankByPendingOrdersDebtFirst(t *testing.T) {
	var sales []commission.Sale
	for i := int64(1); i <= 3; i++ {
		sales = append(sales, sale(i, 1, true, true))
	}
	sales = append(sales, sale(4, 2, false, true), sale(5, 2, false, true))
	for i := range sales {
		if sales[i].SellerID == 1 {
			sales[i].SellerName = "A"
		} else {
			sales[i].SellerName = "B"
		}
	}

	summaries := SellerSummaries(sales)
	require.Equal(t, "A", summaries[0].Name)

	ranked := RankByPending(summaries, commission.PayModeSeller, 0)
	require.Equal(t, []string{"B", "A"}, []string{ranked[0].Name, ranked[1].Name})
	require.True(t, ranked[0].TotalSellerPending.Equal(dec(30000)))
	require.Equal(t, 2, ranked[0].SaleCount)
	require.True(t, ranked[1].TotalSellerPending.IsZero())
	require.Equal(t, 3, ranked[1].SaleCount)
}

func TestRankDescStableTies(t *testing.T) {
	type row struct {
		name  string
		value int
	}
	rows := []row{{"first", 1}, {"top", 5}, {"second", 1}, {"third", 1}}
	ranked := RankDesc(rows, func(r row) int { return r.value }, 0)
	require.Equal(t, []string{"top", "first", "second", "third"},
		[]string{ranked[0].name, ranked[1].name, ranked[2].name, ranked[3].name})

	top := RankDesc(rows, func(r row) int { return r.value }, 2)
	require.Len(t, top, 2)
	require.Equal(t, "first", rows[0].name, "input must not be reordered")
}

func TestFleetTotals(t *testing.T) {
	summaries := SellerSummaries([]commission.Sale{
		sale(1, 1, false, false),
		sale(2, 1, true, false),
		sale(3, 2, true, true),
	})
	fleet := FleetTotals(summaries)
	require.Equal(t, 2, fleet.Sellers)
	require.Equal(t, 3, fleet.SaleCount)
	require.True(t, fleet.TotalSellerCommission.Equal(dec(45000)))
	require.True(t, fleet.TotalSellerPending.Equal(dec(15000)))
	require.True(t, fleet.TotalSupervisorPending.Equal(dec(10000)))
	require.Equal(t, 1, fleet.SellersOwedSeller)
	require.Equal(t, 1, fleet.SellersSettledSeller)
	require.Equal(t, 1, fleet.SellersOwedSupervisor)
}

func TestSaleTotalsPerMode(t *testing.T) {
	sales := []commission.Sale{sale(1, 1, true, false), sale(2, 1, false, false)}
	seller := SaleTotals(sales, commission.PayModeSeller)
	require.True(t, seller.Paid.Equal(dec(15000)))
	require.True(t, seller.Pending.Equal(dec(15000)))
	supervisor := SaleTotals(sales, commission.PayModeSupervisor)
	require.True(t, supervisor.Pending.Equal(dec(10000)))
}

func TestSellerBusinessRankingAndGrowth(t *testing.T) {
	ana := &commission.PersonRef{ID: 1, Name: "Ana"}
	beto := &commission.PersonRef{ID: 2, Name: "Beto"}
	businesses := []commission.Business{
		{ID: 1, Seller: ana, PlanStatus: commission.PlanCurrent, MonthlyPoints: 5},
		{ID: 2, Seller: beto, PlanStatus: commission.PlanExpired, MonthlyPoints: 40},
		{ID: 3, Seller: beto, PlanStatus: commission.PlanExpiringSoon, MonthlyPoints: 12},
		{ID: 4, PlanStatus: commission.PlanNone, MonthlyPoints: 7},
	}

	ranking := SellerBusinessRanking(businesses, 5)
	require.Len(t, ranking, 2)
	require.Equal(t, "Beto", ranking[0].Name)
	require.Equal(t, 2, ranking[0].Businesses)
	require.Equal(t, 1, ranking[0].WithPlan)

	growth := TopGrowth(businesses, 2)
	require.Equal(t, []int64{2, 3}, []int64{growth[0].ID, growth[1].ID})

	stats := BusinessPlanStats(businesses)
	require.Equal(t, PlanStats{Total: 4, WithPlan: 2, NoPlan: 1, Expiring: 1, Expired: 1}, stats)
}
