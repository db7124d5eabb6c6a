package aggregate

import "github.com/puntomas/panel/internal/commission"

// SellerBusinesses counts the businesses a seller brought in.
type SellerBusinesses struct {
	SellerID   int64  `json:"vendedorId"`
	Name       string `json:"nombre"`
	Email      string `json:"email"`
	Businesses int    `json:"cantidadNegocios"`
	WithPlan   int    `json:"conPlan"`
}

// SellerBusinessRanking ranks sellers by how many businesses they registered.
// Businesses without a seller are ignored.
func SellerBusinessRanking(businesses []commission.Business, topN int) []SellerBusinesses {
	key := func(b commission.Business) (int64, bool) {
		if b.Seller == nil {
			return 0, false
		}
		return b.Seller.ID, true
	}
	index := make(map[int64]int)
	rows := make([]SellerBusinesses, 0)
	for _, b := range businesses {
		id, ok := key(b)
		if !ok {
			continue
		}
		i, exists := index[id]
		if !exists {
			i = len(rows)
			index[id] = i
			rows = append(rows, SellerBusinesses{SellerID: id, Name: b.Seller.Name, Email: b.Seller.Email})
		}
		rows[i].Businesses++
		if b.PlanStatus.HasPlan() {
			rows[i].WithPlan++
		}
	}
	return RankDesc(rows, func(r SellerBusinesses) int { return r.Businesses }, topN)
}

// TopGrowth returns the businesses with the most points this month.
func TopGrowth(businesses []commission.Business, topN int) []commission.Business {
	return RankDesc(businesses, func(b commission.Business) int64 { return b.MonthlyPoints }, topN)
}

// PlanStats breaks a business list down by plan status.
type PlanStats struct {
	Total    int `json:"totalNegocios"`
	WithPlan int `json:"conPlan"`
	NoPlan   int `json:"sinPlan"`
	Expiring int `json:"porVencer"`
	Expired  int `json:"vencidos"`
}

// BusinessPlanStats counts businesses per plan status.
func BusinessPlanStats(businesses []commission.Business) PlanStats {
	groups := GroupBy(businesses, func(b commission.Business) (commission.PlanStatus, bool) {
		return b.PlanStatus, b.PlanStatus != ""
	}, Count[commission.Business]())
	count := func(p commission.PlanStatus) int {
		if t, ok := groups[p]; ok {
			return t.Count
		}
		return 0
	}
	return PlanStats{
		Total:    len(businesses),
		WithPlan: count(commission.PlanCurrent) + count(commission.PlanExpiringSoon),
		NoPlan:   count(commission.PlanNone),
		Expiring: count(commission.PlanExpiringSoon),
		Expired:  count(commission.PlanExpired),
	}
}
