package backend

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/puntomas/panel/internal/commission"
)

// NoProvince labels users registered without a province.
const NoProvince = "SIN_PROVINCIA"

type provinceUsersDTO struct {
	Provincias []struct {
		Provincia *string `json:"provincia"`
		Cantidad  int     `json:"cantidad" validate:"gte=0"`
	} `json:"provincias" validate:"dive"`
}

// UsersPerProvince counts app users per province. A missing province is
// reported under NoProvince.
func (c *Client) UsersPerProvince(ctx context.Context, token string) ([]commission.ProvinceCount, error) {
	var out provinceUsersDTO
	if err := c.do(ctx, token, get("stats.provinces", "/api/admin/estadisticas/usuarios-negocio/provincias", nil), &out); err != nil {
		return nil, err
	}
	counts := make([]commission.ProvinceCount, 0, len(out.Provincias))
	for _, p := range out.Provincias {
		name := strings.TrimSpace(deref(p.Provincia))
		if name == "" {
			name = NoProvince
		}
		counts = append(counts, commission.ProvinceCount{Province: name, Count: p.Cantidad})
	}
	return counts, nil
}

// RankingEntry is one user in the monthly province ranking.
type RankingEntry struct {
	UserID          int64   `json:"usuarioId"`
	Name            string  `json:"nombre"`
	Province        *string `json:"provincia"`
	Locality        *string `json:"localidad"`
	MonthPurchases  int64   `json:"comprasMes"`
	CheckinPoints   int64   `json:"puntosCheckinMes"`
	ContestPoints   int64   `json:"puntosRetosMes"`
	TotalPoints     int64   `json:"puntosTotalMes"`
}

// ProvinceRanking is the monthly ranking of one province.
type ProvinceRanking struct {
	Province   string         `json:"provincia"`
	Month      int            `json:"mes"`
	Year       int            `json:"anio"`
	TotalUsers int            `json:"totalUsuariosRanking"`
	Ranking    []RankingEntry `json:"ranking"`
}

// ProvinceRanking loads the user ranking of a province for a month.
func (c *Client) ProvinceRanking(ctx context.Context, token string, period RafflePeriod) (ProvinceRanking, error) {
	q := url.Values{}
	q.Set("provincia", period.Province)
	q.Set("mes", strconv.Itoa(period.Month))
	q.Set("anio", strconv.Itoa(period.Year))
	var out ProvinceRanking
	if err := c.do(ctx, token, get("stats.ranking", "/api/admin/estadisticas/provincia/ranking", q), &out); err != nil {
		return ProvinceRanking{}, err
	}
	if out.Ranking == nil {
		out.Ranking = []RankingEntry{}
	}
	return out, nil
}
