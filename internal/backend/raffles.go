package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// RaffleWinner is one placed user of a monthly province raffle.
type RaffleWinner struct {
	ID              int64      `json:"id" validate:"gt=0"`
	UserID          int64      `json:"usuarioId"`
	Position        int        `json:"puesto" validate:"gte=0"`
	MonthlyPoints   int64      `json:"puntosMes"`
	MonthlyPurchase int64      `json:"comprasMes"`
	Province        string     `json:"provincia"`
	Locality        *string    `json:"localidad"`
	Prize           *string    `json:"premio"`
	User            *RaffleUser `json:"usuario,omitempty"`
}

// RaffleUser is the winner profile attached to a raffle row.
type RaffleUser struct {
	ID       int64   `json:"id"`
	Name     string  `json:"nombre"`
	Locality *string `json:"localidad"`
	Province *string `json:"provincia"`
	Photo    *string `json:"fotoPerfil"`
}

// RafflePeriod identifies one monthly raffle.
type RafflePeriod struct {
	Province string `json:"provincia"`
	Month    int    `json:"mes"`
	Year     int    `json:"anio"`
}

func (p RafflePeriod) values() url.Values {
	q := url.Values{}
	optional(q, "provincia", p.Province)
	q.Set("mes", strconv.Itoa(p.Month))
	q.Set("anio", strconv.Itoa(p.Year))
	return q
}

type winnerList struct {
	Ganadores []RaffleWinner `json:"ganadores" validate:"dive"`
}

func (l winnerList) winners() []RaffleWinner {
	if l.Ganadores == nil {
		return []RaffleWinner{}
	}
	return l.Ganadores
}

// RaffleWinners lists the stored winners of a raffle.
func (c *Client) RaffleWinners(ctx context.Context, token string, period RafflePeriod) ([]RaffleWinner, error) {
	var out winnerList
	if err := c.do(ctx, token, get("raffles.list", "/api/admin/sorteos/provincia", period.values()), &out); err != nil {
		return nil, err
	}
	return out.winners(), nil
}

// DrawRaffle executes the raffle for the period and returns the winners.
func (c *Client) DrawRaffle(ctx context.Context, token string, period RafflePeriod) ([]RaffleWinner, error) {
	var out winnerList
	if err := c.do(ctx, token, send("raffles.draw", http.MethodPost, "/api/admin/sorteos/provincia/ejecutar", period), &out); err != nil {
		return nil, err
	}
	return out.winners(), nil
}

type prizeRequest struct {
	Prize string `json:"premio"`
}

type prizeResponse struct {
	Ganador *RaffleWinner `json:"ganador" validate:"omitempty"`
}

// SetRafflePrize records the prize given to a winner row.
func (c *Client) SetRafflePrize(ctx context.Context, token string, winnerID int64, prize string) (*RaffleWinner, error) {
	var out prizeResponse
	if err := c.do(ctx, token, send("raffles.prize", http.MethodPatch,
		idPath("/api/admin/sorteos/provincia/%d/premio", winnerID), prizeRequest{Prize: prize}), &out); err != nil {
		return nil, err
	}
	return out.Ganador, nil
}
