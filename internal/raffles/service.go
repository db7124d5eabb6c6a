// Package raffles runs the monthly province raffles and records prizes.
package raffles

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/platform/httpx"
)

var (
	// ErrProvinceRequired rejects a raffle period without province.
	ErrProvinceRequired = fmt.Errorf("%w: seleccioná una provincia", httpx.ErrValidation)
	// ErrInvalidPeriod rejects an out-of-range month or year.
	ErrInvalidPeriod = fmt.Errorf("%w: mes o año inválido", httpx.ErrValidation)
	// ErrPrizeRequired rejects an empty prize description.
	ErrPrizeRequired = fmt.Errorf("%w: ingresá una descripción de premio antes de guardar", httpx.ErrValidation)
)

// Backend is the part of the backend client the raffle screen needs.
type Backend interface {
	RaffleWinners(ctx context.Context, token string, period backend.RafflePeriod) ([]backend.RaffleWinner, error)
	DrawRaffle(ctx context.Context, token string, period backend.RafflePeriod) ([]backend.RaffleWinner, error)
	SetRafflePrize(ctx context.Context, token string, winnerID int64, prize string) (*backend.RaffleWinner, error)
}

// ParsePeriod builds a raffle period from query values. An empty month or year
// defaults to the month before now.
func ParsePeriod(province, month, year string, now time.Time) (backend.RafflePeriod, error) {
	p := backend.RafflePeriod{Province: strings.TrimSpace(province)}
	if p.Province == "" {
		return backend.RafflePeriod{}, ErrProvinceRequired
	}
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
	p.Month, p.Year = int(prev.Month()), prev.Year()
	if raw := strings.TrimSpace(month); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil {
			return backend.RafflePeriod{}, fmt.Errorf("%w: mes %q", ErrInvalidPeriod, raw)
		}
		p.Month = m
	}
	if raw := strings.TrimSpace(year); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			return backend.RafflePeriod{}, fmt.Errorf("%w: año %q", ErrInvalidPeriod, raw)
		}
		p.Year = y
	}
	return p, ValidatePeriod(p)
}

// ValidatePeriod checks province, month and year.
func ValidatePeriod(p backend.RafflePeriod) error {
	if strings.TrimSpace(p.Province) == "" {
		return ErrProvinceRequired
	}
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: mes %d", ErrInvalidPeriod, p.Month)
	}
	if p.Year < 2000 || p.Year > 2100 {
		return fmt.Errorf("%w: año %d", ErrInvalidPeriod, p.Year)
	}
	return nil
}

// Result is the winner list of one raffle, ordered by position.
type Result struct {
	Period  backend.RafflePeriod  `json:"periodo"`
	Winners []backend.RaffleWinner `json:"ganadores"`
}

// Service implements the raffle operations.
type Service struct {
	backend Backend
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(b Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: b, logger: logger}
}

// Winners lists the stored winners of a period.
func (s *Service) Winners(ctx context.Context, token string, p backend.RafflePeriod) (Result, error) {
	if err := ValidatePeriod(p); err != nil {
		return Result{}, err
	}
	winners, err := s.backend.RaffleWinners(ctx, token, p)
	if err != nil {
		return Result{}, err
	}
	return Result{Period: p, Winners: byPosition(winners)}, nil
}

// Draw executes the raffle of a period, replacing its winners.
func (s *Service) Draw(ctx context.Context, token string, p backend.RafflePeriod) (Result, error) {
	if err := ValidatePeriod(p); err != nil {
		return Result{}, err
	}
	winners, err := s.backend.DrawRaffle(ctx, token, p)
	if err != nil {
		return Result{}, err
	}
	s.logger.Info("raffle drawn",
		slog.String("province", p.Province),
		slog.Int("month", p.Month),
		slog.Int("year", p.Year),
		slog.Int("winners", len(winners)),
	)
	return Result{Period: p, Winners: byPosition(winners)}, nil
}

// SetPrize records the prize of a winner row.
func (s *Service) SetPrize(ctx context.Context, token string, winnerID int64, prize string) (*backend.RaffleWinner, error) {
	prize = strings.TrimSpace(prize)
	if prize == "" {
		return nil, ErrPrizeRequired
	}
	return s.backend.SetRafflePrize(ctx, token, winnerID, prize)
}

func byPosition(winners []backend.RaffleWinner) []backend.RaffleWinner {
	out := slices.Clone(winners)
	if out == nil {
		out = []backend.RaffleWinner{}
	}
	slices.SortStableFunc(out, func(a, b backend.RaffleWinner) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return out
}
