// Package contests manages the user challenges: listing, creation from
// templates, activation, progress ranking and winner runs.
package contests

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/puntomas/panel/internal/aggregate"
	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/platform/httpx"
)

// AllProvinces targets every province when creating or listing contests.
const AllProvinces = "__TODAS__"

// DefaultRadiusMeters is the destination radius applied when none is given.
const DefaultRadiusMeters = 50

var (
	// ErrTitleRequired rejects a contest without title or description.
	ErrTitleRequired = fmt.Errorf("%w: completá título y descripción", httpx.ErrValidation)
	// ErrProvinceRequired rejects a contest without province selection.
	ErrProvinceRequired = fmt.Errorf("%w: seleccioná una provincia (o todas)", httpx.ErrValidation)
	// ErrInvalidContest rejects inconsistent contest parameters.
	ErrInvalidContest = fmt.Errorf("%w: parámetros de reto inválidos", httpx.ErrValidation)
	// ErrUnknownTemplate rejects a template name outside Templates.
	ErrUnknownTemplate = fmt.Errorf("%w: plantilla desconocida", httpx.ErrValidation)
)

// Backend is the part of the backend client the contest screens need.
type Backend interface {
	Contests(ctx context.Context, token, province string) ([]backend.Contest, error)
	CreateContest(ctx context.Context, token string, contest backend.NewContest) (backend.Contest, error)
	SetContestActive(ctx context.Context, token string, id int64, active bool) error
	ContestProgress(ctx context.Context, token string, id int64) (backend.Contest, []backend.ContestProgress, error)
	RunContestWinners(ctx context.Context, token string, id int64) error
}

// Template is a preset contest definition.
type Template struct {
	Name        string              `json:"nombre"`
	Title       string              `json:"titulo"`
	Description string              `json:"descripcion"`
	Type        backend.ContestType `json:"tipo"`
	Goal        int64               `json:"meta"`
	RangeDays   int                 `json:"rangoDias"`
	Points      int64               `json:"puntos"`
}

// Templates are the presets offered on the creation form, in display order.
var Templates = []Template{
	{
		Name:        "VISITA_1",
		Title:       "Visitá 1 negocio",
		Description: "Pasá por al menos un negocio adherido en tu provincia y escaneá tu QR.",
		Type:        backend.ContestVisits,
		Goal:        1,
		RangeDays:   7,
		Points:      100,
	},
	{
		Name:        "VISITA_3",
		Title:       "Comprá en 3 negocios distintos",
		Description: "Comprá en 3 negocios distintos adheridos en tu provincia y escaneá tu QR.",
		Type:        backend.ContestVisits,
		Goal:        3,
		RangeDays:   10,
		Points:      300,
	},
	{
		Name:        "CAMINAR_3KM",
		Title:       "Caminá 3 km",
		Description: "Sumá al menos 3 km caminados usando la app dentro del plazo del reto.",
		Type:        backend.ContestDistance,
		Goal:        3000,
		RangeDays:   5,
		Points:      200,
	},
}

// FindTemplate looks a template up by name.
func FindTemplate(name string) (Template, bool) {
	for _, t := range Templates {
		if t.Name == name {
			return t, true
		}
	}
	return Template{}, false
}

// Form is the contest creation form. When Template is set, its values fill the
// title, description, type, goal, range and points before validation.
type Form struct {
	Template         string              `json:"plantilla"`
	Title            string              `json:"titulo"`
	Description      string              `json:"descripcion"`
	Points           int64               `json:"puntos"`
	Type             backend.ContestType `json:"tipo"`
	Goal             *int64              `json:"meta"`
	RangeDays        *int                `json:"rangoDias"`
	DestLatitude     *float64            `json:"destinoLatitud"`
	DestLongitude    *float64            `json:"destinoLongitud"`
	DestRadiusMeters *int                `json:"destinoRadioMetros"`
	Province         string              `json:"provincia"`
	Locality         string              `json:"localidad"`
}

// Build validates the form and produces the backend payload.
func (f Form) Build() (backend.NewContest, error) {
	if f.Template != "" {
		t, ok := FindTemplate(f.Template)
		if !ok {
			return backend.NewContest{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, f.Template)
		}
		goal, days := t.Goal, t.RangeDays
		f.Title, f.Description, f.Type, f.Points = t.Title, t.Description, t.Type, t.Points
		f.Goal, f.RangeDays = &goal, &days
	}
	out := backend.NewContest{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Points:      f.Points,
		Type:        f.Type,
		Goal:        f.Goal,
		RangeDays:   f.RangeDays,
	}
	if out.Title == "" || out.Description == "" {
		return backend.NewContest{}, ErrTitleRequired
	}
	province := strings.TrimSpace(f.Province)
	if province == "" {
		return backend.NewContest{}, ErrProvinceRequired
	}
	if province != AllProvinces {
		out.Province = &province
	}
	if locality := strings.TrimSpace(f.Locality); locality != "" {
		out.Locality = &locality
	}
	if out.Type == "" {
		out.Type = backend.ContestVisits
	}
	if !out.Type.Valid() {
		return backend.NewContest{}, fmt.Errorf("%w: tipo %q", ErrInvalidContest, out.Type)
	}
	if out.Points < 0 {
		return backend.NewContest{}, fmt.Errorf("%w: puntos negativos", ErrInvalidContest)
	}
	if out.RangeDays != nil && *out.RangeDays <= 0 {
		out.RangeDays = nil
	}
	switch out.Type {
	case backend.ContestVisits:
		if out.Goal == nil || *out.Goal < 1 {
			one := int64(1)
			out.Goal = &one
		}
	case backend.ContestDistance, backend.ContestPoints:
		if out.Goal == nil || *out.Goal <= 0 {
			return backend.NewContest{}, fmt.Errorf("%w: meta requerida", ErrInvalidContest)
		}
	case backend.ContestDestination:
		if f.DestLatitude == nil || f.DestLongitude == nil {
			return backend.NewContest{}, fmt.Errorf("%w: destino requerido", ErrInvalidContest)
		}
		if *f.DestLatitude < -90 || *f.DestLatitude > 90 || *f.DestLongitude < -180 || *f.DestLongitude > 180 {
			return backend.NewContest{}, fmt.Errorf("%w: coordenadas fuera de rango", ErrInvalidContest)
		}
		radius := DefaultRadiusMeters
		if f.DestRadiusMeters != nil && *f.DestRadiusMeters > 0 {
			radius = *f.DestRadiusMeters
		}
		out.DestLatitude, out.DestLongitude, out.DestRadiusMeters = f.DestLatitude, f.DestLongitude, &radius
	}
	return out, nil
}

// ProgressView is a contest with its participants ranked by points.
type ProgressView struct {
	Contest      backend.Contest           `json:"reto"`
	Ranking      []backend.ContestProgress `json:"ranking"`
	Participants int                       `json:"participantes"`
}

// Service implements the contest operations.
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

// List returns the contests of province, every contest for AllProvinces or "".
func (s *Service) List(ctx context.Context, token, province string) ([]backend.Contest, error) {
	province = strings.TrimSpace(province)
	if province == AllProvinces {
		province = ""
	}
	return s.backend.Contests(ctx, token, province)
}

// Create validates the form and creates the contest.
func (s *Service) Create(ctx context.Context, token string, form Form) (backend.Contest, error) {
	payload, err := form.Build()
	if err != nil {
		return backend.Contest{}, err
	}
	created, err := s.backend.CreateContest(ctx, token, payload)
	if err != nil {
		return backend.Contest{}, err
	}
	s.logger.Info("contest created", slog.Int64("contest_id", created.ID), slog.String("type", string(created.Type)))
	return created, nil
}

// SetActive activates or deactivates a contest.
func (s *Service) SetActive(ctx context.Context, token string, id int64, active bool) error {
	return s.backend.SetContestActive(ctx, token, id, active)
}

// Progress ranks the participants of a contest by awarded points. Equal
// scores keep the backend order. A positive top truncates the ranking.
func (s *Service) Progress(ctx context.Context, token string, id int64, top int) (ProgressView, error) {
	contest, rows, err := s.backend.ContestProgress(ctx, token, id)
	if err != nil {
		return ProgressView{}, err
	}
	return ProgressView{
		Contest:      contest,
		Ranking:      aggregate.RankDesc(rows, func(p backend.ContestProgress) int64 { return p.PointsAwarded }, top),
		Participants: len(rows),
	}, nil
}

// RunWinners stores the final standings of a contest.
func (s *Service) RunWinners(ctx context.Context, token string, id int64) error {
	if err := s.backend.RunContestWinners(ctx, token, id); err != nil {
		return err
	}
	s.logger.Info("contest winners stored", slog.Int64("contest_id", id))
	return nil
}
