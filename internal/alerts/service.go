// Package alerts serves the admin and supervisor alert inboxes and keeps a
// per-session pending-alert counter fresh with a background poller.
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/platform/httpx"
	"github.com/puntomas/panel/internal/poll"
	"github.com/puntomas/panel/internal/shared"
)

// MinNoteLength is the shortest accepted supervisor note, after trimming.
const MinNoteLength = 3

var (
	// ErrNoteTooShort rejects a resolution without a usable note.
	ErrNoteTooShort = fmt.Errorf("%w: la observación debe tener al menos %d caracteres", httpx.ErrValidation, MinNoteLength)
	// ErrEmptyMessage rejects an alert without text.
	ErrEmptyMessage = fmt.Errorf("%w: escribí un mensaje para el administrador", httpx.ErrValidation)
	// ErrInvalidType rejects an unknown alert type.
	ErrInvalidType = fmt.Errorf("%w: tipo de alerta desconocido", httpx.ErrValidation)
	// ErrInvalidSeller rejects an alert without a target seller.
	ErrInvalidSeller = fmt.Errorf("%w: vendedor inválido", httpx.ErrValidation)
	// ErrInvalidFilter rejects an unknown state filter.
	ErrInvalidFilter = fmt.Errorf("%w: filtro de estado desconocido", httpx.ErrValidation)
)

// Backend is the part of the backend client the alert inboxes need.
type Backend interface {
	AdminAlerts(ctx context.Context, token string) ([]commission.Alert, error)
	ResolveAlert(ctx context.Context, token string, id int64, note string) error
	AdminPendingAlertCount(ctx context.Context, token string) (int, error)
	SupervisorUnreadAlertCount(ctx context.Context, token string) (int, error)
	SupervisorAlerts(ctx context.Context, token string, f backend.SupervisorAlertFilter) ([]commission.Alert, error)
	MarkAlertRead(ctx context.Context, token string, id int64, note string) error
	UnblockSeller(ctx context.Context, token string, id int64, note string) error
	RaiseAlert(ctx context.Context, token string, alert backend.NewAlert) error
}

// Metrics counts responses dropped by the poller.
type Metrics interface {
	ObserveStalePoll(role string)
}

// Filter is the state filter of the alert lists.
type Filter string

const (
	FilterPending  Filter = "pendiente"
	FilterResolved Filter = "resuelta"
	FilterAll      Filter = "todas"
)

// ParseFilter maps a query value to a Filter. Empty means pending.
func ParseFilter(raw string) (Filter, error) {
	switch Filter(strings.TrimSpace(raw)) {
	case "", FilterPending:
		return FilterPending, nil
	case FilterResolved:
		return FilterResolved, nil
	case FilterAll:
		return FilterAll, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFilter, raw)
}

// Match reports whether a passes the filter.
func (f Filter) Match(a commission.Alert) bool {
	switch f {
	case FilterPending:
		return a.Status == commission.AlertPending
	case FilterResolved:
		return a.Status == commission.AlertResolved
	}
	return true
}

// Count is the pending-alert badge of a session.
type Count struct {
	Count     int       `json:"cantidad"`
	Seq       uint64    `json:"seq"`
	FetchedAt time.Time `json:"actualizado"`
	Source    string    `json:"origen"`
}

// Inbox is an alert list with its state breakdown.
type Inbox struct {
	Alerts   []commission.Alert `json:"alertas"`
	Filter   Filter             `json:"filtro"`
	Total    int                `json:"total"`
	Pending  int                `json:"pendientes"`
	Resolved int                `json:"resueltas"`
}

// Config tunes polling.
type Config struct {
	AdminInterval      time.Duration
	SupervisorInterval time.Duration
	SnapshotTTL        time.Duration
	// SessionAlive reports whether a session still exists. A session poller
	// stops at its first tick after the session expires. Nil disables the check.
	SessionAlive func(ctx context.Context, sessionID string) (bool, error)
}

// Service implements the alert operations and the session poller hooks.
type Service struct {
	backend Backend
	pollers *poll.Registry[int]
	redis   *redis.Client
	metrics Metrics
	logger  *slog.Logger
	cfg     Config
}

// NewService constructs a Service. Pollers are children of parent, which is
// cancelled on shutdown. redisClient may be nil, disabling shared snapshots.
func NewService(parent context.Context, b Backend, redisClient *redis.Client, metrics Metrics, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AdminInterval <= 0 {
		cfg.AdminInterval = 15 * time.Second
	}
	if cfg.SupervisorInterval <= 0 {
		cfg.SupervisorInterval = 20 * time.Second
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = 2 * cfg.SupervisorInterval
	}
	return &Service{
		backend: b,
		pollers: poll.NewRegistry[int](parent),
		redis:   redisClient,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

func snapshotKey(sessionID string) string {
	return "alerts:count:" + sessionID
}

// fetcher returns the count source of a role, nil for roles without a badge.
func (s *Service) fetcher(p shared.Principal) poll.Fetcher[int] {
	token := p.Token
	switch p.Role {
	case commission.RoleAdmin:
		return func(ctx context.Context) (int, error) { return s.backend.AdminPendingAlertCount(ctx, token) }
	case commission.RoleSupervisor:
		return func(ctx context.Context) (int, error) { return s.backend.SupervisorUnreadAlertCount(ctx, token) }
	}
	return nil
}

func (s *Service) interval(role commission.Role) time.Duration {
	if role == commission.RoleSupervisor {
		return s.cfg.SupervisorInterval
	}
	return s.cfg.AdminInterval
}

// SessionStarted starts the badge poller of an admin or supervisor session.
func (s *Service) SessionStarted(_ context.Context, sessionID string, p shared.Principal) {
	fetch := s.fetcher(p)
	if fetch == nil {
		return
	}
	role := string(p.Role)
	opts := []poll.Option[int]{
		poll.WithLogger[int](s.logger.With(slog.String("role", role))),
		poll.WithOnApply(func(ctx context.Context, snap poll.Snapshot[int]) {
			s.storeSnapshot(ctx, sessionID, snap)
		}),
		poll.WithOnStale[int](func() {
			if s.metrics != nil {
				s.metrics.ObserveStalePoll(role)
			}
		}),
		poll.WithStopOn[int](backend.IsUnauthorized),
	}
	if alive := s.cfg.SessionAlive; alive != nil {
		opts = append(opts, poll.WithAlive[int](func(ctx context.Context) (bool, error) {
			return alive(ctx, sessionID)
		}))
	}
	s.pollers.Start(sessionID, poll.New(s.interval(p.Role), fetch, opts...))
	s.logger.Debug("alert poller started", slog.String("role", role))
}

// SessionEnded stops the poller and drops the shared snapshot.
func (s *Service) SessionEnded(ctx context.Context, sessionID string) {
	s.pollers.Stop(sessionID)
	if s.redis != nil {
		if err := s.redis.Del(ctx, snapshotKey(sessionID)).Err(); err != nil {
			s.logger.Warn("drop alert snapshot", slog.Any("error", err))
		}
	}
}

// Shutdown stops every poller.
func (s *Service) Shutdown() {
	s.pollers.StopAll()
}

// ActivePollers reports how many sessions are being polled.
func (s *Service) ActivePollers() int {
	return s.pollers.Len()
}

func (s *Service) storeSnapshot(ctx context.Context, sessionID string, snap poll.Snapshot[int]) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(Count{Count: snap.Value, Seq: snap.Seq, FetchedAt: snap.FetchedAt.UTC(), Source: "snapshot"})
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, snapshotKey(sessionID), data, s.cfg.SnapshotTTL).Err(); err != nil {
		s.logger.Warn("store alert snapshot", slog.Any("error", err))
	}
}

// PendingCount returns the badge value: the local poller when it has applied a
// value, then the shared snapshot, then a direct backend call.
func (s *Service) PendingCount(ctx context.Context, sessionID string, p shared.Principal) (Count, error) {
	if snap, ok := s.pollers.Latest(sessionID); ok {
		return Count{Count: snap.Value, Seq: snap.Seq, FetchedAt: snap.FetchedAt.UTC(), Source: "poller"}, nil
	}
	if s.redis != nil {
		data, err := s.redis.Get(ctx, snapshotKey(sessionID)).Bytes()
		switch {
		case err == nil:
			var c Count
			if jsonErr := json.Unmarshal(data, &c); jsonErr == nil {
				return c, nil
			}
		case !errors.Is(err, redis.Nil):
			s.logger.Warn("read alert snapshot", slog.Any("error", err))
		}
	}
	fetch := s.fetcher(p)
	if fetch == nil {
		return Count{Source: "none"}, nil
	}
	n, err := fetch(ctx)
	if err != nil {
		return Count{}, err
	}
	return Count{Count: n, FetchedAt: time.Now().UTC(), Source: "backend"}, nil
}

// AdminInbox lists every alert and applies the state filter.
func (s *Service) AdminInbox(ctx context.Context, token string, f Filter) (Inbox, error) {
	all, err := s.backend.AdminAlerts(ctx, token)
	if err != nil {
		return Inbox{}, err
	}
	return newInbox(all, f), nil
}

// Resolve closes an alert from the admin inbox. The note is checked before any request.
func (s *Service) Resolve(ctx context.Context, sessionID, token string, id int64, note string) error {
	note, err := ValidateNote(note)
	if err != nil {
		return err
	}
	if err := s.backend.ResolveAlert(ctx, token, id, note); err != nil {
		return err
	}
	s.pollers.Refresh(sessionID)
	return nil
}

// SupervisorInbox lists the supervisor's alerts. Province and email are
// filtered by the backend, the state by the panel.
func (s *Service) SupervisorInbox(ctx context.Context, token string, f Filter, province, email string) (Inbox, error) {
	all, err := s.backend.SupervisorAlerts(ctx, token, backend.SupervisorAlertFilter{
		Province: strings.TrimSpace(province),
		Email:    strings.TrimSpace(email),
	})
	if err != nil {
		return Inbox{}, err
	}
	return newInbox(all, f), nil
}

// MarkRead resolves a supervisor alert. The note is checked before any request.
func (s *Service) MarkRead(ctx context.Context, sessionID, token string, id int64, note string) error {
	note, err := ValidateNote(note)
	if err != nil {
		return err
	}
	if err := s.backend.MarkAlertRead(ctx, token, id, note); err != nil {
		return err
	}
	s.pollers.Refresh(sessionID)
	return nil
}

// Unblock resolves a blocked-seller alert and unblocks the seller.
func (s *Service) Unblock(ctx context.Context, sessionID, token string, id int64, note string) error {
	note, err := ValidateNote(note)
	if err != nil {
		return err
	}
	if err := s.backend.UnblockSeller(ctx, token, id, note); err != nil {
		return err
	}
	s.pollers.Refresh(sessionID)
	return nil
}

// Raise sends a supervisor alert about a seller to the admins.
func (s *Service) Raise(ctx context.Context, token string, alert backend.NewAlert) error {
	if alert.SellerID <= 0 {
		return ErrInvalidSeller
	}
	if !alert.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, alert.Type)
	}
	alert.Message = strings.TrimSpace(alert.Message)
	if alert.Message == "" {
		return ErrEmptyMessage
	}
	return s.backend.RaiseAlert(ctx, token, alert)
}

// ValidateNote trims note and enforces MinNoteLength.
func ValidateNote(note string) (string, error) {
	note = strings.TrimSpace(note)
	if len([]rune(note)) < MinNoteLength {
		return "", ErrNoteTooShort
	}
	return note, nil
}

func newInbox(all []commission.Alert, f Filter) Inbox {
	in := Inbox{Alerts: make([]commission.Alert, 0, len(all)), Filter: f, Total: len(all)}
	for _, a := range all {
		if a.Resolved() {
			in.Resolved++
		} else {
			in.Pending++
		}
		if f.Match(a) {
			in.Alerts = append(in.Alerts, a)
		}
	}
	return in
}
