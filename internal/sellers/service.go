// Package sellers serves the commission summaries, seller details, supervisor
// sales and team management, and the vendedor's own sales.
package sellers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/puntomas/panel/internal/aggregate"
	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/platform/httpx"
)

var (
	// ErrProvinceRequired rejects a new seller without province.
	ErrProvinceRequired = fmt.Errorf("%w: elegí la provincia del vendedor", httpx.ErrValidation)
	// ErrNameEmailRequired rejects a new seller without name or email.
	ErrNameEmailRequired = fmt.Errorf("%w: completá nombre y email", httpx.ErrValidation)
	// ErrPhoneRequired rejects a new seller without phone.
	ErrPhoneRequired = fmt.Errorf("%w: completá el teléfono del vendedor", httpx.ErrValidation)
	// ErrInvalidEmail rejects a malformed email address.
	ErrInvalidEmail = fmt.Errorf("%w: email inválido", httpx.ErrValidation)
)

// Backend is the part of the backend client the seller screens need.
type Backend interface {
	SellerSummaries(ctx context.Context, token string, scope backend.Scope, f backend.SellerFilter) ([]commission.SellerSummary, error)
	SellerDetail(ctx context.Context, token string, sellerID int64) (backend.SellerDetail, error)
	SupervisorSales(ctx context.Context, token string) ([]commission.Sale, error)
	PaySupervisorSale(ctx context.Context, token string, saleID int64) error
	SupervisorSellerDetail(ctx context.Context, token string, sellerID int64) (backend.SupervisedSellerDetail, error)
	ManagedSellers(ctx context.Context, token, province, query string) ([]backend.ManagedSeller, error)
	CreateSeller(ctx context.Context, token string, seller backend.NewSeller) error
	SetSellerActive(ctx context.Context, token string, sellerID int64, active bool) error
	SellerOwnSales(ctx context.Context, token string) ([]commission.Sale, error)
	RegisterBusiness(ctx context.Context, token, email string) error
}

// SummaryQuery selects and shapes the seller summary list.
type SummaryQuery struct {
	Filter   backend.SellerFilter
	OnlyDebt bool
	Mode     commission.PayMode
	Top      int
}

// SummaryPage is the seller summary list with fleet totals and the largest debts.
type SummaryPage struct {
	Sellers    []commission.SellerSummary `json:"vendedores"`
	Totals     aggregate.Fleet            `json:"totales"`
	TopDebtors []commission.SellerSummary `json:"mayoresDeudas"`
	Mode       commission.PayMode         `json:"modo"`
	Display    FleetDisplay               `json:"textos"`
}

// FleetDisplay holds the formatted fleet amounts.
type FleetDisplay struct {
	SellerPending     string `json:"pendienteVendedor"`
	SupervisorPending string `json:"pendienteSupervisor"`
	SellerPaid        string `json:"pagadoVendedor"`
	SupervisorPaid    string `json:"pagadoSupervisor"`
}

// SalesView is a sale list in newest-first order with per-mode totals.
type SalesView struct {
	Seller  *commission.PersonRef                       `json:"vendedor,omitempty"`
	Summary *commission.SellerSummary                   `json:"resumen,omitempty"`
	Sales   []commission.Sale                           `json:"ventas"`
	Range   commission.DateRange                        `json:"rango"`
	Totals  map[commission.PayMode]aggregate.ModeTotals `json:"totales"`
}

// SupervisedView is the supervisor's read-only page of one seller.
type SupervisedView struct {
	Seller backend.SupervisedSeller `json:"vendedor"`
	SalesView
}

// NewSellerForm is the team enrolment form.
type NewSellerForm struct {
	Name         string `json:"nombre"`
	Email        string `json:"email"`
	Phone        string `json:"telefono"`
	Document     string `json:"documento"`
	Province     string `json:"provincia"`
	PaymentAlias string `json:"aliasPago"`
}

// Service implements the seller operations.
type Service struct {
	backend  Backend
	logger   *slog.Logger
	loc      *time.Location
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(b Backend, logger *slog.Logger, loc *time.Location) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{backend: b, logger: logger, loc: loc, validate: validator.New()}
}

// Location is the zone day filters are resolved in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Summaries lists the per-seller totals of scope. Fleet totals cover every
// listed seller; OnlyDebt then keeps sellers with a pending amount in the
// active mode.
func (s *Service) Summaries(ctx context.Context, token string, scope backend.Scope, q SummaryQuery) (SummaryPage, error) {
	if _, err := commission.ParseDateRange(q.Filter.From, q.Filter.To, s.loc); err != nil {
		return SummaryPage{}, err
	}
	if !q.Mode.Valid() {
		q.Mode = commission.PayModeSeller
	}
	if scope == backend.ScopeSupervisor {
		q.Mode = commission.PayModeSupervisor
	}
	q.Filter = trimFilter(q.Filter)
	all, err := s.backend.SellerSummaries(ctx, token, scope, q.Filter)
	if err != nil {
		return SummaryPage{}, err
	}
	listed := all
	if q.OnlyDebt {
		listed = make([]commission.SellerSummary, 0, len(all))
		for _, sum := range all {
			if pending(sum, q.Mode).IsPositive() {
				listed = append(listed, sum)
			}
		}
	}
	top := q.Top
	if top <= 0 {
		top = 5
	}
	fleet := aggregate.FleetTotals(all)
	debtors := aggregate.RankByPending(all, q.Mode, 0)
	owed := make([]commission.SellerSummary, 0, top)
	for _, d := range debtors {
		if len(owed) == top || !pending(d, q.Mode).IsPositive() {
			break
		}
		owed = append(owed, d)
	}
	return SummaryPage{
		Sellers:    listed,
		Totals:     fleet,
		TopDebtors: owed,
		Mode:       q.Mode,
		Display: FleetDisplay{
			SellerPending:     commission.FormatARS(fleet.TotalSellerPending),
			SupervisorPending: commission.FormatARS(fleet.TotalSupervisorPending),
			SellerPaid:        commission.FormatARS(fleet.TotalSellerPaid),
			SupervisorPaid:    commission.FormatARS(fleet.TotalSupervisorPaid),
		},
	}, nil
}

// Detail loads one seller with the sales in range, newest first.
func (s *Service) Detail(ctx context.Context, token string, sellerID int64, from, to string) (SalesView, error) {
	r, err := commission.ParseDateRange(from, to, s.loc)
	if err != nil {
		return SalesView{}, err
	}
	detail, err := s.backend.SellerDetail(ctx, token, sellerID)
	if err != nil {
		return SalesView{}, err
	}
	view := newSalesView(detail.Sales, r)
	seller := detail.Seller
	view.Seller = &seller
	summary := commission.SellerSummary{SellerID: seller.ID}
	if sums := aggregate.SellerSummaries(view.Sales); len(sums) > 0 {
		summary = sums[0]
	}
	summary.Name = seller.Name
	summary.Email = seller.Email
	summary.Locality = seller.Locality
	summary.Province = seller.Province
	view.Summary = &summary
	return view, nil
}

// SupervisorSales lists the sales that earned the supervisor a commission.
func (s *Service) SupervisorSales(ctx context.Context, token, from, to string) (SalesView, error) {
	r, err := commission.ParseDateRange(from, to, s.loc)
	if err != nil {
		return SalesView{}, err
	}
	sales, err := s.backend.SupervisorSales(ctx, token)
	if err != nil {
		return SalesView{}, err
	}
	return newSalesView(sales, r), nil
}

// PaySupervisorSale settles the supervisor commission of one sale.
func (s *Service) PaySupervisorSale(ctx context.Context, token string, saleID int64) error {
	if err := s.backend.PaySupervisorSale(ctx, token, saleID); err != nil {
		return err
	}
	s.logger.Info("supervisor sale paid", slog.Int64("sale_id", saleID))
	return nil
}

// Supervised loads a seller from the supervisor side.
func (s *Service) Supervised(ctx context.Context, token string, sellerID int64, from, to string) (SupervisedView, error) {
	r, err := commission.ParseDateRange(from, to, s.loc)
	if err != nil {
		return SupervisedView{}, err
	}
	detail, err := s.backend.SupervisorSellerDetail(ctx, token, sellerID)
	if err != nil {
		return SupervisedView{}, err
	}
	return SupervisedView{Seller: detail.Seller, SalesView: newSalesView(detail.Sales, r)}, nil
}

// Team lists the supervisor's sellers.
func (s *Service) Team(ctx context.Context, token, province, query string) ([]backend.ManagedSeller, error) {
	return s.backend.ManagedSellers(ctx, token, strings.TrimSpace(province), strings.TrimSpace(query))
}

// Enrol validates the form and creates the seller.
func (s *Service) Enrol(ctx context.Context, token string, form NewSellerForm) error {
	seller := backend.NewSeller{
		Name:         strings.TrimSpace(form.Name),
		Email:        strings.TrimSpace(form.Email),
		Phone:        strings.TrimSpace(form.Phone),
		Document:     strings.TrimSpace(form.Document),
		Province:     strings.TrimSpace(form.Province),
		PaymentAlias: strings.TrimSpace(form.PaymentAlias),
	}
	switch {
	case seller.Province == "":
		return ErrProvinceRequired
	case seller.Name == "" || seller.Email == "":
		return ErrNameEmailRequired
	case seller.Phone == "":
		return ErrPhoneRequired
	}
	if err := s.checkEmail(seller.Email); err != nil {
		return err
	}
	if err := s.backend.CreateSeller(ctx, token, seller); err != nil {
		return err
	}
	s.logger.Info("seller enrolled", slog.String("province", seller.Province))
	return nil
}

// SetActive enables or disables a seller account.
func (s *Service) SetActive(ctx context.Context, token string, sellerID int64, active bool) error {
	return s.backend.SetSellerActive(ctx, token, sellerID, active)
}

// OwnSales lists the vendedor's sales, newest first.
func (s *Service) OwnSales(ctx context.Context, token string) (SalesView, error) {
	sales, err := s.backend.SellerOwnSales(ctx, token)
	if err != nil {
		return SalesView{}, err
	}
	return newSalesView(sales, commission.DateRange{}), nil
}

// RegisterBusiness records a sale for the business owned by email.
func (s *Service) RegisterBusiness(ctx context.Context, token, email string) error {
	email = strings.TrimSpace(email)
	if err := s.checkEmail(email); err != nil {
		return err
	}
	return s.backend.RegisterBusiness(ctx, token, email)
}

func (s *Service) checkEmail(email string) error {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}

func newSalesView(sales []commission.Sale, r commission.DateRange) SalesView {
	visible := commission.NewestFirst(commission.FilterSales(sales, r))
	return SalesView{
		Sales: visible,
		Range: r,
		Totals: map[commission.PayMode]aggregate.ModeTotals{
			commission.PayModeSeller:     aggregate.SaleTotals(visible, commission.PayModeSeller),
			commission.PayModeSupervisor: aggregate.SaleTotals(visible, commission.PayModeSupervisor),
		},
	}
}

func pending(s commission.SellerSummary, mode commission.PayMode) decimal.Decimal {
	if mode == commission.PayModeSupervisor {
		return s.TotalSupervisorPending
	}
	return s.TotalSellerPending
}

func trimFilter(f backend.SellerFilter) backend.SellerFilter {
	return backend.SellerFilter{
		Query:    strings.TrimSpace(f.Query),
		Locality: strings.TrimSpace(f.Locality),
		Province: strings.TrimSpace(f.Province),
		From:     strings.TrimSpace(f.From),
		To:       strings.TrimSpace(f.To),
	}
}
