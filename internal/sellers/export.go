package sellers

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/puntomas/panel/internal/aggregate"
	"github.com/puntomas/panel/internal/commission"
)

// WriteSummariesCSV serialises seller summaries followed by a totals row.
func WriteSummariesCSV(w io.Writer, summaries []commission.SellerSummary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{
		"Vendedor", "Email", "Localidad", "Provincia", "Ventas",
		"Comision vendedor", "Pagado vendedor", "Pendiente vendedor",
		"Comision supervisor", "Pagado supervisor", "Pendiente supervisor",
	}); err != nil {
		return err
	}
	for _, s := range summaries {
		if err := writer.Write([]string{
			s.Name,
			s.Email,
			s.Locality,
			s.Province,
			strconv.Itoa(s.SaleCount),
			formatAmount(s.TotalSellerCommission),
			formatAmount(s.TotalSellerPaid),
			formatAmount(s.TotalSellerPending),
			formatAmount(s.TotalSupervisorCommission),
			formatAmount(s.TotalSupervisorPaid),
			formatAmount(s.TotalSupervisorPending),
		}); err != nil {
			return err
		}
	}
	f := aggregate.FleetTotals(summaries)
	if err := writer.Write([]string{
		"TOTAL", "", "", "",
		strconv.Itoa(f.SaleCount),
		formatAmount(f.TotalSellerCommission),
		formatAmount(f.TotalSellerPaid),
		formatAmount(f.TotalSellerPending),
		formatAmount(f.TotalSupervisorCommission),
		formatAmount(f.TotalSupervisorPaid),
		formatAmount(f.TotalSupervisorPending),
	}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
