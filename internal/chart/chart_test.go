package chart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBarsProducesSVG(t *testing.T) {
	out, err := Bars(420, 220, []float64{120000, 90000, 150000}, []string{"Mes anterior", "Mes actual", "Proyección"}, BarOpts{
		Title:       "Ingresos",
		Description: "Ingresos por mes",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "<svg"))
	require.Equal(t, 3, strings.Count(out, "<rect"))
	require.Contains(t, out, "Proyección")
	require.Contains(t, out, "150.0k")
}

func TestBarsRejectsMismatchedLabels(t *testing.T) {
	_, err := Bars(0, 0, []float64{1, 2}, []string{"a"}, BarOpts{})
	require.Error(t, err)
	_, err = Bars(0, 0, nil, nil, BarOpts{})
	require.Error(t, err)
}

func TestHeatEscapesLabels(t *testing.T) {
	out, err := Heat(0, []HeatRow{
		{Label: "Córdoba", Value: 10, Percent: 100},
		{Label: "<Salta>", Value: 4, Percent: 40},
	}, HeatOpts{Title: "Negocios por provincia"})
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(out, "<rect"))
	require.Contains(t, out, "&lt;Salta&gt;")
	require.Contains(t, out, `fill-opacity="1.00"`)
	require.Contains(t, out, `fill-opacity="0.55"`)
}

func TestHeatEmpty(t *testing.T) {
	out, err := Heat(0, nil, HeatOpts{})
	require.NoError(t, err)
	require.Contains(t, out, "Sin datos")
}
