package chart

import (
	"fmt"
	"html/template"
	"strings"
)

// Heat renders one horizontal bar per row, its length and opacity following
// Percent. Rows are drawn in the given order.
func Heat(width int, rows []HeatRow, opts HeatOpts) (string, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	rowHeight := opts.RowHeight
	if rowHeight <= 0 {
		rowHeight = DefaultRowHeight
	}
	labelWidth := opts.LabelWidth
	if labelWidth <= 0 {
		labelWidth = DefaultLabelW
	}
	barSpace := float64(width) - labelWidth - 60
	if barSpace <= 0 {
		return "", fmt.Errorf("chart: viewport too small")
	}
	color := fallback(opts.Color, "#e84118")
	textColor := fallback(opts.TextColor, "#e2e8f0")
	height := int(rowHeight*float64(len(rows)) + rowHeight)

	titleID := makeID(opts.Title, "heat-title")
	descID := makeID(opts.Title, "heat-desc")

	var b strings.Builder
	fmt.Fprintf(&b, "<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID)
	fmt.Fprintf(&b, "<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "Heat map")))
	fmt.Fprintf(&b, "<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Relative distribution")))
	if len(rows) == 0 {
		fmt.Fprintf(&b, "<text x=\"8\" y=\"%.2f\" fill=\"%s\" font-size=\"11\">Sin datos</text>", rowHeight*0.75, textColor)
	}
	for i, row := range rows {
		pct := clampPercent(row.Percent)
		y := float64(i)*rowHeight + rowHeight/2
		label := template.HTMLEscapeString(row.Label)
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"11\" text-anchor=\"end\">%s</text>", labelWidth-8, y+rowHeight*0.5, textColor, label)
		fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\" fill-opacity=\"%.2f\" aria-label=\"%s\"></rect>",
			labelWidth, y+2, barSpace*pct/100, rowHeight-6, color, 0.25+0.75*pct/100, label)
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\">%d</text>", labelWidth+barSpace*pct/100+6, y+rowHeight*0.5, textColor, row.Value)
	}
	b.WriteString("</svg>")
	return b.String(), nil
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
