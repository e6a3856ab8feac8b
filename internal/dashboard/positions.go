package dashboard

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"slamtrader/internal/domain"
)

const positionRow = "%-10s %9s %9s %11s %9s"

type styles struct {
	header lipgloss.Style
	symbol lipgloss.Style
	long   lipgloss.Style
	short  lipgloss.Style
	dim    lipgloss.Style
}

// newStyles builds the table styles on r so colors are dropped when w is
// not a terminal.
func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		header: r.NewStyle().Foreground(lipgloss.Color("245")),
		symbol: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		long:   r.NewStyle().Foreground(lipgloss.Color("10")),
		short:  r.NewStyle().Foreground(lipgloss.Color("9")),
		dim:    r.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// WritePositions writes the positions as a table, one row per symbol, with
// the cost basis of each holding.
func WritePositions(w io.Writer, positions []domain.Position) error {
	st := newStyles(lipgloss.NewRenderer(w))

	var b strings.Builder
	if len(positions) == 0 {
		b.WriteString(st.dim.Render("No positions"))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString(st.header.Render(fmt.Sprintf(positionRow, "Symbol", "Long", "Short", "Price", "Cost")))
	b.WriteString("\n")

	for _, p := range positions {
		qtyStyle := st.long
		if p.Short().IsPositive() {
			qtyStyle = st.short
		}
		cost := p.Long().Add(p.Short()).Mul(p.TradePrice())

		b.WriteString(st.symbol.Render(fmt.Sprintf("%-10s", p.Symbol())))
		b.WriteString(" ")
		b.WriteString(qtyStyle.Render(fmt.Sprintf("%9s %9s", FormatShares(p.Long()), FormatShares(p.Short()))))
		b.WriteString(" ")
		b.WriteString(fmt.Sprintf("%11s %9s", FormatPrice(p.TradePrice()), FormatNotional(cost)))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
