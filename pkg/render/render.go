// Package render draws the till as text. Every function is pure: the same
// snapshot and width always produce the same output.
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/teslashibe/fruit-shop/pkg/catalog"
	"github.com/teslashibe/fruit-shop/pkg/checkout"
	"github.com/teslashibe/fruit-shop/pkg/shop"
)

// Title is the shop name shown in the header.
const Title = "The  Fruit  Shop"

// DefaultPrompt is shown on the idle screen.
const DefaultPrompt = `Press "Start Checkout" to begin scanning`

const (
	defaultWidth = 80
	minWidth     = 40

	// leftShare is the fraction of the width used by the transaction list.
	leftShare = 0.6
)

var (
	shopGreen = lipgloss.Color("#00A651")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(shopGreen)
	ruleStyle    = lipgloss.NewStyle().Foreground(shopGreen)
	itemStyle    = lipgloss.NewStyle().Foreground(shopGreen)
	leaderStyle  = lipgloss.NewStyle().Foreground(shopGreen).Faint(true)
	totalStyle   = lipgloss.NewStyle().Bold(true).Foreground(shopGreen)
	promptStyle  = lipgloss.NewStyle().Foreground(shopGreen).Italic(true)
	dividerStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(shopGreen)
)

// Options control the layout.
type Options struct {
	// Width of the whole view in cells. Zero means 80.
	Width int

	// Prompt replaces DefaultPrompt on the idle screen.
	Prompt string
}

func (o Options) width() int {
	switch {
	case o.Width == 0:
		return defaultWidth
	case o.Width < minWidth:
		return minWidth
	}
	return o.Width
}

// View renders the whole screen for snap.
func View(snap shop.Snapshot, opts Options) string {
	width := opts.width()

	if snap.Phase == checkout.PhaseIdle {
		prompt := opts.Prompt
		if prompt == "" {
			prompt = DefaultPrompt
		}
		return lipgloss.JoinVertical(lipgloss.Left, Header(width), "", Idle(prompt, width))
	}

	leftWidth := int(float64(width) * leftShare)
	rightWidth := width - leftWidth - 3

	left := lipgloss.NewStyle().Width(leftWidth).Render(TransactionList(snap.Items, leftWidth))
	right := ""
	if !snap.Scanning() && snap.Phase != checkout.PhaseStarting {
		right = BillSummary(snap.Items, snap.Total, rightWidth)
	}
	right = lipgloss.NewStyle().PaddingLeft(2).Width(rightWidth + 2).Render(right)

	body := lipgloss.JoinHorizontal(lipgloss.Top, dividerStyle.Render(left), right)
	return lipgloss.JoinVertical(lipgloss.Left, Header(width), "", body)
}

// Header renders the shop name over a rule.
func Header(width int) string {
	return titleStyle.Render(Title) + "\n" + ruleStyle.Render(strings.Repeat("━", width))
}

// Idle renders the start screen prompt centred in width.
func Idle(prompt string, width int) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, promptStyle.Render(prompt))
}

// TransactionList renders one dot-leader line per scanned item.
func TransactionList(items []checkout.LineItem, width int) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, Leader(it.Name, catalog.FormatPrice(it.Price), width))
	}
	return strings.Join(lines, "\n")
}

// BillSummary renders the itemized bill followed by the total.
func BillSummary(items []checkout.LineItem, total decimal.Decimal, width int) string {
	lines := []string{titleStyle.Render("Bill Summary"), ""}
	for _, it := range items {
		lines = append(lines, Columns(it.Name, catalog.FormatPrice(it.Price), width))
	}
	if len(items) > 0 {
		lines = append(lines,
			ruleStyle.Render(strings.Repeat("─", width)),
			totalStyle.Render(Columns("Total:", catalog.FormatPrice(total), width)))
	}
	return strings.Join(lines, "\n")
}

// Leader joins name and price with dots so the line is width cells wide.
// At least three dots are always drawn.
func Leader(name, price string, width int) string {
	dots := width - lipgloss.Width(name) - lipgloss.Width(price) - 2
	if dots < 3 {
		dots = 3
	}
	return itemStyle.Render(name) + " " + leaderStyle.Render(strings.Repeat(".", dots)) + " " + itemStyle.Render(price)
}

// Columns left-aligns name and right-aligns price within width.
func Columns(name, price string, width int) string {
	gap := width - lipgloss.Width(name) - lipgloss.Width(price)
	if gap < 1 {
		gap = 1
	}
	return name + strings.Repeat(" ", gap) + price
}

// Catalog renders the price table with each entry's own dot leader.
func Catalog(cat *catalog.Catalog) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(Title))
	b.WriteString("\n\n")
	for _, e := range cat.Entries() {
		b.WriteString(itemStyle.Render(e.DisplayName))
		b.WriteString(" ")
		b.WriteString(leaderStyle.Render(e.DotLine))
		b.WriteString(" ")
		b.WriteString(itemStyle.Render(catalog.FormatPrice(e.Price)))
		b.WriteString(lipgloss.NewStyle().Faint(true).Render("  (" + e.Label + ")"))
		b.WriteString("\n")
	}
	return b.String()
}
