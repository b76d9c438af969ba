package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/recipegraph/pkg/community"
	"github.com/matzehuels/recipegraph/pkg/graph"
)

// stdout receives all user-facing output. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	fmt.Fprintln(stdout, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// printStats prints graph statistics on a single line.
func printStats(nodeCount, edgeCount int, cached bool) {
	var parts []string
	if nodeCount > 0 {
		parts = append(parts, fmt.Sprintf("%d nodes", nodeCount))
	}
	if edgeCount > 0 {
		parts = append(parts, fmt.Sprintf("%d edges", edgeCount))
	}

	status := iconFresh
	statusStyle := styleComputed
	if cached {
		status = iconCached
		statusStyle = styleCached
	}
	parts = append(parts, statusStyle.Render(status))

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	fmt.Fprintln(stdout, line)
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// printSkipped summarizes rejected records. Details go to the debug log.
func printSkipped(report graph.Report) {
	if n := len(report.Skipped); n > 0 {
		printWarning("Skipped %d malformed record(s)", n)
	}
	if n := len(report.Isolated); n > 0 {
		printDetail("%d product(s) without ingredients", n)
	}
}

// =============================================================================
// Community Tables
// =============================================================================

// communitySummary describes one label of a labeled graph.
type communitySummary struct {
	Label       int
	Products    []string
	Ingredients []string
}

// Size returns the number of distinct members.
func (s communitySummary) Size() int {
	return len(s.Members())
}

// Members returns every member name, products first.
func (s communitySummary) Members() []string {
	seen := make(map[string]bool, len(s.Products)+len(s.Ingredients))
	var out []string
	for _, names := range [][]string{s.Products, s.Ingredients} {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// summarize groups the labeled nodes of g by community, ordered by
// descending size and then by label. Unassigned nodes are left out.
func summarize(g *graph.Graph) []communitySummary {
	byLabel := make(map[int]*communitySummary)
	for _, n := range g.Nodes() {
		if n.Community == graph.Unassigned {
			continue
		}
		s, ok := byLabel[n.Community]
		if !ok {
			s = &communitySummary{Label: n.Community}
			byLabel[n.Community] = s
		}
		if n.IsProduct() {
			s.Products = append(s.Products, n.Name)
		}
		if n.IsIngredient() {
			s.Ingredients = append(s.Ingredients, n.Name)
		}
	}

	out := make([]communitySummary, 0, len(byLabel))
	for _, s := range byLabel {
		sort.Strings(s.Products)
		sort.Strings(s.Ingredients)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if si, sj := out[i].Size(), out[j].Size(); si != sj {
			return si > sj
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// truncateList joins at most n names and notes how many were left out.
func truncateList(names []string, n int) string {
	if len(names) <= n {
		return strings.Join(names, ", ")
	}
	return strings.Join(names[:n], ", ") + fmt.Sprintf(", … (+%d)", len(names)-n)
}

// communityTable renders the community summaries as a bordered table.
func communityTable(sums []communitySummary) string {
	rows := make([][]string, 0, len(sums))
	for _, s := range sums {
		rows = append(rows, []string{
			strconv.Itoa(s.Label),
			strconv.Itoa(s.Size()),
			strconv.Itoa(len(s.Products)),
			truncateList(s.Members(), 5),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("Label", "Size", "Products", "Members").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if col < 3 {
				return StyleNumber
			}
			return StyleValue
		}).
		Render()
}

// layerTable renders one row per shared-ingredient layer.
func layerTable(l *community.Layering) string {
	rows := make([][]string, 0, len(l.Layers))
	for _, layer := range l.Layers {
		names := make([]string, 0, layer.Graph.NodeCount())
		for _, n := range layer.Graph.Nodes() {
			names = append(names, n.Name)
		}
		sort.Strings(names)
		rows = append(rows, []string{
			strconv.Itoa(layer.Index),
			strconv.Itoa(layer.Count),
			strconv.Itoa(layer.Graph.EdgeCount()),
			truncateList(names, 6),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("Layer", "Shared", "Pairs", "Products").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if col < 3 {
				return StyleNumber
			}
			return StyleValue
		}).
		Render()
}
