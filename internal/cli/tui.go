package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// browseCommand opens the interactive community browser.
func (c *CLI) browseCommand() *cobra.Command {
	var (
		in inputOpts
		df detectFlags
	)
	opts := c.pipelineOptions()

	cmd := &cobra.Command{
		Use:   "browse [records...]",
		Short: "Browse detected communities interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			c.mergeConfigDefaults(cmd, &opts)
			cleanup, err := c.applyInputs(cmd.Context(), &opts, args, in)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := c.detect(cmd.Context(), opts, df)
			if err != nil {
				return err
			}
			sums := summarize(result.Labeled)
			if len(sums) == 0 {
				printInfo("No communities to browse")
				return nil
			}

			title := fmt.Sprintf("%s communities (Q=%.4f)", result.Method, result.Q)
			_, err = tea.NewProgram(NewCommunityListModel(title, sums), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	c.registerDetectFlags(cmd, &opts, &df)
	in.register(cmd)
	return cmd
}

// =============================================================================
// CommunityListModel - Interactive community browser
// =============================================================================

// CommunityListModel is the bubbletea model for browsing communities.
// Enter toggles the member list of the selected community.
type CommunityListModel struct {
	Title       string
	Communities []communitySummary
	Cursor      int
	Offset      int
	Height      int
	Expanded    bool
}

// NewCommunityListModel creates a new community list model.
func NewCommunityListModel(title string, sums []communitySummary) CommunityListModel {
	return CommunityListModel{
		Title:       title,
		Communities: sums,
		Height:      15,
	}
}

func (m CommunityListModel) Init() tea.Cmd {
	return nil
}

func (m CommunityListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Communities)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter", " ":
			m.Expanded = !m.Expanded
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m CommunityListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ members  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Communities))
	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		s := m.Communities[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			strconv.Itoa(s.Label),
			strconv.Itoa(s.Size()),
			strconv.Itoa(len(s.Products)),
			strconv.Itoa(len(s.Ingredients)),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("", "Label", "Size", "Products", "Ingredients").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			return StyleValue
		})
	b.WriteString(t.Render())
	b.WriteString("\n")

	if m.Expanded && m.Cursor < len(m.Communities) {
		s := m.Communities[m.Cursor]
		b.WriteString("\n")
		b.WriteString(listSelectedStyle.Render(fmt.Sprintf("Community %d", s.Label)))
		b.WriteString("\n")
		b.WriteString(memberLine("products", s.Products))
		b.WriteString(memberLine("ingredients", s.Ingredients))
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Communities))))
	return b.String()
}

func memberLine(label string, names []string) string {
	if len(names) == 0 {
		return ""
	}
	return listDimStyle.Render(label+": ") + StyleValue.Render(truncateList(names, 12)) + "\n"
}
