package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/cratewatch/pkg/crate"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleHeader   = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleCell     = lipgloss.NewStyle().PaddingRight(1)
	styleTrack    = lipgloss.NewStyle().Foreground(colorGreen).PaddingRight(1)
	styleYanked   = lipgloss.NewStyle().Foreground(colorRed).Strikethrough(true).PaddingRight(1)
	stylePrerel   = lipgloss.NewStyle().Foreground(colorYellow).PaddingRight(1)
	styleTeamKind = lipgloss.NewStyle().Foreground(colorCyan).PaddingRight(1)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconTrack   = "★"
	iconNew     = "new"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printCrateHeader prints the crate name with its registry hints.
func printCrateHeader(c *crate.Crate) {
	fmt.Println(StyleTitle.Render(c.Name) + " " + StyleDim.Render(c.DefaultVersionNum()))
	if c.Description != "" {
		printDetail("%s", c.Description)
	}
}

// =============================================================================
// Tables
// =============================================================================

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...)
}

// renderVersions renders versions in the given order with their track and
// yanked markers.
func renderVersions(agg *crate.Aggregate, versions []*crate.Version, now time.Time) string {
	rows := make([][]string, len(versions))
	for i, v := range versions {
		mark := ""
		if agg.HighestOfReleaseTrack(v.ID) {
			mark = iconTrack
		}
		fresh := ""
		if v.IsNew(now) {
			fresh = iconNew
		}
		rows[i] = []string{mark, v.Num, v.ReleaseTrack(), v.CreatedAt.Format("2006-01-02"), strconv.FormatInt(v.Downloads, 10), fresh}
	}

	t := newTable("", "Version", "Track", "Published", "Downloads", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			v := versions[row]
			switch {
			case v.Yanked:
				return styleYanked
			case v.IsPrerelease():
				return stylePrerel
			case col == 0:
				return styleTrack
			}
			return styleCell
		})
	return t.Render()
}

// renderTracks renders one row per release track.
func renderTracks(tracks []crate.Track) string {
	rows := make([][]string, len(tracks))
	for i, tr := range tracks {
		rows[i] = []string{tr.Name, tr.Num}
	}
	return newTable("Track", "Latest").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return styleCell
		}).
		Render()
}

// renderOwners renders team owners followed by user owners.
func renderOwners(owners []*crate.Owner) string {
	rows := make([][]string, len(owners))
	for i, o := range owners {
		rows[i] = []string{string(o.Kind), o.Login, o.Name}
	}
	return newTable("Kind", "Login", "Name").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if owners[row].Kind == crate.OwnerTeam {
				return styleTeamKind
			}
			return styleCell
		}).
		Render()
}
