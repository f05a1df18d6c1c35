package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/fleetctl/internal/fleet"
	"github.com/imamik/fleetctl/internal/reconcile"
)

var (
	colorGreen = lipgloss.Color("#22c55e")
	colorRed   = lipgloss.Color("#ef4444")
	colorBlue  = lipgloss.Color("#3b82f6")
	colorDim   = lipgloss.Color("#6b7280")
	colorWhite = lipgloss.Color("#f9fafb")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	changedStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	stateStyles = map[fleet.State]lipgloss.Style{
		fleet.StateRunning:      lipgloss.NewStyle().Foreground(colorGreen),
		fleet.StateTerminated:   lipgloss.NewStyle().Foreground(colorRed),
		fleet.StateShuttingDown: lipgloss.NewStyle().Foreground(colorRed),
	}
)

// writeResult prints res in the selected output format.
func writeResult(w io.Writer, format, state string, res *reconcile.Result) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err := io.WriteString(w, renderResult(state, res))
	return err
}

// renderResult produces a lipgloss-styled summary of a run.
func renderResult(state string, res *reconcile.Result) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render(fmt.Sprintf("  fleetctl: %s", state)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("═", 30)))
	b.WriteString("\n")

	if res.Changed {
		b.WriteString(changedStyle.Render("  changed"))
	} else {
		b.WriteString(dimStyle.Render("  no changes"))
	}
	b.WriteString("\n")

	if len(res.SpotRequestIDs) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("  Spot requests"))
		b.WriteString("\n")
		for _, id := range res.SpotRequestIDs {
			fmt.Fprintf(&b, "    %s\n", id)
		}
	}

	renderInstances(&b, "Instances", res.Instances)
	renderInstances(&b, "Tagged instances", res.TaggedInstances)
	return b.String()
}

func renderInstances(b *strings.Builder, title string, instances []fleet.Instance) {
	if len(instances) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("  " + title))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("─", 35)))
	b.WriteString("\n")

	for _, inst := range instances {
		style, ok := stateStyles[inst.State]
		if !ok {
			style = dimStyle
		}
		fmt.Fprintf(b, "    %-22s %s %-12s %-15s %s\n",
			inst.ID,
			style.Render(fmt.Sprintf("%-13s", inst.State)),
			inst.Zone,
			inst.PrivateIP,
			dimStyle.Render(formatTags(inst.Tags)),
		)
	}
}

func formatTags(tags map[string]string) string {
	keys := slices.Sorted(maps.Keys(tags))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+tags[k])
	}
	return strings.Join(parts, ",")
}
