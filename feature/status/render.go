package status

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"ocsync/core/lock"
	"ocsync/core/reconcile"
)

// Format is an output encoding for reports.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (text, json, yaml)", s)
	}
}

// Render writes rep to w in format.
func Render(w io.Writer, rep *Report, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		_, err := io.WriteString(w, renderText(rep))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
)

func renderText(rep *Report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Remote") + "  ")
	switch {
	case !rep.Remote.Configured:
		b.WriteString(warnStyle.Render("not configured") + dimStyle.Render("  (run setup)"))
	case rep.Remote.Reachable:
		b.WriteString(okStyle.Render("reachable") + "  " + rep.Remote.URL)
	default:
		b.WriteString(errStyle.Render("unreachable") + "  " + rep.Remote.URL)
		if rep.Remote.Error != "" {
			b.WriteString("\n        " + dimStyle.Render(rep.Remote.Error))
		}
	}
	b.WriteString("\n")

	b.WriteString(titleStyle.Render("Mount") + "   ")
	switch {
	case rep.Mount.MountPoint == "":
		b.WriteString(dimStyle.Render("not configured"))
	case rep.Mount.Mounted:
		b.WriteString(okStyle.Render("mounted") + "  " + rep.Mount.MountPoint)
	default:
		b.WriteString(warnStyle.Render("not mounted") + "  " + rep.Mount.MountPoint)
	}
	b.WriteString("\n\n")

	if len(rep.Destinations) == 0 {
		b.WriteString(dimStyle.Render("No destinations. Add one with: install <name> --local <dir> --remote <path>"))
		b.WriteString("\n")
		return b.String()
	}

	rows := make([][]string, 0, len(rep.Destinations))
	for _, d := range rep.Destinations {
		rows = append(rows, []string{
			d.Name,
			d.LocalPath,
			d.RemotePath,
			string(d.State),
			lockText(d),
			yesNo(d.Scheduled),
			strconv.Itoa(d.Failures),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("NAME", "LOCAL", "REMOTE", "STATE", "LOCK", "SCHEDULED", "FAILURES").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cellStyle.Bold(true)
			}
			d := rep.Destinations[row]
			switch col {
			case 3:
				return cellStyle.Foreground(stateColor(d.State))
			case 6:
				if d.Failures >= rep.Threshold {
					return cellStyle.Foreground(lipgloss.Color("1")).Bold(true)
				}
				if d.Failures > 0 {
					return cellStyle.Foreground(lipgloss.Color("3"))
				}
			}
			return cellStyle
		})
	b.WriteString(t.Render())
	b.WriteString("\n")

	for _, d := range rep.Destinations {
		if d.Recommendation == "" && d.Error == "" {
			continue
		}
		if d.Recommendation != "" {
			fmt.Fprintf(&b, "%s %s: run %s\n", warnStyle.Render("!"), d.Name, titleStyle.Render(d.Recommendation))
		}
		if d.LastError != "" && d.Failures > 0 {
			fmt.Fprintf(&b, "  %s\n", dimStyle.Render(firstLine(d.LastError)))
		}
		if d.Error != "" {
			fmt.Fprintf(&b, "%s %s: %s\n", errStyle.Render("x"), d.Name, d.Error)
		}
	}
	return b.String()
}

func lockText(d DestinationStatus) string {
	switch d.Lock {
	case lock.StateRunning, lock.StateStale:
		return fmt.Sprintf("%s (pid %d)", d.Lock, d.LockPID)
	default:
		return string(d.Lock)
	}
}

func stateColor(s reconcile.State) lipgloss.Color {
	switch s {
	case reconcile.Steady:
		return lipgloss.Color("2")
	case reconcile.Reconciling:
		return lipgloss.Color("4")
	default:
		return lipgloss.Color("3")
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
