package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"phpmodel/internal/core/app"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B"))
)

func renderReport(w io.Writer, format string, report *app.Report) error {
	summary := report.Summary()
	switch format {
	case "json":
		return writeJSON(w, summary)
	case "yaml":
		return writeYAML(w, summary)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("phpmodel run "+summary.RunID) + "\n")
	fmt.Fprintf(&b, "  files: %d parsed, %d skipped, %d failed %s\n",
		summary.Files, summary.Skipped, len(summary.Failures),
		mutedStyle.Render(fmt.Sprintf("(%dms)", summary.DurationMS)))
	fmt.Fprintf(&b, "  symbols: %d classes, %d functions, %d constants\n",
		summary.Classes, summary.Functions, summary.Constants)
	if len(summary.Namespaces) > 0 {
		fmt.Fprintf(&b, "  namespaces: %s\n", strings.Join(summary.Namespaces, ", "))
	}

	if len(summary.Failures) > 0 {
		b.WriteString("\n" + errorStyle.Render("Failures") + "\n")
		for _, f := range summary.Failures {
			loc := f.Path
			if f.Line > 0 {
				loc = fmt.Sprintf("%s:%d", f.Path, f.Line)
			}
			fmt.Fprintf(&b, "  %s %s\n", loc, mutedStyle.Render(f.Code))
			fmt.Fprintf(&b, "    %s\n", f.Message)
		}
	}
	if len(summary.Problems) > 0 {
		b.WriteString("\n" + warnStyle.Render("Problems") + "\n")
		for _, p := range summary.Problems {
			fmt.Fprintf(&b, "  [%s] %s %s", p.Category, p.Kind, p.Symbol)
			if p.File != "" {
				fmt.Fprintf(&b, " %s", mutedStyle.Render(fmt.Sprintf("(%s:%d)", p.File, p.Line)))
			}
			b.WriteString("\n")
			for _, msg := range p.Messages {
				fmt.Fprintf(&b, "    - %s\n", msg)
			}
		}
	}
	if len(summary.Unresolved) > 0 {
		b.WriteString("\n" + mutedStyle.Render("Unresolved") + "\n")
		for _, name := range summary.Unresolved {
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}

	b.WriteString("\n")
	if issues := len(summary.Failures) + len(summary.Problems); issues > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("%d issue(s)", issues)) + "\n")
	} else {
		b.WriteString(successStyle.Render("OK") + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderFields(w io.Writer, format, symbol string, fields []fieldValue) error {
	switch format {
	case "json", "yaml":
		m := make(map[string]any, len(fields))
		for _, f := range fields {
			m[f.Name] = f.Value
		}
		if format == "json" {
			return writeJSON(w, m)
		}
		return writeYAML(w, m)
	}

	if len(fields) == 1 {
		_, err := fmt.Fprintln(w, formatValue(fields[0].Value))
		return err
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(symbol) + "\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "  %s %s\n", mutedStyle.Render(f.Name+":"), formatValue(f.Value))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case []string:
		return "[" + strings.Join(x, ", ") + "]"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
