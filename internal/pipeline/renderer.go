package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/termenv"

	"github.com/ppiankov/rulelens/internal/model"
)

// Output formats
const (
	FormatText     = "text"
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// NoRulesMessage is shown for a valid selection that matched nothing
const NoRulesMessage = "No rules found for the selected criteria."

// NoOutputsMessage is shown for a rule whose every output cell is blank
const NoOutputsMessage = "No specific output attributes for this rule."

// ErrUnknownFormat is returned for unsupported output formats
var ErrUnknownFormat = errors.New("unknown output format")

// RenderOptions controls renderer output
type RenderOptions struct {
	IncludeFooter bool
	Color         bool
	Verbose       bool // include diagnostic signals in text output
}

// Renderer turns rule views into text, tables, JSON and Markdown
type Renderer struct {
	opts RenderOptions
}

// NewRenderer creates a new renderer
func NewRenderer(opts RenderOptions) *Renderer {
	return &Renderer{opts: opts}
}

// Render writes view to w in the given format
func (r *Renderer) Render(w io.Writer, view *model.RuleView, format string) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		return r.RenderText(w, view)
	case FormatTable:
		return r.RenderTable(w, view)
	case FormatJSON:
		return r.RenderJSON(w, view)
	case FormatMarkdown, "md":
		return r.RenderMarkdown(w, view)
	default:
		return fmt.Errorf("%w: %q (supported: text, table, json, markdown)", ErrUnknownFormat, format)
	}
}

// WriteFile renders view into path, creating parent directories
func (r *Renderer) WriteFile(path string, view *model.RuleView, format string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if err := r.Render(f, view, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteLLMMarkdown writes an already rendered LLM summary document
func (r *Renderer) WriteLLMMarkdown(path, markdown string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, []byte(markdown), 0o644)
}

// RenderJSON writes view as indented JSON
func (r *Renderer) RenderJSON(w io.Writer, view *model.RuleView) error {
	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

type textStyles struct {
	title   lipgloss.Style
	heading lipgloss.Style
	rule    lipgloss.Style
	label   lipgloss.Style
	input   lipgloss.Style
	output  lipgloss.Style
	value   lipgloss.Style
	muted   lipgloss.Style
	warning lipgloss.Style
}

func (r *Renderer) styles(w io.Writer) textStyles {
	lr := lipgloss.NewRenderer(w)
	if !r.opts.Color {
		lr.SetColorProfile(termenv.Ascii)
	}

	return textStyles{
		title:   lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		heading: lr.NewStyle().Bold(true),
		rule:    lr.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
		label:   lr.NewStyle().Bold(true),
		input:   lr.NewStyle().Foreground(lipgloss.Color("14")),
		output:  lr.NewStyle().Foreground(lipgloss.Color("10")),
		value:   lr.NewStyle().Foreground(lipgloss.Color("11")),
		muted:   lr.NewStyle().Faint(true).Italic(true),
		warning: lr.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// RenderText writes view as styled rule cards for a terminal
func (r *Renderer) RenderText(w io.Writer, view *model.RuleView) error {
	s := r.styles(w)
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", s.title.Render("Visualizing Rules for:"), s.value.Render(quote(view.Selection.Primary)))
	if len(view.Selection.Attributes) > 0 {
		fmt.Fprintf(&b, "%s %s\n", s.label.Render("Attributes:"), strings.Join(view.Selection.Attributes, ", "))
	}
	b.WriteString("\n")

	if view.IsEmpty() {
		b.WriteString(s.warning.Render(NoRulesMessage))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString(s.heading.Render(headline(view.RuleCount)))
	b.WriteString("\n")

	for i, rule := range view.Rules {
		b.WriteString(s.muted.Render(strings.Repeat("─", 40)))
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s\n", s.rule.Render(fmt.Sprintf("Rule #%d", i+1)), s.muted.Render(memberNote(rule.MemberCount)))

		b.WriteString("  " + s.input.Render("Input Conditions (Source)") + "\n")
		for _, c := range rule.Inputs {
			fmt.Fprintf(&b, "    %s %s\n", s.label.Render(c.Column+":"), s.value.Render(quote(joinValues(c.Values))))
		}

		b.WriteString("  " + s.output.Render("Output (Destination)") + "\n")
		if !rule.HasOutputs() {
			b.WriteString("    " + s.muted.Render(NoOutputsMessage) + "\n")
		}
		for _, f := range rule.Outputs {
			fmt.Fprintf(&b, "    %s %s\n", s.label.Render(f.Column+":"), s.value.Render(quote(f.Value)))
		}
	}

	if r.opts.Verbose && len(view.Signals) > 0 {
		b.WriteString("\n" + s.heading.Render("Signals") + "\n")
		for _, sig := range view.Signals {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", sig.Severity, sig.Type, sig.Description)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderTable writes view as a box table, one row per merged rule
func (r *Renderer) RenderTable(w io.Writer, view *model.RuleView) error {
	if view.IsEmpty() {
		_, err := fmt.Fprintln(w, NoRulesMessage)
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("%s for %s", headline(view.RuleCount), quote(view.Selection.Primary))
	t.AppendHeader(table.Row{"#", "Rows", "Input Conditions", "Output"})

	for i, rule := range view.Rules {
		inputs := make([]string, 0, len(rule.Inputs))
		for _, c := range rule.Inputs {
			inputs = append(inputs, c.Column+": "+joinValues(c.Values))
		}
		outputs := make([]string, 0, len(rule.Outputs))
		for _, f := range rule.Outputs {
			outputs = append(outputs, f.Column+": "+f.Value)
		}
		if len(outputs) == 0 {
			outputs = append(outputs, "("+NoOutputsMessage+")")
		}

		t.AppendRow(table.Row{i + 1, rule.MemberCount, strings.Join(inputs, "\n"), strings.Join(outputs, "\n")})
		t.AppendSeparator()
	}

	t.AppendFooter(table.Row{"", view.MatchedRows, "", strconv.Itoa(view.TotalRows) + " rows in table"})
	t.Render()
	return nil
}

// RenderMarkdown writes view as a Markdown report
func (r *Renderer) RenderMarkdown(w io.Writer, view *model.RuleView) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Visualizing Rules for: %s\n\n", quote(view.Selection.Primary))
	fmt.Fprintf(&b, "- **Source:** %s\n", view.Source)
	fmt.Fprintf(&b, "- **Pivot column:** %s\n", view.Pivot)
	if len(view.Selection.Attributes) > 0 {
		quoted := make([]string, len(view.Selection.Attributes))
		for i, a := range view.Selection.Attributes {
			quoted[i] = quote(a)
		}
		fmt.Fprintf(&b, "- **Attributes:** %s\n", strings.Join(quoted, ", "))
	}
	fmt.Fprintf(&b, "- **Matched rows:** %d of %d\n\n", view.MatchedRows, view.TotalRows)

	if view.IsEmpty() {
		fmt.Fprintf(&b, "> %s\n", NoRulesMessage)
	} else {
		fmt.Fprintf(&b, "## %s\n", headline(view.RuleCount))

		for i, rule := range view.Rules {
			fmt.Fprintf(&b, "\n---\n\n#### Rule #%d\n\n", i+1)
			fmt.Fprintf(&b, "_%s_\n\n", memberNote(rule.MemberCount))

			b.WriteString("**Input Conditions (Source)**\n\n")
			if len(rule.Inputs) == 0 {
				b.WriteString("_No input conditions._\n")
			}
			for _, c := range rule.Inputs {
				fmt.Fprintf(&b, "- **%s:** %s\n", c.Column, quote(joinValues(c.Values)))
			}

			b.WriteString("\n**Output (Destination)**\n\n")
			if !rule.HasOutputs() {
				fmt.Fprintf(&b, "_%s_\n", NoOutputsMessage)
			}
			for _, f := range rule.Outputs {
				fmt.Fprintf(&b, "- **%s:** %s\n", f.Column, quote(f.Value))
			}
		}
	}

	if len(view.Signals) > 0 {
		b.WriteString("\n## Signals\n\n")
		b.WriteString("| Signal | Severity | Description |\n")
		b.WriteString("|---|---|---|\n")
		for _, sig := range view.Signals {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", sig.Type, sig.Severity, sig.Description)
		}
	}

	if r.opts.IncludeFooter {
		b.WriteString("\n---\n\n")
		b.WriteString("_Generated by rulelens. Rules are grouped by identical output values; ")
		b.WriteString("input conditions list every value contributed by the grouped rows._\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func headline(n int) string {
	return fmt.Sprintf("Found %d Unique Output Rule(s)", n)
}

func memberNote(n int) string {
	if n == 1 {
		return "(1 row)"
	}
	return fmt.Sprintf("(%d rows)", n)
}

func joinValues(values []string) string {
	return strings.Join(values, " / ")
}

func quote(v string) string {
	return "`" + v + "`"
}
