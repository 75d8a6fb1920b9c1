// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"regform-scan/internal/knowledge"
)

// System renders usage and category help
type System struct {
	out     io.Writer
	table   *knowledge.PatternTable
	noColor bool
	colors  map[string]*color.Color
}

// NewSystem creates a help system describing the categories of table
func NewSystem(out io.Writer, table *knowledge.PatternTable, noColor bool) *System {
	colors := map[string]*color.Color{
		"title":    color.New(color.FgWhite, color.Bold),
		"header":   color.New(color.FgBlue, color.Bold),
		"item":     color.New(color.FgCyan),
		"emphasis": color.New(color.FgWhite, color.Bold),
		"negative": color.New(color.FgRed),
		"example":  color.New(color.FgMagenta),
	}
	if noColor {
		for _, c := range colors {
			c.DisableColor()
		}
	}
	return &System{out: out, table: table, noColor: noColor, colors: colors}
}

// ShowGeneralHelp displays usage, options and examples
func (h *System) ShowGeneralHelp() {
	h.colors["title"].Fprintln(h.out, "regform-scan - Registration Form Field Detection")
	fmt.Fprintln(h.out, "================================================")
	fmt.Fprintln(h.out)
	h.colors["header"].Fprintln(h.out, "USAGE:")
	fmt.Fprintln(h.out, "  regform-scan --file <page.html> [options]")
	fmt.Fprintln(h.out, "  regform-scan --snapshot <tree.json> [options]")
	fmt.Fprintln(h.out, "  regform-scan --url <address> [--watch] [options]")
	fmt.Fprintln(h.out, "  regform-scan --web [--port <port>]")
	fmt.Fprintln(h.out)

	h.colors["header"].Fprintln(h.out, "OPTIONS:")
	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  --file\t<path>\tHTML page to scan")
	fmt.Fprintln(w, "  --snapshot\t<path>\tJSON element tree captured from a live page")
	fmt.Fprintln(w, "  --url\t<address>\tOpen the page in headless Chrome and scan it")
	fmt.Fprintln(w, "  --watch\t\tWith --url, rescan whenever the page changes")
	fmt.Fprintln(w, "  --address\t<address>\tPage address used for region identification")
	fmt.Fprintln(w, "  --region\t<code>\tForce a jurisdiction code and skip identification")
	fmt.Fprintln(w, "  --config\t<path>\tPath to configuration file (YAML)")
	fmt.Fprintln(w, "  --profile\t<name>\tProfile name to use from config file")
	fmt.Fprintln(w, "  --list-profiles\t\tList available profiles")
	fmt.Fprintln(w, "  --data-dir\t<path>\tDirectory holding common.yaml and region override documents")
	fmt.Fprintln(w, "  --format\t<format>\tOutput format: text, json, yaml (default: text)")
	fmt.Fprintln(w, "  --confidence\t<levels>\tConfidence levels to display: high,medium,low,all (default: all)")
	fmt.Fprintln(w, "  --verbose\t\tShow matched-rule traces and diagnostics")
	fmt.Fprintln(w, "  --debug\t\tTrace each pass stage on stderr")
	fmt.Fprintln(w, "  --output\t<path>\tWrite the report to a file instead of stdout")
	fmt.Fprintln(w, "  --no-color\t\tDisable colored output")
	fmt.Fprintln(w, "  --web\t\tServe the scan API instead of scanning once")
	fmt.Fprintln(w, "  --port\t<port>\tPort for the scan API (default: 8080)")
	fmt.Fprintln(w, "  --version\t\tShow version information")
	fmt.Fprintln(w, "  --help\t\tShow this help message")
	fmt.Fprintln(w, "  --help categories\t\tList the field categories")
	fmt.Fprintln(w, "  --help <category>\t\tShow the rule behind a category")
	w.Flush()

	fmt.Fprintln(h.out)
	h.colors["header"].Fprintln(h.out, "EXAMPLES:")
	h.colors["example"].Fprintln(h.out, "  regform-scan --file llc.html --address https://efile.sunbiz.org/llc_file.html")
	h.colors["example"].Fprintln(h.out, "  regform-scan --snapshot tree.json --region TX --format json")
	h.colors["example"].Fprintln(h.out, "  regform-scan --file form.html --profile strict --confidence high,medium")
	h.colors["example"].Fprintln(h.out, "  regform-scan --url https://bizfileonline.sos.ca.gov --watch")

	fmt.Fprintln(h.out)
	h.colors["header"].Fprintln(h.out, "CONFIGURATION:")
	fmt.Fprintln(h.out, "  Project config: regform-scan.yaml or .regform-scan.yaml (in current directory)")
	fmt.Fprintln(h.out, "  User config:    $XDG_CONFIG_HOME/regform-scan/config.yaml")
	fmt.Fprintln(h.out, "  Environment:    REGFORM_CONFIG_DIR - Override config directory")
}

// ShowCategoriesHelp lists every category of the table with its priority
func (h *System) ShowCategoriesHelp() {
	title := "Field Categories"
	if h.table.Region != "" {
		title += " (" + h.table.Region + ")"
	}
	h.colors["title"].Fprintln(h.out, title)
	fmt.Fprintln(h.out, strings.Repeat("=", len(title)))
	fmt.Fprintln(h.out)

	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  CATEGORY\tPRIORITY\tKEYWORDS")
	fmt.Fprintln(w, "  --------\t--------\t--------")
	for _, name := range h.table.Categories() {
		rule := h.table.Rule(name)
		fmt.Fprintf(w, "  %s\t%d\t%s\n", name, rule.Priority, summarize(rule.Keywords, 4))
	}
	w.Flush()

	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, "For the full rule behind a category, use:")
	h.colors["example"].Fprintln(h.out, "  regform-scan --help <category>")
}

// ShowCategoryHelp displays the rule for one category. It reports false when
// the category is unknown.
func (h *System) ShowCategoryHelp(name string) bool {
	rule := h.table.Rule(strings.ToLower(strings.TrimSpace(name)))
	if rule == nil {
		h.colors["negative"].Fprintf(h.out, "Error: Category '%s' not found.\n", name)
		fmt.Fprintln(h.out, "Use 'regform-scan --help categories' to see the available categories.")
		return false
	}

	h.colors["title"].Fprintf(h.out, "%s\n", rule.Category)
	fmt.Fprintln(h.out, strings.Repeat("=", len(rule.Category)))
	fmt.Fprintf(h.out, "Priority: %d\n\n", rule.Priority)

	h.list("KEYWORDS:", rule.Keywords)
	h.list("LABEL PATTERNS:", rule.Patterns)
	h.list("ATTRIBUTE HINTS:", rule.Attributes)

	if v := rule.Validation; v != nil {
		h.colors["header"].Fprintln(h.out, "VALUE VALIDATION:")
		if v.Pattern != "" {
			fmt.Fprintf(h.out, "  pattern:         %s\n", v.Pattern)
		}
		if v.MinLength > 0 || v.MaxLength > 0 {
			fmt.Fprintf(h.out, "  length:          %d-%d\n", v.MinLength, v.MaxLength)
		}
		if v.RequiredFormat != "" {
			fmt.Fprintf(h.out, "  required format: %s\n", v.RequiredFormat)
		}
	}
	return true
}

func (h *System) list(header string, items []string) {
	if len(items) == 0 {
		return
	}
	h.colors["header"].Fprintln(h.out, header)
	for _, item := range items {
		fmt.Fprint(h.out, "  - ")
		h.colors["item"].Fprintln(h.out, item)
	}
	fmt.Fprintln(h.out)
}

// summarize joins the first n items and notes how many were left out
func summarize(items []string, n int) string {
	if len(items) <= n {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(items[:n], ", "), len(items)-n)
}
