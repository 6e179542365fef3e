package format

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/nqm/internal/engine"
)

func writeJSON(w io.Writer, res engine.Results) error {
	rows := res.Rows
	if rows == nil {
		rows = []engine.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rows)
}

func writeCSV(w io.Writer, res engine.Results) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Vars); err != nil {
		return err
	}
	for _, row := range res.Rows {
		if err := cw.Write(cells(res.Vars, row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeMediaWiki(w io.Writer, res engine.Results) error {
	var b strings.Builder
	b.WriteString("{| class=\"wikitable sortable\"\n|-\n")
	b.WriteString("! " + strings.Join(escapeAll(res.Vars, wikiCell), " !! ") + "\n")
	for _, row := range res.Rows {
		b.WriteString("|-\n")
		b.WriteString("| " + strings.Join(escapeAll(cells(res.Vars, row), wikiCell), " || ") + "\n")
	}
	b.WriteString("|}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeGitHub(w io.Writer, res engine.Results) error {
	var b strings.Builder
	b.WriteString("| " + strings.Join(escapeAll(res.Vars, markdownCell), " | ") + " |\n")
	sep := make([]string, len(res.Vars))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, row := range res.Rows {
		b.WriteString("| " + strings.Join(escapeAll(cells(res.Vars, row), markdownCell), " | ") + " |\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeLaTeX(w io.Writer, res engine.Results) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\\begin{tabular}{%s}\n\\hline\n", strings.Repeat("l", len(res.Vars)))
	b.WriteString(strings.Join(escapeAll(res.Vars, latexCell), " & ") + " \\\\\n\\hline\n")
	for _, row := range res.Rows {
		b.WriteString(strings.Join(escapeAll(cells(res.Vars, row), latexCell), " & ") + " \\\\\n")
	}
	b.WriteString("\\hline\n\\end{tabular}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeAll(in []string, esc func(string) string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = esc(s)
	}
	return out
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// wikiCell keeps cell separators from splitting the cell.
func wikiCell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", "&#124;")
}

func markdownCell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", `\|`)
}

var latexReplacer = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

func latexCell(s string) string {
	return latexReplacer.Replace(oneLine(s))
}
