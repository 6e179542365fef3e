// Package format renders SPARQL result rows as json, csv, mediawiki, github
// markdown, latex or html tables. Rendering is pure: the same rows always
// produce the same bytes. Columns follow the projected variable order.
package format

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/roach88/nqm/internal/engine"
)

// Format is an output table format.
type Format string

const (
	JSON      Format = "json"
	CSV       Format = "csv"
	MediaWiki Format = "mediawiki"
	GitHub    Format = "github"
	LaTeX     Format = "latex"
	HTML      Format = "html"
)

// Formats lists every supported format.
var Formats = []Format{JSON, CSV, MediaWiki, GitHub, LaTeX, HTML}

// ParseFormat resolves a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "md", "markdown":
		return GitHub, nil
	case "tex":
		return LaTeX, nil
	}
	if slices.Contains(Formats, f) {
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want one of %s)", s, Names())
}

// Names returns the supported format names joined for help text.
func Names() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// ContentType is the media type served for the format.
func (f Format) ContentType() string {
	switch f {
	case JSON:
		return "application/json"
	case CSV:
		return "text/csv; charset=utf-8"
	case HTML:
		return "text/html; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

type writerFunc func(w io.Writer, res engine.Results) error

var writers = map[Format]writerFunc{
	JSON:      writeJSON,
	CSV:       writeCSV,
	MediaWiki: writeMediaWiki,
	GitHub:    writeGitHub,
	LaTeX:     writeLaTeX,
	HTML:      writeHTML,
}

// Write renders res in format f.
func Write(w io.Writer, f Format, res engine.Results) error {
	fn, ok := writers[f]
	if !ok {
		return fmt.Errorf("unknown format %q", f)
	}
	return fn(w, res)
}

// String renders res in format f.
func String(f Format, res engine.Results) (string, error) {
	var b strings.Builder
	if err := Write(&b, f, res); err != nil {
		return "", err
	}
	return b.String(), nil
}

// cells returns a row's values in column order.
func cells(vars []string, row engine.Row) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = row[v]
	}
	return out
}
