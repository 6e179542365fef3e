package format

import (
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/roach88/nqm/internal/engine"
)

// writeHTML builds the table as a node tree and lets the html package do
// the escaping. One row per line.
func writeHTML(w io.Writer, res engine.Results) error {
	table := element(atom.Table)
	table.AppendChild(newline())

	thead := element(atom.Thead)
	thead.AppendChild(row(atom.Th, res.Vars))
	table.AppendChild(thead)
	table.AppendChild(newline())

	tbody := element(atom.Tbody)
	tbody.AppendChild(newline())
	for _, r := range res.Rows {
		tbody.AppendChild(row(atom.Td, cells(res.Vars, r)))
		tbody.AppendChild(newline())
	}
	table.AppendChild(tbody)
	table.AppendChild(newline())

	if err := html.Render(w, table); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func newline() *html.Node {
	return &html.Node{Type: html.TextNode, Data: "\n"}
}

func row(cell atom.Atom, values []string) *html.Node {
	tr := element(atom.Tr)
	for _, v := range values {
		td := element(cell)
		td.AppendChild(&html.Node{Type: html.TextNode, Data: v})
		tr.AppendChild(td)
	}
	return tr
}
