package prefix

import (
	"fmt"
	"sort"
	"strings"
)

// KnownPrefixes maps common prefix labels to their namespace IRIs. These are
// the Wikidata Query Service defaults plus the vocabularies other configured
// endpoints (QLever, DBLP, Virtuoso) rely on.
var KnownPrefixes = map[string]string{
	"bd":       "http://www.bigdata.com/rdf#",
	"bif":      "http://www.openlinksw.com/schemas/bif#",
	"cc":       "http://creativecommons.org/ns#",
	"dblp":     "https://dblp.org/rdf/schema#",
	"dc":       "http://purl.org/dc/elements/1.1/",
	"dct":      "http://purl.org/dc/terms/",
	"dcterms":  "http://purl.org/dc/terms/",
	"foaf":     "http://xmlns.com/foaf/0.1/",
	"gas":      "http://www.bigdata.com/rdf/gas#",
	"geo":      "http://www.opengis.net/ont/geosparql#",
	"geof":     "http://www.opengis.net/def/function/geosparql/",
	"hint":     "http://www.bigdata.com/queryHints#",
	"mwapi":    "https://www.mediawiki.org/ontology#API/",
	"ontolex":  "http://www.w3.org/ns/lemon/ontolex#",
	"owl":      "http://www.w3.org/2002/07/owl#",
	"p":        "http://www.wikidata.org/prop/",
	"pq":       "http://www.wikidata.org/prop/qualifier/",
	"pqn":      "http://www.wikidata.org/prop/qualifier/value-normalized/",
	"pqv":      "http://www.wikidata.org/prop/qualifier/value/",
	"pr":       "http://www.wikidata.org/prop/reference/",
	"prn":      "http://www.wikidata.org/prop/reference/value-normalized/",
	"prov":     "http://www.w3.org/ns/prov#",
	"prv":      "http://www.wikidata.org/prop/reference/value/",
	"ps":       "http://www.wikidata.org/prop/statement/",
	"psn":      "http://www.wikidata.org/prop/statement/value-normalized/",
	"psv":      "http://www.wikidata.org/prop/statement/value/",
	"ql":       "http://qlever.cs.uni-freiburg.de/builtin-functions/",
	"rdf":      "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	"rdfs":     "http://www.w3.org/2000/01/rdf-schema#",
	"schema":   "http://schema.org/",
	"skos":     "http://www.w3.org/2004/02/skos/core#",
	"wd":       "http://www.wikidata.org/entity/",
	"wdata":    "http://www.wikidata.org/wiki/Special:EntityData/",
	"wdno":     "http://www.wikidata.org/prop/novalue/",
	"wdref":    "http://www.wikidata.org/reference/",
	"wds":      "http://www.wikidata.org/entity/statement/",
	"wdt":      "http://www.wikidata.org/prop/direct/",
	"wdtn":     "http://www.wikidata.org/prop/direct-normalized/",
	"wdv":      "http://www.wikidata.org/value/",
	"wikibase": "http://wikiba.se/ontology#",
	"xsd":      "http://www.w3.org/2001/XMLSchema#",
}

// Declaration renders a PREFIX line.
func Declaration(label, iri string) string {
	return fmt.Sprintf("PREFIX %s: <%s>", label, iri)
}

// Block renders PREFIX lines for the given labels that are in KnownPrefixes,
// sorted by label. Unknown labels are skipped.
func Block(labels []string) string {
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	var b strings.Builder
	for _, label := range sorted {
		iri, ok := KnownPrefixes[label]
		if !ok {
			continue
		}
		b.WriteString(Declaration(label, iri))
		b.WriteByte('\n')
	}
	return b.String()
}
