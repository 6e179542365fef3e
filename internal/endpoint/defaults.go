package endpoint

const wikidataPrefixes = `PREFIX bd: <http://www.bigdata.com/rdf#>
PREFIX p: <http://www.wikidata.org/prop/>
PREFIX pq: <http://www.wikidata.org/prop/qualifier/>
PREFIX ps: <http://www.wikidata.org/prop/statement/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
PREFIX schema: <http://schema.org/>
PREFIX wd: <http://www.wikidata.org/entity/>
PREFIX wdt: <http://www.wikidata.org/prop/direct/>
PREFIX wikibase: <http://wikiba.se/ontology#>
`

var defaultEndpoints = []Endpoint{
	{
		Name:     "wikidata",
		URL:      "https://query.wikidata.org/sparql",
		Lang:     LangSPARQL,
		Method:   MethodPOST,
		Website:  "https://query.wikidata.org/",
		Database: DatabaseBlazegraph,
		Timeout:  60,
	},
	{
		Name:     "wikidata-scholarly",
		URL:      "https://query-scholarly.wikidata.org/sparql",
		Lang:     LangSPARQL,
		Method:   MethodPOST,
		Website:  "https://query-scholarly.wikidata.org/",
		Database: DatabaseBlazegraph,
		Timeout:  60,
	},
	{
		Name:     "wikidata-qlever",
		URL:      "https://qlever.cs.uni-freiburg.de/api/wikidata",
		Lang:     LangSPARQL,
		Method:   MethodPOST,
		Prefixes: wikidataPrefixes,
		Website:  "https://qlever.cs.uni-freiburg.de/wikidata",
		Database: "qlever",
		Timeout:  30,
	},
	{
		Name:     "dblp",
		URL:      "https://qlever.cs.uni-freiburg.de/api/dblp",
		Lang:     LangSPARQL,
		Method:   MethodPOST,
		Prefixes: "PREFIX dblp: <https://dblp.org/rdf/schema#>\n",
		Website:  "https://qlever.cs.uni-freiburg.de/dblp",
		Database: "qlever",
		Timeout:  30,
	},
}

var defaultGraphs = []Graph{
	{Name: "wikidata", DefaultEndpointName: "wikidata", Description: "Wikidata knowledge graph", URL: "https://www.wikidata.org/"},
	{Name: "dblp", DefaultEndpointName: "dblp", Description: "dblp computer science bibliography", URL: "https://dblp.org/"},
}

// DefaultEndpoints returns the built-in endpoint directory.
func DefaultEndpoints() *Directory {
	d, err := NewDirectory(defaultEndpoints...)
	if err != nil {
		panic(err)
	}
	return d
}

// DefaultGraphs returns the built-in graphs whose default endpoint exists in d.
func DefaultGraphs(d *Directory) (*Graphs, error) {
	var gs []Graph
	for _, g := range defaultGraphs {
		if _, ok := d.Get(g.DefaultEndpointName); ok {
			gs = append(gs, g)
		}
	}
	return NewGraphs(d, gs...)
}
