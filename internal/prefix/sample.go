package prefix

import (
	"sort"

	"github.com/roach88/nqm/internal/params"
)

// sampleItems is the fixed pool of Wikidata items used to fill parameters
// for parse validation.
var sampleItems = []string{"Q80", "Q1", "Q5", "Q42", "Q146", "Q64", "Q90", "Q183"}

// SampleValue returns the deterministic sample for the i-th parameter of the
// given type.
func SampleValue(typ params.Type, i int) string {
	switch typ {
	case params.TypeInt:
		return "10"
	case params.TypeWikidataProperty:
		return "P31"
	case params.TypeIRI:
		return "<http://www.wikidata.org/entity/" + sampleItems[i%len(sampleItems)] + ">"
	}
	return sampleItems[i%len(sampleItems)]
}

// FillWithSampleParameters substitutes every placeholder with a sample value.
// Parameters are numbered in sorted name order. The result is meant for
// validation only, never for execution.
func FillWithSampleParameters(query string) string {
	types := params.Declared(query)
	if len(types) == 0 {
		return query
	}
	names := make([]string, 0, len(types))
	for n := range types {
		names = append(names, n)
	}
	sort.Strings(names)
	values := make(map[string]string, len(names))
	for i, n := range names {
		values[n] = SampleValue(types[n], i)
	}
	return params.Fill(query, func(name string) string { return values[name] })
}

// FillWith is FillWithSampleParameters with caller-chosen values; names
// without a value fall back to the sample.
func FillWith(query string, values map[string]string) string {
	filled := params.Fill(query, func(name string) string {
		if v, ok := values[name]; ok {
			return v
		}
		return "{{" + name + "}}"
	})
	return FillWithSampleParameters(filled)
}
