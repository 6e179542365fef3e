// Package engine executes named queries against SPARQL endpoints.
//
// An execution is a chain of pure stages followed by one HTTP request:
//
//	lookup -> Details -> Render -> Merge -> Portable -> Limit -> Dispatch
//
// Render binds {{ name }} placeholders after checking declared parameter
// types. Merge applies a prefix policy (RAW, SIMPLE_MERGER, ANALYSIS_MERGER).
// Portable rewrites Blazegraph named subqueries for endpoints that lack
// them. Dispatch sends the text and parses application/sparql-results+json.
//
// Every attempt that reaches Dispatch produces one model.QueryStats which is
// persisted through the Registry, whether the endpoint answered or not.
// Failures are classified into model.ErrorCategory values and returned as
// *EndpointError. The engine never retries.
//
// Engine values are safe for concurrent use. IDs and timestamps come from
// the configured IDGenerator and Clock, so tests can pin both.
package engine
