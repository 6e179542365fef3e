// Package prefix holds pure transformations of SPARQL text: prefix
// detection and injection, Blazegraph named-subquery rewriting, sample
// parameter filling and a best-effort syntax check.
//
// The package is not a SPARQL parser. A lexer recognizes just enough of the
// grammar (strings, IRIs, comments, variables, prefixed names, punctuation
// and {{ name }} placeholders) to answer structural questions without being
// confused by text inside literals.
//
// No function mutates its input or returns an error for malformed queries;
// they fall back to returning the input and log a warning.
package prefix
