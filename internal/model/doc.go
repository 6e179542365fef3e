// Package model defines the entities shared by the named query middleware.
//
// A named query is identified by the triple (domain, namespace, name), the
// QueryName. Its canonical string form is
//
//	name--namespace@domain
//
// with every component percent-encoded so that the separators never occur
// inside a component. The same string is used as the registry primary key
// (query_id).
//
// QueryStats records one execution attempt. The outcome is a sealed sum type:
// either Success (row count) or Failure (category plus raw and filtered
// message), never both.
package model
