// Package assemble reduces the partial results of one pipeline run into a
// single model.VisitorRecord.
//
// Each sub-collection hands over a tagged Partial. Combine reads every
// partial exactly once, fills the record field by field and reports which
// sub-collections produced nothing. It never overwrites a field that was
// already set.
package assemble
