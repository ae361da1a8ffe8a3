// Package convert translates between the persisted step tree and the
// editable node/edge graph.
//
// ToGraph walks a []schema.Step in sibling order and emits one node per step.
// Sequential steps are chained top to bottom; a contiguous run of condition
// steps fans out horizontally below its parent, and each branch body hangs
// below its condition node. ToTree is the inverse: it starts from the root,
// follows the non-condition chain, folds condition children back into
// condition groups and appends anything unreachable as extra top-level steps.
//
// Neither direction fails on malformed input. Missing ids are generated,
// dangling edges are skipped and cycles are cut by a visited set.
package convert
