// Package optimizer rewrites a logical plan into an equivalent, cheaper
// one: predicates pushed toward scans, outer joins simplified to inner
// joins where a predicate already rejects the padding NULLs, scans
// upgraded to index operations, and inner-join chains reordered
// smallest-table-first.
package optimizer

import "github.com/cynos-db/cynos/internal/query/ast"

// Pass rewrites a logical plan into an equivalent plan.
type Pass interface {
	Optimize(plan ast.LogicalPlan) ast.LogicalPlan
	Name() string
}

// DefaultPipeline returns the passes run by Optimize, in order. Predicate
// pushdown runs first so outer-join simplification and index selection see
// filters sitting directly above their scans; join reorder runs last so it
// works from the already-pushed-down, already-indexed cardinalities.
func DefaultPipeline(ctx *Context) []Pass {
	return []Pass{
		&PredicatePushdown{},
		&OuterJoinSimplification{},
		&IndexSelection{Context: ctx},
		&JoinReorder{Context: ctx},
	}
}

// Optimize runs DefaultPipeline over plan and returns the rewritten tree.
func Optimize(plan ast.LogicalPlan, ctx *Context) ast.LogicalPlan {
	for _, pass := range DefaultPipeline(ctx) {
		plan = pass.Optimize(plan)
	}
	return plan
}
