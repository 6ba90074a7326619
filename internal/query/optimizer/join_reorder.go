package optimizer

import (
	"sort"

	"github.com/cynos-db/cynos/internal/query/ast"
)

// JoinReorder rebuilds a chain of inner joins as a left-deep tree ordered
// smallest-estimated-cardinality first, so the smallest input becomes the
// leftmost leaf. It only reorders
// contiguous chains of Inner/Cross joins; any outer join ends the chain
// and is reordered independently on each side.
type JoinReorder struct {
	Context *Context
}

func (p *JoinReorder) Name() string { return "join_reorder" }

func (p *JoinReorder) Optimize(plan ast.LogicalPlan) ast.LogicalPlan {
	return p.reorder(plan)
}

func (p *JoinReorder) reorder(plan ast.LogicalPlan) ast.LogicalPlan {
	switch n := plan.(type) {
	case *ast.Join:
		if n.Type == ast.JoinInner || n.Type == ast.JoinCross {
			nodes, conditions := p.collectChain(n)
			if len(nodes) >= 2 {
				return p.buildLeftDeep(nodes, conditions)
			}
		}
		return &ast.Join{Left: p.reorder(n.Left), Right: p.reorder(n.Right), Condition: n.Condition, Type: n.Type}
	case *ast.Filter:
		return &ast.Filter{Input: p.reorder(n.Input), Predicate: n.Predicate}
	case *ast.Project:
		return &ast.Project{Input: p.reorder(n.Input), Columns: n.Columns}
	case *ast.CrossProduct:
		return &ast.CrossProduct{Left: p.reorder(n.Left), Right: p.reorder(n.Right)}
	case *ast.Aggregate:
		return &ast.Aggregate{Input: p.reorder(n.Input), GroupBy: n.GroupBy, Aggregates: n.Aggregates}
	case *ast.Sort:
		return &ast.Sort{Input: p.reorder(n.Input), OrderBy: n.OrderBy}
	case *ast.Limit:
		return &ast.Limit{Input: p.reorder(n.Input), Limit: n.Limit, Offset: n.Offset, HasLimit: n.HasLimit}
	case *ast.Union:
		return &ast.Union{Left: p.reorder(n.Left), Right: p.reorder(n.Right), All: n.All}
	default:
		return plan
	}
}

type joinNode struct {
	plan        ast.LogicalPlan
	cardinality int
	tables      map[string]bool
}

type joinCondition struct {
	condition   ast.Expr
	leftTables  map[string]bool
	rightTables map[string]bool
}

// collectChain flattens a left-leaning (or right-leaning) run of
// Inner/Cross joins into its leaves and the conditions that connected
// them, with every leaf independently reordered first.
func (p *JoinReorder) collectChain(n *ast.Join) ([]joinNode, []joinCondition) {
	var nodes []joinNode
	var conditions []joinCondition

	var collect func(plan ast.LogicalPlan)
	collect = func(plan ast.LogicalPlan) {
		if join, ok := plan.(*ast.Join); ok && (join.Type == ast.JoinInner || join.Type == ast.JoinCross) {
			collect(join.Left)
			collect(join.Right)
			if join.Condition != nil {
				conditions = append(conditions, joinCondition{
					condition:   join.Condition,
					leftTables:  ExtractTables(join.Left),
					rightTables: ExtractTables(join.Right),
				})
			}
			return
		}
		reordered := p.reorder(plan)
		nodes = append(nodes, joinNode{plan: reordered, cardinality: p.estimateCardinality(reordered), tables: ExtractTables(reordered)})
	}
	collect(n)
	return nodes, conditions
}

func (p *JoinReorder) estimateCardinality(plan ast.LogicalPlan) int {
	switch n := plan.(type) {
	case *ast.Scan:
		if p.Context != nil {
			if c, ok := p.Context.Cardinality(n.Table); ok {
				return c
			}
		}
		return 1000
	case *ast.IndexGet:
		return 1
	case *ast.IndexInGet:
		return len(n.Keys)
	case *ast.IndexScan:
		return 100
	case *ast.GinIndexScan, *ast.GinIndexScanMulti:
		return 50
	case *ast.Filter:
		return max(1, p.estimateCardinality(n.Input)/10)
	default:
		return 1000
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// buildLeftDeep sorts the leaves by ascending cardinality and folds them
// into a left-deep tree, attaching whichever collected condition connects
// the running left tree's tables to the next leaf's tables (or a Cross
// product when no condition connects them yet).
func (p *JoinReorder) buildLeftDeep(nodes []joinNode, conditions []joinCondition) ast.LogicalPlan {
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].cardinality < nodes[j].cardinality })

	current := nodes[0]
	for _, next := range nodes[1:] {
		cond := findCondition(conditions, current.tables, next.tables)
		var combined ast.LogicalPlan
		if cond != nil {
			combined = &ast.Join{Left: current.plan, Right: next.plan, Condition: cond, Type: ast.JoinInner}
		} else {
			combined = &ast.CrossProduct{Left: current.plan, Right: next.plan}
		}
		mergedTables := map[string]bool{}
		for t := range current.tables {
			mergedTables[t] = true
		}
		for t := range next.tables {
			mergedTables[t] = true
		}
		current = joinNode{plan: combined, cardinality: current.cardinality * next.cardinality, tables: mergedTables}
	}
	return current.plan
}

// findCondition looks up the collected condition connecting left and
// right's tables. A condition was recorded with leftTables/rightTables
// taken from its original Join node's own Left/Right subtrees, which
// need not match the Left/Right the caller is about to build — sort has
// since reordered the leaves — so the swapped branch returns the
// condition with every comparison's operands swapped to match the
// caller's left/right, not the condition as originally written. Every
// downstream consumer of a Join's Condition (physical/convert.go's
// equiJoinKeys, dataflow/compile.go's collectEquiJoinKeys) assumes the
// left operand of a comparison names a column in the Join's Left
// subtree and the right operand one in Right; returning the original,
// unswapped condition here would silently point both at the wrong side.
func findCondition(conditions []joinCondition, left, right map[string]bool) ast.Expr {
	for _, c := range conditions {
		if subsetOf(c.leftTables, left) && subsetOf(c.rightTables, right) {
			return c.condition
		}
		if subsetOf(c.leftTables, right) && subsetOf(c.rightTables, left) {
			return swapSides(c.condition)
		}
	}
	return nil
}

// swapSides rewrites condition so every comparison's Left and Right
// operands (and, for ordering operators, the operator itself) are
// swapped, recursing through AND conjunctions the same way
// collectEquiJoinKeys walks them.
func swapSides(condition ast.Expr) ast.Expr {
	bin, ok := condition.(*ast.BinaryExpr)
	if !ok {
		return condition
	}
	if bin.Op == ast.OpAnd || bin.Op == ast.OpOr {
		return &ast.BinaryExpr{Left: swapSides(bin.Left), Op: bin.Op, Right: swapSides(bin.Right)}
	}
	return &ast.BinaryExpr{Left: bin.Right, Op: swapComparisonOp(bin.Op), Right: bin.Left}
}

func swapComparisonOp(op ast.BinaryOp) ast.BinaryOp {
	switch op {
	case ast.OpLt:
		return ast.OpGt
	case ast.OpLe:
		return ast.OpGe
	case ast.OpGt:
		return ast.OpLt
	case ast.OpGe:
		return ast.OpLe
	default:
		return op
	}
}
