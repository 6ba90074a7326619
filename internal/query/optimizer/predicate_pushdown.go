package optimizer

import "github.com/cynos-db/cynos/internal/query/ast"

// PredicatePushdown moves filter conjuncts as close to their source scan
// as the join topology allows: a conjunct touching only one side of a
// Join or CrossProduct is re-homed below that join, so later passes
// (outer-join simplification, index selection) see it sitting directly
// above the scan it constrains. Conjuncts that reference both sides stay
// above the join as the join's residual filter.
type PredicatePushdown struct{}

func (p *PredicatePushdown) Name() string { return "predicate_pushdown" }

func (p *PredicatePushdown) Optimize(plan ast.LogicalPlan) ast.LogicalPlan {
	return p.push(plan)
}

func (p *PredicatePushdown) push(plan ast.LogicalPlan) ast.LogicalPlan {
	switch n := plan.(type) {
	case *ast.Filter:
		input := p.push(n.Input)
		return p.pushInto(input, SplitConjuncts(n.Predicate))
	case *ast.Project:
		return &ast.Project{Input: p.push(n.Input), Columns: n.Columns}
	case *ast.Join:
		return &ast.Join{Left: p.push(n.Left), Right: p.push(n.Right), Condition: n.Condition, Type: n.Type}
	case *ast.CrossProduct:
		return &ast.CrossProduct{Left: p.push(n.Left), Right: p.push(n.Right)}
	case *ast.Aggregate:
		return &ast.Aggregate{Input: p.push(n.Input), GroupBy: n.GroupBy, Aggregates: n.Aggregates}
	case *ast.Sort:
		return &ast.Sort{Input: p.push(n.Input), OrderBy: n.OrderBy}
	case *ast.Limit:
		return &ast.Limit{Input: p.push(n.Input), Limit: n.Limit, Offset: n.Offset, HasLimit: n.HasLimit}
	case *ast.Union:
		return &ast.Union{Left: p.push(n.Left), Right: p.push(n.Right), All: n.All}
	default:
		return plan
	}
}

// pushInto attaches conjuncts to input, pushing each one below any Join
// or CrossProduct it can be resolved against, and wrapping what's left
// over in a single Filter.
func (p *PredicatePushdown) pushInto(input ast.LogicalPlan, conjuncts []ast.Expr) ast.LogicalPlan {
	switch n := input.(type) {
	case *ast.Join:
		if n.Type != ast.JoinInner && n.Type != ast.JoinCross {
			break
		}
		leftTables, rightTables := ExtractTables(n.Left), ExtractTables(n.Right)
		var residual []ast.Expr
		var leftPred, rightPred []ast.Expr
		for _, c := range conjuncts {
			refs := exprTables(c)
			switch {
			case subsetOf(refs, leftTables):
				leftPred = append(leftPred, c)
			case subsetOf(refs, rightTables):
				rightPred = append(rightPred, c)
			default:
				residual = append(residual, c)
			}
		}
		left, right := n.Left, n.Right
		if len(leftPred) > 0 {
			left = p.pushInto(left, leftPred)
		}
		if len(rightPred) > 0 {
			right = p.pushInto(right, rightPred)
		}
		joined := ast.LogicalPlan(&ast.Join{Left: left, Right: right, Condition: n.Condition, Type: n.Type})
		if len(residual) == 0 {
			return joined
		}
		return &ast.Filter{Input: joined, Predicate: CombineConjuncts(residual)}
	case *ast.CrossProduct:
		leftTables, rightTables := ExtractTables(n.Left), ExtractTables(n.Right)
		var residual []ast.Expr
		var leftPred, rightPred []ast.Expr
		for _, c := range conjuncts {
			refs := exprTables(c)
			switch {
			case subsetOf(refs, leftTables):
				leftPred = append(leftPred, c)
			case subsetOf(refs, rightTables):
				rightPred = append(rightPred, c)
			default:
				residual = append(residual, c)
			}
		}
		left, right := n.Left, n.Right
		if len(leftPred) > 0 {
			left = p.pushInto(left, leftPred)
		}
		if len(rightPred) > 0 {
			right = p.pushInto(right, rightPred)
		}
		joined := ast.LogicalPlan(&ast.CrossProduct{Left: left, Right: right})
		if len(residual) == 0 {
			return joined
		}
		return &ast.Filter{Input: joined, Predicate: CombineConjuncts(residual)}
	}
	return &ast.Filter{Input: input, Predicate: CombineConjuncts(conjuncts)}
}

func subsetOf(small, big map[string]bool) bool {
	for t := range small {
		if !big[t] {
			return false
		}
	}
	return true
}
