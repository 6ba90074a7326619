package optimizer

import "github.com/cynos-db/cynos/internal/query/ast"

// OuterJoinSimplification downgrades an outer join to an inner join (or a
// weaker outer join) whenever a Filter sitting above it already rejects
// rows where the padding side is NULL — the outer join's extra rows
// would be filtered out anyway, so the cheaper join plan is equivalent.
type OuterJoinSimplification struct{}

func (p *OuterJoinSimplification) Name() string { return "outer_join_simplification" }

func (p *OuterJoinSimplification) Optimize(plan ast.LogicalPlan) ast.LogicalPlan {
	return p.simplify(plan)
}

func (p *OuterJoinSimplification) simplify(plan ast.LogicalPlan) ast.LogicalPlan {
	switch n := plan.(type) {
	case *ast.Filter:
		input := p.simplify(n.Input)
		if join, ok := input.(*ast.Join); ok {
			if newType, changed := p.trySimplifyJoin(n.Predicate, join.Left, join.Right, join.Type); changed {
				input = &ast.Join{Left: join.Left, Right: join.Right, Condition: join.Condition, Type: newType}
			}
		}
		return &ast.Filter{Input: input, Predicate: n.Predicate}
	case *ast.Project:
		return &ast.Project{Input: p.simplify(n.Input), Columns: n.Columns}
	case *ast.Join:
		return &ast.Join{Left: p.simplify(n.Left), Right: p.simplify(n.Right), Condition: n.Condition, Type: n.Type}
	case *ast.CrossProduct:
		return &ast.CrossProduct{Left: p.simplify(n.Left), Right: p.simplify(n.Right)}
	case *ast.Aggregate:
		return &ast.Aggregate{Input: p.simplify(n.Input), GroupBy: n.GroupBy, Aggregates: n.Aggregates}
	case *ast.Sort:
		return &ast.Sort{Input: p.simplify(n.Input), OrderBy: n.OrderBy}
	case *ast.Limit:
		return &ast.Limit{Input: p.simplify(n.Input), Limit: n.Limit, Offset: n.Offset, HasLimit: n.HasLimit}
	case *ast.Union:
		return &ast.Union{Left: p.simplify(n.Left), Right: p.simplify(n.Right), All: n.All}
	default:
		return plan
	}
}

// trySimplifyJoin returns the weaker join type predicate permits, and
// whether it differs from joinType.
func (p *OuterJoinSimplification) trySimplifyJoin(predicate ast.Expr, left, right ast.LogicalPlan, joinType ast.JoinType) (ast.JoinType, bool) {
	switch joinType {
	case ast.JoinLeftOuter:
		rightTables := ExtractTables(right)
		if p.predicateRejectsNull(predicate, rightTables) {
			return ast.JoinInner, true
		}
	case ast.JoinRightOuter:
		leftTables := ExtractTables(left)
		if p.predicateRejectsNull(predicate, leftTables) {
			return ast.JoinInner, true
		}
	case ast.JoinFullOuter:
		leftTables, rightTables := ExtractTables(left), ExtractTables(right)
		rejectsLeft := p.predicateRejectsNull(predicate, leftTables)
		rejectsRight := p.predicateRejectsNull(predicate, rightTables)
		switch {
		case rejectsLeft && rejectsRight:
			return ast.JoinInner, true
		case rejectsRight:
			return ast.JoinLeftOuter, true
		case rejectsLeft:
			return ast.JoinRightOuter, true
		}
	}
	return joinType, false
}

// predicateRejectsNull reports whether predicate evaluates to false (or
// unknown) whenever every column from tables is NULL — the condition
// under which an outer join's padding rows are guaranteed to be filtered
// out.
func (p *OuterJoinSimplification) predicateRejectsNull(predicate ast.Expr, tables map[string]bool) bool {
	switch n := predicate.(type) {
	case *ast.UnaryExpr:
		switch n.Op {
		case ast.OpIsNotNull:
			return ExprReferencesTables(n.Expr, tables)
		case ast.OpIsNull:
			// IS NULL accepts the padded row; it never rejects NULL.
			return false
		}
		return false
	case *ast.BinaryExpr:
		switch n.Op {
		case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
			leftRefs := ExprReferencesTables(n.Left, tables)
			rightRefs := ExprReferencesTables(n.Right, tables)
			_, leftLit := n.Left.(*ast.Literal)
			_, rightLit := n.Right.(*ast.Literal)
			return (leftRefs && rightLit) || (rightRefs && leftLit) || (leftRefs && rightRefs)
		case ast.OpAnd:
			return p.predicateRejectsNull(n.Left, tables) || p.predicateRejectsNull(n.Right, tables)
		case ast.OpOr:
			return p.predicateRejectsNull(n.Left, tables) && p.predicateRejectsNull(n.Right, tables)
		}
		return false
	case *ast.LikeExpr:
		return ExprReferencesTables(n.Expr, tables)
	case *ast.InExpr:
		return ExprReferencesTables(n.Expr, tables)
	case *ast.BetweenExpr:
		return ExprReferencesTables(n.Expr, tables)
	case *ast.MatchExpr:
		return ExprReferencesTables(n.Expr, tables)
	default:
		return false
	}
}
