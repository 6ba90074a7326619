package optimizer

import (
	"github.com/cynos-db/cynos/internal/index/btree"
	"github.com/cynos-db/cynos/internal/query/ast"
	"github.com/cynos-db/cynos/internal/storage"
	"github.com/cynos-db/cynos/internal/value"
)

// IndexSelection rewrites Filter(Scan) patterns into index operations
// when the filter's conjuncts can be satisfied by a declared index:
// equality against a unique or non-unique index becomes IndexGet,
// IN-lists become IndexInGet, comparison chains on the same column merge
// into a single IndexScan range, and JSONB key/value predicates against a
// GIN index become GinIndexScan or GinIndexScanMulti. Leftover conjuncts
// stay behind as a Filter wrapping the index operation.
type IndexSelection struct {
	Context *Context
}

func (p *IndexSelection) Name() string { return "index_selection" }

func (p *IndexSelection) Optimize(plan ast.LogicalPlan) ast.LogicalPlan {
	return p.selectIndexes(plan)
}

func (p *IndexSelection) selectIndexes(plan ast.LogicalPlan) ast.LogicalPlan {
	switch n := plan.(type) {
	case *ast.Filter:
		input := p.selectIndexes(n.Input)
		scan, ok := input.(*ast.Scan)
		if !ok || p.Context == nil {
			return &ast.Filter{Input: input, Predicate: n.Predicate}
		}
		if rewritten, remaining := p.tryUseIndexes(scan.Table, SplitConjuncts(n.Predicate)); rewritten != nil {
			if len(remaining) == 0 {
				return rewritten
			}
			return &ast.Filter{Input: rewritten, Predicate: CombineConjuncts(remaining)}
		}
		return &ast.Filter{Input: input, Predicate: n.Predicate}
	case *ast.Project:
		return &ast.Project{Input: p.selectIndexes(n.Input), Columns: n.Columns}
	case *ast.Join:
		return &ast.Join{Left: p.selectIndexes(n.Left), Right: p.selectIndexes(n.Right), Condition: n.Condition, Type: n.Type}
	case *ast.CrossProduct:
		return &ast.CrossProduct{Left: p.selectIndexes(n.Left), Right: p.selectIndexes(n.Right)}
	case *ast.Aggregate:
		return &ast.Aggregate{Input: p.selectIndexes(n.Input), GroupBy: n.GroupBy, Aggregates: n.Aggregates}
	case *ast.Sort:
		return &ast.Sort{Input: p.selectIndexes(n.Input), OrderBy: n.OrderBy}
	case *ast.Limit:
		return &ast.Limit{Input: p.selectIndexes(n.Input), Limit: n.Limit, Offset: n.Offset, HasLimit: n.HasLimit}
	case *ast.Union:
		return &ast.Union{Left: p.selectIndexes(n.Left), Right: p.selectIndexes(n.Right), All: n.All}
	default:
		return plan
	}
}

// tryUseIndexes attempts, in priority order, a point lookup, an IN
// lookup, a merged range scan and a GIN lookup. It returns the chosen
// index plan (nil if none of the conjuncts are indexable) and the
// conjuncts not consumed by it.
func (p *IndexSelection) tryUseIndexes(table string, conjuncts []ast.Expr) (ast.LogicalPlan, []ast.Expr) {
	if plan, used := p.tryPointLookup(table, conjuncts); plan != nil {
		return plan, without(conjuncts, used)
	}
	if plan, used := p.tryInLookup(table, conjuncts); plan != nil {
		return plan, without(conjuncts, used)
	}
	if plan, used := p.tryMergedRange(table, conjuncts); plan != nil {
		return plan, without(conjuncts, used)
	}
	if plan, used := p.tryGin(table, conjuncts); plan != nil {
		return plan, without(conjuncts, used)
	}
	return nil, conjuncts
}

func (p *IndexSelection) tryPointLookup(table string, conjuncts []ast.Expr) (ast.LogicalPlan, []ast.Expr) {
	for _, c := range conjuncts {
		bin, ok := c.(*ast.BinaryExpr)
		if !ok || bin.Op != ast.OpEq {
			continue
		}
		col, lit, ok := columnLiteral(bin, table)
		if !ok {
			continue
		}
		idx, ok := p.Context.bestColumnIndex(table, col.Name)
		if !ok {
			continue
		}
		return &ast.IndexGet{Table: table, Index: idx.Name, Key: ast.Lit(lit.Value)}, []ast.Expr{c}
	}
	return nil, nil
}

func (p *IndexSelection) tryInLookup(table string, conjuncts []ast.Expr) (ast.LogicalPlan, []ast.Expr) {
	for _, c := range conjuncts {
		in, ok := c.(*ast.InExpr)
		if !ok || in.Negated {
			continue
		}
		col, ok := in.Expr.(*ast.Column)
		if !ok || col.Table != table {
			continue
		}
		idx, ok := p.Context.bestColumnIndex(table, col.Name)
		if !ok {
			continue
		}
		keys := make([]ast.Expr, 0, len(in.List))
		allLiteral := true
		for _, e := range in.List {
			if _, ok := e.(*ast.Literal); !ok {
				allLiteral = false
				break
			}
			keys = append(keys, e)
		}
		if !allLiteral || len(keys) == 0 {
			continue
		}
		return &ast.IndexInGet{Table: table, Index: idx.Name, Keys: keys}, []ast.Expr{c}
	}
	return nil, nil
}

// mergedRange accumulates the intersection of every range constraint seen
// for one column, taking the tighter bound whenever two constraints
// overlap (ported from the Rust optimizer's MergedRange).
type mergedRange struct {
	hasLower, hasUpper         bool
	lower, upper               value.Value
	lowerInclusive, upperIncl  bool
}

func (m *mergedRange) updateLower(v value.Value, inclusive bool) {
	if !m.hasLower {
		m.lower, m.lowerInclusive, m.hasLower = v, inclusive, true
		return
	}
	switch v.Compare(m.lower) {
	case 1:
		m.lower, m.lowerInclusive = v, inclusive
	case 0:
		if !inclusive {
			m.lowerInclusive = false
		}
	}
}

func (m *mergedRange) updateUpper(v value.Value, inclusive bool) {
	if !m.hasUpper {
		m.upper, m.upperIncl, m.hasUpper = v, inclusive, true
		return
	}
	switch v.Compare(m.upper) {
	case -1:
		m.upper, m.upperIncl = v, inclusive
	case 0:
		if !inclusive {
			m.upperIncl = false
		}
	}
}

func (m *mergedRange) toKeyRange() btree.KeyRange {
	switch {
	case m.hasLower && m.hasUpper:
		return btree.Bound(m.lower, m.upper, !m.lowerInclusive, !m.upperIncl)
	case m.hasLower:
		return btree.Lower(m.lower, !m.lowerInclusive)
	case m.hasUpper:
		return btree.Upper(m.upper, !m.upperIncl)
	default:
		return btree.All()
	}
}

func (p *IndexSelection) tryMergedRange(table string, conjuncts []ast.Expr) (ast.LogicalPlan, []ast.Expr) {
	byColumn := map[string]*mergedRange{}
	used := map[string][]ast.Expr{}
	for _, c := range conjuncts {
		bin, ok := c.(*ast.BinaryExpr)
		if !ok {
			continue
		}
		col, lit, ok := columnLiteral(bin, table)
		if !ok {
			continue
		}
		mr, exists := byColumn[col.Name]
		if !exists {
			mr = &mergedRange{}
			byColumn[col.Name] = mr
		}
		switch normalizeOp(bin, col) {
		case ast.OpGt:
			mr.updateLower(lit.Value, false)
		case ast.OpGe:
			mr.updateLower(lit.Value, true)
		case ast.OpLt:
			mr.updateUpper(lit.Value, false)
		case ast.OpLe:
			mr.updateUpper(lit.Value, true)
		default:
			continue
		}
		used[col.Name] = append(used[col.Name], c)
	}
	var bestColumn string
	var bestIdx IndexInfo
	found := false
	for col := range byColumn {
		idx, ok := p.Context.bestColumnIndex(table, col)
		if !ok || idx.Kind != storage.IndexBTree {
			continue
		}
		if !found || (byColumn[col].hasLower && byColumn[col].hasUpper) {
			bestColumn, bestIdx, found = col, idx, true
			if byColumn[col].hasLower && byColumn[col].hasUpper {
				break
			}
		}
	}
	if !found {
		return nil, nil
	}
	return &ast.IndexScan{Table: table, Index: bestIdx.Name, Range: byColumn[bestColumn].toKeyRange()}, used[bestColumn]
}

func (p *IndexSelection) tryGin(table string, conjuncts []ast.Expr) (ast.LogicalPlan, []ast.Expr) {
	var pairs []ast.GinPair
	var used []ast.Expr
	var idxName string
	for _, c := range conjuncts {
		fn, ok := c.(*ast.FuncCall)
		if !ok || len(fn.Args) < 2 {
			continue
		}
		col, ok := fn.Args[0].(*ast.Column)
		if !ok || col.Table != table {
			continue
		}
		idx, ok := p.Context.bestColumnIndexKind(table, col.Name, storage.IndexGin)
		if !ok {
			continue
		}
		pathLit, ok := fn.Args[1].(*ast.Literal)
		if !ok {
			continue
		}
		switch fn.Name {
		case "JSONB_PATH_EQ":
			if len(fn.Args) < 3 {
				continue
			}
			idxName = idx.Name
			pairs = append(pairs, ast.GinPair{Key: pathLit.Value.Str(), Value: fn.Args[2]})
			used = append(used, c)
		case "JSONB_EXISTS":
			idxName = idx.Name
			pairs = append(pairs, ast.GinPair{Key: pathLit.Value.Str(), Value: nil})
			used = append(used, c)
		}
	}
	if len(pairs) == 0 {
		return nil, nil
	}
	if len(pairs) == 1 {
		return &ast.GinIndexScan{Table: table, Index: idxName, Key: pairs[0].Key, Value: pairs[0].Value}, used
	}
	return &ast.GinIndexScanMulti{Table: table, Index: idxName, Pairs: pairs}, used
}

func (c *Context) bestColumnIndex(table, column string) (IndexInfo, bool) {
	if c == nil {
		return IndexInfo{}, false
	}
	if idx, ok := c.IndexOnColumn(table, column, storage.IndexHash, storage.IndexHash); ok {
		return idx, true
	}
	return c.IndexOnColumn(table, column, storage.IndexBTree, storage.IndexBTree)
}

func (c *Context) bestColumnIndexKind(table, column string, kind storage.IndexKind) (IndexInfo, bool) {
	return c.IndexOnColumn(table, column, kind, kind)
}

// columnLiteral extracts (column, literal) from a binary comparison where
// exactly one side is a literal and the other a column on table,
// regardless of which side each appears on.
func columnLiteral(bin *ast.BinaryExpr, table string) (*ast.Column, *ast.Literal, bool) {
	if col, ok := bin.Left.(*ast.Column); ok && col.Table == table {
		if lit, ok := bin.Right.(*ast.Literal); ok {
			return col, lit, true
		}
	}
	if col, ok := bin.Right.(*ast.Column); ok && col.Table == table {
		if lit, ok := bin.Left.(*ast.Literal); ok {
			return col, lit, true
		}
	}
	return nil, nil, false
}

// normalizeOp returns bin.Op as seen from the column's side: `5 < col`
// means col is greater than 5, so it normalizes to OpGt.
func normalizeOp(bin *ast.BinaryExpr, col *ast.Column) ast.BinaryOp {
	if bin.Left == ast.Expr(col) {
		return bin.Op
	}
	switch bin.Op {
	case ast.OpLt:
		return ast.OpGt
	case ast.OpLe:
		return ast.OpGe
	case ast.OpGt:
		return ast.OpLt
	case ast.OpGe:
		return ast.OpLe
	default:
		return bin.Op
	}
}

func without(all, remove []ast.Expr) []ast.Expr {
	out := make([]ast.Expr, 0, len(all))
	for _, e := range all {
		skip := false
		for _, r := range remove {
			if e == r {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, e)
		}
	}
	return out
}
