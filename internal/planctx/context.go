// Package planctx carries the per-query planning context: table
// statistics and the index catalog the optimizer consults (wrapping
// internal/query/optimizer.Context), plus a cache of compiled physical
// plans keyed by a fingerprint of the logical plan that produced them —
// the plan cache spec §5 names ("a plan cache ... memoizes compiled
// physical plans") without pinning down a concrete data structure.
package planctx

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cynos-db/cynos/internal/index/btree"
	"github.com/cynos-db/cynos/internal/query/ast"
	"github.com/cynos-db/cynos/internal/query/optimizer"
	"github.com/cynos-db/cynos/internal/query/physical"
)

// ExecutionContext bundles everything the planner needs beyond the
// logical plan itself: table/index statistics and a cache of previously
// compiled physical plans.
type ExecutionContext struct {
	Stats     *optimizer.Context
	planCache *lru.Cache[string, physical.Plan]
}

// DefaultPlanCacheSize is used when NewExecutionContext is built without
// an explicit size, matching internal/config's default.
const DefaultPlanCacheSize = 256

// NewExecutionContext builds an ExecutionContext with a plan cache sized
// cacheSize (falling back to DefaultPlanCacheSize for cacheSize <= 0).
func NewExecutionContext(stats *optimizer.Context, cacheSize int) *ExecutionContext {
	if cacheSize <= 0 {
		cacheSize = DefaultPlanCacheSize
	}
	cache, _ := lru.New[string, physical.Plan](cacheSize)
	return &ExecutionContext{Stats: stats, planCache: cache}
}

// Lookup returns the cached physical plan for logical, if present.
func (ec *ExecutionContext) Lookup(logical ast.LogicalPlan) (physical.Plan, bool) {
	if ec == nil || ec.planCache == nil {
		return nil, false
	}
	return ec.planCache.Get(Fingerprint(logical))
}

// Store caches plan under logical's fingerprint, evicting the least
// recently used entry if the cache is full.
func (ec *ExecutionContext) Store(logical ast.LogicalPlan, plan physical.Plan) {
	if ec == nil || ec.planCache == nil {
		return
	}
	ec.planCache.Add(Fingerprint(logical), plan)
}

// Len reports how many plans are currently cached.
func (ec *ExecutionContext) Len() int {
	if ec == nil || ec.planCache == nil {
		return 0
	}
	return ec.planCache.Len()
}

// Purge empties the plan cache, e.g. after a schema change invalidates
// every previously compiled plan.
func (ec *ExecutionContext) Purge() {
	if ec == nil || ec.planCache == nil {
		return
	}
	ec.planCache.Purge()
}

// Fingerprint derives a cache key from logical's shape: a deterministic
// tree-walk string serialization, not a pointer identity, so two
// structurally identical plans built from two separate parses collide on
// the same cache entry.
func Fingerprint(plan ast.LogicalPlan) string {
	var b strings.Builder
	writeFingerprint(&b, plan)
	return b.String()
}

func writeFingerprint(b *strings.Builder, plan ast.LogicalPlan) {
	if plan == nil {
		b.WriteString("-")
		return
	}
	switch n := plan.(type) {
	case *ast.Scan:
		b.WriteString("scan(")
		b.WriteString(n.Table)
		b.WriteString(")")
	case *ast.IndexScan:
		b.WriteString("idxscan(")
		b.WriteString(n.Table)
		b.WriteString(".")
		b.WriteString(n.Index)
		b.WriteString(",")
		writeRangeFingerprint(b, n.Range)
		b.WriteString(",")
		b.WriteString(strconv.FormatBool(n.Reverse))
		b.WriteString(",")
		if n.Limit != nil {
			b.WriteString(strconv.Itoa(*n.Limit))
		} else {
			b.WriteString("-")
		}
		b.WriteString(",")
		b.WriteString(strconv.Itoa(n.Offset))
		b.WriteString(")")
	case *ast.IndexGet:
		b.WriteString("idxget(")
		b.WriteString(n.Table)
		b.WriteString(".")
		b.WriteString(n.Index)
		b.WriteString(",")
		writeExprFingerprint(b, n.Key)
		b.WriteString(")")
	case *ast.IndexInGet:
		b.WriteString("idxinget(")
		b.WriteString(n.Table)
		b.WriteString(".")
		b.WriteString(n.Index)
		for _, k := range n.Keys {
			b.WriteString(",")
			writeExprFingerprint(b, k)
		}
		b.WriteString(")")
	case *ast.GinIndexScan:
		b.WriteString("ginscan(")
		b.WriteString(n.Table)
		b.WriteString(".")
		b.WriteString(n.Index)
		b.WriteString(",")
		b.WriteString(n.Key)
		b.WriteString(",")
		writeExprFingerprint(b, n.Value)
		b.WriteString(")")
	case *ast.GinIndexScanMulti:
		b.WriteString("ginscanmulti(")
		b.WriteString(n.Table)
		b.WriteString(".")
		b.WriteString(n.Index)
		for _, p := range n.Pairs {
			b.WriteString(",")
			b.WriteString(p.Key)
			b.WriteString(",")
			writeExprFingerprint(b, p.Value)
		}
		b.WriteString(")")
	case *ast.Filter:
		b.WriteString("filter(")
		writeFingerprint(b, n.Input)
		b.WriteString(",")
		writeExprFingerprint(b, n.Predicate)
		b.WriteString(")")
	case *ast.Project:
		b.WriteString("project(")
		writeFingerprint(b, n.Input)
		for _, c := range n.Columns {
			b.WriteString(",")
			writeExprFingerprint(b, c.Expr)
		}
		b.WriteString(")")
	case *ast.Join:
		b.WriteString("join")
		b.WriteString(strconv.Itoa(int(n.Type)))
		b.WriteString("(")
		writeFingerprint(b, n.Left)
		b.WriteString(",")
		writeFingerprint(b, n.Right)
		b.WriteString(",")
		writeExprFingerprint(b, n.Condition)
		b.WriteString(")")
	case *ast.Aggregate:
		b.WriteString("agg(")
		writeFingerprint(b, n.Input)
		for _, g := range n.GroupBy {
			b.WriteString(",")
			writeExprFingerprint(b, g)
		}
		for _, a := range n.Aggregates {
			b.WriteString(",")
			b.WriteString(a.Func.String())
			writeExprFingerprint(b, a.Arg)
		}
		b.WriteString(")")
	case *ast.Sort:
		b.WriteString("sort(")
		writeFingerprint(b, n.Input)
		for _, k := range n.OrderBy {
			b.WriteString(",")
			writeExprFingerprint(b, k.Expr)
			b.WriteString(strconv.FormatBool(k.Desc))
		}
		b.WriteString(")")
	case *ast.Limit:
		b.WriteString("limit(")
		writeFingerprint(b, n.Input)
		b.WriteString(",")
		b.WriteString(strconv.Itoa(n.Limit))
		b.WriteString(",")
		b.WriteString(strconv.Itoa(n.Offset))
		b.WriteString(",")
		b.WriteString(strconv.FormatBool(n.HasLimit))
		b.WriteString(")")
	case *ast.CrossProduct:
		b.WriteString("cross(")
		writeFingerprint(b, n.Left)
		b.WriteString(",")
		writeFingerprint(b, n.Right)
		b.WriteString(")")
	case *ast.Union:
		b.WriteString("union(")
		writeFingerprint(b, n.Left)
		b.WriteString(",")
		writeFingerprint(b, n.Right)
		b.WriteString(",")
		b.WriteString(strconv.FormatBool(n.All))
		b.WriteString(")")
	case *ast.Empty:
		b.WriteString("empty()")
	default:
		b.WriteString("?")
	}
}

// writeRangeFingerprint encodes every field of a btree.KeyRange, since
// two IndexScan nodes over the same table/index with different bounds
// (e.g. "age > 5 AND age < 10" vs "age > 100") must never collide.
func writeRangeFingerprint(b *strings.Builder, r btree.KeyRange) {
	b.WriteString(strconv.Itoa(int(r.Kind)))
	b.WriteString(r.Lo.Key())
	b.WriteString(strconv.FormatBool(r.LoExclusive))
	b.WriteString(r.Hi.Key())
	b.WriteString(strconv.FormatBool(r.HiExclusive))
}

func writeExprFingerprint(b *strings.Builder, e ast.Expr) {
	if e == nil {
		b.WriteString("-")
		return
	}
	switch x := e.(type) {
	case *ast.Column:
		b.WriteString(x.Table)
		b.WriteString(".")
		b.WriteString(x.Name)
	case *ast.Literal:
		b.WriteString(x.Value.Key())
	case *ast.BinaryExpr:
		b.WriteString("(")
		writeExprFingerprint(b, x.Left)
		b.WriteString(strconv.Itoa(int(x.Op)))
		writeExprFingerprint(b, x.Right)
		b.WriteString(")")
	case *ast.UnaryExpr:
		b.WriteString(strconv.Itoa(int(x.Op)))
		writeExprFingerprint(b, x.Expr)
	case *ast.InExpr:
		writeExprFingerprint(b, x.Expr)
		b.WriteString("in")
		b.WriteString(strconv.FormatBool(x.Negated))
		for _, v := range x.List {
			writeExprFingerprint(b, v)
		}
	case *ast.BetweenExpr:
		writeExprFingerprint(b, x.Expr)
		b.WriteString("between")
		b.WriteString(strconv.FormatBool(x.Negated))
		writeExprFingerprint(b, x.Lo)
		writeExprFingerprint(b, x.Hi)
	case *ast.LikeExpr:
		writeExprFingerprint(b, x.Expr)
		b.WriteString("like")
		b.WriteString(strconv.FormatBool(x.Negated))
		writeExprFingerprint(b, x.Pattern)
	case *ast.MatchExpr:
		writeExprFingerprint(b, x.Expr)
		b.WriteString("match")
		b.WriteString(strconv.FormatBool(x.Negated))
		writeExprFingerprint(b, x.Pattern)
	case *ast.FuncCall:
		b.WriteString(x.Name)
		b.WriteString("(")
		for _, a := range x.Args {
			writeExprFingerprint(b, a)
		}
		b.WriteString(")")
	default:
		b.WriteString("?")
	}
}
