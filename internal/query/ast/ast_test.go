package ast

import (
	"testing"

	"github.com/cynos-db/cynos/internal/value"
	"github.com/stretchr/testify/require"
)

func TestInputsWalksJoinChildren(t *testing.T) {
	left := &Scan{Table: "a"}
	right := &Scan{Table: "b"}
	join := &Join{Left: left, Right: right, Type: JoinInner, Condition: Bin(Col("a", "id", 0), OpEq, Col("b", "a_id", 0))}

	children := Inputs(join)
	require.Len(t, children, 2)
	require.Same(t, left, children[0])
	require.Same(t, right, children[1])
}

func TestInputsLeafHasNoChildren(t *testing.T) {
	require.Empty(t, Inputs(&Scan{Table: "a"}))
	require.Empty(t, Inputs(&Empty{}))
}

func TestBinaryOpIsComparison(t *testing.T) {
	require.True(t, OpEq.IsComparison())
	require.True(t, OpGe.IsComparison())
	require.False(t, OpAnd.IsComparison())
	require.False(t, OpAdd.IsComparison())
}

func TestExprConstructorsBuildExpectedShape(t *testing.T) {
	e := Bin(Col("t", "x", 1), OpGt, Lit(value.Int64(5)))
	require.Equal(t, OpGt, e.Op)
	col, ok := e.Left.(*Column)
	require.True(t, ok)
	require.Equal(t, "x", col.Name)
	lit, ok := e.Right.(*Literal)
	require.True(t, ok)
	require.Equal(t, int64(5), lit.Value.Int())
}

func TestAggExprCarriesAlias(t *testing.T) {
	agg := &AggExpr{Func: AggCount, Arg: nil, Alias: "n"}
	require.Equal(t, AggCount, agg.Func)
	require.Nil(t, agg.Arg)
	require.Equal(t, "n", agg.Alias)
}
