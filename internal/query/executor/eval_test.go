package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cynos-db/cynos/internal/value"
)

func TestJsonbPathEqBooleanDistinguishesTrueFromFalse(t *testing.T) {
	doc := []byte(`{"active":false}`)
	require.True(t, jsonbPathEq(doc, "$.active", value.Boolean(false)))
	require.False(t, jsonbPathEq(doc, "$.active", value.Boolean(true)))

	doc = []byte(`{"active":true}`)
	require.True(t, jsonbPathEq(doc, "$.active", value.Boolean(true)))
	require.False(t, jsonbPathEq(doc, "$.active", value.Boolean(false)))
}

func TestJsonbPathEqStringAndNumber(t *testing.T) {
	doc := []byte(`{"name":"eng","count":3}`)
	require.True(t, jsonbPathEq(doc, "$.name", value.String("eng")))
	require.False(t, jsonbPathEq(doc, "$.name", value.String("sales")))
	require.True(t, jsonbPathEq(doc, "$.count", value.Int64(3)))
	require.False(t, jsonbPathEq(doc, "$.count", value.Int64(4)))
}
