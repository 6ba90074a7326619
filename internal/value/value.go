// Package value defines the tagged-union cell type shared by every layer of
// the engine: index keys, row contents, expression results and dataflow
// deltas are all built out of Value.
package value

import (
	"bytes"
	"fmt"
	"math"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBoolean
	KindInt32
	KindInt64
	KindFloat64
	KindString
	KindDateTime
	KindBytes
	KindJsonb
)

// Value is a tagged union over the scalar types the engine understands.
// The zero Value is Null. Values are comparable with Compare and are safe
// to use as Go map keys via Key (maps don't support the Jsonb/Bytes
// payloads directly as keys, so Key renders a hashable string form).
type Value struct {
	kind  Kind
	b     bool
	i     int64
	f     float64
	s     string // String, Bytes (raw), Jsonb (raw JSON text)
	epoch int64  // DateTime, epoch seconds
}

func Null() Value                  { return Value{kind: KindNull} }
func Boolean(b bool) Value         { return Value{kind: KindBoolean, b: b} }
func Int32(v int32) Value          { return Value{kind: KindInt32, i: int64(v)} }
func Int64(v int64) Value          { return Value{kind: KindInt64, i: v} }
func Float64(v float64) Value      { return Value{kind: KindFloat64, f: v} }
func String(v string) Value        { return Value{kind: KindString, s: v} }
func DateTime(epoch int64) Value   { return Value{kind: KindDateTime, epoch: epoch} }
func Bytes(v []byte) Value         { return Value{kind: KindBytes, s: string(v)} }
func Jsonb(raw []byte) Value       { return Value{kind: KindJsonb, s: string(raw)} }

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsNull() bool  { return v.kind == KindNull }
func (v Value) Bool() bool    { return v.b }
func (v Value) Int() int64    { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Str() string   { return v.s }
func (v Value) Epoch() int64  { return v.epoch }
func (v Value) JsonbBytes() []byte { return []byte(v.s) }
func (v Value) BytesVal() []byte   { return []byte(v.s) }

// AsFloat coerces any numeric kind to float64; non-numeric kinds return
// (0, false).
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt32, KindInt64:
		return float64(v.i), true
	case KindFloat64:
		return v.f, true
	default:
		return 0, false
	}
}

func (v Value) typeName() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindDateTime:
		return "datetime"
	case KindBytes:
		return "bytes"
	case KindJsonb:
		return "jsonb"
	default:
		return "unknown"
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBoolean:
		return fmt.Sprintf("%t", v.b)
	case KindInt32, KindInt64:
		return fmt.Sprintf("%d", v.i)
	case KindFloat64:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindDateTime:
		return fmt.Sprintf("@%d", v.epoch)
	case KindBytes:
		return fmt.Sprintf("bytes(%d)", len(v.s))
	case KindJsonb:
		return v.s
	default:
		return "?"
	}
}

// rank orders Kinds for cross-type comparisons so that Compare gives a
// total order over every Value, not just same-kind pairs. Null sorts as
// its own minimum, per spec.
func (k Kind) rank() int {
	switch k {
	case KindNull:
		return 0
	case KindBoolean:
		return 1
	case KindInt32, KindInt64, KindFloat64:
		return 2
	case KindDateTime:
		return 3
	case KindString:
		return 4
	case KindBytes:
		return 5
	case KindJsonb:
		return 6
	default:
		return 7
	}
}

// Compare gives a total order over Value, used by B+Tree keys and ORDER BY.
// Null is its own minimum. Numeric kinds compare across Int32/Int64/Float64
// by coercion to float64.
func (v Value) Compare(other Value) int {
	if v.kind == KindNull && other.kind == KindNull {
		return 0
	}
	if v.kind == KindNull {
		return -1
	}
	if other.kind == KindNull {
		return 1
	}

	vf, vIsNum := v.AsFloat()
	of, oIsNum := other.AsFloat()
	if vIsNum && oIsNum {
		return cmpFloat(vf, of)
	}

	if v.kind.rank() != other.kind.rank() {
		if v.kind.rank() < other.kind.rank() {
			return -1
		}
		return 1
	}

	switch v.kind {
	case KindBoolean:
		if v.b == other.b {
			return 0
		}
		if !v.b {
			return -1
		}
		return 1
	case KindDateTime:
		return cmpInt64(v.epoch, other.epoch)
	case KindString, KindJsonb:
		return bytes.Compare([]byte(v.s), []byte(other.s))
	case KindBytes:
		return bytes.Compare([]byte(v.s), []byte(other.s))
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Equal uses bitwise float equality (matching Key's hashing contract), not
// the epsilon-tolerant comparison reserved for JSON value comparisons.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		// allow cross-numeric-kind equality the same way Compare does
		vf, vOK := v.AsFloat()
		of, oOK := other.AsFloat()
		if vOK && oOK {
			return vf == of
		}
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBoolean:
		return v.b == other.b
	case KindInt32, KindInt64:
		return v.i == other.i
	case KindFloat64:
		return v.f == other.f
	case KindDateTime:
		return v.epoch == other.epoch
	case KindString, KindBytes, KindJsonb:
		return v.s == other.s
	default:
		return false
	}
}

// EqualEpsilon is the tolerant comparison reserved for JSON value
// comparisons (spec §3: "epsilon-tolerant comparison only inside JSON value
// comparisons").
// float64Epsilon is Go's equivalent of Rust's f64::EPSILON, the spec's
// mandated tolerance (spec §3, §9: "ε = f64::EPSILON").
const float64Epsilon = 2.220446049250313e-16

func (v Value) EqualEpsilon(other Value) bool {
	vf, vOK := v.AsFloat()
	of, oOK := other.AsFloat()
	if vOK && oOK {
		return math.Abs(vf-of) < float64Epsilon || vf == of
	}
	return v.Equal(other)
}

// Key renders a hashable string used as a map key for hash indexes and GIN
// posting-list keys. Equal values give equal keys; the order of key strings
// does not follow Compare (for numbers, "10" sorts before "9"). It is not
// meant to be a human-readable encoding.
func (v Value) Key() string {
	switch v.kind {
	case KindNull:
		return "\x00N"
	case KindBoolean:
		if v.b {
			return "\x00Bt"
		}
		return "\x00Bf"
	case KindInt32, KindInt64, KindFloat64:
		f, _ := v.AsFloat()
		return fmt.Sprintf("\x00#%v", f)
	case KindDateTime:
		return fmt.Sprintf("\x00T%d", v.epoch)
	case KindString:
		return "\x00S" + v.s
	case KindBytes:
		return "\x00X" + v.s
	case KindJsonb:
		return "\x00J" + v.s
	default:
		return "\x00?"
	}
}
