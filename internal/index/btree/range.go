package btree

import "github.com/cynos-db/cynos/internal/value"

// RangeKind tags the variant of a KeyRange.
type RangeKind uint8

const (
	RangeAll RangeKind = iota
	RangeOnly
	RangeLower
	RangeUpper
	RangeBound
)

// KeyRange is the sole range descriptor accepted by index scans, matching
// the original implementation's KeyRange<Value> enum.
type KeyRange struct {
	Kind        RangeKind
	Lo, Hi      value.Value
	LoExclusive bool
	HiExclusive bool
}

func All() KeyRange { return KeyRange{Kind: RangeAll} }
func Only(v value.Value) KeyRange { return KeyRange{Kind: RangeOnly, Lo: v} }

func Lower(v value.Value, exclusive bool) KeyRange {
	return KeyRange{Kind: RangeLower, Lo: v, LoExclusive: exclusive}
}

func Upper(v value.Value, exclusive bool) KeyRange {
	return KeyRange{Kind: RangeUpper, Hi: v, HiExclusive: exclusive}
}

func Bound(lo, hi value.Value, loExclusive, hiExclusive bool) KeyRange {
	return KeyRange{Kind: RangeBound, Lo: lo, Hi: hi, LoExclusive: loExclusive, HiExclusive: hiExclusive}
}

// below reports whether k falls strictly before the range's lower bound.
func (r KeyRange) below(k value.Value) bool {
	switch r.Kind {
	case RangeOnly:
		return k.Compare(r.Lo) < 0
	case RangeLower, RangeBound:
		c := k.Compare(r.Lo)
		if r.LoExclusive {
			return c <= 0
		}
		return c < 0
	default:
		return false
	}
}

// above reports whether k falls strictly beyond the range's upper bound.
func (r KeyRange) above(k value.Value) bool {
	switch r.Kind {
	case RangeOnly:
		return k.Compare(r.Lo) > 0
	case RangeUpper, RangeBound:
		c := k.Compare(r.Hi)
		if r.HiExclusive {
			return c >= 0
		}
		return c > 0
	default:
		return false
	}
}

// GetRange walks the leaf sibling chain collecting row ids whose key falls
// within r. reverse walks right-to-left. skip drops leading matches before
// limit (if non-nil) caps the result size.
func (t *Tree) GetRange(r KeyRange, reverse bool, limit *int, skip int) []value.RowId {
	var cur NodeId
	if reverse {
		switch r.Kind {
		case RangeAll, RangeLower:
			cur = t.rightmostLeaf()
		case RangeOnly:
			cur = t.findLeaf(r.Lo)
		default:
			cur = t.findLeaf(r.Hi)
		}
	} else {
		switch r.Kind {
		case RangeAll, RangeUpper:
			cur = t.leftmostLeaf()
		default:
			cur = t.findLeaf(r.Lo)
		}
	}

	result := []value.RowId{}
	skipped := 0

outer:
	for cur != nilNode {
		n := t.arena[cur]
		if n == nil {
			break
		}
		n_len := len(n.keys)
		for i := 0; i < n_len; i++ {
			idx := i
			if reverse {
				idx = n_len - 1 - i
			}
			k := n.keys[idx]
			if reverse {
				if r.below(k) {
					break outer
				}
				if r.above(k) {
					continue
				}
			} else {
				if r.above(k) {
					break outer
				}
				if r.below(k) {
					continue
				}
			}
			for _, rid := range n.rowLists[idx] {
				if skipped < skip {
					skipped++
					continue
				}
				result = append(result, rid)
				if limit != nil && len(result) >= *limit {
					return result
				}
			}
		}
		if reverse {
			cur = n.prev
		} else {
			cur = n.next
		}
	}
	return result
}
