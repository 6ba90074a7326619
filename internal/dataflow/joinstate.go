package dataflow

import "github.com/cynos-db/cynos/internal/value"

// JoinState holds both sides of a Join's index, plus per-row match
// counts so outer-join antijoin rows can be inserted and retracted as
// matches come and go. The match-count bookkeeping is what lets an
// outer join answer a delete without rescanning either side.
type JoinState struct {
	leftIndex       map[string][]*value.Row
	rightIndex      map[string][]*value.Row
	leftMatchCount  map[value.RowId]int
	rightMatchCount map[value.RowId]int
	leftColCount    int
	rightColCount   int
}

// NewJoinState builds an empty JoinState for a join whose sides are
// leftColCount/rightColCount columns wide. The widths must be known
// upfront, not learned from the first row seen on each side: an outer
// join can need to pad a row with NULLs for the *other* side before that
// side has ever produced a single row (e.g. a LEFT JOIN whose right table
// starts out empty), and a zero-row side would otherwise make every pad
// zero columns wide instead of the table's real width.
func NewJoinState(leftColCount, rightColCount int) *JoinState {
	return &JoinState{
		leftIndex:       map[string][]*value.Row{},
		rightIndex:      map[string][]*value.Row{},
		leftMatchCount:  map[value.RowId]int{},
		rightMatchCount: map[value.RowId]int{},
		leftColCount:    leftColCount,
		rightColCount:   rightColCount,
	}
}

func keyString(key []value.Value) string {
	var b []byte
	for _, v := range key {
		b = append(b, v.Key()...)
		b = append(b, '|')
	}
	return string(b)
}

func mergeRows(left, right *value.Row) *value.Row {
	values := make([]value.Value, 0, len(left.Values)+len(right.Values))
	values = append(values, left.Values...)
	values = append(values, right.Values...)
	return value.NewRow(left.Id, values)
}

func mergeRowsNullRight(left *value.Row, rightColCount int) *value.Row {
	values := make([]value.Value, 0, len(left.Values)+rightColCount)
	values = append(values, left.Values...)
	for i := 0; i < rightColCount; i++ {
		values = append(values, value.Null())
	}
	return value.NewRow(left.Id, values)
}

func mergeRowsNullLeft(right *value.Row, leftColCount int) *value.Row {
	values := make([]value.Value, 0, leftColCount+len(right.Values))
	for i := 0; i < leftColCount; i++ {
		values = append(values, value.Null())
	}
	values = append(values, right.Values...)
	return value.NewRow(right.Id, values)
}

func removeRow(rows []*value.Row, id value.RowId) []*value.Row {
	out := rows[:0]
	for _, r := range rows {
		if r.Id != id {
			out = append(out, r)
		}
	}
	return out
}

// OnLeftInsert handles a left-side insert for an inner join. Returns the
// newly matched joined rows.
func (s *JoinState) OnLeftInsert(row *value.Row, key []value.Value) []*value.Row {
	var out []*value.Row
	k := keyString(key)
	for _, r := range s.rightIndex[k] {
		out = append(out, mergeRows(row, r))
	}
	s.leftIndex[k] = append(s.leftIndex[k], row)
	return out
}

// OnLeftDelete handles a left-side delete for an inner join. Returns the
// joined rows to retract.
func (s *JoinState) OnLeftDelete(row *value.Row, key []value.Value) []*value.Row {
	var out []*value.Row
	k := keyString(key)
	for _, r := range s.rightIndex[k] {
		out = append(out, mergeRows(row, r))
	}
	if rows, ok := s.leftIndex[k]; ok {
		rows = removeRow(rows, row.Id)
		if len(rows) == 0 {
			delete(s.leftIndex, k)
		} else {
			s.leftIndex[k] = rows
		}
	}
	return out
}

// OnRightInsert is OnLeftInsert's mirror for the right side.
func (s *JoinState) OnRightInsert(row *value.Row, key []value.Value) []*value.Row {
	var out []*value.Row
	k := keyString(key)
	for _, l := range s.leftIndex[k] {
		out = append(out, mergeRows(l, row))
	}
	s.rightIndex[k] = append(s.rightIndex[k], row)
	return out
}

// OnRightDelete is OnLeftDelete's mirror for the right side.
func (s *JoinState) OnRightDelete(row *value.Row, key []value.Value) []*value.Row {
	var out []*value.Row
	k := keyString(key)
	for _, l := range s.leftIndex[k] {
		out = append(out, mergeRows(l, row))
	}
	if rows, ok := s.rightIndex[k]; ok {
		rows = removeRow(rows, row.Id)
		if len(rows) == 0 {
			delete(s.rightIndex, k)
		} else {
			s.rightIndex[k] = rows
		}
	}
	return out
}

func saturatingSub(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}

// OnLeftInsertOuter handles a left-side insert for LeftOuter/RightOuter/
// FullOuter joins, emitting the antijoin row when there's no match and
// retracting the opposite side's antijoin row the moment a first match
// appears.
func (s *JoinState) OnLeftInsertOuter(row *value.Row, key []value.Value, joinType JoinType) []value.RowDelta {
	var out []value.RowDelta
	k := keyString(key)
	rightRows := s.rightIndex[k]

	if len(rightRows) > 0 {
		for _, r := range rightRows {
			out = append(out, value.Insert(mergeRows(row, r)))
			rc := s.rightMatchCount[r.Id]
			if (joinType == JoinRightOuter || joinType == JoinFullOuter) && rc == 0 {
				out = append(out, value.Remove(mergeRowsNullLeft(r, s.leftColCount)))
			}
			s.rightMatchCount[r.Id] = rc + 1
		}
		s.leftMatchCount[row.Id] = len(rightRows)
	} else if joinType == JoinLeftOuter || joinType == JoinFullOuter {
		out = append(out, value.Insert(mergeRowsNullRight(row, s.rightColCount)))
		s.leftMatchCount[row.Id] = 0
	}

	s.leftIndex[k] = append(s.leftIndex[k], row)
	return out
}

// OnLeftDeleteOuter is OnLeftInsertOuter's inverse.
func (s *JoinState) OnLeftDeleteOuter(row *value.Row, key []value.Value, joinType JoinType) []value.RowDelta {
	var out []value.RowDelta
	k := keyString(key)
	matchCount := s.leftMatchCount[row.Id]
	delete(s.leftMatchCount, row.Id)

	if matchCount > 0 {
		for _, r := range s.rightIndex[k] {
			out = append(out, value.Remove(mergeRows(row, r)))
			if rc, ok := s.rightMatchCount[r.Id]; ok {
				rc = saturatingSub(rc)
				s.rightMatchCount[r.Id] = rc
				if (joinType == JoinRightOuter || joinType == JoinFullOuter) && rc == 0 {
					out = append(out, value.Insert(mergeRowsNullLeft(r, s.leftColCount)))
				}
			}
		}
	} else if joinType == JoinLeftOuter || joinType == JoinFullOuter {
		out = append(out, value.Remove(mergeRowsNullRight(row, s.rightColCount)))
	}

	if rows, ok := s.leftIndex[k]; ok {
		rows = removeRow(rows, row.Id)
		if len(rows) == 0 {
			delete(s.leftIndex, k)
		} else {
			s.leftIndex[k] = rows
		}
	}
	return out
}

// OnRightInsertOuter is OnLeftInsertOuter's mirror for the right side.
func (s *JoinState) OnRightInsertOuter(row *value.Row, key []value.Value, joinType JoinType) []value.RowDelta {
	var out []value.RowDelta
	k := keyString(key)
	leftRows := s.leftIndex[k]

	if len(leftRows) > 0 {
		for _, l := range leftRows {
			out = append(out, value.Insert(mergeRows(l, row)))
			lc := s.leftMatchCount[l.Id]
			if (joinType == JoinLeftOuter || joinType == JoinFullOuter) && lc == 0 {
				out = append(out, value.Remove(mergeRowsNullRight(l, s.rightColCount)))
			}
			s.leftMatchCount[l.Id] = lc + 1
		}
		s.rightMatchCount[row.Id] = len(leftRows)
	} else if joinType == JoinRightOuter || joinType == JoinFullOuter {
		out = append(out, value.Insert(mergeRowsNullLeft(row, s.leftColCount)))
		s.rightMatchCount[row.Id] = 0
	}

	s.rightIndex[k] = append(s.rightIndex[k], row)
	return out
}

// OnRightDeleteOuter is OnRightInsertOuter's inverse.
func (s *JoinState) OnRightDeleteOuter(row *value.Row, key []value.Value, joinType JoinType) []value.RowDelta {
	var out []value.RowDelta
	k := keyString(key)
	matchCount := s.rightMatchCount[row.Id]
	delete(s.rightMatchCount, row.Id)

	if matchCount > 0 {
		for _, l := range s.leftIndex[k] {
			out = append(out, value.Remove(mergeRows(l, row)))
			if lc, ok := s.leftMatchCount[l.Id]; ok {
				lc = saturatingSub(lc)
				s.leftMatchCount[l.Id] = lc
				if (joinType == JoinLeftOuter || joinType == JoinFullOuter) && lc == 0 {
					out = append(out, value.Insert(mergeRowsNullRight(l, s.rightColCount)))
				}
			}
		}
	} else if joinType == JoinRightOuter || joinType == JoinFullOuter {
		out = append(out, value.Remove(mergeRowsNullLeft(row, s.leftColCount)))
	}

	if rows, ok := s.rightIndex[k]; ok {
		rows = removeRow(rows, row.Id)
		if len(rows) == 0 {
			delete(s.rightIndex, k)
		} else {
			s.rightIndex[k] = rows
		}
	}
	return out
}
