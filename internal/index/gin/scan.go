package gin

import "strings"

// Pair is a top-level (key, value) pair extracted from a JSON object.
// Value is only meaningful when IsScalar is true; nested objects/arrays
// contribute only their Key, per spec §4.2.
type Pair struct {
	Key      string
	Value    string
	IsScalar bool
}

// ExtractTopLevelPairs is the lightweight recursive-descent JSON reader
// used by the GIN index's extractor. The runner's JSONB expression
// functions resolve paths with gjson and do not call it, so the two code
// paths tokenize JSON separately. It walks a JSON object's top-level members, honoring
// quoted-string escapes and brace/bracket depth, and records a stringified
// scalar for string/number/boolean leaves while recording only the key for
// nested object/array values.
func ExtractTopLevelPairs(raw []byte) []Pair {
	s := &scanner{data: raw}
	s.skipWS()
	if s.pos >= len(s.data) || s.data[s.pos] != '{' {
		return nil
	}
	s.pos++

	var pairs []Pair
	for {
		s.skipWS()
		if s.pos < len(s.data) && s.data[s.pos] == '}' {
			s.pos++
			break
		}
		key, ok := s.parseString()
		if !ok {
			break
		}
		s.skipWS()
		if s.pos < len(s.data) && s.data[s.pos] == ':' {
			s.pos++
		}
		scalar, isScalar := s.skipValue()
		pairs = append(pairs, Pair{Key: key, Value: scalar, IsScalar: isScalar})

		s.skipWS()
		if s.pos < len(s.data) && s.data[s.pos] == ',' {
			s.pos++
			continue
		}
		if s.pos < len(s.data) && s.data[s.pos] == '}' {
			s.pos++
		}
		break
	}
	return pairs
}

type scanner struct {
	data []byte
	pos  int
}

func (s *scanner) skipWS() {
	for s.pos < len(s.data) {
		switch s.data[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) parseString() (string, bool) {
	if s.pos >= len(s.data) || s.data[s.pos] != '"' {
		return "", false
	}
	s.pos++
	var b strings.Builder
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c == '"' {
			s.pos++
			return b.String(), true
		}
		if c == '\\' {
			s.pos++
			if s.pos >= len(s.data) {
				return b.String(), false
			}
			switch s.data[s.pos] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case '"', '\\', '/':
				b.WriteByte(s.data[s.pos])
			case 'u':
				if s.pos+4 < len(s.data) {
					s.pos += 4
				}
			default:
				b.WriteByte(s.data[s.pos])
			}
			s.pos++
			continue
		}
		b.WriteByte(c)
		s.pos++
	}
	return b.String(), false
}

func (s *scanner) skipValue() (string, bool) {
	s.skipWS()
	if s.pos >= len(s.data) {
		return "", false
	}
	switch s.data[s.pos] {
	case '"':
		str, _ := s.parseString()
		return str, true
	case '{':
		s.skipBraced('{', '}')
		return "", false
	case '[':
		s.skipBraced('[', ']')
		return "", false
	default:
		if s.matchLiteral("true") {
			return "true", true
		}
		if s.matchLiteral("false") {
			return "false", true
		}
		if s.matchLiteral("null") {
			return "null", true
		}
		start := s.pos
		for s.pos < len(s.data) && isNumberByte(s.data[s.pos]) {
			s.pos++
		}
		if s.pos == start {
			s.pos++ // unrecognized token, don't loop forever
			return "", false
		}
		return string(s.data[start:s.pos]), true
	}
}

func (s *scanner) matchLiteral(lit string) bool {
	if s.pos+len(lit) > len(s.data) {
		return false
	}
	if string(s.data[s.pos:s.pos+len(lit)]) != lit {
		return false
	}
	s.pos += len(lit)
	return true
}

func (s *scanner) skipBraced(open, close byte) {
	depth := 0
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c == '"' {
			s.parseString()
			continue
		}
		if c == open {
			depth++
			s.pos++
			continue
		}
		if c == close {
			depth--
			s.pos++
			if depth == 0 {
				return
			}
			continue
		}
		s.pos++
	}
}

func isNumberByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E'
}
