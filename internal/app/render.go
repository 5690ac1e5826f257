package app

import (
	"errors"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
)

// ErrNotJSON is returned when a response body is not a JSON document.
var ErrNotJSON = errors.New("response body is not JSON")

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

var numberLiteral = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// PrettyJSON parses body and writes it back out the way a browser's
// JSON.stringify(JSON.parse(body), null, 2) would: two spaces per level,
// numbers in their shortest JavaScript form ("0.0" becomes "0", "1e2" becomes
// "100"), the last value of a duplicated key at the key's first position, and
// integer-like keys ahead of the others in ascending order. Empty objects and
// arrays stay on one line ("{}", "[]").
func PrettyJSON(body []byte) (string, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", ErrNotJSON
	}
	iter := jsonAPI.BorrowIterator(body)
	defer jsonAPI.ReturnIterator(iter)

	root, ok := readValue(iter)
	if !ok || (iter.Error != nil && iter.Error != io.EOF) {
		return "", ErrNotJSON
	}
	// Anything after the document is trailing garbage.
	iter.WhatIsNext()
	if iter.Error != io.EOF {
		return "", ErrNotJSON
	}

	var sb strings.Builder
	sb.Grow(len(body) + len(body)/4)
	root.write(&sb, "")
	return sb.String(), nil
}

// value is a parsed JSON document node.
type value struct {
	kind   jsoniter.ValueType
	text   string // string contents or formatted number
	truth  bool
	keys   []string
	fields map[string]*value
	items  []*value
}

func readValue(iter *jsoniter.Iterator) (*value, bool) {
	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		v := &value{kind: jsoniter.ObjectValue, fields: map[string]*value{}}
		ok := iter.ReadObjectCB(func(iter *jsoniter.Iterator, key string) bool {
			if iter.Error != nil {
				return false
			}
			field, ok := readValue(iter)
			if !ok {
				return false
			}
			if _, dup := v.fields[key]; !dup {
				v.keys = append(v.keys, key)
			}
			v.fields[key] = field
			return true
		})
		return v, ok
	case jsoniter.ArrayValue:
		v := &value{kind: jsoniter.ArrayValue}
		ok := iter.ReadArrayCB(func(iter *jsoniter.Iterator) bool {
			if iter.Error != nil {
				return false
			}
			item, ok := readValue(iter)
			if !ok {
				return false
			}
			v.items = append(v.items, item)
			return true
		})
		return v, ok
	case jsoniter.StringValue:
		s := iter.ReadString()
		// A string, bool or null that ran into the end of input is truncated.
		return &value{kind: jsoniter.StringValue, text: s}, iter.Error == nil
	case jsoniter.NumberValue:
		lit := string(iter.ReadNumber())
		if !numberLiteral.MatchString(lit) {
			return nil, false
		}
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, false
		}
		return &value{kind: jsoniter.NumberValue, text: formatNumber(f)}, true
	case jsoniter.BoolValue:
		b := iter.ReadBool()
		return &value{kind: jsoniter.BoolValue, truth: b}, iter.Error == nil
	case jsoniter.NilValue:
		iter.ReadNil()
		return &value{kind: jsoniter.NilValue}, iter.Error == nil
	default:
		return nil, false
	}
}

func (v *value) write(sb *strings.Builder, indent string) {
	switch v.kind {
	case jsoniter.ObjectValue:
		if len(v.keys) == 0 {
			sb.WriteString("{}")
			return
		}
		inner := indent + "  "
		sb.WriteString("{\n")
		for i, k := range orderKeys(v.keys) {
			if i > 0 {
				sb.WriteString(",\n")
			}
			sb.WriteString(inner)
			writeString(sb, k)
			sb.WriteString(": ")
			v.fields[k].write(sb, inner)
		}
		sb.WriteString("\n" + indent + "}")
	case jsoniter.ArrayValue:
		if len(v.items) == 0 {
			sb.WriteString("[]")
			return
		}
		inner := indent + "  "
		sb.WriteString("[\n")
		for i, item := range v.items {
			if i > 0 {
				sb.WriteString(",\n")
			}
			sb.WriteString(inner)
			item.write(sb, inner)
		}
		sb.WriteString("\n" + indent + "]")
	case jsoniter.StringValue:
		writeString(sb, v.text)
	case jsoniter.NumberValue:
		sb.WriteString(v.text)
	case jsoniter.BoolValue:
		sb.WriteString(strconv.FormatBool(v.truth))
	default:
		sb.WriteString("null")
	}
}

// orderKeys puts array-index keys first in numeric order, then the rest in
// insertion order, matching JavaScript property enumeration.
func orderKeys(keys []string) []string {
	var index, named []string
	for _, k := range keys {
		if _, ok := arrayIndex(k); ok {
			index = append(index, k)
		} else {
			named = append(named, k)
		}
	}
	if len(index) == 0 {
		return keys
	}
	sort.Slice(index, func(i, j int) bool {
		a, _ := arrayIndex(index[i])
		b, _ := arrayIndex(index[j])
		return a < b
	})
	return append(index, named...)
}

func arrayIndex(key string) (uint64, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 64)
	if err != nil || n >= math.MaxUint32 {
		return 0, false
	}
	return n, true
}

// formatNumber renders f the way JavaScript's Number#toString does.
func formatNumber(f float64) string {
	switch {
	case math.IsInf(f, 0) || math.IsNaN(f):
		return "null"
	case f == 0:
		return "0"
	}
	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}
	// Shortest round-trip digits, as d.ddde±x.
	e := strconv.FormatFloat(f, 'e', -1, 64)
	mant, expPart, _ := strings.Cut(e, "e")
	digits := strings.Replace(mant, ".", "", 1)
	exp, _ := strconv.Atoi(expPart)
	k, n := len(digits), exp+1

	switch {
	case k <= n && n <= 21:
		return sign + digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return sign + digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return sign + "0." + strings.Repeat("0", -n) + digits
	}
	expSign := "+"
	if n-1 < 0 {
		expSign = "-"
	}
	out := digits[:1]
	if k > 1 {
		out += "." + digits[1:]
	}
	return sign + out + "e" + expSign + strconv.Itoa(abs(n-1))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

const hexDigits = "0123456789abcdef"

// writeString quotes s with JSON.stringify's escapes: the short forms for
// \b \f \n \r \t, \u00XX for other control characters, nothing for HTML.
func writeString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 {
				sb.WriteString(`\u00`)
				sb.WriteByte(hexDigits[r>>4])
				sb.WriteByte(hexDigits[r&0xf])
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
}
