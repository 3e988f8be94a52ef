package assertion

import (
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/stretchr/testify/assert"
)

// ErrNotComparable is returned by Compare for values without an order.
var ErrNotComparable = errors.New("values are not comparable")

// normalize folds server replies and test literals onto a small set of
// types: integers become int64, floats float64, byte slices strings and
// every slice []interface{}.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool, int64, float64:
		return x
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		if uint64(x) <= math.MaxInt64 {
			return int64(x)
		}
		return x
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return x
	case float32:
		return float64(x)
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

// ValuesEqual compares two values after normalization, so int and int64
// replies, []byte and string, or []string and []interface{} lists compare
// equal when their contents do. Integers and floats compare numerically.
func ValuesEqual(a, b interface{}) bool {
	na, nb := normalize(a), normalize(b)

	if fa, ok := toFloat(na); ok {
		if fb, ok := toFloat(nb); ok {
			ia, aInt := na.(int64)
			ib, bInt := nb.(int64)
			if aInt && bInt {
				return ia == ib
			}
			return fa == fb
		}
	}

	la, aList := na.([]interface{})
	lb, bList := nb.([]interface{})
	if aList && bList {
		if len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !ValuesEqual(la[i], lb[i]) {
				return false
			}
		}
		return true
	}

	return assert.ObjectsAreEqual(na, nb)
}

// Truthy reports whether v counts as true: non-zero numbers, non-empty
// strings and collections, true, and any other non-nil value.
func Truthy(v interface{}) bool {
	switch x := normalize(v).(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case uint64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	case []interface{}:
		return len(x) > 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// ContainsValue reports whether holder contains value. Strings contain
// substrings, lists contain elements and maps contain keys. supported is
// false when holder is none of those.
func ContainsValue(holder, value interface{}) (found, supported bool) {
	switch h := normalize(holder).(type) {
	case string:
		s, ok := normalize(value).(string)
		if !ok {
			return false, true
		}
		return strings.Contains(h, s), true
	case []interface{}:
		for _, e := range h {
			if ValuesEqual(e, value) {
				return true, true
			}
		}
		return false, true
	}

	rv := reflect.ValueOf(holder)
	if rv.Kind() == reflect.Map {
		for _, k := range rv.MapKeys() {
			if ValuesEqual(k.Interface(), value) {
				return true, true
			}
		}
		return false, true
	}
	return false, false
}

// Compare orders two numbers or two strings and returns -1, 0 or 1.
func Compare(a, b interface{}) (int, error) {
	na, nb := normalize(a), normalize(b)

	if ia, ok := na.(int64); ok {
		if ib, ok := nb.(int64); ok {
			switch {
			case ia < ib:
				return -1, nil
			case ia > ib:
				return 1, nil
			}
			return 0, nil
		}
	}
	if fa, ok := toFloat(na); ok {
		if fb, ok := toFloat(nb); ok {
			switch {
			case fa < fb:
				return -1, nil
			case fa > fb:
				return 1, nil
			}
			return 0, nil
		}
	}
	if sa, ok := na.(string); ok {
		if sb, ok := nb.(string); ok {
			return strings.Compare(sa, sb), nil
		}
	}
	return 0, fmt.Errorf("%w: %T and %T", ErrNotComparable, a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch x := normalize(v).(type) {
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func sameType(v, sample interface{}) bool {
	if v == nil || sample == nil {
		return v == nil && sample == nil
	}
	return reflect.TypeOf(v) == reflect.TypeOf(sample)
}

// Repr formats a value for assertion descriptions. Strings are quoted and
// lists are rendered element by element.
func Repr(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(x)
	case []byte:
		return strconv.Quote(string(x))
	case error:
		return strconv.Quote(x.Error())
	}
	if l, ok := normalize(v).([]interface{}); ok {
		parts := make([]string, len(l))
		for i, e := range l {
			parts[i] = Repr(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}

// Render writes v with one line per scalar, nesting lists in brackets and
// indenting each level by one more tab.
func Render(w io.Writer, v interface{}) {
	render(w, v, "\t")
}

func render(w io.Writer, v interface{}, prefix string) {
	if l, ok := normalize(v).([]interface{}); ok {
		fmt.Fprintln(w, prefix+"[")
		for _, e := range l {
			render(w, e, prefix+"\t")
		}
		fmt.Fprintln(w, prefix+"]")
		return
	}
	if s, ok := normalize(v).(string); ok {
		fmt.Fprintln(w, prefix+s)
		return
	}
	fmt.Fprintln(w, prefix+fmt.Sprint(v))
}
