package assertion

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValuesEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b interface{}
		want bool
	}{
		{"same strings", "OK", "OK", true},
		{"bytes and string", []byte("v"), "v", true},
		{"int and int64", 10, int64(10), true},
		{"int and float", 2, 2.0, true},
		{"string and int", "1", 1, false},
		{"nested lists", []interface{}{"a", []interface{}{int64(1)}}, []interface{}{"a", []int{1}}, true},
		{"list length differs", []string{"a"}, []string{"a", "b"}, false},
		{"nil and nil", nil, nil, true},
		{"nil and empty string", nil, "", false},
		{"maps", map[string]string{"a": "b"}, map[string]string{"a": "b"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValuesEqual(tt.a, tt.b))
			assert.Equal(t, tt.want, ValuesEqual(tt.b, tt.a))
		})
	}
}

func TestTruthy(t *testing.T) {
	truthy := []interface{}{true, 1, int64(-1), 0.5, "x", []byte("x"), []interface{}{nil}, map[string]int{"a": 1}, struct{}{}}
	falsy := []interface{}{nil, false, 0, int64(0), 0.0, "", []byte{}, []interface{}{}, map[string]int{}, (*Failures)(nil)}

	for _, v := range truthy {
		assert.True(t, Truthy(v), "%#v", v)
	}
	for _, v := range falsy {
		assert.False(t, Truthy(v), "%#v", v)
	}
}

func TestContainsValue(t *testing.T) {
	found, supported := ContainsValue("hello world", "o w")
	assert.True(t, found)
	assert.True(t, supported)

	found, _ = ContainsValue([]interface{}{[]byte("k1"), int64(2)}, "k1")
	assert.True(t, found)

	found, _ = ContainsValue([]interface{}{int64(2)}, 2)
	assert.True(t, found)

	found, _ = ContainsValue(map[string]int{"field": 1}, "field")
	assert.True(t, found)

	found, supported = ContainsValue("abc", 1)
	assert.False(t, found)
	assert.True(t, supported)

	_, supported = ContainsValue(int64(12), 1)
	assert.False(t, supported)
}

func TestCompare(t *testing.T) {
	c, err := Compare(1, int64(2))
	assert.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = Compare(2.5, 2)
	assert.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = Compare([]byte("b"), "b")
	assert.NoError(t, err)
	assert.Equal(t, 0, c)

	_, err = Compare("a", 1)
	assert.ErrorIs(t, err, ErrNotComparable)
}

func TestRepr(t *testing.T) {
	assert.Equal(t, `"OK"`, Repr("OK"))
	assert.Equal(t, "nil", Repr(nil))
	assert.Equal(t, "42", Repr(int64(42)))
	assert.Equal(t, `["a", 1, ["b"]]`, Repr([]interface{}{"a", 1, []string{"b"}}))
	assert.Equal(t, `"v"`, Repr([]byte("v")))
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, []interface{}{"a", []interface{}{int64(1), "b"}, "c"})

	want := "\t[\n" +
		"\t\ta\n" +
		"\t\t[\n" +
		"\t\t\t1\n" +
		"\t\t\tb\n" +
		"\t\t]\n" +
		"\t\tc\n" +
		"\t]\n"
	assert.Equal(t, want, buf.String())
}
