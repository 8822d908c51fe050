package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mna/lovage/lang/compiler"
)

func TestValueString(t *testing.T) {
	fn := &Function{Funcode: &compiler.Funcode{Name: "f"}}
	script := &Function{Funcode: &compiler.Funcode{}}
	cases := []struct {
		v    Value
		want string
	}{
		{Nil, "nil"},
		{True, "true"},
		{False, "false"},
		{Number(7), "7"},
		{Number(-4), "-4"},
		{Number(1.25), "1.25"},
		{String("ahab"), `"ahab"`},
		{fn, "<fun f>"},
		{script, "<script>"},
		{&Closure{Function: fn}, "<fun f>"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.v.String())
	}
}

func TestTruth(t *testing.T) {
	assert.Equal(t, False, Truth(Nil))
	assert.Equal(t, False, Truth(False))
	assert.Equal(t, True, Truth(True))
	assert.Equal(t, True, Truth(Number(0)))
	assert.Equal(t, True, Truth(String("")))
	assert.Equal(t, True, Truth(&Closure{}))
}

func TestEqual(t *testing.T) {
	cl := &Closure{}
	cases := []struct {
		x, y Value
		want bool
	}{
		{Number(1), Number(1), true},
		{Number(1), Number(2), false},
		{String("a"), String("a"), true},
		{String("a"), String("b"), false},
		{True, True, true},
		{True, False, false},
		{Nil, Nil, true},
		{Nil, False, false},
		{Number(0), False, false},
		{String("1"), Number(1), false},
		{cl, cl, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Equal(c.x, c.y), "%s == %s", c.x, c.y)
	}
}

func TestAccessors(t *testing.T) {
	n, ok := AsNumber(Number(3))
	assert.True(t, ok)
	assert.Equal(t, 3.0, n)
	_, ok = AsNumber(String("3"))
	assert.False(t, ok)

	s, ok := AsString(String("x"))
	assert.True(t, ok)
	assert.Equal(t, "x", s)
	_, ok = AsString(Nil)
	assert.False(t, ok)
}
