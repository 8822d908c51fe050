package compiler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		src string
		err string
	}{
		// lexical
		{"var a = @;", "Unexpected character."},
		{`var s = "abc`, "Unterminated string."},

		// parse
		{"+ 1;", "Expect expression."},
		{"print;", "Expect expression."},
		{"1 + ;", "Expect expression."},
		{"(1 + 2;", "Expect ')' after expression."},
		{"print 1", "Expect ';' after value."},
		{"1 + 2", "Expect ';' after expression."},
		{"var a = 1", "Expect ';' after variable declaration."},
		{"fun f(){ return 1 }", "Expect ';' after return value."},
		{"for (;1 2;) {}", "Expect ';' after loop condition."},
		{"if true {}", "Expect '(' after 'if'."},
		{"while true {}", "Expect '(' after 'while'."},
		{"for var a;;) {}", "Expect '(' after 'for'."},
		{"if (true {}", "Expect ')' after condition."},
		{"while (true {}", "Expect ')' after condition."},
		{"for (;; 1 {}", "Expect ')' after for clauses."},
		{"fun f() print 1;", "Expect '{' before function body."},
		{"{ var a = 1;", "Expect '}' after block."},
		{"var 1 = 2;", "Expect variable name."},
		{"fun 1() {}", "Expect function name."},
		{"fun f(1) {}", "Expect parameter name."},
		{"fun f(a, {}", "Expect parameter name."},
		{"fun f(a b) {}", "Expect ')' after parameters."},
		{"f(1;", "Expect ')' after arguments."},
		{"1 + 2 = 3;", "Invalid assignment target."},
		{"a + b = 3;", "Invalid assignment target."},

		// semantic
		{"{ var a = 1; var a = 2; }", "Already a variable with this name in this scope."},
		{"fun f(a, a) {}", "Already a variable with this name in this scope."},
		{"{ var a = a; }", "Can't read local variable in its own initializer."},
		{`{ var a = "outer"; { var a = a; } }`, "Can't read local variable in its own initializer."},
		{"return 1;", "Can't return from top-level code."},
		{"return;", "Can't return from top-level code."},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			_, err := Compile(c.src)
			require.EqualError(t, err, c.err)
		})
	}
}

func TestCompileLimits(t *testing.T) {
	t.Run("locals", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString("{\n")
		for i := 0; i < 300; i++ {
			fmt.Fprintf(&sb, "var v%d = %d;\n", i, i)
		}
		sb.WriteString("}\n")
		_, err := Compile(sb.String())
		require.EqualError(t, err, "Too many local variables in function.")
	})

	t.Run("constants", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i < 300; i++ {
			fmt.Fprintf(&sb, "%d;\n", i)
		}
		_, err := Compile(sb.String())
		require.EqualError(t, err, "Too many constants in one chunk.")
	})

	t.Run("parameters", func(t *testing.T) {
		params := make([]string, 256)
		for i := range params {
			params[i] = fmt.Sprintf("p%d", i)
		}
		src := fmt.Sprintf("fun f(%s) {}", strings.Join(params, ", "))
		_, err := Compile(src)
		require.EqualError(t, err, "Can't have more than 255 parameters.")
	})

	t.Run("arguments", func(t *testing.T) {
		// nil arguments emit no constants, so the argument limit is what
		// trips first
		args := make([]string, 256)
		for i := range args {
			args[i] = "nil"
		}
		src := fmt.Sprintf("f(%s);", strings.Join(args, ", "))
		_, err := Compile(src)
		require.EqualError(t, err, "Can't have more than 255 arguments.")
	})
}

func TestCompileDasm(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "arithmetic",
			src:  "(-1 + 2) * 3 - -4;",
			want: `== <script> ==
0000 Constant            0 '1'
0002 Negate
0003 Constant            1 '2'
0005 Add
0006 Constant            2 '3'
0008 Multiply
0009 Constant            3 '4'
0011 Negate
0012 Subtract
0013 Pop
0014 Nil
0015 Return
`,
		},
		{
			name: "comparison",
			src:  "!(5 - 4 > 3 * 2 == !nil);",
			want: `== <script> ==
0000 Constant            0 '5'
0002 Constant            1 '4'
0004 Subtract
0005 Constant            2 '3'
0007 Constant            3 '2'
0009 Multiply
0010 Greater
0011 Nil
0012 Not
0013 Equal
0014 Not
0015 Pop
0016 Nil
0017 Return
`,
		},
		{
			name: "globals",
			src: `var a = "aaa";
var b = "bbb";
a = "assign add " + b;
print a;
`,
			want: `== <script> ==
0000 Constant            1 '"aaa"'
0002 DefineGlobal        0 '"a"'
0004 Constant            3 '"bbb"'
0006 DefineGlobal        2 '"b"'
0008 Constant            5 '"assign add "'
0010 GetGlobal           6 '"b"'
0012 Add
0013 SetGlobal           4 '"a"'
0015 Pop
0016 GetGlobal           7 '"a"'
0018 Print
0019 Nil
0020 Return
`,
		},
		{
			name: "locals",
			src: `{
  var a = "first";
  var b = "second";
  print a + b;
}
`,
			want: `== <script> ==
0000 Constant            0 '"first"'
0002 Constant            1 '"second"'
0004 GetLocal            1
0006 GetLocal            2
0008 Add
0009 Print
0010 Pop
0011 Pop
0012 Nil
0013 Return
`,
		},
		{
			name: "if-else",
			src:  `if (true) print "yes"; else print "no";`,
			want: `== <script> ==
0000 True
0001 JumpIfFalse         1 -> 11
0004 Pop
0005 Constant            0 '"yes"'
0007 Print
0008 Jump                8 -> 15
0011 Pop
0012 Constant            1 '"no"'
0014 Print
0015 Nil
0016 Return
`,
		},
		{
			name: "and-or",
			src: `nil and "bad";
1 or true;
`,
			want: `== <script> ==
0000 Nil
0001 JumpIfFalse         1 -> 7
0004 Pop
0005 Constant            0 '"bad"'
0007 Pop
0008 Constant            1 '1'
0010 JumpIfFalse        10 -> 16
0013 Jump               13 -> 18
0016 Pop
0017 True
0018 Pop
0019 Nil
0020 Return
`,
		},
		{
			name: "while",
			src: `var a = 0;
while (a < 3) {
  a = a + 1;
}
`,
			want: `== <script> ==
0000 Constant            1 '0'
0002 DefineGlobal        0 '"a"'
0004 GetGlobal           2 '"a"'
0006 Constant            3 '3'
0008 Less
0009 JumpIfFalse         9 -> 24
0012 Pop
0013 GetGlobal           5 '"a"'
0015 Constant            6 '1'
0017 Add
0018 SetGlobal           4 '"a"'
0020 Pop
0021 Loop               21 -> 4
0024 Pop
0025 Nil
0026 Return
`,
		},
		{
			name: "for",
			src:  `for (var a = 0; a < 3; a = a + 1) print a;`,
			want: `== <script> ==
0000 Constant            0 '0'
0002 GetLocal            1
0004 Constant            1 '3'
0006 Less
0007 JumpIfFalse         7 -> 31
0010 Pop
0011 Jump               11 -> 25
0014 GetLocal            1
0016 Constant            2 '1'
0018 Add
0019 SetLocal            1
0021 Pop
0022 Loop               22 -> 2
0025 GetLocal            1
0027 Print
0028 Loop               28 -> 14
0031 Pop
0032 Pop
0033 Nil
0034 Return
`,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fn, err := Compile(c.src)
			require.NoError(t, err)
			assert.Equal(t, c.want, Dasm(fn))
		})
	}
}

func TestCompileClosureDasm(t *testing.T) {
	src := `fun outer() {
  var x = 1;
  fun inner() { print x; }
  return inner;
}
outer()();
`
	fn, err := Compile(src)
	require.NoError(t, err)

	wantScript := `== <script> ==
0000 Closure             1 <fun outer>
0002 DefineGlobal        0 '"outer"'
0004 GetGlobal           2 '"outer"'
0006 Call                0
0008 Call                0
0010 Pop
0011 Nil
0012 Return
`
	assert.Equal(t, wantScript, Dasm(fn))

	// only outer has a captured local (x), so only its frames need the
	// upvalue close pass
	assert.False(t, fn.HasCaptures)

	outer, ok := fn.Chunk.Constants[1].(*Funcode)
	require.True(t, ok)
	require.Equal(t, 0, outer.NumUpvalues)
	assert.True(t, outer.HasCaptures)
	wantOuter := `== <fun outer> ==
0000 Constant            0 '1'
0002 Closure             1 <fun inner>
0004 |                     local 1
0006 GetLocal            2
0008 Return
0009 Nil
0010 Return
`
	assert.Equal(t, wantOuter, Dasm(outer))

	inner, ok := outer.Chunk.Constants[1].(*Funcode)
	require.True(t, ok)
	require.Equal(t, 1, inner.NumUpvalues)
	assert.False(t, inner.HasCaptures)
	wantInner := `== <fun inner> ==
0000 GetUpvalue          0
0002 Print
0003 Nil
0004 Return
`
	assert.Equal(t, wantInner, Dasm(inner))
}

func TestFuncodeArity(t *testing.T) {
	fn, err := Compile("fun sum(a, b, c) { return a + b + c; }")
	require.NoError(t, err)
	sum, ok := fn.Chunk.Constants[1].(*Funcode)
	require.True(t, ok)
	assert.Equal(t, "sum", sum.Name)
	assert.Equal(t, 3, sum.Arity)
	assert.Equal(t, 0, sum.NumUpvalues)
	assert.False(t, sum.IsScript())
	assert.True(t, fn.IsScript())
}
