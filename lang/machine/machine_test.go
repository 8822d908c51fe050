package machine_test

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/lovage/internal/filetest"
	"github.com/mna/lovage/lang/machine"
)

var testUpdateMachineTests = flag.Bool("test.update-machine-tests", false, "If set, replace expected machine test results with actual results.")

// TestExecFiles runs the scripts in testdata/in/*.lov and compares the
// printed output and the reported error against the golden files in
// testdata/out. A missing golden file asserts empty output.
func TestExecFiles(t *testing.T) {
	ctx := context.Background()
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, name := range filetest.SourceFiles(t, srcDir, ".lov") {
		t.Run(name, func(t *testing.T) {
			b, err := os.ReadFile(filepath.Join(srcDir, name))
			require.NoError(t, err)

			var out bytes.Buffer
			th := &machine.Thread{Stdout: &out}
			runErr := th.RunScript(ctx, string(b))
			var errOut string
			if runErr != nil {
				errOut = runErr.Error() + "\n"
			}
			filetest.DiffGolden(t, resultDir, name, ".want", out.String(), testUpdateMachineTests)
			filetest.DiffGolden(t, resultDir, name, ".err", errOut, testUpdateMachineTests)
		})
	}
}

func runWithInspector(t *testing.T, src string) *machine.Inspector {
	t.Helper()

	insp := &machine.Inspector{}
	th := &machine.Thread{Stdout: new(bytes.Buffer), Inspector: insp}
	require.NoError(t, th.RunScript(context.Background(), src))
	return insp
}

func TestStackSnapshots(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "arithmetic",
			src:  "(-1 + 2) * 3 - -4;",
			want: `== VM Stack Snapshot ==
[<script>]
[<script>, 1]
[<script>, -1]
[<script>, -1, 2]
[<script>, 1]
[<script>, 1, 3]
[<script>, 3]
[<script>, 3, 4]
[<script>, 3, -4]
[<script>, 7]
[<script>]
[<script>, nil]
`,
		},
		{
			name: "comparison",
			src:  "!(5 - 4 > 3 * 2 == !nil);",
			want: `== VM Stack Snapshot ==
[<script>]
[<script>, 5]
[<script>, 5, 4]
[<script>, 1]
[<script>, 1, 3]
[<script>, 1, 3, 2]
[<script>, 1, 6]
[<script>, false]
[<script>, false, nil]
[<script>, false, true]
[<script>, false]
[<script>, true]
[<script>]
[<script>, nil]
`,
		},
		{
			name: "concat",
			src:  `"aha" + "b";`,
			want: `== VM Stack Snapshot ==
[<script>]
[<script>, "aha"]
[<script>, "aha", "b"]
[<script>, "ahab"]
[<script>]
[<script>, nil]
`,
		},
		{
			name: "globals",
			src: `var a = "aaa";
var b = "bbb";
a = "assign add " + b;
print a;
`,
			want: `== VM Stack Snapshot ==
[<script>]
[<script>, "aaa"]
[<script>]
[<script>, "bbb"]
[<script>]
[<script>, "assign add "]
[<script>, "assign add ", "bbb"]
[<script>, "assign add bbb"]
[<script>, "assign add bbb"]
[<script>]
[<script>, "assign add bbb"]
[<script>]
[<script>, nil]
`,
		},
		{
			name: "and-or",
			src: `nil and "bad";
1 or true;
`,
			want: `== VM Stack Snapshot ==
[<script>]
[<script>, nil]
[<script>, nil]
[<script>]
[<script>, 1]
[<script>, 1]
[<script>, 1]
[<script>]
[<script>, nil]
`,
		},
		{
			name: "if-else",
			src:  `if (true) print "yes"; else print "no";`,
			want: `== VM Stack Snapshot ==
[<script>]
[<script>, true]
[<script>, true]
[<script>]
[<script>, "yes"]
[<script>]
[<script>]
[<script>, nil]
`,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			insp := runWithInspector(t, c.src)
			assert.Equal(t, c.want, insp.DebugStack())
		})
	}
}

func TestInspectorBytecode(t *testing.T) {
	src := `fun outer() {
  var x = 1;
  fun inner() { print x; }
  return inner;
}
outer()();
`
	// functions render innermost first, the script last
	want := `== <fun inner> ==
0000 GetUpvalue          0
0002 Print
0003 Nil
0004 Return
== <fun outer> ==
0000 Constant            0 '1'
0002 Closure             1 <fun inner>
0004 |                     local 1
0006 GetLocal            2
0008 Return
0009 Nil
0010 Return
== <script> ==
0000 Closure             1 <fun outer>
0002 DefineGlobal        0 '"outer"'
0004 GetGlobal           2 '"outer"'
0006 Call                0
0008 Call                0
0010 Pop
0011 Nil
0012 Return
`
	insp := runWithInspector(t, src)
	assert.Equal(t, want, insp.DebugBytecode())
}

func TestRuntimeErrors(t *testing.T) {
	cases := []struct {
		src string
		err string
	}{
		{`-"a";`, "Operand must be a number."},
		{`!nil - 1;`, "Operand must be a number."},
		{`1 < "a";`, "Operand must be a number."},
		{`"a" > 1;`, "Operand must be a number."},
		{`nil * 2;`, "Operand must be a number."},
		{`1 + "a";`, "Operands must be two numbers or two strings."},
		{`"a" + 1;`, "Operands must be two numbers or two strings."},
		{`nil + nil;`, "Operands must be two numbers or two strings."},
		{`print a;`, "Undefined variable."},
		{`a = 1;`, "Undefined variable."},
		{`1();`, "Can only call functions and classes."},
		{`"no"();`, "Can only call functions and classes."},
		{`true();`, "Can only call functions and classes."},
		{`fun f(a) {} f(1, 2);`, "Expected 1 arguments but got 2."},
		{`fun f(a, b) {} f();`, "Expected 2 arguments but got 0."},
		{`fun f() { f(); } f();`, "stack overflow."},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			th := &machine.Thread{Stdout: new(bytes.Buffer)}
			err := th.RunScript(context.Background(), c.src)
			require.EqualError(t, err, c.err)
		})
	}
}

func TestGlobals(t *testing.T) {
	th := &machine.Thread{Stdout: new(bytes.Buffer)}
	require.NoError(t, th.RunScript(context.Background(), `var a = 42;`))

	v, ok := th.Global("a")
	require.True(t, ok)
	assert.Equal(t, machine.Number(42), v)

	_, ok = th.Global("b")
	assert.False(t, ok)
}

func TestSetGlobalDoesNotDefine(t *testing.T) {
	th := &machine.Thread{Stdout: new(bytes.Buffer)}
	err := th.RunScript(context.Background(), `a = 1;`)
	require.EqualError(t, err, "Undefined variable.")

	// the failing assignment must not have created the binding
	_, ok := th.Global("a")
	assert.False(t, ok)
}

func TestThreadKeepsGlobalsAcrossRuns(t *testing.T) {
	var out bytes.Buffer
	th := &machine.Thread{Stdout: &out}
	ctx := context.Background()
	require.NoError(t, th.RunScript(ctx, `var x = 1;`))
	require.NoError(t, th.RunScript(ctx, `print x;`))
	assert.Equal(t, "1\n", out.String())
}

func TestShortCircuit(t *testing.T) {
	ctx := context.Background()

	// the right operand would fail if evaluated
	th := &machine.Thread{Stdout: new(bytes.Buffer)}
	require.NoError(t, th.RunScript(ctx, `false and boom();`))
	require.NoError(t, th.RunScript(ctx, `true or boom();`))

	// and it does fail when the left operand lets it run
	err := th.RunScript(ctx, `true and boom();`)
	require.EqualError(t, err, "Undefined variable.")
	err = th.RunScript(ctx, `false or boom();`)
	require.EqualError(t, err, "Undefined variable.")
}

func TestMaxSteps(t *testing.T) {
	th := &machine.Thread{Stdout: new(bytes.Buffer), MaxSteps: 100}
	err := th.RunScript(context.Background(), `while (true) {}`)
	require.EqualError(t, err, "Maximum execution steps exceeded.")
}

func TestInterpret(t *testing.T) {
	// Interpret writes to os.Stdout, so only exercise the error paths
	require.NoError(t, machine.Interpret(`1 + 2;`))
	require.EqualError(t, machine.Interpret(`1 +;`), "Expect expression.")
	require.EqualError(t, machine.Interpret(`1 + nil;`), "Operands must be two numbers or two strings.")
}
