package compiler

import "fmt"

// An Opcode identifies a virtual machine instruction. The byte values
// are part of the chunk encoding and must not be reordered.
type Opcode uint8

// "x ADD y" style stack pictures describe the operand stack before and
// after execution of the instruction. Operands noted <...> are
// immediate bytes following the opcode in the code stream.
//
//nolint:revive
const (
	CONSTANT     Opcode = iota //             - CONSTANT<pool>     value
	NIL                        //             - NIL                nil
	TRUE                       //             - TRUE               true
	FALSE                      //             - FALSE              false
	POP                        //             x POP                -
	GETLOCAL                   //             - GETLOCAL<slot>     value
	SETLOCAL                   //             x SETLOCAL<slot>     x      (no pop)
	GETGLOBAL                  //             - GETGLOBAL<name>    value
	DEFINEGLOBAL               //             x DEFINEGLOBAL<name> -
	SETGLOBAL                  //             x SETGLOBAL<name>    x      (no pop)
	GETUPVALUE                 //             - GETUPVALUE<idx>    value
	SETUPVALUE                 //             x SETUPVALUE<idx>    x      (no pop)
	EQUAL                      //           x y EQUAL              bool
	GREATER                    //           x y GREATER            bool
	LESS                       //           x y LESS               bool
	ADD                        //           x y ADD                x+y
	SUBTRACT                   //           x y SUBTRACT           x-y
	MULTIPLY                   //           x y MULTIPLY           x*y
	DIVIDE                     //           x y DIVIDE             x/y
	NOT                        //             x NOT                bool
	NEGATE                     //             x NEGATE             -x
	PRINT                      //             x PRINT              -
	JUMP                       //             - JUMP<lo hi>        -
	JUMPIFFALSE                //          cond JUMPIFFALSE<lo hi> cond   (no pop)
	LOOP                       //             - LOOP<lo hi>        -
	CALL                       // fn arg1..argN CALL<n>            result
	CLOSURE                    //             - CLOSURE<pool pairs> closure
	RETURN                     //        result RETURN             -

	OpcodeMax = RETURN
)

// opcodeNames are the display names used by the disassembler.
var opcodeNames = [...]string{
	CONSTANT:     "Constant",
	NIL:          "Nil",
	TRUE:         "True",
	FALSE:        "False",
	POP:          "Pop",
	GETLOCAL:     "GetLocal",
	SETLOCAL:     "SetLocal",
	GETGLOBAL:    "GetGlobal",
	DEFINEGLOBAL: "DefineGlobal",
	SETGLOBAL:    "SetGlobal",
	GETUPVALUE:   "GetUpvalue",
	SETUPVALUE:   "SetUpvalue",
	EQUAL:        "Equal",
	GREATER:      "Greater",
	LESS:         "Less",
	ADD:          "Add",
	SUBTRACT:     "Subtract",
	MULTIPLY:     "Multiply",
	DIVIDE:       "Divide",
	NOT:          "Not",
	NEGATE:       "Negate",
	PRINT:        "Print",
	JUMP:         "Jump",
	JUMPIFFALSE:  "JumpIfFalse",
	LOOP:         "Loop",
	CALL:         "Call",
	CLOSURE:      "Closure",
	RETURN:       "Return",
}

func (op Opcode) String() string {
	if op <= OpcodeMax {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal op (%d)", op)
}
