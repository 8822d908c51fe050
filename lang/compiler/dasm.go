package compiler

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Dasm renders the human-readable disassembly of a single compiled
// function, prefixed with its display name. Nested functions appear
// only as constants; disassemble them separately.
func Dasm(fn *Funcode) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "== %s ==\n", fn)
	for off := 0; off < len(fn.Chunk.Code); {
		off = dasmInstruction(&buf, &fn.Chunk, off)
	}
	return buf.String()
}

func dasmInstruction(buf *strings.Builder, c *Chunk, off int) int {
	fmt.Fprintf(buf, "%04d ", off)

	op := Opcode(c.Code[off])
	switch op {
	case CONSTANT, GETGLOBAL, DEFINEGLOBAL, SETGLOBAL:
		ix := c.Code[off+1]
		fmt.Fprintf(buf, "%-16s %4d '%s'\n", op, ix, debugConstant(c.Constants[ix]))
		return off + 2

	case GETLOCAL, SETLOCAL, GETUPVALUE, SETUPVALUE, CALL:
		fmt.Fprintf(buf, "%-16s %4d\n", op, c.Code[off+1])
		return off + 2

	case JUMP, JUMPIFFALSE, LOOP:
		offset := int(binary.LittleEndian.Uint16(c.Code[off+1:]))
		to := off + 3 + offset
		if op == LOOP {
			to = off + 3 - offset
		}
		fmt.Fprintf(buf, "%-16s %4d -> %d\n", op, off, to)
		return off + 3

	case CLOSURE:
		ix := c.Code[off+1]
		fn := c.Constants[ix].(*Funcode)
		fmt.Fprintf(buf, "%-16s %4d %s\n", op, ix, fn)
		off += 2
		for i := 0; i < fn.NumUpvalues; i++ {
			kind := "upvalue"
			if c.Code[off] == 1 {
				kind = "local"
			}
			fmt.Fprintf(buf, "%04d %-21s %s %d\n", off, "|", kind, c.Code[off+1])
			off += 2
		}
		return off

	default:
		fmt.Fprintf(buf, "%s\n", op)
		return off + 1
	}
}

// debugConstant renders a constant the way values render at runtime:
// numbers in their shortest form, strings quoted, functions by display
// name.
func debugConstant(c Constant) string {
	switch c := c.(type) {
	case float64:
		return strconv.FormatFloat(c, 'g', -1, 64)
	case string:
		return strconv.Quote(c)
	case *Funcode:
		return c.String()
	}
	return fmt.Sprintf("%v", c)
}
