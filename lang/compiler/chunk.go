package compiler

import (
	"encoding/binary"
	"errors"

	"github.com/josharian/intern"
)

// A Constant is a literal value embedded in a chunk's constant pool: a
// float64 for numbers, a string for string and name constants, or a
// *Funcode for compiled function bodies.
type Constant any

// A Chunk is the bytecode container for a single function: an
// append-only code buffer plus the constant pool referenced by one-byte
// indices. Branch arithmetic requires the code length to fit in 16
// bits, and the pool is capped at 256 entries.
type Chunk struct {
	Code      []byte
	Constants []Constant
	Lines     []int // Lines[i] is the source line that emitted Code[i]
}

// Len returns the current code length, which is also the offset of the
// next emitted instruction. It fails once the length no longer fits the
// 16-bit branch encoding.
func (c *Chunk) Len() (int, error) {
	if len(c.Code) > maxJump {
		return 0, errors.New("Too much code...")
	}
	return len(c.Code), nil
}

const maxJump = 0xffff

func (c *Chunk) push(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// AddConstant appends v to the constant pool and returns its index.
// String constants are interned so that repeated names share storage.
func (c *Chunk) AddConstant(v Constant) (byte, error) {
	ix := len(c.Constants)
	if ix > 0xff {
		return 0, errors.New("Too many constants in one chunk.")
	}
	if s, ok := v.(string); ok {
		v = intern.String(s)
	}
	c.Constants = append(c.Constants, v)
	return byte(ix), nil
}

// EmitOp appends a single operand-less instruction.
func (c *Chunk) EmitOp(op Opcode, line int) {
	c.push(byte(op), line)
}

// EmitOpByte appends an instruction with a one-byte operand: local and
// upvalue slots, global name constants and call argument counts.
func (c *Chunk) EmitOpByte(op Opcode, operand byte, line int) {
	c.push(byte(op), line)
	c.push(operand, line)
}

// EmitConstant adds v to the pool and emits CONSTANT to push it.
func (c *Chunk) EmitConstant(v Constant, line int) error {
	ix, err := c.AddConstant(v)
	if err != nil {
		return err
	}
	c.EmitOpByte(CONSTANT, ix, line)
	return nil
}

// EmitJump emits a forward branch with a two-byte placeholder operand
// and returns the placeholder's offset for a later PatchJump.
func (c *Chunk) EmitJump(op Opcode, line int) (int, error) {
	c.push(byte(op), line)
	c.push(0xff, line)
	c.push(0xff, line)
	if len(c.Code) > maxJump {
		return 0, errors.New("Too much code...")
	}
	return len(c.Code) - 2, nil
}

// PatchJump writes the branch distance from the placeholder to the
// current code position into the two placeholder bytes, little-endian.
// The offset is measured from the byte after the two-byte operand.
func (c *Chunk) PatchJump(placeholder int) error {
	if len(c.Code) > maxJump {
		return errors.New("Too much code to jump over.")
	}
	offset := len(c.Code) - placeholder - 2
	binary.LittleEndian.PutUint16(c.Code[placeholder:], uint16(offset))
	return nil
}

// EmitLoop emits a backward branch to target, an offset previously
// obtained from Len.
func (c *Chunk) EmitLoop(target, line int) error {
	c.EmitOp(LOOP, line)
	offset := len(c.Code) + 2 - target
	if offset > maxJump {
		return errors.New("Loop body too large.")
	}
	c.push(byte(offset), line)
	c.push(byte(offset>>8), line)
	return nil
}

// EmitClosure adds the compiled function to the pool and emits CLOSURE
// followed by one (isLocal, index) byte pair per captured upvalue.
func (c *Chunk) EmitClosure(fn *Funcode, upvalues []Upvalue, line int) error {
	ix, err := c.AddConstant(fn)
	if err != nil {
		return err
	}
	c.EmitOpByte(CLOSURE, ix, line)
	for _, up := range upvalues {
		if up.IsLocal {
			c.push(1, line)
		} else {
			c.push(0, line)
		}
		c.push(up.Index, line)
	}
	return nil
}
