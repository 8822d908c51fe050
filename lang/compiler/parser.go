package compiler

import (
	"errors"
	"strconv"

	"github.com/josharian/intern"
	"github.com/mna/lovage/lang/scanner"
	"github.com/mna/lovage/lang/token"
)

// Precedence levels of the expression grammar, lowest first.
type Precedence int

//nolint:revive
const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // ()
	PrecPrimary
)

// Up returns the next higher precedence level, saturating at
// PrecPrimary.
func (p Precedence) Up() Precedence {
	if p >= PrecPrimary {
		return PrecPrimary
	}
	return p + 1
}

// A parseFn compiles the expression form introduced (prefix) or
// continued (infix) by tok, which has already been consumed.
type parseFn func(p *parser, tok *token.Token, canAssign bool) error

// A rule binds a token kind to its expression roles. The table is
// total: kinds with no expression role have the zero rule.
type rule struct {
	prefix parseFn
	infix  parseFn
	prec   Precedence
}

var rules = [...]rule{
	token.LPAREN: {prefix: (*parser).grouping, infix: (*parser).call, prec: PrecCall},
	token.MINUS:  {prefix: (*parser).unary, infix: (*parser).binary, prec: PrecTerm},
	token.PLUS:   {infix: (*parser).binary, prec: PrecTerm},
	token.SLASH:  {infix: (*parser).binary, prec: PrecFactor},
	token.STAR:   {infix: (*parser).binary, prec: PrecFactor},
	token.BANG:   {prefix: (*parser).unary},
	token.BANGEQ: {infix: (*parser).binary, prec: PrecEquality},
	token.EQEQ:   {infix: (*parser).binary, prec: PrecEquality},
	token.GT:     {infix: (*parser).binary, prec: PrecComparison},
	token.GE:     {infix: (*parser).binary, prec: PrecComparison},
	token.LT:     {infix: (*parser).binary, prec: PrecComparison},
	token.LE:     {infix: (*parser).binary, prec: PrecComparison},
	token.IDENT:  {prefix: (*parser).variable},
	token.STRING: {prefix: (*parser).str},
	token.NUMBER: {prefix: (*parser).number},
	token.AND:    {infix: (*parser).and, prec: PrecAnd},
	token.OR:     {infix: (*parser).or, prec: PrecOr},
	token.NIL:    {prefix: (*parser).literal},
	token.TRUE:   {prefix: (*parser).literal},
	token.FALSE:  {prefix: (*parser).literal},
	token.WHILE:  {},
}

func ruleOf(k token.Kind) rule { return rules[k] }

// A parser compiles a source text in a single pass, driven by the rule
// table above. There is no intermediate syntax tree: each parse
// function emits bytecode into the innermost function frame as it
// consumes tokens. Compilation aborts on the first error.
type parser struct {
	scan     *scanner.Scanner
	peek     *token.Token // nil once the end of input is reached
	prevLine int          // line of the last consumed token
	frames   []*funcFrame
}

// Compile compiles a source text to the bytecode of its top-level
// script function.
func Compile(source string) (*Funcode, error) {
	p := &parser{scan: scanner.New(source), prevLine: 1}
	p.beginFunction("")
	if _, err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.program(); err != nil {
		return nil, err
	}
	fn, _ := p.endFunction()
	return fn, nil
}

// advance consumes and returns the lookahead token, scanning the next
// one. It returns nil at the end of input.
func (p *parser) advance() (*token.Token, error) {
	cur := p.peek
	if cur != nil {
		p.prevLine = cur.Line
	}
	next, err := p.scan.Scan()
	if err != nil {
		return nil, err
	}
	p.peek = next
	return cur, nil
}

func (p *parser) check(k token.Kind) bool {
	return p.peek != nil && p.peek.Kind == k
}

func (p *parser) match(k token.Kind) (bool, error) {
	if !p.check(k) {
		return false, nil
	}
	_, err := p.advance()
	return true, err
}

// eat consumes the lookahead if it has the wanted kind, or fails with
// msg.
func (p *parser) eat(k token.Kind, msg string) (*token.Token, error) {
	if !p.check(k) {
		return nil, errors.New(msg)
	}
	return p.advance()
}

func (p *parser) program() error {
	for p.peek != nil {
		if err := p.declaration(); err != nil {
			return err
		}
	}
	return nil
}

// parsePrecedence compiles one expression whose operators all bind at
// least as tightly as prec.
func (p *parser) parsePrecedence(prec Precedence) error {
	tok, err := p.advance()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}

	prefix := ruleOf(tok.Kind).prefix
	if prefix == nil {
		return errors.New("Expect expression.")
	}
	canAssign := prec <= PrecAssignment
	if err := prefix(p, tok, canAssign); err != nil {
		return err
	}

	for p.peek != nil && prec <= ruleOf(p.peek.Kind).prec {
		tok, err := p.advance()
		if err != nil {
			return err
		}
		infix := ruleOf(tok.Kind).infix
		if infix == nil {
			return errors.New("Expect expression.")
		}
		if err := infix(p, tok, canAssign); err != nil {
			return err
		}
	}

	if canAssign {
		if ok, err := p.match(token.EQ); err != nil {
			return err
		} else if ok {
			return errors.New("Invalid assignment target.")
		}
	}
	return nil
}

func (p *parser) expression() error {
	return p.parsePrecedence(PrecAssignment)
}

// emit helpers, all attributing the last consumed token's line.

func (p *parser) emitOp(op Opcode)               { p.chunk().EmitOp(op, p.prevLine) }
func (p *parser) emitOpByte(op Opcode, arg byte) { p.chunk().EmitOpByte(op, arg, p.prevLine) }
func (p *parser) emitConstant(v Constant) error  { return p.chunk().EmitConstant(v, p.prevLine) }
func (p *parser) emitJump(op Opcode) (int, error) {
	return p.chunk().EmitJump(op, p.prevLine)
}
func (p *parser) emitLoop(target int) error { return p.chunk().EmitLoop(target, p.prevLine) }

// expression forms (prefix and infix parse functions)

func (p *parser) number(tok *token.Token, _ bool) error {
	v, err := strconv.ParseFloat(tok.Lexeme, 64)
	if err != nil {
		return err
	}
	return p.emitConstant(v)
}

func (p *parser) str(tok *token.Token, _ bool) error {
	// strip the surrounding quotes
	return p.emitConstant(tok.Lexeme[1 : len(tok.Lexeme)-1])
}

func (p *parser) literal(tok *token.Token, _ bool) error {
	switch tok.Kind {
	case token.NIL:
		p.emitOp(NIL)
	case token.TRUE:
		p.emitOp(TRUE)
	case token.FALSE:
		p.emitOp(FALSE)
	}
	return nil
}

func (p *parser) grouping(_ *token.Token, _ bool) error {
	if err := p.expression(); err != nil {
		return err
	}
	_, err := p.eat(token.RPAREN, "Expect ')' after expression.")
	return err
}

func (p *parser) unary(tok *token.Token, _ bool) error {
	if err := p.parsePrecedence(PrecUnary); err != nil {
		return err
	}
	switch tok.Kind {
	case token.BANG:
		p.emitOp(NOT)
	case token.MINUS:
		p.emitOp(NEGATE)
	}
	return nil
}

func (p *parser) binary(tok *token.Token, _ bool) error {
	// the right operand binds one level tighter, so binary operators are
	// left-associative
	if err := p.parsePrecedence(ruleOf(tok.Kind).prec.Up()); err != nil {
		return err
	}
	switch tok.Kind {
	case token.BANGEQ:
		p.emitOp(EQUAL)
		p.emitOp(NOT)
	case token.EQEQ:
		p.emitOp(EQUAL)
	case token.GT:
		p.emitOp(GREATER)
	case token.GE:
		p.emitOp(LESS)
		p.emitOp(NOT)
	case token.LT:
		p.emitOp(LESS)
	case token.LE:
		p.emitOp(GREATER)
		p.emitOp(NOT)
	case token.PLUS:
		p.emitOp(ADD)
	case token.MINUS:
		p.emitOp(SUBTRACT)
	case token.STAR:
		p.emitOp(MULTIPLY)
	case token.SLASH:
		p.emitOp(DIVIDE)
	}
	return nil
}

func (p *parser) and(_ *token.Token, _ bool) error {
	// the left operand stays on the stack through the branch so that
	// each path pops it exactly once
	end, err := p.emitJump(JUMPIFFALSE)
	if err != nil {
		return err
	}
	p.emitOp(POP)
	if err := p.parsePrecedence(PrecAnd); err != nil {
		return err
	}
	return p.chunk().PatchJump(end)
}

func (p *parser) or(_ *token.Token, _ bool) error {
	els, err := p.emitJump(JUMPIFFALSE)
	if err != nil {
		return err
	}
	end, err := p.emitJump(JUMP)
	if err != nil {
		return err
	}
	if err := p.chunk().PatchJump(els); err != nil {
		return err
	}
	p.emitOp(POP)
	if err := p.parsePrecedence(PrecOr); err != nil {
		return err
	}
	return p.chunk().PatchJump(end)
}

func (p *parser) call(_ *token.Token, _ bool) error {
	count, err := p.argumentList()
	if err != nil {
		return err
	}
	p.emitOpByte(CALL, count)
	return nil
}

func (p *parser) argumentList() (byte, error) {
	var count int
	if !p.check(token.RPAREN) {
		for {
			if err := p.expression(); err != nil {
				return 0, err
			}
			if count == 255 {
				return 0, errors.New("Can't have more than 255 arguments.")
			}
			count++
			if ok, err := p.match(token.COMMA); err != nil {
				return 0, err
			} else if !ok {
				break
			}
		}
	}
	if _, err := p.eat(token.RPAREN, "Expect ')' after arguments."); err != nil {
		return 0, err
	}
	return byte(count), nil
}

// variable compiles a reference to name, resolving it in the order
// local, upvalue, global, and switches to the matching SET form when an
// assignment follows in assignment position.
func (p *parser) variable(tok *token.Token, canAssign bool) error {
	name := tok.Lexeme

	var (
		arg          byte
		getOp, setOp Opcode
	)
	loc, err := p.current().scopes.ResolveLocal(name)
	if err != nil {
		return err
	}
	if loc != nil {
		arg, getOp, setOp = loc.Slot, GETLOCAL, SETLOCAL
	} else {
		ix, err := p.resolveUpvalue(len(p.frames)-1, name)
		if err != nil {
			return err
		}
		if ix >= 0 {
			arg, getOp, setOp = byte(ix), GETUPVALUE, SETUPVALUE
		} else {
			cix, err := p.chunk().AddConstant(intern.String(name))
			if err != nil {
				return err
			}
			arg, getOp, setOp = cix, GETGLOBAL, SETGLOBAL
		}
	}

	if canAssign {
		if ok, err := p.match(token.EQ); err != nil {
			return err
		} else if ok {
			if err := p.expression(); err != nil {
				return err
			}
			p.emitOpByte(setOp, arg)
			return nil
		}
	}
	p.emitOpByte(getOp, arg)
	return nil
}

// declarations and statements

func (p *parser) declaration() error {
	if ok, err := p.match(token.FUN); err != nil {
		return err
	} else if ok {
		return p.funDeclaration()
	}
	if ok, err := p.match(token.VAR); err != nil {
		return err
	} else if ok {
		return p.varDeclaration()
	}
	return p.statement()
}

func (p *parser) statement() error {
	for _, stmt := range []struct {
		kind token.Kind
		fn   func() error
	}{
		{token.PRINT, p.printStatement},
		{token.IF, p.ifStatement},
		{token.RETURN, p.returnStatement},
		{token.WHILE, p.whileStatement},
		{token.FOR, p.forStatement},
		{token.LBRACE, p.blockStatement},
	} {
		if ok, err := p.match(stmt.kind); err != nil {
			return err
		} else if ok {
			return stmt.fn()
		}
	}
	return p.expressionStatement()
}

func (p *parser) printStatement() error {
	if err := p.expression(); err != nil {
		return err
	}
	if _, err := p.eat(token.SEMI, "Expect ';' after value."); err != nil {
		return err
	}
	p.emitOp(PRINT)
	return nil
}

func (p *parser) expressionStatement() error {
	if err := p.expression(); err != nil {
		return err
	}
	if _, err := p.eat(token.SEMI, "Expect ';' after expression."); err != nil {
		return err
	}
	p.emitOp(POP)
	return nil
}

func (p *parser) blockStatement() error {
	p.beginScope()
	if err := p.block(); err != nil {
		return err
	}
	p.endScope()
	return nil
}

// block compiles declarations up to the closing brace; the caller is
// responsible for the surrounding scope.
func (p *parser) block() error {
	for p.peek != nil && !p.check(token.RBRACE) {
		if err := p.declaration(); err != nil {
			return err
		}
	}
	_, err := p.eat(token.RBRACE, "Expect '}' after block.")
	return err
}

func (p *parser) beginScope() {
	p.current().scopes.Push()
}

// endScope closes the innermost block, emitting one POP per local.
// There is no distinct close-upvalue instruction: when a popped local
// was captured, the machine closes its upvalue as part of the POP, so
// the function is flagged as requiring that pass.
func (p *parser) endScope() {
	fr := p.current()
	sc := fr.scopes.Pop()
	if sc.HasCaptured() {
		fr.fn.HasCaptures = true
	}
	for i := 0; i < sc.Len(); i++ {
		p.emitOp(POP)
	}
}

func (p *parser) ifStatement() error {
	if _, err := p.eat(token.LPAREN, "Expect '(' after 'if'."); err != nil {
		return err
	}
	if err := p.expression(); err != nil {
		return err
	}
	if _, err := p.eat(token.RPAREN, "Expect ')' after condition."); err != nil {
		return err
	}

	thenEnd, err := p.emitJump(JUMPIFFALSE)
	if err != nil {
		return err
	}
	p.emitOp(POP)
	if err := p.statement(); err != nil {
		return err
	}

	elseEnd, err := p.emitJump(JUMP)
	if err != nil {
		return err
	}
	if err := p.chunk().PatchJump(thenEnd); err != nil {
		return err
	}
	p.emitOp(POP)
	if ok, err := p.match(token.ELSE); err != nil {
		return err
	} else if ok {
		if err := p.statement(); err != nil {
			return err
		}
	}
	return p.chunk().PatchJump(elseEnd)
}

func (p *parser) whileStatement() error {
	loopStart, err := p.chunk().Len()
	if err != nil {
		return err
	}
	if _, err := p.eat(token.LPAREN, "Expect '(' after 'while'."); err != nil {
		return err
	}
	if err := p.expression(); err != nil {
		return err
	}
	if _, err := p.eat(token.RPAREN, "Expect ')' after condition."); err != nil {
		return err
	}

	exit, err := p.emitJump(JUMPIFFALSE)
	if err != nil {
		return err
	}
	p.emitOp(POP)
	if err := p.statement(); err != nil {
		return err
	}
	if err := p.emitLoop(loopStart); err != nil {
		return err
	}
	if err := p.chunk().PatchJump(exit); err != nil {
		return err
	}
	p.emitOp(POP)
	return nil
}

func (p *parser) forStatement() error {
	p.beginScope()
	if _, err := p.eat(token.LPAREN, "Expect '(' after 'for'."); err != nil {
		return err
	}

	// initializer clause
	if ok, err := p.match(token.SEMI); err != nil {
		return err
	} else if !ok {
		if ok, err := p.match(token.VAR); err != nil {
			return err
		} else if ok {
			if err := p.varDeclaration(); err != nil {
				return err
			}
		} else if err := p.expressionStatement(); err != nil {
			return err
		}
	}

	loopStart, err := p.chunk().Len()
	if err != nil {
		return err
	}

	// condition clause
	exit := -1
	if ok, err := p.match(token.SEMI); err != nil {
		return err
	} else if !ok {
		if err := p.expression(); err != nil {
			return err
		}
		if _, err := p.eat(token.SEMI, "Expect ';' after loop condition."); err != nil {
			return err
		}
		if exit, err = p.emitJump(JUMPIFFALSE); err != nil {
			return err
		}
		p.emitOp(POP)
	}

	// increment clause, compiled before the body but executed after it:
	// jump over it into the body, and loop back to it from the body
	if ok, err := p.match(token.RPAREN); err != nil {
		return err
	} else if !ok {
		body, err := p.emitJump(JUMP)
		if err != nil {
			return err
		}
		incrStart, err := p.chunk().Len()
		if err != nil {
			return err
		}
		if err := p.expression(); err != nil {
			return err
		}
		p.emitOp(POP)
		if _, err := p.eat(token.RPAREN, "Expect ')' after for clauses."); err != nil {
			return err
		}
		if err := p.emitLoop(loopStart); err != nil {
			return err
		}
		loopStart = incrStart
		if err := p.chunk().PatchJump(body); err != nil {
			return err
		}
	}

	if err := p.statement(); err != nil {
		return err
	}
	if err := p.emitLoop(loopStart); err != nil {
		return err
	}
	if exit >= 0 {
		if err := p.chunk().PatchJump(exit); err != nil {
			return err
		}
		p.emitOp(POP)
	}
	p.endScope()
	return nil
}

func (p *parser) returnStatement() error {
	if p.current().fn.IsScript() {
		return errors.New("Can't return from top-level code.")
	}
	if ok, err := p.match(token.SEMI); err != nil {
		return err
	} else if ok {
		p.emitOp(NIL)
		p.emitOp(RETURN)
		return nil
	}
	if err := p.expression(); err != nil {
		return err
	}
	if _, err := p.eat(token.SEMI, "Expect ';' after return value."); err != nil {
		return err
	}
	p.emitOp(RETURN)
	return nil
}

func (p *parser) varDeclaration() error {
	tok, err := p.eat(token.IDENT, "Expect variable name.")
	if err != nil {
		return err
	}

	// at file scope the variable is a global named by a constant;
	// inside a block it is a local that starts uninitialized so that
	// its initializer cannot read it
	scopes := &p.current().scopes
	global := -1
	if scopes.IsEmpty() {
		cix, err := p.chunk().AddConstant(intern.String(tok.Lexeme))
		if err != nil {
			return err
		}
		global = int(cix)
	} else {
		if scopes.CurrentHas(tok.Lexeme) {
			return errors.New("Already a variable with this name in this scope.")
		}
		if err := scopes.DefineUninit(tok.Lexeme); err != nil {
			return err
		}
	}

	if ok, err := p.match(token.EQ); err != nil {
		return err
	} else if ok {
		if err := p.expression(); err != nil {
			return err
		}
	} else {
		p.emitOp(NIL)
	}
	if _, err := p.eat(token.SEMI, "Expect ';' after variable declaration."); err != nil {
		return err
	}

	if global >= 0 {
		p.emitOpByte(DEFINEGLOBAL, byte(global))
	} else {
		scopes.MarkInit(tok.Lexeme)
	}
	return nil
}

func (p *parser) funDeclaration() error {
	tok, err := p.eat(token.IDENT, "Expect function name.")
	if err != nil {
		return err
	}

	// a local function is bound and initialized before its body is
	// compiled so that it can call itself recursively
	scopes := &p.current().scopes
	global := -1
	if scopes.IsEmpty() {
		cix, err := p.chunk().AddConstant(intern.String(tok.Lexeme))
		if err != nil {
			return err
		}
		global = int(cix)
	} else {
		if scopes.CurrentHas(tok.Lexeme) {
			return errors.New("Already a variable with this name in this scope.")
		}
		if err := scopes.DefineUninit(tok.Lexeme); err != nil {
			return err
		}
		scopes.MarkInit(tok.Lexeme)
	}

	if err := p.function(tok.Lexeme); err != nil {
		return err
	}
	if global >= 0 {
		p.emitOpByte(DEFINEGLOBAL, byte(global))
	}
	return nil
}

// function compiles a parameter list and body into a fresh function
// frame and emits the CLOSURE that builds it at runtime.
func (p *parser) function(name string) error {
	p.beginFunction(name)
	p.beginScope()

	if _, err := p.eat(token.LPAREN, "Expect '(' after function name."); err != nil {
		return err
	}
	if !p.check(token.RPAREN) {
		for {
			fr := p.current()
			if fr.fn.Arity == 255 {
				return errors.New("Can't have more than 255 parameters.")
			}
			fr.fn.Arity++

			ptok, err := p.eat(token.IDENT, "Expect parameter name.")
			if err != nil {
				return err
			}
			if fr.scopes.CurrentHas(ptok.Lexeme) {
				return errors.New("Already a variable with this name in this scope.")
			}
			if err := fr.scopes.DefineUninit(ptok.Lexeme); err != nil {
				return err
			}
			fr.scopes.MarkInit(ptok.Lexeme)

			if ok, err := p.match(token.COMMA); err != nil {
				return err
			} else if !ok {
				break
			}
		}
	}
	if _, err := p.eat(token.RPAREN, "Expect ')' after parameters."); err != nil {
		return err
	}
	if _, err := p.eat(token.LBRACE, "Expect '{' before function body."); err != nil {
		return err
	}
	if err := p.block(); err != nil {
		return err
	}

	fn, upvalues := p.endFunction()
	return p.chunk().EmitClosure(fn, upvalues, p.prevLine)
}
