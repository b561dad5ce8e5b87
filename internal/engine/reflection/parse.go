package reflection

import (
	"fmt"
	"strings"

	"phpmodel/internal/core/errors"
	"phpmodel/internal/engine/annotation"
	"phpmodel/internal/engine/resolver"
	"phpmodel/internal/engine/token"
	"phpmodel/internal/engine/value"
)

// ParseSource tokenizes src, parses it and registers the result. A file
// that fails to parse registers nothing.
func (r *Registry) ParseSource(path string, src []byte) (*File, error) {
	f, err := ParseBytes(path, src)
	if err != nil {
		return nil, err
	}
	if err := r.AddFile(f); err != nil {
		return nil, err
	}
	return f, nil
}

// ParseBytes tokenizes and parses src without registering anything. It is
// safe to call from several goroutines.
func ParseBytes(path string, src []byte) (*File, error) {
	stream, err := token.Open(path, src)
	if err != nil {
		return nil, errors.NewParse(errors.CodeUnexpectedToken, path, "source cannot be tokenized").
			At(path, 0, 0).Wrapping(err)
	}
	return Parse(stream)
}

// Parse walks one file's tokens and builds its elements without touching
// any registry.
func Parse(cur token.Cursor) (*File, error) {
	if err := cur.Seek(0); err != nil {
		return nil, fmt.Errorf("rewind %s: %w", cur.Filename(), err)
	}
	p := &parser{cur: cur, file: cur.Filename(), attrStart: -1}
	return p.parseFile()
}

type stopReason int

const (
	stopEOF stopReason = iota
	stopHalt
	stopNamespace
	stopBrace
)

type parser struct {
	cur  token.Cursor
	file string
	// attrStart is where the attribute groups in front of the next
	// top-level declaration begin, or -1.
	attrStart int
}

// Cursor helpers. Positions are absolute token indexes.

func (p *parser) kind() token.Kind { return p.cur.Type() }
func (p *parser) text() string     { return p.cur.Current().Text }
func (p *parser) pos() int         { return p.cur.Key() }

// next moves past the current token and every insignificant one after it.
func (p *parser) next() { p.cur.SkipWhitespaces(true) }

func (p *parser) seek(pos int) {
	if pos > p.cur.Len() {
		pos = p.cur.Len()
	}
	_ = p.cur.Seek(pos)
}

func (p *parser) significant(pos int) bool {
	return pos < p.cur.Len() && !p.cur.TypeAt(pos).IsInsignificant(true)
}

// sigAfter returns the first significant position after pos, or Len.
func (p *parser) sigAfter(pos int) int {
	for i := pos + 1; i < p.cur.Len(); i++ {
		if p.significant(i) {
			return i
		}
	}
	return p.cur.Len()
}

// sigBefore returns the last significant position before pos, or -1.
func (p *parser) sigBefore(pos int) int {
	for i := pos - 1; i >= 0; i-- {
		if p.significant(i) {
			return i
		}
	}
	return -1
}

func (p *parser) lineAt(pos int) int {
	if toks := p.cur.Slice(pos, pos); len(toks) == 1 {
		return toks[0].Line
	}
	if n := p.cur.Len(); n > 0 {
		return p.cur.Slice(n-1, n-1)[0].Line
	}
	return 1
}

func (p *parser) failAt(pos int, code errors.ErrorCode, element, format string, args ...any) *errors.ParseError {
	return errors.NewParse(code, element, fmt.Sprintf(format, args...)).At(p.file, pos, p.lineAt(pos))
}

func (p *parser) unexpected(element, expected string) *errors.ParseError {
	found := "end of file"
	if p.cur.Valid() {
		found = fmt.Sprintf("%s %q", p.kind(), p.text())
	}
	return p.failAt(p.pos(), errors.CodeUnexpectedToken, element, "unexpected %s, expected %s", found, expected)
}

// docBefore returns the docblock that belongs to a declaration starting at
// pos: a doc comment right before it, or with one whitespace token in
// between. A template opener counts, a template closer never does.
func (p *parser) docBefore(pos int) string {
	for _, at := range []int{pos - 1, pos - 2} {
		if at == pos-2 && p.cur.TypeAt(pos-1) != token.Whitespace {
			break
		}
		text := p.cur.TextAt(at)
		switch p.cur.TypeAt(at) {
		case token.DocComment:
			if !annotation.IsTemplateEnd(text) {
				return text
			}
			return ""
		case token.Comment:
			if annotation.IsTemplateStart(text) {
				return text
			}
			if annotation.IsTemplateEnd(text) {
				return ""
			}
		}
	}
	return ""
}

// trackTemplate updates stack for a comment token.
func trackTemplate(stack *annotation.Stack, text string) {
	switch {
	case annotation.IsTemplateStart(text):
		stack.Push(text)
	case annotation.IsTemplateEnd(text):
		stack.Pop()
	}
}

func isNamePart(k token.Kind) bool {
	return k == token.Identifier || k == token.NameQualified || k == token.NameFullyQualified
}

// readName consumes a possibly qualified name at the cursor and leaves the
// cursor on the next significant token. A trailing separator is kept so
// group use prefixes can be recognized.
func (p *parser) readName() string {
	var b strings.Builder
	expectPart := true
loop:
	for p.cur.Valid() {
		k := p.kind()
		switch {
		case k == token.NsSeparator:
			b.WriteString(resolver.Separator)
			expectPart = true
		case !expectPart:
			break loop
		case isNamePart(k):
			b.WriteString(p.text())
			expectPart = false
		case k == token.Namespace && b.Len() == 0 && p.cur.TypeAt(p.pos()+1) == token.NsSeparator:
			b.WriteString(p.text())
			expectPart = false
		case k.IsKeyword() && b.Len() > 0:
			b.WriteString(p.text())
			expectPart = false
		default:
			break loop
		}
		p.cur.Next()
	}
	p.cur.SkipInsignificant(true)
	return b.String()
}

// memberName consumes an identifier that may also be a reserved word.
func (p *parser) memberName() (string, bool) {
	k := p.kind()
	if k != token.Identifier && !k.IsKeyword() {
		return "", false
	}
	name := p.text()
	p.next()
	return name, true
}

// skipExpression returns the position of the token that ends the
// expression starting at from: a top-level comma or semicolon, or an
// unmatched closing bracket.
func (p *parser) skipExpression(from int) int {
	depth := 0
	for i := from; i < p.cur.Len(); i++ {
		switch p.cur.TypeAt(i) {
		case token.LParen, token.LBracket, token.LBrace:
			depth++
		case token.RParen, token.RBracket, token.RBrace:
			if depth == 0 {
				return i
			}
			depth--
		case token.Comma, token.Semicolon:
			if depth == 0 {
				return i
			}
		case token.CloseTag:
			if depth == 0 {
				return i
			}
		}
	}
	return p.cur.Len()
}

// splitTopLevel splits [start, end] at top-level commas and returns the
// inclusive ranges between them. Empty ranges are dropped.
func (p *parser) splitTopLevel(start, end int) [][2]int {
	var out [][2]int
	from := start
	for from <= end {
		stop := p.skipExpression(from)
		if stop > end+1 {
			stop = end + 1
		}
		hasSig := false
		for i := from; i < stop; i++ {
			if p.significant(i) {
				hasSig = true
				break
			}
		}
		if hasSig {
			out = append(out, [2]int{from, stop - 1})
		}
		if stop > end || p.cur.TypeAt(stop) != token.Comma {
			break
		}
		from = stop + 1
	}
	return out
}

// sigRange lists the significant positions in [start, end].
func (p *parser) sigRange(start, end int) []int {
	var out []int
	for i := start; i <= end && i < p.cur.Len(); i++ {
		if p.significant(i) {
			out = append(out, i)
		}
	}
	return out
}

// trimmed returns the tokens in [start, end] without surrounding
// whitespace and comments.
func (p *parser) trimmed(start, end int) []token.Token {
	for start <= end && !p.significant(start) {
		start++
	}
	for end >= start && !p.significant(end) {
		end--
	}
	if start > end {
		return nil
	}
	return p.cur.Slice(start, end)
}

// skipBody moves from the cursor to the first top-level "{" and past its
// closing pair, skipping parenthesized groups on the way.
func (p *parser) skipBody() error {
	for p.cur.Valid() {
		switch p.kind() {
		case token.LParen, token.LBracket:
			if err := p.cur.FindMatchingBracket(); err != nil {
				return p.failAt(p.pos(), errors.CodeUnexpectedToken, "", "unbalanced brackets").Wrapping(err)
			}
		case token.LBrace:
			if err := p.cur.FindMatchingBracket(); err != nil {
				return p.failAt(p.pos(), errors.CodeUnexpectedToken, "", "unbalanced braces").Wrapping(err)
			}
			p.cur.Next()
			return nil
		case token.Semicolon:
			p.cur.Next()
			return nil
		}
		p.next()
	}
	return nil
}

// File level

func (p *parser) newBlock(name string, line int) *NamespaceBlock {
	return &NamespaceBlock{Name: name, File: p.file, StartLine: line, ctx: newNames(name)}
}

func (p *parser) parseFile() (*File, error) {
	f := &File{Name: p.file}
	global := p.newBlock("", 1)
	current := global
	var named []*NamespaceBlock

	for {
		stop, err := p.parseStatements(current, false)
		if err != nil {
			return nil, err
		}
		if current != global {
			current.EndLine = p.lineAt(p.sigBefore(p.pos()))
		}
		if stop != stopNamespace {
			break
		}
		block, braced, err := p.parseNamespace()
		if err != nil {
			return nil, err
		}
		named = append(named, block)
		if !braced {
			current = block
			continue
		}
		stop, err = p.parseStatements(block, true)
		if err != nil {
			return nil, err
		}
		if stop != stopBrace {
			return nil, p.unexpected("namespace "+block.Name, `"}"`)
		}
		block.EndLine = p.lineAt(p.pos())
		p.cur.Next()
		current = global
	}

	global.EndLine = p.lineAt(p.cur.Len() - 1)
	if len(named) == 0 || len(global.Classes)+len(global.Functions)+len(global.Constants) > 0 {
		f.Blocks = append(f.Blocks, global)
	}
	f.Blocks = append(f.Blocks, named...)
	return f, nil
}

// parseNamespace reads a namespace declaration at the cursor.
func (p *parser) parseNamespace() (*NamespaceBlock, bool, error) {
	line := p.lineAt(p.pos())
	p.next()
	name := ""
	if p.kind() != token.LBrace {
		name = strings.Trim(p.readName(), resolver.Separator)
		if name == "" {
			return nil, false, p.unexpected("namespace", "namespace name")
		}
	}
	block := p.newBlock(name, line)
	switch p.kind() {
	case token.LBrace:
		p.cur.Next()
		return block, true, nil
	case token.Semicolon:
		p.cur.Next()
		return block, false, nil
	}
	return nil, false, p.unexpected("namespace "+name, `";" or "{"`)
}

// declDoc is docBefore for a top-level declaration at start, looking past
// any attribute groups in front of it.
func (p *parser) declDoc(start int) string {
	if p.attrStart >= 0 {
		start, p.attrStart = p.attrStart, -1
	}
	return p.docBefore(start)
}

// parseStatements walks the declarations of one namespace block. Bodies of
// functions and classes are consumed by their own parsers; braces of
// control structures are entered so conditional declarations are found.
// Tokens are stepped over one at a time so template markers between
// declarations are never skipped.
func (p *parser) parseStatements(block *NamespaceBlock, braced bool) (stopReason, error) {
	var templates annotation.Stack
	depth := 0
	p.cur.SkipInsignificant(false)
	attrStart := -1
	for p.cur.Valid() {
		pos := p.pos()
		k := p.kind()
		switch {
		case k == token.Whitespace || k == token.Comment || k == token.DocComment:
		case k == token.Operator && p.text() == "#[":
			if attrStart < 0 {
				attrStart = pos
			}
		default:
			p.attrStart, attrStart = attrStart, -1
		}
		switch k {
		case token.Whitespace:
			p.cur.Next()
		case token.Comment, token.DocComment:
			trackTemplate(&templates, p.text())
			p.cur.Next()
		case token.Operator:
			if p.text() == "#[" {
				if err := p.skipAttribute(); err != nil {
					return 0, err
				}
				continue
			}
			p.cur.Next()
		case token.LBrace:
			depth++
			p.cur.Next()
		case token.RBrace:
			if depth == 0 && braced {
				return stopBrace, nil
			}
			if depth > 0 {
				depth--
			}
			p.cur.Next()
		case token.Namespace:
			if p.cur.TypeAt(p.sigAfter(pos)) == token.NsSeparator {
				p.cur.Next()
				continue
			}
			return stopNamespace, nil
		case token.HaltCompiler:
			return stopHalt, nil
		case token.Use:
			if p.cur.TypeAt(p.sigAfter(pos)) == token.LParen {
				p.cur.Next()
				continue
			}
			if err := p.parseUse(block); err != nil {
				return 0, err
			}
		case token.Abstract, token.Final, token.Class, token.Interface, token.Trait:
			if !p.startsClass(pos) {
				if k == token.Class && p.cur.TypeAt(p.sigBefore(pos)) == token.New {
					if err := p.skipBody(); err != nil {
						return 0, err
					}
					continue
				}
				p.cur.Next()
				continue
			}
			c, err := p.parseClass(block, templates.Active())
			if err != nil {
				return 0, err
			}
			block.Classes = append(block.Classes, c)
		case token.Function:
			if !p.namedFunction(pos) {
				if err := p.skipClosure(); err != nil {
					return 0, err
				}
				continue
			}
			fn, err := p.parseFunction(block, templates.Active())
			if err != nil {
				return 0, err
			}
			block.Functions = append(block.Functions, fn)
		case token.Const:
			consts, err := p.parseConstants(block.ctx, nil, pos, 0, templates.Active())
			if err != nil {
				return 0, err
			}
			block.Constants = append(block.Constants, consts...)
		case token.Identifier:
			switch {
			case strings.EqualFold(p.text(), "define") && p.isDefineCall(pos):
				def, err := p.parseDefine(block, templates.Active())
				if err != nil {
					return 0, err
				}
				if def != nil {
					block.Constants = append(block.Constants, def)
				}
			case strings.EqualFold(p.text(), "readonly") && p.startsClass(pos):
				c, err := p.parseClass(block, templates.Active())
				if err != nil {
					return 0, err
				}
				block.Classes = append(block.Classes, c)
			case strings.EqualFold(p.text(), "enum") && p.cur.TypeAt(p.sigAfter(pos)) == token.Identifier &&
				!p.afterMemberAccess(pos):
				if err := p.skipBody(); err != nil {
					return 0, err
				}
			default:
				p.cur.Next()
			}
		default:
			p.cur.Next()
		}
	}
	return stopEOF, nil
}

func (p *parser) afterMemberAccess(pos int) bool {
	switch p.cur.TypeAt(p.sigBefore(pos)) {
	case token.DoubleColon, token.ObjectOperator, token.New, token.Function:
		return true
	}
	return false
}

// startsClass reports whether the modifiers at pos lead to a class-like
// keyword that declares a named type.
func (p *parser) startsClass(pos int) bool {
	if p.afterMemberAccess(pos) {
		return false
	}
	for i := pos; i < p.cur.Len(); i = p.sigAfter(i) {
		switch k := p.cur.TypeAt(i); {
		case k == token.Abstract || k == token.Final:
		case k == token.Identifier && strings.EqualFold(p.cur.TextAt(i), "readonly"):
		case k == token.Class || k == token.Interface || k == token.Trait:
			return p.cur.TypeAt(p.sigAfter(i)) == token.Identifier
		default:
			return false
		}
	}
	return false
}

// namedFunction reports whether the function keyword at pos declares a
// named function rather than a closure.
func (p *parser) namedFunction(pos int) bool {
	if p.afterMemberAccess(pos) {
		return false
	}
	at := p.sigAfter(pos)
	if p.cur.TypeAt(at) == token.Ampersand {
		at = p.sigAfter(at)
	}
	k := p.cur.TypeAt(at)
	return k == token.Identifier || (k.IsKeyword() && p.cur.TypeAt(p.sigAfter(at)) == token.LParen)
}

// skipClosure moves past an anonymous function: its parameters, use
// clause, return type and body.
func (p *parser) skipClosure() error {
	p.next()
	if p.kind() == token.Ampersand {
		p.next()
	}
	if p.kind() != token.LParen {
		return nil
	}
	return p.skipBody()
}

func (p *parser) isDefineCall(pos int) bool {
	if p.cur.TypeAt(p.sigAfter(pos)) != token.LParen || p.afterMemberAccess(pos) {
		return false
	}
	prev := p.sigBefore(pos)
	if p.cur.TypeAt(prev) != token.NsSeparator {
		return true
	}
	return !isNamePart(p.cur.TypeAt(p.sigBefore(prev))) && p.cur.TypeAt(p.sigBefore(prev)) != token.Namespace
}

// Imports

// parseUse reads a use statement at namespace level: plain, function and
// const imports, each optionally grouped.
func (p *parser) parseUse(block *NamespaceBlock) error {
	p.next()
	kind := token.Class
	if k := p.kind(); k == token.Function || k == token.Const {
		kind = k
		p.next()
	}
	for {
		name := p.readName()
		if name == "" {
			return p.unexpected("use", "imported name")
		}
		if p.kind() == token.LBrace {
			if err := p.parseGroupUse(block, kind, strings.Trim(name, resolver.Separator)); err != nil {
				return err
			}
		} else if err := p.addImport(block, kind, name); err != nil {
			return err
		}
		switch p.kind() {
		case token.Comma:
			p.next()
		case token.Semicolon:
			p.cur.Next()
			return nil
		default:
			return p.unexpected("use", `"," or ";"`)
		}
	}
}

func (p *parser) parseGroupUse(block *NamespaceBlock, kind token.Kind, prefix string) error {
	p.next()
	for p.kind() != token.RBrace {
		itemKind := kind
		if k := p.kind(); k == token.Function || k == token.Const {
			itemKind = k
			p.next()
		}
		name := p.readName()
		if name == "" {
			return p.unexpected("use "+prefix, "imported name")
		}
		if err := p.addImport(block, itemKind, prefix+resolver.Separator+strings.TrimLeft(name, resolver.Separator)); err != nil {
			return err
		}
		switch p.kind() {
		case token.Comma:
			p.next()
		case token.RBrace:
		default:
			return p.unexpected("use "+prefix, `"," or "}"`)
		}
	}
	p.next()
	return nil
}

// addImport records name and its optional "as" alias. The cursor is on the
// token after the name.
func (p *parser) addImport(block *NamespaceBlock, kind token.Kind, name string) error {
	fqn := strings.Trim(name, resolver.Separator)
	alias := resolver.DefaultAlias(fqn)
	if p.kind() == token.As {
		p.next()
		a, ok := p.memberName()
		if !ok {
			return p.unexpected("use "+fqn, "alias")
		}
		alias = a
	}
	target := block.ctx.aliases
	switch kind {
	case token.Function:
		target = block.ctx.funcAliases
	case token.Const:
		target = block.ctx.constAliases
	}
	if prev, ok := target[alias]; ok && !strings.EqualFold(prev, fqn) {
		return p.failAt(p.pos(), errors.CodeAlreadyExists, "use "+fqn,
			"cannot import %s as %s, the name is already in use for %s", fqn, alias, prev)
	}
	target[alias] = fqn
	return nil
}

// Class-likes

func (p *parser) parseClass(block *NamespaceBlock, templates []string) (*Class, error) {
	start := p.pos()
	mods := 0
modifiers:
	for {
		switch k := p.kind(); {
		case k == token.Abstract:
			mods |= ModExplicitAbstract
		case k == token.Final:
			mods |= ModFinalClass
		case k == token.Identifier && strings.EqualFold(p.text(), "readonly"):
		default:
			break modifiers
		}
		p.next()
	}
	var ck ClassKind
	switch p.kind() {
	case token.Class:
		ck = KindClass
	case token.Interface:
		ck = KindInterface
	case token.Trait:
		ck = KindTrait
	default:
		return nil, p.unexpected("", "class, interface or trait")
	}
	if ck != KindClass && mods != 0 {
		return nil, p.failAt(start, errors.CodeLogicalError, "", "%s cannot be abstract or final", ck)
	}
	p.next()
	if p.kind() != token.Identifier {
		return nil, p.unexpected(ck.String(), ck.String()+" name")
	}
	name := resolver.Join(block.Name, p.text())
	p.next()

	c := &Class{
		base:         newBase(block.ctx, name, p.file),
		kind:         ck,
		modifiers:    mods,
		traitImports: make(map[string][]traitImport),
	}
	c.startPos = start
	c.startLine = p.lineAt(start)
	c.doc = p.declDoc(start)
	c.templates = templates

	if p.kind() == token.Extends {
		if ck == KindTrait {
			return nil, p.unexpected(name, `"{"`)
		}
		p.next()
		parents, err := p.readNameList(block.ctx, name)
		if err != nil {
			return nil, err
		}
		if ck == KindClass {
			if len(parents) != 1 {
				return nil, p.failAt(p.pos(), errors.CodeInvalidParent, name, "a class extends exactly one class")
			}
			if resolver.Key(parents[0]) == resolver.Key(name) {
				return nil, p.failAt(start, errors.CodeInvalidParent, name, "a class cannot extend itself")
			}
			c.parent = parents[0]
		} else {
			for _, parent := range parents {
				if resolver.Key(parent) == resolver.Key(name) {
					return nil, p.failAt(start, errors.CodeInvalidParent, name, "an interface cannot extend itself")
				}
			}
			c.interfaces = parents
		}
	}
	if p.kind() == token.Implements {
		if ck != KindClass {
			return nil, p.unexpected(name, `"{"`)
		}
		p.next()
		ifaces, err := p.readNameList(block.ctx, name)
		if err != nil {
			return nil, err
		}
		c.interfaces = ifaces
	}
	if p.kind() != token.LBrace {
		return nil, p.unexpected(name, `"{"`)
	}
	if err := p.parseClassBody(c); err != nil {
		return nil, err
	}
	c.endPos = p.pos()
	c.endLine = p.lineAt(c.endPos)
	p.cur.Next()
	return c, nil
}

// readNameList reads comma separated class names and resolves them.
func (p *parser) readNameList(ctx *names, element string) ([]string, error) {
	var out []string
	for {
		raw := p.readName()
		if raw == "" {
			return nil, p.unexpected(element, "class name")
		}
		out = append(out, ctx.resolveClass(raw))
		if p.kind() != token.Comma {
			return out, nil
		}
		p.next()
	}
}

// parseClassBody parses members until the closing brace, leaving the
// cursor on it.
func (p *parser) parseClassBody(c *Class) error {
	var templates annotation.Stack
	var lastProp *Property
	attrStart := -1
	p.cur.Next()
	for p.cur.Valid() {
		pos := p.pos()
		memberStart := pos
		if attrStart >= 0 {
			memberStart = attrStart
		}
		switch k := p.kind(); {
		case k == token.Whitespace:
			p.cur.Next()
		case k == token.Comment || k == token.DocComment:
			trackTemplate(&templates, p.text())
			p.cur.Next()
		case k == token.RBrace:
			return nil
		case k == token.Semicolon:
			p.cur.Next()
		case k == token.Operator && p.text() == "#[":
			if attrStart < 0 {
				attrStart = pos
			}
			if err := p.skipAttribute(); err != nil {
				return err
			}
		case k == token.Use:
			if err := p.parseTraitUse(c); err != nil {
				return err
			}
			attrStart = -1
		default:
			mods, explicit := p.readModifiers()
			switch p.kind() {
			case token.Function:
				m, err := p.parseMethod(c, memberStart, mods, templates.Active())
				if err != nil {
					return err
				}
				c.methods = append(c.methods, m)
			case token.Const:
				consts, err := p.parseConstants(c.ctx, c, memberStart, mods, templates.Active())
				if err != nil {
					return err
				}
				c.constants = append(c.constants, consts...)
			default:
				if !explicit {
					if p.kind() != token.Variable {
						return p.unexpected(c.name, "class member")
					}
					if lastProp == nil {
						return p.failAt(pos, errors.CodeLogicalError, c.name,
							"property %s has no modifiers and no previous property to take them from", p.text())
					}
					mods = lastProp.modifiers
				}
				props, err := p.parseProperties(c, memberStart, mods, templates.Active())
				if err != nil {
					return err
				}
				c.properties = append(c.properties, props...)
				lastProp = props[len(props)-1]
			}
			attrStart = -1
		}
	}
	return p.unexpected(c.name, `"}"`)
}

// skipAttribute moves past a #[...] attribute group.
func (p *parser) skipAttribute() error {
	depth := 1
	start := p.pos()
	for p.cur.Next() {
		switch p.kind() {
		case token.LBracket:
			depth++
		case token.RBracket:
			depth--
			if depth == 0 {
				p.next()
				return nil
			}
		}
	}
	return p.failAt(start, errors.CodeUnexpectedToken, "", "unterminated attribute")
}

// readModifiers consumes member modifiers. explicit is false when none
// were written.
func (p *parser) readModifiers() (mods int, explicit bool) {
	for {
		switch k := p.kind(); {
		case k == token.Public:
			mods |= ModPublic
		case k == token.Protected:
			mods |= ModProtected
		case k == token.Private:
			mods |= ModPrivate
		case k == token.Var:
			mods |= ModPublic
		case k == token.Static:
			mods |= ModStatic
		case k == token.Abstract:
			mods |= ModAbstract
		case k == token.Final:
			mods |= ModFinal
		case k == token.Identifier && strings.EqualFold(p.text(), "readonly"):
			mods |= ModReadonly
		default:
			return mods, explicit
		}
		explicit = true
		p.next()
	}
}

func checkVisibility(mods int) bool {
	n := 0
	for _, v := range []int{ModPublic, ModProtected, ModPrivate} {
		if mods&v != 0 {
			n++
		}
	}
	return n <= 1
}

// parseTraitUse reads "use A, B;" or "use A, B { rules }" in a class body.
func (p *parser) parseTraitUse(c *Class) error {
	p.next()
	names, err := p.readNameList(c.ctx, c.name)
	if err != nil {
		return err
	}
	for _, name := range names {
		dup := false
		for _, t := range c.traits {
			if resolver.Key(t) == resolver.Key(name) {
				dup = true
			}
		}
		if !dup {
			c.traits = append(c.traits, name)
		}
	}
	switch p.kind() {
	case token.Semicolon:
		p.cur.Next()
		return nil
	case token.LBrace:
	default:
		return p.unexpected(c.name, `";" or "{"`)
	}
	p.next()
	for p.kind() != token.RBrace {
		if !p.cur.Valid() {
			return p.unexpected(c.name, `"}"`)
		}
		if err := p.parseTraitRule(c); err != nil {
			return err
		}
	}
	p.cur.Next()
	return nil
}

// parseTraitRule reads one "[T::]m as [visibility] [alias];" or
// "T::m insteadof U, V;" rule.
func (p *parser) parseTraitRule(c *Class) error {
	trait := ""
	method := p.readName()
	if p.kind() == token.DoubleColon {
		trait = c.ctx.resolveClass(method)
		p.next()
		m, ok := p.memberName()
		if !ok {
			return p.unexpected(c.name, "trait method name")
		}
		method = m
	}
	if method == "" {
		return p.unexpected(c.name, "trait method name")
	}

	switch p.kind() {
	case token.Insteadof:
		if trait == "" {
			return p.failAt(p.pos(), errors.CodeInvalidArgument, c.name,
				"insteadof needs a trait qualified method, got %s", method)
		}
		p.next()
		losers, err := p.readNameList(c.ctx, c.name)
		if err != nil {
			return err
		}
		for _, loser := range losers {
			key := ruleKey(loser, method)
			c.traitImports[key] = append(c.traitImports[key], traitImport{suppress: true})
		}
	case token.As:
		p.next()
		rule := traitImport{}
		switch p.kind() {
		case token.Public:
			rule.access = ModPublic
		case token.Protected:
			rule.access = ModProtected
		case token.Private:
			rule.access = ModPrivate
		}
		if rule.access != 0 {
			p.next()
		}
		if p.kind() != token.Semicolon {
			alias, ok := p.memberName()
			if !ok {
				return p.unexpected(c.name, "alias name")
			}
			rule.newName = alias
			c.traitAliases = append(c.traitAliases, traitAlias{alias: alias, trait: trait, method: method})
		}
		if rule.access == 0 && rule.newName == "" {
			return p.unexpected(c.name, "visibility or alias")
		}
		key := ruleKey(trait, method)
		c.traitImports[key] = append(c.traitImports[key], rule)
	default:
		return p.unexpected(c.name, `"as" or "insteadof"`)
	}
	if p.kind() != token.Semicolon {
		return p.unexpected(c.name, `";"`)
	}
	p.next()
	return nil
}

// Members

func (p *parser) parseMethod(c *Class, start, mods int, templates []string) (*Method, error) {
	p.next()
	byRef := false
	if p.kind() == token.Ampersand {
		byRef = true
		p.next()
	}
	name, ok := p.memberName()
	if !ok {
		return nil, p.unexpected(c.name, "method name")
	}
	pretty := c.name + "::" + name + "()"
	if c.ownMethod(name) != nil {
		return nil, p.failAt(start, errors.CodeAlreadyExists, pretty, "method is already declared")
	}
	if !checkVisibility(mods) {
		return nil, p.failAt(start, errors.CodeLogicalError, pretty, "multiple visibility modifiers")
	}
	if mods&ModAbstract != 0 && mods&ModFinal != 0 {
		return nil, p.failAt(start, errors.CodeLogicalError, pretty, "a method cannot be abstract and final")
	}
	if c.kind == KindInterface {
		mods |= ModAbstract
	}
	if mods&visibilityMask == 0 {
		mods |= ModPublic
	}

	m := &Method{
		functionBase: functionBase{base: newBase(c.ctx, name, p.file), byRef: byRef},
		class:        c.name,
		owner:        c.memberScope(),
		modifiers:    mods,
	}
	m.startPos = start
	m.startLine = p.lineAt(start)
	m.doc = p.docBefore(start)
	m.templates = templates

	promoted, err := p.parseFunctionRest(&m.functionBase, name, c.name, m.owner)
	if err != nil {
		return nil, err
	}
	if len(promoted) > 0 {
		if !strings.EqualFold(name, "__construct") {
			return nil, p.failAt(start, errors.CodeLogicalError, pretty, "only constructors can promote properties")
		}
		for _, pp := range promoted {
			if c.ownProperty(pp.name) != nil {
				return nil, p.failAt(start, errors.CodeAlreadyExists, c.name+"::$"+pp.name, "property is already declared")
			}
			c.properties = append(c.properties, pp)
		}
	}
	return m, nil
}

// parseFunctionRest reads the parameter list, return type and body of a
// function or method. The cursor starts on the token after the name and
// ends after the body. Properties promoted by constructor parameters are
// returned.
func (p *parser) parseFunctionRest(fb *functionBase, fnName, class string, owner classScope) ([]*Property, error) {
	element := fnName + "()"
	if class != "" {
		element = class + "::" + element
	}
	if p.kind() != token.LParen {
		return nil, p.unexpected(element, `"("`)
	}
	open := p.pos()
	if err := p.cur.FindMatchingBracket(); err != nil {
		return nil, p.failAt(open, errors.CodeUnexpectedToken, element, "unterminated parameter list").Wrapping(err)
	}
	closing := p.pos()

	var promoted []*Property
	for i, r := range p.splitTopLevel(open+1, closing-1) {
		param, mods, err := p.parseParameter(fb, r[0], r[1], i, fnName, class, owner)
		if err != nil {
			return nil, err
		}
		for _, other := range fb.params {
			if other.name == param.name {
				return nil, p.failAt(r[0], errors.CodeAlreadyExists, param.PrettyName(), "parameter is already declared")
			}
		}
		fb.params = append(fb.params, param)
		if mods != 0 {
			promoted = append(promoted, p.promote(fb, param, mods))
		}
	}
	optional := true
	for i := len(fb.params) - 1; i >= 0; i-- {
		param := fb.params[i]
		optional = optional && (param.hasValue || param.variadic)
		param.optional = optional
	}

	p.next()
	if p.kind() == token.Colon {
		p.next()
		var b strings.Builder
		for p.cur.Valid() && p.kind() != token.LBrace && p.kind() != token.Semicolon {
			b.WriteString(p.text())
			p.next()
		}
		fb.returnType = b.String()
	}
	switch p.kind() {
	case token.LBrace:
		bodyStart := p.pos()
		if err := p.cur.FindMatchingBracket(); err != nil {
			return nil, p.failAt(bodyStart, errors.CodeUnexpectedToken, element, "unterminated body").Wrapping(err)
		}
		bodyEnd := p.pos()
		fb.statics = p.staticVariables(bodyStart, bodyEnd)
		p.seek(bodyEnd)
	case token.Semicolon:
	default:
		return nil, p.unexpected(element, `"{" or ";"`)
	}
	fb.endPos = p.pos()
	fb.endLine = p.lineAt(fb.endPos)
	p.cur.Next()
	return promoted, nil
}

func (p *parser) promote(fb *functionBase, param *Parameter, mods int) *Property {
	if mods&visibilityMask == 0 {
		mods |= ModPublic
	}
	prop := &Property{
		base:      newBase(fb.ctx, param.name, fb.file),
		class:     param.class,
		owner:     param.owner,
		modifiers: mods,
		typeHint:  param.typeHint,
	}
	prop.startLine = param.line
	prop.endLine = param.line
	return prop
}

// parseParameter reads one parameter from the tokens in [start, end].
func (p *parser) parseParameter(fb *functionBase, start, end, position int, fnName, class string, owner classScope) (*Parameter, int, error) {
	idx := p.sigRange(start, end)
	element := fnName + "()"
	i := 0
	at := func() token.Kind {
		if i < len(idx) {
			return p.cur.TypeAt(idx[i])
		}
		return token.Invalid
	}

	for at() == token.Operator && p.cur.TextAt(idx[i]) == "#[" {
		depth := 1
		for i++; i < len(idx) && depth > 0; i++ {
			switch at() {
			case token.LBracket:
				depth++
			case token.RBracket:
				depth--
			}
		}
	}

	mods := 0
modifiers:
	for ; i < len(idx); i++ {
		switch k := at(); {
		case k == token.Public:
			mods |= ModPublic
		case k == token.Protected:
			mods |= ModProtected
		case k == token.Private:
			mods |= ModPrivate
		case k == token.Identifier && strings.EqualFold(p.cur.TextAt(idx[i]), "readonly"):
			mods |= ModReadonly
		default:
			break modifiers
		}
	}

	var hint strings.Builder
	for ; i < len(idx); i++ {
		k := at()
		if k == token.Variable || k == token.Ellipsis {
			break
		}
		if k == token.Ampersand && i+1 < len(idx) {
			next := p.cur.TypeAt(idx[i+1])
			if next == token.Variable || next == token.Ellipsis {
				break
			}
		}
		hint.WriteString(p.cur.TextAt(idx[i]))
	}

	param := &Parameter{
		id:       nextID(),
		ctx:      fb.ctx,
		file:     p.file,
		line:     p.lineAt(idx[0]),
		position: position,
		typeHint: hint.String(),
		function: fnName,
		class:    class,
		owner:    owner,
		promoted: mods != 0,
	}
	param.nullable, param.classHint = parameterHint(param.typeHint, fb.ctx)

	if at() == token.Ampersand {
		param.byRef = true
		i++
	}
	if at() == token.Ellipsis {
		param.variadic = true
		i++
	}
	if at() != token.Variable {
		pos := end
		if i < len(idx) {
			pos = idx[i]
		}
		return nil, 0, p.failAt(pos, errors.CodeUnexpectedToken, element, "parameter %d has no variable name", position)
	}
	param.name = strings.TrimPrefix(p.cur.TextAt(idx[i]), "$")
	i++
	if i < len(idx) {
		if at() != token.Assign {
			return nil, 0, p.failAt(idx[i], errors.CodeUnexpectedToken, element,
				"unexpected %q after parameter $%s", p.cur.TextAt(idx[i]), param.name)
		}
		param.tokens = p.trimmed(idx[i]+1, end)
		param.hasValue = len(param.tokens) > 0
		if !param.hasValue {
			return nil, 0, p.failAt(idx[i], errors.CodeUnexpectedToken, element, "parameter $%s has an empty default", param.name)
		}
	}
	return param, mods, nil
}

// staticVariables collects "static $x = expr" declarations of a body,
// skipping nested closures and anonymous classes.
func (p *parser) staticVariables(bodyStart, bodyEnd int) []staticVar {
	var out []staticVar
	for i := bodyStart + 1; i < bodyEnd; i++ {
		switch p.cur.TypeAt(i) {
		case token.Class:
			if p.cur.TypeAt(p.sigBefore(i)) != token.New {
				continue
			}
			fallthrough
		case token.Function:
			// nested bodies own their statics
			for j := i + 1; j < bodyEnd; j++ {
				k := p.cur.TypeAt(j)
				if k == token.LParen {
					p.seek(j)
					if p.cur.FindMatchingBracket() != nil {
						return out
					}
					j = p.pos()
					continue
				}
				if k == token.Semicolon {
					i = j
					break
				}
				if k == token.LBrace {
					p.seek(j)
					if p.cur.FindMatchingBracket() != nil {
						return out
					}
					i = p.pos()
					break
				}
			}
		case token.Static:
			next := p.sigAfter(i)
			if p.cur.TypeAt(next) != token.Variable || p.cur.TypeAt(p.sigBefore(i)) == token.New {
				continue
			}
			for at := next; at < bodyEnd && p.cur.TypeAt(at) == token.Variable; {
				sv := staticVar{name: strings.TrimPrefix(p.cur.TextAt(at), "$")}
				after := p.sigAfter(at)
				stop := after
				if p.cur.TypeAt(after) == token.Assign {
					stop = p.skipExpression(after + 1)
					sv.tokens = p.trimmed(after+1, stop-1)
				}
				out = append(out, sv)
				i = stop
				if p.cur.TypeAt(stop) != token.Comma {
					break
				}
				at = p.sigAfter(stop)
			}
		}
	}
	return out
}

func (p *parser) parseProperties(c *Class, start, mods int, templates []string) ([]*Property, error) {
	if c.kind == KindInterface {
		return nil, p.failAt(start, errors.CodeUnexpectedToken, c.name, "interfaces cannot declare properties")
	}
	if !checkVisibility(mods) {
		return nil, p.failAt(start, errors.CodeLogicalError, c.name, "multiple visibility modifiers")
	}
	if mods&(ModAbstract|ModFinal) != 0 {
		return nil, p.failAt(start, errors.CodeLogicalError, c.name, "properties cannot be abstract or final")
	}
	if mods&visibilityMask == 0 {
		mods |= ModPublic
	}

	var hint strings.Builder
	for p.cur.Valid() && p.kind() != token.Variable {
		switch k := p.kind(); {
		case isNamePart(k), k == token.NsSeparator, k == token.Question, k == token.Ampersand,
			k == token.LParen, k == token.RParen, k == token.Array, k == token.Callable, k == token.Static,
			k == token.Char && p.text() == "|":
			hint.WriteString(p.text())
		default:
			return nil, p.unexpected(c.name, "property name")
		}
		p.next()
	}

	var out []*Property
	doc := p.docBefore(start)
	for {
		if p.kind() != token.Variable {
			return nil, p.unexpected(c.name, "property name")
		}
		pos := p.pos()
		name := strings.TrimPrefix(p.text(), "$")
		if c.ownProperty(name) != nil || declared(out, name) {
			return nil, p.failAt(pos, errors.CodeAlreadyExists, c.name+"::$"+name, "property is already declared")
		}
		prop := &Property{
			base:      newBase(c.ctx, name, p.file),
			class:     c.name,
			owner:     c.memberScope(),
			modifiers: mods,
			typeHint:  hint.String(),
		}
		prop.startPos = start
		prop.startLine = p.lineAt(pos)
		prop.templates = templates
		if len(out) == 0 {
			prop.doc = doc
		}

		p.next()
		stop := p.pos()
		if p.kind() == token.Assign {
			stop = p.skipExpression(p.pos() + 1)
			prop.tokens = p.trimmed(p.pos()+1, stop-1)
			if len(prop.tokens) == 0 {
				return nil, p.failAt(pos, errors.CodeUnexpectedToken, prop.PrettyName(), "empty default value")
			}
			p.seek(stop)
		}
		prop.endPos = stop
		prop.endLine = p.lineAt(stop)
		out = append(out, prop)

		switch p.kind() {
		case token.Comma:
			p.next()
		case token.Semicolon:
			p.cur.Next()
			return out, nil
		default:
			return nil, p.unexpected(prop.PrettyName(), `"," or ";"`)
		}
	}
}

func declared(props []*Property, name string) bool {
	for _, prop := range props {
		if prop.name == name {
			return true
		}
	}
	return false
}

// parseConstants reads "const [type] A = 1, B = 2;" at namespace level when
// class is nil, or in a class body.
func (p *parser) parseConstants(ctx *names, class *Class, start, mods int, templates []string) ([]*Constant, error) {
	element := "const"
	if class != nil {
		element = class.name
		if !checkVisibility(mods) {
			return nil, p.failAt(start, errors.CodeLogicalError, element, "multiple visibility modifiers")
		}
		if mods&(ModStatic|ModAbstract|ModReadonly) != 0 {
			return nil, p.failAt(start, errors.CodeLogicalError, element, "constants cannot be static, abstract or readonly")
		}
		if mods&visibilityMask == 0 {
			mods |= ModPublic
		}
	}
	p.next()

	var out []*Constant
	doc := p.docBefore(start)
	if class == nil {
		doc = p.declDoc(start)
	}
	for {
		// the name is the last token before "="; anything earlier is a type
		namePos := -1
		for p.cur.Valid() && p.kind() != token.Assign {
			if p.kind() == token.Semicolon || p.kind() == token.Comma {
				return nil, p.unexpected(element, `"="`)
			}
			namePos = p.pos()
			p.next()
		}
		if namePos < 0 || !p.cur.Valid() {
			return nil, p.unexpected(element, "constant name")
		}
		if nk := p.cur.TypeAt(namePos); nk != token.Identifier && !nk.IsKeyword() {
			return nil, p.failAt(namePos, errors.CodeUnexpectedToken, element, "invalid constant name %q", p.cur.TextAt(namePos))
		}
		short := p.cur.TextAt(namePos)

		k := &Constant{modifiers: mods}
		if class != nil {
			if class.HasOwnConstant(short) || declaredConstant(out, short) {
				return nil, p.failAt(namePos, errors.CodeAlreadyExists, class.name+"::"+short, "constant is already declared")
			}
			k.base = newBase(ctx, short, p.file)
			k.class = class.name
			k.owner = class.memberScope()
		} else {
			k.base = newBase(ctx, resolver.Join(ctx.namespace, short), p.file)
		}
		k.startPos = start
		k.startLine = p.lineAt(namePos)
		k.templates = templates
		if len(out) == 0 {
			k.doc = doc
		}

		stop := p.skipExpression(p.pos() + 1)
		k.tokens = p.trimmed(p.pos()+1, stop-1)
		if len(k.tokens) == 0 {
			return nil, p.failAt(namePos, errors.CodeUnexpectedToken, k.PrettyName(), "constant has no value")
		}
		k.endPos = stop
		k.endLine = p.lineAt(stop)
		out = append(out, k)
		p.seek(stop)

		switch p.kind() {
		case token.Comma:
			p.next()
		case token.Semicolon, token.CloseTag:
			p.cur.Next()
			return out, nil
		default:
			return nil, p.unexpected(k.PrettyName(), `"," or ";"`)
		}
	}
}

func declaredConstant(consts []*Constant, name string) bool {
	for _, k := range consts {
		if k.name == name {
			return true
		}
	}
	return false
}

// parseDefine reads define('NAME', value). Calls whose name is not a
// constant expression yield no constant.
func (p *parser) parseDefine(block *NamespaceBlock, templates []string) (*Constant, error) {
	start := p.pos()
	p.next()
	open := p.pos()
	if err := p.cur.FindMatchingBracket(); err != nil {
		return nil, p.failAt(open, errors.CodeUnexpectedToken, "define", "unterminated define call").Wrapping(err)
	}
	closing := p.pos()
	p.next()

	args := p.splitTopLevel(open+1, closing-1)
	if len(args) < 2 {
		return nil, p.failAt(start, errors.CodeInvalidArgument, "define", "define expects a name and a value")
	}
	nameVal, _ := value.Evaluate(p.cur.Slice(args[0][0], args[0][1]), value.Scope{File: p.file}, nil)
	name, ok := nameVal.(string)
	if !ok || strings.Trim(name, resolver.Separator) == "" {
		return nil, nil
	}

	k := &Constant{base: newBase(block.ctx, strings.TrimLeft(name, resolver.Separator), p.file), modifiers: ModPublic}
	k.startPos = start
	k.startLine = p.lineAt(start)
	k.endPos = closing
	k.endLine = p.lineAt(closing)
	k.doc = p.declDoc(start)
	k.templates = templates
	k.tokens = p.trimmed(args[1][0], args[1][1])
	return k, nil
}

// Functions

func (p *parser) parseFunction(block *NamespaceBlock, templates []string) (*Function, error) {
	start := p.pos()
	p.next()
	byRef := false
	if p.kind() == token.Ampersand {
		byRef = true
		p.next()
	}
	short, ok := p.memberName()
	if !ok {
		return nil, p.unexpected("function", "function name")
	}
	name := resolver.Join(block.Name, short)
	fn := &Function{functionBase: functionBase{base: newBase(block.ctx, name, p.file), byRef: byRef}}
	fn.startPos = start
	fn.startLine = p.lineAt(start)
	fn.doc = p.declDoc(start)
	fn.templates = templates

	promoted, err := p.parseFunctionRest(&fn.functionBase, name, "", classScope{})
	if err != nil {
		return nil, err
	}
	if len(promoted) > 0 {
		return nil, p.failAt(start, errors.CodeLogicalError, name+"()", "only constructors can promote properties")
	}
	return fn, nil
}
