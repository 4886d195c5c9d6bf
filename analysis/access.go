// Copyright © 2024 The Mago authors

package analysis

import (
	"fmt"
	"strings"

	"github.com/magophp/mago/codebase"
	"github.com/magophp/mago/dataflow"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/parser/token"
	"github.com/magophp/mago/source"
	"github.com/magophp/mago/ttype"
)

// classRef resolves a class name, expanding self, static, and parent in
// the current class.
func (a *analyzer) classRef(n *ast.Name) string {
	switch strings.ToLower(n.Value) {
	case "self", "static":
		if name := a.className(); name != "" {
			return name
		}
		return n.Value
	case "parent":
		if a.fn.class != nil && a.fn.class.Parent != "" {
			return a.fn.class.Parent
		}
		return n.Value
	}
	return a.names.Resolved(n)
}

func isRelative(name string) bool {
	switch strings.ToLower(name) {
	case "self", "static", "parent":
		return true
	}
	return false
}

// classExpr resolves the class operand of a static access.  It reports an
// unknown class and returns "" when the class cannot be determined.
func (a *analyzer) classExpr(e ast.Expr, ctx *BlockContext) string {
	n, ok := e.(*ast.Name)
	if !ok {
		t := a.expr(e, ctx)
		if t.IsSingle() && t.Types[0].Kind == ttype.KNamed {
			return t.Types[0].Name
		}
		if t.IsSingle() && t.Types[0].Kind == ttype.KClassString && t.Types[0].Name != "" {
			return t.Types[0].Name
		}
		return ""
	}
	name := a.classRef(n)
	if isRelative(name) {
		return ""
	}
	if !a.cb.ClassExists(name) {
		a.errorf(CodeNonExistentClassLike, n.Span(),
			fmt.Sprintf("Class `%s` does not exist.", name), "unknown class")
		return ""
	}
	a.result.References.AddSymbol(a.fn.scope, codebase.Key(name))
	if m, ok := a.cb.ClassLike(name); ok && m.Deprecated && !isRelative(n.Value) {
		a.warnf(CodeDeprecatedClass, n.Span(),
			fmt.Sprintf("Class `%s` is deprecated.", m.Name), "deprecated class")
	}
	return name
}

func (a *analyzer) constFetch(e *ast.ConstFetch) ttype.Union {
	start := e.Name.Span().Start
	name, ok := a.names.Lookup(start)
	if !ok {
		name = e.Name.Value
	}
	c, found := a.cb.Constant(name)
	if !found {
		if fb, ok := a.names.Fallback(start); ok {
			c, found = a.cb.Constant(fb)
		}
	}
	if !found {
		a.errorf(CodeNonExistentConstant, e.Name.Span(),
			fmt.Sprintf("Constant `%s` does not exist.", name), "unknown constant").
			WithHelp("Define the constant or check its name and namespace imports.")
		return ttype.Mixed()
	}
	a.result.References.AddSymbol(a.fn.scope, codebase.ConstantKey(c.Name))
	return c.Type
}

func (a *analyzer) classConstFetch(e *ast.ClassConstFetch, ctx *BlockContext) ttype.Union {
	if strings.EqualFold(e.Constant.Value, "class") {
		if n, ok := e.Class.(*ast.Name); ok {
			name := a.classRef(n)
			if !isRelative(name) {
				return ttype.Single(ttype.ClassString(name))
			}
			return ttype.Single(ttype.ClassString(""))
		}
		a.expr(e.Class, ctx)
		return ttype.Single(ttype.ClassString(""))
	}
	class := a.classExpr(e.Class, ctx)
	if class == "" {
		return ttype.Mixed()
	}
	name := e.Constant.Value
	if c, ok := a.cb.EnumCase(class, name); ok {
		a.result.References.AddMember(a.fn.scope, c.Class, name)
		return ttype.Single(ttype.EnumCase(c.Class, c.Name))
	}
	c, ok := a.cb.ClassConstant(class, name)
	if !ok {
		a.errorf(CodeNonExistentClassConstant, e.Constant.Span(),
			fmt.Sprintf("Constant `%s::%s` does not exist.", class, name), "unknown class constant")
		return ttype.Mixed()
	}
	a.result.References.AddMember(a.fn.scope, c.Class, name)
	return a.cb.Expand(c.Type, class)
}

func (a *analyzer) arrayAccess(e *ast.ArrayAccess, ctx *BlockContext) ttype.Union {
	if key := a.varKey(e); key != "" {
		if t, ok := ctx.Vars[key]; ok {
			a.expr(e.Array, ctx)
			a.expr(e.Index, ctx)
			return t
		}
	}
	base := a.expr(e.Array, ctx)
	if e.Index == nil {
		return ttype.Mixed()
	}
	idx := a.expr(e.Index, ctx)
	return elementType(base, literalKey(idx))
}

func literalKey(idx ttype.Union) *ttype.ArrayKey {
	if i, ok := idx.LiteralInt(); ok {
		k := ttype.IntKey(i)
		return &k
	}
	if s, ok := idx.LiteralString(); ok {
		k := ttype.StringKey(s)
		return &k
	}
	return nil
}

// elementType returns the type read from base at key, which is nil when the
// key is not a literal.
func elementType(base ttype.Union, key *ttype.ArrayKey) ttype.Union {
	var out []ttype.Union
	for _, at := range base.Types {
		switch at.Kind {
		case ttype.KKeyedArray:
			if key != nil {
				if en, ok := at.Entry(*key); ok {
					t := en.Type
					if en.Optional {
						t = ttype.Nullable(t)
					}
					out = append(out, t)
					continue
				}
				if at.Sealed {
					out = append(out, ttype.Null())
					continue
				}
			}
			_, v := at.ArrayParams()
			out = append(out, v)
		case ttype.KArray, ttype.KList, ttype.KIterable:
			_, v := at.ArrayParams()
			out = append(out, v)
		case ttype.KString:
			out = append(out, ttype.String())
		case ttype.KNull:
			out = append(out, ttype.Null())
		default:
			out = append(out, ttype.Mixed())
		}
	}
	if len(out) == 0 {
		return ttype.Mixed()
	}
	return ttype.Merge(out...)
}

// withElement returns base after writing value at key.  push is set for
// $a[] = value.
func withElement(base ttype.Union, key *ttype.ArrayKey, idx ttype.Union, push bool, value ttype.Union) ttype.Union {
	keyT := idx
	switch {
	case key != nil:
		keyT = ttype.Single(key.Atomic())
	case push:
		keyT = ttype.Int()
	case keyT.IsMixed() || keyT.IsNever():
		keyT = ttype.ArrayKeyType()
	}
	atoms := base.Types
	if base.IsNever() {
		atoms = []ttype.Atomic{ttype.EmptyArray()}
	}
	var out []ttype.Atomic
	for _, at := range atoms {
		switch at.Kind {
		case ttype.KKeyedArray:
			if key != nil {
				out = append(out, ttype.Keyed(at.Sealed, setEntry(at.Entries, ttype.Entry{Key: *key, Type: value})...))
				continue
			}
			if push && at.Sealed && (at.List || len(at.Entries) == 0) {
				k := ttype.IntKey(int64(len(at.Entries)))
				out = append(out, ttype.Keyed(true, setEntry(at.Entries, ttype.Entry{Key: k, Type: value})...))
				continue
			}
			k, v := at.ArrayParams()
			arr := ttype.ArrayOf(ttype.Merge(k, keyT), ttype.Merge(v, value))
			arr.NonEmpty = true
			out = append(out, arr)
		case ttype.KList:
			_, v := at.ArrayParams()
			if push {
				l := ttype.ListOf(ttype.Merge(v, value))
				l.NonEmpty = true
				out = append(out, l)
				continue
			}
			arr := ttype.ArrayOf(ttype.Merge(ttype.Int(), keyT), ttype.Merge(v, value))
			arr.NonEmpty = true
			out = append(out, arr)
		case ttype.KArray:
			k, v := at.ArrayParams()
			arr := ttype.ArrayOf(ttype.Merge(k, keyT), ttype.Merge(v, value))
			arr.NonEmpty = true
			out = append(out, arr)
		case ttype.KNull:
			if key != nil {
				out = append(out, ttype.Keyed(true, ttype.Entry{Key: *key, Type: value}))
			} else {
				arr := ttype.ArrayOf(keyT, value)
				arr.NonEmpty = true
				out = append(out, arr)
			}
		default:
			out = append(out, at)
		}
	}
	return ttype.Combine(out...)
}

func (a *analyzer) propertyFetch(e *ast.PropertyFetch, ctx *BlockContext) ttype.Union {
	obj := a.expr(e.Object, ctx)
	name := ""
	if id, ok := e.Property.(*ast.Ident); ok {
		name = id.Value
	} else {
		a.expr(e.Property, ctx)
	}
	t := a.propertyAccess(obj, name, e.Nullsafe, e.Property.Span(), ctx)
	if key := a.varKey(e); key != "" && a.settings.MemoizeProperties {
		if narrowed, ok := ctx.Vars[key]; ok {
			return narrowed
		}
	}
	return t
}

// propertyAccess returns the type of property name read from a value of
// type obj.
func (a *analyzer) propertyAccess(obj ttype.Union, name string, nullsafe bool, span source.Span, ctx *BlockContext) ttype.Union {
	if name == "" {
		return ttype.Mixed()
	}
	var out []ttype.Union
	nullable := false
	for _, at := range obj.Types {
		switch at.Kind {
		case ttype.KNull:
			nullable = true
		case ttype.KEnumCase:
			out = append(out, a.enumProperty(at, name))
		case ttype.KNamed:
			out = append(out, a.namedProperty(at, name, span))
		case ttype.KObject, ttype.KMixed, ttype.KTemplate, ttype.KNever:
			out = append(out, ttype.Mixed())
		default:
			a.errorf(CodeInvalidPropertyAccess, span,
				fmt.Sprintf("Cannot read property `$%s` on a value of type `%s`.", name, ttype.Single(at)),
				"not an object")
			out = append(out, ttype.Mixed())
		}
	}
	if nullable {
		switch {
		case len(out) == 0 && !nullsafe:
			a.errorf(CodeInvalidPropertyAccess, span,
				fmt.Sprintf("Cannot read property `$%s` on null.", name), "the value is always null")
		case !nullsafe && !ctx.InsideIsset:
			a.warnf(CodePossiblyNullPropertyAccess, span,
				fmt.Sprintf("Reading property `$%s` on a value that might be null.", name), "possibly null").
				WithHelp("Check for null first or use the nullsafe operator `?->`.")
		}
		out = append(out, ttype.Null())
	}
	if len(out) == 0 {
		return ttype.Mixed()
	}
	return ttype.Merge(out...)
}

func (a *analyzer) enumProperty(at ttype.Atomic, name string) ttype.Union {
	switch name {
	case "name":
		return ttype.Single(ttype.StringLit(at.Str))
	case "value":
		if c, ok := a.cb.EnumCase(at.Name, at.Str); ok && c.Value != nil {
			return *c.Value
		}
	}
	return ttype.Mixed()
}

func (a *analyzer) namedProperty(at ttype.Atomic, name string, span source.Span) ttype.Union {
	m, known := a.cb.ClassLike(at.Name)
	if !known {
		return ttype.Mixed()
	}
	if m.IsEnum() {
		switch name {
		case "name":
			return ttype.String()
		case "value":
			if m.BackingType != nil {
				return *m.BackingType
			}
		}
	}
	p, ok := a.cb.Property(at.Name, name)
	if !ok {
		if !a.dynamicMembers(m, "__get") {
			a.errorf(CodeNonExistentProperty, span,
				fmt.Sprintf("Property `%s::$%s` does not exist.", m.Name, name), "unknown property")
		}
		return ttype.Mixed()
	}
	a.result.References.AddMember(a.fn.scope, p.Class, "$"+name)
	t := a.cb.Expand(p.EffectiveType(), m.Name)
	return ttype.Substitute(t, classTemplates(m, at))
}

// dynamicMembers reports whether m may have members the codebase does not
// know about.
func (a *analyzer) dynamicMembers(m *codebase.ClassLikeMetadata, magic string) bool {
	if m.IsTrait() || strings.EqualFold(m.Name, "stdClass") {
		return true
	}
	if _, ok := a.cb.Method(m.Name, magic); ok {
		return true
	}
	return a.fn.class != nil && a.fn.class.IsTrait()
}

// classTemplates maps the templates of m to the generic arguments of at.
func classTemplates(m *codebase.ClassLikeMetadata, at ttype.Atomic) *ttype.TemplateResult {
	r := ttype.NewTemplateResult(m.TemplateBounds())
	for i, t := range m.Templates {
		if i < len(at.Params) {
			r.AddLower(t.Name, at.Params[i])
		}
	}
	return r
}

func (a *analyzer) staticPropertyFetch(e *ast.StaticPropertyFetch, ctx *BlockContext) ttype.Union {
	class := a.classExpr(e.Class, ctx)
	if class == "" {
		return ttype.Mixed()
	}
	name := e.Property.Name
	p, ok := a.cb.Property(class, name)
	if !ok {
		a.errorf(CodeNonExistentProperty, e.Property.Span(),
			fmt.Sprintf("Property `%s::$%s` does not exist.", class, name), "unknown property")
		return ttype.Mixed()
	}
	a.result.References.AddMember(a.fn.scope, p.Class, "$"+name)
	if key := a.varKey(e); key != "" && a.settings.MemoizeProperties {
		if narrowed, ok := ctx.Vars[key]; ok {
			return narrowed
		}
	}
	return a.cb.Expand(p.EffectiveType(), class)
}

// assignMode controls how an assignment records data flow.
type assignMode uint8

const (
	// modeAssign starts a new value for the variable.
	modeAssign assignMode = iota
	// modeBind binds a loop or catch variable, which is never reported as
	// unused.
	modeBind
	// modeElement updates part of an existing value.
	modeElement
)

func (a *analyzer) assign(e *ast.Assign, ctx *BlockContext) ttype.Union {
	switch e.Op {
	case token.Equal:
		t := a.expr(e.Value, ctx)
		if e.ByRef {
			if k := a.varKey(e.Value); isPlainVar(k) {
				ctx.refs[k] = true
				if _, ok := ctx.Vars[k]; !ok {
					ctx.Vars[k] = ttype.Null()
				}
			}
			if k := a.varKey(e.Target); isPlainVar(k) {
				ctx.refs[k] = true
			}
		}
		a.assignTo(e.Target, t, e.Span(), modeAssign, a.pure(e.Value), a.taintsOf(e.Value), ctx)
		return t
	case token.QuestionQuestionEqual:
		prev := ctx.InsideIsset
		ctx.InsideIsset = true
		cur := a.expr(e.Target, ctx)
		ctx.InsideIsset = prev
		v := a.expr(e.Value, ctx)
		t := ttype.Merge(cur.WithoutNull().Defined(), v)
		if cur.IsMixed() {
			t = ttype.Mixed()
		}
		taint := unionNodes(a.taintsOf(e.Target), a.taintsOf(e.Value))
		a.assignTo(e.Target, t, e.Span(), modeAssign, a.pure(e.Value), taint, ctx)
		return t
	}
	cur := a.expr(e.Target, ctx)
	v := a.expr(e.Value, ctx)
	op, ok := compoundOps[e.Op]
	t := ttype.Mixed()
	if ok {
		t = a.binaryType(op, cur, v, e.Span(), e.Value)
	}
	taint := unionNodes(a.taintsOf(e.Target), a.taintsOf(e.Value))
	a.assignTo(e.Target, t, e.Span(), modeAssign, a.pure(e.Value), taint, ctx)
	return t
}

// assignTo binds target to t.  site is the span of the whole assignment.
func (a *analyzer) assignTo(target ast.Expr, t ttype.Union, site source.Span, mode assignMode, pure bool, taint []*dataflow.Node, ctx *BlockContext) {
	switch tg := ast.Unparen(target).(type) {
	case *ast.Variable:
		key := "$" + tg.Name
		ctx.assign(key, t.Defined())
		switch mode {
		case modeAssign:
			a.define(key, site, pure, ctx)
			a.setTaint(key, tg.Span(), taint, ctx)
		case modeBind:
			delete(ctx.sources, key)
			a.setTaint(key, tg.Span(), taint, ctx)
		case modeElement:
			if len(taint) > 0 {
				a.setTaint(key, tg.Span(), unionNodes(ctx.taint[key], taint), ctx)
			}
		}
		a.record(tg, t)
	case *ast.ArrayAccess:
		a.assignElement(tg, t, site, taint, ctx)
	case *ast.PropertyFetch:
		obj := a.expr(tg.Object, ctx)
		name := ""
		if id, ok := tg.Property.(*ast.Ident); ok {
			name = id.Value
		} else {
			a.expr(tg.Property, ctx)
		}
		if mode != modeElement {
			a.checkPropertyWrite(obj, name, tg.Property.Span())
		}
		if key := a.varKey(tg); key != "" {
			ctx.assign(key, t)
		}
	case *ast.StaticPropertyFetch:
		if mode != modeElement {
			a.staticPropertyFetch(tg, ctx)
		}
		if key := a.varKey(tg); key != "" {
			ctx.assign(key, t)
		}
	case *ast.List:
		a.destructure(tg.Elements, t, mode, taint, ctx)
	case *ast.ArrayLiteral:
		a.destructure(tg.Elements, t, mode, taint, ctx)
	default:
		a.expr(target, ctx)
	}
}

// checkPropertyWrite reports writes to unknown properties and writes
// through values that are not objects.
func (a *analyzer) checkPropertyWrite(obj ttype.Union, name string, span source.Span) {
	if name == "" {
		return
	}
	for _, at := range obj.Types {
		switch at.Kind {
		case ttype.KNamed:
			m, known := a.cb.ClassLike(at.Name)
			if !known {
				continue
			}
			p, ok := a.cb.Property(at.Name, name)
			if !ok {
				if !a.dynamicMembers(m, "__set") {
					a.errorf(CodeNonExistentProperty, span,
						fmt.Sprintf("Property `%s::$%s` does not exist.", m.Name, name), "unknown property")
				}
				continue
			}
			a.result.References.AddMember(a.fn.scope, p.Class, "$"+name)
		case ttype.KNull:
			if obj.IsSingle() {
				a.errorf(CodeInvalidPropertyAccess, span,
					fmt.Sprintf("Cannot assign property `$%s` on null.", name), "the value is always null")
			}
		case ttype.KObject, ttype.KMixed, ttype.KTemplate, ttype.KEnumCase, ttype.KNever:
		default:
			a.errorf(CodeInvalidPropertyAccess, span,
				fmt.Sprintf("Cannot assign property `$%s` on a value of type `%s`.", name, ttype.Single(at)),
				"not an object")
		}
	}
}

func (a *analyzer) assignElement(acc *ast.ArrayAccess, value ttype.Union, site source.Span, taint []*dataflow.Node, ctx *BlockContext) {
	base := a.lvalue(acc.Array, ctx)
	idx := ttype.Never()
	var key *ttype.ArrayKey
	if acc.Index != nil {
		idx = a.expr(acc.Index, ctx)
		key = literalKey(idx)
	}
	updated := withElement(base, key, idx, acc.Index == nil, value)
	a.record(acc, value)

	// The base has been walked by lvalue; rebinding it must not report
	// again.
	a.silent++
	a.assignTo(acc.Array, updated, site, modeElement, false, taint, ctx)
	a.silent--
	if k := a.varKey(acc); k != "" {
		ctx.Vars[k] = value
	}
}

// lvalue returns the current type of an expression about to be written
// through.  An undefined variable starts out as an empty array.
func (a *analyzer) lvalue(e ast.Expr, ctx *BlockContext) ttype.Union {
	switch e := ast.Unparen(e).(type) {
	case *ast.Variable:
		key := "$" + e.Name
		t, ok := ctx.Vars[key]
		if !ok {
			return ttype.Single(ttype.EmptyArray())
		}
		a.use(key, e.Span(), ctx)
		return t.Defined()
	case *ast.ArrayAccess:
		base := a.lvalue(e.Array, ctx)
		if e.Index == nil {
			return ttype.Single(ttype.EmptyArray())
		}
		idx := a.expr(e.Index, ctx)
		if key := a.varKey(e); key != "" {
			if t, ok := ctx.Vars[key]; ok {
				return t
			}
		}
		t := elementType(base, literalKey(idx))
		if t.IsMixed() && base.IsNever() {
			return ttype.Single(ttype.EmptyArray())
		}
		return t
	}
	prev := ctx.InsideIsset
	ctx.InsideIsset = true
	defer func() { ctx.InsideIsset = prev }()
	return a.expr(e, ctx)
}

// destructure binds each element of a list assignment.  Each target is its
// own assignment site.
func (a *analyzer) destructure(elems []*ast.ArrayElement, t ttype.Union, mode assignMode, taint []*dataflow.Node, ctx *BlockContext) {
	pos := int64(0)
	for _, el := range elems {
		if el == nil || el.Value == nil {
			pos++
			continue
		}
		var key *ttype.ArrayKey
		if el.Key != nil {
			key = literalKey(a.expr(el.Key, ctx))
		} else {
			k := ttype.IntKey(pos)
			key = &k
			pos++
		}
		if mode == modeElement {
			mode = modeAssign
		}
		a.assignTo(el.Value, elementType(t, key), el.Value.Span(), mode, true, taint, ctx)
	}
}

// bind assigns a loop variable.
func (a *analyzer) bind(target ast.Expr, t ttype.Union, ctx *BlockContext) {
	a.assignTo(target, t, target.Span(), modeBind, true, nil, ctx)
}
