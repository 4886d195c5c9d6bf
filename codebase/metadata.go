// Copyright © 2024 The Mago authors

package codebase

import (
	"strings"

	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/source"
	"github.com/magophp/mago/ttype"
)

// Visibility is a member access level.
type Visibility uint8

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "public"
	}
}

// FunctionLikeKind distinguishes the declarations that share
// FunctionLikeMetadata.
type FunctionLikeKind uint8

const (
	FunctionKind FunctionLikeKind = iota
	MethodKind
	ClosureKind
	ArrowFunctionKind
)

// TemplateMetadata is a declared template parameter.  Defining identifies
// the declaration that owns it.
type TemplateMetadata struct {
	Name      string
	Defining  string
	Bound     ttype.Union
	Covariant bool
}

// Atomic returns the template type referring to t.
func (t TemplateMetadata) Atomic() ttype.Atomic {
	return ttype.Template(t.Name, t.Defining, t.Bound)
}

// ParameterMetadata describes one parameter.  Type is nil when neither a
// hint nor a docblock gives one.
type ParameterMetadata struct {
	Name       string
	Span       source.Span
	Type       *ttype.Union
	HasDefault bool
	Default    *ttype.Union
	Variadic   bool
	ByRef      bool
	Promoted   bool
}

// EffectiveType returns the parameter type or mixed.
func (p *ParameterMetadata) EffectiveType() ttype.Union {
	if p.Type == nil {
		return ttype.Mixed()
	}
	return *p.Type
}

// FunctionLikeMetadata describes a function, method, closure, or arrow
// function.  For methods Name is the method name as declared and Class the
// declaring class; for functions Name is fully qualified.
type FunctionLikeMetadata struct {
	Name     string
	Kind     FunctionLikeKind
	Class    string
	Span     source.Span
	NameSpan source.Span
	Category source.Category

	Params     []*ParameterMetadata
	ReturnType *ttype.Union
	ReturnSpan source.Span
	Templates  []TemplateMetadata
	Throws     []ttype.Union

	Visibility Visibility
	Static     bool
	Abstract   bool
	Final      bool
	ByRef      bool
	Deprecated bool
	Pure       bool
	Generator  bool
}

// Key returns the lookup key of the declaration.
func (f *FunctionLikeMetadata) Key() string {
	return strings.ToLower(f.Name)
}

// DisplayName returns Class::name for methods and the name otherwise.
func (f *FunctionLikeMetadata) DisplayName() string {
	if f.Kind == MethodKind {
		return f.Class + "::" + f.Name
	}
	return f.Name
}

// Required returns the number of parameters without a default.
func (f *FunctionLikeMetadata) Required() int {
	n := 0
	for _, p := range f.Params {
		if !p.HasDefault && !p.Variadic {
			n++
		}
	}
	return n
}

// Variadic reports whether the last parameter collects extra arguments.
func (f *FunctionLikeMetadata) Variadic() bool {
	return len(f.Params) > 0 && f.Params[len(f.Params)-1].Variadic
}

// Param returns the parameter called name and its position.
func (f *FunctionLikeMetadata) Param(name string) (*ParameterMetadata, int) {
	for i, p := range f.Params {
		if p.Name == name {
			return p, i
		}
	}
	return nil, -1
}

// ParamAt returns the parameter receiving the argument at position i,
// accounting for variadics.
func (f *FunctionLikeMetadata) ParamAt(i int) (*ParameterMetadata, bool) {
	if i < len(f.Params) {
		return f.Params[i], true
	}
	if f.Variadic() {
		return f.Params[len(f.Params)-1], true
	}
	return nil, false
}

// Signature returns the callable type of the declaration.
func (f *FunctionLikeMetadata) Signature() *ttype.Signature {
	sig := &ttype.Signature{Return: f.ReturnType, Pure: f.Pure}
	for _, p := range f.Params {
		sig.Params = append(sig.Params, ttype.Param{
			Name:     p.Name,
			Type:     p.EffectiveType(),
			Optional: p.HasDefault,
			Variadic: p.Variadic,
			ByRef:    p.ByRef,
		})
	}
	return sig
}

// TemplateBounds returns the upper bound of each template, keyed by
// lowercase name.
func (f *FunctionLikeMetadata) TemplateBounds() map[string]ttype.Union {
	if len(f.Templates) == 0 {
		return nil
	}
	out := make(map[string]ttype.Union, len(f.Templates))
	for _, t := range f.Templates {
		out[strings.ToLower(t.Name)] = t.Bound
	}
	return out
}

// ConstantMetadata describes a global constant.
type ConstantMetadata struct {
	Name     string
	Span     source.Span
	Category source.Category
	Type     ttype.Union
}

// ClassConstantMetadata describes a class constant.
type ClassConstantMetadata struct {
	Name       string
	Class      string
	Span       source.Span
	Type       ttype.Union
	Visibility Visibility
	Final      bool
	Abstract   bool
}

// EnumCaseMetadata describes an enum case.  Value is nil for pure enums.
type EnumCaseMetadata struct {
	Name  string
	Class string
	Span  source.Span
	Value *ttype.Union
}

// PropertyMetadata describes a property.  Type is nil for untyped
// properties without a @var tag.
type PropertyMetadata struct {
	Name       string
	Class      string
	Span       source.Span
	Type       *ttype.Union
	Default    *ttype.Union
	Visibility Visibility
	Static     bool
	Readonly   bool
	Promoted   bool
	Deprecated bool
}

// EffectiveType returns the property type or mixed.
func (p *PropertyMetadata) EffectiveType() ttype.Union {
	if p.Type == nil {
		return ttype.Mixed()
	}
	return *p.Type
}

// Members organizes one kind of class member.  Keys are lowercase for
// methods and case-sensitive for properties and constants.
type Members struct {
	// Declared holds the members written in the class body itself.
	Declared map[string]bool
	// Appearing maps every member visible on the class to the lowercase
	// name of the class-like that declares it.
	Appearing map[string]string
	// OverriddenBy maps a member declared here to the lowercase names of
	// descendants that redeclare it.
	OverriddenBy map[string][]string
	// Visible holds the members accessible from outside the class.
	Visible map[string]bool
}

func newMembers() Members {
	return Members{
		Declared:     make(map[string]bool),
		Appearing:    make(map[string]string),
		OverriddenBy: make(map[string][]string),
		Visible:      make(map[string]bool),
	}
}

// InheritedFrom returns the declaring class of a member that appears on
// class self without being declared there.
func (m Members) InheritedFrom(self, key string) (string, bool) {
	from, ok := m.Appearing[key]
	if !ok || from == self {
		return "", false
	}
	return from, true
}

// TraitAlias is an "as" adaptation.  Trait is empty when the method is
// not qualified; Visibility is nil when unchanged.
type TraitAlias struct {
	Trait      string
	Method     string
	Alias      string
	Visibility *Visibility
}

// ClassLikeMetadata describes a class, interface, trait, or enum.
type ClassLikeMetadata struct {
	Name     string
	Kind     ast.ClassKind
	Span     source.Span
	NameSpan source.Span
	Category source.Category

	Final      bool
	Abstract   bool
	Readonly   bool
	Deprecated bool
	Anonymous  bool

	// Parent is the direct parent class.  Interfaces list the interfaces
	// they extend in Interfaces.
	Parent     string
	Interfaces []string
	Traits     []string

	// TraitAliases and TraitExclusions record the adaptations of trait
	// use blocks.  Exclusions map a lowercase trait to the lowercase
	// methods it does not contribute.
	TraitAliases    []TraitAlias
	TraitExclusions map[string][]string

	// AllParents and AllInterfaces are filled by Populate and hold
	// lowercase names, nearest first.
	AllParents    []string
	AllInterfaces []string

	Templates        []TemplateMetadata
	TemplateExtended map[string][]ttype.Union
	BackingType      *ttype.Union

	Constants  map[string]*ClassConstantMetadata
	Cases      map[string]*EnumCaseMetadata
	Properties map[string]*PropertyMetadata
	Methods    map[string]*FunctionLikeMetadata

	MethodMembers   Members
	PropertyMembers Members
	ConstantMembers Members

	parents    map[string]bool
	interfaces map[string]bool
}

// NewClassLike returns empty metadata for a class-like.
func NewClassLike(name string, kind ast.ClassKind) *ClassLikeMetadata {
	return &ClassLikeMetadata{
		Name:             name,
		Kind:             kind,
		TemplateExtended: make(map[string][]ttype.Union),
		TraitExclusions:  make(map[string][]string),
		Constants:        make(map[string]*ClassConstantMetadata),
		Cases:            make(map[string]*EnumCaseMetadata),
		Properties:       make(map[string]*PropertyMetadata),
		Methods:          make(map[string]*FunctionLikeMetadata),
		MethodMembers:    newMembers(),
		PropertyMembers:  newMembers(),
		ConstantMembers:  newMembers(),
	}
}

// Key returns the lookup key of the class-like.
func (c *ClassLikeMetadata) Key() string {
	return Key(c.Name)
}

// IsInterface reports whether c is an interface.
func (c *ClassLikeMetadata) IsInterface() bool { return c.Kind == ast.KindInterface }

// IsTrait reports whether c is a trait.
func (c *ClassLikeMetadata) IsTrait() bool { return c.Kind == ast.KindTrait }

// IsEnum reports whether c is an enum.
func (c *ClassLikeMetadata) IsEnum() bool { return c.Kind == ast.KindEnum }

// Instantiable reports whether new may be applied to c.
func (c *ClassLikeMetadata) Instantiable() bool {
	return c.Kind == ast.KindClass && !c.Abstract
}

// HasParent reports whether name is a proper ancestor class of c.
func (c *ClassLikeMetadata) HasParent(name string) bool {
	return c.parents[Key(name)]
}

// HasInterface reports whether c implements name, directly or not.
func (c *ClassLikeMetadata) HasInterface(name string) bool {
	return c.interfaces[Key(name)]
}

// ParentKey returns the lowercase direct parent, or "".
func (c *ClassLikeMetadata) ParentKey() string {
	return Key(c.Parent)
}

// TemplateBounds returns the upper bound of each class template, keyed by
// lowercase name.
func (c *ClassLikeMetadata) TemplateBounds() map[string]ttype.Union {
	out := make(map[string]ttype.Union, len(c.Templates))
	for _, t := range c.Templates {
		out[strings.ToLower(t.Name)] = t.Bound
	}
	return out
}

// Key normalizes a class or function name for lookup.
func Key(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, `\`))
}

// ConstantKey normalizes a constant name for lookup.  The namespace part is
// case-insensitive, the constant name is not.
func ConstantKey(name string) string {
	name = strings.TrimPrefix(name, `\`)
	i := strings.LastIndexByte(name, '\\')
	if i < 0 {
		return name
	}
	return strings.ToLower(name[:i]) + name[i:]
}
