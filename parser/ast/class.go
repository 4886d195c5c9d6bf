// Copyright © 2024 The Mago authors

package ast

// ClassKind is the flavour of a class-like declaration.
type ClassKind uint8

const (
	KindClass ClassKind = iota
	KindInterface
	KindTrait
	KindEnum
)

func (k ClassKind) String() string {
	switch k {
	case KindInterface:
		return "interface"
	case KindTrait:
		return "trait"
	case KindEnum:
		return "enum"
	default:
		return "class"
	}
}

// ClassLike is a class, interface, trait, or enum declaration.  Extends
// holds at most one name for classes and any number for interfaces.
type ClassLike struct {
	Loc
	Kind        ClassKind
	Attributes  []*AttributeList
	Modifiers   Modifiers
	Name        *Ident
	Extends     []*Name
	Implements  []*Name
	BackingType Hint
	Members     []Member
}

// ClassConst is a class constant declaration.
type ClassConst struct {
	Loc
	Attributes []*AttributeList
	Modifiers  Modifiers
	Type       Hint
	Items      []*ConstItem
}

// PropertyItem is one property of a property declaration.
type PropertyItem struct {
	Loc
	Var     *Variable
	Default Expr
}

// Property is a property declaration.
type Property struct {
	Loc
	Attributes []*AttributeList
	Modifiers  Modifiers
	Type       Hint
	Items      []*PropertyItem
}

// Method is a method declaration.  Body is nil for abstract and interface
// methods.
type Method struct {
	Loc
	Attributes []*AttributeList
	Modifiers  Modifiers
	ByRef      bool
	Name       *Ident
	Params     *ParameterList
	ReturnType Hint
	Body       *Block
}

// TraitUse is use A, B; inside a class body.  Adaptation blocks are kept
// only as spans.
type TraitUse struct {
	Loc
	Traits      []*Name
	Adaptations []*TraitAdaptation
}

// TraitAdaptation is an insteadof or as rule.  Only the alias form is
// modelled; Method names the trait method and Alias its new name.
type TraitAdaptation struct {
	Loc
	Trait      *Name
	Method     *Ident
	Insteadof  []*Name
	Alias      *Ident
	Visibility *Modifier
}

// EnumCase is case NAME = value;.
type EnumCase struct {
	Loc
	Attributes []*AttributeList
	Name       *Ident
	Value      Expr
}

func (*ClassConst) memberNode() {}
func (*Property) memberNode()   {}
func (*Method) memberNode()     {}
func (*TraitUse) memberNode()   {}
func (*EnumCase) memberNode()   {}
