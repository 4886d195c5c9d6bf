// Copyright © 2024 The Mago authors

package ttype

import (
	"strconv"
	"strings"
)

// Hierarchy answers class relationship questions for the comparator.
// Names are compared case-insensitively.
type Hierarchy interface {
	// IsSubtype reports whether class child is parent, extends it, or
	// implements it.
	IsSubtype(child, parent string) bool
}

// ComparisonResult collects details of a containment check.
type ComparisonResult struct {
	// CoercedFromMixed is set when mixed flowed into a narrower type.
	CoercedFromMixed bool
	// Coerced is set when a parent type flowed into one of its subtypes.
	Coerced bool
	// Templates accumulates lower bounds for template parameters found in
	// the container.
	Templates *TemplateResult
}

// IsContainedBy reports whether every value of input is a value of
// container.
func IsContainedBy(h Hierarchy, input, container Union, result *ComparisonResult) bool {
	if result == nil {
		result = &ComparisonResult{}
	}
	if container.IsMixed() || input.IsNever() {
		return true
	}
	for _, a := range input.Types {
		if a.Kind == KFalse && input.IgnoreFalsable {
			continue
		}
		if !atomicInUnion(h, a, container, result) {
			return false
		}
	}
	return true
}

// CanBeContainedBy reports whether some value of input is a value of
// container.
func CanBeContainedBy(h Hierarchy, input, container Union) bool {
	if container.IsMixed() || input.IsMixed() || input.IsNever() {
		return true
	}
	for _, a := range input.Types {
		if atomicInUnion(h, a, container, &ComparisonResult{}) {
			return true
		}
		for _, c := range container.Types {
			if atomicContained(h, c, a, &ComparisonResult{}) {
				return true
			}
		}
	}
	return false
}

func atomicInUnion(h Hierarchy, a Atomic, container Union, result *ComparisonResult) bool {
	for _, c := range container.Types {
		if atomicContained(h, a, c, result) {
			return true
		}
	}
	// bool is contained by true|false.
	if a.Kind == KBool && container.Has(KTrue) && container.Has(KFalse) {
		return true
	}
	if a.Kind == KMixed {
		result.CoercedFromMixed = true
	}
	return false
}

func atomicContained(h Hierarchy, a, c Atomic, result *ComparisonResult) bool {
	if c.Kind == KMixed {
		return true
	}
	if c.Kind == KTemplate {
		if result.Templates != nil {
			result.Templates.AddLower(c.Name, Single(a))
		}
		if c.Bound == nil {
			return true
		}
		return IsContainedBy(h, Single(a), *c.Bound, result)
	}
	switch a.Kind {
	case KNever:
		return true
	case KMixed:
		return false
	case KTemplate:
		if c.Kind == KTemplate {
			return strings.EqualFold(a.Name, c.Name)
		}
		bound := Mixed()
		if a.Bound != nil {
			bound = *a.Bound
		}
		return IsContainedBy(h, bound, Single(c), result)
	}
	switch c.Kind {
	case KNull:
		return a.Kind == KNull || a.Kind == KVoid
	case KVoid:
		return a.Kind == KVoid || a.Kind == KNull
	case KBool:
		return a.Kind == KBool || a.Kind == KTrue || a.Kind == KFalse
	case KTrue, KFalse:
		return a.Kind == c.Kind
	case KInt:
		return a.Kind == KInt && intContained(a, c)
	case KFloat:
		switch a.Kind {
		case KFloat:
			return !c.Literal || (a.Literal && a.Float == c.Float)
		case KInt:
			return !c.Literal
		}
		return false
	case KString:
		return stringContained(a, c)
	case KClassString:
		return classStringContained(h, a, c)
	case KArrayKey:
		return a.Kind == KInt || a.Kind == KString || a.Kind == KClassString || a.Kind == KArrayKey
	case KNumeric:
		return a.Kind == KInt || a.Kind == KFloat || a.Kind == KNumeric || (a.Kind == KString && (a.Numeric || (a.Literal && isNumeric(a.Str))))
	case KScalar:
		return a.IsScalar()
	case KResource:
		return a.Kind == KResource
	case KArray, KList, KKeyedArray:
		return arrayContained(h, a, c, result)
	case KIterable:
		if a.IsArray() || a.Kind == KIterable {
			ak, av := a.ArrayParams()
			ck, cv := c.ArrayParams()
			return IsContainedBy(h, ak, ck, result) && IsContainedBy(h, av, cv, result)
		}
		return a.Kind == KNamed && h != nil && h.IsSubtype(a.Name, "Traversable")
	case KObject:
		return a.IsObject()
	case KNamed:
		return namedContained(h, a, c, result)
	case KEnumCase:
		return a.Kind == KEnumCase && strings.EqualFold(a.Name, c.Name) && a.Str == c.Str
	case KCallable:
		switch a.Kind {
		case KCallable, KClosure:
			return true
		case KString:
			if !a.Literal {
				result.Coerced = true
			}
			return a.Literal
		case KKeyedArray:
			return len(a.Entries) == 2 && a.List
		case KNamed:
			return h != nil && h.IsSubtype(a.Name, "Closure")
		}
		return false
	case KClosure:
		return a.Kind == KClosure || (a.Kind == KNamed && strings.EqualFold(a.Name, "Closure"))
	}
	return a.Key() == c.Key()
}

func intContained(a, c Atomic) bool {
	if c.Literal {
		return a.Literal && a.Int == c.Int
	}
	if c.Min == nil && c.Max == nil {
		return true
	}
	lo, hi := a.Min, a.Max
	if a.Literal {
		lo, hi = &a.Int, &a.Int
	}
	if c.Min != nil && (lo == nil || *lo < *c.Min) {
		return false
	}
	if c.Max != nil && (hi == nil || *hi > *c.Max) {
		return false
	}
	return true
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

func stringContained(a, c Atomic) bool {
	switch a.Kind {
	case KString:
	case KClassString:
		return !c.Literal && !c.Numeric
	default:
		return false
	}
	switch {
	case c.Literal:
		return a.Literal && a.Str == c.Str
	case c.Numeric:
		return a.Numeric || (a.Literal && isNumeric(a.Str))
	case c.NonEmpty:
		return a.NonEmpty || (a.Literal && a.Str != "")
	}
	return true
}

func classStringContained(h Hierarchy, a, c Atomic) bool {
	if a.Kind != KClassString {
		return false
	}
	target := c.Name
	if c.Bound != nil {
		if len(c.Bound.Types) == 1 && c.Bound.Types[0].Kind == KNamed {
			target = c.Bound.Types[0].Name
		} else {
			return true
		}
	}
	if target == "" {
		return true
	}
	name := a.Name
	if a.Bound != nil && len(a.Bound.Types) == 1 && a.Bound.Types[0].Kind == KNamed {
		name = a.Bound.Types[0].Name
	}
	if name == "" {
		return false
	}
	return isSubtype(h, name, target)
}

func isSubtype(h Hierarchy, child, parent string) bool {
	if strings.EqualFold(child, parent) {
		return true
	}
	return h != nil && h.IsSubtype(child, parent)
}

func namedContained(h Hierarchy, a, c Atomic, result *ComparisonResult) bool {
	switch a.Kind {
	case KNamed:
	case KEnumCase:
		return isSubtype(h, a.Name, c.Name)
	case KClosure:
		return strings.EqualFold(c.Name, "Closure")
	default:
		return false
	}
	if !isSubtype(h, a.Name, c.Name) {
		if isSubtype(h, c.Name, a.Name) {
			result.Coerced = true
		}
		return false
	}
	if len(c.Params) == 0 || len(a.Params) == 0 || !strings.EqualFold(a.Name, c.Name) {
		return true
	}
	for i := 0; i < len(a.Params) && i < len(c.Params); i++ {
		if !IsContainedBy(h, a.Params[i], c.Params[i], result) {
			return false
		}
	}
	return true
}

func arrayContained(h Hierarchy, a, c Atomic, result *ComparisonResult) bool {
	if !a.IsArray() {
		return false
	}
	if c.NonEmpty && atomicTruthiness(a) != AlwaysTruthy {
		return false
	}
	switch c.Kind {
	case KList:
		switch a.Kind {
		case KList:
		case KKeyedArray:
			if !a.List && !(a.Sealed && len(a.Entries) == 0) {
				return false
			}
		default:
			return false
		}
	case KKeyedArray:
		return shapeContained(h, a, c, result)
	}
	if a.Kind == KKeyedArray && len(a.Entries) == 0 && a.Sealed {
		return true
	}
	ak, av := a.ArrayParams()
	ck, cv := c.ArrayParams()
	return IsContainedBy(h, ak, ck, result) && IsContainedBy(h, av, cv, result)
}

func shapeContained(h Hierarchy, a, c Atomic, result *ComparisonResult) bool {
	if a.Kind != KKeyedArray {
		return false
	}
	for _, ce := range c.Entries {
		ae, ok := a.Entry(ce.Key)
		if !ok {
			if !ce.Optional {
				return false
			}
			continue
		}
		if ae.Optional && !ce.Optional {
			return false
		}
		if !IsContainedBy(h, ae.Type, ce.Type, result) {
			return false
		}
	}
	if c.Sealed {
		if !a.Sealed {
			return false
		}
		for _, ae := range a.Entries {
			if _, ok := c.Entry(ae.Key); !ok {
				return false
			}
		}
	}
	return true
}
