// Copyright © 2024 The Mago authors

package ttype

import "strings"

// Param is a callable parameter.
type Param struct {
	Name     string
	Type     Union
	Optional bool
	Variadic bool
	ByRef    bool
}

// Signature is the shape of a callable type.  Return is nil when unknown.
type Signature struct {
	Params []Param
	Return *Union
	Pure   bool
}

// Required returns the number of required parameters.
func (s *Signature) Required() int {
	n := 0
	for _, p := range s.Params {
		if !p.Optional && !p.Variadic {
			n++
		}
	}
	return n
}

// ReturnType returns the declared return type, or mixed.
func (s *Signature) ReturnType() Union {
	if s == nil || s.Return == nil {
		return Mixed()
	}
	return *s.Return
}

func (s *Signature) write(b *strings.Builder, key bool) {
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		p.Type.write(b, key)
		if p.Variadic {
			b.WriteString("...")
		} else if p.Optional {
			b.WriteByte('=')
		}
	}
	b.WriteByte(')')
	if s.Return != nil {
		b.WriteString(": ")
		s.Return.write(b, key)
	}
}
