package index

import (
	"phpmodel/internal/engine/reflection"
)

type reason struct {
	kind    string
	name    string
	seq     int
	message string
}

// collect flattens a registry into rows. Classes whose trait composition
// fails contribute their own methods only.
func collect(reg *reflection.Registry) ([]Symbol, []Member, []reason) {
	var (
		symbols []Symbol
		members []Member
		reasons []reason
	)
	placeholder := func(p *reflection.Placeholder) {
		symbols = append(symbols, Symbol{
			Kind:  p.Kind().String(),
			Name:  p.Name(),
			State: p.State().String(),
			File:  p.FirstFile(),
		})
		for i, r := range p.Reasons() {
			reasons = append(reasons, reason{kind: p.Kind().String(), name: p.Name(), seq: i, message: r.Error()})
		}
	}

	for _, entry := range reg.Classes() {
		c, ok := entry.(*reflection.Class)
		if !ok {
			placeholder(entry.(*reflection.Placeholder))
			continue
		}
		symbols = append(symbols, Symbol{
			Kind:       reflection.SymbolClass.String(),
			Name:       c.Name(),
			State:      StateLive,
			File:       c.FileName(),
			StartLine:  c.StartLine(),
			EndLine:    c.EndLine(),
			ClassKind:  c.Kind().String(),
			Modifiers:  c.Modifiers(),
			Parent:     c.ParentClassName(),
			Summary:    c.ShortDescription(),
			Deprecated: c.IsDeprecated(),
		})

		methods, err := c.Methods()
		if err != nil {
			methods = c.OwnMethods()
		}
		for _, m := range methods {
			members = append(members, Member{
				ClassName:      c.Name(),
				Kind:           "method",
				Name:           m.Name(),
				DeclaringClass: m.DeclaringClassName(),
				DeclaringTrait: m.DeclaringTraitName(),
				Modifiers:      m.Modifiers(),
			})
		}
		for _, p := range c.Properties() {
			members = append(members, Member{
				ClassName:      c.Name(),
				Kind:           "property",
				Name:           p.Name(),
				DeclaringClass: p.DeclaringClassName(),
				DeclaringTrait: p.DeclaringTraitName(),
				Modifiers:      p.Modifiers(),
			})
		}
		for _, k := range c.Constants() {
			members = append(members, Member{
				ClassName:      c.Name(),
				Kind:           "constant",
				Name:           k.Name(),
				DeclaringClass: k.DeclaringClassName(),
				Modifiers:      k.Modifiers(),
			})
		}
	}

	for _, entry := range reg.Functions() {
		fn, ok := entry.(*reflection.Function)
		if !ok {
			placeholder(entry.(*reflection.Placeholder))
			continue
		}
		symbols = append(symbols, Symbol{
			Kind:       reflection.SymbolFunction.String(),
			Name:       fn.Name(),
			State:      StateLive,
			File:       fn.FileName(),
			StartLine:  fn.StartLine(),
			EndLine:    fn.EndLine(),
			Summary:    fn.ShortDescription(),
			Deprecated: fn.IsDeprecated(),
		})
	}

	for _, entry := range reg.Constants() {
		k, ok := entry.(*reflection.Constant)
		if !ok {
			placeholder(entry.(*reflection.Placeholder))
			continue
		}
		symbols = append(symbols, Symbol{
			Kind:       reflection.SymbolConstant.String(),
			Name:       k.Name(),
			State:      StateLive,
			File:       k.FileName(),
			StartLine:  k.StartLine(),
			EndLine:    k.EndLine(),
			Summary:    k.ShortDescription(),
			Deprecated: k.IsDeprecated(),
		})
	}

	for _, p := range reg.Unresolved() {
		placeholder(p)
	}
	return symbols, members, reasons
}
