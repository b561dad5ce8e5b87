package reflection

import (
	"strings"

	"phpmodel/internal/engine/annotation"
	"phpmodel/internal/engine/resolver"
)

// copyDoc fills what own lacks from the elements named by its @copydoc
// tags. Targets are written as Class, Class::method(), Class::$property,
// Class::CONSTANT or function().
func (r *Registry) copyDoc(own *annotation.Set, ctx *names) *annotation.Set {
	targets := own.CopyDocTargets()
	if r == nil || len(targets) == 0 {
		return own
	}
	if ctx == nil {
		ctx = newNames("")
	}
	for _, target := range targets {
		if src := r.copyDocSource(target, ctx); src != nil {
			own.FillMissing(src)
		}
	}
	return own
}

func (r *Registry) copyDocSource(target string, ctx *names) *annotation.Set {
	class, member, ok := strings.Cut(target, "::")
	if !ok {
		if fn, found := strings.CutSuffix(target, "()"); found {
			fqn, fallback := resolver.ResolveFunction(fn, ctx.funcAliases, ctx.namespace)
			if !r.HasFunction(fqn) && fallback != "" {
				fqn = fallback
			}
			if f, live := r.Function(fqn).(*Function); live {
				return f.Annotations()
			}
			return nil
		}
		if c := r.liveClass(ctx.resolveClass(target)); c != nil {
			return c.Annotations()
		}
		return nil
	}

	c := r.liveClass(ctx.resolveClass(class))
	if c == nil {
		return nil
	}
	switch {
	case strings.HasPrefix(member, "$"):
		if p, err := c.Property(member); err == nil {
			return p.Annotations()
		}
	case strings.HasSuffix(member, "()"):
		if m, err := c.Method(strings.TrimSuffix(member, "()")); err == nil {
			return m.Annotations()
		}
	default:
		if k, err := c.Constant(member); err == nil {
			return k.Annotations()
		}
	}
	return nil
}
