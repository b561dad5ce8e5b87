package annotation

import "strings"

// Stack holds the template docblocks active in one parsing scope.
type Stack struct {
	docs []string
}

func (s *Stack) Push(doc string) { s.docs = append(s.docs, doc) }

func (s *Stack) Pop() {
	if len(s.docs) > 0 {
		s.docs = s.docs[:len(s.docs)-1]
	}
}

// Active returns a snapshot of the stack, outermost template first.
func (s *Stack) Active() []string {
	if s == nil || len(s.docs) == 0 {
		return nil
	}
	return append([]string(nil), s.docs...)
}

func IsTemplateStart(doc string) bool {
	return strings.HasPrefix(doc, TemplateStart)
}

func IsTemplateEnd(doc string) bool {
	return strings.TrimSpace(doc) == TemplateEnd
}

// MergeTemplates folds the active templates into own. Template tags go
// before the element's own tags and template long descriptions prefix the
// element's. Short descriptions are never taken from a template. A template
// that is the element's own docblock is skipped.
func MergeTemplates(own *Set, doc string, templates []string) *Set {
	if len(templates) == 0 {
		return own
	}
	out := own.Clone()
	for i := len(templates) - 1; i >= 0; i-- {
		if templates[i] == doc {
			continue
		}
		tpl := Parse(templates[i])
		if tpl.long != "" {
			if out.long != "" {
				out.long = tpl.long + "\n" + out.long
			} else {
				out.long = tpl.long
			}
		}
		merged := NewSet()
		merged.short = out.short
		merged.long = out.long
		for _, name := range tpl.names {
			merged.Set(name, tpl.tags[name])
		}
		for _, name := range out.names {
			merged.Set(name, append(merged.tags[name], out.tags[name]...))
		}
		out = merged
	}
	return out
}

// Target selects the inheritance rules that apply to an element.
type Target int

const (
	TargetClass Target = iota
	TargetMethod
	TargetProperty
)

// Inheritance describes the element whose annotations are completed from
// its ancestors. Ancestors are given in search order: the parent class
// definition first, then each own interface.
type Inheritance struct {
	Target     Target
	Documented bool
	Params     int
	Ancestors  []*Set
}

// Inherit completes own from the ancestor sets.
func Inherit(own *Set, in Inheritance) *Set {
	out := own.Clone()

	if !in.Documented {
		for _, anc := range in.Ancestors {
			if !anc.IsEmpty() {
				out = anc.Clone()
				break
			}
		}
	} else {
		out.long = replaceMarker(out.long, in.Ancestors, (*Set).LongDescription)
		out.short = replaceMarker(out.short, in.Ancestors, (*Set).ShortDescription)
	}

	switch in.Target {
	case TargetProperty:
		if !out.Has("var") {
			copyTag(out, "var", in.Ancestors)
		}
	case TargetMethod:
		if in.Params > 0 && len(out.tags["param"]) < in.Params {
			params := out.Get("param")
			for _, anc := range in.Ancestors {
				inherited := anc.tags["param"]
				for i := len(params); i < len(inherited) && len(params) < in.Params; i++ {
					params = append(params, inherited[i])
				}
				if len(params) == in.Params {
					break
				}
			}
			if len(params) > 0 {
				out.Set("param", params)
			}
		}
		for _, name := range []string{"return", "throws"} {
			if !out.Has(name) {
				copyTag(out, name, in.Ancestors)
			}
		}
	}
	return out
}

func replaceMarker(text string, ancestors []*Set, get func(*Set) string) string {
	if !inheritMarker.MatchString(text) {
		return text
	}
	for _, anc := range ancestors {
		if v := get(anc); v != "" {
			text = inheritMarker.ReplaceAllLiteralString(text, v)
			break
		}
	}
	return strings.TrimSpace(inheritMarker.ReplaceAllLiteralString(text, ""))
}

func copyTag(out *Set, name string, ancestors []*Set) {
	for _, anc := range ancestors {
		if anc.Has(name) {
			out.Set(name, anc.tags[name])
			return
		}
	}
}
