// Package annotation parses docblocks into descriptions and tag lists and
// implements docblock templates and ancestor inheritance.
package annotation

import (
	"regexp"
	"strings"
)

const (
	// Reserved keys for the free-text descriptions.
	ShortDescription = " short_description"
	LongDescription  = " long_description"

	TemplateStart = "/**#@+"
	TemplateEnd   = "/**#@-*/"

	InheritMarker = "{@inheritdoc}"
)

var (
	tagLine       = regexp.MustCompile(`^\s*@(\S+)\s*(.*)`)
	leadingStar   = regexp.MustCompile(`^\*\s?`)
	inheritMarker = regexp.MustCompile(`(?i)\{@inheritdoc\}`)
)

// Set is one parsed docblock: a short and a long description plus an
// ordered multimap of tags.
type Set struct {
	short string
	long  string
	names []string
	tags  map[string][]string
}

func NewSet() *Set {
	return &Set{tags: make(map[string][]string)}
}

// Parse splits a raw docblock into descriptions and tags.
func Parse(doc string) *Set {
	s := NewSet()
	if strings.TrimSpace(doc) == "" {
		return s
	}

	body := strings.TrimSpace(doc)
	body = strings.TrimPrefix(body, TemplateStart)
	if body == TemplateEnd {
		return s
	}
	body = strings.TrimPrefix(body, "/**")
	body = strings.TrimSuffix(body, "*/")
	body = strings.TrimSpace(body)

	current := ShortDescription
	var short, long []string
	for _, raw := range strings.Split(body, "\n") {
		line := leadingStar.ReplaceAllString(strings.TrimSpace(raw), "")

		if line == "" && current == ShortDescription {
			current = LongDescription
			continue
		}
		if m := tagLine.FindStringSubmatch(line); m != nil {
			current = m[1]
			s.Add(current, m[2])
			continue
		}
		switch current {
		case ShortDescription:
			short = append(short, line)
		case LongDescription:
			long = append(long, line)
		default:
			values := s.tags[current]
			values[len(values)-1] += "\n" + line
		}
	}

	s.short = clean(strings.Join(short, "\n"))
	s.long = clean(strings.Join(long, "\n"))
	for name, values := range s.tags {
		for i := range values {
			values[i] = clean(values[i])
		}
		s.tags[name] = values
	}
	return s
}

func clean(v string) string {
	return strings.TrimSpace(strings.ReplaceAll(v, "{@*}", "*/"))
}

func (s *Set) ShortDescription() string { return s.short }
func (s *Set) LongDescription() string  { return s.long }

func (s *Set) SetShortDescription(v string) { s.short = v }
func (s *Set) SetLongDescription(v string)  { s.long = v }

// Add appends one text block to a tag.
func (s *Set) Add(name, value string) {
	if _, ok := s.tags[name]; !ok {
		s.names = append(s.names, name)
	}
	s.tags[name] = append(s.tags[name], value)
}

// Set replaces every block of a tag.
func (s *Set) Set(name string, values []string) {
	switch name {
	case ShortDescription:
		s.short = strings.Join(values, "\n")
		return
	case LongDescription:
		s.long = strings.Join(values, "\n")
		return
	}
	if len(values) == 0 {
		s.Delete(name)
		return
	}
	if _, ok := s.tags[name]; !ok {
		s.names = append(s.names, name)
	}
	s.tags[name] = append([]string(nil), values...)
}

func (s *Set) Delete(name string) {
	if _, ok := s.tags[name]; !ok {
		return
	}
	delete(s.tags, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
}

// Has reports whether a tag or reserved description is present.
func (s *Set) Has(name string) bool {
	switch name {
	case ShortDescription:
		return s.short != ""
	case LongDescription:
		return s.long != ""
	}
	return len(s.tags[name]) > 0
}

// Get returns the text blocks of a tag; reserved keys yield a single block.
func (s *Set) Get(name string) []string {
	switch name {
	case ShortDescription:
		if s.short == "" {
			return nil
		}
		return []string{s.short}
	case LongDescription:
		if s.long == "" {
			return nil
		}
		return []string{s.long}
	}
	return append([]string(nil), s.tags[name]...)
}

// Names lists tag names in first-seen order.
func (s *Set) Names() []string {
	return append([]string(nil), s.names...)
}

func (s *Set) IsEmpty() bool {
	return s.short == "" && s.long == "" && len(s.names) == 0
}

// All flattens the set, reserved keys included.
func (s *Set) All() map[string][]string {
	out := make(map[string][]string, len(s.names)+2)
	if s.short != "" {
		out[ShortDescription] = []string{s.short}
	}
	if s.long != "" {
		out[LongDescription] = []string{s.long}
	}
	for _, name := range s.names {
		out[name] = append([]string(nil), s.tags[name]...)
	}
	return out
}

func (s *Set) Clone() *Set {
	c := NewSet()
	c.short = s.short
	c.long = s.long
	for _, name := range s.names {
		c.Set(name, s.tags[name])
	}
	return c
}

// Deprecated reports whether the set carries a @deprecated tag.
func (s *Set) Deprecated() bool {
	return s.Has("deprecated")
}

// CopyDocTargets returns the element names listed in @copydoc tags.
func (s *Set) CopyDocTargets() []string {
	var out []string
	for _, v := range s.tags["copydoc"] {
		if fields := strings.Fields(v); len(fields) > 0 {
			out = append(out, fields[0])
		}
	}
	return out
}

// FillMissing copies every tag or description from src that s lacks.
func (s *Set) FillMissing(src *Set) {
	if s.short == "" {
		s.short = src.short
	}
	if s.long == "" {
		s.long = src.long
	}
	for _, name := range src.names {
		if !s.Has(name) {
			s.Set(name, src.tags[name])
		}
	}
}
