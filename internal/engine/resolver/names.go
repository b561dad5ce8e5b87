// # internal/engine/resolver/names.go
package resolver

import "strings"

// Separator splits namespace segments.
const Separator = `\`

// Resolve turns a raw, possibly aliased class name into a fully qualified
// name, given the alias map and the namespace the name appears in.
func Resolve(raw string, aliases map[string]string, namespace string) string {
	if strings.HasPrefix(raw, Separator) {
		return strings.TrimLeft(raw, Separator)
	}
	if !strings.Contains(raw, Separator) {
		if fqn, ok := lookupAlias(aliases, raw); ok {
			return fqn
		}
	} else {
		first, rest, _ := strings.Cut(raw, Separator)
		if strings.EqualFold(first, "namespace") {
			return Join(namespace, rest)
		}
		if fqn, ok := lookupAlias(aliases, first); ok {
			return fqn + Separator + rest
		}
	}
	return Join(namespace, raw)
}

// ResolveFunction resolves a function or constant name. Unqualified names
// are returned together with their global fallback, which applies when the
// namespaced name is not defined.
func ResolveFunction(raw string, aliases map[string]string, namespace string) (fqn, fallback string) {
	if strings.HasPrefix(raw, Separator) || strings.Contains(raw, Separator) {
		return Resolve(raw, aliases, namespace), ""
	}
	if fqn, ok := lookupAlias(aliases, raw); ok {
		return fqn, ""
	}
	if namespace == "" {
		return raw, ""
	}
	return Join(namespace, raw), raw
}

func lookupAlias(aliases map[string]string, name string) (string, bool) {
	if fqn, ok := aliases[name]; ok {
		return fqn, true
	}
	for alias, fqn := range aliases {
		if strings.EqualFold(alias, name) {
			return fqn, true
		}
	}
	return "", false
}

// Join appends name to namespace.
func Join(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + Separator + name
}

// Split returns the namespace and short name of a fully qualified name.
func Split(fqn string) (namespace, short string) {
	fqn = strings.TrimLeft(fqn, Separator)
	idx := strings.LastIndex(fqn, Separator)
	if idx < 0 {
		return "", fqn
	}
	return fqn[:idx], fqn[idx+1:]
}

// Key normalizes a class or function name for case-insensitive lookup.
func Key(fqn string) string {
	return strings.ToLower(strings.TrimLeft(fqn, Separator))
}

// ConstantKey normalizes a constant name: the namespace part is case
// insensitive, the short name is not.
func ConstantKey(fqn string) string {
	ns, short := Split(fqn)
	if ns == "" {
		return short
	}
	return strings.ToLower(ns) + Separator + short
}

// DefaultAlias returns the alias a use statement introduces when none is
// given: the last segment of the imported name.
func DefaultAlias(fqn string) string {
	_, short := Split(fqn)
	return short
}
