package util

import "strings"

// Sep separates the parts of every remote key.
const Sep = ":"

// Join composes a remote key from its parts, skipping empty ones, so that an
// empty prefix does not produce a leading separator.
//
//	Join("app", "general:users")        -> "app:general:users"
//	Join("", "general:users", "lock")   -> "general:users:lock"
func Join(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, Sep)
}

// SideSep joins a namespace to the name of a standalone key (Add flags,
// locks). Prefixes and namespaces must not contain it, which keeps a
// standalone key from ever equalling a namespace hash key.
const SideSep = "#"

// Side composes the standalone key "prefix:namespace#name".
//
//	Side("app", "general:jobs", "import") -> "app:general:jobs#import"
func Side(prefix, namespace, name string) string {
	return Join(prefix, namespace) + SideSep + name
}

// Namespace composes the logical namespace "base:location".
func Namespace(base, location string) string {
	return Join(base, location)
}

// Pattern returns a SCAN match pattern for keys under prefix. An empty
// pattern matches everything below the prefix.
func Pattern(prefix, pattern string) string {
	if pattern == "" {
		pattern = "*"
	}
	return Join(prefix, pattern)
}

// TrimPrefix strips "prefix:" from a remote key.
func TrimPrefix(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, prefix+Sep)
}
