package pkgid

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a dotted sequence of non-negative integers, e.g. "1.2.3" or
// "0.2.1.3". Versions of any arity compare component-wise, with missing
// trailing components treated as zero, so "1.0" == "1.0.0" and
// "1.0" < "1.0.1".
type Version []int

// ParseVersion parses a dotted version string.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return nil, fmt.Errorf("empty version")
	}

	parts := strings.Split(s, ".")
	v := make(Version, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || (len(p) > 1 && p[0] == '0') {
			return nil, fmt.Errorf("invalid version %q: component %q is not a plain non-negative integer", s, p)
		}
		v[i] = n
	}
	return v, nil
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Compare returns -1, 0, or 1 ordering v against o.
func (v Version) Compare(o Version) int {
	n := len(v)
	if len(o) > n {
		n = len(o)
	}
	for i := 0; i < n; i++ {
		var a, b int
		if i < len(v) {
			a = v[i]
		}
		if i < len(o) {
			b = o[i]
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

// ID identifies a single release of a package. It is a value type used only
// as a key; never mutate it.
type ID struct {
	Name    string
	Version Version
}

// String renders the canonical "name-version" form, e.g. "foo-1.2.3".
func (id ID) String() string {
	return id.Name + "-" + id.Version.String()
}

// Parse parses a canonical "name-version" identifier. The version is the
// portion after the last dash; everything before it is the name, so dashed
// names like "bytestring-builder-0.10.8" parse correctly.
func Parse(s string) (ID, error) {
	i := strings.LastIndex(s, "-")
	if i <= 0 || i == len(s)-1 {
		return ID{}, fmt.Errorf("invalid package id %q: expected name-version (e.g. foo-1.2.3)", s)
	}

	v, err := ParseVersion(s[i+1:])
	if err != nil {
		return ID{}, fmt.Errorf("invalid package id %q: %w", s, err)
	}

	return ID{Name: s[:i], Version: v}, nil
}
