package builder

import "strings"

// Role is what a discovered file is used for.
type Role int

const (
	RoleIgnored Role = iota
	RoleHeader
	RoleUnit
)

func (r Role) String() string {
	switch r {
	case RoleHeader:
		return "header"
	case RoleUnit:
		return "compilation unit"
	default:
		return "ignored"
	}
}

var (
	DefaultHeaderSuffixes = []string{".h", ".hpp"}
	DefaultUnitSuffixes   = []string{".c", ".cc", ".cpp"}
)

// Classifier maps paths to roles by their suffix, ignoring case.
type Classifier struct {
	headers map[string]struct{}
	units   map[string]struct{}
}

func suffixSet(suffixes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(suffixes))
	for _, s := range suffixes {
		set[strings.ToLower(strings.TrimPrefix(s, "."))] = struct{}{}
	}
	return set
}

// NewClassifier builds a classifier from header and unit suffixes. The
// leading dot is optional.
func NewClassifier(headers, units []string) Classifier {
	return Classifier{headers: suffixSet(headers), units: suffixSet(units)}
}

func DefaultClassifier() Classifier {
	return NewClassifier(DefaultHeaderSuffixes, DefaultUnitSuffixes)
}

// Classify looks at everything after the last '.' of path. Headers win over
// units when a suffix is in both sets.
func (c Classifier) Classify(path string) Role {
	dot := strings.LastIndexByte(path, '.')
	if dot < 0 || isSeparator(path[len(path)-1]) {
		return RoleIgnored
	}
	suffix := strings.ToLower(path[dot+1:])
	if _, ok := c.headers[suffix]; ok {
		return RoleHeader
	}
	if _, ok := c.units[suffix]; ok {
		return RoleUnit
	}
	return RoleIgnored
}

// isCxx reports whether a unit is C++ rather than C.
func isCxx(path string) bool {
	dot := strings.LastIndexByte(path, '.')
	return dot >= 0 && strings.ToLower(path[dot+1:]) != "c"
}
