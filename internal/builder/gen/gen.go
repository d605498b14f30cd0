package gen

import "strings"

// Source is one compilation unit and the object file it compiles to.
type Source struct {
	Src string
	Obj string
}

// Target is a single executable built from independently compiled sources.
type Target struct {
	Name    string
	Headers []string
	Sources []Source
	Dirs    []string // distinct object directories, in first-seen order
	Cflags  []string
	Ldflags []string
}

// Objects returns the object files of t in source order.
func (t Target) Objects() []string {
	objs := make([]string, len(t.Sources))
	for i, s := range t.Sources {
		objs[i] = s.Obj
	}
	return objs
}

type Generator interface {
	SetCompiler(cc string)
	SetTarget(t Target)
	WriteVariables(sb *strings.Builder)
	WriteRules(sb *strings.Builder)
	// BuildFile is the default name of the generated file, or "" when the
	// generator doesn't write one.
	BuildFile() string
	// Invoke builds the target from the generated file at buildFile.
	Invoke(buildFile string) error
}
