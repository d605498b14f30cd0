package gen

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MakeGen renders a Makefile with one explicit compile rule per source.
// Compile rules share no targets, so `make -j` may run them in any order.
type MakeGen struct {
	cc     string
	target Target
}

func (g *MakeGen) SetCompiler(cc string) { g.cc = cc }
func (g *MakeGen) SetTarget(t Target)    { g.target = t }
func (g *MakeGen) BuildFile() string     { return "Makefile" }

// makePathEscaper escapes a path in targets, prerequisites and path lists.
var makePathEscaper = strings.NewReplacer(" ", `\ `, "#", `\#`, "$", "$$", "%", `\%`, ":", `\:`)

func makeQuote(s string) string { return makePathEscaper.Replace(s) }

// recipeArg quotes s as one shell argument inside a recipe line.
func recipeArg(s string) string { return strings.ReplaceAll(shellQuote(s), "$", "$$") }

// flagArg quotes s as one shell argument in a variable assignment, where an
// unescaped # would start a comment.
func flagArg(s string) string { return strings.ReplaceAll(recipeArg(s), "#", `\#`) }

// writeVar writes a commented NAME = value binding, padded like
//
//	# Compiler:
//	CC      = cc
func writeVar(sb *strings.Builder, comment, name, value string) {
	writeln(sb, "# ", comment)
	writeln(sb, strings.TrimRight(fmt.Sprintf("%-8s= %s", name, value), " "))
}

func (g *MakeGen) WriteVariables(sb *strings.Builder) {
	t := g.target
	writeVar(sb, "Object files:", "OBJS", joinQuoted(t.Objects(), makeQuote))
	writeVar(sb, "Header files:", "HEADERS", joinQuoted(t.Headers, makeQuote))
	srcs := make([]string, len(t.Sources))
	for i, s := range t.Sources {
		srcs[i] = s.Src
	}
	writeVar(sb, "Source files:", "SOURCES", joinQuoted(srcs, makeQuote))
	writeVar(sb, "Executable name, run the program with "+runHint(t.Name), "OUT", makeQuote(t.Name))

	writeln(sb)
	writeVar(sb, "Compiler flags:", "FLAGS", joinQuoted(t.Cflags, flagArg))
	writeVar(sb, "Linker flags:", "LDFLAGS", joinQuoted(t.Ldflags, flagArg))
	writeVar(sb, "Compiler:", "CC", g.cc)
}

func (g *MakeGen) WriteRules(sb *strings.Builder) {
	t := g.target

	// build
	writeln(sb)
	writeln(sb, "$(OUT): $(OBJS) | dirs")
	writeln(sb, "\t$(CC) $(OBJS) -o $(OUT) $(LDFLAGS)")

	// compile
	for _, s := range t.Sources {
		writeln(sb)
		writeln(sb, makeQuote(s.Obj), ": ", makeQuote(s.Src), " | dirs")
		writeln(sb, "\t$(CC) $(FLAGS) -c ", recipeArg(s.Src), " -o ", recipeArg(s.Obj))
	}

	// directories
	writeln(sb)
	writeln(sb, ".PHONY: dirs")
	writeln(sb, "dirs:")
	for _, dir := range t.Dirs {
		writeln(sb, "\tmkdir -p ", recipeArg(dir))
	}

	// clean
	writeln(sb)
	writeln(sb, ".PHONY: clean")
	writeln(sb, "clean:")
	writeln(sb, "\trm -f $(OBJS) $(OUT)")
}

func (g *MakeGen) Invoke(buildFile string) error {
	return runTool("make", "-f", buildFile)
}

// runHint is how a user starts name from the current directory.
func runHint(name string) string {
	if filepath.IsAbs(name) || strings.ContainsRune(name, '/') {
		return name
	}
	return "./" + name
}
