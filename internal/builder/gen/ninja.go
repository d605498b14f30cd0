package gen

import (
	"strings"
)

type NinjaGen struct {
	cc     string
	target Target
}

func (g *NinjaGen) SetCompiler(cc string) { g.cc = cc }
func (g *NinjaGen) SetTarget(t Target)    { g.target = t }
func (g *NinjaGen) BuildFile() string     { return "build.ninja" }

var ninjaPathEscaper = strings.NewReplacer("$", "$$", ":", "$:", " ", "$ ")

func quote(s string) string { return ninjaPathEscaper.Replace(s) }

// ninjaFlag quotes s as one shell argument inside a variable binding.
func ninjaFlag(s string) string { return strings.ReplaceAll(shellQuote(s), "$", "$$") }

func (g *NinjaGen) WriteVariables(sb *strings.Builder) {
	writeln(sb, "ninja_required_version = 1.1")
	writeln(sb, "cflags = ", joinQuoted(g.target.Cflags, ninjaFlag))
	writeln(sb, "ldflags = ", joinQuoted(g.target.Ldflags, ninjaFlag))
	writeln(sb, "cc = ", g.cc)
}

func (g *NinjaGen) WriteRules(sb *strings.Builder) {
	writeln(sb)

	// gen rules
	write(sb,
		`rule cc
  command = $cc $cflags -c $in -o $out
  description = CC $out
`)
	write(sb,
		`rule link
  command = $cc $in -o $out $ldflags
  description = LINK $out
`)
	writeln(sb)

	// link, ninja creates output directories itself
	t := g.target
	write(sb, "build ", quote(t.Name), ": link")
	for _, source := range t.Sources {
		write(sb, " ", quote(source.Obj))
	}
	writeln(sb)
	writeln(sb)

	// build object files
	for _, source := range t.Sources {
		writeln(sb, "build ", quote(source.Obj), ": cc ", quote(source.Src))
	}
	writeln(sb)

	writeln(sb, "default ", quote(t.Name))
}

func (g *NinjaGen) Invoke(buildFile string) error {
	return runTool("ninja", "-f", buildFile)
}
