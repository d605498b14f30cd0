package gen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func exampleTarget() Target {
	return Target{
		Name:    "a.out",
		Headers: []string{"src/foo.hpp"},
		Sources: []Source{
			{Src: "src/main.cpp", Obj: "target/main.o"},
			{Src: "src/foo.cpp", Obj: "target/foo.o"},
			{Src: "src/bar/baz.cpp", Obj: "target/bar/baz.o"},
		},
		Dirs:   []string{"target", "target/bar"},
		Cflags: []string{"-g", "-Wall", "-Isrc"},
	}
}

func render(g Generator) string {
	var sb strings.Builder
	g.WriteVariables(&sb)
	g.WriteRules(&sb)
	return sb.String()
}

func TestMakeGen(t *testing.T) {
	g := &MakeGen{}
	g.SetCompiler("cc")
	g.SetTarget(exampleTarget())

	want := `# Object files:
OBJS    = target/main.o target/foo.o target/bar/baz.o
# Header files:
HEADERS = src/foo.hpp
# Source files:
SOURCES = src/main.cpp src/foo.cpp src/bar/baz.cpp
# Executable name, run the program with ./a.out
OUT     = a.out

# Compiler flags:
FLAGS   = -g -Wall -Isrc
# Linker flags:
LDFLAGS =
# Compiler:
CC      = cc

$(OUT): $(OBJS) | dirs
	$(CC) $(OBJS) -o $(OUT) $(LDFLAGS)

target/main.o: src/main.cpp | dirs
	$(CC) $(FLAGS) -c src/main.cpp -o target/main.o

target/foo.o: src/foo.cpp | dirs
	$(CC) $(FLAGS) -c src/foo.cpp -o target/foo.o

target/bar/baz.o: src/bar/baz.cpp | dirs
	$(CC) $(FLAGS) -c src/bar/baz.cpp -o target/bar/baz.o

.PHONY: dirs
dirs:
	mkdir -p target
	mkdir -p target/bar

.PHONY: clean
clean:
	rm -f $(OBJS) $(OUT)
`
	assert.Equal(t, want, render(g))
	assert.Equal(t, "Makefile", g.BuildFile())
}

func TestMakeGenEscapesPaths(t *testing.T) {
	g := &MakeGen{}
	g.SetCompiler("cc")
	g.SetTarget(Target{
		Name:    "my app",
		Sources: []Source{{Src: "src/a b.c", Obj: "out/a b.o"}},
		Dirs:    []string{"out"},
	})

	out := render(g)
	assert.Contains(t, out, "OUT     = my\\ app\n")
	assert.Contains(t, out, "out/a\\ b.o: src/a\\ b.c | dirs\n")
	assert.Contains(t, out, "\t$(CC) $(FLAGS) -c 'src/a b.c' -o 'out/a b.o'\n")
}

func TestMakeGenEscapesPatternAndColon(t *testing.T) {
	g := &MakeGen{}
	g.SetCompiler("cc")
	g.SetTarget(Target{
		Name:    "app",
		Sources: []Source{{Src: "src/100%.c", Obj: "out/100%.o"}, {Src: "src/a:b.c", Obj: "out/a:b.o"}},
		Dirs:    []string{"out"},
	})

	out := render(g)
	assert.Contains(t, out, "OBJS    = out/100\\%.o out/a\\:b.o\n")
	assert.Contains(t, out, "out/100\\%.o: src/100\\%.c | dirs\n")
	assert.Contains(t, out, "out/a\\:b.o: src/a\\:b.c | dirs\n")
	assert.Contains(t, out, "\t$(CC) $(FLAGS) -c src/100%.c -o out/100%.o\n")
	assert.NotContains(t, out, "\nout/100%.o:")
}

func TestMakeGenQuotesFlags(t *testing.T) {
	g := &MakeGen{}
	g.SetCompiler("cc")
	g.SetTarget(Target{
		Name:    "app",
		Sources: []Source{{Src: "my src/main.c", Obj: "target/main.o"}},
		Dirs:    []string{"target dir"},
		Cflags:  []string{"-g", "-Imy src", `-DNAME="x y"`, "-DHASH=#1", "-DCOST=$5"},
		Ldflags: []string{"-L/opt/my libs", "-lm"},
	})

	out := render(g)
	assert.Contains(t, out, `FLAGS   = -g '-Imy src' '-DNAME="x y"' '-DHASH=\#1' '-DCOST=$$5'`+"\n")
	assert.Contains(t, out, "LDFLAGS = '-L/opt/my libs' -lm\n")
	assert.Contains(t, out, "\tmkdir -p 'target dir'\n")
}

func TestShellQuote(t *testing.T) {
	tests := map[string]string{
		"":            "''",
		"-Isrc":       "-Isrc",
		"-DV=1,2":     "-DV=1,2",
		"a b":         "'a b'",
		"it's":        `'it'\''s'`,
		"$HOME":       "'$HOME'",
		"semi;colon":  "'semi;colon'",
		"C:/x/100%.c": "C:/x/100%.c",
	}
	for in, want := range tests {
		assert.Equal(t, want, shellQuote(in), in)
	}
}

func TestMakeGenIsDeterministic(t *testing.T) {
	a, b := &MakeGen{}, &MakeGen{}
	for _, g := range []*MakeGen{a, b} {
		g.SetCompiler("clang")
		g.SetTarget(exampleTarget())
	}
	assert.Equal(t, render(a), render(b))
}

func TestRunHint(t *testing.T) {
	assert.Equal(t, "./a.out", runHint("a.out"))
	assert.Equal(t, "bin/app", runHint("bin/app"))
}
