package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/samkaj/maker/internal/builder"
	"github.com/samkaj/maker/internal/builder/gen"
	"github.com/samkaj/maker/internal/compdb"
	"github.com/samkaj/maker/internal/msg"
	"github.com/samkaj/maker/internal/walker"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCommand resets the shared flag variables and parses args.
func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	addGenFlags(c)
	flagConfig = ""
	require.NoError(t, flagGenerator.Set(builder.GeneratorMake))
	require.NoError(t, c.ParseFlags(args))
	return c
}

func inTempProject(t *testing.T, files ...string) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, f := range files {
		require.NoError(t, os.MkdirAll(filepath.Dir(f), 0o755))
		require.NoError(t, os.WriteFile(f, []byte("int x;\n"), 0o644))
	}

	prev := msg.Output
	msg.Output = io.Discard
	t.Cleanup(func() { msg.Output = prev })
}

func TestNewSessionDefaults(t *testing.T) {
	inTempProject(t)
	s, err := newSession(newTestCommand(t), nil)
	require.NoError(t, err)

	cfg := s.b.Config()
	assert.Equal(t, []string{"src"}, cfg.Sources.Roots)
	assert.Equal(t, "./target", cfg.Sources.Output)
	assert.Equal(t, "a.out", cfg.Project.Name)
	assert.Empty(t, cfg.Sources.Exclude)
	assert.Equal(t, builder.GeneratorMake, s.gen)
	assert.Empty(t, s.file)
}

func TestNewSessionFlagsOverride(t *testing.T) {
	inTempProject(t)
	c := newTestCommand(t, "-o", "out", "-i", "build", "-i", "vendor", "-n", "app", "--cc", "clang", "-g", "ninja", "--lenient", "-f", "gen.ninja")

	s, err := newSession(c, []string{"lib", "src"})
	require.NoError(t, err)

	cfg := s.b.Config()
	assert.Equal(t, []string{"lib", "src"}, cfg.Sources.Roots)
	assert.Equal(t, "out", cfg.Sources.Output)
	assert.Equal(t, []string{"build", "vendor"}, cfg.Sources.Exclude)
	assert.Equal(t, "app", cfg.Project.Name)
	assert.Equal(t, "clang", cfg.Project.CC)
	assert.True(t, cfg.Sources.Lenient)
	assert.Equal(t, builder.GeneratorNinja, s.gen)
	assert.Equal(t, "gen.ninja", s.file)
}

func TestNewSessionConfigFile(t *testing.T) {
	inTempProject(t)
	require.NoError(t, os.WriteFile(builder.ConfigFilename, []byte(`
[project]
name = "tool"
generator = "ninja"

[sources]
output = "build"
exclude = ["third_party"]
`), 0o644))

	s, err := newSession(newTestCommand(t), nil)
	require.NoError(t, err)
	assert.Equal(t, "tool", s.b.Config().Project.Name)
	assert.Equal(t, "build", s.b.Config().Sources.Output)
	assert.Equal(t, builder.GeneratorNinja, s.gen)

	// flags still win
	s, err = newSession(newTestCommand(t, "-g", "make", "-n", "other", "-i", "tmp"), nil)
	require.NoError(t, err)
	assert.Equal(t, "other", s.b.Config().Project.Name)
	assert.Equal(t, []string{"third_party", "tmp"}, s.b.Config().Sources.Exclude)
	assert.Equal(t, builder.GeneratorMake, s.gen)
}

func TestNewSessionConfigErrors(t *testing.T) {
	inTempProject(t)
	c := newTestCommand(t)
	flagConfig = "missing.toml"
	_, err := newSession(c, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(builder.ConfigFilename, []byte("[project]\nrequire = 'target_os == \"none\"'\n"), 0o644))
	_, err = newSession(newTestCommand(t), nil)
	assert.ErrorContains(t, err, "not satisfied")
}

func TestGenerateAndEmit(t *testing.T) {
	inTempProject(t, "src/main.c", "src/foo.c", "src/foo.h", "src/bar/baz.c")
	s, err := newSession(newTestCommand(t, "--cc", "cc", "--compdb"), nil)
	require.NoError(t, err)
	res, _, err := s.generate()
	require.NoError(t, err)
	assert.Equal(t, "Makefile", s.file)
	require.NoError(t, s.emit(res))

	data, err := os.ReadFile("Makefile")
	require.NoError(t, err)
	assert.Equal(t, res.Text, string(data))
	assert.Contains(t, res.Text, "target/bar/baz.o: src/bar/baz.c | dirs\n")
	assert.NoFileExists(t, "Makefile.bak")
	t.Cleanup(func() { flagCompdb = false })

	db, err := compdb.Load(osfs.Default, compdb.Filename)
	require.NoError(t, err)
	assert.Len(t, db, 3)

	require.NoError(t, s.emit(res))
	assert.FileExists(t, "Makefile.bak")
}

func TestEmitStdoutAndDiff(t *testing.T) {
	inTempProject(t, "src/main.c")
	var out bytes.Buffer
	stdout = &out
	t.Cleanup(func() {
		stdout = os.Stdout
		flagStdout, flagDiff = false, false
	})

	s, err := newSession(newTestCommand(t, "--cc", "cc"), nil)
	require.NoError(t, err)
	res, _, err := s.generate()
	require.NoError(t, err)

	flagStdout = true
	require.NoError(t, s.emit(res))
	assert.Equal(t, res.Text, out.String())
	assert.NoFileExists(t, "Makefile")

	out.Reset()
	flagStdout, flagDiff = false, true
	require.NoError(t, s.emit(res))
	assert.Contains(t, out.String(), "+++ Makefile (generated)")
	assert.Contains(t, out.String(), "+CC      = cc")
	assert.NoFileExists(t, "Makefile")
}

func TestGenerateErrors(t *testing.T) {
	inTempProject(t, "src/only.h")

	s, err := newSession(newTestCommand(t), nil)
	require.NoError(t, err)
	_, _, err = s.generate()
	assert.ErrorIs(t, err, builder.ErrNoSourceFiles)
	assert.Equal(t, 4, exitCode(err))

	s, err = newSession(newTestCommand(t), []string{"nope"})
	require.NoError(t, err)
	_, _, err = s.generate()
	assert.ErrorIs(t, err, walker.ErrUnreadableRoot)
	assert.Equal(t, 2, exitCode(err))
}

func TestGenerateNativeJobs(t *testing.T) {
	inTempProject(t, "src/main.c")
	s, err := newSession(newTestCommand(t, "-g", "native", "-j", "3", "--cc", "cc"), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, flagJobs)

	res, g, err := s.generate()
	require.NoError(t, err)
	assert.IsType(t, &gen.NativeGen{}, g)
	assert.Empty(t, res.Text)
	assert.Empty(t, s.file)
}

func TestWriteCompdbSkipsUnchanged(t *testing.T) {
	inTempProject(t, "src/main.c")
	s, err := newSession(newTestCommand(t, "--cc", "cc"), nil)
	require.NoError(t, err)
	res, _, err := s.generate()
	require.NoError(t, err)

	require.NoError(t, writeCompdb(res))
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(compdb.Filename, old, old))

	require.NoError(t, writeCompdb(res))
	info, err := os.Stat(compdb.Filename)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old), "unchanged database must not be rewritten")

	res.CC = "clang"
	require.NoError(t, writeCompdb(res))
	db, err := compdb.Load(osfs.Default, compdb.Filename)
	require.NoError(t, err)
	assert.Equal(t, "clang", db[0].Arguments[0])
}

func TestSessionIgnored(t *testing.T) {
	inTempProject(t)
	s, err := newSession(newTestCommand(t, "-o", "target"), nil)
	require.NoError(t, err)
	s.file = "Makefile"

	assert.True(t, s.ignored("Makefile"))
	assert.True(t, s.ignored("./Makefile.bak"))
	assert.True(t, s.ignored(compdb.Filename))
	assert.True(t, s.ignored("target/bar/baz.o"))
	assert.False(t, s.ignored("targets/x.c"))
	assert.False(t, s.ignored("src/main.c"))
}

func TestExitCode(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("context: %w", err) }
	assert.Equal(t, 2, exitCode(wrap(walker.ErrUnreadableRoot)))
	assert.Equal(t, 3, exitCode(wrap(builder.ErrInvalidUnitPath)))
	assert.Equal(t, 4, exitCode(wrap(builder.ErrNoSourceFiles)))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestEnumValue(t *testing.T) {
	e := NewEnumValue("b", map[string]string{"c": "", "a": "first", "b": "second"})
	assert.Equal(t, []string{"a", "b", "c"}, e.AllowedKeys())
	assert.Equal(t, "[a, b, c]", e.HelpString())
	assert.Equal(t, "b", e.Value())

	assert.ErrorContains(t, e.Set("z"), "must be one of: a, b, c")
	require.NoError(t, e.Set("c"))
	assert.Equal(t, "c", e.String())

	items, _ := e.CompletionFunc()(nil, nil, "")
	assert.Equal(t, []string{"a\tfirst", "b\tsecond", "c"}, items)

	assert.Panics(t, func() { NewEnumValue("x", map[string]string{"a": ""}) })
}

func TestExecutablePath(t *testing.T) {
	assert.Equal(t, "."+string(filepath.Separator)+"a.out", executablePath("a.out"))
	assert.Equal(t, "bin/app", executablePath("bin/app"))
	assert.Equal(t, "/usr/local/bin/app", executablePath("/usr/local/bin/app"))
}
