// maker [roots...], maker gen [roots...], maker build [roots...]
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/samkaj/maker/internal/builder"
	"github.com/samkaj/maker/internal/builder/gen"
	"github.com/samkaj/maker/internal/compdb"
	"github.com/samkaj/maker/internal/msg"
	"github.com/spf13/cobra"
)

var (
	flagOutputDir  string
	flagIgnoreDirs []string
	flagName       string
	flagCC         string
	flagProfile    string
	flagFile       string
	flagConfig     string
	flagStdout     bool
	flagDiff       bool
	flagCompdb     bool
	flagLenient    bool
	flagGitignore  bool
	flagJobs       int
	flagGenerator  EnumValue = NewEnumValue(builder.GeneratorMake, map[string]string{
		builder.GeneratorMake:   "Generates a Makefile (default)",
		builder.GeneratorNinja:  "Generates a build.ninja file",
		builder.GeneratorNative: "Builds directly with maker's own parallel builder",
	})
)

// stdout is where generated text goes with --stdout or --diff.
var stdout io.Writer = os.Stdout

// session is one configured invocation: the builder, the chosen generator
// and where its output goes.
type session struct {
	b    *builder.Builder
	gen  string
	file string
}

func loadConfig(env builder.ConfigEnv) (*builder.Config, error) {
	path := flagConfig
	if path == "" {
		path = builder.ConfigFilename
	}
	cfg, err := builder.ParseConfigFromFile(path, env)
	if errors.Is(err, os.ErrNotExist) && flagConfig == "" {
		msg.Debug("no %s, using defaults", builder.ConfigFilename)
		return builder.DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// newSession loads the config and lets the command line override it.
func newSession(cmd *cobra.Command, roots []string) (*session, error) {
	env := builder.NewConfigEnv(flagProfile)
	cfg, err := loadConfig(env)
	if err != nil {
		return nil, err
	}
	if err := cfg.CheckRequire(env); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if len(roots) > 0 {
		cfg.Sources.Roots = roots
	}
	if flags.Changed("output-dir") {
		cfg.Sources.Output = flagOutputDir
	}
	cfg.Sources.Exclude = append(cfg.Sources.Exclude, flagIgnoreDirs...)
	if flags.Changed("name") {
		cfg.Project.Name = flagName
	}
	if flagCC != "" {
		cfg.Project.CC = flagCC
	}
	cfg.Sources.Lenient = cfg.Sources.Lenient || flagLenient
	cfg.Sources.Gitignore = cfg.Sources.Gitignore || flagGitignore

	generator := cfg.Project.Generator
	if flags.Changed("gen") || generator == "" {
		generator = flagGenerator.Value()
	}

	return &session{
		b:    builder.NewBuilder(cfg, env, osfs.Default),
		gen:  generator,
		file: flagFile,
	}, nil
}

// generate discovers the sources and renders them with a fresh generator.
func (s *session) generate() (*builder.Result, gen.Generator, error) {
	g, err := builder.CreateGenerator(s.gen)
	if err != nil {
		return nil, nil, err
	}
	if native, ok := g.(*gen.NativeGen); ok {
		native.SetJobs(flagJobs)
	}
	if s.file == "" {
		s.file = g.BuildFile()
	}

	var onFile func(string)
	var counter *msg.Counter
	if !color.NoColor && !msg.Verbose {
		counter = msg.NewCounter("Scanning", 2, msg.Output)
		onFile = func(string) { counter.Add(1) }
	}
	files, err := s.b.Discover(onFile)
	if counter != nil {
		counter.Finish()
	}
	if err != nil {
		return nil, nil, err
	}

	res, err := s.b.Generate(files, g)
	if err != nil {
		return nil, nil, err
	}
	return res, g, nil
}

// emit writes the generated text where the flags say.
func (s *session) emit(res *builder.Result) error {
	if flagCompdb {
		if err := writeCompdb(res); err != nil {
			return err
		}
	}

	if s.file == "" {
		return nil // the native generator writes nothing
	}

	switch {
	case flagStdout:
		_, err := io.WriteString(stdout, res.Text)
		return err
	case flagDiff:
		old, err := builder.ReadBuildFile(osfs.Default, s.file)
		if err != nil {
			return err
		}
		changed, err := builder.WriteDiff(&msg.IndentWriter{Indent: "  ", W: stdout}, s.file, old, res.Text)
		if err != nil {
			return err
		}
		if !changed {
			msg.Info("%s is up to date", s.file)
		}
		return nil
	default:
		if err := builder.WriteBuildFile(osfs.Default, s.file, res.Text); err != nil {
			return err
		}
		fmt.Fprintf(msg.Output, "%s %s (%d sources)\n",
			color.HiGreenString("Generated"), filepath.ToSlash(s.file), len(res.Target.Sources))
		return nil
	}
}

// writeCompdb saves the compilation database unless the one on disk already
// matches, so tools watching it don't reindex for nothing.
func writeCompdb(res *builder.Result) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	db := compdb.FromTarget(dir, res.CC, res.Target)
	if old, err := compdb.Load(osfs.Default, compdb.Filename); err == nil && old.Equal(db) {
		msg.Debug("%s is up to date", compdb.Filename)
		return nil
	}
	if err := db.Save(osfs.Default, compdb.Filename); err != nil {
		return fmt.Errorf("write %s: %w", compdb.Filename, err)
	}
	msg.Debug("wrote %d entries to %s", len(db), compdb.Filename)
	return nil
}

func doGenerate(cmd *cobra.Command, args []string) {
	s, err := newSession(cmd, args)
	if err != nil {
		fail(err)
	}
	res, _, err := s.generate()
	if err != nil {
		fail(err)
	}
	if err := s.emit(res); err != nil {
		fail(err)
	}
}

// build generates the build file and runs the generator's build tool on it.
func build(cmd *cobra.Command, roots []string) *builder.Result {
	if flagStdout || flagDiff {
		fail(errOutputFlags)
	}
	s, err := newSession(cmd, roots)
	if err != nil {
		fail(err)
	}
	res, g, err := s.generate()
	if err != nil {
		fail(err)
	}
	if err := s.emit(res); err != nil {
		fail(err)
	}
	if err := g.Invoke(s.file); err != nil {
		fail(err)
	}
	return res
}

func doBuild(cmd *cobra.Command, args []string) {
	build(cmd, args)
}

var rootCmd = &cobra.Command{
	Use:   "maker [roots...]",
	Short: "Generate a Makefile for a C/C++ source tree",
	Long: `Generate a Makefile for a C/C++ source tree.

Every root (default "src") is searched for headers and compilation units.
Each unit gets its own compile rule and object file under the output directory.`,
	Args:          cobra.ArbitraryArgs,
	Run:           doGenerate,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var genCmd = &cobra.Command{
	Use:   "gen [roots...]",
	Short: "Generate the build file (same as running maker without a command)",
	Args:  cobra.ArbitraryArgs,
	Run:   doGenerate,
}

var buildCmd = &cobra.Command{
	Use:   "build [roots...]",
	Short: "Generate the build file and build it",
	Long:  `Generate the build file and run make (or ninja) on it. With --gen native, maker compiles the sources itself.`,
	Args:  cobra.ArbitraryArgs,
	Run:   doBuild,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&msg.Verbose, "verbose", "v", false, "Print debug output")
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "C", "", "Config file to use (default "+builder.ConfigFilename+" if present)")
	addGenFlags(rootCmd)

	// maker gen subcommand
	rootCmd.AddCommand(genCmd)
	addGenFlags(genCmd)

	// maker build subcommand
	rootCmd.AddCommand(buildCmd)
	addGenFlags(buildCmd)
}

func addGenFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagOutputDir, "output-dir", "o", "./target", "Directory for object files")
	cmd.Flags().StringArrayVarP(&flagIgnoreDirs, "ignore-dirs", "i", nil, "Directory name (or pattern) to skip, may be repeated")
	cmd.Flags().StringVarP(&flagName, "name", "n", "a.out", "Name of the executable")
	cmd.Flags().StringVar(&flagCC, "cc", "", "Compiler to use (default $CC/$CXX, then cc)")
	cmd.Flags().StringVarP(&flagProfile, "profile", "p", "debug", "Build with the given profile")
	cmd.Flags().VarP(&flagGenerator, "gen", "g", "Generator to use, one of "+flagGenerator.HelpString())
	cmd.RegisterFlagCompletionFunc("gen", flagGenerator.CompletionFunc())
	cmd.Flags().StringVarP(&flagFile, "file", "f", "", "Build file to write (default depends on the generator)")
	cmd.Flags().BoolVar(&flagStdout, "stdout", false, "Print the build file instead of writing it")
	cmd.Flags().BoolVar(&flagDiff, "diff", false, "Show how the build file would change instead of writing it")
	cmd.MarkFlagsMutuallyExclusive("stdout", "diff")
	cmd.Flags().BoolVar(&flagCompdb, "compdb", false, "Also write "+compdb.Filename)
	cmd.Flags().BoolVar(&flagLenient, "lenient", false, "Skip symlinks and unreadable directories instead of failing")
	cmd.Flags().BoolVar(&flagGitignore, "gitignore", false, "Skip files matched by .gitignore")
	cmd.Flags().IntVarP(&flagJobs, "jobs", "j", 0, "Parallel compile jobs for --gen native (default: number of CPUs)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		msg.Fatal("%v", err)
	}
}
