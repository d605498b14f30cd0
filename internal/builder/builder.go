package builder

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/samkaj/maker/internal/builder/gen"
	"github.com/samkaj/maker/internal/msg"
	"github.com/samkaj/maker/internal/walker"
)

const (
	GeneratorMake   = "make"
	GeneratorNinja  = "ninja"
	GeneratorNative = "native"
)

// CreateGenerator returns the generator registered under name.
func CreateGenerator(name string) (gen.Generator, error) {
	switch name {
	case GeneratorMake, "":
		return &gen.MakeGen{}, nil
	case GeneratorNinja:
		return &gen.NinjaGen{}, nil
	case GeneratorNative:
		return gen.NewNativeGen(), nil
	default:
		return nil, fmt.Errorf("unknown generator %q, known generators: %s, %s, %s",
			name, GeneratorMake, GeneratorNinja, GeneratorNative)
	}
}

type Builder struct {
	cfg        *Config
	env        ConfigEnv
	fs         walker.FS
	classifier Classifier
}

// NewBuilder returns a Builder that discovers sources on fs. env.Profile
// selects the [profile.*] section whose flags are used.
func NewBuilder(cfg *Config, env ConfigEnv, fs walker.FS) *Builder {
	return &Builder{
		cfg:        cfg,
		env:        env,
		fs:         fs,
		classifier: NewClassifier(cfg.Sources.Headers, cfg.Sources.Units),
	}
}

func (b *Builder) Config() *Config { return b.cfg }

// Discover lists the files under the configured source roots. onFile, if
// non-nil, is called for every file as it's found.
func (b *Builder) Discover(onFile func(string)) ([]string, error) {
	w := b.newWalker()
	w.OnFile = onFile
	return w.Walk(b.cfg.Sources.Roots...)
}

func (b *Builder) newWalker() *walker.Walker {
	w := walker.New(b.fs, b.cfg.Sources.Exclude)
	w.Lenient = b.cfg.Sources.Lenient
	w.Gitignore = b.cfg.Sources.Gitignore
	return w
}

// Dirs lists every directory the walk visits, the set watch mode listens on.
func (b *Builder) Dirs() ([]string, error) {
	var dirs []string
	w := b.newWalker()
	w.OnDir = func(dir string) { dirs = append(dirs, dir) }
	if _, err := w.Walk(b.cfg.Sources.Roots...); err != nil {
		return nil, err
	}
	return dirs, nil
}

// Result is the outcome of one generation pass.
type Result struct {
	Target gen.Target
	CC     string
	// Text is the rendered build description; empty for generators that
	// don't write a file.
	Text string
}

func (b *Builder) makeCflags(profile string) ([]string, error) {
	prof, ok := b.cfg.Profile[profile]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q, known profiles: %s", profile, strings.Join(b.cfg.Profiles(), ", "))
	}
	cflags := prof.Flags()
	cflags = append(cflags, b.cfg.Flags.Cflags...)
	for _, define := range slices.Sorted(maps.Keys(b.cfg.Flags.Defines)) {
		if v := b.cfg.Flags.Defines[define]; v != "" {
			cflags = append(cflags, "-D"+define+"="+v)
		} else {
			cflags = append(cflags, "-D"+define)
		}
	}
	return cflags, nil
}

func (b *Builder) makeLdflags() []string {
	ldflags := slices.Clone(b.cfg.Flags.Ldflags)
	for _, lib := range b.cfg.Flags.Links {
		ldflags = append(ldflags, "-l"+lib)
	}
	return ldflags
}

// compiler picks the compiler for units. Only the native generator runs the
// compiler itself, so only then is the PATH searched.
func (b *Builder) compiler(units []string, native bool) string {
	if b.cfg.Project.CC != "" {
		return b.cfg.Project.CC
	}
	return findCompiler(slices.ContainsFunc(units, isCxx), native)
}

// includeRoot is the source root of unit, its first path segment.
func includeRoot(unit string) string {
	for i := 0; i < len(unit); i++ {
		if isSeparator(unit[i]) {
			return unit[:i]
		}
	}
	return ""
}

// Generate classifies files, maps every compilation unit to its object file
// and renders the build description with g. Generation is all or nothing:
// on error no Result is returned.
func (b *Builder) Generate(files []string, g gen.Generator) (*Result, error) {
	cflags, err := b.makeCflags(b.env.Profile)
	if err != nil {
		return nil, err
	}

	var p pass
	p.classify(b.classifier, files)
	msg.Debug("classified %d files: %d headers, %d units", len(files), len(p.headers), len(p.units))

	if err := p.mapArtifacts(b.cfg.Sources.Output, b.cfg.Sources.ObjectSuffix); err != nil {
		return nil, err
	}

	// single include root, taken from the first unit
	if root := includeRoot(p.units[0]); root != "" {
		cflags = append(cflags, "-I"+root)
	}

	sources := make([]gen.Source, len(p.artifacts))
	for i, a := range p.artifacts {
		sources[i] = gen.Source{Src: a.Unit, Obj: a.Obj}
	}
	target := gen.Target{
		Name:    b.cfg.Project.Name,
		Headers: p.headers,
		Sources: sources,
		Dirs:    artifactDirs(p.artifacts),
		Cflags:  cflags,
		Ldflags: b.makeLdflags(),
	}

	_, native := g.(*gen.NativeGen)
	cc := b.compiler(p.units, native)
	g.SetCompiler(cc)
	g.SetTarget(target)

	p.renderVariables(g)
	p.renderRules(g)

	return &Result{Target: target, CC: cc, Text: p.finish()}, nil
}
