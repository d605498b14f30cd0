package builder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/pelletier/go-toml/v2"
)

const ConfigFilename = "Maker.toml"

var defaultProfiles = map[string]ProfileSection{
	"release": {
		OptLevel: "3",
	},
	"debug": {
		Debug: true, // no -O
	},
}

type Config struct {
	Project ProjectSection            `toml:"project"`
	Sources SourcesSection            `toml:"sources"`
	Flags   FlagsSection              `toml:"flags"`
	Profile map[string]ProfileSection `toml:"profile"`
}

// DefaultConfig is the configuration used when there is no Maker.toml.
func DefaultConfig() *Config {
	cfg := &Config{Profile: maps.Clone(defaultProfiles)}
	cfg.applyDefaults()
	return cfg
}

func (c Config) Profiles() []string {
	profiles := make([]string, 0, len(c.Profile))
	for k := range c.Profile {
		profiles = append(profiles, k)
	}
	slices.Sort(profiles)
	return profiles
}

func (c *Config) applyDefaults() {
	if c.Project.Name == "" {
		c.Project.Name = "a.out"
	}
	if len(c.Sources.Roots) == 0 {
		c.Sources.Roots = []string{"src"}
	}
	if c.Sources.Output == "" {
		c.Sources.Output = "./target"
	}
	if c.Sources.Headers == nil {
		c.Sources.Headers = slices.Clone(DefaultHeaderSuffixes)
	}
	if c.Sources.Units == nil {
		c.Sources.Units = slices.Clone(DefaultUnitSuffixes)
	}
	if c.Sources.ObjectSuffix == "" {
		c.Sources.ObjectSuffix = DefaultObjectSuffix
	}
	if c.Flags.Cflags == nil {
		c.Flags.Cflags = []string{"-Wall"}
	}
}

// optLevel accepts both opt-level = 3 and opt-level = "s". go-toml hands
// integer and string nodes alike to UnmarshalText as raw text.
type optLevel string

func (o *optLevel) UnmarshalText(text []byte) error {
	*o = optLevel(text)
	return nil
}

// ProfileSection defines the [profile.*] section
type ProfileSection struct {
	OptLevel optLevel `toml:"opt-level"`
	Debug    bool     `toml:"debug"`
}

// Flags returns the compiler flags selected by the profile.
func (p ProfileSection) Flags() []string {
	var flags []string
	if p.Debug {
		flags = append(flags, "-g")
	}
	if lvl := string(p.OptLevel); lvl != "" {
		flags = append(flags, "-O"+lvl)
	}
	return flags
}

// ProjectSection defines the [project] section
type ProjectSection struct {
	Name      string `toml:"name"`
	CC        string `toml:"cc"`
	Generator string `toml:"generator"`
	Require   string `toml:"require"`
}

// SourcesSection defines the [sources] section
type SourcesSection struct {
	Roots        []string `toml:"roots"`
	Exclude      []string `toml:"exclude"`
	Output       string   `toml:"output"`
	Headers      []string `toml:"headers"`
	Units        []string `toml:"units"`
	ObjectSuffix string   `toml:"object-suffix"`
	Gitignore    bool     `toml:"gitignore"`
	Lenient      bool     `toml:"lenient"`
}

// FlagsSection defines the [flags(.*)] section
type FlagsSection struct {
	Cflags  []string          `toml:"cflags"`
	Ldflags []string          `toml:"ldflags"`
	Defines map[string]string `toml:"defines"`
	Links   []string          `toml:"links"`
}

// mergeStructs merges the fields of the src struct into the dst struct
func mergeStructs(dst, src any) error {
	dstVal := reflect.ValueOf(dst)
	if dstVal.Kind() != reflect.Pointer || dstVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dst must be a pointer to a struct")
	}

	dstElem := dstVal.Elem()
	srcVal := reflect.ValueOf(src)

	if srcVal.Kind() == reflect.Pointer {
		srcVal = srcVal.Elem()
	}

	if srcVal.Kind() != reflect.Struct {
		return fmt.Errorf("src must be a struct or a pointer to a struct")
	}

	if dstElem.Type() != srcVal.Type() {
		return fmt.Errorf("dst and src must be of the same struct type")
	}

	for i := range srcVal.NumField() {
		srcField := srcVal.Field(i)
		dstField := dstElem.Field(i)

		if !dstField.CanSet() {
			continue
		}

		switch dstField.Kind() {
		case reflect.Slice:
			if !srcField.IsNil() {
				dstField.Set(reflect.AppendSlice(dstField, srcField))
			}
		case reflect.Map:
			if !srcField.IsNil() {
				if dstField.IsNil() {
					dstField.Set(reflect.MakeMap(dstField.Type()))
				}
				for _, key := range srcField.MapKeys() {
					dstField.SetMapIndex(key, srcField.MapIndex(key))
				}
			}
		case reflect.Bool:
			dstField.SetBool(dstField.Bool() || srcField.Bool())
		default:
			if !srcField.IsZero() {
				dstField.Set(srcField)
			}
		}
	}

	return nil
}

func mustMarshal(v any) string {
	b, err := toml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// unmarshalSection is a helper to parse sections without conditional logic
func unmarshalSection(rawCfg map[string]any, name string, dst any) error {
	if data, ok := rawCfg[name]; ok {
		if err := toml.Unmarshal([]byte(mustMarshal(data)), dst); err != nil {
			return fmt.Errorf("failed to parse [%s] section: %w", name, err)
		}
	}
	return nil
}

// unmarshalConditionalSection parses a struct section whose sub-tables may be
// keyed by expressions, e.g. [flags.'target_os == "windows"']. Sub-tables
// whose expression evaluates to true are merged over the base fields in
// sorted key order.
func unmarshalConditionalSection[T any](rawCfg map[string]any, name string, dst *T, env ConfigEnv) error {
	sectionData, ok := rawCfg[name]
	if !ok {
		return nil
	}

	sectionMap, ok := sectionData.(map[string]any)
	if !ok {
		return fmt.Errorf("invalid [%s] section format: expected a table", name)
	}

	baseFields := make(map[string]any)
	conditionalFields := make(map[string]map[string]any)

	for key, val := range sectionMap {
		if subMap, ok := val.(map[string]any); ok {
			_, err := expr.Compile(key, expr.Env(env))
			if err == nil {
				conditionalFields[key] = subMap
			} else {
				baseFields[key] = val
			}
		} else {
			baseFields[key] = val
		}
	}

	if len(baseFields) > 0 {
		if err := toml.Unmarshal([]byte(mustMarshal(baseFields)), dst); err != nil {
			return fmt.Errorf("failed to parse base [%s] section: %w", name, err)
		}
	}

	for _, expression := range slices.Sorted(maps.Keys(conditionalFields)) {
		condMap := conditionalFields[expression]
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return fmt.Errorf("failed to compile expression for [%s.%q]: %w", name, expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return fmt.Errorf("failed to run expression for [%s.%q]: %w", name, expression, err)
		}

		// merge sections if the result is true
		if matched, ok := result.(bool); !ok || !matched {
			continue
		}

		var condSection T
		if err := toml.Unmarshal([]byte(mustMarshal(condMap)), &condSection); err != nil {
			return fmt.Errorf("failed to parse conditional section [%s.%q]: %w", name, expression, err)
		}
		if err := mergeStructs(dst, condSection); err != nil {
			return fmt.Errorf("failed to merge conditional section [%s.%q]: %w", name, expression, err)
		}
	}

	return nil
}

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString finds and evaluates all {{...}} expressions in a string
func evaluateString(s string, env ConfigEnv) (string, error) {
	matches := exprRegex.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var builder strings.Builder
	lastIndex := 0

	for _, matchIndexes := range matches {
		fullMatchStart := matchIndexes[0]
		fullMatchEnd := matchIndexes[1]
		expressionStart := matchIndexes[2]
		expressionEnd := matchIndexes[3]

		builder.WriteString(s[lastIndex:fullMatchStart])

		expression := strings.TrimSpace(s[expressionStart:expressionEnd])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return "", fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return "", fmt.Errorf("failed to run expression %q: %w", expression, err)
		}

		fmt.Fprintf(&builder, "%v", result)
		lastIndex = fullMatchEnd
	}

	builder.WriteString(s[lastIndex:])

	return builder.String(), nil
}

// processExpressions recursively walks the parsed TOML data and evaluates expressions in strings
func processExpressions(data any, env ConfigEnv) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			processedVal, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = processedVal
		}
		return v, nil
	case []any:
		for i, item := range v {
			processedItem, err := processExpressions(item, env)
			if err != nil {
				return nil, err
			}
			v[i] = processedItem
		}
		return v, nil
	case string:
		return evaluateString(v, env)
	default:
		return data, nil
	}
}

func ParseConfig(rdr io.Reader, env ConfigEnv) (*Config, error) {
	var rawConfig map[string]any
	dec := toml.NewDecoder(rdr)
	if err := dec.Decode(&rawConfig); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return nil, errors.New(derr.String())
		}
		return nil, err
	}

	processedConfig, err := processExpressions(rawConfig, env)
	if err != nil {
		return nil, fmt.Errorf("error processing expressions in config: %w", err)
	}
	rawConfig = processedConfig.(map[string]any)

	cfg := new(Config)
	cfg.Profile = maps.Clone(defaultProfiles)

	if err := unmarshalSection(rawConfig, "project", &cfg.Project); err != nil {
		return nil, err
	}
	if err := unmarshalSection(rawConfig, "profile", &cfg.Profile); err != nil {
		return nil, err
	}
	if err := unmarshalConditionalSection(rawConfig, "sources", &cfg.Sources, env); err != nil {
		return nil, err
	}
	if err := unmarshalConditionalSection(rawConfig, "flags", &cfg.Flags, env); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return cfg, nil
}

// ParseConfigFromFile parses and validates a config file from a filepath
func ParseConfigFromFile(path string, env ConfigEnv) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseConfig(bufio.NewReader(f), env)
}

//
// expr-lang helpers
//

// CheckRequire evaluates project.require, which must yield true for
// generation to go ahead.
func (cfg Config) CheckRequire(env ConfigEnv) error {
	if cfg.Project.Require == "" {
		return nil
	}

	program, err := expr.Compile(cfg.Project.Require, expr.Env(env))
	if err != nil {
		return fmt.Errorf("failed to compile project.require: %w", err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return fmt.Errorf("failed to run project.require: %w", err)
	}

	if result, ok := result.(bool); !ok || !result {
		return fmt.Errorf("project.require is not satisfied\n%s", cfg.Project.Require)
	}

	return nil
}

type ConfigEnv struct {
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Environ    map[string]string `expr:"environ"`
	Profile    string            `expr:"profile"`
}

func NewConfigEnv(profile string) ConfigEnv {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if i := strings.Index(e, "="); i >= 0 {
			environ[e[:i]] = e[i+1:]
		}
	}

	return ConfigEnv{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Environ:    environ,
		Profile:    profile,
	}
}
