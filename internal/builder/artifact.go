package builder

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

const DefaultObjectSuffix = ".o"

// Artifact pairs a compilation unit with the object file it compiles to.
type Artifact struct {
	Unit string
	Obj  string
	Dir  string // directory holding Obj
}

func isSeparator(c byte) bool {
	return c == '/' || c == filepath.Separator
}

// MapArtifact derives the object path for unit below outputDir. The first
// segment of unit is its source root and is dropped; the rest of the
// directory structure is kept, so src/bar/baz.cpp maps to <outputDir>/bar/baz.o.
func MapArtifact(unit, outputDir, objSuffix string) (Artifact, error) {
	slashed := filepath.ToSlash(unit)

	root := strings.IndexByte(slashed, '/')
	if root < 0 {
		return Artifact{}, fmt.Errorf("%w: %s has no source root", ErrInvalidUnitPath, unit)
	}
	rest := slashed[root+1:]

	dir, file := path.Split(rest)
	dot := strings.LastIndexByte(file, '.')
	if dot < 0 {
		return Artifact{}, fmt.Errorf("%w: %s has no extension", ErrInvalidUnitPath, unit)
	}

	if outputDir == "" {
		outputDir = "."
	}
	base := path.Clean(filepath.ToSlash(outputDir))
	objDir := path.Join(base, dir)
	if !within(objDir, base) {
		return Artifact{}, fmt.Errorf("%w: %s maps outside %s", ErrInvalidUnitPath, unit, outputDir)
	}
	return Artifact{
		Unit: unit,
		Obj:  path.Join(objDir, file[:dot]+objSuffix),
		Dir:  objDir,
	}, nil
}

// within reports whether the clean slash path dir is base or lies below it.
func within(dir, base string) bool {
	switch {
	case dir == base:
		return true
	case base == ".":
		return dir != ".." && !strings.HasPrefix(dir, "../") && !path.IsAbs(dir)
	case base == "/":
		return path.IsAbs(dir)
	default:
		return strings.HasPrefix(dir, base+"/")
	}
}
