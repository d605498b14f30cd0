// Package walker lists the files reachable from a set of source roots.
//
// Directories whose bare name matches the exclusion set are pruned together
// with their whole subtree. Listings are sorted by name at every level, so the
// same tree always yields the same sequence.
package walker

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v6/plumbing/format/gitignore"
	"github.com/samkaj/maker/internal/msg"
)

var (
	ErrUnreadableRoot   = errors.New("unreadable root")
	ErrUnreadableDir    = errors.New("unreadable directory")
	ErrUnsupportedEntry = errors.New("unsupported directory entry")
	ErrBadPattern       = errors.New("bad exclusion pattern")
)

const gitignoreFile = ".gitignore"

// FS is the read side of the filesystem the walker lists through.
// osfs.Default and memfs both satisfy it.
type FS interface {
	billy.Basic
	billy.Dir
}

type Walker struct {
	fs      FS
	exclude []string

	// Lenient skips symlinks, special files and unreadable sub-directories
	// with a warning instead of failing the walk.
	Lenient bool
	// Gitignore prunes entries matched by .gitignore files found on the way.
	Gitignore bool

	OnFile func(path string)
	OnDir  func(path string)
}

// New returns a Walker over fs. Each exclusion entry is a bare directory name
// or a doublestar pattern matched against bare names.
func New(fs FS, exclude []string) *Walker {
	return &Walker{fs: fs, exclude: slices.Clone(exclude)}
}

// Walk lists every regular file under roots, in root order. A root that can't
// be listed fails the whole walk.
func (w *Walker) Walk(roots ...string) ([]string, error) {
	for _, pat := range w.exclude {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, pat)
		}
	}

	var files []string
	for _, root := range roots {
		info, err := w.fs.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableRoot, root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrUnreadableRoot, root)
		}

		entries, err := w.fs.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableRoot, root, err)
		}

		found, err := w.walkEntries(root, entries, nil, nil)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

// walkEntries visits one already-listed directory. rel holds the path segments
// below the root, used for gitignore matching.
func (w *Walker) walkEntries(dir string, entries []os.FileInfo, rel []string, ignores []gitignore.Pattern) ([]string, error) {
	if w.OnDir != nil {
		w.OnDir(dir)
	}
	slices.SortFunc(entries, func(a, b os.FileInfo) int {
		return strings.Compare(a.Name(), b.Name())
	})

	if w.Gitignore {
		var err error
		ignores, err = w.readGitignore(dir, rel, ignores)
		if err != nil {
			return nil, err
		}
	}
	matcher := gitignore.NewMatcher(ignores)

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		path := w.fs.Join(dir, name)
		entryRel := append(slices.Clip(rel), name)
		mode := entry.Mode()

		switch {
		case mode.IsDir():
			if w.isExcluded(name) {
				msg.Debug("pruning %s", path)
				continue
			}
			if len(ignores) > 0 && matcher.Match(entryRel, true) {
				msg.Debug("pruning %s (gitignore)", path)
				continue
			}

			sub, err := w.fs.ReadDir(path)
			if err != nil {
				if w.Lenient {
					msg.Warn("skipping unreadable directory %s: %v", path, err)
					continue
				}
				return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableDir, path, err)
			}
			found, err := w.walkEntries(path, sub, entryRel, ignores)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)

		case mode.IsRegular():
			if len(ignores) > 0 && matcher.Match(entryRel, false) {
				continue
			}
			if w.OnFile != nil {
				w.OnFile(path)
			}
			files = append(files, path)

		default:
			if w.Lenient {
				msg.Warn("skipping %s (%s)", path, describeMode(mode))
				continue
			}
			return nil, fmt.Errorf("%w: %s is a %s", ErrUnsupportedEntry, path, describeMode(mode))
		}
	}
	return files, nil
}

// isExcluded matches a bare directory name against the exclusion set.
// Patterns were validated in Walk, so Match can't fail here.
func (w *Walker) isExcluded(name string) bool {
	for _, pat := range w.exclude {
		if pat == name {
			return true
		}
		if ok, _ := doublestar.Match(pat, name); ok {
			return true
		}
	}
	return false
}

// readGitignore appends the patterns of dir/.gitignore, if any, to ps.
func (w *Walker) readGitignore(dir string, rel []string, ps []gitignore.Pattern) ([]gitignore.Pattern, error) {
	f, err := w.fs.Open(w.fs.Join(dir, gitignoreFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ps, nil
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableDir, dir, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", w.fs.Join(dir, gitignoreFile), err)
	}

	// copy so sibling directories don't share a backing array
	out := slices.Clone(ps)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, gitignore.ParsePattern(line, rel))
	}
	return out, nil
}

func describeMode(mode os.FileMode) string {
	switch {
	case mode&os.ModeSymlink != 0:
		return "symbolic link"
	case mode&os.ModeNamedPipe != 0:
		return "named pipe"
	case mode&os.ModeSocket != 0:
		return "socket"
	case mode&os.ModeDevice != 0:
		return "device"
	default:
		return "special file"
	}
}
