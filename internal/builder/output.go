package builder

import (
	"errors"
	"fmt"
	"os"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

const backupSuffix = ".bak"

// WriteBuildFile writes text to path. An existing file is first copied to
// path+".bak"; if that copy fails, path is left untouched.
func WriteBuildFile(fs billy.Basic, path, text string) error {
	old, err := util.ReadFile(fs, path)
	switch {
	case err == nil:
		if err := util.WriteFile(fs, path+backupSuffix, old, 0o644); err != nil {
			return fmt.Errorf("back up %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("back up %s: %w", path, err)
	}

	if err := util.WriteFile(fs, path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadBuildFile returns the current contents of path, or "" if it doesn't
// exist yet.
func ReadBuildFile(fs billy.Basic, path string) (string, error) {
	data, err := util.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	return string(data), err
}
