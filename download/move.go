package download

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/xeptore/ytmdl/types"
)

// targets serializes checks and moves per output file name, and remembers
// which names a batch has already claimed.
type targets struct {
	dir       string
	overwrite bool

	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	claimed map[string]int
}

func newTargets(dir string, overwrite bool) *targets {
	return &targets{ //nolint:exhaustruct
		dir:       dir,
		overwrite: overwrite,
		locks:     make(map[string]*sync.Mutex),
		claimed:   make(map[string]int),
	}
}

func (t *targets) lock(name string) func() {
	t.mu.Lock()
	l, ok := t.locks[name]
	if !ok {
		l = new(sync.Mutex)
		t.locks[name] = l
	}
	t.mu.Unlock()

	l.Lock()

	return l.Unlock
}

// claim reserves name for the plan at position. Without overwrite, a name
// taken by an existing file or an earlier plan of the batch is a conflict.
func (t *targets) claim(name string, position int) error {
	unlock := t.lock(name)
	defer unlock()

	path := filepath.Join(t.dir, name)

	t.mu.Lock()
	owner, taken := t.claimed[name]
	if !taken {
		t.claimed[name] = position
	}
	t.mu.Unlock()

	if t.overwrite {
		return nil
	}

	if taken && owner != position {
		return types.FilesystemConflict(path)
	}

	if exists, err := fileExists(path); nil != err {
		return err
	} else if exists {
		return types.FilesystemConflict(path)
	}

	return nil
}

// move places src at name in the output directory, replacing an existing
// file only when overwriting is enabled.
func (t *targets) move(src, name string) (string, error) {
	unlock := t.lock(name)
	defer unlock()

	dst := filepath.Join(t.dir, name)
	if !t.overwrite {
		if exists, err := fileExists(dst); nil != err {
			return "", err
		} else if exists {
			return "", types.FilesystemConflict(dst)
		}
	}

	if err := os.Rename(src, dst); nil != err {
		if !errors.Is(err, syscall.EXDEV) {
			return "", fmt.Errorf("failed to move file to output directory: %w", err)
		}

		if err := copyReplace(src, dst); nil != err {
			return "", err
		}
	}

	return dst, nil
}

func fileExists(path string) (bool, error) {
	if _, err := os.Lstat(path); nil != err {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat output file: %v", err)
	}

	return true, nil
}

// copyReplace copies src next to dst under a hidden name and renames it over
// dst, so dst is never observed half written.
func copyReplace(src, dst string) (err error) {
	in, err := os.Open(src)
	if nil != err {
		return fmt.Errorf("failed to open source file: %v", err)
	}
	defer func() {
		if closeErr := in.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("failed to close source file: %v", closeErr))
		}
	}()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".ytmdl-*.part")
	if nil != err {
		return fmt.Errorf("failed to create temporary output file: %v", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if nil != err {
			if removeErr := os.Remove(tmpPath); nil != removeErr && !errors.Is(removeErr, os.ErrNotExist) {
				err = errors.Join(err, fmt.Errorf("failed to remove temporary output file: %v", removeErr))
			}
		}
	}()

	if _, err := io.Copy(tmp, in); nil != err {
		_ = tmp.Close()
		return fmt.Errorf("failed to copy file to output directory: %v", err)
	}

	if err := tmp.Sync(); nil != err {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temporary output file: %v", err)
	}

	if err := tmp.Close(); nil != err {
		return fmt.Errorf("failed to close temporary output file: %v", err)
	}

	if err := os.Chmod(tmpPath, 0o644); nil != err {
		return fmt.Errorf("failed to set output file mode: %v", err)
	}

	if err := os.Rename(tmpPath, dst); nil != err {
		return fmt.Errorf("failed to rename temporary output file: %v", err)
	}

	return nil
}
