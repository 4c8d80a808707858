package reconcile

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ocsync/core/engine"
)

// dirEngine is an Engine over two local directory trees. It implements the
// reconciliation modes directly so convergence can be checked on real files.
type dirEngine struct {
	remoteRoot string
	backupRoot string

	mu      sync.Mutex
	calls   []engine.Invocation
	outcome engine.Outcome
}

func newDirEngine(remoteRoot, backupRoot string) *dirEngine {
	return &dirEngine{remoteRoot: remoteRoot, backupRoot: backupRoot, outcome: engine.Success}
}

func (e *dirEngine) fail(o engine.Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outcome = o
}

func (e *dirEngine) invocations() []engine.Invocation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engine.Invocation(nil), e.calls...)
}

func (e *dirEngine) Run(_ context.Context, inv engine.Invocation) (*engine.Result, error) {
	e.mu.Lock()
	e.calls = append(e.calls, inv)
	outcome := e.outcome
	e.mu.Unlock()

	if outcome != engine.Success {
		return &engine.Result{Outcome: outcome, ExitCode: 2}, errors.New("exit status 2")
	}

	local := inv.LocalPath
	remote := filepath.Join(e.remoteRoot, inv.RemotePath)
	if err := os.MkdirAll(remote, 0o755); err != nil {
		return nil, err
	}

	var err error
	switch {
	case !inv.Resync:
		err = mergeNewer(local, remote, "")
	case inv.Mode == engine.ModeLocal:
		err = mirror(local, remote)
	case inv.Mode == engine.ModeRemote:
		err = mirror(remote, local)
	default:
		err = mergeNewer(local, remote, filepath.Join(e.backupRoot, inv.Name))
	}
	if err != nil {
		return &engine.Result{Outcome: engine.Failure, ExitCode: 1}, err
	}
	return &engine.Result{Outcome: engine.Success}, nil
}

// mirror makes dst an exact copy of src.
func mirror(src, dst string) error {
	srcFiles, err := listTree(src)
	if err != nil {
		return err
	}
	dstFiles, err := listTree(dst)
	if err != nil {
		return err
	}
	for rel := range dstFiles {
		if _, ok := srcFiles[rel]; !ok {
			if err := os.Remove(filepath.Join(dst, rel)); err != nil {
				return err
			}
		}
	}
	for rel := range srcFiles {
		if err := copyFile(filepath.Join(src, rel), filepath.Join(dst, rel)); err != nil {
			return err
		}
	}
	return nil
}

// mergeNewer copies each file to the side that lacks it and lets the newer
// version win where both differ. The loser is kept under backupDir when set.
func mergeNewer(a, b, backupDir string) error {
	aFiles, err := listTree(a)
	if err != nil {
		return err
	}
	bFiles, err := listTree(b)
	if err != nil {
		return err
	}

	for rel, aInfo := range aFiles {
		bInfo, ok := bFiles[rel]
		if !ok {
			if err := copyFile(filepath.Join(a, rel), filepath.Join(b, rel)); err != nil {
				return err
			}
			continue
		}
		same, err := sameContent(filepath.Join(a, rel), filepath.Join(b, rel))
		if err != nil {
			return err
		}
		if same {
			continue
		}
		winner, loser, loserSide := a, b, "remote"
		if bInfo.ModTime().After(aInfo.ModTime()) {
			winner, loser, loserSide = b, a, "local"
		}
		if backupDir != "" {
			if err := copyFile(filepath.Join(loser, rel), filepath.Join(backupDir, loserSide, rel)); err != nil {
				return err
			}
		}
		if err := copyFile(filepath.Join(winner, rel), filepath.Join(loser, rel)); err != nil {
			return err
		}
	}
	for rel := range bFiles {
		if _, ok := aFiles[rel]; !ok {
			if err := copyFile(filepath.Join(b, rel), filepath.Join(a, rel)); err != nil {
				return err
			}
		}
	}
	return nil
}

func listTree(root string) (map[string]fs.FileInfo, error) {
	files := make(map[string]fs.FileInfo)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files[rel] = info
		return nil
	})
	return files, err
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	return os.Chtimes(dst, time.Now(), info.ModTime())
}

func sameContent(a, b string) (bool, error) {
	x, err := os.ReadFile(a)
	if err != nil {
		return false, err
	}
	y, err := os.ReadFile(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(x, y), nil
}
