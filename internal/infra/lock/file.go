package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// FileProvider locks <Dir>/<name>.lock with flock(2). It only excludes
// processes sharing the filesystem, so use it for single-host deployments.
type FileProvider struct {
	Dir string
}

func NewFileProvider(dir string) *FileProvider {
	if dir == "" {
		dir = os.TempDir()
	}
	return &FileProvider{Dir: dir}
}

func (p *FileProvider) Acquire(ctx context.Context, name string, timeout time.Duration) (Lock, error) {
	path := filepath.Join(p.Dir, name+".lock")
	return acquire(ctx, timeout, func(context.Context) (Lock, bool, error) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			return nil, false, fmt.Errorf("open lock file: %w", err)
		}
		if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
			_ = f.Close()
			if errors.Is(err, unix.EWOULDBLOCK) {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("flock %s: %w", path, err)
		}
		return &fileLock{f: f}, true, nil
	})
}

type fileLock struct {
	f *os.File
}

func (l *fileLock) Release(context.Context) error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		_ = l.f.Close()
		return fmt.Errorf("unlock: %w", err)
	}
	return l.f.Close()
}
