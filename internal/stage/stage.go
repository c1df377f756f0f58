// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stage exposes a user file as a path inside a worker's private
// filesystem. A Stager is the explicit staging context of one worker: it
// owns a fixed working directory that holds at most one staged file at a
// time.
package stage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/pdiddy/scinode/pkg/types"
)

// ErrBusy is returned by Mount while another file occupies the working
// directory.
var ErrBusy = errors.New("working directory already has a staged file")

// ErrClosed is returned by Mount after Close.
var ErrClosed = errors.New("stager closed")

// Stager mounts files into a working directory of its filesystem.
type Stager struct {
	fs      afero.Fs
	workDir string
	logger  *zap.Logger

	mu      sync.Mutex
	mounted string // path of the staged file, empty when nothing is mounted
	hostDir string // host directory created by FromConfig, removed by Close
	closed  bool
}

// New creates a stager over fsys that stages files into workDir.
func New(fsys afero.Fs, workDir string, logger *zap.Logger) *Stager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stager{fs: fsys, workDir: path.Clean("/" + workDir), logger: logger}
}

// FromConfig builds a stager for cfg. The memory backend stages into a fresh
// in-memory filesystem. The os backend stages into a new directory of its
// own, created below cfg.Root or the system temp directory, so stagers built
// from the same config never share files. Close removes that directory.
func FromConfig(cfg types.StageConfig, logger *zap.Logger) (*Stager, error) {
	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = types.DefaultWorkDir
	}
	switch cfg.Backend {
	case types.StageMemory, "":
		return New(afero.NewMemMapFs(), workDir, logger), nil
	case types.StageOS:
		if cfg.Root != "" {
			if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
				return nil, fmt.Errorf("creating staging root: %w", err)
			}
		}
		dir, err := os.MkdirTemp(cfg.Root, "scinode-stage-")
		if err != nil {
			return nil, fmt.Errorf("creating staging directory: %w", err)
		}
		s := New(afero.NewBasePathFs(afero.NewOsFs(), dir), workDir, logger)
		s.hostDir = dir
		return s, nil
	default:
		return nil, fmt.Errorf("unknown stage backend %q", cfg.Backend)
	}
}

// WorkDir returns the working directory staged files are mounted at.
func (s *Stager) WorkDir() string { return s.workDir }

// HostDir returns the host directory backing an os stager, or "".
func (s *Stager) HostDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostDir
}

// FS returns a read-only view of the staging filesystem. Conversion
// capabilities open staged paths through it.
func (s *Stager) FS() afero.Fs {
	return afero.NewReadOnlyFs(s.fs)
}

// Mount stages file in the working directory and returns its path,
// {workDir}/{file.Name}. The working directory is created when absent.
func (s *Stager) Mount(file types.FileRef) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", fmt.Errorf("mounting %s: %w", file.Name, ErrClosed)
	}
	if s.mounted != "" {
		return "", fmt.Errorf("mounting %s: %w (%s)", file.Name, ErrBusy, s.mounted)
	}

	name := path.Base("/" + file.Name)
	if name == "/" || name == "." {
		return "", fmt.Errorf("mounting file: invalid name %q", file.Name)
	}

	exists, err := afero.DirExists(s.fs, s.workDir)
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", s.workDir, err)
	}
	if !exists {
		if err := s.fs.MkdirAll(s.workDir, 0o755); err != nil {
			return "", fmt.Errorf("creating %s: %w", s.workDir, err)
		}
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", file.Name, err)
	}
	defer src.Close()

	target := path.Join(s.workDir, name)
	if err := writeFile(s.fs, target, src); err != nil {
		return "", fmt.Errorf("staging %s: %w", file.Name, err)
	}

	s.mounted = target
	s.logger.Debug("mounted", zap.String("path", target))
	return target, nil
}

// Unmount detaches the file staged at p and frees the working directory.
// Removing is skipped when nothing exists at p, so calling it twice is safe
// and a staged file deleted behind the stager still releases occupancy.
func (s *Stager) Unmount(p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := afero.Exists(s.fs, p)
	if err != nil {
		return fmt.Errorf("checking %s: %w", p, err)
	}
	if exists {
		if err := s.fs.Remove(p); err != nil {
			return fmt.Errorf("unmounting %s: %w", p, err)
		}
	}
	if s.mounted == p {
		s.mounted = ""
	}
	s.logger.Debug("unmounted", zap.String("path", p), zap.Bool("existed", exists))
	return nil
}

// Close removes the host directory FromConfig created, along with anything
// still staged in it. It is safe to call more than once.
func (s *Stager) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed, s.mounted = true, ""
	if s.hostDir == "" {
		return nil
	}
	dir := s.hostDir
	s.hostDir = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing staging directory %s: %w", dir, err)
	}
	s.logger.Debug("removed staging directory", zap.String("dir", dir))
	return nil
}

// Mounted returns the path of the currently staged file, or "".
func (s *Stager) Mounted() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

func writeFile(fsys afero.Fs, target string, src io.Reader) (err error) {
	f, err := fsys.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = fsys.Remove(target)
		}
	}()
	_, err = io.Copy(f, src)
	return err
}
