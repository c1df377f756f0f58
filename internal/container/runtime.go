// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container runs external converter tools. A tool reads a user file
// on stdin and writes a node tree on stdout; it runs either in a docker or
// podman container without network access or on the host.
package container

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Runtime names accepted by Select.
const (
	Docker = "docker"
	Podman = "podman"
	Host   = "host"
	Auto   = ""
)

// stderrLimit bounds how much of a failing tool's stderr ends up in the
// returned error.
const stderrLimit = 2048

// Runtime runs converter tools.
type Runtime interface {
	// Name returns "docker", "podman" or "host".
	Name() string

	// Available reports whether the runtime is usable.
	Available(ctx context.Context) bool

	// ImageExists checks that the tool is present: a local image for
	// container runtimes, an executable on PATH for the host.
	ImageExists(ctx context.Context, image string) error

	// Run executes the tool with args, piping stdin and stdout.
	Run(ctx context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(ctx context.Context, name string, args ...string) error
	RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

func (o *osExecutor) RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			if len(msg) > stderrLimit {
				msg = msg[:stderrLimit] + "..."
			}
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// runtime implements Runtime for a container binary. Docker and Podman
// differ only in binary name and the subcommand that checks for an image.
type runtime struct {
	bin           string
	imageCheckCmd []string // e.g. ["image", "inspect"] for docker
	exec          executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available(ctx context.Context) bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(ctx, r.bin, "info") == nil
}

func (r *runtime) ImageExists(ctx context.Context, image string) error {
	args := make([]string, 0, len(r.imageCheckCmd)+1)
	args = append(args, r.imageCheckCmd...)
	args = append(args, image)

	if err := r.exec.RunSilent(ctx, r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

// Run starts a throwaway container that sees nothing but its stdin.
func (r *runtime) Run(ctx context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error {
	full := append([]string{"run", "--rm", "-i", "--network", "none", "--read-only", image}, args...)
	if err := r.exec.RunPiped(ctx, r.bin, full, stdin, stdout); err != nil {
		return fmt.Errorf("running %s container %s: %w", r.bin, image, err)
	}
	return nil
}

// hostRuntime runs tools as plain host processes.
type hostRuntime struct {
	exec executor
}

func (h *hostRuntime) Name() string { return Host }

func (h *hostRuntime) Available(context.Context) bool { return true }

func (h *hostRuntime) ImageExists(_ context.Context, image string) error {
	if _, err := h.exec.LookPath(image); err != nil {
		return fmt.Errorf("tool %s not found on PATH: %w", image, err)
	}
	return nil
}

func (h *hostRuntime) Run(ctx context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error {
	if err := h.exec.RunPiped(ctx, image, args, stdin, stdout); err != nil {
		return fmt.Errorf("running %s: %w", image, err)
	}
	return nil
}

func newDockerRuntime(exec executor) *runtime {
	return &runtime{
		bin:           Docker,
		imageCheckCmd: []string{"image", "inspect"},
		exec:          exec,
	}
}

func newPodmanRuntime(exec executor) *runtime {
	return &runtime{
		bin:           Podman,
		imageCheckCmd: []string{"image", "exists"},
		exec:          exec,
	}
}

var defaultExec = &osExecutor{}

// Select returns the runtime called name. Auto tries docker first and falls
// back to podman.
func Select(ctx context.Context, name string) (Runtime, error) {
	return selectRuntime(ctx, defaultExec, name)
}

func selectRuntime(ctx context.Context, exec executor, name string) (Runtime, error) {
	switch name {
	case Host:
		return &hostRuntime{exec: exec}, nil
	case Docker, Podman:
		rt := newDockerRuntime(exec)
		if name == Podman {
			rt = newPodmanRuntime(exec)
		}
		if !rt.Available(ctx) {
			return nil, fmt.Errorf("container runtime %s not found or not operational", name)
		}
		return rt, nil
	case Auto:
		return detectRuntime(ctx, exec)
	default:
		return nil, fmt.Errorf("unknown runtime %q", name)
	}
}

func detectRuntime(ctx context.Context, exec executor) (Runtime, error) {
	docker := newDockerRuntime(exec)
	if docker.Available(ctx) {
		return docker, nil
	}

	podman := newPodmanRuntime(exec)
	if podman.Available(ctx) {
		return podman, nil
	}

	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		Docker, Podman,
	)
}
