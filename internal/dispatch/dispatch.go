// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dispatch resolves a staged file to a converter.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/pdiddy/scinode/internal/scan"
)

// Resolve asks capability whether the file at path is a supported format
// and, if so, returns a converter bound to it. Scanner work is bound to ctx.
// An unrecognized file yields a nil converter and a nil error. The recognition handle never outlives the
// call; the returned converter is the caller's to release.
func Resolve(ctx context.Context, capability scan.Capability, fsys afero.Fs, path string, logger *zap.Logger) (conv scan.Converter, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	scanner, err := capability.NewScanner(ctx, fsys)
	if err != nil {
		return nil, fmt.Errorf("acquiring scanner: %w", err)
	}
	defer func() {
		if rerr := scanner.Release(); rerr != nil {
			err = errors.Join(err, fmt.Errorf("releasing scanner: %w", rerr))
			if conv != nil {
				err = errors.Join(err, conv.Release())
				conv = nil
			}
		}
	}()

	if !scanner.IsRecognized(path) {
		logger.Info("unrecognized file format", zap.String("path", path))
		return nil, nil
	}
	logger.Debug("recognized file format", zap.String("path", path))

	conv, err = scanner.GetConverter(path)
	if err != nil {
		return nil, fmt.Errorf("getting converter for %s: %w", path, err)
	}
	return conv, nil
}
