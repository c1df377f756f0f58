// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/afero"
)

// Registry is a Capability made of other capabilities. Its scanners
// recognize a file when any member does.
type Registry struct {
	mu   sync.RWMutex
	caps []Capability
}

// NewRegistry returns a registry of caps in priority order.
func NewRegistry(caps ...Capability) *Registry {
	return &Registry{caps: caps}
}

// Register appends c with the lowest priority.
func (r *Registry) Register(c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps = append(r.caps, c)
}

// Names lists the registered capabilities in priority order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.caps))
	for i, c := range r.caps {
		names[i] = c.Name()
	}
	return names
}

// Name implements Capability.
func (r *Registry) Name() string { return "registry" }

// NewScanner acquires one scanner per member. If any member fails, the
// scanners acquired so far are released.
func (r *Registry) NewScanner(ctx context.Context, fsys afero.Fs) (Scanner, error) {
	r.mu.RLock()
	caps := append([]Capability(nil), r.caps...)
	r.mu.RUnlock()

	svc := &Service{}
	for _, c := range caps {
		s, err := c.NewScanner(ctx, fsys)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("acquiring %s scanner: %w", c.Name(), err), svc.Release())
		}
		svc.scanners = append(svc.scanners, s)
	}
	return svc, nil
}

// Service is a Scanner that delegates to several scanners.
type Service struct {
	scanners []Scanner
	released bool
}

// NewService returns a service over scanners. The service takes ownership
// and releases them with itself.
func NewService(scanners ...Scanner) *Service {
	return &Service{scanners: scanners}
}

// IsRecognized reports whether any scanner recognizes path.
func (s *Service) IsRecognized(path string) bool {
	for _, sc := range s.scanners {
		if sc.IsRecognized(path) {
			return true
		}
	}
	return false
}

// GetConverter returns the converter of the first recognizing scanner that
// parses path successfully. When recognizing scanners all fail, their errors
// are joined.
func (s *Service) GetConverter(path string) (Converter, error) {
	var parseErrs []error
	for i, sc := range s.scanners {
		if !sc.IsRecognized(path) {
			continue
		}
		conv, err := sc.GetConverter(path)
		if err == nil {
			return conv, nil
		}
		parseErrs = append(parseErrs, fmt.Errorf("parser %d: %w", i+1, err))
	}
	if len(parseErrs) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoConverter)
	}
	return nil, fmt.Errorf("errors encountered while parsing %s: %w", path, errors.Join(parseErrs...))
}

// Release releases every member scanner once.
func (s *Service) Release() error {
	if s.released {
		return errors.New("scanner service already released")
	}
	s.released = true
	var errs []error
	for _, sc := range s.scanners {
		if err := sc.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
