// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package external is a conversion capability backed by a converter tool
// that runs outside the process, usually in a container. The tool receives
// the staged file on stdin and answers with a scinode-tree document, which
// is then served like a treedoc file.
package external

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/pdiddy/scinode/internal/container"
	"github.com/pdiddy/scinode/internal/formats/treedoc"
	"github.com/pdiddy/scinode/internal/handle"
	"github.com/pdiddy/scinode/internal/scan"
	"github.com/pdiddy/scinode/pkg/types"
)

// DefaultTimeout bounds one conversion when the format sets none.
const DefaultTimeout = 2 * time.Minute

// Capability recognizes files by extension and converts them with a tool.
type Capability struct {
	format  types.ExternalFormat
	exts    map[string]bool
	runtime container.Runtime
	ledger  *handle.Ledger
}

// New returns the capability for format, checking that its tool is present
// in rt. l may be nil.
func New(ctx context.Context, format types.ExternalFormat, rt container.Runtime, l *handle.Ledger) (*Capability, error) {
	if format.Name == "" {
		return nil, fmt.Errorf("external format without a name")
	}
	if format.Image == "" {
		return nil, fmt.Errorf("external format %s: no image", format.Name)
	}
	if len(format.Extensions) == 0 {
		return nil, fmt.Errorf("external format %s: no extensions", format.Name)
	}
	if err := rt.ImageExists(ctx, format.Image); err != nil {
		return nil, fmt.Errorf("external format %s: %w", format.Name, err)
	}
	if format.Timeout <= 0 {
		format.Timeout = DefaultTimeout
	}

	exts := make(map[string]bool, len(format.Extensions))
	for _, e := range format.Extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	return &Capability{format: format, exts: exts, runtime: rt, ledger: l}, nil
}

// Name implements scan.Capability.
func (c *Capability) Name() string { return c.format.Name }

// NewScanner implements scan.Capability.
func (c *Capability) NewScanner(ctx context.Context, fsys afero.Fs) (scan.Scanner, error) {
	return &Scanner{ctx: ctx, cap: c, fs: fsys, token: handle.NewToken(c.ledger, c.format.Name+".scanner")}, nil
}

// Scanner is the recognition handle of a Capability.
type Scanner struct {
	ctx   context.Context
	cap   *Capability
	fs    afero.Fs
	token *handle.Token
}

// IsRecognized matches the extension only; the tool has the final word
// when the converter is created.
func (s *Scanner) IsRecognized(p string) bool {
	if s.token.Check("isRecognized") != nil {
		return false
	}
	return s.cap.exts[strings.ToLower(path.Ext(p))]
}

// GetConverter pipes the file through the tool and decodes its output. The
// tool is killed when the scanner's context is done or the format's timeout
// expires.
func (s *Scanner) GetConverter(p string) (scan.Converter, error) {
	if err := s.token.Check("getConverter"); err != nil {
		return nil, err
	}
	f, err := s.fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", p, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(s.ctx, s.cap.format.Timeout)
	defer cancel()

	var out bytes.Buffer
	if err := s.cap.runtime.Run(ctx, s.cap.format.Image, s.cap.format.Args, f, &out); err != nil {
		return nil, fmt.Errorf("converting %s with %s: %w", p, s.cap.format.Name, err)
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("%s produced empty output for %s", s.cap.format.Name, p)
	}

	doc, err := treedoc.Decode(out.Bytes())
	if err != nil {
		return nil, fmt.Errorf("decoding %s output for %s: %w", s.cap.format.Name, p, err)
	}
	return treedoc.NewConverter(doc, s.cap.ledger), nil
}

// Release implements scan.Scanner.
func (s *Scanner) Release() error {
	return s.token.Release()
}
