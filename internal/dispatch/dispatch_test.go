// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/scinode/internal/handle"
	"github.com/pdiddy/scinode/internal/scan/scantest"
)

func TestResolve(t *testing.T) {
	parseErr := errors.New("corrupt block")
	scanErr := errors.New("library not loaded")

	tests := []struct {
		name        string
		capability  *scantest.Capability
		wantConv    bool
		wantErr     error
		wantHandles handle.Stats
	}{
		{
			name:        "recognized",
			capability:  &scantest.Capability{Recognize: true, Root: scantest.Leaf("root")},
			wantConv:    true,
			wantHandles: handle.Stats{Acquired: 2, Released: 1, Outstanding: 1},
		},
		{
			name:        "unrecognized is not an error",
			capability:  &scantest.Capability{},
			wantHandles: handle.Stats{Acquired: 1, Released: 1},
		},
		{
			name:        "converter fails",
			capability:  &scantest.Capability{Recognize: true, ConvErr: parseErr},
			wantErr:     parseErr,
			wantHandles: handle.Stats{Acquired: 1, Released: 1},
		},
		{
			name:       "scanner cannot be acquired",
			capability: &scantest.Capability{ScanErr: scanErr},
			wantErr:    scanErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := handle.NewLedger()
			tt.capability.Ledger = l

			conv, err := Resolve(context.Background(), tt.capability, afero.NewMemMapFs(), "/work/f", zaptest.NewLogger(t))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantConv, conv != nil)
			assert.Equal(t, tt.wantHandles, l.Stats())

			if conv != nil {
				require.NoError(t, conv.Release())
				assert.Equal(t, 0, l.Stats().Outstanding)
			}
		})
	}
}

func TestResolve_NilLogger(t *testing.T) {
	conv, err := Resolve(context.Background(), &scantest.Capability{}, afero.NewMemMapFs(), "/work/f", nil)
	require.NoError(t, err)
	assert.Nil(t, conv)
}
