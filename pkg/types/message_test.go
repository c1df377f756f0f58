// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_WireShape(t *testing.T) {
	node := ProjectedNode{
		Name:           "root",
		Parameters:     []KeyValue{{Key: "TITLE", Value: "demo"}},
		Data:           []Point{{X: 1.25, Y: -3}},
		Metadata:       map[string]string{"origin": "lab"},
		Table:          Table{ColumnNames: []ColumnName{{Key: "c1", Value: "Col1"}}, Rows: []Row{{"c1": "42"}}},
		ChildNodeNames: []string{},
	}

	b, err := json.Marshal(ShowNodeContent("/", node))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"command": "showNodeContent",
		"data": {
			"path": "/",
			"node": {
				"name": "root",
				"parameters": [{"key": "TITLE", "value": "demo"}],
				"data": [{"x": 1.25, "y": -3}],
				"metadata": {"origin": "lab"},
				"table": {"columnNames": [{"key": "c1", "value": "Col1"}], "rows": [{"c1": "42"}]},
				"childNodeNames": []
			}
		}
	}`, string(b))

	b, err = json.Marshal(ShowName("a.jdx"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"showName","data":"a.jdx"}`, string(b))
}

func TestEvent_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Event
	}{
		{
			name: "showName",
			in:   `{"command":"showName","data":"x.yaml"}`,
			want: ShowName("x.yaml"),
		},
		{
			name: "showNodeContent",
			in:   `{"command":"showNodeContent","data":{"path":"/0","node":{"name":"c","childNodeNames":["a"]}}}`,
			want: ShowNodeContent("/0", ProjectedNode{Name: "c", ChildNodeNames: []string{"a"}}),
		},
		{
			name: "readComplete",
			in:   `{"command":"readComplete","data":{"file":"x","status":"unrecognized","nodes":0}}`,
			want: Event{Command: EventReadComplete, Data: ReadSummary{File: "x", Status: ReadUnrecognized}},
		},
		{
			name: "error",
			in:   `{"command":"error","data":{"file":"x","path":"/3","message":"boom"}}`,
			want: Event{Command: EventError, Data: ReadError{File: "x", Path: "/3", Message: "boom"}},
		},
		{
			name: "unknown command keeps raw data",
			in:   `{"command":"ping","data":{"a":1}}`,
			want: Event{Command: "ping", Data: json.RawMessage(`{"a":1}`)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Event
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileRef_Open(t *testing.T) {
	t.Run("inline data", func(t *testing.T) {
		rc, err := FileRef{Name: "a", Data: []byte("abc")}.Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "abc", string(b))
	})

	t.Run("host path", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "f.txt")
		require.NoError(t, os.WriteFile(p, []byte("disk"), 0o644))
		rc, err := FileRef{Name: "f.txt", Path: p}.Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "disk", string(b))
	})

	t.Run("neither", func(t *testing.T) {
		_, err := FileRef{Name: "ghost"}.Open()
		assert.Error(t, err)
	})
}

func TestConfig_WithDefaults(t *testing.T) {
	c := Config{}.WithDefaults()
	assert.Equal(t, DefaultWorkDir, c.Stage.WorkDir)
	assert.Equal(t, StageMemory, c.Stage.Backend)
	assert.Equal(t, 1, c.Worker.Jobs)
	assert.Equal(t, 64, c.Worker.Queue)
	assert.Equal(t, OutputText, c.Output.Format)

	c = Config{Worker: WorkerConfig{Jobs: 4}, Stage: StageConfig{WorkDir: "/stage"}}.WithDefaults()
	assert.Equal(t, 4, c.Worker.Jobs)
	assert.Equal(t, "/stage", c.Stage.WorkDir)
}
