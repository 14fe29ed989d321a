package fileadapter

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/flowlink/pkg/adapters"
	"github.com/dukex/flowlink/pkg/log"
	"github.com/dukex/flowlink/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ectx = models.ExecutionContext{WorkflowID: "wf-1", FlowID: "orders", ExecutionID: "exec-1"}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestNewAdapter(t *testing.T) {
	_, err := NewAdapter(map[string]any{}, log.Discard())
	require.ErrorIs(t, err, ErrNoLocation)

	_, err = NewAdapter(map[string]any{"directory": "/tmp", "file_name": "{{"}, log.Discard())
	require.Error(t, err)

	a, err := NewAdapter(map[string]any{"directory": "/tmp"}, log.Discard())
	require.NoError(t, err)
	assert.True(t, a.Overwrite)
	assert.Equal(t, defaultFileName, a.FileName)
}

func TestAdapter_Fetch(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    any
		wantErr bool
	}{
		{name: "json object", file: "in.json", content: `{"id":"o-1"}`, want: map[string]any{"id": "o-1"}},
		{name: "json array", file: "in.json", content: `[1,2]`, want: []any{1.0, 2.0}},
		{name: "json lines", file: "in.jsonl", content: "{\"id\":\"a\"}\n\n{\"id\":\"b\"}\n", want: []any{
			map[string]any{"id": "a"},
			map[string]any{"id": "b"},
		}},
		{name: "empty json lines", file: "in.jsonl", content: "", want: []any{}},
		{name: "broken json", file: "in.json", content: `{`, wantErr: true},
		{name: "broken line", file: "in.jsonl", content: "{}\n{", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAdapter(map[string]any{"path": writeFile(t, tt.file, tt.content)}, log.Discard())
			require.NoError(t, err)

			got, err := a.Fetch(context.Background(), ectx)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdapter_Send(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	a, err := NewAdapter(map[string]any{"directory": dir}, log.Discard())
	require.NoError(t, err)

	require.NoError(t, a.Send(context.Background(), map[string]any{"id": "o-1"}, ectx))

	data, err := os.ReadFile(filepath.Join(dir, "wf-1.json"))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, map[string]any{"id": "o-1"}, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAdapter_SendNoOverwrite(t *testing.T) {
	dir := t.TempDir()

	a, err := NewAdapter(map[string]any{
		"directory": dir,
		"file_name": "{{ .payload.id }}.json",
		"overwrite": false,
	}, log.Discard())
	require.NoError(t, err)

	require.NoError(t, a.Send(context.Background(), map[string]any{"id": "o-1"}, ectx))
	require.ErrorIs(t, a.Send(context.Background(), map[string]any{"id": "o-1"}, ectx), ErrFileExists)
	require.NoError(t, a.Send(context.Background(), map[string]any{"id": "o-2"}, ectx))
}

func TestAdapter_SendRejectsEscapingNames(t *testing.T) {
	a, err := NewAdapter(map[string]any{"directory": t.TempDir(), "file_name": "{{ .payload.name }}"}, log.Discard())
	require.NoError(t, err)

	for _, name := range []string{"../escape.json", "a/b.json", "", ".."} {
		err := a.Send(context.Background(), map[string]any{"name": name}, ectx)
		require.ErrorIs(t, err, ErrFileName, name)
	}
}

func TestAdapter_UnsupportedDirection(t *testing.T) {
	fetchOnly, err := NewAdapter(map[string]any{"path": "/does/not/matter.json"}, log.Discard())
	require.NoError(t, err)
	require.ErrorIs(t, fetchOnly.Send(context.Background(), "x", ectx), adapters.ErrUnsupported)

	sendOnly, err := NewAdapter(map[string]any{"directory": t.TempDir()}, log.Discard())
	require.NoError(t, err)

	_, err = sendOnly.Fetch(context.Background(), ectx)
	require.ErrorIs(t, err, adapters.ErrUnsupported)
}

func TestAdapter_Ready(t *testing.T) {
	existing := writeFile(t, "in.json", "{}")

	a, err := NewAdapter(map[string]any{"path": existing, "directory": t.TempDir()}, log.Discard())
	require.NoError(t, err)
	assert.True(t, a.Ready(context.Background()))

	missing, err := NewAdapter(map[string]any{"path": filepath.Join(t.TempDir(), "missing.json")}, log.Discard())
	require.NoError(t, err)
	assert.False(t, missing.Ready(context.Background()))
}
