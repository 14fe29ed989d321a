// Package fileadapter reads payloads from JSON or JSON-lines files and writes payloads as JSON files.
package fileadapter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/flowlink/pkg/adapters"
	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/template"
)

const defaultFileName = "{{ .execution.workflow_id }}.json"

var (
	ErrNoLocation = errors.New("file adapter needs a 'path' or a 'directory'")
	ErrFileExists = errors.New("file already exists")
	ErrFileName   = errors.New("invalid file name")
)

// Adapter reads Path on Fetch and writes into Directory on Send. Either may be empty, which disables
// that direction.
type Adapter struct {
	Path      string
	Directory string
	FileName  string
	Overwrite bool

	logger *slog.Logger
}

func NewAdapter(config map[string]any, logger *slog.Logger) (*Adapter, error) {
	path, _ := config["path"].(string)
	directory, _ := config["directory"].(string)

	if path == "" && directory == "" {
		return nil, ErrNoLocation
	}

	fileName, _ := config["file_name"].(string)
	if fileName == "" {
		fileName = defaultFileName
	}

	if _, err := template.Parse(fileName); err != nil {
		return nil, fmt.Errorf("invalid file_name template: %w", err)
	}

	overwrite := true
	if v, ok := config["overwrite"].(bool); ok {
		overwrite = v
	}

	return &Adapter{
		Path:      path,
		Directory: directory,
		FileName:  fileName,
		Overwrite: overwrite,
		logger:    logger.With("module", "file_adapter"),
	}, nil
}

// Fetch decodes Path. Files ending in .jsonl yield one list element per line.
func (a *Adapter) Fetch(ctx context.Context, _ models.ExecutionContext) (any, error) {
	if a.Path == "" {
		return nil, fmt.Errorf("%w: fetch without 'path'", adapters.ErrUnsupported)
	}

	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s': %w", a.Path, err)
	}

	if strings.HasSuffix(a.Path, ".jsonl") {
		return decodeLines(data)
	}

	var payload any

	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode file '%s': %w", a.Path, err)
	}

	a.logger.DebugContext(ctx, "Read payload", "path", a.Path, "bytes", len(data))

	return payload, nil
}

// Send writes payload as indented JSON to Directory/FileName.
func (a *Adapter) Send(ctx context.Context, payload any, ectx models.ExecutionContext) error {
	if a.Directory == "" {
		return fmt.Errorf("%w: send without 'directory'", adapters.ErrUnsupported)
	}

	name, err := template.RenderString(a.FileName, template.ContextData(ectx, payload))
	if err != nil {
		return fmt.Errorf("failed to render file name: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrFileName, name)
	}

	jsonData, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data to JSON: %w", err)
	}

	fullPath := filepath.Join(a.Directory, name)

	if !a.Overwrite {
		if _, err := os.Stat(fullPath); err == nil {
			return fmt.Errorf("%w: '%s'", ErrFileExists, fullPath)
		}
	}

	if err := os.MkdirAll(a.Directory, 0o750); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", a.Directory, err)
	}

	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0o600); err != nil {
		return fmt.Errorf("failed to write file '%s': %w", tmp, err)
	}

	if err := os.Rename(tmp, fullPath); err != nil {
		return fmt.Errorf("failed to move file into place '%s': %w", fullPath, err)
	}

	a.logger.InfoContext(ctx, "Wrote payload", "path", fullPath, "bytes", len(jsonData), "workflow_id", ectx.WorkflowID)

	return nil
}

// Ready reports whether the configured path exists and the directory exists or can be created.
func (a *Adapter) Ready(_ context.Context) bool {
	if a.Path != "" {
		if _, err := os.Stat(a.Path); err != nil {
			return false
		}
	}

	if a.Directory != "" {
		if err := os.MkdirAll(a.Directory, 0o750); err != nil {
			return false
		}
	}

	return true
}

func (a *Adapter) Close(_ context.Context) error {
	return nil
}

func decodeLines(data []byte) ([]any, error) {
	records := make([]any, 0)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0

	for scanner.Scan() {
		line++

		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		var record any
		if err := json.Unmarshal(text, &record); err != nil {
			return nil, fmt.Errorf("failed to decode line %d: %w", line, err)
		}

		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan lines: %w", err)
	}

	return records, nil
}
