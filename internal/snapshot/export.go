// Package snapshot exports the virtual filesystem to a host file and
// restores it from one.
//
// A snapshot is two JSON lines: a Header, then the persisted tree document.
package snapshot

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/bytedance/sonic"

	"github.com/hpungsan/shadowscript/internal/config"
	"github.com/hpungsan/shadowscript/internal/errors"
)

// SchemaVersion is written into every header.
const SchemaVersion = "1.0"

// Source produces the encoded filesystem tree.
type Source interface {
	Export(ctx context.Context) ([]byte, error)
}

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // optional, default: ~/.shadowscript/exports/<name>-<timestamp>.jsonl
	Name string // optional label for the default file name
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Bytes      int    `json:"bytes"`
	ExportedAt int64  `json:"exported_at"`
}

// Header is the first line of a snapshot file.
type Header struct {
	ShadowScriptExport bool   `json:"_shadowscript_export"`
	SchemaVersion      string `json:"schema_version"`
	ExportedAt         int64  `json:"exported_at"`
}

// Export writes the tree from src to a snapshot file.
func Export(ctx context.Context, src Source, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	exportPath := input.Path
	if exportPath == "" {
		var err error
		exportPath, err = defaultExportPath(input.Name, now)
		if err != nil {
			return nil, err
		}
	}
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	tree, err := src.Export(ctx)
	if err != nil {
		return nil, err
	}
	header, err := sonic.ConfigStd.Marshal(Header{
		ShadowScriptExport: true,
		SchemaVersion:      SchemaVersion,
		ExportedAt:         now.Unix(),
	})
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	// Temp file plus rename keeps an existing snapshot intact on failure.
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	written := 0
	for _, chunk := range [][]byte{header, []byte("\n"), tree, []byte("\n")} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := file.Write(chunk)
		written += n
		if err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination.
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path is a symlink")
	}

	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows (choose a new path or delete the existing file)")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{Path: exportPath, Bytes: written, ExportedAt: now.Unix()}, nil
}

// defaultExportPath returns ~/.shadowscript/exports/<name>-<timestamp>.jsonl.
func defaultExportPath(name string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	if name == "" {
		name = "filesystem"
	}
	filename := fmt.Sprintf("%s-%s%s", SanitizeForFilename(name), now.Format("2006-01-02T150405"), Extension)
	return filepath.Join(dir, filename), nil
}
