package snapshot

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/bytedance/sonic"

	"github.com/hpungsan/shadowscript/internal/config"
	"github.com/hpungsan/shadowscript/internal/errors"
)

// MaxSnapshotBytes bounds the size of a snapshot file accepted by Import.
const MaxSnapshotBytes = 64 << 20

// Target replaces the filesystem tree with an encoded document.
type Target interface {
	Restore(ctx context.Context, data []byte) error
}

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string // required
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Path       string `json:"path"`
	ExportedAt int64  `json:"exported_at"`
}

// Import reads a snapshot file and restores it into dst. The current tree is
// replaced wholesale.
func Import(ctx context.Context, dst Target, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		var sErr *errors.ShadowError
		if stderrors.As(err, &sErr) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxSnapshotBytes+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}
	if len(data) > MaxSnapshotBytes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("snapshot exceeds %d bytes", MaxSnapshotBytes))
	}

	header, tree, err := parseSnapshot(data)
	if err != nil {
		return nil, err
	}
	if err := dst.Restore(ctx, tree); err != nil {
		return nil, err
	}
	return &ImportOutput{Path: input.Path, ExportedAt: header.ExportedAt}, nil
}

func parseSnapshot(data []byte) (*Header, []byte, error) {
	line, rest, ok := bytes.Cut(data, []byte("\n"))
	if !ok {
		return nil, nil, errors.NewInvalidRequest("snapshot is missing the tree line")
	}
	var header Header
	if err := sonic.ConfigStd.Unmarshal(line, &header); err != nil {
		return nil, nil, errors.NewInvalidRequest(fmt.Sprintf("invalid snapshot header: %v", err))
	}
	if !header.ShadowScriptExport {
		return nil, nil, errors.NewInvalidRequest("not a shadowscript snapshot")
	}
	if header.SchemaVersion != SchemaVersion {
		return nil, nil, errors.NewInvalidRequest(fmt.Sprintf("unsupported snapshot schema %q", header.SchemaVersion))
	}
	tree := bytes.TrimSpace(rest)
	if len(tree) == 0 {
		return nil, nil, errors.NewInvalidRequest("snapshot is missing the tree line")
	}
	return &header, tree, nil
}
