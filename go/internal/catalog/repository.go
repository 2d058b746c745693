package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/teamplay/go/internal/models"
)

// ErrNotFound is returned when the backing catalog file does not exist.
var ErrNotFound = errors.New("catalog file not found")

// FileRepository reads the block list from a JSON or YAML file.
type FileRepository struct {
	path string
}

// NewFileRepository creates a repository for the file at path. The format is
// picked from the extension: .yaml and .yml are YAML, anything else is JSON.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Path returns the file backing the repository.
func (r *FileRepository) Path() string {
	return r.path
}

// LoadAll reads and decodes every block in file order.
func (r *FileRepository) LoadAll(ctx context.Context) ([]models.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, r.path)
		}
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var blocks []models.Block
	switch strings.ToLower(filepath.Ext(r.path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &blocks); err != nil {
			return nil, fmt.Errorf("failed to parse catalog yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &blocks); err != nil {
			return nil, fmt.Errorf("failed to parse catalog json: %w", err)
		}
	}

	if blocks == nil {
		blocks = []models.Block{}
	}
	return blocks, nil
}
