package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/teamplay/go/internal/models"
)

// Repository defines what the catalog needs from its storage.
type Repository interface {
	LoadAll(ctx context.Context) ([]models.Block, error)
}

// Catalog is the read-only, process-lifetime cache of content blocks.
// A missing or malformed source degrades to an empty catalog.
type Catalog struct {
	repo Repository

	once   sync.Once
	blocks []models.Block
}

// NewCatalog creates a catalog backed by repo. Nothing is read until first use.
func NewCatalog(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

// NewStaticCatalog creates a catalog over an in-memory block list.
func NewStaticCatalog(blocks []models.Block) *Catalog {
	c := &Catalog{blocks: blocks}
	c.once.Do(func() {})
	return c
}

// Load forces the first read. Later calls are no-ops.
func (c *Catalog) Load(ctx context.Context) {
	c.once.Do(func() {
		blocks, err := c.repo.LoadAll(ctx)
		switch {
		case errors.Is(err, ErrNotFound):
			log.Warn().Err(err).Msg("content catalog missing, using empty catalog")
			blocks = nil
		case err != nil:
			log.Error().Err(err).Msg("failed to load content catalog, using empty catalog")
			blocks = nil
		default:
			log.Info().Int("blocks", len(blocks)).Msg("content catalog loaded")
		}
		c.blocks = blocks
	})
}

// Blocks returns every block in catalog order. The slice must not be modified.
func (c *Catalog) Blocks() []models.Block {
	c.Load(context.Background())
	return c.blocks
}

// Block returns the block at index i. ok is false when i is out of range.
func (c *Catalog) Block(i int) (models.Block, bool) {
	blocks := c.Blocks()
	if i < 0 || i >= len(blocks) {
		return models.Block{}, false
	}
	return blocks[i], true
}

// Len returns the number of blocks.
func (c *Catalog) Len() int {
	return len(c.Blocks())
}
