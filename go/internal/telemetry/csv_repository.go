package telemetry

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/teamplay/go/internal/models"
)

var csvHeader = []string{"User", "Confederate", "Action", "Text", "Timestamp", "X", "Y", "Resolution"}

// CSVRepository appends events to one CSV file per user per UTC day under dir.
type CSVRepository struct {
	dir   string
	clock clockwork.Clock

	mu sync.Mutex
}

func NewCSVRepository(dir string, clock clockwork.Clock) (*CSVRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry dir: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CSVRepository{dir: dir, clock: clock}, nil
}

func (r *CSVRepository) Name() string {
	return "csv"
}

// FilePath returns the file an event owned by user would be appended to now.
func (r *CSVRepository) FilePath(user string) string {
	date := r.clock.Now().UTC().Format("2006-01-02")
	return filepath.Join(r.dir, fmt.Sprintf("telemetry_data_%s_%s.csv", safeFileComponent(user), date))
}

func (r *CSVRepository) Save(_ context.Context, ev models.TelemetryEvent) error {
	path := r.FilePath(ev.Owner())

	r.mu.Lock()
	defer r.mu.Unlock()

	_, statErr := os.Stat(path)
	exists := statErr == nil
	if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", path, statErr)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if !exists {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := w.Write(csvRecord(ev)); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

func csvRecord(ev models.TelemetryEvent) []string {
	return []string{
		ev.User,
		deref(ev.Confederate),
		ev.Action,
		deref(ev.Text),
		ev.Timestamp.UTC().Format(time.RFC3339Nano),
		formatFloat(ev.X),
		formatFloat(ev.Y),
		deref(ev.Resolution),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

// safeFileComponent keeps user supplied names from escaping the log dir.
func safeFileComponent(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, strings.ReplaceAll(name, "..", "_"))
}
