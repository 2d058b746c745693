package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/teamplay/go/internal/models"
)

const fileTimestampLayout = "2006-01-02_15-04-05"

// ChatLogRepository writes chat and tutorial snapshots as plain text files.
type ChatLogRepository struct {
	dir   string
	clock clockwork.Clock
}

func NewChatLogRepository(dir string, clock clockwork.Clock) (*ChatLogRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chat log dir: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ChatLogRepository{dir: dir, clock: clock}, nil
}

// WriteChatLog writes messages to chat_logs_<timestamp>.txt. Nothing is
// written for an empty slice.
func (r *ChatLogRepository) WriteChatLog(_ context.Context, messages []models.Message) error {
	if len(messages) == 0 {
		return nil
	}

	ts := r.clock.Now().UTC().Format(fileTimestampLayout)
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s - %s: %s", m.FormattedTimestamp(), m.User, m.Text))
	}
	content := fmt.Sprintf("Chat Log - %s\n\n%s", ts, strings.Join(lines, "\n"))

	path := filepath.Join(r.dir, fmt.Sprintf("chat_logs_%s.txt", ts))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write chat log: %w", err)
	}

	log.Info().Str("path", path).Int("messages", len(messages)).Msg("chat log saved")
	return nil
}

func (r *ChatLogRepository) WriteTutorialLog(_ context.Context, tries int) error {
	ts := r.clock.Now().UTC().Format(fileTimestampLayout)
	content := fmt.Sprintf("Tutorial Log - %s\n\nTries: %d", ts, tries)

	path := filepath.Join(r.dir, fmt.Sprintf("tutorial_logs_%s.txt", ts))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write tutorial log: %w", err)
	}

	log.Info().Str("path", path).Int("tries", tries).Msg("tutorial log saved")
	return nil
}
