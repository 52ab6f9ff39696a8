package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BTreeMap/InterviewDeck/internal/models"
)

// FileQuestionSource loads question sets from per-identifier JSON documents
// in a local directory: {dir}/{id}.json.
type FileQuestionSource struct {
	dir string
}

// NewFileQuestionSource creates a question source over dir.
func NewFileQuestionSource(dir string) *FileQuestionSource {
	return &FileQuestionSource{dir: dir}
}

// QuestionSet loads the question set document for id.
func (f *FileQuestionSource) QuestionSet(ctx context.Context, id string) (*models.QuestionSet, error) {
	if id == "" || strings.ContainsAny(id, "/\\") {
		return nil, fmt.Errorf("invalid question set id %q", id)
	}
	path := filepath.Join(f.dir, id+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question set file: %w", err)
	}
	var qs models.QuestionSet
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("failed to decode question set %s: %w", id, err)
	}
	if qs.ID == "" {
		qs.ID = id
	}
	if qs.TimeLimitSeconds <= 0 {
		qs.TimeLimitSeconds = defaultTimeLimitSeconds
	}
	slog.Debug("FileQuestionSource.QuestionSet: loaded", "id", id, "questions", len(qs.Questions), "time_limit_seconds", qs.TimeLimitSeconds)
	return &qs, nil
}

// defaultTimeLimitSeconds applies when a question set document omits a limit.
const defaultTimeLimitSeconds = 600
