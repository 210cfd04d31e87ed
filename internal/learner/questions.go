package learner

import (
	"context"
	"regexp"
	"strings"

	"github.com/lewisedginton/rota/internal/storage_manager"
	"github.com/lewisedginton/rota/pkg/logger"
)

// DefaultQuestions is used when no question file yields anything.
var DefaultQuestions = []string{
	"What is artificial intelligence?",
	"How does a neural network work?",
	"What is reinforcement learning?",
}

var quotedBlock = regexp.MustCompile(`(?s)"""(.*?)"""`)

// ParseQuestions extracts questions from a question file. When the content has a
// triple-quoted block only that block is read. Blank lines, comments, rule lines and
// section headings are skipped.
func ParseQuestions(content string) []string {
	if m := quotedBlock.FindStringSubmatch(content); m != nil {
		content = m[1]
	}

	var out []string
	for _, line := range strings.Split(content, "\n") {
		s := strings.TrimSpace(line)
		if isQuestion(s) {
			out = append(out, s)
		}
	}
	return out
}

func isQuestion(s string) bool {
	switch {
	case s == "":
		return false
	case strings.HasPrefix(s, "#"):
		return false
	case strings.HasPrefix(s, "---"), strings.HasPrefix(s, "==="):
		return false
	case strings.Contains(s, "Questions"), strings.Contains(s, "Topics"), strings.Contains(s, "Considerations"):
		return false
	}
	return true
}

// LoadQuestions reads and parses path from provider, falling back to DefaultQuestions
// when the file is unreadable or yields nothing.
func LoadQuestions(ctx context.Context, provider storage_manager.FileProvider, path string, log logger.Logger) []string {
	if log == nil {
		log = logger.NewNop()
	}
	data, err := provider.Read(ctx, path)
	if err != nil {
		log.Warn("Could not read question file, using defaults",
			logger.StringField("path", path),
			logger.ErrorField(err))
		return append([]string(nil), DefaultQuestions...)
	}
	questions := ParseQuestions(string(data))
	if len(questions) == 0 {
		log.Warn("No questions found in file, using defaults", logger.StringField("path", path))
		return append([]string(nil), DefaultQuestions...)
	}
	return questions
}
