package learner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/rota/internal/knowledge"
	"github.com/lewisedginton/rota/internal/storage_manager"
)

type fakeKnowledge struct {
	mu       sync.Mutex
	learned  []string
	added    []knowledge.QARecord
	answered map[string]bool
	failOn   string
	onLearn  func(n int)
}

func (f *fakeKnowledge) Learn(_ context.Context, q string) (knowledge.QARecord, bool, error) {
	f.mu.Lock()
	f.learned = append(f.learned, q)
	n := len(f.learned)
	f.mu.Unlock()
	if f.onLearn != nil {
		f.onLearn(n)
	}
	if q == f.failOn {
		return knowledge.QARecord{}, false, errors.New("save failed")
	}
	return knowledge.QARecord{Question: q, Answer: "answer to " + q}, true, nil
}

func (f *fakeKnowledge) Add(_ context.Context, rec knowledge.QARecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.added {
		if r.Question == rec.Question && r.Answer == rec.Answer {
			return false, nil
		}
	}
	f.added = append(f.added, rec)
	return true, nil
}

func (f *fakeKnowledge) Answered(q string) bool {
	return f.answered[q]
}

type fakeNews struct {
	links []string
	texts map[string]string
}

func (f *fakeNews) NewsLinks(_ context.Context, _ string, n int) []string {
	if len(f.links) > n {
		return f.links[:n]
	}
	return f.links
}

func (f *fakeNews) ExtractText(_ context.Context, url string) string {
	return f.texts[url]
}

func TestListSourceCycles(t *testing.T) {
	s := NewListSource([]string{"a", "b"})
	var got []string
	for i := 0; i < 5; i++ {
		q, err := s.Next(context.Background())
		require.NoError(t, err)
		got = append(got, q)
	}
	assert.Equal(t, []string{"a", "b", "a", "b", "a"}, got)

	_, err := NewListSource(nil).Next(context.Background())
	assert.ErrorIs(t, err, ErrSourceExhausted)
}

func TestParseQuestions(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name: "plain lines with headings and comments",
			content: "# Questions about AI\n" +
				"--- section ---\n" +
				"=== Topics ===\n" +
				"\n" +
				"  What is AI?  \r\n" +
				"Ethical Considerations\n" +
				"How do GPUs work?\n",
			expected: []string{"What is AI?", "How do GPUs work?"},
		},
		{
			name: "only the quoted block is read",
			content: "questions = \"\"\"\n" +
				"What is Go?\n" +
				"# skip me\n" +
				"What is Rust?\n" +
				"\"\"\"\n" +
				"What is outside?\n",
			expected: []string{"What is Go?", "What is Rust?"},
		},
		{
			name:     "nothing usable",
			content:  "# just a comment\n\n",
			expected: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseQuestions(tt.content))
		})
	}
}

func TestLoadQuestions(t *testing.T) {
	ctx := context.Background()
	provider := storage_manager.NewLocalFileProvider(t.TempDir())

	assert.Equal(t, DefaultQuestions, LoadQuestions(ctx, provider, "missing.txt", nil))

	require.NoError(t, provider.Write(ctx, "empty.txt", []byte("# nothing\n")))
	assert.Equal(t, DefaultQuestions, LoadQuestions(ctx, provider, "empty.txt", nil))

	require.NoError(t, provider.Write(ctx, "questions.txt", []byte("What is Go?\n")))
	assert.Equal(t, []string{"What is Go?"}, LoadQuestions(ctx, provider, "questions.txt", nil))
}

func TestLuaSupplier(t *testing.T) {
	script := `
local topics = {"Go", "Lua"}
function next_question(n)
  if n > #topics then
    return nil
  end
  return string.format("What is %s?", topics[n])
end
`
	s, err := NewLuaSupplier(context.Background(), script, time.Second, nil)
	require.NoError(t, err)
	defer s.Close()

	q, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "What is Go?", q)

	q, err = s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "What is Lua?", q)

	_, err = s.Next(context.Background())
	assert.ErrorIs(t, err, ErrSourceExhausted)
}

func TestLuaSupplierEmptyStringEnds(t *testing.T) {
	s, err := NewLuaSupplier(context.Background(), `function next_question(n) return "" end`, time.Second, nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Next(context.Background())
	assert.ErrorIs(t, err, ErrSourceExhausted)
}

func TestLuaSupplierSandbox(t *testing.T) {
	script := `
function next_question(n)
  if io ~= nil or os ~= nil or dofile ~= nil or loadstring ~= nil then
    return "unsafe"
  end
  return "safe"
end
`
	s, err := NewLuaSupplier(context.Background(), script, time.Second, nil)
	require.NoError(t, err)
	defer s.Close()

	q, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "safe", q)
}

func TestLuaSupplierErrors(t *testing.T) {
	_, err := NewLuaSupplier(context.Background(), `x = 1`, time.Second, nil)
	assert.Error(t, err)

	_, err = NewLuaSupplier(context.Background(), `this is not lua`, time.Second, nil)
	assert.Error(t, err)

	s, err := NewLuaSupplier(context.Background(), `function next_question(n) while true do end end`, 50*time.Millisecond, nil)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Next(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSourceExhausted)
}

func TestLearnBatch(t *testing.T) {
	k := &fakeKnowledge{
		answered: map[string]bool{"known": true},
		failOn:   "broken",
	}
	l := New(Config{Knowledge: k})

	result, err := l.LearnBatch(context.Background(), []string{"known", "a", "broken", "b"}, BatchOptions{SkipAnswered: true})
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Attempted: 3, Learned: 2, Skipped: 1, Failed: 1}, result)
	assert.Equal(t, []string{"a", "broken", "b"}, k.learned)
}

func TestLearnBatchAllAnswered(t *testing.T) {
	k := &fakeKnowledge{answered: map[string]bool{"a": true}}
	l := New(Config{Knowledge: k})

	result, err := l.LearnBatch(context.Background(), []string{"a"}, BatchOptions{SkipAnswered: true})
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Skipped: 1}, result)
	assert.Empty(t, k.learned)
}

func TestLearnBatchRejectsConcurrentRun(t *testing.T) {
	l := New(Config{Knowledge: &fakeKnowledge{}})
	l.batch.Lock()
	defer l.batch.Unlock()

	_, err := l.LearnBatch(context.Background(), []string{"a"}, BatchOptions{})
	assert.ErrorIs(t, err, ErrBatchRunning)
}

func TestLearnBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	k := &fakeKnowledge{}
	k.onLearn = func(int) { cancel() }
	l := New(Config{Knowledge: k})

	result, err := l.LearnBatch(ctx, []string{"a", "b", "c"}, BatchOptions{Interval: time.Hour})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, result.Attempted)
}

func TestContinuousLearnCyclesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	k := &fakeKnowledge{}
	k.onLearn = func(n int) {
		if n == 5 {
			cancel()
		}
	}
	l := New(Config{Knowledge: k})

	err := l.ContinuousLearn(ctx, NewListSource([]string{"a", "b"}), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "a", "b", "a"}, k.learned)
}

func TestContinuousLearnStopsWhenExhausted(t *testing.T) {
	k := &fakeKnowledge{}
	l := New(Config{Knowledge: k})

	remaining := []string{"x", "y"}
	source := SupplierFunc(func(context.Context) (string, error) {
		if len(remaining) == 0 {
			return "", ErrSourceExhausted
		}
		q := remaining[0]
		remaining = remaining[1:]
		return q, nil
	})

	require.NoError(t, l.ContinuousLearn(context.Background(), source, 0))
	assert.Equal(t, []string{"x", "y"}, k.learned)
}

func TestContinuousLearnSourceError(t *testing.T) {
	l := New(Config{Knowledge: &fakeKnowledge{}})
	source := SupplierFunc(func(context.Context) (string, error) {
		return "", errors.New("boom")
	})
	assert.Error(t, l.ContinuousLearn(context.Background(), source, 0))
}

func TestLearnFromNews(t *testing.T) {
	k := &fakeKnowledge{}
	news := &fakeNews{
		links: []string{"https://n/1", "https://n/2", "https://n/3"},
		texts: map[string]string{"https://n/1": "First article", "https://n/3": "Third article"},
	}
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	l := New(Config{Knowledge: k, News: news, Now: func() time.Time { return now }})

	added, err := l.LearnFromNews(context.Background(), "AI technology", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	require.Len(t, k.added, 2)
	assert.Equal(t, knowledge.QARecord{
		Question: "News: AI technology",
		Answer:   "First article",
		Source:   "https://n/1",
		Date:     "2024-05-01 08:00:00.000000",
	}, k.added[0])

	added, err = l.LearnFromNews(context.Background(), "AI technology", 5)
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestLearnFromNewsWithoutSource(t *testing.T) {
	l := New(Config{Knowledge: &fakeKnowledge{}})
	_, err := l.LearnFromNews(context.Background(), "q", 5)
	assert.Error(t, err)
}
