package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/deft/core"
	"github.com/poiesic/deft/matcher"
	"github.com/poiesic/deft/resolver"
	"github.com/poiesic/deft/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// tableMatcher answers from a fixed table and records the strings it was asked about.
type tableMatcher struct {
	name  string
	table map[string][]core.Identifier
	errs  map[string]error

	mu   sync.Mutex
	seen []string
}

func (m *tableMatcher) Name() string { return m.name }

func (m *tableMatcher) Match(ctx context.Context, text string) ([]core.Identifier, error) {
	m.mu.Lock()
	m.seen = append(m.seen, text)
	m.mu.Unlock()

	if err, ok := m.errs[text]; ok {
		return nil, err
	}
	ids := slices.Clone(m.table[text])
	if ids == nil {
		ids = []core.Identifier{}
	}
	return ids, nil
}

func (m *tableMatcher) seenSorted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.seen)
	slices.Sort(out)
	return out
}

// recordingReporter keeps every call for assertions.
type recordingReporter struct {
	starts    int
	started   []int
	finished  []*StageReport
	exhausted int
}

func (r *recordingReporter) Start(_ string, _ []Stage, _ int) { r.starts++ }
func (r *recordingReporter) StageStarted(_ string, index int, _ Stage, _ int) {
	r.started = append(r.started, index)
}
func (r *recordingReporter) StageFinished(report *StageReport) { r.finished = append(r.finished, report) }
func (r *recordingReporter) Exhausted(_ string) { r.exhausted++ }

func vocabularyStages(t *testing.T) []Stage {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	err = repos.Vocabulary.AddTerms(context.Background(),
		&core.Term{Id: "HP:0002099", Label: "Asthma"},
		&core.Term{Id: "HP:0000729", Label: "Autistic behavior", Synonyms: []core.Synonym{{Name: "ASD"}}},
		&core.Term{Id: "HP:0001631", Label: "Atrial septal defect", Synonyms: []core.Synonym{{Name: "ASD"}}},
	)
	require.NoError(t, err)

	exact, err := matcher.NewExactMatcher(repos.Vocabulary, "HP")
	require.NoError(t, err)
	synonyms, err := matcher.NewSynonymMatcher(repos.Vocabulary, "HP")
	require.NoError(t, err)

	return []Stage{
		{Matcher: exact, Resolver: resolver.ChooseFirst{}},
		{Matcher: synonyms, Resolver: resolver.ChooseFirst{}},
	}
}

func TestPipeline_ExactThenSynonym(t *testing.T) {
	reporter := &recordingReporter{}
	p, err := New("conditions", vocabularyStages(t), []string{"Asthma", "ASD", "Unknown"}, WithReporter(reporter))
	require.NoError(t, err)
	defer p.Release()

	reports, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)

	matched := p.Matched()
	assert.Len(t, matched, 2)
	assert.Equal(t, core.Identifier("HP:0002099"), matched["Asthma"])
	assert.Contains(t, []core.Identifier{"HP:0000729", "HP:0001631"}, matched["ASD"])
	assert.Equal(t, []string{"Unknown"}, p.Unmatched())
	assert.True(t, p.Exhausted())

	first := reports[0]
	assert.Equal(t, "ExactMatcher(HP)", first.Matcher)
	assert.Equal(t, "ChooseFirst", first.Resolver)
	assert.Equal(t, 3, first.Input)
	assert.Equal(t, []Resolution{{Text: "Asthma", Id: "HP:0002099"}}, first.Resolved)
	assert.Equal(t, []string{"ASD", "Unknown"}, first.Unresolved)
	assert.Equal(t, "SynonymMatcher(HP)", first.NextMatcher)

	second := reports[1]
	assert.Equal(t, 2, second.Input)
	assert.Len(t, second.Resolved, 1)
	assert.Equal(t, 1, second.Remaining())
	assert.Empty(t, second.NextMatcher)

	assert.Equal(t, 1, reporter.starts)
	assert.Equal(t, []int{0, 1}, reporter.started)
	assert.Equal(t, reports, reporter.finished)
}

func TestPipeline_ExhaustedIsNoop(t *testing.T) {
	reporter := &recordingReporter{}
	p, err := New("conditions", vocabularyStages(t), []string{"Asthma", "ASD", "Unknown"}, WithReporter(reporter))
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.NoError(t, err)

	matched := p.Matched()
	unmatched := p.Unmatched()
	summary := p.Summary()

	for range 3 {
		report, err := p.Next(context.Background())
		require.NoError(t, err)
		assert.Nil(t, report)
	}

	assert.Equal(t, matched, p.Matched())
	assert.Equal(t, unmatched, p.Unmatched())
	assert.Equal(t, summary, p.Summary())
	assert.Equal(t, 2, p.NextStage())
	assert.Equal(t, 3, reporter.exhausted)
	assert.Len(t, reporter.finished, 2)

	reports, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestPipeline_NoStages(t *testing.T) {
	p, err := New("empty", nil, []string{"Asthma"})
	require.NoError(t, err)

	assert.True(t, p.Exhausted())
	report, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Equal(t, []string{"Asthma"}, p.Unmatched())
}

func TestPipeline_StagesSeeOnlyUnresolvedStrings(t *testing.T) {
	first := &tableMatcher{name: "first", table: map[string][]core.Identifier{"a": {"X:1"}, "b": {}}}
	second := &tableMatcher{name: "second", table: map[string][]core.Identifier{"a": {"X:2"}, "b": {"X:3"}}}
	third := &tableMatcher{name: "third", table: map[string][]core.Identifier{"a": {"X:4"}, "b": {"X:5"}, "c": {"X:6"}}}

	p, err := New("snapshot", []Stage{
		{Matcher: first, Resolver: resolver.ChooseFirst{}},
		{Matcher: second, Resolver: resolver.ChooseFirst{}},
		{Matcher: third, Resolver: resolver.ChooseFirst{}},
	}, []string{"a", "b", "c", "a"})
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, first.seenSorted(), "duplicates collapse")
	assert.Equal(t, []string{"b", "c"}, second.seenSorted())
	assert.Equal(t, []string{"c"}, third.seenSorted())
	assert.Equal(t, map[string]core.Identifier{"a": "X:1", "b": "X:3", "c": "X:6"}, p.Matched())
	assert.Empty(t, p.Unmatched())
}

func TestPipeline_DataIntegrityAbortsStage(t *testing.T) {
	broken := &tableMatcher{
		name:  "broken",
		table: map[string][]core.Identifier{"good": {"X:1"}},
		errs:  map[string]error{"bad": fmt.Errorf("%w: row 9 has no metadata", core.ErrDataIntegrity)},
	}
	reporter := &recordingReporter{}

	for _, poolSize := range []int{1, 4} {
		t.Run(fmt.Sprintf("pool size %d", poolSize), func(t *testing.T) {
			p, err := New("abort", []Stage{{Matcher: broken, Resolver: resolver.ChooseFirst{}}},
				[]string{"good", "bad", "other"}, WithPoolSize(poolSize), WithReporter(reporter))
			require.NoError(t, err)
			defer p.Release()

			report, err := p.Next(context.Background())
			assert.Nil(t, report)
			assert.ErrorIs(t, err, ErrStageAborted)
			assert.ErrorIs(t, err, core.ErrDataIntegrity)

			assert.Empty(t, p.Matched())
			assert.Equal(t, []string{"bad", "good", "other"}, p.Unmatched())
			assert.Equal(t, 0, p.NextStage())
			assert.False(t, p.Exhausted())
			assert.Empty(t, p.Summary().Stages)
		})
	}
	assert.Empty(t, reporter.finished)
}

func TestPipeline_TransientFailureLeavesStringUnresolved(t *testing.T) {
	flaky := &tableMatcher{
		name:  "flaky",
		table: map[string][]core.Identifier{"good": {"X:1"}},
		errs:  map[string]error{"flaky": errors.New("connection refused")},
	}
	p, err := New("transient", []Stage{{Matcher: flaky, Resolver: resolver.ChooseFirst{}}}, []string{"good", "flaky"})
	require.NoError(t, err)

	report, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []Resolution{{Text: "good", Id: "X:1"}}, report.Resolved)
	assert.Equal(t, []string{"flaky"}, p.Unmatched())
	assert.Equal(t, []core.StageSummary{{Matcher: "flaky", Resolver: "ChooseFirst", Resolved: 1, Failed: 1, Remaining: 1}}, p.Summary().Stages)
}

func TestPipeline_CanceledContextCommitsNothing(t *testing.T) {
	m := &tableMatcher{name: "m", table: map[string][]core.Identifier{"a": {"X:1"}}}
	p, err := New("canceled", []Stage{{Matcher: m, Resolver: resolver.ChooseFirst{}}}, []string{"a"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.Matched())
	assert.Equal(t, 0, p.NextStage())
}

func TestPipeline_PoolMatchesSequential(t *testing.T) {
	table := map[string][]core.Identifier{}
	texts := make([]string, 200)
	for i := range texts {
		texts[i] = fmt.Sprintf("text %d", i)
		if i%3 == 0 {
			table[texts[i]] = []core.Identifier{core.Identifier(fmt.Sprintf("X:%d", i))}
		}
	}

	run := func(opts ...Option) *Pipeline {
		m := &tableMatcher{name: "table", table: table}
		p, err := New("pool", []Stage{{Matcher: m, Resolver: resolver.ChooseFirst{}}}, texts, opts...)
		require.NoError(t, err)
		t.Cleanup(p.Release)
		_, err = p.Run(context.Background())
		require.NoError(t, err)
		return p
	}

	sequential := run()
	parallel := run(WithPoolSize(8))
	assert.Len(t, parallel.Matched(), 67)
	assert.Equal(t, sequential.Matched(), parallel.Matched())
	assert.Equal(t, sequential.Unmatched(), parallel.Unmatched())
}

func TestPipeline_Summary(t *testing.T) {
	p, err := New("conditions", vocabularyStages(t), []string{"Asthma", "ASD", "Unknown"})
	require.NoError(t, err)

	before := p.Summary()
	assert.True(t, before.StartedAt.IsZero())

	_, err = p.Run(context.Background())
	require.NoError(t, err)

	run := p.Summary()
	_, err = uuid.Parse(run.Id)
	assert.NoError(t, err)
	assert.Equal(t, before.Id, run.Id)
	assert.Equal(t, "conditions", run.Name)
	assert.False(t, run.StartedAt.IsZero())
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
	assert.Equal(t, []string{"Unknown"}, run.Unmatched)
	assert.Equal(t, []core.StageSummary{
		{Matcher: "ExactMatcher(HP)", Resolver: "ChooseFirst", Resolved: 1, Remaining: 2},
		{Matcher: "SynonymMatcher(HP)", Resolver: "ChooseFirst", Resolved: 1, Remaining: 1},
	}, run.Stages)

	// Summaries are copies.
	run.Matched["Unknown"] = "HP:1"
	assert.NotContains(t, p.Matched(), "Unknown")
}

func TestNew_Errors(t *testing.T) {
	m := &tableMatcher{name: "m"}

	_, err := New("x", []Stage{{Matcher: m}}, nil)
	assert.ErrorIs(t, err, ErrInvalidStage)

	_, err = New("x", []Stage{{Resolver: resolver.ChooseFirst{}}}, nil)
	assert.ErrorIs(t, err, ErrInvalidStage)

	_, err = New("x", nil, nil, WithPoolSize(0))
	assert.ErrorIs(t, err, ErrInvalidOption)

	p, err := New("x", nil, nil, WithLogger(nil), WithReporter(nil))
	require.NoError(t, err)
	assert.Equal(t, "x", p.Name())
}

func TestPipeline_PartitionProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		pool := []string{"Asthma", "ASD", "Seizure", "hearing loss", "unknown", "x", "y", "z"}
		texts := rapid.SliceOfN(rapid.SampledFrom(pool), 0, 12).Draw(rt, "texts")
		ids := rapid.SampledFrom([]core.Identifier{"HP:1", "HP:2", "HP:3"})

		stageCount := rapid.IntRange(0, 4).Draw(rt, "stages")
		stages := make([]Stage, stageCount)
		for i := range stages {
			table := map[string][]core.Identifier{}
			errs := map[string]error{}
			for _, text := range pool {
				switch rapid.IntRange(0, 3).Draw(rt, "answer") {
				case 0:
					table[text] = []core.Identifier{ids.Draw(rt, "id")}
				case 1:
					table[text] = []core.Identifier{ids.Draw(rt, "id"), ids.Draw(rt, "id")}
				case 2:
					errs[text] = errors.New("oracle unavailable")
				}
			}
			var r resolver.Resolver = resolver.ChooseFirst{}
			if rapid.Bool().Draw(rt, "unique") {
				r = resolver.Unique{}
			}
			stages[i] = Stage{Matcher: &tableMatcher{name: fmt.Sprintf("m%d", i), table: table, errs: errs}, Resolver: r}
		}

		p, err := New("property", stages, texts, WithPoolSize(rapid.IntRange(1, 4).Draw(rt, "workers")))
		require.NoError(rt, err)
		defer p.Release()

		var previous map[string]core.Identifier
		for !p.Exhausted() {
			_, err := p.Next(context.Background())
			require.NoError(rt, err)

			// The match record is append-only.
			current := p.Matched()
			for text, id := range previous {
				assert.Equal(rt, id, current[text])
			}
			previous = current
		}

		input := map[string]bool{}
		for _, text := range texts {
			input[text] = true
		}
		matched := p.Matched()
		unmatched := p.Unmatched()
		assert.Equal(rt, len(input), len(matched)+len(unmatched))
		for _, text := range unmatched {
			assert.True(rt, input[text])
			assert.NotContains(rt, matched, text)
		}
		for text := range matched {
			assert.True(rt, input[text])
		}
	})
}
