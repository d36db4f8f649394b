package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/poiesic/deft/core"
	"github.com/poiesic/deft/resolver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	m := &tableMatcher{name: "table", table: map[string][]core.Identifier{"a": {"X:1"}}}
	p, err := New("logged", []Stage{{Matcher: m, Resolver: resolver.ChooseFirst{}}}, []string{"a", "b"},
		WithReporter(NewLogReporter(logger, 3)))
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.NoError(t, err)
	_, err = p.Next(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Applying the deft pipeline to logged with matchers and resolvers:")
	assert.Contains(t, out, "Applying matcher table and resolver ChooseFirst to 2 unmatched strings.")
	assert.Contains(t, out, "Only 1 string was matched")
	assert.Contains(t, out, "resolved=1")
	assert.Contains(t, out, "remaining=1")
	assert.Contains(t, out, noMoreStages)
}

func TestMetricsReporter(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetricsReporter(reg)

	metrics.Start("conditions", nil, 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.unresolved.WithLabelValues("conditions")))

	metrics.StageFinished(&StageReport{
		Pipeline:   "conditions",
		Index:      0,
		Matcher:    "ExactMatcher(HP)",
		Resolved:   []Resolution{{Text: "Asthma", Id: "HP:0002099"}},
		Unresolved: []string{"ASD", "Unknown"},
		Failed:     1,
		Duration:   250 * time.Millisecond,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.resolved.WithLabelValues("0", "ExactMatcher(HP)")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failed.WithLabelValues("0", "ExactMatcher(HP)")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.unresolved.WithLabelValues("conditions")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.stageDuration))

	count, err := testutil.GatherAndCount(reg, "deft_resolved_total", "deft_unresolved")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMultiReporter(t *testing.T) {
	first := &recordingReporter{}
	second := &recordingReporter{}

	m := &tableMatcher{name: "table", table: map[string][]core.Identifier{"a": {"X:1"}}}
	p, err := New("multi", []Stage{{Matcher: m, Resolver: resolver.ChooseFirst{}}}, []string{"a"},
		WithReporter(MultiReporter{first, second}))
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.NoError(t, err)
	_, err = p.Next(context.Background())
	require.NoError(t, err)

	for _, r := range []*recordingReporter{first, second} {
		assert.Equal(t, 1, r.starts)
		assert.Len(t, r.finished, 1)
		assert.Equal(t, 1, r.exhausted)
	}
}
