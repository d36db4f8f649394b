// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/deft"
	"github.com/poiesic/deft/ai"
	"github.com/poiesic/deft/config"
	"github.com/poiesic/deft/core"
	"github.com/poiesic/deft/indexing"
	"github.com/poiesic/deft/pipeline"
	"github.com/poiesic/deft/retrieve"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "deft",
		Usage: "Map free-text strings to ontology identifiers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import vocabulary JSON files",
				ArgsUsage: "FILE...",
				Action:    importCommand,
				Flags:     []cli.Flag{dbFlag()},
			},
			{
				Name:   "index",
				Usage:  "Rebuild the similarity index from the imported vocabularies",
				Action: indexCommand,
				Flags: append(aiFlags(dbFlag()),
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Index only terms with this identifier prefix",
					},
					&cli.BoolFlag{
						Name:  "check",
						Usage: "Only report whether the index is out of date",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of labels embedded per request",
						Value: 64,
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Number of batches embedded at once",
						Value: 4,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N labels",
						Value: 500,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per batch",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				),
			},
			{
				Name:      "candidates",
				Usage:     "Show the candidates retrieved for phrases",
				ArgsUsage: "PHRASE...",
				Action:    candidatesCommand,
				Flags: append(aiFlags(dbFlag()),
					&cli.IntFlag{
						Name:  "amount-to-search",
						Usage: "Number of nearest neighbors to search",
						Value: retrieve.DefaultParams().AmountToSearch,
					},
					&cli.IntFlag{
						Name:  "min-candidates",
						Usage: "Candidates always kept regardless of similarity",
						Value: retrieve.DefaultParams().MinCandidates,
					},
					&cli.IntFlag{
						Name:  "max-candidates",
						Usage: "Maximum candidates returned",
						Value: retrieve.DefaultParams().MaxCandidates,
					},
					&cli.Float64Flag{
						Name:  "similarity-threshold",
						Usage: "Minimum similarity accepted without other reasons",
						Value: float64(retrieve.DefaultParams().SimilarityThreshold),
					},
					&cli.BoolFlag{
						Name:  "hybrid-search",
						Usage: "Also accept candidates sharing a word with the phrase",
						Value: retrieve.DefaultParams().HybridSearch,
					},
					&cli.BoolFlag{
						Name:  "explain",
						Usage: "Print the decision taken for every neighbor",
					},
				),
			},
			{
				Name:   "match",
				Usage:  "Run a pipeline over strings, one per line",
				Action: matchCommand,
				Flags: append(aiFlags(dbFlag()),
					&cli.StringFlag{
						Name:    "pipeline",
						Aliases: []string{"p"},
						Usage:   "Pipeline definition YAML (default: built-in HPO pipeline)",
					},
					&cli.StringFlag{
						Name:    "input",
						Aliases: []string{"i"},
						Usage:   "Input file (default: stdin)",
					},
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "Serve Prometheus metrics on this address while running",
					},
				),
			},
			{
				Name:  "runs",
				Usage: "List saved pipeline runs",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List runs",
						Action: listRunsCommand,
						Flags:  []cli.Flag{dbFlag()},
					},
					{
						Name:      "show",
						Usage:     "Show the matches of a run",
						ArgsUsage: "RUN_ID",
						Action:    showRunCommand,
						Flags:     []cli.Flag{dbFlag()},
					},
				},
			},
		},
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB workspace directory",
		Required: true,
	}
}

func aiFlags(extra ...cli.Flag) []cli.Flag {
	defaults := ai.DefaultConfig()
	return append(slices.Clone(extra),
		&cli.StringFlag{
			Name:  "host",
			Usage: "OpenAI-compatible service host URL",
			Value: defaults.EmbeddingHost,
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL (defaults to host)",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name; must match the model the index was built with",
			Value: defaults.EmbeddingModel,
		},
		&cli.StringFlag{
			Name:  "chat-model",
			Usage: "Chat model name used for disambiguation",
			Value: defaults.ChatModel,
		},
		&cli.Float64Flag{
			Name:  "requests-per-second",
			Usage: "Limit chat requests per second (0 disables)",
		},
	)
}

func aiConfigFromFlags(c *cli.Context) *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithRequestsPerSecond(c.Float64("requests-per-second")),
	}
	if host := c.String("embedding-host"); host != "" {
		opts = append(opts, ai.WithEmbeddingHost(host))
	}
	return ai.NewConfig(opts...)
}

// openWorkspace opens the workspace at --db. Commands that talk to models
// pass withAI to configure the provider from the AI flags.
func openWorkspace(c *cli.Context, withAI bool) (*deft.Workspace, error) {
	opts := []deft.WorkspaceOption{}
	if withAI {
		opts = append(opts, deft.WithAIConfig(aiConfigFromFlags(c)))
	}

	w, err := deft.NewWorkspace(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	return w, nil
}

func importCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one vocabulary file is required")
	}

	w, err := openWorkspace(c, false)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, path := range c.Args().Slice() {
		n, err := importFile(c.Context, w, path)
		if err != nil {
			return fmt.Errorf("importing %s: %w", path, err)
		}
		fmt.Fprintf(c.App.Writer, "Imported %d terms from %s\n", n, path)
	}
	return nil
}

func importFile(ctx context.Context, w *deft.Workspace, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return w.ImportVocabulary(ctx, f)
}

func indexCommand(c *cli.Context) error {
	cfg := indexing.Config{
		BatchSize:      c.Int("batch-size"),
		Concurrency:    c.Int("concurrency"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	w, err := openWorkspace(c, true)
	if err != nil {
		return err
	}
	defer w.Close()

	ix, err := w.NewIndexer(
		indexing.WithConfig(cfg),
		indexing.WithPrefix(c.String("prefix")),
		indexing.WithProgress(c.App.ErrWriter),
	)
	if err != nil {
		return err
	}

	if c.Bool("check") {
		stale, err := ix.Stale(c.Context)
		if err != nil {
			return err
		}
		if stale {
			fmt.Fprintln(c.App.Writer, "Index is out of date")
		} else {
			fmt.Fprintln(c.App.Writer, "Index is up to date")
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	rows, err := ix.Run(ctx)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Indexed %d labels and synonyms\n", rows)
	return nil
}

func candidatesCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one phrase is required")
	}

	params := retrieve.Params{
		AmountToSearch:      c.Int("amount-to-search"),
		MinCandidates:       c.Int("min-candidates"),
		MaxCandidates:       c.Int("max-candidates"),
		SimilarityThreshold: float32(c.Float64("similarity-threshold")),
		HybridSearch:        c.Bool("hybrid-search"),
	}
	if err := params.Validate(); err != nil {
		return err
	}

	w, err := openWorkspace(c, true)
	if err != nil {
		return err
	}
	defer w.Close()

	retriever, err := w.NewRetriever(c.Context, params)
	if err != nil {
		return err
	}

	var monitor retrieve.Monitor
	if c.Bool("explain") {
		monitor = &explainMonitor{w: c.App.ErrWriter}
	}

	for _, phrase := range c.Args().Slice() {
		candidates, err := retriever.CandidatesWithMonitor(c.Context, phrase, monitor)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(candidates, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s\n%s\n", phrase, out)
	}
	return nil
}

// explainMonitor prints every retrieval decision.
type explainMonitor struct {
	w io.Writer
}

var _ retrieve.Monitor = (*explainMonitor)(nil)

func (m *explainMonitor) Start(phrase string) {
	fmt.Fprintf(m.w, "Retrieving candidates for %q\n", phrase)
}

func (m *explainMonitor) AfterSearch(neighbors []core.Neighbor) {
	fmt.Fprintf(m.w, "  %d neighbors\n", len(neighbors))
}

func (m *explainMonitor) Decided(candidate core.Candidate, decision retrieve.Decision) {
	mark := "-"
	if decision.Accepted() {
		mark = "+"
	}
	fmt.Fprintf(m.w, "  %s %-12s %.4f %-16s %s\n", mark, candidate.Id, candidate.Score, decision, candidate.Description)
}

func (m *explainMonitor) Finish(candidates []core.Candidate) {
	fmt.Fprintf(m.w, "  %d candidates\n", len(candidates))
}

func matchCommand(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("pipeline"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
	}

	texts, err := readInput(c)
	if err != nil {
		return err
	}

	w, err := openWorkspace(c, true)
	if err != nil {
		return err
	}
	defer w.Close()

	reporters := pipeline.MultiReporter{pipeline.NewLogReporter(slog.Default(), cfg.SampleSize)}
	if addr := c.String("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		reporters = append(reporters, pipeline.NewMetricsReporter(reg))

		server := &http.Server{Addr: addr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "addr", addr, "err", err)
			}
		}()
		defer server.Close()
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	run, _, err := w.RunPipeline(ctx, cfg, texts, pipeline.WithReporter(reporters))
	if run != nil {
		writeRun(c.App.Writer, run)
	}
	return err
}

func readInput(c *cli.Context) ([]string, error) {
	var r io.Reader = c.App.Reader
	if path := c.String("input"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var texts []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			texts = append(texts, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return texts, nil
}

// writeRun prints one tab-separated line per string: the string and its
// identifier, or an empty identifier when unmatched.
func writeRun(w io.Writer, run *core.Run) {
	for _, text := range slices.Sorted(maps.Keys(run.Matched)) {
		fmt.Fprintf(w, "%s\t%s\n", text, run.Matched[text])
	}
	for _, text := range run.Unmatched {
		fmt.Fprintf(w, "%s\t\n", text)
	}
}

func listRunsCommand(c *cli.Context) error {
	w, err := openWorkspace(c, false)
	if err != nil {
		return err
	}
	defer w.Close()

	runs, err := w.Runs().ListRuns(c.Context)
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\tmatched=%d\tunmatched=%d\n",
			run.Id, run.Name, run.StartedAt.Format(time.RFC3339), len(run.Matched), len(run.Unmatched))
	}
	return nil
}

func showRunCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one run id is required")
	}

	w, err := openWorkspace(c, false)
	if err != nil {
		return err
	}
	defer w.Close()

	run, err := w.Runs().LoadRun(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	for i, stage := range run.Stages {
		fmt.Fprintf(c.App.Writer, "# stage %d: %s / %s resolved=%d failed=%d remaining=%d\n",
			i, stage.Matcher, stage.Resolver, stage.Resolved, stage.Failed, stage.Remaining)
	}
	writeRun(c.App.Writer, run)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}
