// Package pipeline turns an article batch into ranked topics per category:
// classify, group, score, summarize, then keep the best N.
package pipeline

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/newstopics/internal/classify"
	"github.com/deusflow/newstopics/internal/cluster"
	"github.com/deusflow/newstopics/internal/metrics"
	"github.com/deusflow/newstopics/internal/news"
	"github.com/deusflow/newstopics/internal/score"
	"github.com/deusflow/newstopics/internal/storage"
	"github.com/deusflow/newstopics/internal/summarize"
)

const DefaultTopN = 4

var tracer = otel.Tracer("github.com/deusflow/newstopics/internal/pipeline")

// Deps are the stages the pipeline runs. Store is optional.
type Deps struct {
	Classifier *classify.Classifier
	Grouper    *cluster.Grouper
	Scorer     *score.Scorer
	Summarizer *summarize.Summarizer
	Store      storage.Store
	Logger     *slog.Logger
}

type Options struct {
	TopN    int
	Workers int
	// Persist saves every category's topics to Store after a run.
	Persist bool
}

type Pipeline struct {
	deps Deps
	opts Options
	log  *slog.Logger
}

func New(deps Deps, opts Options) *Pipeline {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if deps.Grouper == nil {
		deps.Grouper = cluster.NewGrouper(cluster.DefaultEps, cluster.DefaultMinNeighbors)
	}
	if deps.Scorer == nil {
		deps.Scorer = score.New()
	}
	if deps.Summarizer == nil {
		deps.Summarizer = summarize.New(nil, summarize.DefaultMaxSentences)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{deps: deps, opts: opts, log: logger.With("component", "pipeline")}
}

// Run computes the top topics of every category present in articles. The
// input slice is not modified. Persistence failures are logged and never
// reported; the only error is a context that is already done.
func (p *Pipeline) Run(ctx context.Context, articles []news.Article) (map[string][]news.Topic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	runID := uuid.NewString()

	ctx, span := tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("articles", len(articles)),
	))
	defer span.End()

	batch := append([]news.Article(nil), articles...)
	if p.deps.Classifier != nil {
		p.deps.Classifier.Classify(batch)
	} else {
		for i := range batch {
			if batch[i].Category == "" {
				batch[i].Category = news.UnknownCategory
			}
		}
	}

	groups, order := news.Partition(batch)
	results := make([][]news.Topic, len(order))

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i, category := range order {
		g.Go(func() error {
			results[i] = p.runCategory(ctx, category, groups[category])
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string][]news.Topic, len(order))
	for i, category := range order {
		out[category] = results[i]
	}

	if p.opts.Persist && p.deps.Store != nil {
		p.persist(storage.WithRunID(ctx, runID), order, out)
	}

	elapsed := time.Since(start)
	metrics.Global.RecordRun(elapsed)
	p.log.Info("pipeline run complete",
		"run_id", runID,
		"articles", len(articles),
		"categories", len(order),
		"duration_ms", elapsed.Milliseconds(),
	)
	return out, nil
}

func (p *Pipeline) runCategory(ctx context.Context, category string, articles []news.Article) []news.Topic {
	_, span := tracer.Start(ctx, "pipeline.category", trace.WithAttributes(
		attribute.String("category", category),
		attribute.Int("articles", len(articles)),
	))
	defer span.End()

	clusters := p.deps.Grouper.Group(articles)
	scored := p.deps.Scorer.Score(clusters)

	topics := make([]news.Topic, 0, len(scored))
	for _, sc := range scored {
		topics = append(topics, BuildTopic(sc, p.deps.Summarizer.SummarizeCluster(sc.Cluster)))
	}
	sort.SliceStable(topics, func(i, j int) bool { return topics[i].Importance > topics[j].Importance })
	if len(topics) > p.opts.TopN {
		topics = topics[:p.opts.TopN]
	}

	metrics.RecordArticles(category, len(articles))
	metrics.RecordClusters(category, len(clusters))
	metrics.RecordTopics(category, len(topics))
	span.SetAttributes(attribute.Int("clusters", len(clusters)), attribute.Int("topics", len(topics)))
	p.log.Debug("category processed", "category", category, "articles", len(articles), "clusters", len(clusters), "topics", len(topics))
	return topics
}

func (p *Pipeline) persist(ctx context.Context, order []string, topics map[string][]news.Topic) {
	for _, category := range order {
		if err := p.deps.Store.SaveTopics(ctx, category, topics[category]); err != nil {
			metrics.RecordPersistFailure(category)
			p.log.Error("failed to save topics", "category", category, "run_id", storage.RunID(ctx), "error", err)
		}
	}
}

// BuildTopic turns a scored cluster into its presentation record.
func BuildTopic(sc news.ScoredCluster, summary string) news.Topic {
	c := sc.Cluster
	t := news.Topic{
		Summary:    summary,
		Importance: math.Round(sc.Importance*1000) / 1000,
		Sources:    c.Publishers(),
		Links:      c.Links(),
	}
	if i := c.Latest(); i >= 0 {
		t.Headline = c[i].Title
		t.Published = c[i].Published
	}
	return t
}
