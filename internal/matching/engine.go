package matching

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/spigell/talent-matcher/internal/cache"
	"github.com/spigell/talent-matcher/internal/embedding"
	"github.com/spigell/talent-matcher/internal/talent"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultScoreTTL keeps pairwise scores briefly: the scoring logic is
// tunable, unlike the content-addressed embeddings.
const DefaultScoreTTL = time.Hour

const scorePurposePrefix = "score:"

// Engine is the matching orchestrator. It is constructed once by the
// composition root and passed by reference into orchestration calls; there
// is no global instance.
type Engine struct {
	embedder embedding.Embedder
	adjuster *Adjuster
	scores   *cache.TTL[float64]
	logger   *zap.Logger

	// Decided once at construction: when the provider reports itself
	// unavailable, every pair routes to the keyword fallback for the
	// lifetime of the engine.
	useFallback bool
}

// NewEngine builds the engine. A nil or unavailable embedder routes all
// scoring through the keyword fallback; a nil score cache disables score
// memoization (fresh computation every call).
func NewEngine(embedder embedding.Embedder, adjuster *Adjuster, scores *cache.TTL[float64], logger *zap.Logger) *Engine {
	if adjuster == nil {
		adjuster = NewAdjuster(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	useFallback := embedder == nil || !embedder.Available()
	if useFallback {
		logger.Warn("embedding provider unavailable, scoring via keyword fallback")
	}

	return &Engine{
		embedder:    embedder,
		adjuster:    adjuster,
		scores:      scores,
		logger:      logger,
		useFallback: useFallback,
	}
}

// Available reports whether the semantic path is active. It is the only
// way for callers to distinguish a genuinely low match from a degraded
// engine; the score itself never encodes degradation.
func (e *Engine) Available() bool { return !e.useFallback }

// ScorePair scores one candidate against one job, returning a 0-100 score
// and its level band. Results are memoized by the composed texts, the
// model and the rules version, so rule tuning invalidates cached scores.
func (e *Engine) ScorePair(ctx context.Context, candidate *talent.CandidateRecord, job *talent.JobRecord) *talent.MatchScore {
	candidateText := ComposeCandidateText(candidate)
	jobText := ComposeJobText(job)

	key := e.scoreCacheKey(candidateText, jobText)
	if e.scores != nil {
		if score, ok := e.scores.Get(key); ok {
			return e.matchScore(candidate, job, score)
		}
	}

	base := e.baseScore(ctx, candidate, job, candidateText, jobText)
	score := e.finalize(base, candidate, job)

	if e.scores != nil {
		e.scores.Set(key, score)
	}

	return e.matchScore(candidate, job, score)
}

// RankJobsForCandidate scores every job for the candidate and returns up
// to topK results ordered by descending score, ties broken by ascending
// job identifier. Results below minScore are dropped.
func (e *Engine) RankJobsForCandidate(ctx context.Context, candidate *talent.CandidateRecord, jobs *talent.Jobs, topK int, minScore float64) *talent.MatchResults {
	results := &talent.MatchResults{}
	if jobs == nil {
		return results
	}

	for _, job := range jobs.Items {
		if job == nil {
			continue
		}
		pair := e.ScorePair(ctx, candidate, job)
		if pair.Score < minScore {
			continue
		}
		results.Items = append(results.Items, &talent.MatchScore{
			SubjectID: job.ID,
			TargetID:  pair.SubjectID,
			Score:     pair.Score,
			Level:     pair.Level,
		})
	}

	sortResults(results)

	if topK > 0 && len(results.Items) > topK {
		results.Items = results.Items[:topK]
	}
	return results
}

// RankCandidatesForJob scores every candidate for the job, keeps those at
// or above minScore, and orders them by descending score with ties broken
// by ascending candidate identifier.
func (e *Engine) RankCandidatesForJob(ctx context.Context, job *talent.JobRecord, candidates *talent.Candidates, minScore float64) *talent.MatchResults {
	results := &talent.MatchResults{}
	if candidates == nil {
		return results
	}

	for _, candidate := range candidates.Items {
		if candidate == nil {
			continue
		}
		pair := e.ScorePair(ctx, candidate, job)
		if pair.Score < minScore {
			continue
		}
		results.Items = append(results.Items, pair)
	}

	sortResults(results)
	return results
}

// BatchMatch computes the full candidate-by-job score matrix. All distinct
// composed texts are embedded once in a single batch pass before the cheap
// O(candidates x jobs) adjustment pass; candidate rows are then scored in
// parallel since pairs are independent.
func (e *Engine) BatchMatch(ctx context.Context, candidates *talent.Candidates, jobs *talent.Jobs) map[string]*talent.MatchResults {
	matrix := make(map[string]*talent.MatchResults)
	if candidates.Len() == 0 || jobs.Len() == 0 {
		return matrix
	}

	candidateTexts := make([]string, candidates.Len())
	for i, candidate := range candidates.Items {
		candidateTexts[i] = ComposeCandidateText(candidate)
	}
	jobTexts := make([]string, jobs.Len())
	for i, job := range jobs.Items {
		jobTexts[i] = ComposeJobText(job)
	}

	vectors := e.embedDistinct(ctx, candidateTexts, jobTexts)

	var mu sync.Mutex
	var group errgroup.Group
	group.SetLimit(runtime.GOMAXPROCS(0))

	for i, candidate := range candidates.Items {
		if candidate == nil {
			continue
		}
		group.Go(func() error {
			row := &talent.MatchResults{}
			for j, job := range jobs.Items {
				if job == nil {
					continue
				}
				score := e.pairScore(candidate, job, candidateTexts[i], jobTexts[j], vectors)
				row.Items = append(row.Items, &talent.MatchScore{
					SubjectID: job.ID,
					TargetID:  candidate.ID,
					Score:     score,
					Level:     talent.LevelForScore(score),
				})
			}
			sortResults(row)

			mu.Lock()
			matrix[candidate.ID] = row
			mu.Unlock()
			return nil
		})
	}

	// Workers only compute; no errors surface here.
	_ = group.Wait()

	return matrix
}

// embedDistinct deduplicates the composed texts and embeds them in one
// batch call. A nil return means the semantic path is off for this batch.
func (e *Engine) embedDistinct(ctx context.Context, candidateTexts, jobTexts []string) map[string][]float32 {
	if e.useFallback {
		return nil
	}

	distinct := make([]string, 0, len(candidateTexts)+len(jobTexts))
	seen := make(map[string]bool)
	for _, text := range append(append([]string{}, candidateTexts...), jobTexts...) {
		if seen[text] {
			continue
		}
		seen[text] = true
		distinct = append(distinct, text)
	}

	embedded, err := e.embedder.EmbedBatch(ctx, distinct)
	if err != nil {
		e.logger.Warn("batch embedding failed, falling back to keyword scoring", zap.Error(err))
		return nil
	}

	vectors := make(map[string][]float32, len(distinct))
	for i, text := range distinct {
		vectors[text] = embedded[i]
	}
	return vectors
}

// pairScore resolves one cell of the batch matrix, preferring the score
// cache, then the precomputed vectors, then the keyword fallback.
func (e *Engine) pairScore(candidate *talent.CandidateRecord, job *talent.JobRecord, candidateText, jobText string, vectors map[string][]float32) float64 {
	key := e.scoreCacheKey(candidateText, jobText)
	if e.scores != nil {
		if score, ok := e.scores.Get(key); ok {
			return score
		}
	}

	var base float64
	if vectors != nil {
		base = embedding.Similarity(vectors[candidateText], vectors[jobText]) * 100
	} else {
		base = KeywordScore(candidate, job)
	}

	score := e.finalize(base, candidate, job)

	if e.scores != nil {
		e.scores.Set(key, score)
	}
	return score
}

// baseScore produces the 0-100 base for a single pair: semantic similarity
// when the provider is usable, keyword overlap otherwise. A failed embed
// call degrades this one pair without flipping the engine-wide flag.
func (e *Engine) baseScore(ctx context.Context, candidate *talent.CandidateRecord, job *talent.JobRecord, candidateText, jobText string) float64 {
	if e.useFallback {
		return KeywordScore(candidate, job)
	}

	vectors, err := e.embedder.EmbedBatch(ctx, []string{candidateText, jobText})
	if err != nil {
		e.logger.Warn("embedding failed for pair, using keyword fallback",
			zap.String("candidate_id", candidate.ID),
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return KeywordScore(candidate, job)
	}

	return embedding.Similarity(vectors[0], vectors[1]) * 100
}

func (e *Engine) finalize(base float64, candidate *talent.CandidateRecord, job *talent.JobRecord) float64 {
	breakdown := e.adjuster.Adjust(base, candidate, job)

	e.logger.Debug("pair scored",
		zap.String("candidate_id", candidate.ID),
		zap.String("job_id", job.ID),
		zap.Float64("base", breakdown.Base),
		zap.Float64("conflict_penalty", breakdown.ConflictPenalty),
		zap.Float64("experience_bonus", breakdown.ExperienceBonus),
		zap.Float64("required_skill_bonus", breakdown.RequiredSkillBonus),
		zap.Float64("preferred_skill_bonus", breakdown.PreferredSkillBonus),
		zap.Float64("category_adjustment", breakdown.CategoryAdjustment),
		zap.Float64("position_relevance", breakdown.PositionRelevance),
		zap.Float64("final", breakdown.Final),
	)

	return breakdown.Final
}

func (e *Engine) scoreCacheKey(candidateText, jobText string) string {
	model := "none"
	if !e.useFallback {
		model = e.embedder.Model()
	}
	purpose := scorePurposePrefix + e.adjuster.Version()
	return embedding.CacheKey(purpose, model, candidateText+"\x00"+jobText)
}

func (e *Engine) matchScore(candidate *talent.CandidateRecord, job *talent.JobRecord, score float64) *talent.MatchScore {
	return &talent.MatchScore{
		SubjectID: candidate.ID,
		TargetID:  job.ID,
		Score:     score,
		Level:     talent.LevelForScore(score),
	}
}

// sortResults orders by descending score; ties resolve deterministically
// on ascending subject identifier instead of random jitter.
func sortResults(results *talent.MatchResults) {
	sort.SliceStable(results.Items, func(i, j int) bool {
		if results.Items[i].Score != results.Items[j].Score {
			return results.Items[i].Score > results.Items[j].Score
		}
		return results.Items[i].SubjectID < results.Items[j].SubjectID
	})
}
