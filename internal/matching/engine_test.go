package matching

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spigell/talent-matcher/internal/cache"
	"github.com/spigell/talent-matcher/internal/embedding"
	"github.com/spigell/talent-matcher/internal/talent"

	"go.uber.org/zap"
)

// stubEmbedder returns the same unit vector for every text, so the
// semantic base score is always 100 and tests can reason about the
// rule adjustments alone.
type stubEmbedder struct {
	mu    sync.Mutex
	calls int

	down bool // Available reports false
	fail bool // Available reports true but every call errors
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.down {
		return nil, embedding.ErrUnavailable
	}
	if s.fail {
		return nil, errors.New("transient provider failure")
	}

	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func (s *stubEmbedder) batchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubEmbedder) Dimensions() int { return 3 }

func (s *stubEmbedder) Model() string { return "stub-model" }

func (s *stubEmbedder) Available() bool { return !s.down }

func newScoreCache(t *testing.T) *cache.TTL[float64] {
	t.Helper()

	scores := cache.NewTTL[float64](time.Minute, time.Minute)
	t.Cleanup(scores.Close)
	return scores
}

func TestScorePairSemanticPath(t *testing.T) {
	t.Parallel()

	stub := &stubEmbedder{}
	engine := NewEngine(stub, nil, nil, zap.NewNop())

	if !engine.Available() {
		t.Fatal("expected engine to report the semantic path as active")
	}

	pair := engine.ScorePair(context.Background(), &talent.CandidateRecord{ID: "cand-1"}, &talent.JobRecord{ID: "job-1", Title: "Widget Trainer"})

	if pair.SubjectID != "cand-1" || pair.TargetID != "job-1" {
		t.Fatalf("unexpected pair identifiers: %+v", pair)
	}
	if pair.Score != 100 {
		t.Fatalf("expected identical vectors to score 100, got %v", pair.Score)
	}
	if pair.Level != talent.LevelHigh {
		t.Fatalf("expected high level, got %s", pair.Level)
	}
}

func TestScorePairMemoizesByComposedTexts(t *testing.T) {
	t.Parallel()

	stub := &stubEmbedder{}
	engine := NewEngine(stub, nil, newScoreCache(t), zap.NewNop())

	candidate := &talent.CandidateRecord{ID: "cand-1", Skills: []string{"Go"}}
	job := &talent.JobRecord{ID: "job-1", Title: "Widget Trainer"}

	first := engine.ScorePair(context.Background(), candidate, job)
	second := engine.ScorePair(context.Background(), candidate, job)

	if stub.batchCalls() != 1 {
		t.Fatalf("expected a single provider call, got %d", stub.batchCalls())
	}
	if first.Score != second.Score {
		t.Fatalf("expected identical scores, got %v and %v", first.Score, second.Score)
	}
}

func TestScorePairUnavailableProviderUsesFallback(t *testing.T) {
	t.Parallel()

	stub := &stubEmbedder{down: true}
	engine := NewEngine(stub, nil, nil, zap.NewNop())

	if engine.Available() {
		t.Fatal("expected engine to report degraded scoring")
	}

	pair := engine.ScorePair(context.Background(),
		&talent.CandidateRecord{ID: "cand-1", Skills: []string{"Python"}},
		&talent.JobRecord{ID: "job-1", Title: "Python Developer"},
	)

	if pair.Score != 50 {
		t.Fatalf("expected keyword score 50, got %v", pair.Score)
	}
	if pair.Level != talent.LevelMedium {
		t.Fatalf("expected medium level, got %s", pair.Level)
	}
	if stub.batchCalls() != 0 {
		t.Fatalf("expected no provider calls when unavailable, got %d", stub.batchCalls())
	}
}

func TestScorePairDegradesSinglePairOnProviderError(t *testing.T) {
	t.Parallel()

	stub := &stubEmbedder{fail: true}
	engine := NewEngine(stub, nil, nil, zap.NewNop())

	if !engine.Available() {
		t.Fatal("expected construction-time availability to stay true")
	}

	pair := engine.ScorePair(context.Background(),
		&talent.CandidateRecord{ID: "cand-1", Skills: []string{"Python"}},
		&talent.JobRecord{ID: "job-1", Title: "Python Developer"},
	)

	if pair.Score != 50 {
		t.Fatalf("expected keyword fallback score 50, got %v", pair.Score)
	}
	if stub.batchCalls() != 1 {
		t.Fatalf("expected one failed provider call, got %d", stub.batchCalls())
	}
}

func TestRankJobsForCandidateOrdersAndLimits(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&stubEmbedder{down: true}, nil, nil, zap.NewNop())

	candidate := &talent.CandidateRecord{ID: "cand-1", Skills: []string{"Python"}}
	jobs := &talent.Jobs{Items: []*talent.JobRecord{
		{ID: "job-b", Title: "Python Developer"},
		{ID: "job-a", Title: "Python Developer"},
		{ID: "job-c", Title: "Knitting Instructor"},
		nil,
	}}

	results := engine.RankJobsForCandidate(context.Background(), candidate, jobs, 0, 0)

	if results.Len() != 3 {
		t.Fatalf("expected 3 results, got %d", results.Len())
	}

	// Jobs are the ranked subjects; the candidate is the common target.
	for _, item := range results.Items {
		if item.TargetID != "cand-1" {
			t.Fatalf("expected candidate as target of %s, got %q", item.SubjectID, item.TargetID)
		}
	}

	// Equal scores break ties on ascending job id.
	if results.Items[0].SubjectID != "job-a" || results.Items[1].SubjectID != "job-b" {
		t.Fatalf("unexpected tie-break order: %s, %s", results.Items[0].SubjectID, results.Items[1].SubjectID)
	}
	if results.Items[2].SubjectID != "job-c" {
		t.Fatalf("expected job-c last, got %s", results.Items[2].SubjectID)
	}
	if results.Items[0].Score < results.Items[2].Score {
		t.Fatal("expected descending score order")
	}

	limited := engine.RankJobsForCandidate(context.Background(), candidate, jobs, 2, 0)
	if limited.Len() != 2 {
		t.Fatalf("expected topK to cap results at 2, got %d", limited.Len())
	}

	filtered := engine.RankJobsForCandidate(context.Background(), candidate, jobs, 0, 20)
	for _, item := range filtered.Items {
		if item.Score < 20 {
			t.Fatalf("expected scores at or above 20, got %v", item.Score)
		}
	}
	if filtered.Len() != 2 {
		t.Fatalf("expected min score to drop the weak match, got %d results", filtered.Len())
	}
}

func TestRankCandidatesForJob(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&stubEmbedder{down: true}, nil, nil, zap.NewNop())

	job := &talent.JobRecord{ID: "job-1", Title: "Python Developer"}
	candidates := &talent.Candidates{Items: []*talent.CandidateRecord{
		{ID: "cand-weak", Skills: []string{"COBOL"}},
		{ID: "cand-strong", Skills: []string{"Python"}},
		nil,
	}}

	results := engine.RankCandidatesForJob(context.Background(), job, candidates, 0)

	if results.Len() != 2 {
		t.Fatalf("expected 2 results, got %d", results.Len())
	}
	if results.Items[0].SubjectID != "cand-strong" {
		t.Fatalf("expected the stronger candidate first, got %s", results.Items[0].SubjectID)
	}
	if results.Items[0].TargetID != "job-1" {
		t.Fatalf("expected the job as target, got %s", results.Items[0].TargetID)
	}
}

func TestBatchMatchComputesFullMatrix(t *testing.T) {
	t.Parallel()

	stub := &stubEmbedder{}
	engine := NewEngine(stub, nil, nil, zap.NewNop())

	candidates := &talent.Candidates{Items: []*talent.CandidateRecord{
		{ID: "cand-1", CurrentCompany: "Acme"},
		{ID: "cand-2", CurrentCompany: "Globex"},
	}}
	jobs := &talent.Jobs{Items: []*talent.JobRecord{
		{ID: "job-1", Title: "Widget Trainer"},
		{ID: "job-2", Title: "Gadget Trainer"},
	}}

	matrix := engine.BatchMatch(context.Background(), candidates, jobs)

	if len(matrix) != 2 {
		t.Fatalf("expected a row per candidate, got %d", len(matrix))
	}
	if stub.batchCalls() != 1 {
		t.Fatalf("expected all distinct texts embedded in one call, got %d", stub.batchCalls())
	}

	for _, id := range []string{"cand-1", "cand-2"} {
		row, ok := matrix[id]
		if !ok {
			t.Fatalf("missing row for %s", id)
		}
		if row.Len() != jobs.Len() {
			t.Fatalf("expected %d cells for %s, got %d", jobs.Len(), id, row.Len())
		}
		// Identical vectors everywhere, so rows order on ascending job id.
		if row.Items[0].SubjectID != "job-1" || row.Items[1].SubjectID != "job-2" {
			t.Fatalf("unexpected row order for %s: %s, %s", id, row.Items[0].SubjectID, row.Items[1].SubjectID)
		}
		for _, item := range row.Items {
			if item.TargetID != id {
				t.Fatalf("expected target %s, got %s", id, item.TargetID)
			}
			if item.Score != 100 {
				t.Fatalf("expected score 100, got %v", item.Score)
			}
		}
	}
}

func TestBatchMatchFallsBackWhenBatchEmbeddingFails(t *testing.T) {
	t.Parallel()

	stub := &stubEmbedder{fail: true}
	engine := NewEngine(stub, nil, nil, zap.NewNop())

	candidates := &talent.Candidates{Items: []*talent.CandidateRecord{
		{ID: "cand-1", Skills: []string{"Python"}},
	}}
	jobs := &talent.Jobs{Items: []*talent.JobRecord{
		{ID: "job-1", Title: "Python Developer"},
		{ID: "job-2", Title: "Knitting Instructor"},
	}}

	matrix := engine.BatchMatch(context.Background(), candidates, jobs)

	row, ok := matrix["cand-1"]
	if !ok {
		t.Fatal("missing row for cand-1")
	}
	if row.Len() != 2 {
		t.Fatalf("expected 2 cells, got %d", row.Len())
	}
	if row.Items[0].SubjectID != "job-1" || row.Items[0].Score != 50 {
		t.Fatalf("expected keyword score 50 for job-1, got %+v", row.Items[0])
	}
	if row.Items[1].Score != 10 {
		t.Fatalf("expected baseline keyword score for job-2, got %v", row.Items[1].Score)
	}
	if stub.batchCalls() != 1 {
		t.Fatalf("expected a single failed embedding attempt, got %d", stub.batchCalls())
	}
}

func TestBatchMatchSkipsNilRecords(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&stubEmbedder{}, nil, nil, zap.NewNop())

	candidates := &talent.Candidates{Items: []*talent.CandidateRecord{
		{ID: "cand-1", CurrentCompany: "Acme"},
		nil,
	}}
	jobs := &talent.Jobs{Items: []*talent.JobRecord{
		nil,
		{ID: "job-1", Title: "Widget Trainer"},
	}}

	matrix := engine.BatchMatch(context.Background(), candidates, jobs)

	if len(matrix) != 1 {
		t.Fatalf("expected a row only for the real candidate, got %d", len(matrix))
	}

	row, ok := matrix["cand-1"]
	if !ok {
		t.Fatal("missing row for cand-1")
	}
	if row.Len() != 1 {
		t.Fatalf("expected the nil job skipped, got %d cells", row.Len())
	}
	if row.Items[0].SubjectID != "job-1" || row.Items[0].TargetID != "cand-1" {
		t.Fatalf("unexpected cell identifiers: %+v", row.Items[0])
	}
}

func TestBatchMatchEmptyInputs(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&stubEmbedder{}, nil, nil, zap.NewNop())

	matrix := engine.BatchMatch(context.Background(), &talent.Candidates{}, &talent.Jobs{})
	if len(matrix) != 0 {
		t.Fatalf("expected empty matrix, got %d rows", len(matrix))
	}
}

func TestFallbackStillReflectsConflictPenalties(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&stubEmbedder{down: true}, nil, nil, zap.NewNop())

	candidate := &talent.CandidateRecord{
		ID:              "cand-1",
		Skills:          []string{"React", "CSS", "HTML"},
		CurrentPosition: "Frontend Developer",
	}

	devops := engine.ScorePair(context.Background(), candidate, &talent.JobRecord{ID: "job-devops", Title: "DevOps Engineer"})
	frontend := engine.ScorePair(context.Background(), candidate, &talent.JobRecord{ID: "job-frontend", Title: "Frontend Developer"})

	for _, pair := range []*talent.MatchScore{devops, frontend} {
		if pair.Score < 0 || pair.Score > 100 {
			t.Fatalf("expected score within [0,100], got %v", pair.Score)
		}
	}
	if devops.Score >= frontend.Score {
		t.Fatalf("expected the conflicting title to score lower: devops=%v frontend=%v", devops.Score, frontend.Score)
	}
}

func TestScoreBackendCandidateAgainstBackendJob(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&stubEmbedder{down: true}, nil, nil, zap.NewNop())

	years := 6.0
	candidate := &talent.CandidateRecord{
		ID:              "cand-1",
		Skills:          []string{"python", "django"},
		ExperienceYears: &years,
		CurrentPosition: "Backend Developer",
	}

	aligned := engine.ScorePair(context.Background(), candidate, &talent.JobRecord{
		ID:              "job-backend",
		Title:           "Senior Backend Engineer",
		ExperienceLevel: "senior",
		Requirements:    "Required: Python, Django. Preferred: Docker.",
	})

	if aligned.Level != talent.LevelMedium && aligned.Level != talent.LevelHigh {
		t.Fatalf("expected at least a medium match, got %v (%s)", aligned.Score, aligned.Level)
	}

	misaligned := engine.ScorePair(context.Background(), candidate, &talent.JobRecord{
		ID:           "job-frontend",
		Title:        "Frontend React Developer",
		Requirements: "React, CSS",
	})

	if misaligned.Score >= aligned.Score {
		t.Fatalf("expected the opposite-category job to score materially lower: %v vs %v", misaligned.Score, aligned.Score)
	}
	if misaligned.Level != talent.LevelLow {
		t.Fatalf("expected a low match for the frontend job, got %v (%s)", misaligned.Score, misaligned.Level)
	}
}

func TestRankCandidatesForJobMinScoreKeepsOnlyQualified(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&stubEmbedder{}, nil, nil, zap.NewNop())

	job := &talent.JobRecord{ID: "job-1", Title: "Backend Developer"}
	candidates := &talent.Candidates{Items: []*talent.CandidateRecord{
		{ID: "cand-strong"},
		{
			ID:              "cand-weak",
			Skills:          []string{"React", "CSS", "HTML"},
			CurrentPosition: "Frontend Developer",
		},
	}}

	results := engine.RankCandidatesForJob(context.Background(), job, candidates, 80)

	if results.Len() != 1 {
		t.Fatalf("expected exactly one qualified candidate, got %d", results.Len())
	}
	if results.Items[0].SubjectID != "cand-strong" {
		t.Fatalf("expected cand-strong, got %s", results.Items[0].SubjectID)
	}
}

func TestScorePairSharesCacheWithBatchMatch(t *testing.T) {
	t.Parallel()

	stub := &stubEmbedder{}
	engine := NewEngine(stub, nil, newScoreCache(t), zap.NewNop())

	candidate := &talent.CandidateRecord{ID: "cand-1", CurrentCompany: "Acme"}
	job := &talent.JobRecord{ID: "job-1", Title: "Widget Trainer"}

	pair := engine.ScorePair(context.Background(), candidate, job)

	matrix := engine.BatchMatch(context.Background(),
		&talent.Candidates{Items: []*talent.CandidateRecord{candidate}},
		&talent.Jobs{Items: []*talent.JobRecord{job}},
	)

	if got := matrix["cand-1"].Items[0].Score; got != pair.Score {
		t.Fatalf("expected the cached pair score %v, got %v", pair.Score, got)
	}
}
