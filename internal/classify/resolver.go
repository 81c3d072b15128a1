// Package classify orchestrates the classification pipeline: local
// keyword/brand matching first, then a fallback completion call whose
// answer is extracted, validated against the taxonomy, and canonicalized.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/yfzhou/taxon/internal/cache"
	"github.com/yfzhou/taxon/internal/extract"
	"github.com/yfzhou/taxon/internal/llm"
	"github.com/yfzhou/taxon/internal/match"
	"github.com/yfzhou/taxon/internal/model"
	"github.com/yfzhou/taxon/internal/taxonomy"
)

// maxConsecutiveFailures is the process-wide circuit-breaker threshold:
// once this many remote attempts fail in a row (across all classify
// calls), further attempts are refused without consuming retry budget.
const maxConsecutiveFailures = 5

// sleepFunc is the backoff sleep between retries (injectable for tests).
var sleepFunc = time.Sleep

// RemoteGate is waited on before every remote attempt. Batch workers
// share one gate so concurrent classify calls respect a single upstream
// rate limit.
type RemoteGate interface {
	Wait(ctx context.Context) error
}

// Config holds resolver tuning.
type Config struct {
	// MaxRetries is the remote attempt budget per classify call (>= 1).
	MaxRetries int

	// RateLimit is the fixed delay between records in ClassifyBatch.
	RateLimit time.Duration
}

// Resolver classifies material records against a shared taxonomy. It is
// safe for concurrent use; the only mutable state is the atomic
// consecutive-failure counter.
type Resolver struct {
	store    *taxonomy.Store
	matcher  *match.Matcher
	provider llm.Provider
	cfg      Config

	systemPrompt string

	cache cache.Cache // optional
	gate  RemoteGate  // optional

	failures atomic.Int32
}

// NewResolver creates a resolver over an already-loaded taxonomy store.
// The store is injected, never loaded here, so many resolvers can share
// one parsed taxonomy.
func NewResolver(store *taxonomy.Store, provider llm.Provider, cfg Config) *Resolver {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &Resolver{
		store:        store,
		matcher:      match.NewMatcher(store),
		provider:     provider,
		cfg:          cfg,
		systemPrompt: llm.BuildSystemPrompt(store),
	}
}

// SetCache enables the classification result cache.
func (r *Resolver) SetCache(c cache.Cache) {
	r.cache = c
}

// SetGate installs a shared rate-limit gate for remote attempts.
func (r *Resolver) SetGate(g RemoteGate) {
	r.gate = g
}

// Classify resolves a single record to a canonical classification. The
// local matcher runs first; only when it finds nothing is the remote
// model consulted.
func (r *Resolver) Classify(ctx context.Context, rec model.Record) (*model.Classification, error) {
	if c, ok := r.matcher.Match(rec); ok {
		result := &model.Classification{
			MainCategory: c.Main,
			SubCategory:  c.Sub,
			Source:       model.SourceKeywordMatcher,
		}
		if err := Validate(r.store, result); err != nil {
			return nil, err
		}
		return result, nil
	}

	description := rec.Description()

	if cached, ok := r.cacheGet(description); ok {
		return cached, nil
	}

	result, err := r.classifyRemote(ctx, description)
	if err != nil {
		return nil, err
	}

	r.cacheSet(description, result)
	return result, nil
}

// classifyRemote runs the retry loop around the completion call. Only
// transport, decode, and extraction errors are retried; validation errors
// are terminal for the call.
func (r *Resolver) classifyRemote(ctx context.Context, description string) (*model.Classification, error) {
	if r.provider == nil {
		return nil, fmt.Errorf("no local match for %q and no LLM provider configured", description)
	}

	userPrompt := llm.BuildUserPrompt(description)

	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxRetries; attempt++ {
		if n := r.failures.Load(); n >= maxConsecutiveFailures {
			return nil, fmt.Errorf("%w (%d in a row)", ErrConsecutiveFailures, n)
		}

		value, err := r.attempt(ctx, userPrompt)
		if err == nil {
			r.failures.Store(0)
			return r.finish(value)
		}

		lastErr = err
		if n := r.failures.Add(1); n >= maxConsecutiveFailures {
			return nil, fmt.Errorf("%w (%d in a row): %v", ErrConsecutiveFailures, n, err)
		}

		if attempt < r.cfg.MaxRetries-1 {
			sleepFunc(time.Duration(1<<attempt) * time.Second)
		}
	}

	return nil, fmt.Errorf("remote classification failed after %d attempts: %w", r.cfg.MaxRetries, lastErr)
}

// attempt performs one gated completion call plus extraction.
func (r *Resolver) attempt(ctx context.Context, userPrompt string) (any, error) {
	if r.gate != nil {
		if err := r.gate.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	raw, err := r.provider.Complete(ctx, r.systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	return extract.Extract(raw)
}

// finish turns an extracted JSON value into a validated, canonical result.
// Failures here are terminal: the model answered, just wrongly.
func (r *Resolver) finish(value any) (*model.Classification, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrExpectedObject, value)
	}

	result := &model.Classification{
		MainCategory: stringField(obj, "main_category"),
		SubCategory:  stringField(obj, "sub_category"),
		Source:       model.SourceLLM,
	}

	// Preserve anything else the model sent, verbatim.
	for k, v := range obj {
		if k == "main_category" || k == "sub_category" {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			continue
		}
		if result.Extra == nil {
			result.Extra = make(map[string]json.RawMessage)
		}
		result.Extra[k] = raw
	}

	if err := Validate(r.store, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ClassifyBatch classifies records sequentially, isolating per-record
// failures and pausing between records (never after the last) to respect
// upstream rate limits. Outcomes are returned in input order.
func (r *Resolver) ClassifyBatch(ctx context.Context, records []model.Record) []model.Outcome {
	outcomes := make([]model.Outcome, 0, len(records))
	for i, rec := range records {
		result, err := r.Classify(ctx, rec)
		outcomes = append(outcomes, model.Outcome{Record: rec, Result: result, Err: err})

		if i < len(records)-1 && r.cfg.RateLimit > 0 {
			sleepFunc(r.cfg.RateLimit)
		}
	}
	return outcomes
}

// ConsecutiveFailures reports the current failure streak, for diagnostics.
func (r *Resolver) ConsecutiveFailures() int {
	return int(r.failures.Load())
}

func (r *Resolver) cacheGet(description string) (*model.Classification, bool) {
	if r.cache == nil {
		return nil, false
	}
	data, ok := r.cache.Get(cache.Key(description))
	if !ok {
		return nil, false
	}
	var result model.Classification
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false
	}
	return &result, true
}

func (r *Resolver) cacheSet(description string, result *model.Classification) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	_ = r.cache.Set(cache.Key(description), data, 0)
}

func stringField(obj map[string]any, key string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
