package classify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yfzhou/taxon/internal/model"
)

func init() {
	// Retry backoff must not slow the suite down.
	sleepFunc = func(time.Duration) {}
}

// fakeProvider returns queued responses in order; once exhausted it keeps
// returning the last one.
type fakeProvider struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *fakeProvider) Complete(ctx context.Context, system, user string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	p.calls++
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	if i < len(p.errs) && p.errs[i] != nil {
		return "", p.errs[i]
	}
	return p.responses[i], nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

const validAnswer = `{"main_category": "HMI/工控机/UPS", "sub_category": "UPS电源"}`

// unmatchable never hits a taxonomy keyword, forcing the remote path.
var unmatchable = model.Record{Name: "神秘物料X"}

func TestClassify_LocalMatchSkipsProvider(t *testing.T) {
	provider := &fakeProvider{responses: []string{validAnswer}}
	r := NewResolver(testStore(t), provider, Config{MaxRetries: 3})

	result, err := r.Classify(context.Background(), model.Record{Name: "西门子PLC模块"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.Source != model.SourceKeywordMatcher {
		t.Errorf("source = %q, want keyword matcher", result.Source)
	}
	if result.MainCategory != "PLC/IO模块/柜体" || result.SubCategory != "PLC" {
		t.Errorf("unexpected result: %+v", result)
	}
	if provider.callCount() != 0 {
		t.Errorf("provider called %d times for a local match", provider.callCount())
	}
}

func TestClassify_RemoteFallback(t *testing.T) {
	provider := &fakeProvider{responses: []string{validAnswer}}
	r := NewResolver(testStore(t), provider, Config{MaxRetries: 3})

	result, err := r.Classify(context.Background(), unmatchable)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.Source != model.SourceLLM {
		t.Errorf("source = %q, want llm", result.Source)
	}
	if result.SubCategory != "UPS电源" {
		t.Errorf("unexpected result: %+v", result)
	}
	if provider.callCount() != 1 {
		t.Errorf("provider called %d times, want 1", provider.callCount())
	}
}

func TestClassify_NoProvider(t *testing.T) {
	r := NewResolver(testStore(t), nil, Config{MaxRetries: 3})
	if _, err := r.Classify(context.Background(), unmatchable); err == nil {
		t.Fatal("expected error without provider")
	}
}

func TestClassify_RetriesTransportErrors(t *testing.T) {
	provider := &fakeProvider{
		responses: []string{"", "", validAnswer},
		errs:      []error{errors.New("timeout"), errors.New("timeout"), nil},
	}
	r := NewResolver(testStore(t), provider, Config{MaxRetries: 3})

	result, err := r.Classify(context.Background(), unmatchable)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.SubCategory != "UPS电源" {
		t.Errorf("unexpected result: %+v", result)
	}
	if provider.callCount() != 3 {
		t.Errorf("provider called %d times, want 3", provider.callCount())
	}
	if r.ConsecutiveFailures() != 0 {
		t.Errorf("failure streak = %d after success, want 0", r.ConsecutiveFailures())
	}
}

func TestClassify_RetriesMalformedResponses(t *testing.T) {
	provider := &fakeProvider{responses: []string{"我无法分类这个物料", validAnswer}}
	r := NewResolver(testStore(t), provider, Config{MaxRetries: 3})

	if _, err := r.Classify(context.Background(), unmatchable); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if provider.callCount() != 2 {
		t.Errorf("provider called %d times, want 2", provider.callCount())
	}
}

func TestClassify_RetryBudgetExhausted(t *testing.T) {
	provider := &fakeProvider{responses: []string{"nonsense"}}
	r := NewResolver(testStore(t), provider, Config{MaxRetries: 3})

	_, err := r.Classify(context.Background(), unmatchable)
	if err == nil {
		t.Fatal("expected error")
	}
	if provider.callCount() != 3 {
		t.Errorf("provider called %d times, want 3", provider.callCount())
	}
	if r.ConsecutiveFailures() != 3 {
		t.Errorf("failure streak = %d, want 3", r.ConsecutiveFailures())
	}
}

func TestClassify_ValidationErrorsAreTerminal(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     error
	}{
		{"array", `[{"main_category": "x"}]`, ErrExpectedObject},
		{"missing fields", `{"main_category": "PLC/IO模块/柜体"}`, ErrIncompleteResult},
		{"unknown pair", `{"main_category": "自创", "sub_category": "自创"}`, ErrUnknownCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{responses: []string{tt.response}}
			r := NewResolver(testStore(t), provider, Config{MaxRetries: 3})

			_, err := r.Classify(context.Background(), unmatchable)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			// The model answered; no retry with the same prompt.
			if provider.callCount() != 1 {
				t.Errorf("provider called %d times, want 1", provider.callCount())
			}
		})
	}
}

func TestClassify_PreservesExtraFields(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"main_category": "HMI/工控机/UPS", "sub_category": "UPS电源", "confidence": 0.92, "reason": "型号匹配"}`,
	}}
	r := NewResolver(testStore(t), provider, Config{MaxRetries: 1})

	result, err := r.Classify(context.Background(), unmatchable)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if string(result.Extra["confidence"]) != "0.92" {
		t.Errorf("confidence = %s", result.Extra["confidence"])
	}
	if string(result.Extra["reason"]) != `"型号匹配"` {
		t.Errorf("reason = %s", result.Extra["reason"])
	}
}

func TestClassify_ConsecutiveFailureCeiling(t *testing.T) {
	provider := &fakeProvider{responses: []string{"nonsense"}}
	r := NewResolver(testStore(t), provider, Config{MaxRetries: 10})

	_, err := r.Classify(context.Background(), unmatchable)
	if !errors.Is(err, ErrConsecutiveFailures) {
		t.Fatalf("err = %v, want ErrConsecutiveFailures", err)
	}
	// The ceiling stops the loop mid-budget.
	if provider.callCount() != maxConsecutiveFailures {
		t.Errorf("provider called %d times, want %d", provider.callCount(), maxConsecutiveFailures)
	}

	// The streak persists across calls: the next classify is refused
	// before any attempt is made.
	_, err = r.Classify(context.Background(), unmatchable)
	if !errors.Is(err, ErrConsecutiveFailures) {
		t.Fatalf("err = %v, want ErrConsecutiveFailures", err)
	}
	if provider.callCount() != maxConsecutiveFailures {
		t.Errorf("provider called after ceiling reached")
	}
}

func TestClassify_FailureStreakSpansCalls(t *testing.T) {
	provider := &fakeProvider{responses: []string{"nonsense"}}
	r := NewResolver(testStore(t), provider, Config{MaxRetries: 3})

	// Two calls of three failed attempts each: 3 + 2 = ceiling.
	_, err := r.Classify(context.Background(), unmatchable)
	if errors.Is(err, ErrConsecutiveFailures) {
		t.Fatalf("ceiling reached too early: %v", err)
	}
	_, err = r.Classify(context.Background(), unmatchable)
	if !errors.Is(err, ErrConsecutiveFailures) {
		t.Fatalf("err = %v, want ErrConsecutiveFailures", err)
	}
	if provider.callCount() != 5 {
		t.Errorf("provider called %d times, want 5", provider.callCount())
	}
}

func TestClassify_SuccessResetsStreak(t *testing.T) {
	provider := &fakeProvider{
		responses: []string{"nonsense", "nonsense", "nonsense", validAnswer},
	}
	r := NewResolver(testStore(t), provider, Config{MaxRetries: 4})

	if _, err := r.Classify(context.Background(), unmatchable); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if r.ConsecutiveFailures() != 0 {
		t.Errorf("failure streak = %d, want 0", r.ConsecutiveFailures())
	}
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string][]byte)} }

func (c *mapCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Set(key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *mapCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	return nil
}

func TestClassify_CachesRemoteResults(t *testing.T) {
	provider := &fakeProvider{responses: []string{validAnswer}}
	r := NewResolver(testStore(t), provider, Config{MaxRetries: 3})
	r.SetCache(newMapCache())

	first, err := r.Classify(context.Background(), unmatchable)
	if err != nil {
		t.Fatalf("first Classify: %v", err)
	}
	second, err := r.Classify(context.Background(), unmatchable)
	if err != nil {
		t.Fatalf("second Classify: %v", err)
	}
	if provider.callCount() != 1 {
		t.Errorf("provider called %d times, want 1 (second call cached)", provider.callCount())
	}
	if second.MainCategory != first.MainCategory || second.SubCategory != first.SubCategory {
		t.Errorf("cached result differs: %+v vs %+v", second, first)
	}
}

type countingGate struct {
	mu    sync.Mutex
	waits int
}

func (g *countingGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.waits++
	return nil
}

func TestClassify_GateWaitedPerAttempt(t *testing.T) {
	provider := &fakeProvider{responses: []string{"nonsense", validAnswer}}
	gate := &countingGate{}
	r := NewResolver(testStore(t), provider, Config{MaxRetries: 3})
	r.SetGate(gate)

	if _, err := r.Classify(context.Background(), unmatchable); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if gate.waits != 2 {
		t.Errorf("gate waited %d times, want 2", gate.waits)
	}
}

func TestClassifyBatch_IsolatesFailures(t *testing.T) {
	provider := &fakeProvider{responses: []string{"nonsense"}}
	r := NewResolver(testStore(t), provider, Config{MaxRetries: 1})

	records := []model.Record{
		{Name: "西门子PLC模块"}, // local match, succeeds
		unmatchable,         // remote, fails
		{Name: "华为UPS电源"},   // local match, succeeds
	}
	outcomes := r.ClassifyBatch(context.Background(), records)
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}

	for i, want := range []string{"success", "failed", "success"} {
		if got := outcomes[i].Status(); got != want {
			t.Errorf("outcome %d status = %q, want %q", i, got, want)
		}
		if outcomes[i].Record.Name != records[i].Name {
			t.Errorf("outcome %d out of order: %q", i, outcomes[i].Record.Name)
		}
	}
	if outcomes[1].Err == nil || outcomes[1].Result != nil {
		t.Errorf("failed outcome should carry error, not result: %+v", outcomes[1])
	}
}

func TestClassifyBatch_PausesBetweenRecords(t *testing.T) {
	old := sleepFunc
	defer func() { sleepFunc = old }()

	var slept []time.Duration
	sleepFunc = func(d time.Duration) { slept = append(slept, d) }

	r := NewResolver(testStore(t), nil, Config{MaxRetries: 1, RateLimit: 100 * time.Millisecond})
	records := []model.Record{
		{Name: "西门子PLC模块"},
		{Name: "华为UPS电源"},
		{Name: "动力电缆"},
	}
	r.ClassifyBatch(context.Background(), records)

	// Two pauses for three records: never after the last.
	if len(slept) != 2 {
		t.Fatalf("slept %d times, want 2", len(slept))
	}
	for _, d := range slept {
		if d != 100*time.Millisecond {
			t.Errorf("slept %v, want 100ms", d)
		}
	}
}
