package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LJTian/HotDigest/internal/model"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	block chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, sources []*model.Source) *model.Result {
	if f.block != nil {
		<-f.block
	}
	ids := make([]string, 0, len(sources))
	for _, s := range sources {
		ids = append(ids, s.ID)
	}
	f.mu.Lock()
	f.calls = append(f.calls, ids)
	f.mu.Unlock()
	return &model.Result{RunID: "run-1"}
}

func testSources() []*model.Source {
	return []*model.Source{{ID: "baidu"}, {ID: "weibo"}, {ID: "zhihu"}}
}

func TestNewRejectsBadSpec(t *testing.T) {
	if _, err := New("not a cron spec", &fakeRunner{}, nil, nil); err == nil {
		t.Fatalf("expected error for invalid cron spec")
	}
	if _, err := New("CRON_TZ=Asia/Shanghai 0 8 * * *", &fakeRunner{}, nil, nil); err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}
}

func TestRunOnceSkipsDisabledAndPublishes(t *testing.T) {
	r := &fakeRunner{}
	var published []string
	failing := SinkFunc(func(ctx context.Context, res *model.Result) error {
		return errors.New("redis down")
	})
	recording := SinkFunc(func(ctx context.Context, res *model.Result) error {
		published = append(published, res.RunID)
		return nil
	})
	disabled := func() (map[string]bool, error) {
		return map[string]bool{"weibo": true}, nil
	}

	s, err := New("@daily", r, testSources(), disabled, failing, recording)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := s.RunOnce(context.Background())
	if res == nil || res.RunID != "run-1" {
		t.Fatalf("RunOnce = %+v", res)
	}
	if len(r.calls) != 1 || len(r.calls[0]) != 2 || r.calls[0][0] != "baidu" || r.calls[0][1] != "zhihu" {
		t.Fatalf("runner got %v", r.calls)
	}
	if len(published) != 1 {
		t.Fatalf("a failing sink should not stop later sinks, published = %v", published)
	}
}

func TestRunOnceUsesAllSourcesWhenRegistryFails(t *testing.T) {
	r := &fakeRunner{}
	s, _ := New("@daily", r, testSources(), func() (map[string]bool, error) {
		return nil, errors.New("db down")
	})
	s.RunOnce(context.Background())
	if len(r.calls[0]) != 3 {
		t.Fatalf("runner got %v, want all sources", r.calls)
	}
}

func TestRunOnceDoesNotOverlap(t *testing.T) {
	r := &fakeRunner{block: make(chan struct{})}
	s, _ := New("@daily", r, testSources(), nil)

	if !s.Trigger() {
		t.Fatalf("first Trigger should start a run")
	}
	deadline := time.Now().Add(time.Second)
	for !s.Running() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !s.Running() {
		t.Fatalf("job did not start")
	}
	if s.Trigger() {
		t.Fatalf("Trigger should refuse while a run is in progress")
	}
	if res := s.RunOnce(context.Background()); res != nil {
		t.Fatalf("overlapping RunOnce should return nil")
	}

	close(r.block)
	for s.Running() && time.Now().Before(deadline.Add(time.Second)) {
		time.Sleep(time.Millisecond)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) != 1 {
		t.Fatalf("runner called %d times, want 1", len(r.calls))
	}
}

func TestTriggerAcceptsOnlyOneConcurrentRun(t *testing.T) {
	r := &fakeRunner{block: make(chan struct{})}
	s, _ := New("@daily", r, testSources(), nil)

	first, second := s.Trigger(), s.Trigger()
	if !first || second {
		t.Fatalf("Trigger twice in a row = %v, %v, want true, false", first, second)
	}

	close(r.block)
	deadline := time.Now().Add(2 * time.Second)
	for s.Running() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) != 1 {
		t.Fatalf("runner called %d times, want 1", len(r.calls))
	}
}
