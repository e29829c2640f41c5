package pool

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"
)

func itemTimes(factor int) Func {
	return func(ctx context.Context, item any, args []any, kwargs map[string]any) (any, error) {
		return item.(int) * factor, nil
	}
}

func TestSubmitRequest(t *testing.T) {
	ctx := context.Background()
	p := New(WithWorkers(2))
	defer p.Close()

	ids := make([]int64, 10)
	for i := range 10 {
		id, err := p.Submit(ctx, Call{Fn: itemTimes(3), Item: i})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		ids[i] = id
	}

	for i, id := range ids {
		v, err := p.Request(ctx, id)
		if err != nil {
			t.Fatalf("request %d: %v", id, err)
		}
		if v != i*3 {
			t.Errorf("task %d: expected %d, got %v", id, i*3, v)
		}
	}
}

func TestSubmitUsesArgsAndKwargs(t *testing.T) {
	ctx := context.Background()
	p := New(WithWorkers(1))
	defer p.Close()

	fn := func(ctx context.Context, item any, args []any, kwargs map[string]any) (any, error) {
		return item.(int) * args[0].(int) * kwargs["k"].(int), nil
	}

	id, err := p.Submit(ctx, Call{Fn: fn, Item: 5, Args: []any{3}, Kwargs: map[string]any{"k": 2}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	v, err := p.Request(ctx, id)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if v != 30 {
		t.Errorf("expected 30, got %v", v)
	}
}

func TestPoolReuseAcrossBatches(t *testing.T) {
	ctx := context.Background()
	p := New(WithWorkers(2))
	defer p.Close()

	// First batch: three tasks with one callable.
	first := make([]int64, 3)
	for i := range 3 {
		id, err := p.Submit(ctx, Call{Fn: itemTimes(10), Item: i})
		if err != nil {
			t.Fatalf("first batch submit: %v", err)
		}
		first[i] = id
	}

	// Second batch: two tasks with a different callable, before the first
	// batch is retrieved.
	stringify := func(ctx context.Context, item any, args []any, kwargs map[string]any) (any, error) {
		return fmt.Sprintf("task-%d", item.(int)), nil
	}
	second := make([]int64, 2)
	for i := range 2 {
		id, err := p.Submit(ctx, Call{Fn: stringify, Item: i})
		if err != nil {
			t.Fatalf("second batch submit: %v", err)
		}
		second[i] = id
	}

	// Ids never collide across batches.
	seen := map[int64]bool{}
	for _, id := range append(append([]int64{}, first...), second...) {
		if seen[id] {
			t.Fatalf("id %d assigned twice", id)
		}
		seen[id] = true
	}

	// Retrieval in arbitrary order returns the per-id outcome.
	if v, err := p.Request(ctx, second[1]); err != nil || v != "task-1" {
		t.Errorf("second[1]: got %v, %v", v, err)
	}
	if v, err := p.Request(ctx, first[2]); err != nil || v != 20 {
		t.Errorf("first[2]: got %v, %v", v, err)
	}
	if v, err := p.Request(ctx, first[0]); err != nil || v != 0 {
		t.Errorf("first[0]: got %v, %v", v, err)
	}
	if v, err := p.Request(ctx, second[0]); err != nil || v != "task-0" {
		t.Errorf("second[0]: got %v, %v", v, err)
	}
	if v, err := p.Request(ctx, first[1]); err != nil || v != 10 {
		t.Errorf("first[1]: got %v, %v", v, err)
	}
}

func TestSubmitChunkKeepsOrder(t *testing.T) {
	ctx := context.Background()
	p := New(WithWorkers(4))
	defer p.Close()

	slow := func(ctx context.Context, item any, args []any, kwargs map[string]any) (any, error) {
		time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
		return item.(int) * item.(int), nil
	}

	var ids []int64
	for start := 0; start < 40; start += 5 {
		calls := make([]Call, 5)
		for i := range 5 {
			calls[i] = Call{Fn: slow, Item: start + i}
		}
		batch, err := p.SubmitChunk(ctx, calls...)
		if err != nil {
			t.Fatalf("submit chunk: %v", err)
		}
		ids = append(ids, batch...)
	}

	for i, id := range ids {
		v, err := p.Request(ctx, id)
		if err != nil {
			t.Fatalf("request %d: %v", id, err)
		}
		if v != i*i {
			t.Errorf("task %d: expected %d, got %v", id, i*i, v)
		}
	}
}

func TestConcurrentSubmitters(t *testing.T) {
	ctx := context.Background()
	p := New(WithWorkers(4))
	defer p.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 25 {
				id, err := p.Submit(ctx, Call{Fn: itemTimes(2), Item: g*100 + i})
				if err != nil {
					errs <- err
					return
				}
				v, err := p.Request(ctx, id)
				if err != nil {
					errs <- err
					return
				}
				if v != (g*100+i)*2 {
					errs <- fmt.Errorf("task %d: got %v", id, v)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if got := p.Stats().Submitted; got != 200 {
		t.Errorf("expected 200 submitted, got %d", got)
	}
}
