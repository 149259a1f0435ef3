package core

import (
	"context"
	"testing"
	"time"
)

func TestPool_SubmitTaskAfterDelaysMaterialization(t *testing.T) {
	p := NewPool[int](2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	before := p.Stats().GraphSize
	if before != 0 {
		t.Fatalf("graph size before delay = %d, want 0", before)
	}

	h := p.SubmitTaskAfter(20*time.Millisecond, func(ctx context.Context) (int, error) {
		return 9, nil
	})

	v, err := p.WaitTask(ctx, h)
	if err != nil {
		t.Fatalf("WaitTask returned error: %v", err)
	}
	if v != 9 {
		t.Fatalf("value = %d, want 9", v)
	}
}

func TestPool_SubmitDependentTaskAfterHonorsDependency(t *testing.T) {
	p := NewPool[string](2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	var order []string
	done := make(chan struct{})

	parent := p.SubmitTask(func(ctx context.Context) (string, error) {
		order = append(order, "parent")
		return "parent", nil
	})
	child := p.SubmitDependentTaskAfter(10*time.Millisecond, parent, func(ctx context.Context) (string, error) {
		order = append(order, "child")
		close(done)
		return "child", nil
	})

	if _, err := p.WaitTask(ctx, parent); err != nil {
		t.Fatalf("WaitTask(parent) error: %v", err)
	}
	if _, err := p.WaitTask(ctx, child); err != nil {
		t.Fatalf("WaitTask(child) error: %v", err)
	}
	<-done

	if len(order) != 2 || order[0] != "parent" || order[1] != "child" {
		t.Fatalf("order = %v, want [parent child]", order)
	}
}
