package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFuture_SettlesWithValue(t *testing.T) {
	f := spawn[int](context.Background(), 1, func(ctx context.Context) (int, error) {
		return 42, nil
	})

	out, err := f.wait(context.Background())
	if err != nil {
		t.Fatalf("wait returned error: %v", err)
	}
	if out.Kind != OutcomeOK || out.Value != 42 {
		t.Fatalf("outcome = %+v, want OK/42", out)
	}
}

func TestFuture_SettlesWithError(t *testing.T) {
	wantErr := errors.New("boom")
	f := spawn[int](context.Background(), 1, func(ctx context.Context) (int, error) {
		return 0, wantErr
	})

	out, err := f.wait(context.Background())
	if err != nil {
		t.Fatalf("wait returned error: %v", err)
	}
	if out.Kind != OutcomeErr || !errors.Is(out.Err, wantErr) {
		t.Fatalf("outcome = %+v, want Err wrapping %v", out, wantErr)
	}
}

func TestFuture_RecoversPanic(t *testing.T) {
	f := spawn[int](context.Background(), 1, func(ctx context.Context) (int, error) {
		panic("kaboom")
	})

	out, err := f.wait(context.Background())
	if err != nil {
		t.Fatalf("wait returned error: %v", err)
	}
	if out.Kind != OutcomeErr {
		t.Fatalf("outcome kind = %v, want OutcomeErr", out.Kind)
	}
}

func TestFuture_PollSettledIsNonBlocking(t *testing.T) {
	release := make(chan struct{})
	f := spawn[int](context.Background(), 1, func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})

	if _, settled := f.pollSettled(); settled {
		t.Fatalf("future should not be settled yet")
	}
	close(release)

	deadline := time.After(time.Second)
	for {
		if _, settled := f.pollSettled(); settled {
			return
		}
		select {
		case <-deadline:
			t.Fatal("future never settled")
		default:
		}
	}
}

func TestFuture_CancelStopsBodyThatRespectsContext(t *testing.T) {
	started := make(chan struct{})
	f := spawn[int](context.Background(), 1, func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})
	<-started
	f.cancelAndDiscard()

	out, err := f.wait(context.Background())
	if err != nil {
		t.Fatalf("wait returned error: %v", err)
	}
	if out.Kind != OutcomeErr {
		t.Fatalf("outcome kind = %v, want OutcomeErr after cancellation", out.Kind)
	}
}
