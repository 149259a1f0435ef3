package main

import (
	"context"
	"fmt"
	"time"

	deppool "github.com/Swind/go-deppool"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

func diamondCommand() *cli.Command {
	return &cli.Command{
		Name:  "diamond",
		Usage: "run a diamond-shaped dependency graph and print the join result",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "slots",
				Value: 4,
				Usage: "concurrency limit",
			},
		},
		Action: diamondAction,
	}
}

func diamondAction(c *cli.Context) error {
	runID := uuid.NewString()
	slots := c.Int("slots")

	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()

	pool, stop := deppool.StartPool[string](ctx, slots)
	defer stop()

	fmt.Printf("[%s] submitting diamond graph with %d slots\n", runID, slots)

	// root's result can be consumed through WaitTask only once, so both
	// branches read the value root's body stored instead; the dependency
	// edges order that write before either branch starts.
	var rootValue string
	root := pool.SubmitTask(func(ctx context.Context) (string, error) {
		rootValue = "root"
		return rootValue, nil
	})
	left := pool.SubmitDependentTask(root, func(ctx context.Context) (string, error) {
		return rootValue + "->left", nil
	})
	right := pool.SubmitDependentTask(root, func(ctx context.Context) (string, error) {
		return rootValue + "->right", nil
	})
	join := pool.SubmitTask(func(ctx context.Context) (string, error) {
		l, err := pool.WaitTask(ctx, left)
		if err != nil {
			return "", err
		}
		r, err := pool.WaitTask(ctx, right)
		if err != nil {
			return "", err
		}
		return l + " + " + r, nil
	})
	pool.SequenceTasks(left, join)
	pool.SequenceTasks(right, join)

	result, err := pool.WaitTask(ctx, join)
	if err != nil {
		return cli.Exit(fmt.Sprintf("diamond graph failed: %v", err), 1)
	}
	fmt.Printf("[%s] join result: %s\n", runID, result)
	return nil
}

func fireAndForgetCommand() *cli.Command {
	return &cli.Command{
		Name:  "fire-and-forget",
		Usage: "submit detached tasks and wait for the pool to drain",
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, 5*time.Second)
			defer cancel()

			pool, stop := deppool.StartPool[struct{}](ctx, 2)
			defer stop()

			for i := 0; i < 5; i++ {
				i := i
				pool.SubmitTaskDetached(func(ctx context.Context) (struct{}, error) {
					fmt.Printf("detached task %d ran\n", i)
					return struct{}{}, nil
				})
			}

			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				if pool.Stats().Running == 0 && pool.Stats().GraphSize == 0 {
					break
				}
				time.Sleep(20 * time.Millisecond)
			}
			fmt.Println("all detached tasks drained")
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "submit a small graph and print periodic pool stats while it runs",
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, 5*time.Second)
			defer cancel()

			pool, stop := deppool.StartPool[int](ctx, 2)
			defer stop()

			for i := 0; i < 6; i++ {
				pool.SubmitTask(func(ctx context.Context) (int, error) {
					time.Sleep(200 * time.Millisecond)
					return 0, nil
				})
			}

			ticker := time.NewTicker(150 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					s := pool.Stats()
					fmt.Printf("slots=%d available=%d running=%d graph=%d ready=%d\n",
						s.Slots, s.Available, s.Running, s.GraphSize, s.Ready)
					if s.GraphSize == 0 {
						return nil
					}
				}
			}
		},
	}
}
