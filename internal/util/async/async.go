package async

import (
	"context"
	"fmt"
	"sync"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// Result is the outcome of a single task run by RunBounded.
type Result struct {
	Name string
	Err  error
}

// RunParallel executes multiple tasks in parallel and returns the first error encountered.
// All tasks are started concurrently, and the function waits for all to complete.
// If any task returns an error, the first error is returned after all tasks finish.
func RunParallel(ctx context.Context, tasks []Task) error {
	results := RunBounded(ctx, len(tasks), tasks)
	for _, res := range results {
		if res.Err != nil {
			return fmt.Errorf("failed to run %s: %w", res.Name, res.Err)
		}
	}
	return nil
}

// RunBounded executes tasks with at most limit running at once and returns one
// Result per task, in the same order as tasks. A failing task never stops the
// others. A limit below 1 runs tasks one at a time.
//
// Tasks not yet started when ctx is done are reported with ctx.Err().
func RunBounded(ctx context.Context, limit int, tasks []Task) []Result {
	results := make([]Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	if limit < 1 {
		limit = 1
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, task := range tasks {
		results[i].Name = task.Name

		select {
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			results[i].Err = task.Func(ctx)
		}()
	}

	wg.Wait()
	return results
}
