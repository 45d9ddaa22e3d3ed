// Package pipeline runs independent batch jobs over a bounded worker pool.
package pipeline

import (
	"runtime"
	"sync"
)

// Worker processes one job. Jobs must be independent of each other; the
// pool gives no ordering guarantee across workers.
type Worker[T any] func(job T) error

// Run fans jobs out over the given number of workers and collects every
// error returned. workers <= 0 means one worker per CPU.
func Run[T any](jobs []T, workers int, fn Worker[T]) []error {
	if len(jobs) == 0 || fn == nil {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers < 1 {
			workers = 1
		}
	}

	queue := make(chan T)
	errs := make(chan error, len(jobs))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				if err := fn(job); err != nil {
					errs <- err
				}
			}
		}()
	}

	for _, job := range jobs {
		queue <- job
	}
	close(queue)
	wg.Wait()
	close(errs)

	out := make([]error, 0, len(errs))
	for err := range errs {
		out = append(out, err)
	}
	return out
}
