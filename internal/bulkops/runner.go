// Package bulkops runs a per-account operation over many accounts with
// bounded concurrency, collecting every outcome independently. One
// account's failure never aborts the batch.
package bulkops

import (
	"sync"

	"tokfleet/pkg/logger"
)

// Result is one account's outcome.
type Result struct {
	AccountID string
	Err       error
}

// Runner executes bulk operations over a fixed-size worker group.
type Runner struct {
	workers int
	logger  logger.Logger
}

// NewRunner creates a runner with the given worker count.
func NewRunner(workers int, log logger.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Runner{workers: workers, logger: log}
}

// Run applies op to every account id and returns results in input
// order. Errors are collected, never propagated mid-batch.
func (r *Runner) Run(accountIDs []string, op func(accountID string) error) []Result {
	results := make([]Result, len(accountIDs))
	if len(accountIDs) == 0 {
		return results
	}

	workers := r.workers
	if workers > len(accountIDs) {
		workers = len(accountIDs)
	}

	r.logger.DebugWithFields("starting bulk operation", map[string]interface{}{
		"accounts": len(accountIDs),
		"workers":  workers,
	})

	jobs := make(chan int)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				id := accountIDs[idx]
				err := op(id)
				// Each worker writes a distinct index, no lock needed.
				results[idx] = Result{AccountID: id, Err: err}

				if err != nil {
					r.logger.DebugWithFields("bulk item failed", map[string]interface{}{
						"account_id": id,
						"error":      err.Error(),
					})
				}
			}
		}()
	}

	for idx := range accountIDs {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return results
}
