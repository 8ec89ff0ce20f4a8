package classifier

import (
	"context"
	"sort"
	"sync"

	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

// ClassifyBatchParallel annotates a batch using a worker pool. Each record
// is independent, so workers share nothing; results are written by input
// index, so output order always matches input order regardless of worker
// scheduling. On context cancellation the partial results are discarded
// and the context error is returned: callers must never see a
// half-annotated batch.
func (c *Classifier) ClassifyBatchParallel(ctx context.Context, records []models.RequestRecord, workers int) ([]models.AnomalyAnnotation, []Warning, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if workers <= 1 || len(records) < workers*2 {
		annotations, warnings := c.ClassifyBatch(records)
		return annotations, warnings, nil
	}

	annotations := make([]models.AnomalyAnnotation, len(records))
	indices := make(chan int)

	var mu sync.Mutex
	var warnings []Warning

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				annotations[i] = c.Classify(records[i])
				if ws := checkRecord(i, records[i]); len(ws) > 0 {
					mu.Lock()
					warnings = append(warnings, ws...)
					mu.Unlock()
				}
			}
		}()
	}

	for i := range records {
		select {
		case <-ctx.Done():
			close(indices)
			wg.Wait()
			return nil, nil, ctx.Err()
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()

	sort.SliceStable(warnings, func(i, j int) bool { return warnings[i].Index < warnings[j].Index })

	return annotations, warnings, nil
}
