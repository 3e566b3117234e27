package nbc

import "sync"

// classifyBrute evaluates every query-reference pair exactly and applies the
// final dominance test per point. It is the non-tree algorithm path and the
// oracle the pruned traversal is tested against.
//
// Workers split the query rows into contiguous ranges; ranges don't overlap,
// so density writes need no synchronization. The dominance test and the
// global tally run single-threaded afterwards.
func classifyBrute(refData []float64, refPos []bool, nRef int,
	queryData []float64, priors []float64, nQuery, dims int,
	params *Params, workers int) ([]PointResult, GlobalResult, error) {

	results := make([]PointResult, nQuery)
	for i := range results {
		results[i] = NewPointResult()
	}

	if workers <= 1 || nQuery <= 1 {
		bruteRange(refData, refPos, nRef, queryData, dims, params, results, 0, nQuery)
	} else {
		var wg sync.WaitGroup
		rowsPerWorker := (nQuery + workers - 1) / workers
		for w := 0; w < workers; w++ {
			start := w * rowsPerWorker
			end := min(start+rowsPerWorker, nQuery)
			if start >= nQuery {
				break
			}
			wg.Add(1)
			go func(start, end int) {
				defer wg.Done()
				bruteRange(refData, refPos, nRef, queryData, dims, params, results, start, end)
			}(start, end)
		}
		wg.Wait()
	}

	var global GlobalResult
	for i := range results {
		piPos := priors[i]
		if err := results[i].Postprocess(params, piPos, 1-piPos); err != nil {
			return nil, global, err
		}
		global.ApplyResult(&results[i])
	}

	return results, global, nil
}

// bruteRange accumulates exact kernel sums for query rows [start, end).
func bruteRange(refData []float64, refPos []bool, nRef int,
	queryData []float64, dims int, params *Params,
	results []PointResult, start, end int) {

	for i := start; i < end; i++ {
		q := queryData[i*dims : (i+1)*dims]
		for j := 0; j < nRef; j++ {
			d := distSq(q, refData[j*dims:(j+1)*dims])
			if refPos[j] {
				results[i].DensityPos += params.KernelPos.EvalUnnormOnSq(d)
			} else {
				results[i].DensityNeg += params.KernelNeg.EvalUnnormOnSq(d)
			}
		}
	}
}
