// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package esmscan

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DumpJob names one byte source to scan under ScanAll, paired with the
// options that source should be scanned with.
type DumpJob struct {
	Name string
	Src  ByteSource
	Opts *ScanOptions
}

// DumpJobResult pairs a job's name with its outcome; Err is either the error
// ScanDump returned (cancellation, §7) or ctx's error if the job was still
// waiting for a semaphore slot when ctx ended; never a record-local
// condition.
type DumpJobResult struct {
	Name   string
	Result *Result
	Err    error
}

// ScanAll runs ScanDump over every job concurrently, each owning its own
// private Result (§5: "multiple independent scans... may run concurrently,
// each with its own private result; nothing is shared between them").
// maxConcurrency bounds how many chunked scans run at once; a value <= 0
// means unbounded (every job starts immediately).
func ScanAll(ctx context.Context, jobs []DumpJob, maxConcurrency int64) []DumpJobResult {
	results := make([]DumpJobResult, len(jobs))

	var sem *semaphore.Weighted
	if maxConcurrency > 0 {
		sem = semaphore.NewWeighted(maxConcurrency)
	}

	done := make(chan int, len(jobs))
	for i, job := range jobs {
		i, job := i, job
		go func() {
			if sem != nil {
				if err := sem.Acquire(ctx, 1); err != nil {
					results[i] = DumpJobResult{Name: job.Name, Err: err}
					done <- i
					return
				}
				defer sem.Release(1)
			}
			res, err := ScanDump(job.Src, job.Opts)
			results[i] = DumpJobResult{Name: job.Name, Result: res, Err: err}
			done <- i
		}()
	}

	for range jobs {
		<-done
	}
	return results
}
