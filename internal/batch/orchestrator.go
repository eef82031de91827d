package batch

import (
	"context"
	"log"
	"sync"

	"github.com/stormino/vixsrc-downloader/internal/model"
	"github.com/stormino/vixsrc-downloader/internal/progress"
)

// SinkFactory creates the progress sink for one task row.
type SinkFactory func(description string) progress.Sink

// Orchestrator fans a task list out to a bounded worker pool. Every
// task is counted exactly once as success or failure; a panicking task
// is contained and counted as failed.
type Orchestrator struct {
	runner   Runner
	sinks    SinkFactory
	parallel int
}

func NewOrchestrator(runner Runner, sinks SinkFactory, parallel int) *Orchestrator {
	if parallel < 1 {
		parallel = 1
	}
	if sinks == nil {
		sinks = func(string) progress.Sink { return progress.NopSink{} }
	}
	return &Orchestrator{runner: runner, sinks: sinks, parallel: parallel}
}

// Run executes all tasks with at most the configured number in flight
// and blocks until every task has finished.
func (o *Orchestrator) Run(ctx context.Context, tasks []*model.DownloadTask) model.BatchResult {
	if len(tasks) == 0 {
		return model.BatchResult{}
	}

	sem := make(chan struct{}, o.parallel)
	outcomes := make(chan bool, len(tasks))

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task *model.DownloadTask) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes <- o.runOne(ctx, task)
		}(task)
	}
	wg.Wait()
	close(outcomes)

	var result model.BatchResult
	for ok := range outcomes {
		if ok {
			result.Success++
		} else {
			result.Failed++
		}
	}
	return result
}

func (o *Orchestrator) runOne(ctx context.Context, task *model.DownloadTask) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[batch] %s: panic: %v", task, r)
			ok = false
		}
	}()

	sink := o.sinks(task.String())
	if err := o.runner.RunTask(ctx, task, sink); err != nil {
		log.Printf("[batch] %s: %v", task, err)
		return false
	}
	return true
}
