package rpools

import (
	"context"
	"fmt"
	"sync/atomic"
)

var (
	// ErrPipelineFrozen means the pipeline does not accept any further stages
	// since Pipeline.Join has been called.
	ErrPipelineFrozen = fmt.Errorf("rpools: pipeline is frozen")
)

// AsyncExecutor is a function type used for executing a job asynchronously.
// (*WorkerPool).Execute satisfies it directly.
type AsyncExecutor func(Job) error

// GoSpawn is an implementation of AsyncExecutor that runs the job in a
// fire-and-forget goroutine.
func GoSpawn(job Job) error {
	go job()
	return nil
}

// PipelineOptions configure the Pipeline.
//
// NOTE that running both feeders and workers on the same small pool with
// small buffer sizes may deadlock, as feeders can occupy every worker.
type PipelineOptions struct {
	// FeederExecutor is the AsyncExecutor used by feeders. Defaults to GoSpawn.
	FeederExecutor AsyncExecutor
	// WorkerExecutor is the AsyncExecutor used by workers. Defaults to GoSpawn.
	WorkerExecutor AsyncExecutor
	// InputBufferSize is the buffer size of the input channel.
	InputBufferSize int
	// OutputBufferSize is the buffer size of the output channel.
	OutputBufferSize int
}

// Pipeline utilizes an input and an output channel to create a concurrent
// processor with feeder, worker and collector stages.
type Pipeline[In, Out any] struct {
	feederGo AsyncExecutor
	workerGo AsyncExecutor
	feeders  WaitGroup
	workers  WaitGroup
	inputc   chan In
	outputc  chan Out

	processed atomic.Uint32
	joined    atomic.Bool
}

// NewPipeline creates a new pipeline that utilizes fire-and-forget goroutines.
func NewPipeline[In, Out any]() *Pipeline[In, Out] {
	return NewPipelineWith[In, Out](PipelineOptions{})
}

// NewPipelineWith creates a new Pipeline with PipelineOptions.
func NewPipelineWith[In, Out any](opts PipelineOptions) *Pipeline[In, Out] {
	if opts.FeederExecutor == nil {
		opts.FeederExecutor = GoSpawn
	}
	if opts.WorkerExecutor == nil {
		opts.WorkerExecutor = GoSpawn
	}
	return &Pipeline[In, Out]{
		feederGo: opts.FeederExecutor,
		workerGo: opts.WorkerExecutor,
		inputc:   make(chan In, opts.InputBufferSize),
		outputc:  make(chan Out, opts.OutputBufferSize),
	}
}

// StartFeeder initiates the feeding of a slice of inputs within the
// AsyncExecutor. The feeding stops early without signal if ctx is done.
//
// This method must be invoked prior to Join, failing which
// ErrPipelineFrozen is returned.
func (p *Pipeline[In, Out]) StartFeeder(ctx context.Context, items []In) error {
	return p.StartFeederFunc(ctx, func(ctx context.Context, inc chan<- In) {
		for _, e := range items {
			select {
			case <-ctx.Done():
				return
			case inc <- e:
			}
		}
	})
}

// StartFeederFunc initiates a feeding loop within the AsyncExecutor.
// The caller must check ctx inside feedLoop and stop feeding properly.
//
// This method must be invoked prior to Join, failing which
// ErrPipelineFrozen is returned.
func (p *Pipeline[In, Out]) StartFeederFunc(ctx context.Context, feedLoop func(context.Context, chan<- In)) error {
	if p.joined.Load() {
		return ErrPipelineFrozen
	}

	guard := p.feeders.Hold()
	err := p.feederGo(func() {
		defer guard.Release()

		feedLoop(ctx, p.inputc)
	})
	if err != nil {
		guard.Release()
	}
	return err
}

// StartWorkerN starts n workers to process inputs within the AsyncExecutor.
func (p *Pipeline[In, Out]) StartWorkerN(ctx context.Context, n int, workOne func(In) Out) error {
	for i := 0; i < n; i++ {
		if err := p.StartWorker(ctx, workOne); err != nil {
			return err
		}
	}
	return nil
}

// StartWorker initiates a worker to process inputs within the AsyncExecutor.
// The worker stops when ctx is done or all inputs have been processed.
//
// This method must be invoked prior to Join, failing which
// ErrPipelineFrozen is returned.
func (p *Pipeline[In, Out]) StartWorker(ctx context.Context, workOne func(In) Out) error {
	if p.joined.Load() {
		return ErrPipelineFrozen
	}

	guard := p.workers.Hold()
	err := p.workerGo(func() {
		defer guard.Release()

		for {
			select {
			case <-ctx.Done():
				return
			case in, ok := <-p.inputc:
				if !ok {
					return
				}
				out := workOne(in)
				p.processed.Add(1)
				p.outputc <- out
			}
		}
	})
	if err != nil {
		guard.Release()
	}
	return err
}

// Join returns the output channel, which is closed after all stages are
// done. It is the caller's responsibility to check whether every input was
// processed; ProcessedCount serves this purpose. The pipeline is frozen
// after the join.
func (p *Pipeline[In, Out]) Join() <-chan Out {
	if !p.joined.CompareAndSwap(false, true) {
		return p.outputc
	}

	go func() {
		p.feeders.Wait()
		close(p.inputc)
		p.workers.Wait()
		close(p.outputc)
	}()
	return p.outputc
}

// ProcessedCount keeps track of the number of inputs that have been
// processed. The count is stable once the output channel has been closed.
func (p *Pipeline[In, Out]) ProcessedCount() int {
	return int(p.processed.Load())
}
