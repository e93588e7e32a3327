package rpools

// Batch couples a pool with a WaitGroup so a cohort of jobs can be
// submitted and awaited as one unit. The group is held for each job from
// before submission until the job finishes, panic included, so Wait never
// observes a transient zero between Go calls.
type Batch struct {
	pool *WorkerPool
	wg   WaitGroup
}

// Batch creates an empty batch bound to the pool.
func (p *WorkerPool) Batch() *Batch {
	return &Batch{pool: p}
}

// Go submits job as part of the batch. It returns ErrPoolClosed if the
// pool has been closed, in which case the batch counter is not left held.
func (b *Batch) Go(job Job) error {
	guard := b.wg.Hold()
	err := b.pool.Execute(func() {
		defer guard.Release()
		job()
	})
	if err != nil {
		guard.Release()
		return err
	}
	return nil
}

// Wait blocks until every job submitted through Go has finished.
// The batch is reusable: further Go calls start a new cohort.
func (b *Batch) Wait() {
	b.wg.Wait()
}
