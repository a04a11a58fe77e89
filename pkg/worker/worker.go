package worker

import "sync"

// Job is a unit of work run by the pool
type Job func()

// Pool runs jobs on a fixed number of goroutines
type Pool struct {
	jobs chan Job

	wg sync.WaitGroup
}

// NewPool starts maxWorkers workers. At least one worker is always started
func NewPool(maxWorkers int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	pool := &Pool{
		jobs: make(chan Job, maxWorkers),
	}

	// start workers
	for range maxWorkers {
		go pool.worker()
	}

	return pool
}

func (p *Pool) worker() {
	for j := range p.jobs {
		j()
		p.wg.Done()
	}
}

// Wait blocks until every enqueued job completed
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Stop terminates the workers. No job may be enqueued afterwards
func (p *Pool) Stop() {
	close(p.jobs)
}

// Enqueue schedules a job, blocking while all workers are busy and the
// queue is full
func (p *Pool) Enqueue(job Job) {
	p.wg.Add(1)
	p.jobs <- job
}
