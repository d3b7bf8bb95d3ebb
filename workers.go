package imagesweep

import (
	"context"
	"sync"
)

// persistJob is one body handed from a download goroutine to the pool.
type persistJob struct {
	dir    string
	index  int
	data   []byte
	result chan persistResult
}

type persistResult struct {
	path string
	err  error
}

// workerPool runs decode/encode/write work on a fixed number of goroutines,
// separate from the per-URL network goroutines.
type workerPool struct {
	jobs chan persistJob
	wg   sync.WaitGroup
}

func (cfg *Config) startWorkers(n int) *workerPool {
	p := &workerPool{jobs: make(chan persistJob)}
	for range n {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job.result <- cfg.runPersist(job)
			}
		}()
	}
	return p
}

func (cfg *Config) runPersist(job persistJob) (res persistResult) {
	defer cfg.recoverPanic("persist", &res.err)
	res.path, res.err = cfg.persist(job.dir, job.index, job.data)
	return res
}

// submit queues a job and waits for its result.
func (p *workerPool) submit(ctx context.Context, dir string, index int, data []byte) (string, error) {
	job := persistJob{dir: dir, index: index, data: data, result: make(chan persistResult, 1)}
	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	// An accepted job always runs to completion.
	res := <-job.result
	return res.path, res.err
}

// close stops the workers after queued jobs finish.
func (p *workerPool) close() {
	close(p.jobs)
	p.wg.Wait()
}
