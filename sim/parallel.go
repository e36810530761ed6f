package sim

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum element count to use the worker
// pool. Below this, single-threaded is faster due to goroutine
// overhead.
const parallelThreshold = 64

// workChunk is a half-open element range handed to one worker.
type workChunk struct {
	start, end int
	fn         func(i0, i1 int)
}

// Pool is a persistent worker pool that executes range closures. Every
// Run call is a full barrier: it returns only after all chunks have
// completed, so successive passes never overlap.
type Pool struct {
	numWorkers int

	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

// NewPool sizes the pool to GOMAXPROCS.
func NewPool() *Pool {
	return &Pool{numWorkers: runtime.GOMAXPROCS(0)}
}

// start launches the persistent worker goroutines.
func (p *Pool) start() {
	if p.running {
		return
	}
	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop signals all workers to exit and waits for them.
func (p *Pool) Stop() {
	if !p.running {
		return
	}
	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			chunk.fn(chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// Run executes fn over chunked subranges of [0, n) and blocks until
// every chunk is done. Small ranges run inline on the caller.
func (p *Pool) Run(n int, fn func(i0, i1 int)) {
	if n <= 0 {
		return
	}
	if n < parallelThreshold || p.numWorkers <= 1 {
		fn(0, n)
		return
	}
	if !p.running {
		p.start()
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end, fn: fn}
		dispatched++
	}
	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}
