package swarm

import (
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// parallelThreshold is the minimum population to use the worker pool.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

type phase uint8

const (
	phasePairwise phase = iota
	phaseIntegrate
)

// intent captures a decided state to apply after the parallel phase.
type intent struct {
	Position  r3.Vec
	Direction r3.Vec
}

// workChunk represents a range of fish for a worker to process.
type workChunk struct {
	start, end int
	phase      phase
}

// parallelState holds per-fish output buffers and the worker pool.
type parallelState struct {
	intents    []intent
	errs       []error
	numWorkers int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState(n, workers int) *parallelState {
	return &parallelState{
		intents:    make([]intent, n),
		errs:       make([]error, n),
		numWorkers: workers,
	}
}

func (p *parallelState) enabled() bool {
	return p.numWorkers > 1 && len(p.intents) >= parallelThreshold
}

// firstErr returns the error of the lowest-indexed fish, if any.
func (p *parallelState) firstErr() error {
	for _, err := range p.errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(s *Swarm) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(s)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *parallelState) worker(s *Swarm) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			s.computeChunk(chunk)
			p.doneChan <- struct{}{}
		}
	}
}

func (s *Swarm) computeChunk(chunk workChunk) {
	switch chunk.phase {
	case phasePairwise:
		s.pairwiseRange(chunk.start, chunk.end)
	case phaseIntegrate:
		s.integrateRange(chunk.start, chunk.end)
	}
}

// computeParallel dispatches contiguous fish ranges to the worker pool and
// waits for all of them.
func (s *Swarm) computeParallel(ph phase) {
	if !s.par.running {
		s.par.startWorkers(s)
	}

	n := len(s.fish)
	numWorkers := s.par.numWorkers
	chunkSize := (n + numWorkers - 1) / numWorkers

	chunksDispatched := 0
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		s.par.workChan <- workChunk{start: start, end: end, phase: ph}
		chunksDispatched++
	}

	for i := 0; i < chunksDispatched; i++ {
		<-s.par.doneChan
	}
}
