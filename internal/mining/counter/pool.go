// Package counter computes candidate support over a transaction collection.
// Evaluation of each candidate is an independent job executed by a
// fixed-size worker pool that lives for the whole mining run.
package counter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/mining/containment"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/sequence"
	apperrors "github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/errors"
)

// ErrPoolClosed is returned when work is submitted after Close.
var ErrPoolClosed = errors.New("worker pool closed")

type job struct {
	idx       int
	candidate sequence.Candidate
	txs       []sequence.Transaction
	match     containment.Matcher
	out       chan<- result
}

type result struct {
	idx   int
	count int
	err   error
}

// Pool runs candidate evaluations on a fixed set of goroutines.
type Pool struct {
	jobs      chan job
	quit      chan struct{}
	wg        sync.WaitGroup
	size      int
	closeOnce sync.Once
	logger    *slog.Logger
}

// NewPool starts workers goroutines. A non-positive count means one worker
// per available CPU.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{
		jobs:   make(chan job),
		quit:   make(chan struct{}),
		size:   workers,
		logger: slog.Default().With("component", "counter-pool"),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.logger.Debug("worker pool started", "workers", workers)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Close stops the workers and waits for in-flight jobs to finish.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.wg.Wait()
		p.logger.Debug("worker pool stopped", "workers", p.size)
	})
}

func (p *Pool) submit(ctx context.Context, j job) error {
	select {
	case p.jobs <- j:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case j := <-p.jobs:
			j.out <- evaluate(j)
		case <-p.quit:
			return
		}
	}
}

// evaluate counts the transactions containing one candidate. A panic in the
// matcher is converted into a counting failure for that candidate alone.
func evaluate(j job) (r result) {
	r.idx = j.idx
	defer func() {
		if rec := recover(); rec != nil {
			r.count = 0
			r.err = fmt.Errorf("%w: evaluating %s: %v", apperrors.ErrCountingFailure, j.candidate, rec)
		}
	}()
	if err := containment.Check(j.candidate); err != nil {
		r.err = err
		return r
	}
	for _, tx := range j.txs {
		if j.match(j.candidate, tx) {
			r.count++
		}
	}
	return r
}
