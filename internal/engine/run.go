package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"linefit/internal/collector"
	"linefit/internal/events"
	"linefit/internal/line"
	"linefit/internal/metrics"
	"linefit/internal/worker"
)

// run は一回の Transform が所有する状態
// キュー・キャンセル範囲・Collector は呼び出しごとに作り直し、共有しない
type run struct {
	id        string
	tag       string
	engine    *Engine
	width     int
	collector *collector.Collector
	start     time.Time

	// ワーカーが Wait より先に報告した最初の失敗
	mu       sync.Mutex
	firstErr error
}

func (e *Engine) newRun(width, lines int) *run {
	id := uuid.NewString()
	return &run{
		id:        id,
		tag:       "run-" + id[:8],
		engine:    e,
		width:     width,
		collector: collector.New(lines),
		start:     time.Now(),
	}
}

// execute はジョブを投入し、全行が揃うか失敗するまで待つ
func (r *run) execute(parent context.Context, jobs []line.Job) (string, error) {
	cfg := r.engine.config

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, cfg.Timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	defer cancel()

	pool := worker.NewPoolWithConfig(worker.PoolConfig{
		NumWorkers:  cfg.Workers,
		QueueFactor: cfg.QueueFactor,
		Tag:         r.tag,
		OnError:     r.recordFailure,
	})
	poolCtx := pool.Start(ctx)

	r.engine.log.Debug(r.tag, "Split into %d lines (width: %d, workers: %d)",
		len(jobs), r.width, pool.NumWorkers())
	r.engine.publishEvent(events.NewRunStartedEvent(r.id, r.width, len(jobs), pool.NumWorkers()))

	for _, job := range jobs {
		if err := pool.Submit(r.task(job)); err != nil {
			r.engine.log.Debug(r.tag, "Stopped queueing at line %d: %v", job.Index, err)
			break
		}
	}
	pool.Close()

	waitErr := r.collector.Wait(poolCtx)
	poolErr := r.waitPool(pool, poolCtx, waitErr != nil)

	if err := r.outcome(ctx, waitErr, poolErr); err != nil {
		r.fail(err)
		return "", err
	}

	out := line.Join(r.collector.Results(), cfg.Newline)
	r.complete()
	return out, nil
}

// task は一行分のワーカージョブを作る
func (r *run) task(job line.Job) worker.Job {
	return func(ctx context.Context) error {
		start := time.Now()
		text, err := r.engine.justify(ctx, job, r.engine.config.Separator)
		if err != nil {
			if m := r.engine.metrics; m != nil {
				m.RecordLineFailure(time.Since(start))
			}
			return &LineError{Index: job.Index, Err: err}
		}
		if m := r.engine.metrics; m != nil {
			m.RecordLine(time.Since(start))
		}

		if err := r.collector.Add(line.Result{Index: job.Index, Text: text}); err != nil {
			return &LineError{Index: job.Index, Err: fmt.Errorf("%w: %w", ErrWorkerFailure, err)}
		}

		r.engine.publishEvent(events.NewLineJustifiedEvent(r.id, job.Index, utf8.RuneCountInString(text)))
		return nil
	}
}

// waitPool はワーカーの終了を待つ
// 未完了のまま打ち切られた場合は ctx を無視して止まったワーカーを待ち続けず、
// StopGrace を過ぎたら記録済みの失敗かキャンセルを返す
func (r *run) waitPool(pool *worker.Pool, poolCtx context.Context, bounded bool) error {
	if !bounded {
		return pool.Wait()
	}

	done := make(chan error, 1)
	go func() {
		done <- pool.Wait()
	}()

	timer := time.NewTimer(r.engine.config.StopGrace)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
	}

	r.engine.log.Warn(r.tag, "Workers still busy %v after stop, abandoning them",
		r.engine.config.StopGrace)

	r.mu.Lock()
	err := r.firstErr
	r.mu.Unlock()
	if err == nil {
		err = context.Cause(poolCtx)
	}
	return err
}

// recordFailure はプールの OnError から呼ばれる
func (r *run) recordFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.firstErr == nil {
		r.firstErr = err
	}
}

// outcome は待機とプールの結果から最終的なエラーを決める
// ワーカーの失敗はキャンセルより優先する
func (r *run) outcome(ctx context.Context, waitErr, poolErr error) error {
	if poolErr != nil && !isContextError(poolErr) {
		return classify(poolErr)
	}
	// 全行が揃った後のキャンセルは結果に影響しない
	if waitErr == nil {
		return nil
	}

	cause := ctx.Err()
	if cause == nil {
		cause = errors.Join(waitErr, poolErr)
	}
	return fmt.Errorf("%w: collected %d of %d lines: %w",
		ErrCancelled, r.collector.Len(), r.collector.Expected(), cause)
}

// classify はワーカーのエラーに種別を付ける
func classify(err error) error {
	switch {
	case errors.Is(err, ErrOverflow), errors.Is(err, ErrWorkerFailure):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrWorkerFailure, err)
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (r *run) complete() {
	elapsed := time.Since(r.start)
	if m := r.engine.metrics; m != nil {
		m.RecordRun(metrics.RunSucceeded, elapsed)
	}
	r.engine.log.Debug(r.tag, "Joined %d lines in %v", r.collector.Expected(), elapsed)
	r.engine.publishEvent(events.NewRunCompletedEvent(r.id, r.collector.Expected(), elapsed))
}

func (r *run) fail(err error) {
	elapsed := time.Since(r.start)
	outcome := metrics.RunFailed
	if errors.Is(err, ErrCancelled) {
		outcome = metrics.RunCancelled
		r.engine.log.Warn(r.tag, "Run cancelled after %v: %v", elapsed, err)
	} else {
		r.engine.log.Error(r.tag, "Run failed after %v: %v", elapsed, err)
	}
	if m := r.engine.metrics; m != nil {
		m.RecordRun(outcome, elapsed)
	}
	r.engine.publishEvent(events.NewRunFailedEvent(r.id, err, elapsed))
}
