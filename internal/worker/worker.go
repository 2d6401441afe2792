package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"linefit/internal/logger"
)

var (
	// ErrNotStarted is returned by Submit before Start.
	ErrNotStarted = errors.New("worker pool not started")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("worker pool closed")
)

// Job はワーカーが実行するジョブを表す
type Job func(ctx context.Context) error

// PanicError はジョブ内の panic を表す
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic recovered: %v", p.Value)
}

// PoolConfig はワーカープールの設定
type PoolConfig struct {
	NumWorkers  int    // ワーカー数（0でCPU数）
	QueueFactor int    // キューサイズ = NumWorkers * QueueFactor
	Tag         string // ログ用のタグ

	// OnError はジョブが最初に失敗したとき Wait より先に呼ばれる
	OnError func(err error)
}

// DefaultPoolConfig はデフォルト設定を返す
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		NumWorkers:  0,   // CPU数
		QueueFactor: 100, // デフォルト倍率
	}
}

// Pool は一回の実行に使うゴルーチンのプール
//
// 生産者は Submit でジョブを投入し、Close で入力終了を通知する。
// ワーカーはキューを排出してから終了する。最初のエラーで ctx がキャンセルされる。
type Pool struct {
	numWorkers int
	tag        string
	onError    func(err error)
	failOnce   sync.Once
	jobs       chan Job
	group      *errgroup.Group
	ctx        context.Context

	mu      sync.Mutex
	started bool
	closed  bool

	submitted atomic.Uint64
	processed atomic.Uint64
}

// NewPool は新しいワーカープールを作成する
// numWorkers が 0 以下の場合は CPU 数を使用
func NewPool(numWorkers int) *Pool {
	config := DefaultPoolConfig()
	config.NumWorkers = numWorkers
	return NewPoolWithConfig(config)
}

// NewPoolWithConfig は設定を指定してワーカープールを作成する
func NewPoolWithConfig(config PoolConfig) *Pool {
	numWorkers := config.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	queueFactor := config.QueueFactor
	if queueFactor <= 0 {
		queueFactor = 100
	}
	return &Pool{
		numWorkers: numWorkers,
		tag:        config.Tag,
		onError:    config.OnError,
		jobs:       make(chan Job, numWorkers*queueFactor),
	}
}

// Start はワーカーを起動し、プールの ctx を返す
// ctx はジョブの失敗か親 ctx の終了でキャンセルされる
func (p *Pool) Start(ctx context.Context) context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return p.ctx
	}

	p.group, p.ctx = errgroup.WithContext(ctx)
	p.started = true

	for i := range p.numWorkers {
		p.group.Go(func() error {
			return p.worker(i)
		})
	}

	logger.Debug(p.tag, "WorkerPool started with %d workers", p.numWorkers)
	return p.ctx
}

// worker は個々のワーカーゴルーチン
func (p *Pool) worker(_ int) error {
	for {
		select {
		case <-p.ctx.Done():
			return p.ctx.Err()
		case job, ok := <-p.jobs:
			if !ok {
				return nil
			}
			// キャンセル後は取り出したジョブも実行しない
			if err := p.ctx.Err(); err != nil {
				return err
			}
			if err := p.run(job); err != nil {
				p.reportError(err)
				return err
			}
			p.processed.Add(1)
		}
	}
}

// run はジョブを実行し、panic をエラーに変換する
func (p *Pool) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(p.tag, "job panicked: %v", r)
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return job(p.ctx)
}

// reportError は最初のジョブ失敗だけを OnError に渡す
func (p *Pool) reportError(err error) {
	if p.onError == nil {
		return
	}
	p.failOnce.Do(func() {
		p.onError(err)
	})
}

// Submit はジョブを送信し、キューに空きがなければブロックする
// Close と同じ生産者ゴルーチンから呼ぶこと
func (p *Pool) Submit(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn(p.tag, "Submit failed due to panic (channel may be closed): %v", r)
			err = ErrClosed
		}
	}()

	p.mu.Lock()
	started, closed := p.started, p.closed
	p.mu.Unlock()

	if !started {
		return ErrNotStarted
	}
	if closed {
		return ErrClosed
	}

	// 先にコンテキストをチェック
	if err := p.ctx.Err(); err != nil {
		return err
	}

	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobs <- job:
		p.submitted.Add(1)
		return nil
	}
}

// Close は入力の終了を通知する
// ワーカーは残りのジョブを処理してから終了する
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.jobs)
}

// Wait は全ワーカーの終了を待ち、最初のエラーを返す
func (p *Pool) Wait() error {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()

	if !started {
		return ErrNotStarted
	}

	p.Close()
	err := p.group.Wait()

	logger.Debug(p.tag, "WorkerPool stopped (submitted: %d, processed: %d)",
		p.submitted.Load(), p.processed.Load())
	return err
}

// NumWorkers はワーカー数を返す
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// QueueSize は現在のキューサイズを返す
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

// Submitted は投入済みのジョブ数を返す
func (p *Pool) Submitted() uint64 {
	return p.submitted.Load()
}

// Processed は正常に完了したジョブ数を返す
func (p *Pool) Processed() uint64 {
	return p.processed.Load()
}
