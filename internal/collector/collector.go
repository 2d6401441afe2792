package collector

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"linefit/internal/line"
)

var (
	// ErrDuplicate is returned when a result for the same index was already added.
	ErrDuplicate = errors.New("duplicate result")
	// ErrOutOfRange is returned for an index outside [0, expected).
	ErrOutOfRange = errors.New("result index out of range")
)

// Collector は行番号をキーに結果を集める
type Collector struct {
	expected int

	mu      sync.Mutex
	results map[int]line.Result
	done    chan struct{}
}

// New は expected 件の結果を待つ Collector を作成する
// expected が 0 の場合は最初から完了状態になる
func New(expected int) *Collector {
	if expected < 0 {
		expected = 0
	}
	c := &Collector{
		expected: expected,
		results:  make(map[int]line.Result, expected),
		done:     make(chan struct{}),
	}
	if expected == 0 {
		close(c.done)
	}
	return c
}

// Add は結果を一度だけ登録する
func (c *Collector) Add(r line.Result) error {
	if r.Index < 0 || r.Index >= c.expected {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, r.Index, c.expected)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.results[r.Index]; ok {
		return fmt.Errorf("%w: index %d", ErrDuplicate, r.Index)
	}
	c.results[r.Index] = r

	if len(c.results) == c.expected {
		close(c.done)
	}
	return nil
}

// Len は登録済みの件数を返す
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

// Expected は待っている件数を返す
func (c *Collector) Expected() int {
	return c.expected
}

// Done は全件揃ったときに閉じられるチャネルを返す
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

// Wait は全件揃うか ctx が終了するまでブロックする
func (c *Collector) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	default:
	}

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("collected %d of %d results: %w", c.Len(), c.expected, ctx.Err())
	}
}

// Results は Index 昇順の結果を返す
func (c *Collector) Results() []line.Result {
	c.mu.Lock()
	out := make([]line.Result, 0, len(c.results))
	for _, r := range c.results {
		out = append(out, r)
	}
	c.mu.Unlock()

	slices.SortFunc(out, func(a, b line.Result) int {
		return a.Index - b.Index
	})
	return out
}
