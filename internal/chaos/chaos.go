package chaos

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"linefit/internal/line"
	"linefit/internal/logger"
)

// ErrInjected は注入された失敗を表す
var ErrInjected = errors.New("injected fault")

// FaultType は障害の種類を表す
type FaultType int

const (
	FaultDelay FaultType = iota
	FaultFail
	FaultPanic
)

func (f FaultType) String() string {
	switch f {
	case FaultDelay:
		return "delay"
	case FaultFail:
		return "fail"
	case FaultPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// ParseFaultType は文字列を障害タイプに変換する
func ParseFaultType(s string) (FaultType, error) {
	switch s {
	case "delay":
		return FaultDelay, nil
	case "fail":
		return FaultFail, nil
	case "panic":
		return FaultPanic, nil
	default:
		return 0, fmt.Errorf("unknown fault type: %s", s)
	}
}

// Config は障害注入の設定
type Config struct {
	Delay      time.Duration // Delay 障害の遅延時間
	DelayLines []int         // 遅延させる行番号
	FailLines  []int         // エラーを返す行番号
	PanicLines []int         // panic させる行番号
}

// DefaultConfig はデフォルト設定を返す（障害なし）
func DefaultConfig() Config {
	return Config{
		Delay: 100 * time.Millisecond,
	}
}

// Enabled は何らかの障害が設定されているかを返す
func (c Config) Enabled() bool {
	return len(c.DelayLines) > 0 || len(c.FailLines) > 0 || len(c.PanicLines) > 0
}

// Stats は注入した障害の統計情報
type Stats struct {
	TotalFaults uint64            `json:"total_faults"`
	ByType      map[string]uint64 `json:"faults_by_type"`
}

// Injector は整形関数に障害を注入する
type Injector struct {
	config Config

	mu         sync.Mutex
	faultCount uint64
	byType     map[FaultType]uint64
}

// New は新しい Injector を作成する
func New(config Config) *Injector {
	return &Injector{
		config: config,
		byType: make(map[FaultType]uint64),
	}
}

// Wrap は next の前に障害を差し込んだ整形関数を返す
// 遅延は ctx のキャンセルで打ち切られる
func (i *Injector) Wrap(next line.JustifyFunc) line.JustifyFunc {
	return func(ctx context.Context, job line.Job, sep rune) (string, error) {
		if slices.Contains(i.config.DelayLines, job.Index) {
			i.record(FaultDelay, job.Index)
			timer := time.NewTimer(i.config.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}

		if slices.Contains(i.config.PanicLines, job.Index) {
			i.record(FaultPanic, job.Index)
			panic(fmt.Sprintf("chaos: injected panic on line %d", job.Index))
		}

		if slices.Contains(i.config.FailLines, job.Index) {
			i.record(FaultFail, job.Index)
			return "", fmt.Errorf("%w on line %d", ErrInjected, job.Index)
		}

		return next(ctx, job, sep)
	}
}

// record は障害を記録する
func (i *Injector) record(f FaultType, index int) {
	i.mu.Lock()
	i.faultCount++
	i.byType[f]++
	i.mu.Unlock()

	logger.Warn("chaos", "Injected %s on line %d", f, index)
}

// Stats は統計情報を返す
func (i *Injector) Stats() Stats {
	i.mu.Lock()
	defer i.mu.Unlock()

	byType := make(map[string]uint64, len(i.byType))
	for f, n := range i.byType {
		byType[f.String()] = n
	}
	return Stats{
		TotalFaults: i.faultCount,
		ByType:      byType,
	}
}
