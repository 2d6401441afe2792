package metrics

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Config はメトリクスの設定
type Config struct {
	MaxLatencySamples int // P99 算出に保持する行レイテンシの最大数
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{MaxLatencySamples: 1000}
}

// Metrics は行の整形と実行結果の統計を収集する
type Metrics struct {
	linesOK        atomic.Uint64
	linesFailed    atomic.Uint64
	runsOK         atomic.Uint64
	runsFailed     atomic.Uint64
	runsCancelled  atomic.Uint64
	totalLatencyNs atomic.Uint64

	mu                sync.RWMutex
	startTime         time.Time
	lastResetTime     time.Time
	windowLines       uint64
	latencies         []time.Duration
	maxLatencySamples int
	lastRun           time.Duration
}

// New は新しいメトリクスを作成する
func New() *Metrics {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig は設定を指定してメトリクスを作成する
func NewWithConfig(config Config) *Metrics {
	if config.MaxLatencySamples <= 0 {
		config.MaxLatencySamples = DefaultConfig().MaxLatencySamples
	}
	now := time.Now()
	return &Metrics{
		startTime:         now,
		lastResetTime:     now,
		latencies:         make([]time.Duration, 0, config.MaxLatencySamples),
		maxLatencySamples: config.MaxLatencySamples,
	}
}

// RecordLine は整形に成功した行を記録する
func (m *Metrics) RecordLine(latency time.Duration) {
	m.linesOK.Add(1)
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	m.mu.Lock()
	m.windowLines++
	if len(m.latencies) < m.maxLatencySamples {
		m.latencies = append(m.latencies, latency)
	}
	m.mu.Unlock()
}

// RecordLineFailure は整形に失敗した行を記録する
func (m *Metrics) RecordLineFailure(latency time.Duration) {
	m.linesFailed.Add(1)
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	m.mu.Lock()
	m.windowLines++
	m.mu.Unlock()
}

// RunOutcome は実行の終わり方
type RunOutcome int

const (
	RunSucceeded RunOutcome = iota
	RunFailed
	RunCancelled
)

// RecordRun は一回の Transform の結果を記録する
func (m *Metrics) RecordRun(outcome RunOutcome, elapsed time.Duration) {
	switch outcome {
	case RunSucceeded:
		m.runsOK.Add(1)
	case RunCancelled:
		m.runsCancelled.Add(1)
	default:
		m.runsFailed.Add(1)
	}

	m.mu.Lock()
	m.lastRun = elapsed
	m.mu.Unlock()
}

// TotalLines は処理した行数を返す
func (m *Metrics) TotalLines() uint64 {
	return m.linesOK.Load() + m.linesFailed.Load()
}

// FailedLines は失敗した行数を返す
func (m *Metrics) FailedLines() uint64 {
	return m.linesFailed.Load()
}

// LinesPerSecond は現在のウィンドウでの毎秒行数を返す
func (m *Metrics) LinesPerSecond() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	elapsed := time.Since(m.lastResetTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.windowLines) / elapsed
}

// AverageLatency は行あたりの平均レイテンシを返す
func (m *Metrics) AverageLatency() time.Duration {
	total := m.TotalLines()
	if total == 0 {
		return 0
	}
	return time.Duration(m.totalLatencyNs.Load() / total)
}

// P99Latency はP99レイテンシを返す（サンプルベース）
func (m *Metrics) P99Latency() time.Duration {
	m.mu.RLock()
	sorted := slices.Clone(m.latencies)
	m.mu.RUnlock()

	if len(sorted) == 0 {
		return 0
	}
	slices.Sort(sorted)

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// ErrorRate は行の失敗率を返す（0.0〜1.0）
func (m *Metrics) ErrorRate() float64 {
	total := m.TotalLines()
	if total == 0 {
		return 0
	}
	return float64(m.linesFailed.Load()) / float64(total)
}

// Reset はウィンドウメトリクスをリセットする
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.windowLines = 0
	m.lastResetTime = time.Now()
	m.latencies = m.latencies[:0]
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	TotalLines     uint64        `json:"total_lines"`
	FailedLines    uint64        `json:"failed_lines"`
	RunsSucceeded  uint64        `json:"runs_succeeded"`
	RunsFailed     uint64        `json:"runs_failed"`
	RunsCancelled  uint64        `json:"runs_cancelled"`
	LinesPerSecond float64       `json:"lines_per_second"`
	AverageLatency time.Duration `json:"average_latency_ns"`
	P99Latency     time.Duration `json:"p99_latency_ns"`
	LastRun        time.Duration `json:"last_run_ns"`
	ErrorRate      float64       `json:"error_rate"`
	Elapsed        time.Duration `json:"elapsed_ns"`
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	lastRun := m.lastRun
	m.mu.RUnlock()

	return Snapshot{
		TotalLines:     m.TotalLines(),
		FailedLines:    m.FailedLines(),
		RunsSucceeded:  m.runsOK.Load(),
		RunsFailed:     m.runsFailed.Load(),
		RunsCancelled:  m.runsCancelled.Load(),
		LinesPerSecond: m.LinesPerSecond(),
		AverageLatency: m.AverageLatency(),
		P99Latency:     m.P99Latency(),
		LastRun:        lastRun,
		ErrorRate:      m.ErrorRate(),
		Elapsed:        time.Since(m.startTime),
	}
}

// Report は人が読むための要約を返す
func (s Snapshot) Report() string {
	var sb strings.Builder
	sb.WriteString("=== linefit stats ===\n")
	fmt.Fprintf(&sb, "Lines:      %d (failed: %d, error rate: %.2f%%)\n",
		s.TotalLines, s.FailedLines, s.ErrorRate*100)
	fmt.Fprintf(&sb, "Runs:       %d ok, %d failed, %d cancelled\n",
		s.RunsSucceeded, s.RunsFailed, s.RunsCancelled)
	fmt.Fprintf(&sb, "Latency:    avg %v, p99 %v\n", s.AverageLatency, s.P99Latency)
	fmt.Fprintf(&sb, "Last run:   %v\n", s.LastRun)
	fmt.Fprintf(&sb, "Throughput: %.1f lines/s", s.LinesPerSecond)
	return sb.String()
}
