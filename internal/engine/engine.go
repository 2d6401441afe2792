package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/text/unicode/norm"

	"linefit/internal/events"
	"linefit/internal/line"
	"linefit/internal/logger"
	"linefit/internal/metrics"
)

// Config はエンジンの設定
type Config struct {
	Workers     int           // ワーカー数（0でCPU数、1で逐次）
	QueueFactor int           // キューサイズ = Workers * QueueFactor
	Timeout     time.Duration // 一回の実行の上限（0で無制限）
	Exclusive   bool          // true なら同時実行を ErrAlreadyRunning で拒否
	Separator   rune          // 単語間を埋める文字
	Newline     string        // 行の区切り
	Normalize   bool          // 分割前に NFC 正規化する
	StopGrace   time.Duration // 失敗・キャンセル後にワーカーの終了を待つ上限（0で既定値）
}

// defaultStopGrace は StopGrace 未指定時の待ち時間
const defaultStopGrace = 200 * time.Millisecond

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Workers:     0,
		QueueFactor: 16,
		Separator:   ' ',
		Newline:     line.DefaultNewline(),
	}
}

// Engine はテキストを固定幅の行に整形する
//
// 呼び出しごとに独立したキュー・ワーカープール・Collector を作るため、
// Exclusive でなければ同じ Engine を並行に使ってよい。
// Set* は Transform を呼ぶ前に設定すること。
type Engine struct {
	config   Config
	justify  line.JustifyFunc
	eventBus *events.Bus
	metrics  *metrics.Metrics
	log      *logger.Logger

	running atomic.Bool
	active  atomic.Int32
}

// New は新しい Engine を作成する
func New(config Config) *Engine {
	if config.Separator == 0 {
		config.Separator = ' '
	}
	if config.Newline == "" {
		config.Newline = line.DefaultNewline()
	}
	if config.StopGrace <= 0 {
		config.StopGrace = defaultStopGrace
	}
	return &Engine{
		config:  config,
		justify: line.Justifier(),
		metrics: metrics.New(),
		log:     logger.Default,
	}
}

// SetEventBus はイベントバスを設定する
func (e *Engine) SetEventBus(bus *events.Bus) {
	e.eventBus = bus
}

// SetMetrics はメトリクスの集計先を設定する
func (e *Engine) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

// SetLogger はロガーを設定する
func (e *Engine) SetLogger(l *logger.Logger) {
	e.log = l
}

// SetJustifier は行の整形関数を差し替える（障害注入用）
func (e *Engine) SetJustifier(fn line.JustifyFunc) {
	e.justify = fn
}

// Config は設定を返す
func (e *Engine) Config() Config {
	return e.config
}

// Metrics はメトリクスを返す
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// ActiveRuns は実行中の Transform の数を返す
func (e *Engine) ActiveRuns() int {
	return int(e.active.Load())
}

// IsRunning は実行中の Transform があるかを返す
func (e *Engine) IsRunning() bool {
	return e.ActiveRuns() > 0
}

// Request は入力の欠落を表現できる Transform の引数
type Request struct {
	Text  *string `json:"text"`
	Width int     `json:"width"`
}

// Do は Request を検証して Transform を呼ぶ
func (e *Engine) Do(ctx context.Context, req Request) (string, error) {
	if req.Text == nil {
		return "", fmt.Errorf("%w: text is required", ErrInvalidArgument)
	}
	return e.Transform(ctx, *req.Text, req.Width)
}

// Transform は text を width 幅の行に整形して改行で連結する
//
// 失敗時は部分的な結果を返さない。ctx のキャンセルやタイムアウトは
// ErrCancelled、ワーカーの失敗は ErrWorkerFailure になる。
func (e *Engine) Transform(ctx context.Context, text string, width int) (string, error) {
	if width <= 0 {
		return "", fmt.Errorf("%w: width must be positive, got %d", ErrInvalidArgument, width)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if e.config.Exclusive {
		if !e.running.CompareAndSwap(false, true) {
			return "", ErrAlreadyRunning
		}
		defer e.running.Store(false)
	}

	e.active.Add(1)
	defer e.active.Add(-1)

	if e.config.Normalize {
		text = norm.NFC.String(text)
	}

	jobs, err := line.Split(text, width)
	if err != nil {
		return "", err
	}
	if len(jobs) == 0 {
		return "", nil
	}

	return e.newRun(width, len(jobs)).execute(ctx, jobs)
}

// publishEvent はイベントを発行する
func (e *Engine) publishEvent(event events.Event) {
	if e.eventBus != nil {
		e.eventBus.Publish(event)
	}
}
