// Package main is the entry point for linefit.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linefit/internal/api"
	"linefit/internal/chaos"
	"linefit/internal/config"
	"linefit/internal/engine"
	"linefit/internal/events"
	"linefit/internal/line"
	"linefit/internal/logger"
)

var (
	version = "dev"
)

// options はコマンドラインフラグの値
// text は -text が指定されたときだけ非 nil
type options struct {
	configFile string
	text       *string
	width      int
	workers    int
	separator  string
	newline    string
	timeout    time.Duration
	logLevel   string
	normalize  bool
	exclusive  bool
}

// settings は設定ファイルとフラグを合成した結果
type settings struct {
	source string
	engine engine.Config
	chaos  chaos.Config
	level  logger.Level
	text   *string
	width  int
}

func main() {
	// フラグ定義
	var (
		configFile  = flag.String("config", "", "設定ファイルパス (YAML/JSON/HCL)")
		text        = flag.String("text", "", "整形するテキスト (- で標準入力から読む)")
		width       = flag.Int("width", 0, "行幅（文字数）")
		workers     = flag.Int("workers", 0, "ワーカー数 (0でCPU数)")
		separator   = flag.String("sep", "", "単語間を埋める文字 (既定: 空白)")
		newline     = flag.String("newline", "", "行の区切り (lf, crlf)")
		timeout     = flag.Duration("timeout", 0, "一回の実行の上限 (例: 5s)")
		logLevel    = flag.String("log-level", "", "ログレベル (debug, info, warn, error)")
		normalize   = flag.Bool("normalize", false, "分割前に NFC 正規化する")
		showStats   = flag.Bool("stats", false, "実行後に統計を標準エラーに表示")
		showVersion = flag.Bool("version", false, "バージョンを表示")
		serverMode  = flag.Bool("server", false, "HTTP API サーバーモードで起動")
		serverAddr  = flag.String("addr", ":8080", "サーバーアドレス (例: :8080, 0.0.0.0:3000)")
		exclusive   = flag.Bool("exclusive", false, "同時実行を拒否する")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `linefit - Concurrent text justification

Usage:
  linefit [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # テキストを 21 文字幅に整形
  linefit -text "Слово второе слово" -width 21

  # 設定ファイルから実行（未指定なら linefit.yaml / appsettings.json を探す）
  linefit -config linefit.yaml

  # 標準入力から読み、区切り文字を + にする
  cat input.txt | linefit -text - -width 40 -sep +

  # HTTP API サーバーモードで起動
  linefit -server -addr :3000
`)
	}

	flag.Parse()

	// バージョン表示
	if *showVersion {
		fmt.Printf("linefit version %s\n", version)
		return
	}

	opts := options{
		configFile: *configFile,
		width:      *width,
		workers:    *workers,
		separator:  *separator,
		newline:    *newline,
		timeout:    *timeout,
		logLevel:   *logLevel,
		normalize:  *normalize,
		exclusive:  *exclusive,
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "text" {
			opts.text = text
		}
	})

	if opts.text != nil && *opts.text == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Error("", "標準入力の読み込みエラー: %v", err)
			os.Exit(1)
		}
		input := string(data)
		opts.text = &input
	}

	cwd, _ := os.Getwd()
	s, err := buildSettings(opts, cwd)
	if err != nil {
		logger.Error("", "設定エラー: %v", err)
		os.Exit(exitCode(err))
	}
	logger.Default.SetLevel(s.level)
	if s.source != "" {
		logger.Debug("", "Loaded config from %s", s.source)
	}

	// シグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n中断シグナルを受信、終了中...")
		cancel()
	}()

	// HTTP API サーバーモード
	if *serverMode {
		if err := runServer(ctx, *serverAddr, s); err != nil {
			logger.Error("", "サーバーエラー: %v", err)
			os.Exit(1)
		}
		return
	}

	eng, injector := newEngine(s, nil)
	out, err := eng.Do(ctx, engine.Request{Text: s.text, Width: s.width})
	if *showStats {
		printStats(os.Stderr, eng, injector)
	}
	if err != nil {
		logger.Error("", "整形エラー (%s): %v", engine.Kind(err), err)
		os.Exit(exitCode(err))
	}

	if out != "" {
		fmt.Print(out + eng.Config().Newline)
	}
}

// buildSettings は設定を構築する
// 優先順位: フラグ > 設定ファイル > デフォルト
func buildSettings(opts options, dir string) (settings, error) {
	s := settings{
		engine: engine.DefaultConfig(),
		level:  logger.LevelInfo,
	}

	// 1. 設定ファイル（未指定なら作業ディレクトリの既定ファイル）
	path := opts.configFile
	if path == "" && (opts.text == nil || opts.width <= 0) {
		path = config.FindDefault(dir)
	}
	if path != "" {
		fileConfig, err := config.LoadFile(path)
		if err != nil {
			return s, fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
		if err := fileConfig.Validate(); err != nil {
			return s, fmt.Errorf("設定検証エラー: %w", err)
		}
		if s.engine, err = fileConfig.ToEngineConfig(); err != nil {
			return s, fmt.Errorf("設定変換エラー: %w", err)
		}
		if s.chaos, err = fileConfig.ToChaosConfig(); err != nil {
			return s, fmt.Errorf("設定変換エラー: %w", err)
		}
		if s.level, err = fileConfig.LogLevel(); err != nil {
			return s, fmt.Errorf("設定変換エラー: %w", err)
		}
		s.source = path
		s.text = fileConfig.Parameters.Text
		s.width = fileConfig.Parameters.LineWidth
	}

	// 2. フラグでオーバーライド
	if opts.text != nil {
		s.text = opts.text
	}
	if opts.width != 0 {
		s.width = opts.width
	}
	if opts.workers > 0 {
		s.engine.Workers = opts.workers
	}
	if opts.separator != "" {
		r, err := config.ParseSeparator(opts.separator)
		if err != nil {
			return s, fmt.Errorf("%w: -sep: %w", engine.ErrInvalidArgument, err)
		}
		s.engine.Separator = r
	}
	if opts.newline != "" {
		s.engine.Newline = config.ParseNewline(opts.newline)
	}
	if opts.timeout > 0 {
		s.engine.Timeout = opts.timeout
	}
	if opts.logLevel != "" {
		level, err := logger.ParseLevel(opts.logLevel)
		if err != nil {
			return s, fmt.Errorf("%w: -log-level: %w", engine.ErrInvalidArgument, err)
		}
		s.level = level
	}
	if opts.normalize {
		s.engine.Normalize = true
	}
	if opts.exclusive {
		s.engine.Exclusive = true
	}

	return s, nil
}

// newEngine は設定からエンジンを組み立てる
// 障害注入が有効なら整形関数を Injector で包む
func newEngine(s settings, bus *events.Bus) (*engine.Engine, *chaos.Injector) {
	eng := engine.New(s.engine)
	if bus != nil {
		eng.SetEventBus(bus)
	}

	if !s.chaos.Enabled() {
		return eng, nil
	}
	injector := chaos.New(s.chaos)
	eng.SetJustifier(injector.Wrap(line.Justifier()))
	logger.Warn("", "Chaos enabled: delay=%v, fail=%v, panic=%v",
		s.chaos.DelayLines, s.chaos.FailLines, s.chaos.PanicLines)
	return eng, injector
}

// exitCode は入力エラーなら 2、それ以外は 1 を返す
func exitCode(err error) int {
	if errors.Is(err, engine.ErrInvalidArgument) {
		return 2
	}
	return 1
}

func printStats(w io.Writer, eng *engine.Engine, injector *chaos.Injector) {
	if m := eng.Metrics(); m != nil {
		fmt.Fprintln(w, m.Snapshot().Report())
	}
	if injector != nil {
		stats := injector.Stats()
		fmt.Fprintf(w, "Chaos:      %d faults %v\n", stats.TotalFaults, stats.ByType)
	}
}

// runServer は HTTP API サーバーを起動する
func runServer(ctx context.Context, addr string, s settings) error {
	fmt.Println("linefit - HTTP API Server")
	fmt.Println("=========================")
	fmt.Printf("Starting server on http://%s\n", addr)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	bus := events.NewBus()
	defer bus.Close()

	eng, _ := newEngine(s, bus)
	server := api.NewServer(addr, eng, bus)
	return server.Start(ctx)
}
