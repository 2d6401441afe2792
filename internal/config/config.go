package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"linefit/internal/chaos"
	"linefit/internal/engine"
	"linefit/internal/logger"

	"gopkg.in/yaml.v3"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Parameters ParametersConfig `yaml:"parameters" json:"parameters"`
	Engine     EngineConfig     `yaml:"engine" json:"engine"`
	Log        LogConfig        `yaml:"log" json:"log"`
	Chaos      ChaosConfig      `yaml:"chaos" json:"chaos"`
}

// ParametersConfig は入力パラメータ
// Text は空文字列と未指定を区別するためポインタにする
type ParametersConfig struct {
	Text      *string `yaml:"text" json:"text"`
	LineWidth int     `yaml:"line_width" json:"line_width"`
}

// EngineConfig はエンジン設定
type EngineConfig struct {
	Workers     int    `yaml:"workers" json:"workers"`
	QueueFactor int    `yaml:"queue_factor" json:"queue_factor"`
	Timeout     string `yaml:"timeout" json:"timeout"`
	Exclusive   bool   `yaml:"exclusive" json:"exclusive"`
	Separator   string `yaml:"separator" json:"separator"`
	Newline     string `yaml:"newline" json:"newline"`
	Normalize   bool   `yaml:"normalize" json:"normalize"`
}

// LogConfig はログ設定
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// ChaosConfig は障害注入の設定
type ChaosConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	Delay      string `yaml:"delay" json:"delay"`
	DelayLines []int  `yaml:"delay_lines" json:"delay_lines"`
	FailLines  []int  `yaml:"fail_lines" json:"fail_lines"`
	PanicLines []int  `yaml:"panic_lines" json:"panic_lines"`
}

// DefaultFiles は -config 未指定時に作業ディレクトリで探すファイル名（優先順）
var DefaultFiles = []string{
	"linefit.yaml",
	"linefit.yml",
	"linefit.json",
	"linefit.hcl",
	"appsettings.json",
}

// FindDefault は dir 内の既定の設定ファイルを探す
// 見つからなければ空文字列を返す
func FindDefault(dir string) string {
	for _, name := range DefaultFiles {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".hcl" {
		return loadHCL(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if strings.EqualFold(filepath.Base(path), "appsettings.json") {
			return parseAppSettings(data)
		}
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// appSettings は Parameters セクションだけを持つ旧形式
type appSettings struct {
	Parameters struct {
		Text      *string `json:"Text"`
		LineWidth int     `json:"LineWidth"`
	} `json:"Parameters"`
}

func parseAppSettings(data []byte) (*FileConfig, error) {
	var settings appSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &FileConfig{
		Parameters: ParametersConfig{
			Text:      settings.Parameters.Text,
			LineWidth: settings.Parameters.LineWidth,
		},
	}, nil
}

// Params は入力テキストと行幅を返す
// どちらかが欠けていれば engine.ErrInvalidArgument
func (f *FileConfig) Params() (string, int, error) {
	p := f.Parameters
	if p.Text == nil {
		return "", 0, fmt.Errorf("%w: parameters.text is required", engine.ErrInvalidArgument)
	}
	if p.LineWidth <= 0 {
		return "", 0, fmt.Errorf("%w: parameters.line_width must be positive, got %d",
			engine.ErrInvalidArgument, p.LineWidth)
	}
	return *p.Text, p.LineWidth, nil
}

// ToEngineConfig は FileConfig を engine.Config に変換する
func (f *FileConfig) ToEngineConfig() (engine.Config, error) {
	ec := f.Engine

	// デフォルト値の設定
	config := engine.DefaultConfig()

	if ec.Workers > 0 {
		config.Workers = ec.Workers
	}
	if ec.QueueFactor > 0 {
		config.QueueFactor = ec.QueueFactor
	}
	if ec.Timeout != "" {
		d, err := time.ParseDuration(ec.Timeout)
		if err != nil {
			return config, fmt.Errorf("invalid engine timeout: %w", err)
		}
		config.Timeout = d
	}
	config.Exclusive = ec.Exclusive
	config.Normalize = ec.Normalize

	if ec.Separator != "" {
		r, err := ParseSeparator(ec.Separator)
		if err != nil {
			return config, err
		}
		config.Separator = r
	}
	if ec.Newline != "" {
		config.Newline = ParseNewline(ec.Newline)
	}

	return config, nil
}

// ToChaosConfig は FileConfig を chaos.Config に変換する
// 無効なら空の設定を返す
func (f *FileConfig) ToChaosConfig() (chaos.Config, error) {
	cc := f.Chaos
	if !cc.Enabled {
		return chaos.Config{}, nil
	}

	config := chaos.DefaultConfig()
	if cc.Delay != "" {
		d, err := time.ParseDuration(cc.Delay)
		if err != nil {
			return config, fmt.Errorf("invalid chaos delay: %w", err)
		}
		config.Delay = d
	}
	config.DelayLines = cc.DelayLines
	config.FailLines = cc.FailLines
	config.PanicLines = cc.PanicLines

	return config, nil
}

// LogLevel はログレベルを返す（未指定なら Info）
func (f *FileConfig) LogLevel() (logger.Level, error) {
	if f.Log.Level == "" {
		return logger.LevelInfo, nil
	}
	return logger.ParseLevel(f.Log.Level)
}

// ParseSeparator は一文字の区切り文字を解釈する
func ParseSeparator(s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("separator must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// ParseNewline は改行の指定を解釈する
// "lf" / "crlf" はキーワード、それ以外はそのまま使う
func ParseNewline(s string) string {
	switch strings.ToLower(s) {
	case "lf", `\n`:
		return "\n"
	case "crlf", `\r\n`:
		return "\r\n"
	default:
		return s
	}
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	if f.Engine.Workers < 0 {
		return fmt.Errorf("engine.workers must be non-negative")
	}

	if f.Engine.QueueFactor < 0 {
		return fmt.Errorf("engine.queue_factor must be non-negative")
	}

	if f.Parameters.LineWidth < 0 {
		return fmt.Errorf("parameters.line_width must be non-negative")
	}

	if f.Engine.Timeout != "" {
		if d, err := time.ParseDuration(f.Engine.Timeout); err != nil {
			return fmt.Errorf("engine.timeout: %w", err)
		} else if d < 0 {
			return fmt.Errorf("engine.timeout must be non-negative")
		}
	}

	if f.Engine.Separator != "" {
		if _, err := ParseSeparator(f.Engine.Separator); err != nil {
			return fmt.Errorf("engine.separator: %w", err)
		}
	}

	if _, err := f.LogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	if f.Chaos.Delay != "" {
		if _, err := time.ParseDuration(f.Chaos.Delay); err != nil {
			return fmt.Errorf("chaos.delay: %w", err)
		}
	}

	for _, lines := range [][]int{f.Chaos.DelayLines, f.Chaos.FailLines, f.Chaos.PanicLines} {
		for _, idx := range lines {
			if idx < 0 {
				return fmt.Errorf("chaos line indices must be non-negative, got %d", idx)
			}
		}
	}

	return nil
}
