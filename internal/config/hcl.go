package config

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// HCL ではブロック・属性ともに省略可能なのでポインタで受ける
type hclFile struct {
	Parameters *hclParameters `hcl:"parameters,block"`
	Engine     *hclEngine     `hcl:"engine,block"`
	Log        *hclLog        `hcl:"log,block"`
	Chaos      *hclChaos      `hcl:"chaos,block"`
}

type hclParameters struct {
	Text      *string `hcl:"text,optional"`
	LineWidth *int    `hcl:"line_width,optional"`
}

type hclEngine struct {
	Workers     *int    `hcl:"workers,optional"`
	QueueFactor *int    `hcl:"queue_factor,optional"`
	Timeout     *string `hcl:"timeout,optional"`
	Exclusive   *bool   `hcl:"exclusive,optional"`
	Separator   *string `hcl:"separator,optional"`
	Newline     *string `hcl:"newline,optional"`
	Normalize   *bool   `hcl:"normalize,optional"`
}

type hclLog struct {
	Level *string `hcl:"level,optional"`
}

type hclChaos struct {
	Enabled    *bool   `hcl:"enabled,optional"`
	Delay      *string `hcl:"delay,optional"`
	DelayLines []int   `hcl:"delay_lines,optional"`
	FailLines  []int   `hcl:"fail_lines,optional"`
	PanicLines []int   `hcl:"panic_lines,optional"`
}

// loadHCL は HCL の設定ファイルを読み込む
// 式の中では env.NAME で環境変数を参照できる
func loadHCL(path string) (*FileConfig, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(file.Body, envEvalContext(), &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	return parsed.toFileConfig(), nil
}

// envEvalContext は環境変数を env オブジェクトとして公開する
func envEvalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, e := range os.Environ() {
		name, value, ok := strings.Cut(e, "=")
		if !ok || name == "" || !utf8.ValidString(name) || !utf8.ValidString(value) {
			continue
		}
		vars[name] = cty.StringVal(value)
	}

	env := cty.EmptyObjectVal
	if len(vars) > 0 {
		env = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": env},
	}
}

func (h *hclFile) toFileConfig() *FileConfig {
	var config FileConfig

	if p := h.Parameters; p != nil {
		config.Parameters.Text = p.Text
		set(&config.Parameters.LineWidth, p.LineWidth)
	}

	if e := h.Engine; e != nil {
		set(&config.Engine.Workers, e.Workers)
		set(&config.Engine.QueueFactor, e.QueueFactor)
		set(&config.Engine.Timeout, e.Timeout)
		set(&config.Engine.Exclusive, e.Exclusive)
		set(&config.Engine.Separator, e.Separator)
		set(&config.Engine.Newline, e.Newline)
		set(&config.Engine.Normalize, e.Normalize)
	}

	if l := h.Log; l != nil {
		set(&config.Log.Level, l.Level)
	}

	if c := h.Chaos; c != nil {
		set(&config.Chaos.Enabled, c.Enabled)
		set(&config.Chaos.Delay, c.Delay)
		config.Chaos.DelayLines = c.DelayLines
		config.Chaos.FailLines = c.FailLines
		config.Chaos.PanicLines = c.PanicLines
	}

	return &config
}

// set は src が指定されていれば dst に書き込む
func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
