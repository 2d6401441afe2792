package line

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for a non-positive width or absent text.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrOverflow means a multi-word job cannot fit its width even with
	// single separators. Split never produces such a job.
	ErrOverflow = errors.New("line overflow")
)

// Job はひとつの出力行に対応する単語グループ
type Job struct {
	Index          int      // 元テキスト内の行番号（0始まり）
	Words          []string // 空でない単語列
	TotalWordChars int      // 単語の文字数合計（rune単位）
	Width          int      // 目標幅
}

// Result は位置揃え済みの一行
type Result struct {
	Index int
	Text  string
}

// JustifyFunc はジョブを一行の文字列に変換する関数
type JustifyFunc func(ctx context.Context, job Job, sep rune) (string, error)

// Justifier は Justify を JustifyFunc として返す
func Justifier() JustifyFunc {
	return func(_ context.Context, job Job, sep rune) (string, error) {
		return Justify(job, sep)
	}
}

func (j Job) String() string {
	return fmt.Sprintf("line %d (%d words, %d/%d chars)", j.Index, len(j.Words), j.TotalWordChars, j.Width)
}
