package line

import (
	"runtime"
	"slices"
	"strings"
)

// DefaultNewline はプラットフォーム標準の改行を返す
func DefaultNewline() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

// Join は結果を Index 順に並べて改行で連結する（末尾に改行は付けない）
func Join(results []Result, newline string) string {
	sorted := slices.Clone(results)
	slices.SortFunc(sorted, func(a, b Result) int {
		return a.Index - b.Index
	})

	texts := make([]string, len(sorted))
	for i, r := range sorted {
		texts[i] = r.Text
	}
	return strings.Join(texts, newline)
}
