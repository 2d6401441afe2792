package line

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Split はテキストを幅に収まる単語グループに分割する
//
// 単語は空白の連続で区切られ、空白自体は出力に残らない。
// 既に置いた単語ごとに最低1文字の区切りを確保したうえで、
// 次の単語が収まらなくなった時点で行を確定する。
// 幅を超える単語は単独の行になる（切り詰めない）。
func Split(text string, width int) ([]Job, error) {
	if width <= 0 {
		return nil, fmt.Errorf("%w: width must be positive, got %d", ErrInvalidArgument, width)
	}

	var (
		jobs  []Job
		words []string
		chars int
	)

	flush := func() {
		jobs = append(jobs, Job{
			Index:          len(jobs),
			Words:          words,
			TotalWordChars: chars,
			Width:          width,
		})
		words = nil
		chars = 0
	}

	for _, word := range strings.Fields(text) {
		n := utf8.RuneCountInString(word)
		if len(words) > 0 && chars+n+len(words) > width {
			flush()
		}
		words = append(words, word)
		chars += n
	}

	if len(words) > 0 {
		flush()
	}

	return jobs, nil
}
