package line

import (
	"fmt"
	"strings"
)

// Justify は単語間に区切り文字を配分して幅ちょうどの行を作る
//
// 余りの区切りは左側の隙間から1つずつ上乗せされる。
// 単語1つだけの行は右側を埋める。幅を超える単語1つの行はそのまま返す。
func Justify(job Job, sep rune) (string, error) {
	n := len(job.Words)
	if n == 0 {
		return "", fmt.Errorf("%w: %v has no words", ErrInvalidArgument, job)
	}

	gaps := n - 1
	slack := job.Width - (job.TotalWordChars + gaps)

	switch {
	case slack < 0 && n > 1:
		return "", fmt.Errorf("%w: %v", ErrOverflow, job)
	case slack < 0:
		return job.Words[0], nil
	case slack == 0:
		return strings.Join(job.Words, string(sep)), nil
	}

	total := job.Width - job.TotalWordChars
	if n == 1 {
		return job.Words[0] + strings.Repeat(string(sep), total), nil
	}

	base := total / gaps
	remainder := total % gaps

	var sb strings.Builder
	for i, word := range job.Words {
		sb.WriteString(word)
		if i == gaps {
			break
		}
		width := base
		if i < remainder {
			width++
		}
		for range width {
			sb.WriteRune(sep)
		}
	}
	return sb.String(), nil
}
