package line

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []Job
	}{
		{
			name:  "single line",
			text:  "one two three",
			width: 20,
			want: []Job{
				{Index: 0, Words: []string{"one", "two", "three"}, TotalWordChars: 11, Width: 20},
			},
		},
		{
			name:  "exact fit keeps word on line",
			text:  "aaa bbb ccc",
			width: 7,
			want: []Job{
				{Index: 0, Words: []string{"aaa", "bbb"}, TotalWordChars: 6, Width: 7},
				{Index: 1, Words: []string{"ccc"}, TotalWordChars: 3, Width: 7},
			},
		},
		{
			name:  "overlong word stands alone",
			text:  "a verylongword b",
			width: 5,
			want: []Job{
				{Index: 0, Words: []string{"a"}, TotalWordChars: 1, Width: 5},
				{Index: 1, Words: []string{"verylongword"}, TotalWordChars: 12, Width: 5},
				{Index: 2, Words: []string{"b"}, TotalWordChars: 1, Width: 5},
			},
		},
		{
			name:  "whitespace runs are delimiters",
			text:  "  one\t\ttwo\n three  ",
			width: 20,
			want: []Job{
				{Index: 0, Words: []string{"one", "two", "three"}, TotalWordChars: 11, Width: 20},
			},
		},
		{
			name:  "runes not bytes",
			text:  "Слово второе слово",
			width: 20,
			want: []Job{
				{Index: 0, Words: []string{"Слово", "второе", "слово"}, TotalWordChars: 16, Width: 20},
			},
		},
		{
			name:  "empty text",
			text:  "",
			width: 10,
			want:  nil,
		},
		{
			name:  "blank text",
			text:  " \n\t ",
			width: 10,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.text, tt.width)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Split mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitInvalidWidth(t *testing.T) {
	for _, width := range []int{0, -1, -100} {
		for _, text := range []string{"", "some text"} {
			_, err := Split(text, width)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Split(%q, %d): expected ErrInvalidArgument, got %v", text, width, err)
			}
		}
	}
}

func TestJustify(t *testing.T) {
	tests := []struct {
		name string
		job  Job
		sep  rune
		want string
	}{
		{
			name: "single word padded right",
			job:  Job{Words: []string{"Word"}, TotalWordChars: 4, Width: 10},
			sep:  ' ',
			want: "Word      ",
		},
		{
			name: "single cyrillic word padded right",
			job:  Job{Words: []string{"Слово"}, TotalWordChars: 5, Width: 10},
			sep:  ' ',
			want: "Слово     ",
		},
		{
			name: "even distribution",
			job:  Job{Words: []string{"Слово", "второе", "слово"}, TotalWordChars: 16, Width: 20},
			sep:  ' ',
			want: "Слово  второе  слово",
		},
		{
			name: "front-loaded remainder",
			job:  Job{Words: []string{"Слово", "второе", "слово"}, TotalWordChars: 16, Width: 21},
			sep:  ' ',
			want: "Слово   второе  слово",
		},
		{
			name: "visible separator",
			job:  Job{Words: []string{"Слово", "второе", "слово"}, TotalWordChars: 16, Width: 21},
			sep:  '+',
			want: "Слово+++второе++слово",
		},
		{
			name: "ascii remainder one",
			job:  Job{Words: []string{"one", "two", "three"}, TotalWordChars: 11, Width: 20},
			sep:  ' ',
			want: "one     two    three",
		},
		{
			name: "ascii even",
			job:  Job{Words: []string{"one", "two", "three"}, TotalWordChars: 11, Width: 21},
			sep:  ' ',
			want: "one     two     three",
		},
		{
			name: "zero slack",
			job:  Job{Words: []string{"one", "two", "three"}, TotalWordChars: 11, Width: 13},
			sep:  ' ',
			want: "one two three",
		},
		{
			name: "remainder over several gaps",
			job:  Job{Words: []string{"a", "b", "c", "d", "e"}, TotalWordChars: 5, Width: 12},
			sep:  '.',
			want: "a..b..c..d.e",
		},
		{
			name: "overlong single word untouched",
			job:  Job{Words: []string{"verylongword"}, TotalWordChars: 12, Width: 5},
			sep:  ' ',
			want: "verylongword",
		},
		{
			name: "single word exact width",
			job:  Job{Words: []string{"exact"}, TotalWordChars: 5, Width: 5},
			sep:  ' ',
			want: "exact",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Justify(tt.job, tt.sep)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Justify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJustifyOverflow(t *testing.T) {
	job := Job{Words: []string{"one", "two", "three"}, TotalWordChars: 11, Width: 12}
	_, err := Justify(job, ' ')
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if errors.Is(err, ErrInvalidArgument) {
		t.Error("overflow must not be reported as invalid argument")
	}
}

func TestJustifyEmptyJob(t *testing.T) {
	_, err := Justify(Job{Width: 5}, ' ')
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestJustifier(t *testing.T) {
	fn := Justifier()
	got, err := fn(context.Background(), Job{Words: []string{"a", "b"}, TotalWordChars: 2, Width: 5}, ' ')
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a   b" {
		t.Errorf("got %q, want %q", got, "a   b")
	}
}

func TestJoin(t *testing.T) {
	results := []Result{
		{Index: 2, Text: "c"},
		{Index: 0, Text: "a"},
		{Index: 1, Text: "b"},
	}

	if got := Join(results, "\n"); got != "a\nb\nc" {
		t.Errorf("Join() = %q", got)
	}
	if got := Join(results, "\r\n"); got != "a\r\nb\r\nc" {
		t.Errorf("Join() = %q", got)
	}
	if got := Join(nil, "\n"); got != "" {
		t.Errorf("Join(nil) = %q, want empty", got)
	}

	// 入力スライスは並べ替えない
	if results[0].Index != 2 {
		t.Error("Join must not reorder its input")
	}
}

func TestDefaultNewline(t *testing.T) {
	nl := DefaultNewline()
	if nl != "\n" && nl != "\r\n" {
		t.Errorf("unexpected newline %q", nl)
	}
}

func TestSplitJustifyProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	letters := []rune("abcdefghijklmnopqrstuvwxyzйцукен")

	for iter := range 200 {
		var words []string
		for range rng.Intn(60) {
			w := make([]rune, 1+rng.Intn(12))
			for i := range w {
				w[i] = letters[rng.Intn(len(letters))]
			}
			words = append(words, string(w))
		}
		text := strings.Join(words, strings.Repeat(" ", 1+rng.Intn(3)))
		width := 1 + rng.Intn(30)

		jobs, err := Split(text, width)
		if err != nil {
			t.Fatalf("iter %d: split: %v", iter, err)
		}

		var rebuilt []string
		for i, job := range jobs {
			if job.Index != i {
				t.Fatalf("iter %d: job index %d at position %d", iter, job.Index, i)
			}

			out, err := Justify(job, ' ')
			if err != nil {
				t.Fatalf("iter %d: justify %v: %v", iter, job, err)
			}

			got := utf8.RuneCountInString(out)
			if len(job.Words) == 1 && job.TotalWordChars > width {
				if got != job.TotalWordChars {
					t.Errorf("iter %d: overlong line length %d, want %d", iter, got, job.TotalWordChars)
				}
			} else if got != width {
				t.Errorf("iter %d: line %q length %d, want %d", iter, out, got, width)
			}

			if len(job.Words) > 1 {
				checkGaps(t, out, job)
			}
			rebuilt = append(rebuilt, strings.Fields(out)...)
		}

		if diff := cmp.Diff(strings.Fields(text), rebuilt, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("iter %d: word order changed (-want +got):\n%s", iter, diff)
		}
	}
}

// checkGaps は区切りの総数と左詰めの配分を検証する
func checkGaps(t *testing.T, out string, job Job) {
	t.Helper()

	var gaps []int
	run := 0
	for _, r := range out {
		if r == ' ' {
			run++
			continue
		}
		if run > 0 {
			gaps = append(gaps, run)
			run = 0
		}
	}

	total := 0
	for _, g := range gaps {
		total += g
	}
	if total != job.Width-job.TotalWordChars {
		t.Errorf("%v: separators %d, want %d", job, total, job.Width-job.TotalWordChars)
	}

	base := total / len(gaps)
	remainder := total % len(gaps)
	for i, g := range gaps {
		want := base
		if i < remainder {
			want++
		}
		if g != want {
			t.Errorf("%v: gap %d has %d separators, want %d", job, i, g, want)
		}
	}
}
