package paginate

import (
	"unicode"

	"github.com/mattn/go-runewidth"
)

// segment is one wrapped line as a rune range of the paragraph text.
type segment struct {
	start, end int
	width      int
	words      int // words that begin on this line
}

// Wrap word-wraps text to width display columns. Words wider than width
// are hard-broken. East Asian wide runes count as two columns.
func Wrap(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	runes := []rune(text)
	segs := wrapRunes(runes, width)
	lines := make([]string, len(segs))
	for i, s := range segs {
		lines[i] = string(runes[s.start:s.end])
	}
	return lines
}

func wrapRunes(runes []rune, width int) []segment {
	var (
		segs []segment
		cur  segment
		open bool
	)
	closeLine := func() {
		if open {
			segs = append(segs, cur)
			open = false
		}
	}

	i := 0
	for i < len(runes) {
		if unicode.IsSpace(runes[i]) {
			i++
			continue
		}
		j := i
		for j < len(runes) && !unicode.IsSpace(runes[j]) {
			j++
		}
		ww := runewidth.StringWidth(string(runes[i:j]))

		if open && cur.width+1+ww <= width {
			cur.end = j
			cur.width += 1 + ww
			cur.words++
			i = j
			continue
		}
		closeLine()

		if ww <= width {
			cur = segment{start: i, end: j, width: ww, words: 1}
			open = true
			i = j
			continue
		}

		// Hard-break the word; the last piece may still take more words.
		k, first := i, true
		for k < j {
			w, m := 0, k
			for m < j {
				rw := runewidth.RuneWidth(runes[m])
				if w+rw > width && m > k {
					break
				}
				w += rw
				m++
			}
			piece := segment{start: k, end: m, width: w}
			if first {
				piece.words = 1
				first = false
			}
			if m == j {
				cur, open = piece, true
				break
			}
			segs = append(segs, piece)
			k = m
		}
		i = j
	}
	closeLine()
	return segs
}
