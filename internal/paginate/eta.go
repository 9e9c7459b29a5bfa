package paginate

import "time"

// DefaultWPM is the reading speed used when none is configured.
const DefaultWPM = 238

// EstimatedReadingTime is the time to read page at wpm words per minute.
func EstimatedReadingTime(page Page, wpm int) time.Duration {
	return wordsToDuration(page.Words, wpm)
}

// RemainingTime is the time to read from the start of pages[from] to the
// end of the book.
func RemainingTime(pages []Page, from, wpm int) time.Duration {
	words := 0
	for i := max(from, 0); i < len(pages); i++ {
		words += pages[i].Words
	}
	return wordsToDuration(words, wpm)
}

// ChapterRemainingTime is the time to read from the start of pages[from]
// to the end of its first chapter.
func ChapterRemainingTime(pages []Page, from, wpm int) time.Duration {
	if from < 0 || from >= len(pages) {
		return 0
	}
	chapter := pages[from].Chapter
	words := 0
	for _, p := range pages[from:] {
		for _, l := range p.Lines {
			if l.Chapter != chapter {
				return wordsToDuration(words, wpm)
			}
			words += l.Words
		}
	}
	return wordsToDuration(words, wpm)
}

func wordsToDuration(words, wpm int) time.Duration {
	if wpm <= 0 {
		wpm = DefaultWPM
	}
	return time.Duration(words) * time.Minute / time.Duration(wpm)
}
