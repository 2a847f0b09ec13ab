package content

import (
	"fmt"
	"strings"
)

const WordsPerMinute = 200

// ReadingTime estimates how long body takes to read, rounded up to whole minutes.
func ReadingTime(body string) string {
	words := len(strings.Fields(body))
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes <= 1 {
		return "1 min read"
	}
	return fmt.Sprintf("%d min read", minutes)
}
