package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
)

// FormatStats builds the right-aligned statistics line printed after a
// completed turn: elapsed seconds, token count, and the cost when the
// transport reported one.
func FormatStats(elapsed time.Duration, tokens int, cost float64, width int) string {
	stats := fmt.Sprintf("%.2fs | %d tokens", elapsed.Seconds(), tokens)
	if cost > 0 {
		stats += fmt.Sprintf(" | $%.4f", cost)
	}
	padding := width - len(stats)
	if padding < 0 {
		padding = 0
	}
	return strings.Repeat(" ", padding) + StyleDim.Render(stats)
}

// EstimateTokens approximates the token count of text for the stats
// line when the transport reported no usage. Falls back to a bytes/4
// heuristic if the encoding is unavailable (e.g. no network to fetch
// the BPE data).
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
