package pipeline

import (
	"log/slog"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// rule is one confusable substitution.
type rule struct {
	re   *regexp2.Regexp
	repl string
}

func mustRule(pattern, repl string) rule {
	re := regexp2.MustCompile(pattern, regexp2.None)
	re.MatchTimeout = ruleTimeout
	return rule{re: re, repl: repl}
}

const ruleTimeout = 50 * time.Millisecond

// Order matters: the specific pipe and slash rules must run before their
// catch-all l rules.
var confusables = []rule{
	// bare 1 between letters or spaces reads as I
	mustRule(`(?<![\p{N}\p{P}])1(?![\p{N}\p{P}])`, "I"),
	// pipe at sentence start
	mustRule(`(?<=(?:^|\p{P})\s*)[|¦]`, "I"),
	// pipe on its own
	mustRule(`(?<=^|\s)[|¦](?=\s|$)`, "I"),
	mustRule(`[|¦]`, "l"),
	// slash at sentence start, as a word prefix or standing alone
	mustRule(`(?<=(?:^|\p{P})\s*)(?<![\p{L}\p{N}])/(?=\p{L}|\s)`, "I"),
	mustRule(`(?<![\p{L}\p{N}\p{P}])/(?=\p{L})`, "l"),
}

// Normalize folds recognizer output into the form that is compared for
// duplicates and sent for translation: newlines become spaces, whitespace runs
// collapse, and common OCR confusions of I and l are repaired.
func Normalize(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	for _, r := range confusables {
		out, err := r.re.Replace(text, r.repl, -1, -1)
		if err != nil {
			slog.Debug("normalize rule skipped", "pattern", r.re.String(), "error", err)
			continue
		}
		text = out
	}
	return text
}
