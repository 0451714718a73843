// Package grader turns raw model responses into correctness verdicts for
// multiple-choice questions. Parsing is tolerant: chain-of-thought responses
// bury the final answer after reasoning text, so extraction scans from the
// end of the response for the last recognizable answer token.
package grader

import (
	"regexp"
	"strings"

	"github.com/evalbench/evalbench/internal/models"
)

// Result is the outcome of grading one response.
type Result struct {
	// Extracted is the parsed answer label ("A".."D"), empty when no
	// recognizable answer was found.
	Extracted string
	Verdict   models.Verdict
	// Ungraded is set when no answer could be parsed. Such responses carry
	// no verdict and are excluded from accuracy.
	Ungraded bool
}

var (
	// "Answer: B" marker, as instructed by the chain-of-thought prompts.
	answerMarkerRe = regexp.MustCompile(`(?i)answer\s*[:：]\s*\(?([A-D])\)?`)
	// A standalone choice letter.
	standaloneRe = regexp.MustCompile(`(?i)\b([A-D])\b`)
)

// Grade scores a raw model response against the question's gold answer.
func Grade(promptType models.PromptType, q models.Question, response string) Result {
	extracted := Extract(promptType, response)
	if extracted == "" {
		return Result{Ungraded: true}
	}

	verdict := models.VerdictIncorrect
	if extracted == q.AnswerLabel() {
		verdict = models.VerdictCorrect
	}
	return Result{Extracted: extracted, Verdict: verdict}
}

// Extract pulls the answer label out of a free-form response. Returns "" if
// nothing recognizable is found.
func Extract(promptType models.PromptType, response string) string {
	content := strings.TrimSpace(response)
	if content == "" {
		return ""
	}

	// Chain-of-thought responses should end with an explicit marker; take
	// the last one in case the reasoning quotes the format, and fall back
	// to the last standalone letter after the reasoning text.
	if promptType.ChainOfThought() {
		if label := lastMatch(answerMarkerRe, content); label != "" {
			return label
		}
		if label := lastMatch(standaloneRe, content); label != "" {
			return label
		}
	} else if m := standaloneRe.FindStringSubmatch(content); m != nil {
		return strings.ToUpper(m[1])
	}

	// Degenerate outputs like "B." without a word boundary match.
	if first := content[0]; first >= 'A' && first <= 'D' {
		return string(first)
	}
	if first := content[0]; first >= 'a' && first <= 'd' {
		return strings.ToUpper(string(first))
	}
	return ""
}

func lastMatch(re *regexp.Regexp, content string) string {
	matches := re.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return ""
	}
	return strings.ToUpper(matches[len(matches)-1][1])
}
