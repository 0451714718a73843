// Package prompts builds the question prompts for each prompting strategy.
// Chain-of-thought prompts instruct the model to finish with an
// "Answer: X" line, which is the contract the grader relies on.
package prompts

import (
	"fmt"
	"strings"

	"github.com/evalbench/evalbench/internal/models"
)

// Example is a worked question included in few-shot prompts.
type Example struct {
	Question    string
	Choices     [models.ChoiceCount]string
	Answer      string
	Explanation string
}

// FewShotExamples is the fixed example set used by the few-shot strategies.
// Fixed so that prompts are reproducible across runs.
var FewShotExamples = []Example{
	{
		Question:    "What is the chemical formula of water?",
		Choices:     [models.ChoiceCount]string{"CO2", "H2O", "NaCl", "CH4"},
		Answer:      "B",
		Explanation: "Water is a compound of two hydrogen atoms and one oxygen atom, written H2O.",
	},
	{
		Question:    "Which is the largest planet in the solar system?",
		Choices:     [models.ChoiceCount]string{"Earth", "Jupiter", "Saturn", "Mars"},
		Answer:      "B",
		Explanation: "Jupiter has more mass than all the other planets combined.",
	},
	{
		Question:    "Which of the following is not a programming language?",
		Choices:     [models.ChoiceCount]string{"Python", "Java", "HTML", "C++"},
		Answer:      "C",
		Explanation: "HTML is a markup language for structuring documents, not a programming language.",
	},
}

// Build renders the full prompt for a question under the given strategy.
func Build(promptType models.PromptType, q models.Question) (string, error) {
	var b strings.Builder

	if promptType.FewShot() {
		b.WriteString("Here are some examples:\n\n")
		for i, ex := range FewShotExamples {
			fmt.Fprintf(&b, "Example %d:\n", i+1)
			writeQuestion(&b, ex.Question, ex.Choices[:])
			if promptType.ChainOfThought() {
				fmt.Fprintf(&b, "Reasoning: %s\n", ex.Explanation)
			}
			fmt.Fprintf(&b, "Answer: %s\n\n", ex.Answer)
		}
		b.WriteString("Now answer the following question:\n\n")
	}

	switch promptType {
	case models.PromptZeroShot, models.PromptFewShot:
		b.WriteString("Choose the best answer to the question below.\n\n")
		writeQuestion(&b, q.Text, q.Choices)
		b.WriteString("\nReply with only A, B, C or D.")
	case models.PromptZeroShotCoT, models.PromptFewShotCoT:
		b.WriteString("Choose the best answer to the question below, explaining your reasoning.\n\n")
		writeQuestion(&b, q.Text, q.Choices)
		b.WriteString("\nReply in this format:\nReasoning: [your step-by-step reasoning]\nAnswer: [A, B, C or D]")
	default:
		return "", models.NewError(models.KindInvalidRequest, "unrecognized prompt type %q", promptType)
	}

	return b.String(), nil
}

func writeQuestion(b *strings.Builder, text string, choices []string) {
	fmt.Fprintf(b, "Question: %s\n\nChoices:\n", text)
	for i, c := range choices {
		fmt.Fprintf(b, "%c. %s\n", 'A'+i, c)
	}
}
