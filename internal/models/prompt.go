package models

import "fmt"

// PromptType is a prompting strategy used to build the question prompt.
type PromptType string

const (
	PromptZeroShot    PromptType = "zero_shot"
	PromptZeroShotCoT PromptType = "zero_shot_cot"
	PromptFewShot     PromptType = "few_shot"
	PromptFewShotCoT  PromptType = "few_shot_cot"
)

// AllPromptTypes returns the supported prompt types in display order.
func AllPromptTypes() []PromptType {
	return []PromptType{PromptZeroShot, PromptZeroShotCoT, PromptFewShot, PromptFewShotCoT}
}

// ParsePromptType converts a wire value into a PromptType.
func ParsePromptType(s string) (PromptType, error) {
	switch PromptType(s) {
	case PromptZeroShot, PromptZeroShotCoT, PromptFewShot, PromptFewShotCoT:
		return PromptType(s), nil
	}
	return "", NewError(KindInvalidRequest, "unrecognized prompt type %q", s)
}

// ChainOfThought reports whether responses for this prompt type are expected
// to contain reasoning text before the final answer.
func (p PromptType) ChainOfThought() bool {
	return p == PromptZeroShotCoT || p == PromptFewShotCoT
}

// FewShot reports whether prompts of this type carry worked examples.
func (p PromptType) FewShot() bool {
	return p == PromptFewShot || p == PromptFewShotCoT
}

// Label returns a human-readable name for UI listings.
func (p PromptType) Label() string {
	switch p {
	case PromptZeroShot:
		return "Zero-shot"
	case PromptZeroShotCoT:
		return "Zero-shot CoT"
	case PromptFewShot:
		return "Few-shot"
	case PromptFewShotCoT:
		return "Few-shot CoT"
	}
	return fmt.Sprintf("unknown (%s)", string(p))
}
