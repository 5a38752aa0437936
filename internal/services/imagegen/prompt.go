package imagegen

import (
	"fmt"
	"strings"
)

// MaxPromptLength is the DALL-E 3 prompt limit. Longer prompts are truncated.
const MaxPromptLength = 1000

const styleBlock = `Style: Extremely minimal flat design, simple vector art, neutral beige/cream background, birds-eye overhead view,
%s
Include hands if action is needed. No extra decorations, no patterns, no textures, no shadows, no labels, no text.
Clean simple shapes with flat colors, 3-4 muted colors maximum (beige, brown, cream tones).
Organized composition like a cooking diagram.`

// StepPrompt is everything known about a step when its image is requested.
type StepPrompt struct {
	RecipeTitle       string
	Instruction       string
	Ingredients       []string
	Equipment         []string
	Output            string
	DependencyOutputs []string
}

// BuildStepPrompt renders the flat illustration prompt for one recipe step.
// Outputs of the steps it depends on are named so consecutive images stay consistent.
func BuildStepPrompt(p StepPrompt) string {
	items := make([]string, 0, len(p.Ingredients)+len(p.Equipment))
	items = append(items, p.Ingredients...)
	items = append(items, p.Equipment...)
	itemsStr := strings.Join(items, ", ")

	var sb strings.Builder
	if itemsStr != "" {
		fmt.Fprintf(&sb, "Flat illustration showing ONLY %s for '%s'.\n", itemsStr, p.Instruction)
	} else {
		fmt.Fprintf(&sb, "Flat illustration of %s for %s.\n", strings.ToLower(p.Instruction), p.RecipeTitle)
	}

	if len(p.DependencyOutputs) > 0 {
		fmt.Fprintf(&sb, "Starting point: %s.\n", strings.Join(p.DependencyOutputs, "; "))
	}
	if p.Output != "" {
		fmt.Fprintf(&sb, "Show the result: %s.\n", p.Output)
	}

	if itemsStr != "" {
		sb.WriteString(fmt.Sprintf(styleBlock, "ONLY show the specific items listed: "+itemsStr+", nothing else."))
		sb.WriteString(" NO random tools or ingredients not mentioned.")
	} else {
		sb.WriteString(fmt.Sprintf(styleBlock, "ONLY show items directly needed for this action, nothing else."))
	}

	return truncate(sb.String(), MaxPromptLength)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
