package services

import (
	"fmt"
	"strings"
)

const coachSystemPrompt = `You are an expert application coach specializing in fellowship, scholarship, and accelerator applications. Your role is to analyze essays and personal statements, providing constructive feedback on:

1. Structure: Organization, flow, and logical progression
2. Clarity: Readability, conciseness, and coherence
3. Mindset: Demonstration of leadership, global citizenship, systems thinking, and impact
4. Impact: Compelling narrative and memorability

Provide specific, actionable feedback with examples from the text.`

const coachOutputFormat = `Please provide:
1. Scores (0-100) for structure, clarity, and mindset alignment
2. 3-5 key strengths
3. 3-5 areas for improvement
4. Specific suggestions with examples
5. Highlighted issues with exact text snippets and suggestions

Format your response as JSON matching this structure:
{
  "structureScore": number,
  "clarityScore": number,
  "mindsetScore": number,
  "strengths": string[],
  "weaknesses": string[],
  "suggestions": [
    {
      "type": "structure" | "clarity" | "mindset" | "impact",
      "title": string,
      "message": string,
      "priority": "high" | "medium" | "low"
    }
  ],
  "highlightedIssues": [
    {
      "text": string,
      "issue": string,
      "suggestion": string
    }
  ]
}`

// Prompt is the two-part instruction sent to the text generator
type Prompt struct {
	System string
	User   string
}

// BuildPrompt embeds the essay verbatim; context is only included when set.
func BuildPrompt(essayText, context string) Prompt {
	var b strings.Builder
	b.WriteString("Analyze the following essay and provide detailed feedback:\n\n")
	if strings.TrimSpace(context) != "" {
		fmt.Fprintf(&b, "Context: %s\n\n", context)
	}
	b.WriteString("Essay:\n")
	b.WriteString(essayText)
	b.WriteString("\n\n")
	b.WriteString(coachOutputFormat)

	return Prompt{System: coachSystemPrompt, User: b.String()}
}
