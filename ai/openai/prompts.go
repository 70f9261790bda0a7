package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/brieflink/ai"
)

const analysisResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "summary": {
      "type": "string"
    },
    "issues": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "category": {
            "type": "string"
          },
          "description": {
            "type": "string"
          }
        },
        "required": ["category", "description"],
        "additionalProperties": false
      }
    }
  },
  "required": ["summary", "issues"],
  "additionalProperties": false
}`

const analysisPromptTemplate = `You read appellate briefs filed in Washington State courts. Summarize the brief
you are given and list the legal issues it asks the court to decide.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- The summary is 2-4 sentences in plain English: who is appealing, from what decision, and what relief is sought.
- List each distinct issue once, most important first, at most %d issues.
- Category must match exactly one of: %s.
- The description is one sentence stating what is being challenged.
- Base everything on the text. Do not invent parties, facts, or holdings.
- If the text is not a brief or no issues can be identified, return "issues": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "BRIEF OF APPELLANT ... I. ASSIGNMENTS OF ERROR 1. The trial court erred in imputing income to the husband ..."
Output:
{
  "summary": "The husband appeals the dissolution decree, arguing the trial court miscalculated child support. He asks the court to remand for recalculation.",
  "issues": [
    {"category":"Child Support","description":"Whether the trial court erred in imputing income to the husband."}
  ]
}`

// buildSystemPrompt creates the system prompt with issue categories embedded.
func buildSystemPrompt(maxIssues int) string {
	return fmt.Sprintf(analysisPromptTemplate,
		analysisResponseSchema,
		maxIssues,
		strings.Join(ai.IssueCategories, "; "))
}
