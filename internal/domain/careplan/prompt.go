package careplan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/frat/frat/internal/domain/assessment"
	"github.com/frat/frat/internal/domain/patient"
)

// BuildPrompt renders the user prompt for one assessment entry.
func BuildPrompt(info patient.Info, entry assessment.Entry) string {
	answers, _ := json.MarshalIndent(map[string]interface{}{
		"part1": entry.Part1,
		"part2": entry.Part2,
	}, "", "  ")

	age := "unknown"
	if info.Age != nil {
		age = fmt.Sprint(*info.Age)
	}

	var b strings.Builder
	b.WriteString("Based on the following patient information and falls risk assessment, provide a care plan:\n\n")
	fmt.Fprintf(&b, "Patient: %s (ID: %s)\n", info.Name, info.ID)
	fmt.Fprintf(&b, "Age: %s (DOB %s)\n", age, info.BirthDate)
	fmt.Fprintf(&b, "Medical History: %s\n", strings.Join(info.MedicalHistory, ", "))
	fmt.Fprintf(&b, "Current Medications: %s\n", strings.Join(info.Medications, ", "))
	if info.AMTSScore != nil {
		fmt.Fprintf(&b, "AMTS Score: %g\n", *info.AMTSScore)
	}
	fmt.Fprintf(&b, "Risk Level: %s\n", entry.RiskLevel)
	fmt.Fprintf(&b, "Risk Score: %d\n\n", entry.RiskScore)
	fmt.Fprintf(&b, "Assessment Results: %s\n\n", answers)
	b.WriteString(`Please provide a JSON response with:
{
    "care_plan": ["recommendation 1", "recommendation 2", "recommendation 3"],
    "rationale": "Brief explanation of the recommendations"
}
`)
	return b.String()
}

var (
	fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	bareJSON   = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractJSON returns the JSON object inside a model reply: the first
// ```json fenced block, else the outermost braces, else the text itself.
func ExtractJSON(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := bareJSON.FindString(text); m != "" {
		return m
	}
	return text
}
