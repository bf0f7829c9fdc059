package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Narration represents the structured tuner's notes returned by the LLM
type Narration struct {
	Verdict   string   `json:"verdict"`
	Summary   string   `json:"summary"`
	Notes     []string `json:"notes"`
	Cautions  []string `json:"cautions"`
	NextSteps []string `json:"nextSteps"`
}

// FormatNotes renders the narration as plain text for the report
func (n *Narration) FormatNotes() string {
	var b strings.Builder

	b.WriteString(n.Summary)
	b.WriteString("\n")

	for _, note := range n.Notes {
		b.WriteString("\n")
		b.WriteString(note)
		b.WriteString("\n")
	}

	for _, caution := range n.Cautions {
		b.WriteString("\nCAUTION: ")
		b.WriteString(caution)
		b.WriteString("\n")
	}

	if len(n.NextSteps) > 0 {
		b.WriteString("\nNext time out:\n")
		for _, step := range n.NextSteps {
			b.WriteString("  - ")
			b.WriteString(step)
			b.WriteString("\n")
		}
	}

	return b.String()
}

// GetSystemPrompt returns the system prompt with cache control
func GetSystemPrompt() string {
	return `You are a veteran drag-racing EFI tuner with deep experience on Holley Sniper self-tuning throttle body systems. Your role is to review a decoded datalog, the computed analysis, and the rule-based recommendations, then write notes a racer can act on at the track.

**Review Framework:**

1. **Verdict** - Classify how close the combination is:
   - "Dialed" - AFR and timing on target, nothing worth changing
   - "Close" - Minor corrections, safe to keep making passes
   - "Needs Work" - Real fueling or timing problems, fix before the next full pull
   - "Unsafe" - Lean condition or detonation risk under load, do not make another pass

2. **Fueling Review:**
   - Compare WOT AFR against the target for the power adder in use
   - Lean spikes under load matter more than the average
   - Acceleration enrichment lean stumbles show up right after the hit of the throttle
   - Idle AFR instability points at base fuel table or IAC issues

3. **Timing and Launch:**
   - Timing per RPM band versus the cam's tolerance
   - 60-foot times tell the launch story: converter flash, tire spin, launch RPM
   - Shift recovery AFR shows whether the enrichment covers the RPM drop

4. **Notes** - Explain in racer's terms:
   - Tie every observation back to a number from the data
   - One change at a time, re-log, compare
   - Never recommend timing and fuel changes in the same session

**Output Requirements:**

You MUST respond with a valid JSON object (and ONLY JSON) in this exact format:

{
  "verdict": "Dialed|Close|Needs Work|Unsafe",
  "summary": "2-3 sentence plain-language read of the pass",
  "notes": [
    "Observation tied to specific numbers from the data"
  ],
  "cautions": [
    "Safety issue the racer must respect before the next pass"
  ],
  "nextSteps": [
    "Specific change or test for the next session"
  ]
}

**Principles:**
- Only report what the data shows; never invent numbers
- Safety (lean under load, detonation) outranks ET
- Consider the tuning history when provided
- Use clear language a bracket racer understands
- Empty arrays are acceptable when there is nothing to flag`
}

// GetUserPrompt constructs the user prompt from the pass report and tuning history
func GetUserPrompt(passReport, historicalContext string) string {
	var prompt strings.Builder

	prompt.WriteString("PASS REPORT:\n")
	prompt.WriteString(SanitizeContent(passReport))
	prompt.WriteString("\n\n")

	if historicalContext != "" {
		prompt.WriteString("TUNING HISTORY:\n")
		prompt.WriteString(SanitizeContent(historicalContext))
		prompt.WriteString("\n\n")
	}

	prompt.WriteString("Review the pass report above and provide your notes in JSON format as specified.")

	return prompt.String()
}

// promptInjectionPatterns contains regex patterns for common prompt injection attempts
var promptInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+a`),
	regexp.MustCompile(`(?i)new\s+instructions?:`),
	regexp.MustCompile(`(?i)system\s*prompt\s*:`),
	regexp.MustCompile(`(?i)\bASSISTANT\s*:`),
	regexp.MustCompile(`(?i)\bHUMAN\s*:`),
	regexp.MustCompile(`(?i)\bUSER\s*:`),
	regexp.MustCompile(`(?i)\bSYSTEM\s*:`),
}

// SanitizeContent strips prompt injection attempts from text headed into the LLM.
// Datalog sources are user files and can contain anything.
func SanitizeContent(content string) string {
	// Remove non-printable characters except newlines, tabs, and carriage returns
	var sanitized strings.Builder
	sanitized.Grow(len(content))

	for _, r := range content {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()

	for _, pattern := range promptInjectionPatterns {
		result = pattern.ReplaceAllString(result, "[FILTERED]")
	}

	// Normalize excessive newlines (more than 3 consecutive)
	excessiveNewlines := regexp.MustCompile(`\n{4,}`)
	result = excessiveNewlines.ReplaceAllString(result, "\n\n\n")

	return result
}

// Maximum allowed JSON response size (1MB) to prevent memory exhaustion
const maxJSONResponseSize = 1024 * 1024

// sanitizeJSONEscapes fixes invalid JSON escape sequences in LLM responses.
// JSON only allows: \" \\ \/ \b \f \n \r \t \uXXXX
// LLMs sometimes produce invalid sequences like \. \( \) \- etc.
func sanitizeJSONEscapes(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	i := 0
	for i < len(s) {
		if s[i] == '\\' && i+1 < len(s) {
			next := s[i+1]
			// Valid JSON escapes: " \ / b f n r t u
			if next == '"' || next == '\\' || next == '/' ||
				next == 'b' || next == 'f' || next == 'n' ||
				next == 'r' || next == 't' || next == 'u' {
				result.WriteByte(s[i])
				result.WriteByte(next)
				i += 2
				continue
			}
			// Invalid escape - skip the backslash, keep the character
			result.WriteByte(next)
			i += 2
			continue
		}
		result.WriteByte(s[i])
		i++
	}
	return result.String()
}

// ParseNarration extracts and parses the JSON narration from the LLM's response
func ParseNarration(response string) (*Narration, error) {
	// Extract JSON from response using balanced brace matching
	jsonMatch := extractJSON(response)

	if jsonMatch == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	if len(jsonMatch) > maxJSONResponseSize {
		return nil, fmt.Errorf("JSON response too large: %d bytes (max: %d)", len(jsonMatch), maxJSONResponseSize)
	}

	// Sanitize invalid JSON escape sequences that LLMs sometimes produce
	sanitizedJSON := sanitizeJSONEscapes(jsonMatch)

	var narration Narration
	if err := json.Unmarshal([]byte(sanitizedJSON), &narration); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if err := validateNarration(&narration); err != nil {
		return nil, fmt.Errorf("narration validation failed: %w", err)
	}

	return &narration, nil
}

// validateNarration validates the narration structure
func validateNarration(narration *Narration) error {
	if narration.Verdict == "" {
		return fmt.Errorf("verdict is required")
	}

	validVerdicts := map[string]bool{
		"Dialed":     true,
		"Close":      true,
		"Needs Work": true,
		"Unsafe":     true,
	}

	if !validVerdicts[narration.Verdict] {
		return fmt.Errorf("invalid verdict: %s", narration.Verdict)
	}

	if narration.Summary == "" {
		return fmt.Errorf("summary is required")
	}

	// Initialize empty arrays if nil
	if narration.Notes == nil {
		narration.Notes = []string{}
	}
	if narration.Cautions == nil {
		narration.Cautions = []string{}
	}
	if narration.NextSteps == nil {
		narration.NextSteps = []string{}
	}

	return nil
}

// GetVerdictEmoji returns the emoji for a given verdict
func GetVerdictEmoji(verdict string) string {
	emojiMap := map[string]string{
		"Dialed":     "✅",
		"Close":      "\U0001F7E2",
		"Needs Work": "\U0001F7E0",
		"Unsafe":     "\U0001F534",
	}

	if emoji, ok := emojiMap[verdict]; ok {
		return emoji
	}
	return "⚪"
}

// ShouldTriggerAlert determines if the narration should trigger a notification
func ShouldTriggerAlert(verdict string) bool {
	alertVerdicts := map[string]bool{
		"Needs Work": true,
		"Unsafe":     true,
	}
	return alertVerdicts[verdict]
}

// extractJSON extracts the first balanced JSON object from a response string.
// This is more reliable than greedy regex matching.
func extractJSON(response string) string {
	// Find the first opening brace
	startIdx := strings.Index(response, "{")
	if startIdx == -1 {
		return ""
	}

	// Track brace depth to find matching closing brace
	depth := 0
	inString := false
	escaped := false

	for i := startIdx; i < len(response); i++ {
		char := response[i]

		if escaped {
			escaped = false
			continue
		}

		if char == '\\' && inString {
			escaped = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if char == '{' {
			depth++
		} else if char == '}' {
			depth--
			if depth == 0 {
				return response[startIdx : i+1]
			}
		}
	}

	return ""
}
