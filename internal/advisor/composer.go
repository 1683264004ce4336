package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/climatechai/go-hazard-risk/internal/risk"
)

const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

const systemPrompt = "You are a disaster risk assessment expert advising residents of the Philippines. " +
	"Base your answer strictly on the hazard context provided. Never mention numeric coordinates."

// Advisory is the composed answer returned to the caller: generated text
// when the model is reachable, the deterministic template otherwise, plus
// the hazard context that produced it for auditability.
type Advisory struct {
	Summary         string
	Recommendations []string
	RiskScore       int
	RiskLevel       string
	Source          string
	Context         string
}

// Composer assembles the generation context from an assessment and
// delegates to a TextGenerator. Stateless: one point in, one advisory out.
type Composer struct {
	generator   TextGenerator
	temperature float64
	maxTokens   int
}

func NewComposer(generator TextGenerator) *Composer {
	return &Composer{
		generator:   generator,
		temperature: 0.3,
		maxTokens:   500,
	}
}

// Advise builds the hazard context and asks the generator for advice. Any
// generation or parse failure falls back to the deterministic template; as
// long as hazard data exists the caller always gets something actionable.
func (c *Composer) Advise(ctx context.Context, a *risk.Assessment, question string) *Advisory {
	hazardContext := BuildContext(a)

	if c.generator == nil {
		return c.fallback(a, hazardContext)
	}

	userMessage := buildUserMessage(hazardContext, question)
	raw, err := c.generator.Generate(ctx, systemPrompt, userMessage, c.temperature, c.maxTokens)
	if err != nil {
		slog.Warn("text generation failed, using fallback", "error", err)
		return c.fallback(a, hazardContext)
	}

	parsed, err := parseGenerated(raw)
	if err != nil {
		slog.Warn("malformed generation output, using fallback", "error", err)
		return c.fallback(a, hazardContext)
	}

	return &Advisory{
		Summary:         parsed.Description,
		Recommendations: append([]string{}, splitRecommendations(parsed.Recommendations)...),
		RiskScore:       clampScore(parsed.RiskScore),
		RiskLevel:       parsed.RiskLevel,
		Source:          SourceLLM,
		Context:         hazardContext,
	}
}

func (c *Composer) fallback(a *risk.Assessment, hazardContext string) *Advisory {
	return &Advisory{
		Summary: fmt.Sprintf("Rule-based assessment: overall risk is %s (score %d/100) based on the hazard data currently available for this area.",
			a.RiskLevel, a.RiskScore),
		Recommendations: a.Recommendations,
		RiskScore:       a.RiskScore,
		RiskLevel:       a.RiskLevel,
		Source:          SourceFallback,
		Context:         hazardContext,
	}
}

// BuildContext renders the assessment as a textual hazard briefing. The
// query coordinates are deliberately absent: they drive the queries but
// must not surface in the advice shown to the user.
func BuildContext(a *risk.Assessment) string {
	var b strings.Builder

	b.WriteString("Hazard analysis for the assessed location:\n")

	writeAxis := func(name string, label risk.Label, available bool, value *float64) {
		switch {
		case !available:
			fmt.Fprintf(&b, "- %s risk: unavailable (data source down)\n", name)
		case value == nil:
			fmt.Fprintf(&b, "- %s risk: none (no mapped zone at this point)\n", name)
		default:
			fmt.Fprintf(&b, "- %s risk: %s (zone severity %.1f of 3)\n", name, label, *value)
		}
	}
	writeAxis("Flood", a.FloodLabel, a.FloodAvailable, a.FloodRisk)
	writeAxis("Landslide", a.LandslideLabel, a.LandslideAvailable, a.LandslideRisk)

	switch {
	case !a.QuakesAvailable:
		b.WriteString("- Seismic activity: unavailable (data source down)\n")
	case len(a.Earthquakes) == 0:
		b.WriteString("- Seismic activity: no recent earthquakes nearby\n")
	default:
		strongest := a.Earthquakes[0]
		for _, q := range a.Earthquakes[1:] {
			if q.Event.Magnitude > strongest.Event.Magnitude {
				strongest = q
			}
		}
		fmt.Fprintf(&b, "- Seismic activity: %d recent earthquake(s), strongest magnitude %.1f (%s), nearest %.1f km away\n",
			len(a.Earthquakes), strongest.Event.Magnitude,
			risk.CategorizeMagnitude(strongest.Event.Magnitude), a.Earthquakes[0].DistanceKm)
	}

	switch {
	case !a.WeatherAvailable:
		b.WriteString("- Weather: unavailable (data source down)\n")
	case a.Weather == nil:
		b.WriteString("- Weather: no recent observation nearby\n")
	default:
		o := a.Weather.Observation
		fmt.Fprintf(&b, "- Weather at %s:", stationOrNearby(o.StationName))
		writeReading(&b, " temperature %.1f°C", o.Temperature)
		writeReading(&b, ", humidity %.0f%%", o.Humidity)
		writeReading(&b, ", rainfall %.1f mm/hr", o.Rainfall)
		writeReading(&b, ", wind %.1f km/h", o.WindSpeed)
		writeReading(&b, ", pressure %.1f mb", o.Pressure)
		fmt.Fprintf(&b, " (heat level: %s)\n", a.Heat)
	}

	return b.String()
}

func stationOrNearby(name string) string {
	if name == "" {
		return "nearby station"
	}
	return name
}

func writeReading(b *strings.Builder, format string, v *float64) {
	if v == nil {
		return
	}
	fmt.Fprintf(b, format, *v)
}

func buildUserMessage(hazardContext, question string) string {
	var b strings.Builder
	b.WriteString(hazardContext)
	b.WriteString("\n")
	if question != "" {
		b.WriteString("Resident's question: ")
		b.WriteString(question)
		b.WriteString("\n\n")
	}
	b.WriteString(`Assess the likelihood of a disaster event in this area and give practical safety advice.

Respond only with JSON in this exact format:
{
    "risk_score": <number between 0-100>,
    "risk_level": "<low/medium/high/critical>",
    "description": "<explanation of potential issues>",
    "recommendations": "<specific recommendations for this situation>"
}`)
	return b.String()
}

type generatedAssessment struct {
	RiskScore       int    `json:"risk_score"`
	RiskLevel       string `json:"risk_level"`
	Description     string `json:"description"`
	Recommendations string `json:"recommendations"`
}

var validLevels = map[string]bool{"low": true, "medium": true, "high": true, "critical": true}

// parseGenerated strips markdown code fences the model sometimes wraps its
// JSON in, then validates the decoded fields.
func parseGenerated(raw string) (*generatedAssessment, error) {
	content := strings.TrimSpace(raw)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var parsed generatedAssessment
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("error decoding generated output: %w", err)
	}
	parsed.RiskLevel = strings.ToLower(strings.TrimSpace(parsed.RiskLevel))
	if !validLevels[parsed.RiskLevel] {
		return nil, fmt.Errorf("invalid risk_level %q", parsed.RiskLevel)
	}
	if parsed.Description == "" {
		return nil, fmt.Errorf("empty description")
	}
	return &parsed, nil
}

func splitRecommendations(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• \t"))
		if line != "" {
			out = append(out, line)
		}
	}
	if len(out) == 0 && strings.TrimSpace(s) != "" {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
