// Package advise turns meeting transcripts and retrieved code snippets
// into talking points. An Ollama-backed LLM generates the points when
// reachable; otherwise a deterministic rule-based fallback produces
// useful-if-generic advice, so the feature degrades instead of failing.
package advise

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Point is a single piece of advice with a confidence estimate.
type Point struct {
	Text       string  `json:"text"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Request carries the material to advise on.
type Request struct {
	Transcript string
	// CodeSnippets are search results relevant to the transcript.
	CodeSnippets []string
}

// Config configures the advisor.
type Config struct {
	// Enabled gates the LLM path entirely.
	Enabled bool
	Model   string
	// ServerURL is the Ollama endpoint. Empty uses the client default.
	ServerURL string
	Timeout   time.Duration
}

// Advisor generates advice points.
type Advisor struct {
	llm     llms.Model
	timeout time.Duration
}

// New creates an Advisor. If the LLM cannot be constructed the advisor
// still works through the rule-based fallback.
func New(cfg Config) *Advisor {
	a := &Advisor{timeout: cfg.Timeout}
	if a.timeout <= 0 {
		a.timeout = 30 * time.Second
	}

	if !cfg.Enabled {
		slog.Debug("advisor LLM disabled, using rule-based advice")
		return a
	}

	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.ServerURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.ServerURL))
	}

	llm, err := ollama.New(opts...)
	if err != nil {
		slog.Warn("advisor LLM unavailable, using rule-based advice", "error", err)
		return a
	}
	a.llm = llm
	return a
}

// Advise produces talking points for the request. LLM failures fall
// back to rules rather than surfacing an error.
func (a *Advisor) Advise(ctx context.Context, req Request) []Point {
	if strings.TrimSpace(req.Transcript) == "" && len(req.CodeSnippets) == 0 {
		return nil
	}

	if a.llm != nil {
		points, err := a.adviseLLM(ctx, req)
		if err != nil {
			slog.Warn("LLM advice failed, falling back to rules", "error", err)
		} else if len(points) > 0 {
			return points
		}
	}

	return ruleBasedAdvice(req)
}

// adviseLLM asks the model for bullet-point advice.
func (a *Advisor) adviseLLM(ctx context.Context, req Request) ([]Point, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := buildPrompt(req)
	completion, err := llms.GenerateFromSinglePrompt(ctx, a.llm, prompt)
	if err != nil {
		return nil, err
	}

	return parseCompletion(completion), nil
}

// buildPrompt assembles the transcript and code context.
func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are helping a developer in a technical meeting. ")
	b.WriteString("Given the conversation so far and relevant code from their repository, ")
	b.WriteString("suggest up to 3 short, concrete talking points. ")
	b.WriteString("Reply with one point per line, each starting with '- '.\n\n")

	b.WriteString("Conversation:\n")
	b.WriteString(req.Transcript)
	b.WriteString("\n")

	if len(req.CodeSnippets) > 0 {
		b.WriteString("\nRelevant code:\n")
		for _, s := range req.CodeSnippets {
			b.WriteString("```\n")
			b.WriteString(s)
			b.WriteString("\n```\n")
		}
	}
	return b.String()
}

// parseCompletion extracts bullet lines from the model output.
func parseCompletion(completion string) []Point {
	var points []Point
	for _, line := range strings.Split(completion, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "* ")
		for i := 1; i <= 9; i++ {
			line = strings.TrimPrefix(line, fmt.Sprintf("%d. ", i))
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		points = append(points, Point{
			Text:       line,
			Category:   "llm",
			Confidence: 0.8,
		})
		if len(points) == 3 {
			break
		}
	}
	return points
}

// ruleBasedAdvice keys simple advice off transcript keywords.
func ruleBasedAdvice(req Request) []Point {
	lower := strings.ToLower(req.Transcript)
	var points []Point

	if containsAny(lower, "error", "bug", "issue", "problem", "crash", "fail") {
		points = append(points, Point{
			Text:       "Walk through the failing path step by step and check recent changes to it.",
			Category:   "debugging",
			Confidence: 0.6,
		})
	}
	if containsAny(lower, "performance", "slow", "optimize", "latency") {
		points = append(points, Point{
			Text:       "Profile before optimizing; suggest measuring the hot path first.",
			Category:   "performance",
			Confidence: 0.6,
		})
	}
	if len(req.CodeSnippets) > 0 {
		points = append(points, Point{
			Text:       "Reference the retrieved code directly; it covers the area under discussion.",
			Category:   "refactoring",
			Confidence: 0.5,
		})
	}
	if len(points) == 0 {
		points = append(points, Point{
			Text:       "Ask a clarifying question to pin down the concrete goal before proposing changes.",
			Category:   "general",
			Confidence: 0.4,
		})
	}
	return points
}

// containsAny reports whether s contains any of the substrings.
func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
