// Package explain turns an engine.Diagnosis into a human-readable
// infeasibility explanation (SPEC_FULL.md §4.13), optionally asking an
// LLM to narrate it. It is grounded on the teacher's chat.go handler:
// same client construction and system-prompt-plus-context shape, but
// the "conversation" is a one-shot prompt built from the diagnosis
// trace rather than a stored chat history.
package explain

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bruno.lopes/dutyplanner/internal/engine"
)

// Explanation is the structured diagnosis plus an optional prose
// narration. Prose is empty when no OPENAI_API_KEY is configured or the
// API call failed — the structured fields are always populated so the
// CLI and HTTP boundary have something to print either way.
type Explanation struct {
	Status             string   `json:"status"`
	UnresolvableGroups []string `json:"unresolvable_groups"`
	Prose              string   `json:"explanation,omitempty"`
}

// Explainer narrates a Diagnosis. The zero value works; it reads
// OPENAI_API_KEY lazily on every call rather than once at construction,
// so tests can set/unset the environment variable per case.
type Explainer struct {
	Model string
}

// NewExplainer builds an Explainer using the small, cheap chat model
// the teacher defaults to for this kind of assistant task.
func NewExplainer() *Explainer {
	return &Explainer{Model: "gpt-4o-mini"}
}

// Explain builds a structured Explanation from diag. When an
// OPENAI_API_KEY is present in the environment, it also asks the model
// for a short, plain-language narration of why the run was infeasible;
// on any error (including a missing key) Prose is left empty rather
// than failing the caller, since the structured diagnosis alone is
// still a useful result (spec.md §7's InfeasibleError carries it
// regardless of narration).
func (e *Explainer) Explain(ctx context.Context, diag *engine.Diagnosis) (*Explanation, error) {
	if diag == nil {
		return nil, fmt.Errorf("explain: nil diagnosis")
	}

	out := &Explanation{
		Status:             diag.Status.String(),
		UnresolvableGroups: diag.UnresolvableGroups,
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return out, nil
	}

	client := openai.NewClient(apiKey)
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.modelName(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: promptFor(diag)},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		return out, nil
	}

	out.Prose = strings.TrimSpace(resp.Choices[0].Message.Content)
	return out, nil
}

func (e *Explainer) modelName() string {
	if e.Model != "" {
		return e.Model
	}
	return "gpt-4o-mini"
}

const systemPrompt = `You are a scheduling assistant explaining why a physician duty roster
could not be completed. You are given the solver status and the list of
task groups that could not be resolved. Explain in two or three plain
sentences what likely caused the conflict (coverage shortage,
unavailability, exclusions, or linkage constraints) and suggest one
concrete change that might make the schedule feasible. Do not invent
details not present in the input.`

func promptFor(diag *engine.Diagnosis) string {
	groups := append([]string(nil), diag.UnresolvableGroups...)
	sort.Strings(groups)

	var b strings.Builder
	fmt.Fprintf(&b, "Solver status: %s\n", diag.Status)
	fmt.Fprintf(&b, "Unresolved groups (%d):\n", len(groups))
	for _, g := range groups {
		fmt.Fprintf(&b, "- %s\n", g)
	}
	return b.String()
}
