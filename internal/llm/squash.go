// Package llm generates a squash-commit message by invoking a
// user-configured LLM tool, falling back to a deterministic
// concatenation of subjects when the tool is unset or fails.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
	"github.com/prassanna-ravishankar/worktrunk/internal/xec"
)

// Tool identifies the binary + args used to generate squash messages,
// mirroring config.LLMTool so this package doesn't need to import it.
type Tool struct {
	Command string
	Args    []string
}

// SquashMessage returns a commit message summarizing subjects (oldest
// first) for squashing into target. If tool.Command is empty, or the
// tool invocation fails, it falls back to a deterministic message.
func SquashMessage(ctx context.Context, log *silog.Logger, tool Tool, target string, subjects []string) string {
	fallback := deterministicMessage(target, subjects)
	if tool.Command == "" {
		return fallback
	}

	prompt := buildPrompt(target, subjects)
	out, err := xec.Command(ctx, log, tool.Command, tool.Args...).
		WithStdinString(prompt).
		OutputChomp()
	if err != nil {
		log.Warnf("llm squash message generation failed, using fallback: %v", err)
		return fallback
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return fallback
	}
	return out
}

func deterministicMessage(target string, subjects []string) string {
	if len(subjects) == 0 {
		return fmt.Sprintf("Squash commits from %s", target)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Squash commits from %s\n", target)
	for _, s := range subjects {
		fmt.Fprintf(&sb, "\n* %s", s)
	}
	return sb.String()
}

func buildPrompt(target string, subjects []string) string {
	var sb strings.Builder
	sb.WriteString("Write a single concise commit message summarizing the following commits ")
	fmt.Fprintf(&sb, "that are being squashed for integration into %q. ", target)
	sb.WriteString("Respond with only the commit message, no commentary.\n\n")
	for _, s := range subjects {
		sb.WriteString("- ")
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	return sb.String()
}
