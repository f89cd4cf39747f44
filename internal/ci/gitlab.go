package ci

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
	"github.com/prassanna-ravishankar/worktrunk/internal/xec"
)

// GitLabProvider detects CI status via the glab CLI, mirroring
// [GitHubProvider]'s CLI-only approach rather than wiring up the full
// gitlab-client-go API surface for a read-only status glyph.
type GitLabProvider struct {
	// GL is the path to the glab executable. Defaults to "glab".
	GL string

	Log *silog.Logger
}

var _ Provider = (*GitLabProvider)(nil)

func (p *GitLabProvider) Name() string { return "gitlab" }

type glMRView struct {
	WebURL       string `json:"web_url"`
	HasConflicts bool   `json:"has_conflicts"`
	Pipeline     struct {
		Status string `json:"status"`
	} `json:"pipeline"`
}

// Detect shells out to `glab mr view <branch> --output json` to find
// an open merge request for branch and summarise its latest pipeline.
func (p *GitLabProvider) Detect(ctx context.Context, repoIdentity, branch, headSHA string) (*PrStatus, error) {
	gl := p.GL
	if gl == "" {
		gl = "glab"
	}

	out, err := xec.Command(ctx, p.Log, gl,
		"mr", "view", branch,
		"--repo", repoIdentity,
		"--output", "json",
	).Output()
	if err != nil {
		if strings.Contains(string(out), "no open merge request") {
			return nil, nil
		}
		return nil, fmt.Errorf("glab mr view: %w", err)
	}

	var view glMRView
	if err := json.Unmarshal(out, &view); err != nil {
		return nil, fmt.Errorf("parse glab mr view output: %w", err)
	}

	status := StatusNoCI
	switch {
	case view.HasConflicts:
		status = StatusConflicts
	case view.Pipeline.Status != "":
		status = pipelineStatus(view.Pipeline.Status)
	}

	return &PrStatus{
		Status: status,
		Source: SourcePullRequest,
		URL:    view.WebURL,
	}, nil
}

func pipelineStatus(glStatus string) Status {
	switch strings.ToLower(glStatus) {
	case "success":
		return StatusPassed
	case "running", "pending", "created":
		return StatusRunning
	case "failed", "canceled":
		return StatusFailed
	default:
		return StatusNoCI
	}
}
