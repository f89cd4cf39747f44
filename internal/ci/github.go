package ci

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prassanna-ravishankar/worktrunk/internal/silog"
	"github.com/prassanna-ravishankar/worktrunk/internal/xec"
)

// GitHubProvider detects CI status via the gh CLI. It never talks to
// the GitHub API directly: CI status is read-only, incidental
// metadata for a table row, not a reason to carry githubv4 and its
// auth/token machinery into the core.
type GitHubProvider struct {
	// GH is the path to the gh executable. Defaults to "gh".
	GH string

	Log *silog.Logger
}

var _ Provider = (*GitHubProvider)(nil)

func (p *GitHubProvider) Name() string { return "github" }

type ghPRView struct {
	Number      int    `json:"number"`
	URL         string `json:"url"`
	Mergeable   string `json:"mergeable"`
	StatusCheck []struct {
		Conclusion string `json:"conclusion"`
		State      string `json:"state"`
	} `json:"statusCheckRollup"`
}

// Detect shells out to `gh pr view <branch> --json ...` to find an
// open pull request for branch and summarise its check-run rollup.
func (p *GitHubProvider) Detect(ctx context.Context, repoIdentity, branch, headSHA string) (*PrStatus, error) {
	gh := p.GH
	if gh == "" {
		gh = "gh"
	}

	out, err := xec.Command(ctx, p.Log, gh,
		"pr", "view", branch,
		"--repo", repoIdentity,
		"--json", "number,url,mergeable,statusCheckRollup",
	).Output()
	if err != nil {
		if strings.Contains(string(out), "no pull requests found") {
			return nil, nil
		}
		return nil, fmt.Errorf("gh pr view: %w", err)
	}

	var view ghPRView
	if err := json.Unmarshal(out, &view); err != nil {
		return nil, fmt.Errorf("parse gh pr view output: %w", err)
	}

	status := StatusNoCI
	switch {
	case view.Mergeable == "CONFLICTING":
		status = StatusConflicts
	case len(view.StatusCheck) > 0:
		status = rollupStatus(view.StatusCheck)
	}

	return &PrStatus{
		Status: status,
		Source: SourcePullRequest,
		URL:    view.URL,
	}, nil
}

func rollupStatus(checks []struct {
	Conclusion string `json:"conclusion"`
	State      string `json:"state"`
}) Status {
	sawFailure := false
	for _, c := range checks {
		switch strings.ToUpper(c.Conclusion) {
		case "FAILURE", "CANCELLED", "TIMED_OUT":
			sawFailure = true
		case "":
			if strings.ToUpper(c.State) == "IN_PROGRESS" || strings.ToUpper(c.State) == "QUEUED" {
				return StatusRunning
			}
		}
	}
	if sawFailure {
		return StatusFailed
	}
	return StatusPassed
}
