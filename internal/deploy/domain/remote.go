package domain

import "regexp"

// githubRemoteRe matches https and ssh GitHub remotes:
//   - https://github.com/owner/repo(.git)
//   - git@github.com:owner/repo(.git)
var githubRemoteRe = regexp.MustCompile(`^(?:https://github\.com/|git@github\.com:)([^/]+)/([^/]+?)(?:\.git)?/?$`)

// ParseGitHubRemote extracts owner and repo from a GitHub remote URL.
// ok is false for non-GitHub remotes.
func ParseGitHubRemote(repoURL string) (owner, repo string, ok bool) {
	m := githubRemoteRe.FindStringSubmatch(repoURL)
	if len(m) != 3 {
		return "", "", false
	}
	return m[1], m[2], true
}
