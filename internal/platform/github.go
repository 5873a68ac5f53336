package platform

import (
	"context"
	"errors"
	"fmt"

	"sigs.k8s.io/yaml"
)

func init() {
	Register("github", newGitHubProject)
	Register("git", newPlainProject)
}

// GitHub has no API client yet; project listing is unsupported.
type GitHub struct {
	Unsupported
}

type GitHubProject struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

func newGitHubProject(settings []byte) (Project, error) {
	var p GitHubProject
	if err := decodeSettings(settings, &p); err != nil {
		return nil, err
	}
	if p.Owner == "" || p.Repo == "" {
		return nil, errors.New(`"owner" and "repo" are required`)
	}
	return &p, nil
}

func (p *GitHubProject) GitURL() (string, bool) {
	return fmt.Sprintf("https://github.com/%s/%s.git", p.Owner, p.Repo), true
}

// TODO: import issues and pull requests through the GitHub REST API.
func (p *GitHubProject) Issues(context.Context, Recorder, string) error {
	return ErrNotSupported
}

// PlainProject is a bare mirror without any hosting platform behind it.
type PlainProject struct {
	URL string `json:"url,omitempty"`
}

func newPlainProject(settings []byte) (Project, error) {
	var p PlainProject
	if err := decodeSettings(settings, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *PlainProject) GitURL() (string, bool) {
	return p.URL, p.URL != ""
}

func (p *PlainProject) Issues(context.Context, Recorder, string) error {
	return ErrNotSupported
}

func decodeSettings(settings []byte, out any) error {
	if len(settings) == 0 {
		settings = []byte("{}")
	}
	return yaml.UnmarshalStrict(settings, out)
}
