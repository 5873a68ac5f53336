// Package platform is the extension point for code-hosting platforms (GitHub
// and friends) whose issues and merge requests could be archived next to the
// git history. Implementations register a factory under the `type` used in
// the repository configuration.
package platform

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrNotSupported is returned by capabilities a platform does not offer.
	ErrNotSupported = errors.New("not supported by this platform")
	ErrUnknownType  = errors.New("unknown platform type")
)

// MergeRequest is attached to issues that propose a change.
type MergeRequest struct {
	Base string
	Head string
}

// Recorder receives the issues and comments streamed by Project.Issues.
type Recorder interface {
	RecordIssue(ctx context.Context, id string, title string, description *string, mr *MergeRequest) error
	RecordComment(ctx context.Context, issueID string, id *string, parent *string, text *string) error
}

// Project is one repository hosted on a platform.
type Project interface {
	// GitURL returns the clone URL when the platform knows it.
	GitURL() (string, bool)
	// Issues streams issues updated after the last marker into rec.
	Issues(ctx context.Context, rec Recorder, last string) error
}

// Platform lists projects belonging to a user.
type Platform interface {
	ListOwnProjects(ctx context.Context, username string) ([]Project, error)
	ListStarredProjects(ctx context.Context, username string) ([]Project, error)
}

// Unsupported can be embedded to reject every Platform capability.
type Unsupported struct{}

func (Unsupported) ListOwnProjects(context.Context, string) ([]Project, error) {
	return nil, ErrNotSupported
}

func (Unsupported) ListStarredProjects(context.Context, string) ([]Project, error) {
	return nil, ErrNotSupported
}

// Factory builds a project from its configuration settings (a JSON object).
type Factory func(settings []byte) (Project, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a platform available under name. It panics on duplicates.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		panic(fmt.Sprintf("platform %q registered twice", name))
	}
	registry[name] = factory
}

func Lookup(name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %v)", ErrUnknownType, name, typesLocked())
	}
	return factory, nil
}

// NewProject looks up the platform and builds the project in one step.
func NewProject(name string, settings []byte) (Project, error) {
	factory, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	project, err := factory(settings)
	if err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", name, err)
	}
	return project, nil
}

func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return typesLocked()
}

func typesLocked() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
