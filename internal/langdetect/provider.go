package langdetect

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// InContainer reports whether the broker is running inside a
// container, per spec §4.3: CONTAINER or DOCKER env vars, or the
// presence of /.dockerenv.
func InContainer() bool {
	if os.Getenv("CONTAINER") != "" || os.Getenv("DOCKER") != "" {
		return true
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

// ErrInstallRefused is returned when Install is attempted without
// consent, or while running in a container.
type ErrInstallRefused struct {
	Reason string
}

func (e *ErrInstallRefused) Error() string {
	return fmt.Sprintf("install refused: %s", e.Reason)
}

// Provider is the polymorphic capability set {isAvailable, install,
// getCommand} selected per recipe. The core depends only on this
// interface; how each language checks availability or installs itself
// is strategy-specific and lives behind it.
type Provider interface {
	IsAvailable(ctx context.Context) bool
	Install(ctx context.Context, consent bool, force bool) error
	GetCommand(inContainer bool) (string, []string)
}

// execProvider is the default Provider: availability is "binary on
// PATH", and install is delegated to an installer function supplied by
// the per-language strategy table in strategies.go.
type execProvider struct {
	recipe    Recipe
	installFn func(ctx context.Context, force bool) error
}

// NewProvider builds the default exec-on-PATH Provider for recipe,
// using installers for the install step.
func NewProvider(recipe Recipe, installers map[string]func(ctx context.Context, force bool) error) Provider {
	return &execProvider{recipe: recipe, installFn: installers[recipe.ID]}
}

func (p *execProvider) IsAvailable(ctx context.Context) bool {
	_, err := exec.LookPath(p.recipe.Command)
	return err == nil
}

func (p *execProvider) Install(ctx context.Context, consent bool, force bool) error {
	if p.installFn == nil {
		return fmt.Errorf("no installer registered for %s", p.recipe.ID)
	}
	if !consent {
		return &ErrInstallRefused{Reason: "install requires explicit user consent"}
	}
	if InContainer() {
		return &ErrInstallRefused{Reason: "running inside a container; install pre-provisioned servers instead"}
	}
	return p.installFn(ctx, force)
}

func (p *execProvider) GetCommand(inContainer bool) (string, []string) {
	return p.recipe.CommandFor(inContainer)
}
