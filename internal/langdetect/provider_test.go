package langdetect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_IsAvailable(t *testing.T) {
	onPath := NewProvider(Recipe{ID: "shim", Command: "sh"}, nil)
	assert.True(t, onPath.IsAvailable(context.Background()))

	missing := NewProvider(Recipe{ID: "shim", Command: "definitely-not-a-real-binary-4821"}, nil)
	assert.False(t, missing.IsAvailable(context.Background()))
}

func TestProvider_InstallRequiresConsent(t *testing.T) {
	p := NewProvider(Recipe{ID: "go", Command: "gopls"}, DefaultInstallers())

	err := p.Install(context.Background(), false, false)
	require.Error(t, err)
	var refused *ErrInstallRefused
	require.ErrorAs(t, err, &refused)
	assert.Contains(t, refused.Reason, "consent")
}

func TestProvider_InstallRefusedInContainer(t *testing.T) {
	t.Setenv("CONTAINER", "true")

	p := NewProvider(Recipe{ID: "go", Command: "gopls"}, DefaultInstallers())
	err := p.Install(context.Background(), true, false)
	require.Error(t, err)
	var refused *ErrInstallRefused
	require.ErrorAs(t, err, &refused)
	assert.Contains(t, refused.Reason, "container")
}

func TestProvider_InstallWithoutRegisteredInstaller(t *testing.T) {
	p := NewProvider(Recipe{ID: "nolang", Command: "nolang-server"}, nil)

	err := p.Install(context.Background(), true, false)
	require.Error(t, err)
	var refused *ErrInstallRefused
	assert.False(t, errors.As(err, &refused), "missing installer is an ordinary error, not a refusal")
}

func TestRecipe_CommandForContainer(t *testing.T) {
	rec := Recipe{
		ID: "typescript", Command: "typescript-language-server",
		Args:          []string{"--stdio"},
		ContainerArgs: []string{"--stdio", "--log-level", "1"},
	}

	cmd, args := rec.CommandFor(false)
	assert.Equal(t, "typescript-language-server", cmd)
	assert.Equal(t, []string{"--stdio"}, args)

	_, args = rec.CommandFor(true)
	assert.Equal(t, []string{"--stdio", "--log-level", "1"}, args)
}

func TestInContainer_EnvDetection(t *testing.T) {
	t.Setenv("DOCKER", "1")
	assert.True(t, InContainer())
}
