package langdetect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector() *Detector {
	return NewDetector(NewRegistry(DefaultRecipes))
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
}

func TestDetect_GoWorkspace(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "go.mod")

	detected, ok := newTestDetector().Detect(dir)
	require.True(t, ok)
	assert.Equal(t, "go", detected.Recipe.ID)
	assert.Equal(t, "gopls", detected.Recipe.Command)
	assert.Equal(t, dir, detected.Workspace)
}

func TestDetect_MarkerPriority(t *testing.T) {
	tests := []struct {
		name    string
		markers []string
		want    string
	}{
		{"cargo beats go.mod", []string{"Cargo.toml", "go.mod"}, "rust"},
		{"go.mod beats python markers", []string{"go.mod", "setup.py"}, "go"},
		{"csproj glob", []string{"app.csproj"}, "csharp"},
		{"pom is java", []string{"pom.xml"}, "java"},
		{"groovy gradle is java", []string{"build.gradle"}, "java"},
		{"kts gradle is kotlin", []string{"build.gradle.kts"}, "kotlin"},
		{"kts settings is kotlin", []string{"settings.gradle.kts"}, "kotlin"},
		{"swift package", []string{"Package.swift"}, "swift"},
		{"cmake is cpp", []string{"CMakeLists.txt"}, "cpp"},
		{"compile db is cpp", []string{"compile_commands.json"}, "cpp"},
		{"gemfile is ruby", []string{"Gemfile"}, "ruby"},
		{"composer is php", []string{"composer.json"}, "php"},
		{"pyproject is python", []string{"pyproject.toml"}, "python"},
		{"requirements is python", []string{"requirements.txt"}, "python"},
		{"loose py file is python", []string{"script.py"}, "python"},
		{"tsconfig is typescript", []string{"tsconfig.json"}, "typescript"},
		{"jsconfig is javascript", []string{"jsconfig.json"}, "javascript"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			touch(t, dir, tt.markers...)
			detected, ok := newTestDetector().Detect(dir)
			require.True(t, ok)
			assert.Equal(t, tt.want, detected.Recipe.ID)
		})
	}
}

func TestDetect_PackageJSONClassification(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"typescript dependency", `{"devDependencies":{"typescript":"^5.0.0"}}`, "typescript"},
		{"types package", `{"devDependencies":{"@types/node":"^20.0.0"}}`, "typescript"},
		{"ts tooling", `{"devDependencies":{"tsx":"^4.0.0"}}`, "typescript"},
		{"esbuild counts as ts", `{"dependencies":{"esbuild":"^0.19.0"}}`, "typescript"},
		{"plain javascript", `{"dependencies":{"express":"^4.18.0"}}`, "javascript"},
		{"no dependencies", `{"name":"thing"}`, "javascript"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(tt.content), 0o644))
			detected, ok := newTestDetector().Detect(dir)
			require.True(t, ok)
			assert.Equal(t, tt.want, detected.Recipe.ID)
		})
	}
}

func TestDetect_NoMarkers(t *testing.T) {
	_, ok := newTestDetector().Detect(t.TempDir())
	assert.False(t, ok)
}

func TestDetectByExtension(t *testing.T) {
	d := newTestDetector()

	tests := []struct {
		path   string
		wantID string
		wantOK bool
	}{
		{"main.go", "go", true},
		{"/abs/path/lib.rs", "rust", true},
		{"file.test.ts", "typescript", true},
		{".eslintrc.js", "javascript", true},
		{"component.tsx", "typescript", true},
		{".gitignore", "", false},
		{"Makefile", "", false},
		{"README", "", false},
		{"script.unknownext", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, ok := d.DetectByExtension(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, rec.ID)
			}
		})
	}
}

func TestDetectByExtension_IsCaseInsensitive(t *testing.T) {
	rec, ok := newTestDetector().DetectByExtension("PROGRAM.GO")
	require.True(t, ok)
	assert.Equal(t, "go", rec.ID)
}

func TestRegistry_ByIDAndByExtension(t *testing.T) {
	reg := NewRegistry(DefaultRecipes)

	rec, ok := reg.ByID("typescript")
	require.True(t, ok)
	assert.Equal(t, "typescript-language-server", rec.Command)

	_, ok = reg.ByID("cobol")
	assert.False(t, ok)

	rec, ok = reg.ByExtension(".rb")
	require.True(t, ok)
	assert.Equal(t, "ruby", rec.ID)
}
