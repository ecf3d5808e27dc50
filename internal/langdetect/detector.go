package langdetect

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// DetectedLanguage is a Recipe resolved against a concrete filesystem
// root. Immutable once constructed.
type DetectedLanguage struct {
	Recipe    Recipe
	Workspace string
}

// Detector probes a workspace's marker files, or a single file's
// extension, against a Registry to infer a canonical language.
type Detector struct {
	registry *Registry
}

// NewDetector builds a Detector over registry.
func NewDetector(registry *Registry) *Detector {
	return &Detector{registry: registry}
}

func exists(root string, names ...string) bool {
	for _, n := range names {
		if _, err := os.Stat(filepath.Join(root, n)); err == nil {
			return true
		}
	}
	return false
}

func globExists(root string, patterns ...string) bool {
	for _, pat := range patterns {
		matches, err := filepath.Glob(filepath.Join(root, pat))
		if err == nil && len(matches) > 0 {
			return true
		}
	}
	return false
}

func anyPyFile(root string) bool {
	entries, err := os.ReadDir(root)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".py") {
			return true
		}
	}
	return false
}

// packageJSONWantsTypeScript implements spec §4.3 step 12's dependency
// classification: typescript if package.json declares typescript
// itself, any @types/* package, or one of a small set of TS-adjacent
// tooling packages.
func packageJSONWantsTypeScript(root string) bool {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return false
	}
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return false
	}
	check := func(deps map[string]string) bool {
		for name := range deps {
			if name == "typescript" || strings.HasPrefix(name, "@types/") {
				return true
			}
			for _, marker := range tsMarkerDeps {
				if name == marker {
					return true
				}
			}
		}
		return false
	}
	return check(pkg.Dependencies) || check(pkg.DevDependencies)
}

// Detect probes workspaceRoot's marker files in the fixed priority
// order specified in spec §4.3 and returns the first matching
// DetectedLanguage, or ok=false if nothing matched.
func (d *Detector) Detect(workspaceRoot string) (DetectedLanguage, bool) {
	id, matched := d.classify(workspaceRoot)
	if !matched {
		return DetectedLanguage{}, false
	}
	rec, ok := d.registry.ByID(id)
	if !ok {
		return DetectedLanguage{}, false
	}
	return DetectedLanguage{Recipe: rec, Workspace: workspaceRoot}, true
}

func (d *Detector) classify(root string) (string, bool) {
	switch {
	case exists(root, "Cargo.toml"):
		return "rust", true
	case exists(root, "go.mod"):
		return "go", true
	case globExists(root, "*.csproj", "*.sln", "*.fsproj", "*.vbproj"):
		return "csharp", true
	case exists(root, "settings.gradle.kts", "build.gradle.kts"):
		return "kotlin", true
	case exists(root, "pom.xml", "build.gradle"):
		return "java", true
	case exists(root, "Package.swift", ".swiftpm"):
		return "swift", true
	case exists(root, "CMakeLists.txt", "Makefile", ".clang-format", "compile_commands.json"):
		return "cpp", true
	case exists(root, "Gemfile", "Rakefile", ".ruby-version", ".rvmrc"):
		return "ruby", true
	case exists(root, "composer.json", "composer.lock", ".php-version"):
		return "php", true
	case exists(root, "setup.py", "pyproject.toml", "requirements.txt", "Pipfile", "poetry.lock"):
		return "python", true
	case anyPyFile(root):
		return "python", true
	case exists(root, "tsconfig.json"):
		return "typescript", true
	case exists(root, "jsconfig.json"):
		return "javascript", true
	case exists(root, "package.json"):
		if packageJSONWantsTypeScript(root) {
			return "typescript", true
		}
		return "javascript", true
	default:
		return "", false
	}
}

// DetectByExtension looks up path's file extension in the registry.
// Files with no extension, including dotfiles such as ".gitignore",
// return ok=false.
func (d *Detector) DetectByExtension(path string) (Recipe, bool) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == "" || ext == base {
		return Recipe{}, false
	}
	return d.registry.ByExtension(ext)
}
