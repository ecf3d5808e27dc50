// Package langdetect maps a workspace or file to a canonical language
// and launch recipe, and exposes per-language Provider strategies for
// availability probing and (consent-gated) installation.
package langdetect

// Recipe is an immutable description of one supported language: its
// identity, file extensions, and the command used to launch its
// language server. Recipes are owned by the registry and shared
// read-only; detection never mutates one.
type Recipe struct {
	ID             string
	DisplayName    string
	Extensions     []string
	Command        string
	Args           []string
	ContainerArgs  []string // overrides Args when running in a container, if set
	InitOptions    map[string]interface{}
	PackageManager string // hint consumed only by Provider.Install
}

// CommandFor returns the argv appropriate to the current environment,
// preferring ContainerArgs when running inside a container and one was
// supplied.
func (r Recipe) CommandFor(inContainer bool) (string, []string) {
	if inContainer && len(r.ContainerArgs) > 0 {
		return r.Command, r.ContainerArgs
	}
	return r.Command, r.Args
}

// DefaultRecipes is the built-in language table. Launch commands assume
// the server binary is already on PATH; Provider.Install exists for the
// cases where it is not and the user has consented to installation.
var DefaultRecipes = []Recipe{
	{
		ID: "go", DisplayName: "Go", Extensions: []string{".go"},
		Command: "gopls", Args: []string{"serve"},
		PackageManager: "go",
	},
	{
		ID: "rust", DisplayName: "Rust", Extensions: []string{".rs"},
		Command: "rust-analyzer",
		PackageManager: "release-tarball",
	},
	{
		ID: "csharp", DisplayName: "C#", Extensions: []string{".cs"},
		Command: "omnisharp", Args: []string{"-lsp"},
		PackageManager: "dotnet",
	},
	{
		ID: "java", DisplayName: "Java", Extensions: []string{".java"},
		Command: "jdtls",
		PackageManager: "archive",
	},
	{
		ID: "kotlin", DisplayName: "Kotlin", Extensions: []string{".kt", ".kts"},
		Command: "kotlin-language-server",
		PackageManager: "archive",
	},
	{
		ID: "swift", DisplayName: "Swift", Extensions: []string{".swift"},
		Command: "sourcekit-lsp",
		PackageManager: "toolchain",
	},
	{
		ID: "cpp", DisplayName: "C/C++", Extensions: []string{".c", ".h", ".cc", ".cpp", ".cxx", ".hpp", ".hh"},
		Command: "clangd",
		PackageManager: "apt/yum/brew",
	},
	{
		ID: "ruby", DisplayName: "Ruby", Extensions: []string{".rb"},
		Command: "solargraph", Args: []string{"stdio"},
		PackageManager: "gem",
	},
	{
		ID: "php", DisplayName: "PHP", Extensions: []string{".php"},
		Command: "intelephense", Args: []string{"--stdio"},
		PackageManager: "npm/yarn",
	},
	{
		ID: "python", DisplayName: "Python", Extensions: []string{".py", ".pyi"},
		Command: "pyright-langserver", Args: []string{"--stdio"},
		PackageManager: "pip/pipx",
	},
	{
		ID: "typescript", DisplayName: "TypeScript", Extensions: []string{".ts", ".tsx"},
		Command: "typescript-language-server", Args: []string{"--stdio"},
		PackageManager: "npm/yarn",
	},
	{
		ID: "javascript", DisplayName: "JavaScript", Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		Command: "typescript-language-server", Args: []string{"--stdio"},
		PackageManager: "npm/yarn",
	},
}

// tsMarkerDeps is the set of package.json dependency names that tip
// classification to typescript rather than javascript, per spec §4.3
// step 12.
var tsMarkerDeps = []string{"typescript", "ts-node", "tsx", "ts-jest", "@swc/core", "esbuild"}
