package filesystem

import (
	"path/filepath"
	"strings"
)

// supportedExtensions lists the file types loaded as source text.
var supportedExtensions = map[string]bool{
	// Major languages
	".py": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true, ".java": true,
	".c": true, ".cpp": true, ".go": true, ".rs": true, ".php": true, ".rb": true,
	".swift": true, ".kt": true, ".cs": true, ".vb": true,
	// Scripting
	".sh": true, ".bat": true, ".pl": true, ".m": true, ".r": true, ".lua": true,
	// Web
	".html": true, ".css": true, ".json": true, ".xml": true, ".yml": true, ".yaml": true,
	// Docs and notebooks
	".md": true, ".txt": true, ".ipynb": true,
	// Data
	".sql": true,
}

// skipDirs are dependency, build and tool directories.
var skipDirs = map[string]bool{
	"node_modules": true, ".git": true, "__pycache__": true, ".venv": true, "env": true,
	"venv": true, ".mypy_cache": true, ".pytest_cache": true, ".vscode": true, ".idea": true,
	".next": true, "dist": true, "build": true, "out": true,
}

// skipFiles are lock, packaging and build files.
var skipFiles = map[string]bool{
	"package-lock.json": true, "package.json": true, "yarn.lock": true, "pnpm-lock.yaml": true,
	"requirements.txt": true, "poetry.lock": true, "Pipfile.lock": true, "pyproject.toml": true,
	"setup.py": true, "setup.cfg": true, "environment.yml": true, "Dockerfile": true,
}

// SkipDir reports whether a directory name is excluded from loading.
func SkipDir(name string) bool {
	return skipDirs[name] || isHidden(name)
}

// AcceptFile reports whether a file name is loaded as source text.
func AcceptFile(name string) bool {
	base := filepath.Base(name)
	if skipFiles[base] || isHidden(base) {
		return false
	}
	return supportedExtensions[strings.ToLower(filepath.Ext(base))]
}

// AcceptPath reports whether a slash-separated relative path passes the
// directory and file filters.
func AcceptPath(rel string) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, dir := range parts[:len(parts)-1] {
		if dir != "" && dir != "." && SkipDir(dir) {
			return false
		}
	}
	return AcceptFile(parts[len(parts)-1])
}

// isHidden reports whether a single path element starts with a dot.
// "." and ".." are not hidden.
func isHidden(name string) bool {
	return len(name) > 1 && name[0] == '.' && name != ".."
}
