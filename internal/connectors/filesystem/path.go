package filesystem

import (
	"os"
	"path/filepath"
	"strings"
)

// LocalPath converts a file:// URI or a ~-prefixed path to a local path.
// Other roots pass through unchanged.
func LocalPath(root string) string {
	root = strings.TrimPrefix(root, "file://")
	if root == "~" || strings.HasPrefix(root, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(root, "~"))
		}
	}
	return root
}

// IsLocal reports whether root names an existing local directory.
func IsLocal(root string) bool {
	info, err := os.Stat(LocalPath(root))
	return err == nil && info.IsDir()
}
