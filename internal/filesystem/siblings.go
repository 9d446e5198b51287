package filesystem

import (
	"os"
	"path/filepath"
	"strings"
)

// Siblings returns the paths of all files in sourcePath's directory that
// share its base filename (the name with the extension stripped), excluding
// the source itself. This matches every derivative of the source regardless
// of target extension, plus any pending ".queue" descriptors, since both are
// named "<base>.<something>".
//
// A source "photo.jpg" matches "photo.800x450.jpg", "photo.800x450.webp" and
// "photo.800x450.webp.queue" but not "photograph.jpg".
func Siblings(sourcePath string) ([]string, error) {
	dir := filepath.Dir(sourcePath)
	srcName := filepath.Base(sourcePath)
	base := strings.TrimSuffix(srcName, filepath.Ext(srcName))
	prefix := base + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var siblings []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == srcName {
			continue
		}
		if strings.HasPrefix(name, prefix) {
			siblings = append(siblings, filepath.Join(dir, name))
		}
	}

	return siblings, nil
}
