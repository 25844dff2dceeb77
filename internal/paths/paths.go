// Package paths composes source and output locations from nested configuration layers.
package paths

import "path/filepath"

// Resolve joins rel onto root.
//
// An empty rel returns root unchanged, so a category without a path override
// keeps its parent's location. When both are empty the result is empty.
func Resolve(root, rel string) string {
	if rel == "" {
		return root
	}
	if root == "" {
		return filepath.Clean(rel)
	}
	return filepath.Join(root, rel)
}

// Within reports whether target equals base or lies beneath it.
func Within(base, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(base), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !filepath.IsAbs(rel) && !hasParentPrefix(rel))
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
