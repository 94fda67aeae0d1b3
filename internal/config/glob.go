package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Stdin is the file argument that selects standard input.
const Stdin = "-"

// ExpandGlobs expands file paths, directories and glob patterns into a sorted
// unique list of regular files. A directory contributes the regular files
// directly inside it. Stdin is passed through and always sorts first.
func ExpandGlobs(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no file patterns provided")
	}

	var files []string
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, pattern := range patterns {
		if pattern == Stdin {
			add(Stdin)
			continue
		}

		matches := []string{pattern}
		if hasGlobMeta(pattern) {
			var err error
			matches, err = filepath.Glob(pattern)
			if err != nil {
				return nil, err
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no matches for pattern %q", pattern)
			}
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, err
			}
			if !info.IsDir() {
				add(match)
				continue
			}
			entries, err := os.ReadDir(match)
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				if entry.Type().IsRegular() {
					add(filepath.Join(match, entry.Name()))
				}
			}
		}
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i] == Stdin || files[j] == Stdin {
			return files[i] == Stdin && files[j] != Stdin
		}
		return files[i] < files[j]
	})
	return files, nil
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}
