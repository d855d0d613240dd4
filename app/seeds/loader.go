// Package seeds loads the list of site URLs to run feed discovery
// against at startup.
package seeds

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type seedsFile struct {
	Feeds []string `yaml:"feeds"`
}

// Load reads seed URLs from a YAML file. A missing file is not an
// error; it just means there is nothing to discover at startup.
// Duplicate and blank lines are dropped.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read seeds file: %w", err)
	}

	var file seedsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seeds file %s: %w", path, err)
	}

	seen := make(map[string]bool)
	urls := make([]string, 0, len(file.Feeds))
	for _, raw := range file.Feeds {
		u := strings.TrimSpace(raw)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls, nil
}
