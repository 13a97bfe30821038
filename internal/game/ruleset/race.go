package ruleset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Race defines a unit ancestry and its additive stat modifiers.
//
// Precondition: ID and Name must be non-empty after loading.
type Race struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Article     string    `yaml:"article"`
	Description string    `yaml:"description"`
	Modifiers   StatBlock `yaml:"modifiers"`
}

// DisplayName returns the race name with its grammatical article.
// If Article is empty, returns Name alone.
func (r *Race) DisplayName() string {
	if r.Article == "" {
		return r.Name
	}
	return r.Article + " " + r.Name
}

// LoadRaces reads all .yaml files in dir and parses each as a Race.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed races (may be empty slice) or a non-nil error.
func LoadRaces(dir string) ([]*Race, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	races := make([]*Race, 0, len(files))
	for _, path := range files {
		var r Race
		if err := decodeFile(path, &r); err != nil {
			return nil, fmt.Errorf("parsing race file %s: %w", path, err)
		}
		if r.ID == "" || r.Name == "" {
			return nil, fmt.Errorf("race file %s: id and name are required", path)
		}
		races = append(races, &r)
	}
	return races, nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}
