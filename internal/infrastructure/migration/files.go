package migration

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

// File describes one migration version found in a source.
type File struct {
	Version uint
	Name    string
	HasDown bool
}

// List returns the migrations available in source ordered by version.
// Every version must have an up file.
func List(source fs.FS) ([]File, error) {
	entries, err := fs.ReadDir(source, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	byVersion := make(map[uint]*File)
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		version, name, direction, err := parseFileName(entry.Name())
		if err != nil {
			return nil, err
		}
		f, ok := byVersion[version]
		if !ok {
			f = &File{Version: version, Name: name}
			byVersion[version] = f
		}
		if f.Name != name {
			return nil, fmt.Errorf("migration %d has mismatched names %q and %q", version, f.Name, name)
		}
		if direction == "down" {
			f.HasDown = true
		}
	}

	files := make([]File, 0, len(byVersion))
	for _, f := range byVersion {
		files = append(files, *f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })

	for _, f := range files {
		if _, err := fs.Stat(source, fmt.Sprintf("%06d_%s.up.sql", f.Version, f.Name)); err != nil {
			return nil, fmt.Errorf("migration %d is missing its up file", f.Version)
		}
	}
	return files, nil
}

// parseFileName splits "000002_create_products.up.sql".
func parseFileName(fileName string) (uint, string, string, error) {
	base := strings.TrimSuffix(fileName, ".sql")
	dot := strings.LastIndex(base, ".")
	if dot < 0 {
		return 0, "", "", fmt.Errorf("migration %q has no direction", fileName)
	}
	direction := base[dot+1:]
	if direction != "up" && direction != "down" {
		return 0, "", "", fmt.Errorf("migration %q has unknown direction %q", fileName, direction)
	}

	rawVersion, name, ok := strings.Cut(base[:dot], "_")
	if !ok || name == "" {
		return 0, "", "", fmt.Errorf("migration %q has no name", fileName)
	}
	version, err := strconv.ParseUint(rawVersion, 10, 64)
	if err != nil {
		return 0, "", "", fmt.Errorf("migration %q has invalid version: %w", fileName, err)
	}
	return uint(version), name, direction, nil
}
