package workout

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SourceExt is the file extension of workout source files.
const SourceExt = ".workout"

// ErrEmptySource reports a workout file without workout text.
var ErrEmptySource = errors.New("workout file has no workout text")

// Source is a workout file split into its header metadata and body.
type Source struct {
	Meta Metadata
	Text string
}

// ParseSource reads a workout file. Lines starting with '#' before or
// between workout lines are comments; the header keys name, author and
// description set the matching metadata field:
//
//	# name: Over-unders
//	# author: Jane
//	3*(2m@270w+1m@220w) | 250w
//
// Body lines are joined with single spaces.
func ParseSource(data []byte) (Source, error) {
	var src Source
	var body []string

	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "#") {
			body = append(body, line)
			continue
		}

		key, value, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "#")), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "name":
			src.Meta.Name = value
		case "author":
			src.Meta.Author = value
		case "description":
			src.Meta.Description = value
		}
	}
	if err := sc.Err(); err != nil {
		return Source{}, fmt.Errorf("reading workout file at line %d: %w", lineNo, err)
	}

	src.Text = strings.Join(body, " ")
	if src.Text == "" {
		return Source{}, ErrEmptySource
	}
	return src, nil
}

// LoadSource reads and parses the workout file at path. A file without a
// name header is named after the file, without its extension.
func LoadSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, err
	}
	src, err := ParseSource(data)
	if err != nil {
		return Source{}, fmt.Errorf("%s: %w", path, err)
	}
	if src.Meta.Name == "" {
		src.Meta.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return src, nil
}

// FindSources returns the paths of all workout files under root, sorted.
// Hidden directories are skipped.
func FindSources(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), SourceExt) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}
