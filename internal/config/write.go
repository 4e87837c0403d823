package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// SetKeyInFile sets a global option in the file at path, creating the file
// and its directory if needed. An existing global line for key is replaced in
// place; otherwise the option is added at the end of the global block, ahead
// of the first section. Comments, sections and ordering are preserved. An
// empty value writes the bare key.
func SetKeyInFile(path, key, value string) error {
	if key == "" || strings.ContainsAny(key, " \t\r\n#[]") {
		return fmt.Errorf("config: invalid key %q", key)
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("config: value for %s spans lines", key)
	}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: %w", err)
	}

	lines := setGlobal(splitLines(string(data)), key, strings.TrimSpace(key+" "+value))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return writeFileAtomic(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// setGlobal returns lines with entry in place of the global option key.
func setGlobal(lines []string, key, entry string) []string {
	end := len(lines)
	for i, text := range lines {
		l := parseLine(text)
		if l.kind == lineHeader {
			end = i
			break
		}
		if l.kind == lineOption && l.key == key {
			lines[i] = entry
			return lines
		}
	}
	// blank lines separating the globals from the first section stay put
	at := end
	for at > 0 && at < len(lines) && parseLine(lines[at-1]).kind == lineBlank {
		at--
	}
	return slices.Insert(lines, at, entry)
}

// writeFileAtomic replaces path with data via a synced temporary file in the
// same directory, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("config: write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("config: sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("config: chmod %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("config: close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
