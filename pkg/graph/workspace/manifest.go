package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// Manifest is one compilation unit: a tsconfig-style file declaring either an
// explicit member-file list or include patterns, plus an optional path-alias
// table used for import resolution.
type Manifest struct {
	Path    string              // manifest file location
	Dir     string              // directory the manifest lives in
	Files   []string            // declared file list, as written
	Include []string            // declared include patterns, as written
	BaseURL string              // compilerOptions.baseUrl, relative to Dir
	Aliases map[string][]string // compilerOptions.paths: alias prefix -> candidate dirs
}

// ParseManifest reads and parses one manifest. tsconfig files routinely carry
// comments and trailing commas, so the raw bytes are scrubbed to plain JSON
// before being handed to gjson.
func ParseManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	body := scrubJSONC(raw)
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("manifest %s is not valid JSON", path)
	}

	m := &Manifest{
		Path:    path,
		Dir:     filepath.Dir(path),
		Aliases: make(map[string][]string),
	}

	for _, f := range gjson.GetBytes(body, "files").Array() {
		if f.Type == gjson.String {
			m.Files = append(m.Files, f.String())
		}
	}
	for _, p := range gjson.GetBytes(body, "include").Array() {
		if p.Type == gjson.String {
			m.Include = append(m.Include, p.String())
		}
	}

	m.BaseURL = gjson.GetBytes(body, "compilerOptions.baseUrl").String()

	gjson.GetBytes(body, "compilerOptions.paths").ForEach(func(alias, candidates gjson.Result) bool {
		var dirs []string
		for _, c := range candidates.Array() {
			if c.Type == gjson.String {
				dirs = append(dirs, c.String())
			}
		}
		if len(dirs) > 0 {
			m.Aliases[alias.String()] = dirs
		}
		return true
	})

	return m, nil
}

// HasFileSet reports whether the manifest declares any member files at all.
// Manifests without one (solution-style tsconfigs that only reference other
// configs) are skipped by discovery.
func (m *Manifest) HasFileSet() bool {
	return len(m.Files) > 0 || len(m.Include) > 0
}

// AliasBase returns the directory alias candidates are resolved against.
func (m *Manifest) AliasBase() string {
	if m.BaseURL == "" {
		return m.Dir
	}
	return filepath.Join(m.Dir, m.BaseURL)
}

// scrubJSONC blanks line and block comments and removes trailing commas,
// preserving everything inside string literals.
func scrubJSONC(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	inString := false
	escaped := false

	for i := 0; i < len(raw); i++ {
		c := raw[i]

		if inString {
			out = append(out, c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			out = append(out, c)
		case c == '/' && i+1 < len(raw) && raw[i+1] == '/':
			for i < len(raw) && raw[i] != '\n' {
				i++
			}
			if i < len(raw) {
				out = append(out, '\n')
			}
		case c == '/' && i+1 < len(raw) && raw[i+1] == '*':
			i += 2
			for i+1 < len(raw) && !(raw[i] == '*' && raw[i+1] == '/') {
				i++
			}
			i++ // skip the closing '/'
		case c == ',':
			// Drop the comma if the next non-whitespace byte closes a
			// container.
			j := i + 1
			for j < len(raw) && (raw[j] == ' ' || raw[j] == '\t' || raw[j] == '\n' || raw[j] == '\r') {
				j++
			}
			if j < len(raw) && (raw[j] == '}' || raw[j] == ']') {
				continue
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}

	return out
}
