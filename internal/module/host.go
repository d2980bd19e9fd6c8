// Package module implements the ModuleGraph: transitive loading and
// specifier resolution for zena source files, grounded on the teacher's
// Loader/Resolver split but reworked so cyclic imports are tolerated rather
// than rejected (spec.md 3.1, 4.3).
package module

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Target selects which console implementation zena:console resolves to.
type Target string

const (
	TargetHost Target = "host"
	TargetWASI Target = "wasi"
)

// Host is the pluggable resolution/loading boundary a ModuleGraph is built
// against, per spec.md 4.3. A CLI build uses FileHost; test runners and the
// stdlib embed wrap it with RegisterVirtualFile to inject in-memory sources.
type Host interface {
	// Resolve maps a user-written specifier to a canonical path. referrer is
	// the path of the importing module, used to anchor ./ and ../ specifiers.
	Resolve(specifier, referrer string) (string, error)
	// Load returns the source text for a canonical path produced by Resolve.
	Load(path string) (string, error)
	// RegisterVirtualFile injects an in-memory module, taking priority over
	// anything Load would otherwise read from disk.
	RegisterVirtualFile(path, source string)
	// Target reports which runtime zena:console and friends should target.
	Target() Target
}

// FileHost resolves specifiers against the filesystem: relative paths
// against their referrer's directory, zena: specifiers against stdlibDir
// (overridable via the ZENA_STDLIB environment variable), and everything
// else against searchPaths.
type FileHost struct {
	stdlibDir   string
	searchPaths []string
	virtual     map[string]string
	target      Target
}

// NewFileHost builds a FileHost rooted at searchPaths, searched in order
// for bare (non-relative, non-zena:) specifiers.
func NewFileHost(searchPaths []string, target Target) *FileHost {
	stdlib := os.Getenv("ZENA_STDLIB")
	if stdlib == "" {
		stdlib = filepath.Join(".", "stdlib")
	}
	return &FileHost{
		stdlibDir:   stdlib,
		searchPaths: append([]string{"."}, searchPaths...),
		virtual:     make(map[string]string),
		target:      target,
	}
}

func (h *FileHost) RegisterVirtualFile(path, source string) {
	h.virtual[path] = source
}

func (h *FileHost) Target() Target { return h.target }

func (h *FileHost) Resolve(specifier, referrer string) (string, error) {
	switch {
	case strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../"):
		if referrer == "" {
			return "", fmt.Errorf("relative specifier %q has no referrer", specifier)
		}
		path := filepath.Join(filepath.Dir(referrer), specifier)
		return withExt(path), nil

	case strings.HasPrefix(specifier, "zena:"):
		name := strings.TrimPrefix(specifier, "zena:")
		virtualPath := "zena:" + name
		if _, ok := h.virtual[virtualPath]; ok {
			return virtualPath, nil
		}
		path := withExt(filepath.Join(h.stdlibDir, name))
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("stdlib module not found: %s", specifier)

	default:
		for _, sp := range h.searchPaths {
			path := withExt(filepath.Join(sp, specifier))
			if _, ok := h.virtual[path]; ok {
				return path, nil
			}
			if _, err := os.Stat(path); err == nil {
				abs, err := filepath.Abs(path)
				if err != nil {
					return path, nil
				}
				return abs, nil
			}
		}
		return "", fmt.Errorf("module not found in search paths: %s", specifier)
	}
}

func (h *FileHost) Load(path string) (string, error) {
	if src, ok := h.virtual[path]; ok {
		return src, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func withExt(path string) string {
	if strings.HasSuffix(path, ".zena") {
		return path
	}
	return path + ".zena"
}

// Prelude lists the stdlib modules implicitly loaded before user entry, per
// spec.md 4.3 and SPEC_FULL.md 3.1.
var Prelude = []string{
	"zena:string",
	"zena:array",
	"zena:error",
	"zena:option",
	"zena:sequence",
	"zena:iterator",
	"zena:range",
	"zena:console",
	"zena:box",
	"zena:map",
}
