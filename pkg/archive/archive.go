// Package archive opens a pact auditor pack (a ZIP container) and resolves
// its logical members — manifest, checksums, constitution, transcript, and
// derived artifacts — against canonical paths with regex fallbacks.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
)

var (
	// ErrPackMalformed is returned when the archive container itself cannot
	// be read, or contains duplicate normalized paths / path-traversal entries.
	ErrPackMalformed = errors.New("archive: pack malformed")
)

// Member is a single resolved archive entry.
type Member struct {
	Path  string
	Bytes []byte
}

// Archive is a read-only view over a pack's members, keyed by normalized
// relative path. Open decompresses every member into its own buffer, so
// member bytes do not alias the input byte buffer.
type Archive struct {
	members map[string][]byte
	paths   []string // sorted normalized paths, for deterministic iteration
}

// Open reads data as a ZIP container and normalizes every entry's path.
// It rejects unreadable containers, path-traversal entries, and duplicate
// normalized paths — all three are PackMalformed per the component
// contract: none of them can be attributed to any single required member,
// so they fail the whole pack rather than surfacing as a missing-member error.
func Open(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackMalformed, err)
	}

	members := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		norm := normalizePath(f.Name)
		if norm == "" {
			continue
		}
		if strings.HasPrefix(norm, "../") || norm == ".." {
			return nil, fmt.Errorf("%w: entry escapes archive root: %s", ErrPackMalformed, f.Name)
		}
		if _, exists := members[norm]; exists {
			return nil, fmt.Errorf("%w: duplicate normalized path: %s", ErrPackMalformed, norm)
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrPackMalformed, f.Name, err)
		}
		buf := new(bytes.Buffer)
		if _, err := buf.ReadFrom(rc); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("%w: reading %s: %v", ErrPackMalformed, f.Name, err)
		}
		_ = rc.Close()

		members[norm] = buf.Bytes()
	}

	paths := make([]string, 0, len(members))
	for p := range members {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	return &Archive{members: members, paths: paths}, nil
}

// normalizePath converts backslashes to forward slashes and strips a
// leading "./", per spec's path normalization rule.
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	return path.Clean(p)
}

// Paths returns the sorted normalized paths of every member, for
// deterministic iteration and error reporting.
func (a *Archive) Paths() []string {
	out := make([]string, len(a.paths))
	copy(out, a.paths)
	return out
}

// Get returns the raw bytes of the member at the given normalized path.
func (a *Archive) Get(normalizedPath string) ([]byte, bool) {
	b, ok := a.members[normalizedPath]
	return b, ok
}

// Requirement describes one logical member the verifier needs, with its
// canonical path and a fallback pattern matched against every normalized
// path if the canonical path is absent.
type Requirement struct {
	Key            string
	CanonicalPath  string
	FallbackRegexp *regexp.Regexp
	Optional       bool
}

// Requirements is the fixed set of logical members defined in spec.md §3.
var Requirements = []Requirement{
	{Key: "manifest", CanonicalPath: "manifest.json", FallbackRegexp: regexp.MustCompile(`^manifest\.json$`)},
	{Key: "checksums", CanonicalPath: "checksums.sha256", FallbackRegexp: regexp.MustCompile(`checksums.*\.sha256$`)},
	{Key: "constitution", CanonicalPath: "constitution/CONSTITUTION_v1.md", FallbackRegexp: regexp.MustCompile(`CONSTITUTION.*\.md$`)},
	{Key: "transcript", CanonicalPath: "input/transcript.json", FallbackRegexp: regexp.MustCompile(`transcript.*\.json$`)},
	{Key: "gc_view", CanonicalPath: "derived/gc_view.json", FallbackRegexp: regexp.MustCompile(`gc_view\.json$`)},
	{Key: "judgment", CanonicalPath: "derived/judgment.json", FallbackRegexp: regexp.MustCompile(`judgment.*\.json$`)},
	{Key: "insurer_summary", CanonicalPath: "derived/insurer_summary.json", FallbackRegexp: regexp.MustCompile(`insurer_summary.*\.json$`)},
	{Key: "merkle_digest", CanonicalPath: "derived/merkle_digest.json", FallbackRegexp: nil, Optional: true},
}

// PackLoadError reports the requirements that could not be resolved,
// alongside every path actually present in the archive — per spec.md §4.2,
// the caller needs both to diagnose a malformed or mis-packaged bundle.
type PackLoadError struct {
	Missing     []string
	FoundPaths  []string
}

func (e *PackLoadError) Error() string {
	return fmt.Sprintf("archive: missing required member(s) %s (found: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.FoundPaths, ", "))
}

// Resolved holds every required (and any present optional) member, keyed by
// Requirement.Key.
type Resolved struct {
	Members map[string]Member
}

// Resolve looks up every Requirement against the archive: canonical path
// first, exact-path membership wins over a pattern match so that an
// intentionally-named canonical file is never shadowed by an unrelated
// file that merely matches the fallback pattern.
func Resolve(a *Archive) (*Resolved, error) {
	resolved := &Resolved{Members: make(map[string]Member, len(Requirements))}
	var missing []string

	for _, req := range Requirements {
		if b, ok := a.Get(req.CanonicalPath); ok {
			resolved.Members[req.Key] = Member{Path: req.CanonicalPath, Bytes: b}
			continue
		}

		found := false
		if req.FallbackRegexp != nil {
			for _, p := range a.paths {
				if req.FallbackRegexp.MatchString(p) {
					b, _ := a.Get(p)
					resolved.Members[req.Key] = Member{Path: p, Bytes: b}
					found = true
					break
				}
			}
		}

		if !found && !req.Optional {
			missing = append(missing, req.Key)
		}
	}

	if len(missing) > 0 {
		return nil, &PackLoadError{Missing: missing, FoundPaths: a.Paths()}
	}
	return resolved, nil
}
