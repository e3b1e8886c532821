package corpus

import (
	"bufio"
	"regexp"
	"sort"
	"strings"
)

// speakerPattern matches a speaker name at the start of a transcript line,
// e.g. "Johnny Silverhand: Listen up, choom."
var speakerPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9 .'\-]{0,48}):\s`)

// Registry is a case-insensitive set of character names extracted from the
// transcript. It is a pure lookup set; it holds no reference to the passages
// the names came from.
type Registry struct {
	// keyed by lowercase name, value is the display form first seen
	names map[string]string
}

// NewRegistry builds a registry from explicit names. Empty and
// single-character names are ignored; duplicates are folded
// case-insensitively, keeping the first display form.
func NewRegistry(names []string) *Registry {
	r := &Registry{names: make(map[string]string, len(names))}
	for _, name := range names {
		r.add(name)
	}
	return r
}

// ExtractNames scans a transcript and collects every speaker name that
// precedes a colon at line start.
func ExtractNames(transcript string) *Registry {
	r := &Registry{names: make(map[string]string)}

	scanner := bufio.NewScanner(strings.NewReader(transcript))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		m := speakerPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		r.add(m[1])
	}

	return r
}

func (r *Registry) add(name string) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return
	}
	key := strings.ToLower(name)
	if _, exists := r.names[key]; !exists {
		r.names[key] = name
	}
}

// Len returns the number of distinct names.
func (r *Registry) Len() int {
	return len(r.names)
}

// Names returns the display forms sorted alphabetically.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.names))
	for _, display := range r.names {
		out = append(out, display)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether the registry holds the given name,
// case-insensitively.
func (r *Registry) Contains(name string) bool {
	_, ok := r.names[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// NamesIn returns the lowercase registry names that appear as substrings of
// the given text, sorted for deterministic output.
func (r *Registry) NamesIn(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for key := range r.names {
		if strings.Contains(lower, key) {
			found = append(found, key)
		}
	}
	sort.Strings(found)
	return found
}

// AnyIn reports whether any of the given lowercase names appears as a
// substring of the text.
func AnyIn(names []string, text string) bool {
	lower := strings.ToLower(text)
	for _, name := range names {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}
