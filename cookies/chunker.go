// Package cookies splits oversized values across numbered cookies and rejoins them.
package cookies

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// MaxChunkSize leaves room for the cookie name and attributes under the 4096 byte
// per-cookie browser limit.
const MaxChunkSize = 4096 - 160

// Chunk is one cookie's worth of a split value.
type Chunk struct {
	Name  string
	Value string
}

// Split cuts value into fixed-size slices of at most limit bytes. A value that fits is
// returned as a single chunk carrying the base name; otherwise chunks are named
// <name>.0, <name>.1, ... in order.
func Split(name, value string, limit int) []Chunk {
	if limit <= 0 {
		limit = MaxChunkSize
	}
	if len(value) <= limit {
		return []Chunk{{Name: name, Value: value}}
	}

	chunks := make([]Chunk, 0, len(value)/limit+1)
	for i := 0; i*limit < len(value); i++ {
		end := min((i+1)*limit, len(value))
		chunks = append(chunks, Chunk{
			Name:  chunkName(name, i),
			Value: value[i*limit : end],
		})
	}
	return chunks
}

// Join reassembles a value written by Split. The unchunked cookie wins when present.
// Chunks are ordered by numeric suffix and must run 0..n-1 without gaps or duplicates;
// anything else fails closed.
func Join(name string, cookies []*http.Cookie) (string, bool) {
	if v, ok := Find(cookies, name); ok {
		return v, true
	}

	type indexed struct {
		index int
		value string
	}
	var parts []indexed
	for _, c := range cookies {
		index, ok := chunkIndex(name, c.Name)
		if !ok {
			continue
		}
		parts = append(parts, indexed{index: index, value: c.Value})
	}
	if len(parts) == 0 {
		return "", false
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].index < parts[j].index })

	var b strings.Builder
	for i, p := range parts {
		if p.index != i {
			return "", false
		}
		b.WriteString(p.value)
	}
	return b.String(), true
}

// Stale lists the cookies belonging to name that are not part of kept, so a value
// that shrank does not leave old chunks behind.
func Stale(name string, cookies []*http.Cookie, kept []Chunk) []string {
	keep := make(map[string]struct{}, len(kept))
	for _, c := range kept {
		keep[c.Name] = struct{}{}
	}

	var stale []string
	for _, c := range cookies {
		if _, ok := keep[c.Name]; ok {
			continue
		}
		if c.Name == name {
			stale = append(stale, c.Name)
			continue
		}
		if _, ok := chunkIndex(name, c.Name); ok {
			stale = append(stale, c.Name)
		}
	}
	return stale
}

// Names returns every cookie name that holds part of name's value.
func Names(name string, cookies []*http.Cookie) []string {
	return Stale(name, cookies, nil)
}

func chunkName(name string, index int) string {
	return name + "." + strconv.Itoa(index)
}

func chunkIndex(name, cookieName string) (int, bool) {
	suffix, ok := strings.CutPrefix(cookieName, name+".")
	if !ok || suffix == "" {
		return 0, false
	}
	index, err := strconv.Atoi(suffix)
	if err != nil || index < 0 || strconv.Itoa(index) != suffix {
		return 0, false
	}
	return index, true
}
