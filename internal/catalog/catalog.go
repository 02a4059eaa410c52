// Package catalog lists the study's video clips from the video directories.
//
// Each root is laid out as <root>/<category>/<video>/<file>; a video is
// listed when at least one file name ends in _<resolution>.mp4.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/perceptio/backend/internal/domain/resolution"
)

// Viewing modes.
const (
	ModeAdult = "adult"
	ModeChild = "child"
)

var resolutionFile = regexp.MustCompile(`_(\d+p?|4k)\.mp4$`)

// Video is one clip available at several resolutions.
type Video struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Resolutions []string          `json:"resolutions"`
	Sources     map[string]string `json:"sources"` // resolution -> escaped relative URL
}

// Roots are the directories scanned for each list.
type Roots struct {
	Base     string
	Licensed string
	Children string
}

// Catalog holds the last scan of every root. It is safe for concurrent use.
type Catalog struct {
	roots  Roots
	ladder *resolution.Ladder

	mu       sync.RWMutex
	base     []Video
	licensed []Video
	children []Video
}

// New returns an empty catalog; call Scan to populate it.
func New(roots Roots, ladder *resolution.Ladder) *Catalog {
	return &Catalog{roots: roots, ladder: ladder}
}

// Counts reports how many videos each list holds.
type Counts struct {
	Base     int `json:"base" yaml:"base"`
	Licensed int `json:"licensed" yaml:"licensed"`
	Children int `json:"children" yaml:"children"`
}

// Scan rereads every root and swaps in the result. Missing roots yield empty
// lists; other filesystem errors abort the scan and keep the previous
// snapshot.
func (c *Catalog) Scan() (Counts, error) {
	base, err := scanRoot(c.roots.Base, c.ladder)
	if err != nil {
		return Counts{}, err
	}
	licensed, err := scanRoot(c.roots.Licensed, c.ladder)
	if err != nil {
		return Counts{}, err
	}
	children, err := scanRoot(c.roots.Children, c.ladder)
	if err != nil {
		return Counts{}, err
	}

	c.mu.Lock()
	c.base, c.licensed, c.children = base, licensed, children
	c.mu.Unlock()

	return Counts{Base: len(base), Licensed: len(licensed), Children: len(children)}, nil
}

// Videos returns the list for mode. Adult mode returns the base list, merged
// with the licensed list when includeLicensed is set: videos sharing an id
// combine their sources and resolutions.
func (c *Catalog) Videos(mode string, includeLicensed bool) []Video {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if mode == ModeChild {
		return cloneAll(c.children)
	}
	if !includeLicensed {
		return cloneAll(c.base)
	}

	merged := make(map[string]*Video, len(c.base)+len(c.licensed))
	for _, v := range c.base {
		cp := clone(v)
		merged[v.ID] = &cp
	}
	for _, v := range c.licensed {
		existing, ok := merged[v.ID]
		if !ok {
			cp := clone(v)
			merged[v.ID] = &cp
			continue
		}
		for r, src := range v.Sources {
			existing.Sources[r] = src
		}
		existing.Resolutions = dedupe(append(existing.Resolutions, v.Resolutions...))
		c.ladder.Sort(existing.Resolutions)
	}

	out := make([]Video, 0, len(merged))
	for _, v := range merged {
		out = append(out, *v)
	}
	sortVideos(out)
	return out
}

// Resolutions looks a video up by name across every list.
func (c *Catalog) Resolutions(name string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var found []string
	for _, list := range [][]Video{c.base, c.licensed, c.children} {
		for _, v := range list {
			if v.Name == name {
				found = append(found, v.Resolutions...)
			}
		}
	}
	if found == nil {
		return nil, false
	}
	found = dedupe(found)
	c.ladder.Sort(found)
	return found, true
}

func scanRoot(root string, ladder *resolution.Ladder) ([]Video, error) {
	if root == "" {
		return []Video{}, nil
	}
	categories, err := subdirs(root)
	if errors.Is(err, fs.ErrNotExist) {
		return []Video{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	rootName := url.PathEscape(filepath.Base(root))
	videos := []Video{}
	for _, category := range categories {
		names, err := subdirs(filepath.Join(root, category))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", category, err)
		}
		for _, name := range names {
			entries, err := os.ReadDir(filepath.Join(root, category, name))
			if err != nil {
				return nil, fmt.Errorf("scan %s/%s: %w", category, name, err)
			}

			sources := map[string]string{}
			var found []string
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				r, ok := FileResolution(e.Name())
				if !ok {
					continue
				}
				found = append(found, r)
				sources[r] = strings.Join([]string{
					rootName, url.PathEscape(category), url.PathEscape(name), url.PathEscape(e.Name()),
				}, "/")
			}
			if len(found) == 0 {
				continue
			}

			rs := dedupe(found)
			ladder.Sort(rs)
			videos = append(videos, Video{
				ID:          category + "_" + name,
				Name:        name,
				Category:    category,
				Resolutions: rs,
				Sources:     sources,
			})
		}
	}
	sortVideos(videos)
	return videos, nil
}

// FileResolution extracts the resolution from a clip file name, appending
// "p" when the name carries a bare number.
func FileResolution(file string) (string, bool) {
	m := resolutionFile.FindStringSubmatch(file)
	if m == nil {
		return "", false
	}
	r := m[1]
	if r != "4k" && !strings.HasSuffix(r, "p") {
		r += "p"
	}
	return r, true
}

func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func dedupe(rs []string) []string {
	seen := make(map[string]bool, len(rs))
	out := rs[:0]
	for _, r := range rs {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

func sortVideos(vs []Video) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].ID < vs[j].ID })
}

func clone(v Video) Video {
	v.Resolutions = append([]string(nil), v.Resolutions...)
	src := make(map[string]string, len(v.Sources))
	for k, s := range v.Sources {
		src[k] = s
	}
	v.Sources = src
	return v
}

func cloneAll(vs []Video) []Video {
	out := make([]Video, len(vs))
	for i, v := range vs {
		out[i] = clone(v)
	}
	return out
}
