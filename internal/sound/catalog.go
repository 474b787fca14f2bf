// Package sound plays the two alert channels: default and critical.
package sound

import (
	"path/filepath"
	"sort"
)

// Asset is a playable sound resolved from the catalog.
type Asset struct {
	ID   string
	Path string
}

// builtin maps every known sound identifier to its file name.
var builtin = map[string]string{
	"chime":  "chime.wav",
	"ping":   "ping.wav",
	"pop":    "pop.wav",
	"bell":   "bell.wav",
	"alarm":  "alarm.wav",
	"siren":  "siren.wav",
	"urgent": "urgent.wav",
}

// Catalog resolves sound identifiers to asset files under a directory.
type Catalog struct {
	dir string
}

// NewCatalog returns a catalog rooted at dir. An empty dir yields assets
// without a path, which is enough for backends that ignore the file.
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir}
}

// Resolve looks up id. Unknown identifiers report false.
func (c *Catalog) Resolve(id string) (Asset, bool) {
	file, ok := builtin[id]
	if !ok {
		return Asset{}, false
	}
	a := Asset{ID: id}
	if c.dir != "" {
		a.Path = filepath.Join(c.dir, file)
	}
	return a, true
}

// IDs returns the known identifiers sorted by name.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(builtin))
	for id := range builtin {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
