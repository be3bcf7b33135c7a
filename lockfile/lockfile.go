// Package lockfile implements podraft.lock — a ledger of MD5 checksums of
// source strings per target catalog. It makes re-runs incremental: an entry
// whose source text already carries a recorded checksum was drafted before
// and does not need to be sent to the backend again.
//
// The lock file is stored alongside podraft.yaml as podraft.lock.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/podraft/podraft/catalog"
)

// FileName is the default lock file name.
const FileName = "podraft.lock"

// Version is the lock file format version.
const Version = 1

// File represents the podraft.lock structure.
type File struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // target -> key -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// Load reads the lock file from the given directory. A missing file yields
// an empty ledger, not an error.
func Load(dir string) (*File, error) {
	path := filepath.Join(dir, FileName)
	lf := &File{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path

	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *File) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *File) Path() string {
	return lf.path
}

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// TargetKey normalizes a catalog path for use as a target key.
func TargetKey(path string) string {
	return filepath.ToSlash(path)
}

// EntryKey builds the ledger key for a catalog entry.
// Format: "msgctxt|msgid" or just "msgid" without context.
func EntryKey(k catalog.Key) string {
	if k.MsgCtxt != "" {
		return k.MsgCtxt + "|" + k.MsgID
	}
	return k.MsgID
}

// EntryContent builds the hashed source content of an entry. The plural
// source is included so a plural change triggers re-drafting.
func EntryContent(e *catalog.Entry) string {
	if e.MsgIDPlural != "" {
		return e.MsgID + "\x00" + e.MsgIDPlural
	}
	return e.MsgID
}

// IsChanged reports whether an entry's source text is new or has changed
// since it was last drafted.
func (lf *File) IsChanged(target string, e *catalog.Entry) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	keys, ok := lf.Checksums[target]
	if !ok {
		return true
	}
	oldHash, ok := keys[EntryKey(e.Key())]
	if !ok {
		return true
	}
	return oldHash != Hash(EntryContent(e))
}

// Update records the checksum of an entry after it was drafted.
func (lf *File) Update(target string, e *catalog.Entry) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Checksums[target] == nil {
		lf.Checksums[target] = make(map[string]string)
	}
	lf.Checksums[target][EntryKey(e.Key())] = Hash(EntryContent(e))
}

// Clean drops ledger entries no longer present in the catalog, so removed
// strings do not accumulate.
func (lf *File) Clean(target string, c *catalog.Catalog) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	existing := lf.Checksums[target]
	if existing == nil {
		return
	}

	valid := make(map[string]bool, len(c.Entries))
	for _, e := range c.Entries {
		if e.Obsolete {
			continue
		}
		valid[EntryKey(e.Key())] = true
	}

	for k := range existing {
		if !valid[k] {
			delete(existing, k)
		}
	}
}

// Stats returns the number of targets and total keys in the ledger.
func (lf *File) Stats() (targets, keys int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets = len(lf.Checksums)
	for _, m := range lf.Checksums {
		keys += len(m)
	}
	return
}

// Targets returns the sorted list of target keys.
func (lf *File) Targets() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets := make([]string, 0, len(lf.Checksums))
	for t := range lf.Checksums {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Summary returns a human-readable summary string.
func (lf *File) Summary() string {
	targets, keys := lf.Stats()
	if targets == 0 {
		return "empty"
	}

	var parts []string
	for _, t := range lf.Targets() {
		lf.mu.Lock()
		n := len(lf.Checksums[t])
		lf.mu.Unlock()
		parts = append(parts, fmt.Sprintf("%s: %d keys", t, n))
	}
	return fmt.Sprintf("%d targets, %d keys (%s)", targets, keys, strings.Join(parts, ", "))
}
