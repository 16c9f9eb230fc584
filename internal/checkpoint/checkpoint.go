// Package checkpoint persists fetchMany crawl-resume state to
// ~/.webpeel/checkpoints/<jobId>.json, per spec.md §6. Grounded on the
// teacher's use of mitchellh/go-homedir for path expansion (carried
// over from scraper/config-loading code that resolved user-relative
// output paths) and written the way the teacher writes small JSON
// state files: atomic write via a temp file plus rename, no database.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	homedir "github.com/mitchellh/go-homedir"
)

// Checkpoint is the on-disk shape of one fetchMany job's resume state.
type Checkpoint struct {
	JobID       string    `json:"jobId"`
	URLs        []string  `json:"urls"`
	Completed   []string  `json:"completed"`
	Failed      []string  `json:"failed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Remaining returns the URLs not yet marked completed or failed.
func (c *Checkpoint) Remaining() []string {
	done := make(map[string]bool, len(c.Completed)+len(c.Failed))
	for _, u := range c.Completed {
		done[u] = true
	}
	for _, u := range c.Failed {
		done[u] = true
	}
	out := make([]string, 0, len(c.URLs))
	for _, u := range c.URLs {
		if !done[u] {
			out = append(out, u)
		}
	}
	return out
}

// Store manages checkpoint files under a single base directory.
type Store struct {
	dir string
}

// NewStore resolves ~/.webpeel/checkpoints (creating it if needed). An
// explicit baseDir overrides the default, mainly for tests.
func NewStore(baseDir string) (*Store, error) {
	dir := baseDir
	if dir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil, fmt.Errorf("checkpoint: resolving home directory: %w", err)
		}
		dir = filepath.Join(home, ".webpeel", "checkpoints")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("checkpoint: creating checkpoint directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(jobID string) string {
	return filepath.Join(s.dir, jobID+".json")
}

// New creates and persists a fresh checkpoint for jobID covering urls.
func (s *Store) New(jobID string, urls []string) (*Checkpoint, error) {
	now := time.Now()
	cp := &Checkpoint{JobID: jobID, URLs: urls, CreatedAt: now, UpdatedAt: now}
	if err := s.Save(cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// Load reads jobID's checkpoint from disk.
func (s *Store) Load(jobID string) (*Checkpoint, error) {
	data, err := os.ReadFile(s.path(jobID))
	if err != nil {
		return nil, fmt.Errorf("checkpoint: reading %s: %w", jobID, err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("checkpoint: parsing %s: %w", jobID, err)
	}
	return &cp, nil
}

// Save atomically writes cp, updating UpdatedAt. Writing to a temp
// file in the same directory then renaming avoids a reader ever
// observing a half-written checkpoint.
func (s *Store) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: encoding %s: %w", cp.JobID, err)
	}
	tmp, err := os.CreateTemp(s.dir, cp.JobID+".*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path(cp.JobID)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: renaming temp file: %w", err)
	}
	return nil
}

// MarkCompleted records url as done and persists the checkpoint.
func (s *Store) MarkCompleted(cp *Checkpoint, url string) error {
	cp.Completed = append(cp.Completed, url)
	return s.Save(cp)
}

// MarkFailed records url as failed and persists the checkpoint.
func (s *Store) MarkFailed(cp *Checkpoint, url string) error {
	cp.Failed = append(cp.Failed, url)
	return s.Save(cp)
}

// Delete removes a completed job's checkpoint file.
func (s *Store) Delete(jobID string) error {
	err := os.Remove(s.path(jobID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checkpoint: deleting %s: %w", jobID, err)
	}
	return nil
}

// List returns every checkpoint on disk that loads cleanly, most
// recently updated first.
func (s *Store) List() ([]Checkpoint, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: listing %s: %w", s.dir, err)
	}
	out := make([]Checkpoint, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		jobID := e.Name()[:len(e.Name())-len(".json")]
		cp, err := s.Load(jobID)
		if err != nil {
			continue
		}
		out = append(out, *cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}
