package student

import (
	"sync"

	"github.com/google/uuid"
)

// PreviewHandle is a local preview resource (think object URL) owned by a staged document.
// It must be released exactly when its document is dropped.
type PreviewHandle interface {
	URL() string
	Release()
}

// PreviewRegistry hands out preview handles and keeps track of the live ones.
type PreviewRegistry struct {
	mu   sync.Mutex
	live map[string][]byte
}

func NewPreviewRegistry() *PreviewRegistry {
	return &PreviewRegistry{live: make(map[string][]byte)}
}

// Acquire registers blob and returns a handle to it.
func (reg *PreviewRegistry) Acquire(blob []byte) PreviewHandle {
	url := "blob:" + uuid.New().String()
	reg.mu.Lock()
	reg.live[url] = blob
	reg.mu.Unlock()
	return &previewHandle{url: url, reg: reg}
}

// Resolve returns the blob behind a live URL.
func (reg *PreviewRegistry) Resolve(url string) ([]byte, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	blob, ok := reg.live[url]
	return blob, ok
}

// Live is the number of handles not yet released.
func (reg *PreviewRegistry) Live() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.live)
}

func (reg *PreviewRegistry) revoke(url string) {
	reg.mu.Lock()
	delete(reg.live, url)
	reg.mu.Unlock()
}

type previewHandle struct {
	url  string
	reg  *PreviewRegistry
	once sync.Once
}

func (h *previewHandle) URL() string { return h.url }

func (h *previewHandle) Release() {
	h.once.Do(func() { h.reg.revoke(h.url) })
}

// StagingStore holds documents picked before the owning student exists.
// At most one entry exists per key and per label. Safe for concurrent use.
type StagingStore struct {
	mu   sync.Mutex
	docs []StagedDocument
}

func NewStagingStore() *StagingStore {
	return &StagingStore{}
}

// Add stores doc, replacing (and releasing) any entry with the same key or label.
func (s *StagingStore) Add(doc StagedDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.docs[:0]
	for _, d := range s.docs {
		if sameIdentity(d, doc) {
			release(d)
			continue
		}
		kept = append(kept, d)
	}
	s.docs = append(kept, doc)
}

// Remove drops the entry matching identity (key or label). Absent entries are ignored.
func (s *StagingStore) Remove(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.docs[:0]
	for _, d := range s.docs {
		if identity != "" && (d.Key == identity || d.Label == identity) {
			release(d)
			continue
		}
		kept = append(kept, d)
	}
	s.docs = kept
}

// List returns a copy of the staged documents in insertion order.
func (s *StagingStore) List() []StagedDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StagedDocument, len(s.docs))
	copy(out, s.docs)
	return out
}

// Get returns the entry matching identity.
func (s *StagingStore) Get(identity string) (StagedDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		if d.Key == identity || d.Label == identity {
			return d, true
		}
	}
	return StagedDocument{}, false
}

func (s *StagingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// ComputeMissing returns the catalog entries whose key is not staged.
func (s *StagingStore) ComputeMissing(catalog []DocumentSpec) []DocumentSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged := make(map[string]bool, len(s.docs)*2)
	for _, d := range s.docs {
		if d.Key != "" {
			staged[d.Key] = true
		}
		if d.Label != "" {
			staged[d.Label] = true
		}
	}
	missing := make([]DocumentSpec, 0, len(catalog))
	for _, c := range catalog {
		if !staged[c.Key] {
			missing = append(missing, c)
		}
	}
	return missing
}

// Clear releases and drops every entry.
func (s *StagingStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		release(d)
	}
	s.docs = nil
}

func sameIdentity(a, b StagedDocument) bool {
	return (a.Key != "" && a.Key == b.Key) || (a.Label != "" && a.Label == b.Label)
}

func release(d StagedDocument) {
	if d.Preview != nil {
		d.Preview.Release()
	}
}
