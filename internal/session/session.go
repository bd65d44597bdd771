package session

import (
	"fmt"
	"sync"

	"document-qa/internal/models"

	lru "github.com/hashicorp/golang-lru/v2"
)

const maxHistory = 50

// state is what a session remembers about one document.
type state struct {
	latest  *models.QueryResponse
	history []*models.QueryResponse
}

// Store keeps the query responses of each document, keyed by document id.
// The least recently used documents are evicted once capacity is reached.
type Store struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *state]
}

func NewStore(capacity int) (*Store, error) {
	cache, err := lru.New[string, *state](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &Store{cache: cache}, nil
}

// Put records resp as the current response of its document. Earlier
// responses stay in the history with their own sources and annotations.
func (s *Store) Put(resp *models.QueryResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.cache.Get(resp.DocumentID)
	if !ok {
		st = &state{}
	}
	st.latest = resp
	st.history = append(st.history, resp)
	if len(st.history) > maxHistory {
		st.history = st.history[len(st.history)-maxHistory:]
	}
	s.cache.Add(resp.DocumentID, st)
}

// Get returns the current response of a document.
func (s *Store) Get(documentID string) (*models.QueryResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.cache.Get(documentID)
	if !ok || st.latest == nil {
		return nil, false
	}
	return st.latest, true
}

// History returns the responses of a document, oldest first.
func (s *Store) History(documentID string) []*models.QueryResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.cache.Get(documentID)
	if !ok {
		return nil
	}
	return append([]*models.QueryResponse(nil), st.history...)
}

// Annotations returns the annotations of the n-th response (0-based) of a
// document. Each response is resolved against its own source list.
func (s *Store) Annotations(documentID string, n int) ([]models.Annotation, error) {
	h := s.History(documentID)
	if n < 0 || n >= len(h) {
		return nil, fmt.Errorf("response %d of document %s: %w", n, documentID, models.ErrDocumentNotFound)
	}
	return h[n].Annotations, nil
}

func (s *Store) Delete(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(documentID)
}

func (s *Store) Len() int {
	return s.cache.Len()
}
