package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
)

// MemoryStore implements Store in memory for unit tests of the layers
// above. It reproduces the same duplicate and conditional-update
// semantics as the SQL backends.
type MemoryStore struct {
	mu        sync.RWMutex
	events    map[string]*contracts.Event
	byDedup   map[string]string // dedup_hash -> event id
	byContent map[string]string // content_hash -> event id
	byURL     map[string]string // url -> event id
	links     map[string]*contracts.EventSignpostLink
	byPair    map[string]string // event_id|signpost_code -> link id
	credSnaps map[string]*contracts.SourceCredibilitySnapshot
	idxSnaps  map[string]*contracts.ProgressIndexSnapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:    make(map[string]*contracts.Event),
		byDedup:   make(map[string]string),
		byContent: make(map[string]string),
		byURL:     make(map[string]string),
		links:     make(map[string]*contracts.EventSignpostLink),
		byPair:    make(map[string]string),
		credSnaps: make(map[string]*contracts.SourceCredibilitySnapshot),
		idxSnaps:  make(map[string]*contracts.ProgressIndexSnapshot),
	}
}

func (s *MemoryStore) InsertEvent(_ context.Context, ev *contracts.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byURL[ev.URL]; ok {
		return contracts.ErrDuplicateEvidence
	}
	if ev.DedupHash != "" {
		if _, ok := s.byDedup[ev.DedupHash]; ok {
			return contracts.ErrDuplicateEvidence
		}
	}
	if ev.ContentHash != "" {
		if _, ok := s.byContent[ev.ContentHash]; ok {
			return contracts.ErrDuplicateEvidence
		}
	}

	val := *ev
	s.events[ev.ID] = &val
	s.byURL[ev.URL] = ev.ID
	if ev.DedupHash != "" {
		s.byDedup[ev.DedupHash] = ev.ID
	}
	if ev.ContentHash != "" {
		s.byContent[ev.ContentHash] = ev.ID
	}
	return nil
}

func (s *MemoryStore) GetEvent(_ context.Context, id string) (*contracts.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, contracts.ErrEventNotFound
	}
	val := *ev
	return &val, nil
}

func (s *MemoryStore) MarkRetracted(_ context.Context, eventID string, r contracts.RetractionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	if !ok {
		return contracts.ErrEventNotFound
	}
	rec := r
	ev.Retracted = true
	ev.Retraction = &rec
	return nil
}

func (s *MemoryStore) CountArticles(_ context.Context, publisher string, day time.Time) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := DayOf(day)
	end := start.AddDate(0, 0, 1)

	var total, retracted int
	for _, ev := range s.events {
		if ev.Publisher != publisher {
			continue
		}
		at := ev.PublishedAt.UTC()
		if at.Before(start) || !at.Before(end) {
			continue
		}
		total++
		if ev.Retracted {
			retracted++
		}
	}
	return total, retracted, nil
}

func (s *MemoryStore) InsertLink(_ context.Context, link *contracts.EventSignpostLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair := link.EventID + "|" + link.SignpostCode
	if _, ok := s.byPair[pair]; ok {
		return contracts.ErrDuplicateLink
	}
	val := *link
	s.links[link.ID] = &val
	s.byPair[pair] = link.ID
	return nil
}

func (s *MemoryStore) GetLink(_ context.Context, id string) (*contracts.EventSignpostLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[id]
	if !ok {
		return nil, contracts.ErrLinkNotFound
	}
	val := *link
	return &val, nil
}

func (s *MemoryStore) PromoteLink(_ context.Context, id string, boost, capValue float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[id]
	if !ok {
		return false, contracts.ErrLinkNotFound
	}
	if !link.Provisional || link.Tier != contracts.TierB {
		return false, nil
	}
	link.Provisional = false
	link.Confidence = min(link.Confidence+boost, capValue)
	return true, nil
}

func (s *MemoryStore) ListProvisional(_ context.Context) ([]*contracts.EventSignpostLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*contracts.EventSignpostLink
	for _, link := range s.links {
		if link.Provisional && link.Tier == contracts.TierB {
			val := *link
			out = append(out, &val)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) HasCorroboration(_ context.Context, signpostCode string, around time.Time, window time.Duration) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lo := around.Add(-window)
	hi := around.Add(window)
	for _, link := range s.links {
		if link.SignpostCode != signpostCode || link.Tier != contracts.TierA {
			continue
		}
		if ev, ok := s.events[link.EventID]; ok && ev.Retracted {
			continue
		}
		if !link.EventDate.Before(lo) && !link.EventDate.After(hi) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ListConfirmedBySignpost(_ context.Context, signpostCode string) ([]*contracts.EventSignpostLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*contracts.EventSignpostLink
	for _, link := range s.links {
		if link.SignpostCode != signpostCode || !link.Confirmed() {
			continue
		}
		if ev, ok := s.events[link.EventID]; ok && ev.Retracted {
			continue
		}
		val := *link
		out = append(out, &val)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventDate.Before(out[j].EventDate) })
	return out, nil
}

func (s *MemoryStore) UpsertCredibilitySnapshot(_ context.Context, snap *contracts.SourceCredibilitySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	val := *snap
	s.credSnaps[snap.Publisher+"|"+DayOf(snap.Day).Format(dayKey)] = &val
	return nil
}

func (s *MemoryStore) GetCredibilitySnapshot(_ context.Context, publisher string, day time.Time) (*contracts.SourceCredibilitySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.credSnaps[publisher+"|"+DayOf(day).Format(dayKey)]
	if !ok {
		return nil, nil
	}
	val := *snap
	return &val, nil
}

func (s *MemoryStore) UpsertIndexSnapshot(_ context.Context, snap *contracts.ProgressIndexSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	val := *snap
	s.idxSnaps[DayOf(snap.Day).Format(dayKey)] = &val
	return nil
}

func (s *MemoryStore) GetIndexSnapshot(_ context.Context, day time.Time) (*contracts.ProgressIndexSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.idxSnaps[DayOf(day).Format(dayKey)]
	if !ok {
		return nil, nil
	}
	val := *snap
	return &val, nil
}
