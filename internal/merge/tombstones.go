package merge

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/keepvault/internal/models"
)

// TombstoneSet - множество записей об удалении с правилом
// Last-Write-Wins: для одного идентификатора хранится самое позднее
// время удаления.
type TombstoneSet struct {
	times map[uuid.UUID]time.Time
	order []uuid.UUID // порядок добавления, для детерминированного вывода
	mu    sync.RWMutex
}

// NewTombstoneSet builds a set from existing records.
func NewTombstoneSet(objs []models.DeletedObject) *TombstoneSet {
	s := &TombstoneSet{times: make(map[uuid.UUID]time.Time, len(objs))}
	for _, o := range objs {
		s.Add(o)
	}
	return s
}

// Add вставляет запись или сдвигает время удаления вперед.
// Возвращает true, если множество изменилось.
func (s *TombstoneSet) Add(o models.DeletedObject) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.times[o.UUID]
	if !exists {
		s.times[o.UUID] = o.DeletionTime
		s.order = append(s.order, o.UUID)
		return true
	}

	// Более позднее удаление побеждает
	if models.CompareTimes(o.DeletionTime, existing) > 0 {
		s.times[o.UUID] = o.DeletionTime
		return true
	}
	return false
}

// Merge объединяет множества. Операция коммутативна и идемпотентна.
// Возвращает количество изменений.
func (s *TombstoneSet) Merge(other []models.DeletedObject) int {
	changed := 0
	for _, o := range other {
		if s.Add(o) {
			changed++
		}
	}
	return changed
}

// Get returns the deletion time of id.
func (s *TombstoneSet) Get(id uuid.UUID) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	at, ok := s.times[id]
	return at, ok
}

// Remove drops the record of id.
func (s *TombstoneSet) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.times[id]; !ok {
		return
	}
	delete(s.times, id)
	s.order = slices.DeleteFunc(s.order, func(v uuid.UUID) bool { return v == id })
}

// Len returns the number of records.
func (s *TombstoneSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.times)
}

// Objects returns the records in insertion order.
func (s *TombstoneSet) Objects() []models.DeletedObject {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.DeletedObject, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, models.DeletedObject{UUID: id, DeletionTime: s.times[id]})
	}
	return out
}
