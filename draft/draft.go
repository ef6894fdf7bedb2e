// Package draft remembers one in-progress Snapshot across sessions.
// Storage trouble is never the technician's problem: every failure in
// here is logged and absorbed.
package draft

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/lasoteam/laso-sync/log"
	"github.com/lasoteam/laso-sync/model"
	"github.com/lasoteam/laso-sync/storage"
)

// ErrCorrupt marks a stored draft that no longer decodes. The live form
// is left untouched when it is returned.
var ErrCorrupt = errors.New("stored draft is corrupt")

type Store struct {
	store    storage.Store
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func New(store storage.Store, debounce time.Duration) *Store {
	return &Store{store: store, debounce: debounce}
}

// ScheduleSave arms the autosave debounce. Each call cancels the pending
// timer, so a burst of edits ends in exactly one write holding the
// snapshot captured at the last trigger.
func (s *Store) ScheduleSave(get func() model.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.save(get)
	})
}

func (s *Store) save(get func() model.Snapshot) {
	record := model.DraftRecord{SavedAt: time.Now().UTC(), Data: get()}
	raw, err := json.Marshal(record)
	if err != nil {
		log.Warn("draft.save.encode:", err)
		return
	}
	if err := s.store.Set(storage.DraftKey, string(raw)); err != nil {
		log.Warn("draft.save:", err)
	}
}

// Load reads the stored record. Absence is (zero, false, nil); a record
// that does not decode is reported as ErrCorrupt.
func (s *Store) Load() (model.DraftRecord, bool, error) {
	raw, ok, err := s.store.Get(storage.DraftKey)
	if err != nil {
		log.Warn("draft.load:", err)
		return model.DraftRecord{}, false, nil
	}
	if !ok {
		return model.DraftRecord{}, false, nil
	}

	var record model.DraftRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		log.Warn("draft.load.decode:", err)
		return model.DraftRecord{}, false, ErrCorrupt
	}
	return record, true, nil
}

// Gates are the caller-supplied decisions taken during Restore. A nil
// gate means yes.
type Gates struct {
	// ConfirmLoad decides whether the found draft should be loaded at
	// all. Declining deletes it.
	ConfirmLoad func(savedAt time.Time) bool
	// HeaderFilled reports whether the live form already holds values.
	HeaderFilled func() bool
	// ConfirmOverwrite decides whether a filled live form may be
	// replaced by the draft. Declining keeps both.
	ConfirmOverwrite func() bool
}

// Restore pushes a stored draft back through apply, subject to the gates.
// Returns whether a draft was applied.
func (s *Store) Restore(apply func(model.Snapshot), gates Gates) (bool, error) {
	record, ok, err := s.Load()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if gates.ConfirmLoad != nil && !gates.ConfirmLoad(record.SavedAt) {
		s.Clear()
		return false, nil
	}
	if gates.HeaderFilled != nil && gates.HeaderFilled() {
		if gates.ConfirmOverwrite != nil && !gates.ConfirmOverwrite() {
			return false, nil
		}
	}

	apply(record.Data)
	return true, nil
}

// Clear drops the stored record.
func (s *Store) Clear() {
	if err := s.store.Delete(storage.DraftKey); err != nil {
		log.Warn("draft.clear:", err)
	}
}
