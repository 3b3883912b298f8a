package board

import "fmt"

// Advance runs the "new week" transition as one atomic shift computed from a
// single pre-transition snapshot:
//
//	DONE THIS WEEK      -> current quarter history (appended, order kept)
//	IN PROGRESS TODAY   -> DONE THIS WEEK
//	TODO THIS WEEK      -> IN PROGRESS TODAY
//	TODO NEXT WEEK      -> TODO THIS WEEK
//	TODO FOLLOWING WEEK -> TODO NEXT WEEK (ends empty)
//
// The pre-advance document is persisted as the single undo snapshot before
// the shifted document is written. Each advance replaces the previous
// snapshot; only one level of undo is ever available.
func (s *Store) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	snapshot := Serialize(s.doc, now)

	next := s.doc.Clone()
	done := next.Sections[SectionDone]
	inProgress := next.Sections[SectionInProgress]
	thisWeek := next.Sections[SectionThisWeek]
	nextWeek := next.Sections[SectionNextWeek]
	following := next.Sections[SectionFollowingWeek]

	quarter := QuarterLabel(now)
	next.Sections[quarter] = append(next.Sections[quarter], done...)
	next.Sections[SectionDone] = inProgress
	next.Sections[SectionInProgress] = thisWeek
	next.Sections[SectionThisWeek] = nextWeek
	next.Sections[SectionNextWeek] = following
	next.Sections[SectionFollowingWeek] = nil

	if err := s.storage.SaveUndo(snapshot); err != nil {
		return fmt.Errorf("save undo snapshot: %w", err)
	}
	if err := s.storage.Save(Serialize(next, now)); err != nil {
		// The snapshot matches the unchanged document; drop it so CanUndo
		// does not report a level that would restore a no-op.
		_ = s.storage.ClearUndo()
		return fmt.Errorf("save document: %w", err)
	}
	s.doc = next
	return nil
}

// Undo restores the document verbatim from the snapshot taken by the last
// Advance and consumes it.
func (s *Store) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, ok, err := s.storage.LoadUndo()
	if err != nil {
		return fmt.Errorf("load undo snapshot: %w", err)
	}
	if !ok {
		return ErrNothingToUndo
	}
	if err := s.storage.Save(text); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	s.doc = Parse(text)
	_ = s.storage.ClearUndo()
	return nil
}

// CanUndo reports whether an undo snapshot is currently held.
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok, err := s.storage.LoadUndo()
	return err == nil && ok
}
