package board

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(NewFileStorage(t.TempDir()),
		WithNow(func() time.Time { return date(2025, time.August, 20) }))
	require.NoError(t, err)
	return s
}

func sectionIDs(t *testing.T, s *Store, name string) []string {
	t.Helper()
	for _, sec := range s.Sections() {
		if sec.Name == name {
			ids := make([]string, len(sec.Tasks))
			for i, task := range sec.Tasks {
				ids[i] = task.ID
			}
			return ids
		}
	}
	t.Fatalf("section %q not listed", name)
	return nil
}

func TestAdd(t *testing.T) {
	t.Run("appends to the end of the section", func(t *testing.T) {
		s := newTestStore(t)
		first, err := s.Add(SectionThisWeek, "write report")
		require.NoError(t, err)
		second, err := s.Add(SectionThisWeek, "review report")
		require.NoError(t, err)

		assert.Equal(t, []string{first.ID, second.ID}, sectionIDs(t, s, SectionThisWeek))
		assert.NotEqual(t, first.ID, second.ID)
		assert.False(t, first.Completed)
	})

	t.Run("accepts dynamically named history sections", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.Add("DONE Q1 2024", "late archive entry")
		require.NoError(t, err)
		assert.Len(t, sectionIDs(t, s, "DONE Q1 2024"), 1)
	})

	t.Run("rejects free-text section names", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.Add("MY OWN LIST", "nope")
		assert.ErrorIs(t, err, ErrInvalidSection)
	})

	t.Run("rejects empty text", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.Add(SectionThisWeek, "   ")
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

func TestEdit(t *testing.T) {
	t.Run("partial update touches only supplied fields", func(t *testing.T) {
		s := newTestStore(t)
		task, err := s.Add(SectionThisWeek, "old text")
		require.NoError(t, err)

		text := "new text"
		got, err := s.Edit(task.ID, EditRequest{Text: &text})
		require.NoError(t, err)
		assert.Equal(t, "new text", got.Text)
		assert.Equal(t, []string{task.ID}, sectionIDs(t, s, SectionThisWeek))
	})

	t.Run("moves to another section, appended at the end", func(t *testing.T) {
		s := newTestStore(t)
		task, err := s.Add(SectionThisWeek, "migrating")
		require.NoError(t, err)
		other, err := s.Add(SectionBlocked, "already blocked")
		require.NoError(t, err)

		section := SectionBlocked
		_, err = s.Edit(task.ID, EditRequest{Section: &section})
		require.NoError(t, err)

		assert.Empty(t, sectionIDs(t, s, SectionThisWeek))
		assert.Equal(t, []string{other.ID, task.ID}, sectionIDs(t, s, SectionBlocked))
	})

	t.Run("unknown id", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.Edit("missing", EditRequest{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects moving into a locked section", func(t *testing.T) {
		s := newTestStore(t)
		task, err := s.Add(SectionThisWeek, "not a project")
		require.NoError(t, err)
		section := SectionProjects
		_, err = s.Edit(task.ID, EditRequest{Section: &section})
		assert.ErrorIs(t, err, ErrLockedSection)
	})
}

func TestDelete(t *testing.T) {
	t.Run("removes the task", func(t *testing.T) {
		s := newTestStore(t)
		task, err := s.Add(SectionFollowUps, "chase invoice")
		require.NoError(t, err)
		require.NoError(t, s.Delete(task.ID))
		assert.Empty(t, sectionIDs(t, s, SectionFollowUps))
		assert.ErrorIs(t, s.Delete(task.ID), ErrNotFound)
	})

	t.Run("deleting a project clears weak references", func(t *testing.T) {
		s := newTestStore(t)
		project, err := s.Add(SectionProjects, "platform rewrite")
		require.NoError(t, err)
		a, err := s.Add(SectionThisWeek, "design doc")
		require.NoError(t, err)
		b, err := s.Add(SectionNextWeek, "unrelated")
		require.NoError(t, err)
		require.NoError(t, s.Assign(a.ID, project.ID))
		require.NoError(t, s.SetColor(b.ID, 4))

		require.NoError(t, s.Delete(project.ID))

		got, _, err := s.Get(a.ID)
		require.NoError(t, err)
		assert.Empty(t, got.AssignedProject)

		// Other fields untouched.
		gotB, _, err := s.Get(b.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, gotB.ColorIndex)
	})
}

func TestReorder(t *testing.T) {
	setup := func(t *testing.T) (*Store, []Task) {
		s := newTestStore(t)
		var tasks []Task
		for _, text := range []string{"a", "b", "c", "d"} {
			task, err := s.Add(SectionThisWeek, text)
			require.NoError(t, err)
			tasks = append(tasks, task)
		}
		return s, tasks
	}

	t.Run("moves within a section preserving relative order", func(t *testing.T) {
		s, tasks := setup(t)
		require.NoError(t, s.Reorder(tasks[3].ID, SectionThisWeek, 0))
		assert.Equal(t, []string{tasks[3].ID, tasks[0].ID, tasks[1].ID, tasks[2].ID},
			sectionIDs(t, s, SectionThisWeek))
	})

	t.Run("clamps the index to the list bounds", func(t *testing.T) {
		s, tasks := setup(t)
		require.NoError(t, s.Reorder(tasks[0].ID, SectionThisWeek, 99))
		assert.Equal(t, []string{tasks[1].ID, tasks[2].ID, tasks[3].ID, tasks[0].ID},
			sectionIDs(t, s, SectionThisWeek))

		require.NoError(t, s.Reorder(tasks[2].ID, SectionNextWeek, -5))
		assert.Equal(t, []string{tasks[2].ID}, sectionIDs(t, s, SectionNextWeek))
	})

	t.Run("moves across sections at the requested index", func(t *testing.T) {
		s, tasks := setup(t)
		other, err := s.Add(SectionInProgress, "existing")
		require.NoError(t, err)

		require.NoError(t, s.Reorder(tasks[1].ID, SectionInProgress, 0))
		assert.Equal(t, []string{tasks[1].ID, other.ID}, sectionIDs(t, s, SectionInProgress))
		assert.Equal(t, []string{tasks[0].ID, tasks[2].ID, tasks[3].ID},
			sectionIDs(t, s, SectionThisWeek))
	})

	t.Run("rejects cross-section moves touching a locked section", func(t *testing.T) {
		s, tasks := setup(t)
		project, err := s.Add(SectionProjects, "locked in")
		require.NoError(t, err)

		assert.ErrorIs(t, s.Reorder(tasks[0].ID, SectionProjects, 0), ErrLockedSection)
		assert.ErrorIs(t, s.Reorder(project.ID, SectionThisWeek, 0), ErrLockedSection)
	})

	t.Run("allows reordering inside a locked section", func(t *testing.T) {
		s, _ := setup(t)
		p1, err := s.Add(SectionProjects, "one")
		require.NoError(t, err)
		p2, err := s.Add(SectionProjects, "two")
		require.NoError(t, err)

		require.NoError(t, s.Reorder(p2.ID, SectionProjects, 0))
		assert.Equal(t, []string{p2.ID, p1.ID}, sectionIDs(t, s, SectionProjects))
	})

	t.Run("rejects invalid target section", func(t *testing.T) {
		s, tasks := setup(t)
		assert.ErrorIs(t, s.Reorder(tasks[0].ID, "NOWHERE", 0), ErrInvalidSection)
	})
}

func TestAssign(t *testing.T) {
	t.Run("sets and clears the weak reference", func(t *testing.T) {
		s := newTestStore(t)
		project, err := s.Add(SectionProjects, "migration")
		require.NoError(t, err)
		task, err := s.Add(SectionThisWeek, "step one")
		require.NoError(t, err)

		require.NoError(t, s.Assign(task.ID, project.ID))
		got, _, err := s.Get(task.ID)
		require.NoError(t, err)
		assert.Equal(t, project.ID, got.AssignedProject)

		require.NoError(t, s.Unassign(task.ID))
		got, _, err = s.Get(task.ID)
		require.NoError(t, err)
		assert.Empty(t, got.AssignedProject)
	})

	t.Run("rejects a target outside the project sections", func(t *testing.T) {
		s := newTestStore(t)
		notProject, err := s.Add(SectionThisWeek, "regular task")
		require.NoError(t, err)
		task, err := s.Add(SectionNextWeek, "other")
		require.NoError(t, err)

		assert.ErrorIs(t, s.Assign(task.ID, notProject.ID), ErrInvalidProject)
		assert.ErrorIs(t, s.Assign(task.ID, "missing"), ErrNotFound)
		assert.ErrorIs(t, s.Assign("missing", notProject.ID), ErrNotFound)
	})
}

func TestSetColor(t *testing.T) {
	s := newTestStore(t)
	project, err := s.Add(SectionProjects, "colorful")
	require.NoError(t, err)

	require.NoError(t, s.SetColor(project.ID, 10))
	got, _, err := s.Get(project.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.ColorIndex)

	require.NoError(t, s.SetColor(project.ID, 0)) // clears
	got, _, err = s.Get(project.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ColorIndex)

	assert.ErrorIs(t, s.SetColor(project.ID, 11), ErrInvalid)
	assert.ErrorIs(t, s.SetColor("missing", 1), ErrNotFound)
}

func TestToggleComplete(t *testing.T) {
	s := newTestStore(t)
	task, err := s.Add(SectionInProgress, "almost there")
	require.NoError(t, err)

	got, err := s.ToggleComplete(task.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)

	got, err = s.ToggleComplete(task.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)
}

func TestToggleProjectCompletion(t *testing.T) {
	s := newTestStore(t)
	project, err := s.Add(SectionProjects, "ship v2")
	require.NoError(t, err)
	regular, err := s.Add(SectionThisWeek, "not a project")
	require.NoError(t, err)

	require.NoError(t, s.ToggleProjectCompletion(project.ID))
	assert.Equal(t, []string{project.ID}, sectionIDs(t, s, SectionCompletedProjects))
	assert.Empty(t, sectionIDs(t, s, SectionProjects))

	require.NoError(t, s.ToggleProjectCompletion(project.ID))
	assert.Equal(t, []string{project.ID}, sectionIDs(t, s, SectionProjects))

	assert.ErrorIs(t, s.ToggleProjectCompletion(regular.ID), ErrInvalidProject)
}

func TestStaleReferenceReadsAsAbsent(t *testing.T) {
	// A dangling reference can appear through hand edits; reads treat it as
	// absent without rewriting the document.
	s := newTestStore(t)
	task, err := s.Add(SectionThisWeek, "orphan")
	require.NoError(t, err)
	project, err := s.Add(SectionProjects, "short lived")
	require.NoError(t, err)
	require.NoError(t, s.Assign(task.ID, project.ID))

	// Move the project out through its dedicated transition and back: still a
	// project section, reference stays live.
	require.NoError(t, s.ToggleProjectCompletion(project.ID))
	got, _, err := s.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ID, got.AssignedProject)

	require.NoError(t, s.Delete(project.ID))
	got, _, err = s.Get(task.ID)
	require.NoError(t, err)
	assert.Empty(t, got.AssignedProject)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	storage := NewFileStorage(dir)
	now := func() time.Time { return date(2025, time.August, 20) }

	s, err := Open(storage, WithNow(now))
	require.NoError(t, err)
	task, err := s.Add(SectionFollowingWeek, "survives restart\nwith two lines")
	require.NoError(t, err)
	require.NoError(t, s.SetColor(task.ID, 2))

	reopened, err := Open(NewFileStorage(dir), WithNow(now))
	require.NoError(t, err)
	got, section, err := reopened.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, SectionFollowingWeek, section)
	assert.Equal(t, "survives restart\nwith two lines", got.Text)
	assert.Equal(t, 2, got.ColorIndex)
}

// failingStorage wraps a Storage and fails writes on demand.
type failingStorage struct {
	Storage
	failSave bool
}

var errDiskFull = errors.New("disk full")

func (f *failingStorage) Save(text string) error {
	if f.failSave {
		return errDiskFull
	}
	return f.Storage.Save(text)
}

func TestFailedWriteLeavesDocumentUnchanged(t *testing.T) {
	storage := &failingStorage{Storage: NewFileStorage(t.TempDir())}
	s, err := Open(storage, WithNow(func() time.Time { return date(2025, time.August, 20) }))
	require.NoError(t, err)
	task, err := s.Add(SectionThisWeek, "keep me")
	require.NoError(t, err)

	storage.failSave = true
	_, err = s.Add(SectionThisWeek, "lost to io")
	require.ErrorIs(t, err, errDiskFull)

	// In-memory document unchanged; a retry after the fault clears succeeds.
	assert.Equal(t, []string{task.ID}, sectionIDs(t, s, SectionThisWeek))

	storage.failSave = false
	retry, err := s.Add(SectionThisWeek, "second attempt")
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID, retry.ID}, sectionIDs(t, s, SectionThisWeek))
}
