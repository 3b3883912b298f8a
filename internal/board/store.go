package board

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalid        = errors.New("invalid")
	ErrInvalidSection = errors.New("invalid section")
	ErrLockedSection  = errors.New("locked section")
	ErrInvalidProject = errors.New("invalid project")
	ErrNothingToUndo  = errors.New("nothing to undo")
)

// Store is the only owner of the live document. Mutations run under a single
// lock: clone the document, change the clone, write it back, and publish the
// clone only once the write succeeded. A failed write leaves both the
// in-memory document and the persisted text untouched, so callers may retry.
//
// Reads never see a half-mutated document because a published document is
// never changed in place.
type Store struct {
	mu      sync.Mutex
	storage Storage
	doc     *Document
	now     func() time.Time
}

type Option func(*Store)

// WithNow injects the clock used for quarter labels, week banners and task
// ids. Tests pass a fixed time.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open loads the document from storage. A missing document is an empty board
// with all fixed sections present.
func Open(storage Storage, opts ...Option) (*Store, error) {
	s := &Store{storage: storage, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	text, ok, err := storage.Load()
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if ok {
		s.doc = Parse(text)
	} else {
		s.doc = NewDocument()
	}
	return s, nil
}

// Init writes the current document to storage so the file exists on disk.
// On a fresh directory that is the empty board with all fixed sections.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Save(Serialize(s.doc, s.now())); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// Section is a read-only view of one named task list.
type Section struct {
	Name  string `json:"name"`
	Tasks []Task `json:"tasks"`
}

func (s *Store) snapshot() (*Document, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc, s.now()
}

// Sections returns every section in canonical order. Dangling AssignedProject
// references read as absent; the underlying document keeps the raw value.
func (s *Store) Sections() []Section {
	doc, now := s.snapshot()
	names := canonicalOrder(doc, now)
	out := make([]Section, 0, len(names))
	for _, name := range names {
		tasks := make([]Task, len(doc.Sections[name]))
		copy(tasks, doc.Sections[name])
		for i := range tasks {
			if tasks[i].AssignedProject != "" && !doc.isProjectTask(tasks[i].AssignedProject) {
				tasks[i].AssignedProject = ""
			}
		}
		out = append(out, Section{Name: name, Tasks: tasks})
	}
	return out
}

// Get returns a task and the section it lives in.
func (s *Store) Get(id string) (Task, string, error) {
	doc, _ := s.snapshot()
	section, i, ok := doc.find(id)
	if !ok {
		return Task{}, "", fmt.Errorf("%w: task %s", ErrNotFound, id)
	}
	t := doc.Sections[section][i]
	if t.AssignedProject != "" && !doc.isProjectTask(t.AssignedProject) {
		t.AssignedProject = ""
	}
	return t, section, nil
}

// CurrentQuarter returns the history label the clock currently falls in.
func (s *Store) CurrentQuarter() string { return QuarterLabel(s.now()) }

// WeekBanners returns the date-range banner per TODO section.
func (s *Store) WeekBanners() map[string]string { return WeekBanners(s.now()) }

// Metas returns section metadata including the current quarter.
func (s *Store) Metas() map[string]SectionMeta { return SectionMetas(s.now()) }

// mutate runs fn on a clone of the document and persists it. Every successful
// mutation invalidates the week-advance undo snapshot.
func (s *Store) mutate(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.doc.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := s.storage.Save(Serialize(next, s.now())); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	s.doc = next
	_ = s.storage.ClearUndo()
	return nil
}

// Add appends a new task to the end of section's list.
func (s *Store) Add(section, text string) (Task, error) {
	section = normalizeSection(section)
	text = strings.TrimSpace(text)
	if !IsValidSection(section) {
		return Task{}, fmt.Errorf("%w: %q", ErrInvalidSection, section)
	}
	if text == "" {
		return Task{}, fmt.Errorf("%w: task text is required", ErrInvalid)
	}
	task := Task{ID: newTaskID(s.now()), Text: text}
	err := s.mutate(func(doc *Document) error {
		doc.Sections[section] = append(doc.Sections[section], task)
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	return task, nil
}

// EditRequest is a partial update; nil fields are left untouched.
type EditRequest struct {
	Text    *string
	Section *string
}

// Edit updates a task's text and/or moves it to another section (appended at
// the end). Moves into or out of a locked section are rejected.
func (s *Store) Edit(id string, req EditRequest) (Task, error) {
	var updated Task
	err := s.mutate(func(doc *Document) error {
		section, i, ok := doc.find(id)
		if !ok {
			return fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		if req.Text != nil {
			doc.Sections[section][i].Text = strings.TrimSpace(*req.Text)
		}
		if req.Section != nil {
			target := normalizeSection(*req.Section)
			if target != section {
				if !IsValidSection(target) {
					return fmt.Errorf("%w: %q", ErrInvalidSection, target)
				}
				if IsLockedSection(section) || IsLockedSection(target) {
					return fmt.Errorf("%w: cannot move between %q and %q", ErrLockedSection, section, target)
				}
				t := doc.remove(section, i)
				doc.Sections[target] = append(doc.Sections[target], t)
				updated = t
				return nil
			}
		}
		updated = doc.Sections[section][i]
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	return updated, nil
}

// Delete removes a task. Deleting a project task clears AssignedProject on
// every task that referenced it.
func (s *Store) Delete(id string) error {
	return s.mutate(func(doc *Document) error {
		section, i, ok := doc.find(id)
		if !ok {
			return fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		doc.remove(section, i)
		if IsProjectSection(section) {
			for name, tasks := range doc.Sections {
				for j := range tasks {
					if tasks[j].AssignedProject == id {
						doc.Sections[name][j].AssignedProject = ""
					}
				}
			}
		}
		return nil
	})
}

// Reorder moves a task to index in targetSection, clamped to [0, len]. Moves
// across a locked section boundary are rejected; reordering within a locked
// section is fine.
func (s *Store) Reorder(id, targetSection string, index int) error {
	target := normalizeSection(targetSection)
	if !IsValidSection(target) {
		return fmt.Errorf("%w: %q", ErrInvalidSection, target)
	}
	return s.mutate(func(doc *Document) error {
		section, i, ok := doc.find(id)
		if !ok {
			return fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		if section != target && (IsLockedSection(section) || IsLockedSection(target)) {
			return fmt.Errorf("%w: cannot move between %q and %q", ErrLockedSection, section, target)
		}
		t := doc.remove(section, i)
		doc.insert(target, index, t)
		return nil
	})
}

// Assign points a task's weak project reference at projectID, which must name
// a task currently living in a project section.
func (s *Store) Assign(id, projectID string) error {
	return s.mutate(func(doc *Document) error {
		section, i, ok := doc.find(id)
		if !ok {
			return fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		if _, _, ok := doc.find(projectID); !ok {
			return fmt.Errorf("%w: project %s", ErrNotFound, projectID)
		}
		if !doc.isProjectTask(projectID) {
			return fmt.Errorf("%w: %s is not in a project section", ErrInvalidProject, projectID)
		}
		doc.Sections[section][i].AssignedProject = projectID
		return nil
	})
}

// Unassign clears a task's project reference.
func (s *Store) Unassign(id string) error {
	return s.mutate(func(doc *Document) error {
		section, i, ok := doc.find(id)
		if !ok {
			return fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		doc.Sections[section][i].AssignedProject = ""
		return nil
	})
}

// SetColor sets the visual category index (1-10); zero clears it. The value
// only means anything while the task is in a project section, but it is not
// rejected elsewhere.
func (s *Store) SetColor(id string, colorIndex int) error {
	if colorIndex < 0 || colorIndex > 10 {
		return fmt.Errorf("%w: color index %d out of range", ErrInvalid, colorIndex)
	}
	return s.mutate(func(doc *Document) error {
		section, i, ok := doc.find(id)
		if !ok {
			return fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		doc.Sections[section][i].ColorIndex = colorIndex
		return nil
	})
}

// ToggleComplete flips a task's checkbox state.
func (s *Store) ToggleComplete(id string) (Task, error) {
	var updated Task
	err := s.mutate(func(doc *Document) error {
		section, i, ok := doc.find(id)
		if !ok {
			return fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		doc.Sections[section][i].Completed = !doc.Sections[section][i].Completed
		updated = doc.Sections[section][i]
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	return updated, nil
}

// ToggleProjectCompletion moves a task between the active and completed
// project sections, appending at the destination.
func (s *Store) ToggleProjectCompletion(id string) error {
	return s.mutate(func(doc *Document) error {
		section, i, ok := doc.find(id)
		if !ok {
			return fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		var target string
		switch section {
		case SectionProjects:
			target = SectionCompletedProjects
		case SectionCompletedProjects:
			target = SectionProjects
		default:
			return fmt.Errorf("%w: %s is not in a project section", ErrInvalidProject, id)
		}
		t := doc.remove(section, i)
		doc.Sections[target] = append(doc.Sections[target], t)
		return nil
	})
}

// PipelineText renders the weekly pipeline as plain text for the wiki
// push-sync contract.
func (s *Store) PipelineText() string {
	doc, _ := s.snapshot()
	var b strings.Builder
	for _, name := range WeeklyPipeline {
		b.WriteString(name)
		b.WriteByte('\n')
		for _, t := range doc.Sections[name] {
			b.WriteString("- ")
			b.WriteString(t.Text)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func normalizeSection(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
