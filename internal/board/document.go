package board

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type randReader struct{}

func (randReader) Read(p []byte) (int, error) { return rand.Read(p) }

// Task is a single item of work. ID is assigned at creation and never changes.
type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`

	// ColorIndex (1-10) selects a visual category. Only meaningful while the
	// task lives in a project section.
	ColorIndex int `json:"color_index,omitempty"`

	// AssignedProject weakly references a task id in a project section. A
	// dangling reference is treated as absent at read time.
	AssignedProject string `json:"assigned_project,omitempty"`
}

// Document is the full board: section label -> ordered task list. Sections
// are disjoint; a task belongs to exactly one section at a time.
type Document struct {
	Sections map[string][]Task
}

// NewDocument returns an empty document with every fixed section present.
func NewDocument() *Document {
	d := &Document{Sections: make(map[string][]Task, len(fixedSections))}
	for _, s := range fixedSections {
		d.Sections[s.Name] = nil
	}
	return d
}

// Clone deep-copies the document so a mutation can be prepared and published
// atomically.
func (d *Document) Clone() *Document {
	out := &Document{Sections: make(map[string][]Task, len(d.Sections))}
	for name, tasks := range d.Sections {
		if tasks == nil {
			out.Sections[name] = nil
			continue
		}
		cp := make([]Task, len(tasks))
		copy(cp, tasks)
		out.Sections[name] = cp
	}
	return out
}

// find locates a task by id. Returns its section and index.
func (d *Document) find(id string) (section string, index int, ok bool) {
	for name, tasks := range d.Sections {
		for i := range tasks {
			if tasks[i].ID == id {
				return name, i, true
			}
		}
	}
	return "", 0, false
}

// remove takes the task at index out of section, preserving the order of the
// remaining tasks.
func (d *Document) remove(section string, index int) Task {
	tasks := d.Sections[section]
	t := tasks[index]
	d.Sections[section] = append(tasks[:index:index], tasks[index+1:]...)
	return t
}

// insert places t at index in section, clamped to [0, len].
func (d *Document) insert(section string, index int, t Task) {
	tasks := d.Sections[section]
	if index < 0 {
		index = 0
	}
	if index > len(tasks) {
		index = len(tasks)
	}
	tasks = append(tasks, Task{})
	copy(tasks[index+1:], tasks[index:])
	tasks[index] = t
	d.Sections[section] = tasks
}

// isProjectTask reports whether id names a task currently in a project
// section. This is the read-time lookup backing the weak AssignedProject
// reference.
func (d *Document) isProjectTask(id string) bool {
	if strings.TrimSpace(id) == "" {
		return false
	}
	for name := range projectSections {
		for _, t := range d.Sections[name] {
			if t.ID == id {
				return true
			}
		}
	}
	return false
}

func newTaskID(now time.Time) string {
	t := ulid.Timestamp(now)
	entropy := ulid.Monotonic(randReader{}, 0)
	id, err := ulid.New(t, entropy)
	if err != nil {
		// fallback
		return fmt.Sprintf("%d", now.UnixNano())
	}
	return strings.ToUpper(id.String())
}
