package board

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The on-disk format is a narrow markdown subset: "## HEADING" opens a
// section, "- [ ]"/"- [x]" lines are tasks, anything else is skipped. Fields
// the checklist syntax cannot carry (id, color, project assignment) ride in a
// trailing "<!--wb: ... -->" comment on the task line.
//
// Task text is escaped so every task stays on one physical line: "\" becomes
// "\\", a newline becomes "\n", and a literal "<!--wb:" in the text becomes
// "\<!--wb:". The decoder resolves "\\", "\n" and "\<" left to right.
//
// Free text between sections is not round-tripped; the codec only guarantees
// fidelity for headings and checklist lines. That is an accepted lossy
// boundary for a hand-editable file.

const metaOpen = "<!--wb:"

var (
	headingRe  = regexp.MustCompile(`^##\s+(.+)$`)
	taskLineRe = regexp.MustCompile(`^- \[([ xX])\] (.+)$`)
)

// Parse reads the document text into a Document. It never fails outright:
// malformed lines are dropped, and every fixed section is present in the
// result even when absent from the text. Task lines without an id comment get
// a fresh id and are treated as pre-existing.
func Parse(text string) *Document {
	doc := NewDocument()
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	current := ""
	for _, line := range strings.Split(text, "\n") {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			current = strings.ToUpper(strings.TrimSpace(m[1]))
			if _, ok := doc.Sections[current]; !ok {
				doc.Sections[current] = nil
			}
			continue
		}
		m := taskLineRe.FindStringSubmatch(line)
		if m == nil || current == "" {
			continue
		}
		raw, meta := splitMeta(m[2])
		t := Task{
			Text:      unescapeText(strings.TrimSpace(raw)),
			Completed: strings.EqualFold(m[1], "x"),
		}
		applyMeta(&t, meta)
		if t.ID == "" {
			t.ID = newTaskID(time.Now())
		}
		doc.Sections[current] = append(doc.Sections[current], t)
	}
	return doc
}

// Serialize writes the document in canonical section order. ref decides which
// history section counts as the current quarter.
func Serialize(doc *Document, ref time.Time) string {
	var b strings.Builder
	for _, name := range canonicalOrder(doc, ref) {
		b.WriteString("## ")
		b.WriteString(name)
		b.WriteString("\n\n")
		tasks := doc.Sections[name]
		for _, t := range tasks {
			b.WriteString(encodeTask(t))
			b.WriteByte('\n')
		}
		if len(tasks) > 0 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func encodeTask(t Task) string {
	box := " "
	if t.Completed {
		box = "x"
	}
	meta := "id=" + t.ID
	if t.ColorIndex > 0 {
		meta += " color=" + strconv.Itoa(t.ColorIndex)
	}
	if t.AssignedProject != "" {
		meta += " proj=" + t.AssignedProject
	}
	return fmt.Sprintf("- [%s] %s %s %s -->", box, escapeText(t.Text), metaOpen, meta)
}

// splitMeta splits a task body into text and the trailing metadata comment.
// Only an unescaped "<!--wb:" that closes with "-->" at end of line counts.
func splitMeta(body string) (text, meta string) {
	idx := strings.LastIndex(body, metaOpen)
	for idx >= 0 {
		if idx == 0 || body[idx-1] != '\\' {
			rest := strings.TrimSpace(body[idx+len(metaOpen):])
			if strings.HasSuffix(rest, "-->") {
				return body[:idx], strings.TrimSpace(strings.TrimSuffix(rest, "-->"))
			}
		}
		idx = strings.LastIndex(body[:idx], metaOpen)
	}
	return body, ""
}

func applyMeta(t *Task, meta string) {
	for _, field := range strings.Fields(meta) {
		key, value, ok := strings.Cut(field, "=")
		if !ok || value == "" {
			continue
		}
		switch key {
		case "id":
			t.ID = value
		case "color":
			if n, err := strconv.Atoi(value); err == nil && n >= 1 && n <= 10 {
				t.ColorIndex = n
			}
		case "proj":
			t.AssignedProject = value
		}
	}
}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, metaOpen, `\`+metaOpen)
	return s
}

func unescapeText(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case '\\':
			b.WriteByte('\\')
			i++
		case 'n':
			b.WriteByte('\n')
			i++
		case '<':
			b.WriteByte('<')
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
