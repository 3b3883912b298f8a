package board

import (
	"strings"
	"testing"
	"time"
)

var codecRef = time.Date(2025, time.August, 20, 12, 0, 0, 0, time.UTC)

func TestParseEmptyDocumentHasFixedSections(t *testing.T) {
	doc := Parse("")
	for _, s := range fixedSections {
		if _, ok := doc.Sections[s.Name]; !ok {
			t.Fatalf("missing fixed section %q", s.Name)
		}
	}
	if len(doc.Sections[SectionThisWeek]) != 0 {
		t.Fatalf("expected empty section, got %d tasks", len(doc.Sections[SectionThisWeek]))
	}
}

func TestParseSynthesizesMissingID(t *testing.T) {
	doc := Parse("## TODO THIS WEEK\n\n- [ ] hand written task\n")
	tasks := doc.Sections[SectionThisWeek]
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].ID == "" {
		t.Fatal("expected synthesized id")
	}
	if tasks[0].Text != "hand written task" {
		t.Fatalf("unexpected text %q", tasks[0].Text)
	}
}

func TestParseReadsMetadataComment(t *testing.T) {
	line := "- [x] ship it <!--wb: id=01ABC color=3 proj=01DEF -->"
	doc := Parse("## BIG ONGOING PROJECTS\n\n" + line + "\n")
	tasks := doc.Sections[SectionProjects]
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	got := tasks[0]
	if got.ID != "01ABC" || got.ColorIndex != 3 || got.AssignedProject != "01DEF" {
		t.Fatalf("unexpected task %+v", got)
	}
	if !got.Completed {
		t.Fatal("expected completed")
	}
}

func TestParseSkipsMalformedLines(t *testing.T) {
	text := strings.Join([]string{
		"stray text before any section",
		"## TODO THIS WEEK",
		"",
		"- [ ] real task <!--wb: id=01A -->",
		"- broken item without checkbox",
		"* [ ] wrong bullet",
		"random note",
		"",
	}, "\n")
	doc := Parse(text)
	tasks := doc.Sections[SectionThisWeek]
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
}

func TestParseNormalizesHeadingCase(t *testing.T) {
	doc := Parse("##   todo this week\n- [ ] a <!--wb: id=01A -->\n")
	if len(doc.Sections[SectionThisWeek]) != 1 {
		t.Fatal("expected heading to normalize to upper case")
	}
}

func TestRoundTripPreservesModel(t *testing.T) {
	doc := NewDocument()
	doc.Sections[SectionProjects] = []Task{
		{ID: "01PRJ", Text: "big project", ColorIndex: 7},
	}
	doc.Sections[SectionThisWeek] = []Task{
		{ID: "01AAA", Text: "first\nsecond line", AssignedProject: "01PRJ"},
		{ID: "01BBB", Text: `odd text with \backslash and <!--wb: inside`, Completed: true},
	}
	doc.Sections["DONE Q2 2025"] = []Task{
		{ID: "01CCC", Text: "archived", Completed: true},
	}

	got := Parse(Serialize(doc, codecRef))

	for name, want := range doc.Sections {
		tasks := got.Sections[name]
		if len(tasks) != len(want) {
			t.Fatalf("section %q: expected %d tasks, got %d", name, len(want), len(tasks))
		}
		for i := range want {
			if tasks[i] != want[i] {
				t.Fatalf("section %q task %d: expected %+v, got %+v", name, i, want[i], tasks[i])
			}
		}
	}
}

func TestSerializeIdempotent(t *testing.T) {
	doc := NewDocument()
	doc.Sections[SectionNextWeek] = []Task{
		{ID: "01AAA", Text: "plain"},
		{ID: "01BBB", Text: "multi\nline", Completed: true},
	}
	doc.Sections["DONE Q1 2025"] = []Task{{ID: "01CCC", Text: "old", Completed: true}}

	first := Serialize(doc, codecRef)
	second := Serialize(Parse(first), codecRef)
	if first != second {
		t.Fatalf("serialize not idempotent:\n--- first ---\n%s\n--- second ---\n%s", first, second)
	}
}

func TestSerializeCanonicalOrder(t *testing.T) {
	doc := NewDocument()
	doc.Sections["DONE Q1 2025"] = nil
	doc.Sections["DONE 2024"] = nil
	doc.Sections["DONE Q4 2024"] = nil

	out := Serialize(doc, codecRef)
	order := []string{
		SectionFollowingWeek, SectionNextWeek, SectionThisWeek, SectionInProgress, SectionDone,
		SectionProjects, SectionCompletedProjects, SectionFollowUps, SectionBlocked,
		SectionProblems, SectionResearch, SectionResearchDoing, SectionResearchDone,
		SectionBacklogHigh, SectionBacklogMedium, SectionBacklogLow,
		"DONE Q3 2025", // current quarter for codecRef, always first in history
		"DONE Q1 2025",
		"DONE Q4 2024",
		"DONE 2024",
	}
	last := -1
	for _, name := range order {
		idx := strings.Index(out, "## "+name+"\n")
		if idx < 0 {
			t.Fatalf("missing section %q in output", name)
		}
		if idx <= last {
			t.Fatalf("section %q out of order", name)
		}
		last = idx
	}
}

func TestSplitMetaIgnoresEscapedOpener(t *testing.T) {
	text, meta := splitMeta(`literal \<!--wb: id=fake --> tail <!--wb: id=01A -->`)
	if meta != "id=01A" {
		t.Fatalf("unexpected meta %q", meta)
	}
	if !strings.Contains(text, `\<!--wb: id=fake -->`) {
		t.Fatalf("escaped opener lost from text %q", text)
	}
}

func TestEscapeTextRoundTrip(t *testing.T) {
	cases := []string{
		"plain",
		"line one\nline two\nline three",
		`back\slash`,
		`ends with backslash\`,
		"contains <!--wb: opener",
		`mixed \n literal and real` + "\n" + `newline`,
	}
	for _, in := range cases {
		if got := unescapeText(escapeText(in)); got != in {
			t.Fatalf("escape round trip: %q -> %q", in, got)
		}
	}
}
