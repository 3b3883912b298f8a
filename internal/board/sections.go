package board

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// Section labels. Sections are keyed by exact-match upper-case label; there is
// no stored type tag, the label alone decides how a section behaves.
const (
	SectionFollowingWeek = "TODO FOLLOWING WEEK"
	SectionNextWeek      = "TODO NEXT WEEK"
	SectionThisWeek      = "TODO THIS WEEK"
	SectionInProgress    = "IN PROGRESS TODAY"
	SectionDone          = "DONE THIS WEEK"

	SectionProjects          = "BIG ONGOING PROJECTS"
	SectionCompletedProjects = "COMPLETED PROJECTS"
	SectionFollowUps         = "FOLLOW UPS"
	SectionBlocked           = "BLOCKED"

	SectionProblems         = "PROBLEMS TO SOLVE"
	SectionResearch         = "THINGS TO RESEARCH"
	SectionResearchDoing    = "RESEARCH IN PROGRESS"
	SectionResearchDone     = "RESEARCH DONE"

	SectionBacklogHigh   = "BACKLOG HIGH PRIORITY"
	SectionBacklogMedium = "BACKLOG MEDIUM PRIORITY"
	SectionBacklogLow    = "BACKLOG LOW PRIORITY"
)

// WeeklyPipeline is the fixed five-section flow, youngest horizon first.
var WeeklyPipeline = []string{
	SectionFollowingWeek,
	SectionNextWeek,
	SectionThisWeek,
	SectionInProgress,
	SectionDone,
}

// SectionMeta describes a fixed section for the presentation layer.
type SectionMeta struct {
	Tab   string `json:"tab"`
	Order int    `json:"order"`
	Area  string `json:"area,omitempty"`
}

// fixedSections lists every always-present section with its tab grouping.
// Serialization rank follows the slice order below, not the tab name.
var fixedSections = []struct {
	Name string
	Meta SectionMeta
}{
	{SectionFollowingWeek, SectionMeta{Tab: "current", Order: 0}},
	{SectionNextWeek, SectionMeta{Tab: "current", Order: 1}},
	{SectionThisWeek, SectionMeta{Tab: "current", Order: 2}},
	{SectionInProgress, SectionMeta{Tab: "current", Order: 3}},
	{SectionDone, SectionMeta{Tab: "current", Order: 4}},

	{SectionProjects, SectionMeta{Tab: "current", Order: 0, Area: "secondary"}},
	{SectionCompletedProjects, SectionMeta{Tab: "current", Order: 1, Area: "secondary"}},
	{SectionFollowUps, SectionMeta{Tab: "current", Order: 2, Area: "secondary"}},
	{SectionBlocked, SectionMeta{Tab: "current", Order: 3, Area: "secondary"}},

	{SectionProblems, SectionMeta{Tab: "research", Order: 1}},
	{SectionResearch, SectionMeta{Tab: "research", Order: 2}},
	{SectionResearchDoing, SectionMeta{Tab: "research", Order: 3}},
	{SectionResearchDone, SectionMeta{Tab: "research", Order: 4}},

	{SectionBacklogHigh, SectionMeta{Tab: "backlog", Order: 0}},
	{SectionBacklogMedium, SectionMeta{Tab: "backlog", Order: 1}},
	{SectionBacklogLow, SectionMeta{Tab: "backlog", Order: 2}},
}

// lockedSections cannot gain or lose members through cross-section moves.
// ToggleProjectCompletion is the only transition between the two.
var lockedSections = map[string]bool{
	SectionProjects:          true,
	SectionCompletedProjects: true,
}

// projectSections hold tasks that other tasks may reference via AssignedProject.
var projectSections = map[string]bool{
	SectionProjects:          true,
	SectionCompletedProjects: true,
}

var (
	quarterLabelRe = regexp.MustCompile(`^DONE Q([1-4]) (\d{4})$`)
	yearLabelRe    = regexp.MustCompile(`^DONE (\d{4})$`)
)

// IsFixedSection reports whether name is one of the always-present sections.
func IsFixedSection(name string) bool {
	for _, s := range fixedSections {
		if s.Name == name {
			return true
		}
	}
	return false
}

// IsHistorySection reports whether name matches the dynamic history naming
// convention ("DONE Q<1-4> <year>" or "DONE <year>").
func IsHistorySection(name string) bool {
	return quarterLabelRe.MatchString(name) || yearLabelRe.MatchString(name)
}

// IsValidSection reports whether tasks may be added to name. Free-text section
// names are rejected; new sections only appear via the history convention.
func IsValidSection(name string) bool {
	return IsFixedSection(name) || IsHistorySection(name)
}

// IsLockedSection reports whether cross-section moves in or out of name are
// rejected.
func IsLockedSection(name string) bool {
	return lockedSections[name]
}

// IsProjectSection reports whether tasks in name can be assignment targets.
func IsProjectSection(name string) bool {
	return projectSections[name]
}

// SectionMetas returns the fixed section metadata plus the current-quarter
// history section for the given reference time.
func SectionMetas(ref time.Time) map[string]SectionMeta {
	out := make(map[string]SectionMeta, len(fixedSections)+1)
	for _, s := range fixedSections {
		out[s.Name] = s.Meta
	}
	q := QuarterLabel(ref)
	if _, ok := out[q]; !ok {
		out[q] = SectionMeta{Tab: "history", Order: 0}
	}
	return out
}

// QuarterLabel maps a date to its history section label using calendar
// quarters (Q1=Jan-Mar ... Q4=Oct-Dec).
func QuarterLabel(t time.Time) string {
	q := (int(t.Month())-1)/3 + 1
	return fmt.Sprintf("DONE Q%d %d", q, t.Year())
}

// historyKey orders history labels reverse-chronologically. Year-only labels
// ("DONE 2025") sort after every quarter of that year.
func historyKey(name string) (year, quarter int) {
	if m := quarterLabelRe.FindStringSubmatch(name); m != nil {
		q, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		return y, q
	}
	if m := yearLabelRe.FindStringSubmatch(name); m != nil {
		y, _ := strconv.Atoi(m[1])
		return y, 0
	}
	return 0, 0
}

// sortHistory orders history section names: the current quarter first, the
// rest newest to oldest.
func sortHistory(names []string, current string) {
	sort.Slice(names, func(i, j int) bool {
		if names[i] == current {
			return names[j] != current
		}
		if names[j] == current {
			return false
		}
		yi, qi := historyKey(names[i])
		yj, qj := historyKey(names[j])
		if yi != yj {
			return yi > yj
		}
		if qi != qj {
			return qi > qj
		}
		return names[i] < names[j]
	})
}

// canonicalOrder returns every section name the document should serialize, in
// canonical order: weekly pipeline, secondary, research, backlog, then the
// history sections. Unknown section names (possible via hand edits) sort last
// alphabetically rather than being dropped.
func canonicalOrder(doc *Document, ref time.Time) []string {
	current := QuarterLabel(ref)

	seen := map[string]bool{current: true}
	var history, unknown []string
	history = append(history, current)
	for name := range doc.Sections {
		if seen[name] || IsFixedSection(name) {
			seen[name] = true
			continue
		}
		seen[name] = true
		if IsHistorySection(name) {
			history = append(history, name)
		} else {
			unknown = append(unknown, name)
		}
	}
	sortHistory(history, current)
	sort.Strings(unknown)

	out := make([]string, 0, len(fixedSections)+len(history)+len(unknown))
	for _, s := range fixedSections {
		out = append(out, s.Name)
	}
	out = append(out, history...)
	return append(out, unknown...)
}

// WeekBanners computes the Monday-Friday date range each TODO section
// represents, relative to ref's week. IN PROGRESS TODAY and DONE THIS WEEK
// carry no banner.
func WeekBanners(ref time.Time) map[string]string {
	monday := startOfWeek(ref)
	return map[string]string{
		SectionThisWeek:      formatWeek(monday),
		SectionNextWeek:      formatWeek(monday.AddDate(0, 0, 7)),
		SectionFollowingWeek: formatWeek(monday.AddDate(0, 0, 14)),
	}
}

func startOfWeek(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	sinceMonday := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -sinceMonday)
}

// formatWeek renders "Jan 27 - Jan 31".
func formatWeek(monday time.Time) string {
	friday := monday.AddDate(0, 0, 4)
	return monday.Format("Jan 2") + " - " + friday.Format("Jan 2")
}
