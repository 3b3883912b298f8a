package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/amirbrooks/weekboard/internal/board"
	"github.com/amirbrooks/weekboard/internal/confluence"
	"github.com/amirbrooks/weekboard/internal/server"
)

// Exit codes
const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitNotFound = 3
	ExitConflict = 4
	ExitInternal = 10
)

type GlobalFlags struct {
	Data    string
	DataSet bool
	JSON    bool
	Plain   bool
	Quiet   bool
}

func reorderFlags(args []string, takesValue map[string]bool) []string {
	if len(args) == 0 {
		return args
	}
	var flags []string
	var rest []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			if i+1 < len(args) {
				rest = append(rest, args[i+1:]...)
			}
			break
		}
		if strings.HasPrefix(a, "-") {
			flags = append(flags, a)
			if takesValue[a] && !strings.Contains(a, "=") {
				if i+1 < len(args) {
					flags = append(flags, args[i+1])
					i++
				}
			}
			continue
		}
		rest = append(rest, a)
	}
	return append(flags, rest...)
}

func Run(args []string) int {
	gf, rest, err := extractGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return ExitUsage
	}

	if len(rest) == 0 {
		printHelp()
		return ExitUsage
	}

	cmd := rest[0]
	cmdArgs := rest[1:]

	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		printHelp()
		return ExitOK
	}
	if cmd == "serve" {
		return cmdServe(gf, cmdArgs)
	}

	store, err := board.Open(board.NewFileStorage(gf.Data))
	if err != nil {
		fmt.Fprintln(os.Stderr, "weekboard:", err)
		return ExitInternal
	}
	settings := board.NewSettingsStore(gf.Data)

	switch cmd {
	case "init":
		return cmdInit(store, gf, cmdArgs)
	case "add":
		return cmdAdd(store, gf, cmdArgs)
	case "ls", "list":
		return cmdList(store, gf, cmdArgs)
	case "board":
		return cmdBoard(store, gf, cmdArgs)
	case "show":
		return cmdShow(store, gf, cmdArgs)
	case "edit":
		return cmdEdit(store, gf, cmdArgs)
	case "mv", "move":
		return cmdMove(store, gf, cmdArgs)
	case "reorder":
		return cmdReorder(store, gf, cmdArgs)
	case "rm", "delete":
		return cmdDelete(store, gf, cmdArgs)
	case "check", "done":
		return cmdCheck(store, gf, cmdArgs)
	case "assign":
		return cmdAssign(store, gf, cmdArgs)
	case "unassign":
		return cmdUnassign(store, gf, cmdArgs)
	case "color":
		return cmdColor(store, gf, cmdArgs)
	case "project":
		return cmdProject(store, gf, cmdArgs)
	case "new-week":
		return cmdNewWeek(store, gf, cmdArgs)
	case "undo":
		return cmdUndo(store, gf, cmdArgs)
	case "notes":
		return cmdNotes(settings, gf, cmdArgs)
	case "quarter":
		return cmdQuarter(store, gf, cmdArgs)
	case "week-dates":
		return cmdWeekDates(store, gf, cmdArgs)
	case "sync":
		return cmdSync(store, settings, gf, cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printHelp()
		return ExitUsage
	}
}

func printHelp() {
	fmt.Print(`weekboard — weekly kanban in one Markdown file

Usage:
  weekboard [global flags] <command> [args]

Global flags:
  --data <path>    Data directory (default: ~/.weekboard or WEEKBOARD_DATA)
  --json           JSON output
  --plain          TSV output
  --quiet

Commands:
  serve [--config <path>] [--port N]
  init
  add "<text>" --section <name>
  ls [--section <name>]
  board
  show <id-or-prefix>
  edit <id-or-prefix> "<text>"
  mv <id-or-prefix> <section>
  reorder <id-or-prefix> <section> <index>
  rm <id-or-prefix>
  check <id-or-prefix>
  assign <id-or-prefix> <project-id-or-prefix>
  unassign <id-or-prefix>
  color <id-or-prefix> <1-10|0>
  project toggle <id-or-prefix>
  new-week
  undo
  notes [show|set "<text>"]
  quarter
  week-dates
  sync

Sections:
  TODO FOLLOWING WEEK | TODO NEXT WEEK | TODO THIS WEEK | IN PROGRESS TODAY |
  DONE THIS WEEK | BIG ONGOING PROJECTS | COMPLETED PROJECTS | FOLLOW UPS |
  BLOCKED | PROBLEMS TO SOLVE | THINGS TO RESEARCH | RESEARCH IN PROGRESS |
  RESEARCH DONE | BACKLOG HIGH/MEDIUM/LOW PRIORITY | DONE Q<n> <year>
`)
}

func extractGlobalFlags(args []string) (GlobalFlags, []string, error) {
	// Allow flags anywhere by scanning and stripping known globals.
	gf := GlobalFlags{}

	// Default data dir from env or home.
	if env := os.Getenv("WEEKBOARD_DATA"); env != "" {
		gf.Data = env
		gf.DataSet = true
	} else {
		home, _ := os.UserHomeDir()
		if home != "" {
			gf.Data = filepath.Join(home, ".weekboard")
		} else {
			gf.Data = ".weekboard"
		}
	}

	out := make([]string, 0, len(args))
	skip := 0

	for i := 0; i < len(args); i++ {
		if skip > 0 {
			skip--
			continue
		}
		a := args[i]
		switch a {
		case "--data":
			if i+1 >= len(args) {
				return gf, nil, errors.New("--data requires a value")
			}
			gf.Data = args[i+1]
			gf.DataSet = true
			skip = 1
		case "--json":
			gf.JSON = true
		case "--plain":
			gf.Plain = true
		case "--quiet":
			gf.Quiet = true
		default:
			out = append(out, a)
		}
	}

	if gf.JSON && gf.Plain {
		return gf, nil, errors.New("--json and --plain are mutually exclusive")
	}
	return gf, out, nil
}

// storeErr maps store errors to exit codes and prints them with the command
// name prefix.
func storeErr(cmd string, err error) int {
	switch {
	case errors.Is(err, board.ErrNotFound):
		fmt.Fprintf(os.Stderr, "%s: not found\n", cmd)
		return ExitNotFound
	case errors.Is(err, board.ErrInvalidSection),
		errors.Is(err, board.ErrLockedSection),
		errors.Is(err, board.ErrInvalidProject),
		errors.Is(err, board.ErrNothingToUndo),
		errors.Is(err, board.ErrInvalid):
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		return ExitConflict
	default:
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		return ExitInternal
	}
}

func printJSON(payload any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

// resolveID accepts a full task id or a unique prefix (case-insensitive).
func resolveID(store *board.Store, prefix string) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", board.ErrInvalid)
	}
	if _, _, err := store.Get(prefix); err == nil {
		return prefix, nil
	}
	var match string
	for _, sec := range store.Sections() {
		for _, t := range sec.Tasks {
			if strings.HasPrefix(t.ID, prefix) {
				if match != "" && match != t.ID {
					return "", fmt.Errorf("ambiguous id prefix %q", prefix)
				}
				match = t.ID
			}
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", board.ErrNotFound, prefix)
	}
	return match, nil
}

func cmdServe(gf GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Config file (YAML)")
	port := fs.Int("port", 0, "Listen port (overrides config)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	cfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "serve:", err)
		return ExitUsage
	}
	if *port != 0 {
		cfg.Port = *port
	}
	// --data (or WEEKBOARD_DATA) beats the config file when given explicitly.
	if gf.DataSet {
		cfg.DataDir = gf.Data
	}

	logger, err := server.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "serve:", err)
		return ExitUsage
	}
	defer func() { _ = logger.Sync() }()

	store, err := board.Open(board.NewFileStorage(cfg.DataDir))
	if err != nil {
		fmt.Fprintln(os.Stderr, "serve:", err)
		return ExitInternal
	}
	srv, err := server.NewServer(store, board.NewSettingsStore(cfg.DataDir), logger, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "serve:", err)
		return ExitInternal
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintln(os.Stderr, "serve:", err)
			return ExitInternal
		}
	case <-sigCh:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "serve:", err)
			return ExitInternal
		}
	}
	return ExitOK
}

func cmdInit(store *board.Store, gf GlobalFlags, args []string) int {
	// Open already created an empty document when none existed; persist it so
	// the file exists on disk.
	if err := store.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "init:", err)
		return ExitInternal
	}
	if !gf.Quiet {
		fmt.Println("Initialized weekboard data at:", gf.Data)
	}
	return ExitOK
}

func cmdAdd(store *board.Store, gf GlobalFlags, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--section": true,
	})
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	section := fs.String("section", board.SectionThisWeek, "Section name")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: weekboard add \"<text>\" [--section <name>]")
		return ExitUsage
	}
	task, err := store.Add(*section, strings.Join(rest, " "))
	if err != nil {
		return storeErr("add", err)
	}
	if gf.JSON {
		printJSON(map[string]any{"task": task})
		return ExitOK
	}
	fmt.Printf("%s [%s] %s\n", task.ID, strings.ToUpper(strings.TrimSpace(*section)), task.Text)
	return ExitOK
}

func cmdList(store *board.Store, gf GlobalFlags, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--section": true,
	})
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	section := fs.String("section", "", "Only this section")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	sections := store.Sections()
	if *section != "" {
		want := strings.ToUpper(strings.TrimSpace(*section))
		filtered := sections[:0]
		for _, sec := range sections {
			if sec.Name == want {
				filtered = append(filtered, sec)
			}
		}
		sections = filtered
		if len(sections) == 0 {
			fmt.Fprintln(os.Stderr, "ls: unknown section:", want)
			return ExitConflict
		}
	}

	if gf.JSON {
		printJSON(map[string]any{"sections": sections})
		return ExitOK
	}

	if gf.Plain {
		fmt.Fprintln(os.Stdout, "ID\tDONE\tSECTION\tTEXT")
		for _, sec := range sections {
			for _, t := range sec.Tasks {
				fmt.Fprintf(os.Stdout, "%s\t%t\t%s\t%s\n", t.ID, t.Completed, sec.Name, firstLine(t.Text))
			}
		}
		return ExitOK
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDONE\tSECTION\tTEXT")
	for _, sec := range sections {
		for _, t := range sec.Tasks {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			fmt.Fprintf(w, "%s\t[%s]\t%s\t%s\n", t.ID, mark, sec.Name, firstLine(t.Text))
		}
	}
	_ = w.Flush()
	return ExitOK
}

func cmdBoard(store *board.Store, gf GlobalFlags, args []string) int {
	sections := store.Sections()
	if gf.JSON {
		printJSON(map[string]any{"sections": sections, "quarter": store.CurrentQuarter()})
		return ExitOK
	}
	banners := store.WeekBanners()
	for _, sec := range sections {
		if len(sec.Tasks) == 0 && board.IsHistorySection(sec.Name) {
			continue
		}
		header := sec.Name
		if b, ok := banners[sec.Name]; ok {
			header += "  (" + b + ")"
		}
		fmt.Println(header)
		if len(sec.Tasks) == 0 {
			fmt.Println("  (empty)")
		}
		for _, t := range sec.Tasks {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			fmt.Printf("  [%s] %s  %s\n", mark, firstLine(t.Text), shortID(t.ID))
		}
		fmt.Println()
	}
	return ExitOK
}

func cmdShow(store *board.Store, gf GlobalFlags, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: weekboard show <id-or-prefix>")
		return ExitUsage
	}
	id, err := resolveID(store, args[0])
	if err != nil {
		return storeErr("show", err)
	}
	task, section, err := store.Get(id)
	if err != nil {
		return storeErr("show", err)
	}
	if gf.JSON {
		printJSON(map[string]any{"task": task, "section": section})
		return ExitOK
	}
	fmt.Println("ID:      ", task.ID)
	fmt.Println("Section: ", section)
	fmt.Println("Done:    ", task.Completed)
	if task.ColorIndex != 0 {
		fmt.Println("Color:   ", task.ColorIndex)
	}
	if task.AssignedProject != "" {
		fmt.Println("Project: ", task.AssignedProject)
	}
	fmt.Println("Text:")
	for _, line := range strings.Split(task.Text, "\n") {
		fmt.Println(" ", line)
	}
	return ExitOK
}

func cmdEdit(store *board.Store, gf GlobalFlags, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: weekboard edit <id-or-prefix> \"<text>\"")
		return ExitUsage
	}
	id, err := resolveID(store, args[0])
	if err != nil {
		return storeErr("edit", err)
	}
	text := strings.Join(args[1:], " ")
	task, err := store.Edit(id, board.EditRequest{Text: &text})
	if err != nil {
		return storeErr("edit", err)
	}
	if gf.JSON {
		printJSON(map[string]any{"task": task})
		return ExitOK
	}
	if !gf.Quiet {
		fmt.Printf("Edited %s\n", task.ID)
	}
	return ExitOK
}

func cmdMove(store *board.Store, gf GlobalFlags, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: weekboard mv <id-or-prefix> <section>")
		return ExitUsage
	}
	id, err := resolveID(store, args[0])
	if err != nil {
		return storeErr("mv", err)
	}
	section := strings.Join(args[1:], " ")
	task, err := store.Edit(id, board.EditRequest{Section: &section})
	if err != nil {
		return storeErr("mv", err)
	}
	if gf.JSON {
		printJSON(map[string]any{"task": task})
		return ExitOK
	}
	if !gf.Quiet {
		fmt.Printf("Moved %s -> %s\n", task.ID, strings.ToUpper(strings.TrimSpace(section)))
	}
	return ExitOK
}

func cmdReorder(store *board.Store, gf GlobalFlags, args []string) int {
	if len(args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: weekboard reorder <id-or-prefix> <section> <index>")
		return ExitUsage
	}
	id, err := resolveID(store, args[0])
	if err != nil {
		return storeErr("reorder", err)
	}
	index, err := strconv.Atoi(args[len(args)-1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "reorder: index must be a number")
		return ExitUsage
	}
	section := strings.Join(args[1:len(args)-1], " ")
	if err := store.Reorder(id, section, index); err != nil {
		return storeErr("reorder", err)
	}
	if !gf.Quiet {
		fmt.Printf("Reordered %s\n", id)
	}
	return ExitOK
}

func cmdDelete(store *board.Store, gf GlobalFlags, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: weekboard rm <id-or-prefix>")
		return ExitUsage
	}
	id, err := resolveID(store, args[0])
	if err != nil {
		return storeErr("rm", err)
	}
	if err := store.Delete(id); err != nil {
		return storeErr("rm", err)
	}
	if !gf.Quiet {
		fmt.Printf("Deleted %s\n", id)
	}
	return ExitOK
}

func cmdCheck(store *board.Store, gf GlobalFlags, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: weekboard check <id-or-prefix>")
		return ExitUsage
	}
	id, err := resolveID(store, args[0])
	if err != nil {
		return storeErr("check", err)
	}
	task, err := store.ToggleComplete(id)
	if err != nil {
		return storeErr("check", err)
	}
	if gf.JSON {
		printJSON(map[string]any{"task": task})
		return ExitOK
	}
	if !gf.Quiet {
		state := "open"
		if task.Completed {
			state = "done"
		}
		fmt.Printf("%s is now %s\n", task.ID, state)
	}
	return ExitOK
}

func cmdAssign(store *board.Store, gf GlobalFlags, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: weekboard assign <id-or-prefix> <project-id-or-prefix>")
		return ExitUsage
	}
	id, err := resolveID(store, args[0])
	if err != nil {
		return storeErr("assign", err)
	}
	projectID, err := resolveID(store, args[1])
	if err != nil {
		return storeErr("assign", err)
	}
	if err := store.Assign(id, projectID); err != nil {
		return storeErr("assign", err)
	}
	if !gf.Quiet {
		fmt.Printf("Assigned %s -> %s\n", id, projectID)
	}
	return ExitOK
}

func cmdUnassign(store *board.Store, gf GlobalFlags, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: weekboard unassign <id-or-prefix>")
		return ExitUsage
	}
	id, err := resolveID(store, args[0])
	if err != nil {
		return storeErr("unassign", err)
	}
	if err := store.Unassign(id); err != nil {
		return storeErr("unassign", err)
	}
	if !gf.Quiet {
		fmt.Printf("Unassigned %s\n", id)
	}
	return ExitOK
}

func cmdColor(store *board.Store, gf GlobalFlags, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: weekboard color <id-or-prefix> <1-10|0>")
		return ExitUsage
	}
	id, err := resolveID(store, args[0])
	if err != nil {
		return storeErr("color", err)
	}
	index, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "color: index must be a number (1-10, or 0 to clear)")
		return ExitUsage
	}
	if err := store.SetColor(id, index); err != nil {
		return storeErr("color", err)
	}
	if !gf.Quiet {
		fmt.Printf("Colored %s\n", id)
	}
	return ExitOK
}

func cmdProject(store *board.Store, gf GlobalFlags, args []string) int {
	if len(args) < 2 || args[0] != "toggle" {
		fmt.Fprintln(os.Stderr, "Usage: weekboard project toggle <id-or-prefix>")
		return ExitUsage
	}
	id, err := resolveID(store, args[1])
	if err != nil {
		return storeErr("project", err)
	}
	if err := store.ToggleProjectCompletion(id); err != nil {
		return storeErr("project", err)
	}
	if !gf.Quiet {
		fmt.Printf("Toggled project %s\n", id)
	}
	return ExitOK
}

func cmdNewWeek(store *board.Store, gf GlobalFlags, args []string) int {
	if err := store.Advance(); err != nil {
		return storeErr("new-week", err)
	}
	if gf.JSON {
		printJSON(map[string]any{"success": true, "canUndo": store.CanUndo()})
		return ExitOK
	}
	if !gf.Quiet {
		fmt.Println("Advanced the week. Run 'weekboard undo' to revert.")
	}
	return ExitOK
}

func cmdUndo(store *board.Store, gf GlobalFlags, args []string) int {
	if err := store.Undo(); err != nil {
		return storeErr("undo", err)
	}
	if !gf.Quiet {
		fmt.Println("Restored the board from before the last week advance.")
	}
	return ExitOK
}

func cmdNotes(settings *board.SettingsStore, gf GlobalFlags, args []string) int {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "show":
		record, err := settings.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, "notes:", err)
			return ExitInternal
		}
		if gf.JSON {
			printJSON(map[string]string{"notes": record.Notes})
			return ExitOK
		}
		fmt.Println(record.Notes)
		return ExitOK
	case "set":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: weekboard notes set \"<text>\"")
			return ExitUsage
		}
		record, err := settings.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, "notes:", err)
			return ExitInternal
		}
		record.Notes = strings.Join(args[1:], " ")
		if err := settings.Save(record); err != nil {
			fmt.Fprintln(os.Stderr, "notes:", err)
			return ExitInternal
		}
		if !gf.Quiet {
			fmt.Println("Saved notes.")
		}
		return ExitOK
	default:
		fmt.Fprintln(os.Stderr, "Usage: weekboard notes [show|set \"<text>\"]")
		return ExitUsage
	}
}

func cmdQuarter(store *board.Store, gf GlobalFlags, args []string) int {
	if gf.JSON {
		printJSON(map[string]string{"quarter": store.CurrentQuarter()})
		return ExitOK
	}
	fmt.Println(store.CurrentQuarter())
	return ExitOK
}

func cmdWeekDates(store *board.Store, gf GlobalFlags, args []string) int {
	banners := store.WeekBanners()
	if gf.JSON {
		printJSON(banners)
		return ExitOK
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	for _, name := range []string{board.SectionThisWeek, board.SectionNextWeek, board.SectionFollowingWeek} {
		fmt.Fprintf(w, "%s\t%s\n", name, banners[name])
	}
	_ = w.Flush()
	return ExitOK
}

func cmdSync(store *board.Store, settings *board.SettingsStore, gf GlobalFlags, args []string) int {
	record, err := settings.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "sync:", err)
		return ExitInternal
	}
	client, pageID, err := confluence.NewClient(record)
	if err != nil {
		if errors.Is(err, confluence.ErrNotConfigured) {
			fmt.Fprintln(os.Stderr, "sync: Confluence is not configured (set URL, email and token in settings)")
			return ExitConflict
		}
		fmt.Fprintln(os.Stderr, "sync:", err)
		return ExitInternal
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	content := confluence.BuildContent(store.Sections(), record.Notes)
	if err := client.UpdatePage(ctx, pageID, content); err != nil {
		fmt.Fprintln(os.Stderr, "sync:", err)
		return ExitInternal
	}
	if !gf.Quiet {
		fmt.Println("Confluence page updated.")
	}
	return ExitOK
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
