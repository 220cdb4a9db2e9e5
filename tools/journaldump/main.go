package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/RuneMirror/RuneMirror/internal/journal"
)

func main() {
	if len(os.Args) < 3 {
		printHelp()
		return
	}

	s, err := journal.Load(os.Args[2])
	if err != nil {
		fmt.Printf("Invalid journal: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "dump":
		dump(os.Stdout, s)
	case "stats":
		stats(os.Stdout, s)
	default:
		printHelp()
	}
}

func header(w io.Writer, s *journal.Session) {
	fmt.Fprintf(w, "session %s role=%s started=%s entries=%d\n",
		s.ID, s.Role, s.Started.UTC().Format(time.RFC3339), s.Len())
}

// dump печатает записи по порядку: смещение от старта, тик, seq, тип и тело.
func dump(w io.Writer, s *journal.Session) {
	header(w, s)
	for _, e := range s.Entries() {
		dir := "->"
		status := fmt.Sprintf("delivered=%d", e.Delivered)
		if e.Direction == journal.DirIn {
			dir = "<-"
			status = e.Outcome.String()
		}
		fmt.Fprintf(w, "+%-10s tick=%-6d seq=%-6d %s %-16s %s %s\n",
			e.At.Sub(s.Started).Round(time.Millisecond), e.Tick, e.Seq, dir, e.Kind, status, e.Payload)
	}
}

// stats - сколько сообщений какого типа и с каким исходом.
func stats(w io.Writer, s *journal.Session) {
	header(w, s)

	counts := map[string]int{}
	var undelivered int
	for _, e := range s.Entries() {
		key := e.Kind.String()
		if e.Direction == journal.DirIn {
			key += " " + e.Outcome.String()
		} else if e.Delivered == 0 {
			undelivered++
		}
		counts[key]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%-32s %d\n", k, counts[k])
	}
	if s.Role == journal.RoleLeader {
		fmt.Fprintf(w, "%-32s %d\n", "undelivered", undelivered)
	}
}

func printHelp() {
	fmt.Println(`Journal Dump - просмотр журналов сессий (.rmj)
Commands:
  dump <file>     - все записи по порядку
  stats <file>    - количество сообщений по типам и исходам`)
}
