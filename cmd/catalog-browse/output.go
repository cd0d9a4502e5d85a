package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Sternrassler/compass-catalog-client/pkg/catalog"
	"github.com/Sternrassler/compass-catalog-client/pkg/pagination"
)

// listOutput is the JSON shape of a loaded list.
type listOutput[T any] struct {
	Items  []T    `json:"items"`
	Loaded int    `json:"loaded"`
	Total  int    `json:"total"`
	State  string `json:"state"`
}

func printListJSON[T any](w io.Writer, session pagination.Session[T]) error {
	out := listOutput[T]{
		Items:  session.Items,
		Loaded: len(session.Items),
		Total:  session.Total,
		State:  session.State.String(),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printSolutionTable(w io.Writer, session pagination.Session[catalog.Solution]) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCATEGORY\tSTAGE\tRADAR\tRECOMMEND\tTEAM")
	for _, s := range session.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(s.Name, 40), dash(s.Category), dash(s.Stage), dash(s.RadarStatus), dash(s.RecommendStatus), dash(s.Team))
	}
	tw.Flush()
	printFooter(w, len(session.Items), session.Total, session.State)
}

func printCategoryTable(w io.Writer, session pagination.Session[catalog.Category]) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSOLUTIONS\tDESCRIPTION")
	for _, c := range session.Items {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", c.Name, c.UsageCount, truncate(dash(c.Description), 60))
	}
	tw.Flush()
	printFooter(w, len(session.Items), session.Total, session.State)
}

func printFooter(w io.Writer, loaded, total int, state pagination.LoadState) {
	if state == pagination.Exhausted {
		fmt.Fprintf(w, "\n%d of %d loaded\n", loaded, total)
		return
	}
	fmt.Fprintf(w, "\n%d of %d loaded (more available)\n", loaded, total)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
