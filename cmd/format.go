package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lukman83/campaign-scout/internal/models"
	"github.com/lukman83/campaign-scout/internal/pipeline"
)

// printResultTable prints both lists in a human-friendly card layout.
func printResultTable(w io.Writer, res *pipeline.Result) {
	printSection(w, "Hidden campaigns", res.Hidden)
	fmt.Fprintln(w)
	printSection(w, "Public campaigns", res.Public)
	fmt.Fprintf(w, "\nScanned %d ids: %d hidden, %d public, %d filtered, %d failed\n",
		res.Stats.Done, res.Stats.Hidden, res.Stats.Public, res.Stats.Suppressed, res.Stats.Failed)
}

func printSection(w io.Writer, title string, lines []string) {
	fmt.Fprintf(w, "%s (%d)\n", title, len(lines))
	for i, line := range lines {
		f, err := pipeline.ParseLine(line)
		if err != nil {
			fmt.Fprintf(w, " %d. %s\n", i+1, line)
			continue
		}
		fmt.Fprintf(w, " %d. %s\n", i+1, truncate(f[pipeline.FieldProduct], 60))
		fmt.Fprintf(w, "    %s  |  Price: %s  |  Points: %s\n",
			f[pipeline.FieldWindow], formatPrice(f[pipeline.FieldPrice]), f[pipeline.FieldPoints])
		fmt.Fprintf(w, "    Shop: %s  |  %s  |  %s review\n",
			f[pipeline.FieldShop], f[pipeline.FieldShipping], f[pipeline.FieldReview])
		fmt.Fprintf(w, "    %s\n", f[pipeline.FieldURL])
	}
}

// printResultLines writes the raw delimiter-joined lines, hidden first.
func printResultLines(w io.Writer, res *pipeline.Result) {
	fmt.Fprintln(w, "[hidden]")
	for _, l := range res.Hidden {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintln(w, "[public]")
	for _, l := range res.Public {
		fmt.Fprintln(w, l)
	}
}

// formatPrice formats a digits-only price as "12,345원".
func formatPrice(s string) string {
	if s == models.UnknownPrice {
		return s
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return strings.Join(parts, ",") + "원"
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
