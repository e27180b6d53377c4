package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/klavins/tender-finder/internal/config"
	"github.com/klavins/tender-finder/internal/models"
	"github.com/klavins/tender-finder/internal/search"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file (optional)")
	from := flag.String("from", "", "start date (YYYY-MM-DD)")
	to := flag.String("to", "", "end date (YYYY-MM-DD)")
	keywords := flag.String("keywords", "", "comma separated keywords")
	cpv := flag.String("cpv", "", "comma separated CPV codes")
	exclude := flag.String("exclude", "", "comma separated exclusion keywords")
	statuses := flag.String("statuses", "", "comma separated allowed statuses (default: IZSLUDINĀTS)")
	deadline := flag.String("deadline", "all", "deadline filter: all, active or expired")
	all := flag.Bool("all", false, "return everything passing the filters, ignoring keywords and CPV")
	format := flag.String("format", "table", "output format: table, csv or json")
	flag.Parse()

	if *from == "" || *to == "" {
		log.Fatal("-from and -to are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	scanner := search.NewScanner(cfg.CorpusDir)
	if cfg.BatchSize > 0 {
		scanner.BatchSize = cfg.BatchSize
	}
	if cfg.Workers > 0 {
		scanner.Workers = cfg.Workers
	}

	criteria := search.SearchCriteria{
		Keywords:        splitList(*keywords),
		CPVCodes:        splitList(*cpv),
		ExcludeKeywords: splitList(*exclude),
		Statuses:        splitList(*statuses),
		DeadlineStatus:  *deadline,
		ShowAll:         *all,
	}

	results, err := scanner.Scan(*from, *to, criteria)
	if err != nil {
		log.Fatal(err)
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			log.Fatal(err)
		}
	case "csv":
		renderTable(results).RenderCSV()
	default:
		renderTable(results).Render()
	}
}

func renderTable(results []models.NoticeRecord) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Date", "Title", "Authority", "CPV", "Deadline", "Status", "Procedure", "Matched"})

	for _, rec := range results {
		t.AppendRow(table.Row{
			rec.SourceDate,
			truncate(rec.Title, 60),
			truncate(rec.Authority, 40),
			strings.Join(rec.CPVCodes, " "),
			rec.Deadline,
			rec.Status,
			truncate(rec.ProcedureType, 40),
			strings.Join(rec.MatchedKeywords, ", "),
		})
	}
	return t
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
