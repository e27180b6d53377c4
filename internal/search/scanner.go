package search

import (
	"fmt"
	"hash/fnv"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/klavins/tender-finder/internal/models"
	"github.com/panjf2000/ants/v2"
)

const defaultBatchSize = 50

// Scanner walks a local corpus of notice XML files laid out in one folder
// per publication day (DD_MM_YYYY) and returns the records matching a set
// of criteria.
type Scanner struct {
	CorpusDir string
	BatchSize int
	Workers   int
}

// NewScanner builds a scanner with the default batch size and one worker
// per CPU.
func NewScanner(corpusDir string) *Scanner {
	return &Scanner{
		CorpusDir: corpusDir,
		BatchSize: defaultBatchSize,
		Workers:   runtime.NumCPU(),
	}
}

type corpusFile struct {
	path string
	date string // ISO publication date taken from the folder name
}

// Scan searches all corpus days between startDate and endDate inclusive
// (both ISO formatted). Batches of files are processed concurrently; each
// batch writes into its own result slot so merge order stays deterministic.
// Duplicate notices republished across days are collapsed, first seen wins.
func (s *Scanner) Scan(startDate, endDate string, criteria SearchCriteria) ([]models.NoticeRecord, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	if start.After(end) {
		return nil, fmt.Errorf("start date %s is after end date %s", startDate, endDate)
	}

	var batches [][]corpusFile
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		dateStr := day.Format("2006-01-02")
		dir := filepath.Join(s.CorpusDir, day.Format("02_01_2006"))
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue // missing day folders are normal
		}

		var files []corpusFile
		for _, entry := range entries {
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
				continue
			}
			files = append(files, corpusFile{path: filepath.Join(dir, entry.Name()), date: dateStr})
		}
		if len(files) == 0 {
			continue
		}
		log.Printf("Date %s: %d XML files", dateStr, len(files))

		batchSize := s.BatchSize
		if batchSize <= 0 {
			batchSize = defaultBatchSize
		}
		for i := 0; i < len(files); i += batchSize {
			endIdx := i + batchSize
			if endIdx > len(files) {
				endIdx = len(files)
			}
			batches = append(batches, files[i:endIdx])
		}
	}

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	now := time.Now()
	results := make([][]models.NoticeRecord, len(batches))
	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = s.processBatch(batch, criteria, now)
		}
		if err := pool.Submit(task); err != nil {
			// Pool rejected the task; run it on the caller instead of
			// losing the batch.
			task()
		}
	}
	wg.Wait()

	var all []models.NoticeRecord
	for _, batch := range results {
		all = append(all, batch...)
	}
	unique := dedupRecords(all)
	log.Printf("Found %d unique results", len(unique))
	return unique, nil
}

// processBatch parses and matches one batch of files. Errors never escape:
// a malformed document is logged and skipped so the scan keeps going.
func (s *Scanner) processBatch(batch []corpusFile, criteria SearchCriteria, now time.Time) []models.NoticeRecord {
	var out []models.NoticeRecord
	for _, file := range batch {
		rec := s.processFile(file, criteria, now)
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}

func (s *Scanner) processFile(file corpusFile, criteria SearchCriteria, now time.Time) (rec *models.NoticeRecord) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Error processing %s: %v", file.path, r)
			rec = nil
		}
	}()

	f, err := os.Open(file.path)
	if err != nil {
		log.Printf("Error opening %s: %v", file.path, err)
		return nil
	}
	defer f.Close()

	doc, err := ParseDocument(f)
	if err != nil {
		log.Printf("Error parsing %s: %v", file.path, err)
		return nil
	}

	candidate := ExtractNotice(doc)
	ok, keywords, cpvCodes := criteria.Matches(candidate, now)
	if !ok {
		return nil
	}
	if keywords != nil {
		candidate.MatchedKeywords = keywords
	}
	if cpvCodes != nil {
		candidate.MatchedCPV = cpvCodes
	}
	candidate.SourceFile = filepath.Base(file.path)
	candidate.SourceDate = file.date
	return candidate
}

// dedupRecords collapses records that refer to the same procurement. The key
// is taken from the strongest identifier available; records with no
// identifier and no title are dropped.
func dedupRecords(records []models.NoticeRecord) []models.NoticeRecord {
	seen := make(map[string]struct{}, len(records))
	unique := make([]models.NoticeRecord, 0, len(records))
	for _, rec := range records {
		key := dedupKey(rec)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, rec)
	}
	return unique
}

func dedupKey(rec models.NoticeRecord) string {
	switch {
	case rec.ProcurementID != "":
		return "proc_" + rec.ProcurementID
	case rec.IdentificationNumber != "":
		return "id_" + rec.IdentificationNumber
	case rec.ID != "":
		return "id_" + rec.ID
	case rec.Title != "":
		h := fnv.New64a()
		h.Write([]byte(rec.Title))
		return fmt.Sprintf("title_%x", h.Sum64())
	default:
		return ""
	}
}
