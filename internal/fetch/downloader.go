package fetch

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

// Config holds the downloader settings. Zero values get sensible defaults
// in New.
type Config struct {
	Host           string
	User           string
	Password       string
	ArchiveDir     string // where tar.gz archives are kept
	CorpusDir      string // where extracted XML files land
	DaysToDownload int
	DaysToKeep     int
	TimeoutSeconds int
}

// Downloader mirrors the publication agency's daily notice archives over FTP
// and unpacks the XML documents into the local corpus layout.
type Downloader struct {
	cfg          Config
	metadataPath string
}

// Metadata records what has been downloaded, persisted as JSON next to the
// archives so runs are incremental.
type Metadata struct {
	Downloads  map[string]ArchiveRecord `json:"downloads"`
	LastUpdate string                   `json:"last_update"`
	TotalFiles int                      `json:"total_files"`
}

// ArchiveRecord describes one downloaded archive.
type ArchiveRecord struct {
	LocalPath    string `json:"local_path"`
	DownloadTime string `json:"download_time"`
	Date         string `json:"date"`
	Size         int64  `json:"size"`
	XMLExtracted int    `json:"xml_extracted"`
	XMLFolder    string `json:"xml_folder"`
}

// Status summarizes the mirror state for the status endpoint and CLI.
type Status struct {
	LastUpdate  string         `json:"last_update"`
	TotalFiles  int            `json:"total_files"`
	FilesByDate map[string]int `json:"files_by_date"`
}

// New builds a downloader, filling in defaults for unset config fields.
func New(cfg Config) *Downloader {
	if cfg.Host == "" {
		cfg.Host = "open.iub.gov.lv"
	}
	if cfg.User == "" {
		cfg.User = "anonymous"
	}
	if cfg.ArchiveDir == "" {
		cfg.ArchiveDir = "EIS-Automatic-Download"
	}
	if cfg.CorpusDir == "" {
		cfg.CorpusDir = "EIS-XML-Files"
	}
	if cfg.DaysToDownload <= 0 {
		cfg.DaysToDownload = 90
	}
	if cfg.DaysToKeep <= 0 {
		cfg.DaysToKeep = 90
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	return &Downloader{
		cfg:          cfg,
		metadataPath: filepath.Join(cfg.ArchiveDir, "download_metadata.json"),
	}
}

// Run performs one full mirror pass: download the archive window, extract
// new XML files, prune archives past the retention window and persist the
// metadata. Per-day errors are logged and do not abort the pass.
func (d *Downloader) Run(ctx context.Context) error {
	log.Println("Starting archive download")
	meta := d.loadMetadata()

	addr := net.JoinHostPort(d.cfg.Host, "21")
	conn, err := ftp.Dial(addr,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(time.Duration(d.cfg.TimeoutSeconds)*time.Second),
	)
	if err != nil {
		return fmt.Errorf("ftp connect %s: %w", addr, err)
	}
	defer conn.Quit()

	if err := conn.Login(d.cfg.User, d.cfg.Password); err != nil {
		return fmt.Errorf("ftp login: %w", err)
	}

	now := time.Now()
	downloaded := 0
	for i := 0; i < d.cfg.DaysToDownload; i++ {
		if ctx.Err() != nil {
			break
		}
		day := now.AddDate(0, 0, -i)
		downloaded += d.downloadDay(conn, day, meta)
	}

	removed := d.cleanupOld(meta, now)

	meta.LastUpdate = now.Format(time.RFC3339)
	meta.TotalFiles = len(meta.Downloads)
	if err := d.saveMetadata(meta); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}

	log.Printf("Download finished: %d new archives, %d old removed, %d total", downloaded, removed, meta.TotalFiles)
	return ctx.Err()
}

// downloadDay fetches all archives published on one day. Returns the number
// of newly downloaded archives.
func (d *Downloader) downloadDay(conn *ftp.ServerConn, day time.Time, meta *Metadata) int {
	monthFolder := day.Format("01_2006")
	remoteDir := "/" + day.Format("2006") + "/" + monthFolder
	dateFolder := day.Format("02_01_2006")
	dateISO := day.Format("2006-01-02")

	if err := conn.ChangeDir(remoteDir); err != nil {
		// Days without publications have no folder.
		return 0
	}
	defer conn.ChangeDir("/")

	names, err := conn.NameList("")
	if err != nil {
		log.Printf("Error listing %s: %v", remoteDir, err)
		return 0
	}

	var archives []string
	for _, name := range names {
		if strings.HasSuffix(name, ".tar.gz") {
			archives = append(archives, name)
		}
	}
	log.Printf("Date %s: %d archive files", dateISO, len(archives))

	downloaded := 0
	for _, name := range archives {
		localPath := filepath.Join(d.cfg.ArchiveDir, day.Format("2006"), monthFolder, name)
		key := dateISO + "/" + name

		if _, err := os.Stat(localPath); err == nil {
			// Archive already present; make sure its XML files exist.
			if !d.corpusDayPopulated(dateFolder) {
				extracted, err := d.extractArchive(localPath, dateFolder)
				if err != nil {
					log.Printf("Error extracting %s: %v", localPath, err)
					continue
				}
				if _, ok := meta.Downloads[key]; !ok {
					meta.Downloads[key] = d.archiveRecord(localPath, dateISO, dateFolder, extracted)
				}
			}
			continue
		}

		if err := d.downloadArchive(conn, name, localPath); err != nil {
			log.Printf("Error downloading %s: %v", name, err)
			continue
		}
		downloaded++

		extracted, err := d.extractArchive(localPath, dateFolder)
		if err != nil {
			log.Printf("Error extracting %s: %v", localPath, err)
		}
		meta.Downloads[key] = d.archiveRecord(localPath, dateISO, dateFolder, extracted)
	}
	return downloaded
}

func (d *Downloader) archiveRecord(localPath, dateISO, dateFolder string, extracted int) ArchiveRecord {
	var size int64
	if fi, err := os.Stat(localPath); err == nil {
		size = fi.Size()
	}
	return ArchiveRecord{
		LocalPath:    localPath,
		DownloadTime: time.Now().Format(time.RFC3339),
		Date:         dateISO,
		Size:         size,
		XMLExtracted: extracted,
		XMLFolder:    filepath.Join(d.cfg.CorpusDir, dateFolder),
	}
}

func (d *Downloader) downloadArchive(conn *ftp.ServerConn, remoteName, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	resp, err := conn.Retr(remoteName)
	if err != nil {
		return err
	}
	defer resp.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp); err != nil {
		f.Close()
		os.Remove(localPath)
		return err
	}
	return f.Close()
}

func (d *Downloader) corpusDayPopulated(dateFolder string) bool {
	entries, err := os.ReadDir(filepath.Join(d.cfg.CorpusDir, dateFolder))
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			return true
		}
	}
	return false
}

// extractArchive unpacks the XML members of a tar.gz archive into the corpus
// folder for the given day, flattening any directory structure. Entries with
// path traversal components are rejected.
func (d *Downloader) extractArchive(tarPath, dateFolder string) (int, error) {
	destDir := filepath.Join(d.cfg.CorpusDir, dateFolder)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return 0, err
	}

	f, err := os.Open(tarPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return 0, err
	}
	defer gz.Close()

	extracted := 0
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return extracted, err
		}
		if header.Typeflag != tar.TypeReg || !strings.HasSuffix(header.Name, ".xml") {
			continue
		}
		if strings.Contains(header.Name, "..") || filepath.IsAbs(header.Name) {
			log.Printf("Skipping suspicious archive entry %q in %s", header.Name, tarPath)
			continue
		}

		dest := filepath.Join(destDir, filepath.Base(header.Name))
		out, err := os.Create(dest)
		if err != nil {
			return extracted, err
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			os.Remove(dest)
			return extracted, err
		}
		if err := out.Close(); err != nil {
			return extracted, err
		}
		extracted++
	}

	log.Printf("Extracted %d XML files from %s", extracted, filepath.Base(tarPath))
	return extracted, nil
}

// cleanupOld removes archives and their extracted XML folders once they fall
// outside the retention window. Returns the number of archives removed.
func (d *Downloader) cleanupOld(meta *Metadata, now time.Time) int {
	cutoff := now.AddDate(0, 0, -d.cfg.DaysToKeep)
	var removeKeys []string

	for key, rec := range meta.Downloads {
		downloadTime, err := time.Parse(time.RFC3339, rec.DownloadTime)
		if err != nil || !downloadTime.Before(cutoff) {
			continue
		}
		if rec.LocalPath != "" {
			if err := os.Remove(rec.LocalPath); err != nil && !os.IsNotExist(err) {
				log.Printf("Error removing %s: %v", rec.LocalPath, err)
			}
		}
		if rec.XMLFolder != "" {
			if err := os.RemoveAll(rec.XMLFolder); err != nil {
				log.Printf("Error removing %s: %v", rec.XMLFolder, err)
			}
		}
		removeKeys = append(removeKeys, key)
	}
	for _, key := range removeKeys {
		delete(meta.Downloads, key)
	}
	if len(removeKeys) > 0 {
		log.Printf("Removed %d archives older than %d days", len(removeKeys), d.cfg.DaysToKeep)
	}
	return len(removeKeys)
}

func (d *Downloader) loadMetadata() *Metadata {
	meta := &Metadata{Downloads: map[string]ArchiveRecord{}}
	data, err := os.ReadFile(d.metadataPath)
	if err != nil {
		return meta
	}
	if err := json.Unmarshal(data, meta); err != nil {
		log.Printf("Error reading metadata %s: %v", d.metadataPath, err)
		return &Metadata{Downloads: map[string]ArchiveRecord{}}
	}
	if meta.Downloads == nil {
		meta.Downloads = map[string]ArchiveRecord{}
	}
	return meta
}

func (d *Downloader) saveMetadata(meta *Metadata) error {
	if err := os.MkdirAll(filepath.Dir(d.metadataPath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(d.metadataPath, data, 0o644)
}

// Status reports the mirror state from the persisted metadata.
func (d *Downloader) Status() Status {
	meta := d.loadMetadata()
	status := Status{
		LastUpdate:  meta.LastUpdate,
		TotalFiles:  meta.TotalFiles,
		FilesByDate: map[string]int{},
	}
	for _, rec := range meta.Downloads {
		status.FilesByDate[rec.Date]++
	}
	return status
}

// HasMetadata reports whether a download pass has ever completed.
func (d *Downloader) HasMetadata() bool {
	_, err := os.Stat(d.metadataPath)
	return err == nil
}

// CountCorpusFiles counts the extracted XML documents per corpus day folder.
func CountCorpusFiles(corpusDir string) (int, map[string]int) {
	byDate := map[string]int{}
	total := 0
	entries, err := os.ReadDir(corpusDir)
	if err != nil {
		return 0, byDate
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		day, err := time.Parse("02_01_2006", entry.Name())
		if err != nil {
			continue
		}
		files, err := os.ReadDir(filepath.Join(corpusDir, entry.Name()))
		if err != nil {
			continue
		}
		count := 0
		for _, f := range files {
			if !f.IsDir() && strings.EqualFold(filepath.Ext(f.Name()), ".xml") {
				count++
			}
		}
		if count > 0 {
			byDate[day.Format("2006-01-02")] = count
			total += count
		}
	}
	return total, byDate
}
