package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_EmbeddedDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CorpusDir != "EIS-XML-Files" {
		t.Errorf("corpus dir = %q", cfg.CorpusDir)
	}
	if cfg.BatchSize != 50 {
		t.Errorf("batch size = %d", cfg.BatchSize)
	}
	if cfg.FTP.Host != "open.iub.gov.lv" {
		t.Errorf("ftp host = %q", cfg.FTP.Host)
	}
	if cfg.FTP.RunAt != "05:00" {
		t.Errorf("run at = %q", cfg.FTP.RunAt)
	}
	if len(cfg.SuggestedKeywords) == 0 {
		t.Error("expected suggested keywords")
	}
	if len(cfg.CommonCPVCodes) == 0 {
		t.Error("expected common CPV codes")
	}
}

func TestLoad_FileOverridesAndExpandsEnv(t *testing.T) {
	t.Setenv("TEST_CORPUS_DIR", "/data/corpus")
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "corpus_dir: ${TEST_CORPUS_DIR}\nbatch_size: 10\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CorpusDir != "/data/corpus" {
		t.Errorf("corpus dir = %q", cfg.CorpusDir)
	}
	if cfg.BatchSize != 10 {
		t.Errorf("batch size = %d", cfg.BatchSize)
	}
	// Unset fields fall back to defaults.
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
}

func TestLoad_MissingOverrideFileFallsBack(t *testing.T) {
	cfg, err := Load("/nonexistent/config.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CorpusDir != "EIS-XML-Files" {
		t.Errorf("corpus dir = %q", cfg.CorpusDir)
	}
}
