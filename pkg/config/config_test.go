package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/journalkeeper-go/journal/internal/logx"
)

func TestLoadDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Load(fs, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FileDataSize != 128*1024*1024 {
		t.Errorf("FileDataSize = %d; want default 128MiB", cfg.FileDataSize)
	}
	if cfg.CachedFileMaxCount != 2 {
		t.Errorf("CachedFileMaxCount = %d; want default 2", cfg.CachedFileMaxCount)
	}
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Load(fs, []string{"-store-path", "/tmp/journal-data", "-log-level", "debug"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StorePath != "/tmp/journal-data" {
		t.Errorf("StorePath = %q; want /tmp/journal-data", cfg.StorePath)
	}
	if cfg.LogLevel != logx.LogLevelDebug {
		t.Errorf("LogLevel = %v; want debug", cfg.LogLevel)
	}
}

func TestLoadYAMLFileThenFlagOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := "store_path: /var/lib/journal\nfile_data_size: 4096\n"
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Load(fs, []string{"-config", path, "-store-path", "/override/path"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FileDataSize != 4096 {
		t.Errorf("FileDataSize = %d; want 4096 from YAML", cfg.FileDataSize)
	}
	if cfg.StorePath != "/override/path" {
		t.Errorf("StorePath = %q; want flag override /override/path", cfg.StorePath)
	}
}

func TestPropertiesMatchesJournalKeys(t *testing.T) {
	cfg := Default()
	props := cfg.Properties()

	want := []string{"file_header_size", "file_data_size", "cached_file_core_count", "cached_file_max_count", "max_dirty_size"}
	for _, k := range want {
		if _, ok := props[k]; !ok {
			t.Errorf("Properties() missing key %q", k)
		}
	}
}
