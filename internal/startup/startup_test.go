package startup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequiredDirs(t *testing.T) (string, string) {
	t.Helper()
	libDir := t.TempDir()
	dbDir := t.TempDir()
	t.Setenv("LIBRARY_DIR", libDir)
	t.Setenv("DATABASE_DIR", dbDir)
	return libDir, dbDir
}

func TestLoadConfigDefaults(t *testing.T) {
	_, dbDir := setRequiredDirs(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.SyncInterval != 30*time.Minute {
		t.Errorf("SyncInterval = %v, want 30m", cfg.SyncInterval)
	}
	if !cfg.WatchEnabled || !cfg.MetricsEnabled {
		t.Errorf("watch/metrics defaults = %v/%v, want true/true", cfg.WatchEnabled, cfg.MetricsEnabled)
	}

	wantRoots := []string{"Documents", "PROC", "Books", "Papers", "Slides"}
	if len(cfg.Roots) != len(wantRoots) {
		t.Fatalf("Roots = %v, want %v", cfg.Roots, wantRoots)
	}
	for i := range wantRoots {
		if cfg.Roots[i] != wantRoots[i] {
			t.Errorf("Roots[%d] = %q, want %q", i, cfg.Roots[i], wantRoots[i])
		}
	}

	if cfg.SummaryDBPath != filepath.Join(dbDir, "book-list.sqlite") {
		t.Errorf("SummaryDBPath = %q", cfg.SummaryDBPath)
	}
	if cfg.SyncDBPath != filepath.Join(dbDir, "documents.sqlite") {
		t.Errorf("SyncDBPath = %q", cfg.SyncDBPath)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	setRequiredDirs(t)
	t.Setenv("LIBRARY_ROOTS", "A, B ,,C")
	t.Setenv("SYNC_INTERVAL", "5m")
	t.Setenv("WATCH_ENABLED", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	want := []string{"A", "B", "C"}
	if len(cfg.Roots) != len(want) {
		t.Fatalf("Roots = %v, want %v", cfg.Roots, want)
	}
	for i := range want {
		if cfg.Roots[i] != want[i] {
			t.Errorf("Roots[%d] = %q, want %q", i, cfg.Roots[i], want[i])
		}
	}
	if cfg.SyncInterval != 5*time.Minute {
		t.Errorf("SyncInterval = %v, want 5m", cfg.SyncInterval)
	}
	if cfg.WatchEnabled {
		t.Error("WATCH_ENABLED=false not honored")
	}
}

func TestLoadConfigInvalidInterval(t *testing.T) {
	setRequiredDirs(t)
	t.Setenv("SYNC_INTERVAL", "not-a-duration")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.SyncInterval != 30*time.Minute {
		t.Errorf("SyncInterval = %v, want default 30m", cfg.SyncInterval)
	}
}

func TestLoadConfigYAMLFile(t *testing.T) {
	libDir, _ := setRequiredDirs(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "roots: X,Y\nsync_interval: 10m\nwatch_enabled: false\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("LIBRARY_CONFIG", configPath)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(cfg.Roots) != 2 || cfg.Roots[0] != "X" || cfg.Roots[1] != "Y" {
		t.Errorf("Roots = %v, want [X Y]", cfg.Roots)
	}
	if cfg.SyncInterval != 10*time.Minute {
		t.Errorf("SyncInterval = %v, want 10m", cfg.SyncInterval)
	}
	if cfg.WatchEnabled {
		t.Error("watch_enabled: false from file not honored")
	}
	if cfg.LibraryDir != libDir {
		t.Errorf("env LIBRARY_DIR should win over file default, got %q", cfg.LibraryDir)
	}
}

func TestLoadConfigEnvBeatsFile(t *testing.T) {
	setRequiredDirs(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("sync_interval: 10m\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("LIBRARY_CONFIG", configPath)
	t.Setenv("SYNC_INTERVAL", "1m")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.SyncInterval != time.Minute {
		t.Errorf("SyncInterval = %v, want env's 1m", cfg.SyncInterval)
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	setRequiredDirs(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(":\n  - ["), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("LIBRARY_CONFIG", configPath)

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestSplitRoots(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Documents,Books", []string{"Documents", "Books"}},
		{" a , b ", []string{"a", "b"}},
		{",,", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := splitRoots(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitRoots(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("splitRoots(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/books", "api/books"},
		{"/api/sync/cleanup", "api/sync"},
		{"/healthz", "healthz"},
		{"/", ""},
	}
	for _, tt := range tests {
		if got := getRouteGroup(tt.path); got != tt.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
