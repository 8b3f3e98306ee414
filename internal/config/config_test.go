package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if cfg != def {
		t.Fatalf("expected defaults %+v, got %+v", def, cfg)
	}
	if cfg.Storage.Backend != BackendSQLite || cfg.Web.Addr != ":8080" || cfg.KV.Addr != ":8078" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := Default()
	want.Storage = Storage{Backend: BackendCSV, Path: "/tmp/tasks.csv", KVURL: "http://kv:8078"}
	want.Web.Addr = ":9090"

	if err := Save(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "backend: csv") {
		t.Fatalf("expected yaml output, got:\n%s", data)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  backend: memory\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Web.Addr != ":8080" {
		t.Fatalf("expected default web addr, got %q", cfg.Web.Addr)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TASKTRACKER_STORAGE_BACKEND", "postgres")
	t.Setenv("TASKTRACKER_STORAGE_DSN", "postgres://localhost/tasks")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != BackendPostgres || cfg.Storage.DSN != "postgres://localhost/tasks" {
		t.Fatalf("expected env override, got %+v", cfg.Storage)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		storage Storage
		wantErr bool
	}{
		{name: "memory", storage: Storage{Backend: BackendMemory}},
		{name: "sqlite", storage: Storage{Backend: BackendSQLite, Path: "tasks.db"}},
		{name: "sqlite without path", storage: Storage{Backend: BackendSQLite}, wantErr: true},
		{name: "csv without path", storage: Storage{Backend: BackendCSV}, wantErr: true},
		{name: "postgres without dsn", storage: Storage{Backend: BackendPostgres}, wantErr: true},
		{name: "kv without url", storage: Storage{Backend: BackendKV}, wantErr: true},
		{name: "kv", storage: Storage{Backend: BackendKV, KVURL: "http://localhost:8078"}},
		{name: "unknown", storage: Storage{Backend: "redis"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Config{Storage: tc.storage}.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
		})
	}
}
