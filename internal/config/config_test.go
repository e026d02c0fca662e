package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Addr() != ":8080" {
		t.Errorf("addr = %q, want :8080", c.Addr())
	}
	if c.Database.Path != "devdiary.db" {
		t.Errorf("database.path = %q", c.Database.Path)
	}
	if c.Upload.Dir != "public/uploads" || c.Upload.URLPrefix != "/uploads" {
		t.Errorf("upload = %+v", c.Upload)
	}
	if c.Auth.TokenTTL != 720*time.Hour {
		t.Errorf("auth.token_ttl = %v", c.Auth.TokenTTL)
	}
	if c.Backup.Interval != 24*time.Hour || c.Backup.RetentionDays != 30 {
		t.Errorf("backup = %+v", c.Backup)
	}
	if c.Backup.Enabled() || c.Upload.S3.Enabled() {
		t.Error("S3 should be disabled without credentials")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DEVDIARY_SERVER_PORT", "9090")
	t.Setenv("DEVDIARY_AUTH_PASSWORD", "hunter2")
	t.Setenv("DEVDIARY_AUTH_ENFORCE_API", "true")
	t.Setenv("DEVDIARY_BACKUP_INTERVAL", "6h")
	t.Setenv("DEVDIARY_UPLOAD_S3_BUCKET", "media")

	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != "9090" {
		t.Errorf("server.port = %q", c.Server.Port)
	}
	if c.Auth.Password != "hunter2" || !c.Auth.EnforceAPI {
		t.Errorf("auth = %+v", c.Auth)
	}
	if c.Backup.Interval != 6*time.Hour {
		t.Errorf("backup.interval = %v", c.Backup.Interval)
	}
	if c.Upload.S3.Bucket != "media" {
		t.Errorf("upload.s3.bucket = %q", c.Upload.S3.Bucket)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "diary.yaml")
	yaml := `server:
  port: "3000"
database:
  path: /var/lib/devdiary/diary.db
log:
  format: json
backup:
  passphrase: secret
  retention_days: 7
  s3:
    bucket: backups
    access_key: k
    secret_key: s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != "3000" || c.Log.Format != "json" {
		t.Errorf("config = %+v", c)
	}
	if c.Database.Path != "/var/lib/devdiary/diary.db" {
		t.Errorf("database.path = %q", c.Database.Path)
	}
	if !c.Backup.Enabled() || c.Backup.RetentionDays != 7 {
		t.Errorf("backup = %+v", c.Backup)
	}
	if c.Log.Level != "info" {
		t.Errorf("log.level default lost: %q", c.Log.Level)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadRejectsNegativeRetention(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DEVDIARY_BACKUP_RETENTION_DAYS", "-1")
	if _, err := Load(""); err == nil {
		t.Error("expected validation error")
	}
}
