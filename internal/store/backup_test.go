package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/devdiary/internal/model"
)

func TestBackupLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	bs := NewBackupStore(db)

	b, err := bs.Create(ctx, "diary-1.db.enc", "backups/diary-1.db.enc")
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if b.Status != model.BackupStatusPending {
		t.Errorf("status = %q, want pending", b.Status)
	}
	if b.StartedAt == nil {
		t.Error("expected started_at")
	}

	if err := bs.UpdateStatus(ctx, b.ID, model.BackupStatusFailed, "boom"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ := bs.GetByID(ctx, b.ID)
	if got.Status != model.BackupStatusFailed || got.ErrorMessage != "boom" {
		t.Errorf("backup = %+v", got)
	}

	if err := bs.UpdateCompleted(ctx, b.ID, 2048); err != nil {
		t.Fatalf("update completed: %v", err)
	}
	got, _ = bs.GetByID(ctx, b.ID)
	if got.Status != model.BackupStatusCompleted || got.SizeBytes != 2048 || got.CompletedAt == nil {
		t.Errorf("backup = %+v", got)
	}
}

func TestBackupDeleteOlderThan(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	bs := NewBackupStore(db)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bs.now = func() time.Time { return base }
	bs.Create(ctx, "old.db.enc", "backups/old.db.enc")
	bs.now = func() time.Time { return base.AddDate(0, 0, 40) }
	bs.Create(ctx, "new.db.enc", "backups/new.db.enc")

	keys, err := bs.DeleteOlderThan(ctx, base.AddDate(0, 0, 10))
	if err != nil {
		t.Fatalf("delete older: %v", err)
	}
	if len(keys) != 1 || keys[0] != "backups/old.db.enc" {
		t.Errorf("keys = %v", keys)
	}

	remaining, err := bs.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Filename != "new.db.enc" {
		t.Errorf("remaining = %+v", remaining)
	}
}
