package db

import (
	"context"
	"testing"

	"github.com/onnwee/clip-tender/settings"
	"github.com/onnwee/clip-tender/testutil"
)

func TestMigrateIdempotent(t *testing.T) {
	database := testutil.SetupTestDB(t)
	for i := 0; i < 2; i++ {
		if err := Migrate(context.Background(), database); err != nil {
			t.Fatalf("migrate run %d: %v", i, err)
		}
	}
}

func TestSettingsStore(t *testing.T) {
	database := testutil.SetupTestDB(t)
	if err := Migrate(context.Background(), database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx := context.Background()
	if _, err := database.ExecContext(ctx, `DELETE FROM guild_settings WHERE guild_id LIKE 'test-%'`); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	store := &SettingsStore{DB: database}

	if _, ok, err := store.Get(ctx, "test-guild"); err != nil || ok {
		t.Fatalf("Get() on empty = %v, %v", ok, err)
	}
	if err := store.Put(ctx, "test-guild", settings.GuildSettings{ClipChannelID: "111"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(ctx, "test-guild", settings.GuildSettings{ClipChannelID: "222"}); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}
	got, ok, err := store.Get(ctx, "test-guild")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if got.ClipChannelID != "222" {
		t.Errorf("ClipChannelID = %q, want 222", got.ClipChannelID)
	}
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestConnectEmptyDSN(t *testing.T) {
	if _, err := Connect(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}
