package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLogRequestAndGet(t *testing.T) {
	store := newTestStorage(t)

	log := &RequestLog{
		RequestID:        "req-1",
		APIKeyID:         "key_abc",
		Model:            "dev-chat",
		Provider:         "dev",
		PromptTokens:     10,
		CompletionTokens: 20,
		TotalTokens:      30,
		IsStreaming:      true,
		StatusCode:       200,
		DurationMs:       1234,
	}
	if err := store.LogRequest(log); err != nil {
		t.Fatalf("LogRequest() error: %v", err)
	}
	if log.ID == "" {
		t.Error("LogRequest did not assign an ID")
	}

	logs, err := store.GetRequestLogs(LogFilter{})
	if err != nil {
		t.Fatalf("GetRequestLogs() error: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("got %d logs, want 1", len(logs))
	}
	got := logs[0]
	if got.RequestID != "req-1" || got.Model != "dev-chat" || got.Provider != "dev" {
		t.Errorf("log = %+v", got)
	}
	if !got.IsStreaming || got.TotalTokens != 30 {
		t.Errorf("log fields = streaming %v tokens %d", got.IsStreaming, got.TotalTokens)
	}
}

func TestGetRequestLogsFiltering(t *testing.T) {
	store := newTestStorage(t)

	ok := 200
	for i, entry := range []*RequestLog{
		{RequestID: "a", Model: "dev-chat", Provider: "dev", StatusCode: 200},
		{RequestID: "b", Model: "dev-chat", Provider: "dev", StatusCode: 502, ErrorMessage: "upstream"},
		{RequestID: "c", Model: "other", Provider: "dev", StatusCode: 200},
	} {
		entry.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		if err := store.LogRequest(entry); err != nil {
			t.Fatalf("LogRequest() error: %v", err)
		}
	}

	logs, err := store.GetRequestLogs(LogFilter{Model: "dev-chat", StatusCode: &ok})
	if err != nil {
		t.Fatalf("GetRequestLogs() error: %v", err)
	}
	if len(logs) != 1 || logs[0].RequestID != "a" {
		t.Errorf("filtered logs = %+v", logs)
	}

	logs, err = store.GetRequestLogs(LogFilter{Limit: 2})
	if err != nil {
		t.Fatalf("GetRequestLogs() error: %v", err)
	}
	if len(logs) != 2 {
		t.Errorf("limited logs = %d, want 2", len(logs))
	}
	// Newest first
	if logs[0].RequestID != "c" {
		t.Errorf("first log = %q, want newest", logs[0].RequestID)
	}
}

func TestDailyUsageUpsert(t *testing.T) {
	store := newTestStorage(t)

	usage := &DailyUsage{
		Date:             "2026-08-30",
		Model:            "dev-chat",
		RequestCount:     1,
		PromptTokens:     10,
		CompletionTokens: 5,
		TotalTokens:      15,
	}
	if err := store.UpdateDailyUsage(usage); err != nil {
		t.Fatalf("UpdateDailyUsage() error: %v", err)
	}
	// Second write accumulates into the same row
	usage.ErrorCount = 1
	if err := store.UpdateDailyUsage(usage); err != nil {
		t.Fatalf("UpdateDailyUsage() error: %v", err)
	}

	daily, err := store.GetDailyUsage("2026-08-01", "2026-08-31")
	if err != nil {
		t.Fatalf("GetDailyUsage() error: %v", err)
	}
	if len(daily) != 1 {
		t.Fatalf("got %d rows, want 1", len(daily))
	}
	if daily[0].RequestCount != 2 || daily[0].TotalTokens != 30 || daily[0].ErrorCount != 1 {
		t.Errorf("daily = %+v", daily[0])
	}
}

func TestGetUsageStats(t *testing.T) {
	store := newTestStorage(t)

	for _, u := range []*DailyUsage{
		{Date: "2026-08-29", Model: "dev-chat", RequestCount: 2, PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30},
		{Date: "2026-08-30", Model: "dev-chat", RequestCount: 1, PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10},
		{Date: "2026-08-30", Model: "other", RequestCount: 1, PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2, ErrorCount: 1},
	} {
		if err := store.UpdateDailyUsage(u); err != nil {
			t.Fatalf("UpdateDailyUsage() error: %v", err)
		}
	}

	stats, err := store.GetUsageStats(StatsFilter{})
	if err != nil {
		t.Fatalf("GetUsageStats() error: %v", err)
	}
	if stats.TotalRequests != 4 || stats.TotalTokens != 42 || stats.ErrorCount != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(stats.ModelBreakdown) != 2 {
		t.Fatalf("breakdown = %v", stats.ModelBreakdown)
	}
	if stats.ModelBreakdown["dev-chat"].RequestCount != 3 {
		t.Errorf("dev-chat requests = %d", stats.ModelBreakdown["dev-chat"].RequestCount)
	}

	filtered, err := store.GetUsageStats(StatsFilter{Model: "other"})
	if err != nil {
		t.Fatalf("GetUsageStats() error: %v", err)
	}
	if filtered.TotalRequests != 1 || filtered.ErrorCount != 1 {
		t.Errorf("filtered stats = %+v", filtered)
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	store := newTestStorage(t)

	raw, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey() error: %v", err)
	}
	hash, err := HashPassword(raw, DefaultArgon2Params())
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}

	key := &ClientAPIKey{
		Name:      "ci",
		KeyHash:   hash,
		KeyPrefix: ExtractKeyPrefix(raw),
		Scopes:    []string{"proxy"},
		IsActive:  true,
	}
	if err := store.CreateAPIKey(key); err != nil {
		t.Fatalf("CreateAPIKey() error: %v", err)
	}
	if key.ID == "" {
		t.Error("CreateAPIKey did not assign an ID")
	}

	got, err := store.GetAPIKey(key.ID)
	if err != nil {
		t.Fatalf("GetAPIKey() error: %v", err)
	}
	if got.Name != "ci" || !got.IsActive || got.KeyPrefix != key.KeyPrefix {
		t.Errorf("key = %+v", got)
	}
	if len(got.Scopes) != 1 || got.Scopes[0] != "proxy" {
		t.Errorf("scopes = %v", got.Scopes)
	}

	byPrefix, err := store.GetAPIKeyByPrefix(key.KeyPrefix)
	if err != nil {
		t.Fatalf("GetAPIKeyByPrefix() error: %v", err)
	}
	if len(byPrefix) != 1 || byPrefix[0].ID != key.ID {
		t.Errorf("byPrefix = %+v", byPrefix)
	}

	if err := store.UpdateAPIKeyLastUsed(key.ID); err != nil {
		t.Fatalf("UpdateAPIKeyLastUsed() error: %v", err)
	}
	got, _ = store.GetAPIKey(key.ID)
	if got.LastUsedAt == nil {
		t.Error("last_used_at not set")
	}

	got.IsActive = false
	if err := store.UpdateAPIKey(got); err != nil {
		t.Fatalf("UpdateAPIKey() error: %v", err)
	}
	got, _ = store.GetAPIKey(key.ID)
	if got.IsActive {
		t.Error("key still active after update")
	}

	if err := store.DeleteAPIKey(key.ID); err != nil {
		t.Fatalf("DeleteAPIKey() error: %v", err)
	}
	if _, err := store.GetAPIKey(key.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAPIKey after delete = %v, want ErrNotFound", err)
	}
}

func TestCreateAPIKeyDuplicatePrefix(t *testing.T) {
	store := newTestStorage(t)

	key := &ClientAPIKey{Name: "a", KeyHash: "h", KeyPrefix: "dg_same1234", IsActive: true}
	if err := store.CreateAPIKey(key); err != nil {
		t.Fatalf("CreateAPIKey() error: %v", err)
	}
	dup := &ClientAPIKey{Name: "b", KeyHash: "h2", KeyPrefix: "dg_same1234", IsActive: true}
	if err := store.CreateAPIKey(dup); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("duplicate create = %v, want ErrDuplicateKey", err)
	}
}

func TestAdminPassword(t *testing.T) {
	store := newTestStorage(t)

	has, err := store.HasAdminPassword()
	if err != nil {
		t.Fatalf("HasAdminPassword() error: %v", err)
	}
	if has {
		t.Error("fresh database reports an admin password")
	}

	if err := store.SetAdminPasswordHash("hash-1"); err != nil {
		t.Fatalf("SetAdminPasswordHash() error: %v", err)
	}
	hash, err := store.GetAdminPasswordHash()
	if err != nil {
		t.Fatalf("GetAdminPasswordHash() error: %v", err)
	}
	if hash != "hash-1" {
		t.Errorf("hash = %q", hash)
	}

	// Overwrite on change
	if err := store.SetAdminPasswordHash("hash-2"); err != nil {
		t.Fatalf("SetAdminPasswordHash() error: %v", err)
	}
	hash, _ = store.GetAdminPasswordHash()
	if hash != "hash-2" {
		t.Errorf("hash after update = %q", hash)
	}
}

func TestClosedStorage(t *testing.T) {
	store := newTestStorage(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	if err := store.LogRequest(&RequestLog{Model: "m", Provider: "p"}); !errors.Is(err, ErrStorageClosed) {
		t.Errorf("LogRequest after close = %v", err)
	}
	if _, err := store.ListAPIKeys(); !errors.Is(err, ErrStorageClosed) {
		t.Errorf("ListAPIKeys after close = %v", err)
	}
	// Double close is a no-op
	if err := store.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}
