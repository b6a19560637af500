package session_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tdnguyen/plantdoc/backend/internal/model/chat"
	"github.com/tdnguyen/plantdoc/backend/internal/service/session"
	"github.com/tdnguyen/plantdoc/backend/internal/storage"
)

const testKey = "plant_chat_session"

func newManager(t *testing.T) (*session.Manager, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore err: %v", err)
	}
	return session.NewManager(store, testKey), dir
}

func TestCurrentCreatesWhenEmpty(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	sess, err := mgr.Current(ctx)
	if err != nil {
		t.Fatalf("Current err: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected a session id")
	}
	if len(sess.Messages) != 0 {
		t.Fatalf("expected empty session, got %d messages", len(sess.Messages))
	}
	if sess.UpdatedAt < sess.CreatedAt {
		t.Fatal("updatedAt must not precede createdAt")
	}

	again, err := mgr.Current(ctx)
	if err != nil {
		t.Fatalf("Current err: %v", err)
	}
	if again.ID != sess.ID {
		t.Fatalf("Current must be stable: got %s want %s", again.ID, sess.ID)
	}
}

func TestCurrentRecoversFromCorruptStore(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore err: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, testKey+".json"), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	mgr := session.NewManager(store, testKey)
	sess, err := mgr.Current(context.Background())
	if err != nil {
		t.Fatalf("Current must recover from corrupt data, got err: %v", err)
	}
	if sess.ID == "" || len(sess.Messages) != 0 {
		t.Fatal("expected a fresh empty session")
	}
}

func TestAddMessagePersists(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	sess, err := mgr.Current(ctx)
	if err != nil {
		t.Fatalf("Current err: %v", err)
	}

	msg := chat.Message{ID: mgr.GenerateID(), Role: chat.RoleUser, Content: "cây bị héo", Timestamp: 1}
	if err := mgr.AddMessage(ctx, sess.ID, msg); err != nil {
		t.Fatalf("AddMessage err: %v", err)
	}

	reloaded, err := mgr.Current(ctx)
	if err != nil {
		t.Fatalf("Current err: %v", err)
	}
	if len(reloaded.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(reloaded.Messages))
	}
	if reloaded.Messages[0].ID != msg.ID || reloaded.Messages[0].Content != msg.Content {
		t.Fatal("stored message does not match appended message")
	}
}

func TestAddMessageSupersededSessionIsNoop(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	old, err := mgr.Current(ctx)
	if err != nil {
		t.Fatalf("Current err: %v", err)
	}
	if _, err := mgr.Create(ctx); err != nil {
		t.Fatalf("Create err: %v", err)
	}

	msg := chat.Message{ID: mgr.GenerateID(), Role: chat.RoleUser, Content: "late append"}
	if err := mgr.AddMessage(ctx, old.ID, msg); err != nil {
		t.Fatalf("AddMessage must no-op on a superseded session, got err: %v", err)
	}

	current, err := mgr.Current(ctx)
	if err != nil {
		t.Fatalf("Current err: %v", err)
	}
	if len(current.Messages) != 0 {
		t.Fatal("append against a superseded session leaked into the current one")
	}
}

func TestAddMessageConcurrentAppendsAllPersist(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	sess, err := mgr.Current(ctx)
	if err != nil {
		t.Fatalf("Current err: %v", err)
	}

	const appends = 50
	var wg sync.WaitGroup
	errs := make(chan error, appends)
	for i := 0; i < appends; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := chat.Message{
				ID:      mgr.GenerateID(),
				Role:    chat.RoleUser,
				Content: fmt.Sprintf("turn %d", i),
			}
			errs <- mgr.AddMessage(ctx, sess.ID, msg)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("AddMessage err: %v", err)
		}
	}

	reloaded, err := mgr.Current(ctx)
	if err != nil {
		t.Fatalf("Current err: %v", err)
	}
	if len(reloaded.Messages) != appends {
		t.Fatalf("lost updates: %d concurrent appends, %d persisted", appends, len(reloaded.Messages))
	}
	seen := make(map[string]bool, appends)
	for _, m := range reloaded.Messages {
		if seen[m.ID] {
			t.Fatalf("message %s persisted twice", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestUpdateMessageReplacesInPlace(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	sess, err := mgr.Current(ctx)
	if err != nil {
		t.Fatalf("Current err: %v", err)
	}

	first := chat.Message{ID: mgr.GenerateID(), Role: chat.RoleUser, Content: "first"}
	second := chat.Message{
		ID: mgr.GenerateID(), Role: chat.RoleSystem, Content: "Kết quả chẩn đoán: Bệnh rỉ sắt (Rust)",
		DiseaseInfo: &chat.Diagnosis{DiseaseName: "Bệnh rỉ sắt (Rust)"}, IsLocationRequest: true,
	}
	for _, m := range []chat.Message{first, second} {
		if err := mgr.AddMessage(ctx, sess.ID, m); err != nil {
			t.Fatalf("AddMessage err: %v", err)
		}
	}

	updated := second
	updated.WeatherInfo = &chat.Weather{Location: "Huế"}
	updated.IsLocationRequest = false
	if err := mgr.UpdateMessage(ctx, sess.ID, updated); err != nil {
		t.Fatalf("UpdateMessage err: %v", err)
	}

	reloaded, err := mgr.Current(ctx)
	if err != nil {
		t.Fatalf("Current err: %v", err)
	}
	if len(reloaded.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(reloaded.Messages))
	}
	if reloaded.Messages[0].Content != "first" {
		t.Fatal("unrelated message was touched")
	}
	got := reloaded.Messages[1]
	if got.IsLocationRequest {
		t.Fatal("location request flag must clear after weather attaches")
	}
	if got.WeatherInfo == nil || got.WeatherInfo.Location != "Huế" {
		t.Fatal("weather info missing after update")
	}
}

func TestUpdateMessageUnknownIDIsNoop(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	sess, err := mgr.Current(ctx)
	if err != nil {
		t.Fatalf("Current err: %v", err)
	}

	phantom := chat.Message{ID: "missing", Role: chat.RoleSystem, Content: "ghost"}
	if err := mgr.UpdateMessage(ctx, sess.ID, phantom); err != nil {
		t.Fatalf("UpdateMessage must no-op on an unknown id, got err: %v", err)
	}

	reloaded, err := mgr.Current(ctx)
	if err != nil {
		t.Fatalf("Current err: %v", err)
	}
	if len(reloaded.Messages) != 0 {
		t.Fatal("no-op update changed the message list")
	}
}

func TestCreateSupersedesCurrent(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	old, err := mgr.Current(ctx)
	if err != nil {
		t.Fatalf("Current err: %v", err)
	}

	fresh, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if fresh.ID == old.ID {
		t.Fatal("new session must carry a new id")
	}
	if len(fresh.Messages) != 0 {
		t.Fatal("new session must start empty")
	}

	current, err := mgr.Current(ctx)
	if err != nil {
		t.Fatalf("Current err: %v", err)
	}
	if current.ID != fresh.ID {
		t.Fatalf("Create must persist as current: got %s want %s", current.ID, fresh.ID)
	}
}
