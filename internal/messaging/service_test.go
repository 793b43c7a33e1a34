package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/messagely/messagely-server/internal/store/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	if _, err := st.CreateUser(ctx, "test1", "hash", "Test1", "Testy1", "+14155550000"); err != nil {
		t.Fatalf("failed to create test1: %v", err)
	}
	if _, err := st.CreateUser(ctx, "test2", "hash", "Test2", "Testy2", "+14155552222"); err != nil {
		t.Fatalf("failed to create test2: %v", err)
	}

	return New(st)
}

func TestSend_RejectsMissingFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := [][3]string{
		{"", "test2", "hello"},
		{"test1", "", "hello"},
		{"test1", "test2", ""},
	}
	for _, c := range cases {
		if _, err := svc.Send(ctx, c[0], c[1], c[2]); !errors.Is(err, ErrMissingFields) {
			t.Errorf("Send(%q, %q, %q): expected ErrMissingFields, got %v", c[0], c[1], c[2], err)
		}
	}
}

func TestSend_RejectsUnknownUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Send(ctx, "test1", "nobody", "hello"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestSend_CreatesMessage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	msg, err := svc.Send(ctx, "test1", "test2", "hello")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if msg.ID == 0 || msg.FromUsername != "test1" || msg.ToUsername != "test2" || msg.Body != "hello" {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.ReadAt != nil {
		t.Errorf("expected nil ReadAt, got %v", msg.ReadAt)
	}
}

func TestGet_AccessControl(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	msg, err := svc.Send(ctx, "test1", "test2", "hello")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// sender and recipient may read
	if _, err := svc.Get(ctx, "test1", msg.ID); err != nil {
		t.Errorf("sender read failed: %v", err)
	}
	if _, err := svc.Get(ctx, "test2", msg.ID); err != nil {
		t.Errorf("recipient read failed: %v", err)
	}

	// a third party may not
	if _, err := svc.Get(ctx, "intruder", msg.ID); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Get(context.Background(), "test1", 9999); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestMarkRead_OnlyRecipient(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	msg, err := svc.Send(ctx, "test1", "test2", "hello")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// sender may not mark their own sent message read
	if _, err := svc.MarkRead(ctx, "test1", msg.ID); !errors.Is(err, ErrNotRecipient) {
		t.Errorf("expected ErrNotRecipient for sender, got %v", err)
	}
	if _, err := svc.MarkRead(ctx, "intruder", msg.ID); !errors.Is(err, ErrNotRecipient) {
		t.Errorf("expected ErrNotRecipient for third party, got %v", err)
	}

	updated, err := svc.MarkRead(ctx, "test2", msg.ID)
	if err != nil {
		t.Fatalf("recipient MarkRead failed: %v", err)
	}
	if updated.ReadAt == nil {
		t.Fatalf("expected ReadAt set")
	}

	// idempotent in state: re-marking succeeds and keeps the message read
	again, err := svc.MarkRead(ctx, "test2", msg.ID)
	if err != nil {
		t.Fatalf("second MarkRead failed: %v", err)
	}
	if again.ReadAt.Before(*updated.ReadAt) {
		t.Errorf("second ReadAt %v is earlier than first %v", again.ReadAt, updated.ReadAt)
	}
}

func TestMarkRead_NotFound(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.MarkRead(context.Background(), "test2", 9999); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}
