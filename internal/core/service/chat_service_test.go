package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearhelp/sos-engine/internal/core/domain"
)

func newChatFixture(t *testing.T) (*ChatService, *stubIncidentRepo, *recordingPublisher) {
	t.Helper()
	repo := newStubIncidentRepo()
	repo.incidents["inc-1"] = &domain.Incident{
		ID:          "inc-1",
		CrisisType:  domain.CrisisFire,
		TriggeredBy: "U",
		Status:      domain.StatusActive,
		CreatedAt:   time.Now(),
	}
	pub := &recordingPublisher{}
	return NewChatService(repo, repo, pub, time.Second, zerolog.Nop()), repo, pub
}

func TestChatService_Send_PersistsAndPublishes(t *testing.T) {
	svc, repo, pub := newChatFixture(t)

	msg, err := svc.Send(context.Background(), "inc-1", " Asha ", " bring a blanket ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !msg.Persisted || msg.ID == "" || msg.SenderName != "Asha" || msg.Text != "bring a blanket" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if got := repo.messages["inc-1"]; len(got) != 1 || got[0].ID != msg.ID {
		t.Fatalf("message not appended: %+v", got)
	}

	events := pub.named(domain.EventChatMessage)
	if len(events) != 1 || events[0].Room != domain.IncidentRoom("inc-1") {
		t.Fatalf("expected one chat-message to the incident room, got %+v", events)
	}
	if ev := events[0].Event.(domain.ChatMessage); ev.ID != msg.ID || ev.IncidentID != "inc-1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestChatService_Send_PublishesInLogOrder(t *testing.T) {
	svc, repo, pub := newChatFixture(t)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		if _, err := svc.Send(ctx, "inc-1", "V", text); err != nil {
			t.Fatal(err)
		}
	}

	logged := repo.messages["inc-1"]
	events := pub.named(domain.EventChatMessage)
	if len(logged) != 3 || len(events) != 3 {
		t.Fatalf("expected 3 logged and 3 published, got %d / %d", len(logged), len(events))
	}
	for i := range logged {
		if events[i].Event.(domain.ChatMessage).ID != logged[i].ID {
			t.Fatalf("publish order diverges from log order at %d", i)
		}
	}
}

func TestChatService_Send_StoreUnavailableStillDelivers(t *testing.T) {
	svc, repo, pub := newChatFixture(t)
	repo.findErr = domain.Unavailable("find incident", errors.New("no reachable servers"))

	msg, err := svc.Send(context.Background(), "inc-1", "V", "on my way")
	if err != nil {
		t.Fatalf("expected no error when the log store is down, got %v", err)
	}
	if msg.Persisted || msg.ID == "" {
		t.Fatalf("expected an unpersisted message with a local id, got %+v", msg)
	}
	if len(pub.named(domain.EventChatMessage)) != 1 {
		t.Fatal("message must still be delivered live")
	}
	if len(repo.messages["inc-1"]) != 0 {
		t.Fatal("nothing should have been appended")
	}
}

func TestChatService_Send_AppendFailureStillDelivers(t *testing.T) {
	svc, repo, pub := newChatFixture(t)
	repo.appendErr = domain.Unavailable("append message", errors.New("write concern timeout"))

	msg, err := svc.Send(context.Background(), "inc-1", "V", "on my way")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Persisted {
		t.Fatal("message must be flagged as not persisted")
	}
	if len(pub.named(domain.EventChatMessage)) != 1 {
		t.Fatal("message must still be delivered live")
	}
}

func TestChatService_Send_Rejections(t *testing.T) {
	svc, repo, pub := newChatFixture(t)
	repo.incidents["closed"] = &domain.Incident{ID: "closed", Status: domain.StatusResolved}
	ctx := context.Background()

	cases := []struct {
		name       string
		incidentID string
		sender     string
		text       string
		want       error
	}{
		{"empty text", "inc-1", "V", "   ", domain.ErrEmptyMessage},
		{"empty sender", "inc-1", "", "hi", domain.ErrEmptyMessage},
		{"too long", "inc-1", "V", strings.Repeat("a", 2001), domain.ErrInvalidInput},
		{"unknown incident", "missing", "V", "hi", domain.ErrNotFound},
		{"resolved incident", "closed", "V", "hi", domain.ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Send(ctx, tc.incidentID, tc.sender, tc.text); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if len(pub.snapshot()) != 0 {
		t.Fatal("rejected messages must not be published")
	}
}

func TestChatService_History(t *testing.T) {
	svc, _, _ := newChatFixture(t)
	ctx := context.Background()

	first, _ := svc.Send(ctx, "inc-1", "U", "first")
	second, _ := svc.Send(ctx, "inc-1", "V", "second")

	msgs, err := svc.History(ctx, "inc-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].ID != first.ID || msgs[1].ID != second.ID {
		t.Fatalf("unexpected history: %+v", msgs)
	}
	if msgs[0].IncidentID != "inc-1" || !msgs[0].Persisted {
		t.Fatalf("history entries must carry incident id and persisted flag: %+v", msgs[0])
	}

	if _, err := svc.History(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
