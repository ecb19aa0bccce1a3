//go:build integration

package hermes

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_PublishScamDetected(t *testing.T) {
	natsURL := skipWithoutNATS(t)

	client, err := NewClient(context.Background(), natsURL, os.Getenv("NATS_TOKEN"), slog.Default())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	received := make(chan ScamDetectedEvent, 1)
	err = client.Subscribe(SubjectAll, func(subject string, data []byte) {
		if subject != SubjectScamDetected {
			return
		}
		var ev ScamDetectedEvent
		if json.Unmarshal(data, &ev) == nil {
			received <- ev
		}
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	// Give subscription time to propagate
	time.Sleep(100 * time.Millisecond)

	err = client.Publish(SubjectScamDetected, ScamDetectedEvent{SessionID: "integration", ScamScore: 9})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := client.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	select {
	case ev := <-received:
		if ev.SessionID != "integration" || ev.ScamScore != 9 {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}
