package stream

import (
	"context"
	"testing"
	"time"
)

func TestPublishReachesOnlyOwner(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mine := s.Subscribe(ctx, "owner-1")
	theirs := s.Subscribe(ctx, "owner-2")

	s.Publish(PostingEvent{Owner: "owner-1", TransactionID: "tx-1", Entries: 2})

	select {
	case evt := <-mine:
		if evt.TransactionID != "tx-1" || evt.Timestamp.IsZero() {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
	select {
	case evt := <-theirs:
		t.Fatalf("foreign owner received %+v", evt)
	default:
	}
}

func TestSubscriptionClosesWithContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx, "owner-1")
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	if n := s.Subscribers(); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
}

func TestPublishDropsForSlowSubscriber(t *testing.T) {
	var hooked int
	s := New(WithDropHook(func() { hooked++ }))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := s.Subscribe(ctx, "owner-1")
	for i := 0; i < 100; i++ {
		s.Publish(PostingEvent{Owner: "owner-1"})
	}
	if len(ch) != cap(ch) {
		t.Fatalf("expected full buffer, got %d/%d", len(ch), cap(ch))
	}
	want := uint64(100 - cap(ch))
	if got := s.Dropped(); got != want || hooked != int(want) {
		t.Fatalf("dropped=%d hook=%d, want %d", got, hooked, want)
	}
}
