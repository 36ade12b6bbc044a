package backend

import (
	"context"
	"testing"
	"time"

	"github.com/b0bbywan/go-portal-test/events"
)

func TestBroadcaster_Subscribe_ReceivesAll(t *testing.T) {
	upstream := make(chan events.Event, 4)
	b := NewBroadcaster(context.Background(), upstream)

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	upstream <- events.Event{Type: events.TypeScreencastUpdated}
	upstream <- events.Event{Type: events.TypeUpdateAvailable}

	for _, want := range []string{events.TypeScreencastUpdated, events.TypeUpdateAvailable} {
		select {
		case got := <-ch:
			if got.Type != want {
				t.Errorf("got %s, want %s", got.Type, want)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("timed out waiting for event %s", want)
		}
	}
}

func TestBroadcaster_SubscribeFunc_FiltersEvents(t *testing.T) {
	upstream := make(chan events.Event, 4)
	b := NewBroadcaster(context.Background(), upstream)

	filter := func(e events.Event) bool { return e.Type == events.TypeScreencastUpdated }
	ch := b.SubscribeFunc(filter)
	defer b.Unsubscribe(ch)

	upstream <- events.Event{Type: events.TypeScreencastUpdated}
	upstream <- events.Event{Type: events.TypePortalFailed}

	select {
	case got := <-ch:
		if got.Type != events.TypeScreencastUpdated {
			t.Errorf("got %s, want %s", got.Type, events.TypeScreencastUpdated)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for screencast.updated event")
	}

	select {
	case got := <-ch:
		t.Errorf("unexpected event %s delivered through filter", got.Type)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestBroadcaster_UnsubscribeTwice(t *testing.T) {
	b := NewBroadcaster(context.Background(), make(chan events.Event))
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	b.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
}

func TestBackendBroadcaster_EmptyBackend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := &Backend{}
	broadcaster := b.NewBroadcaster(ctx)
	ch := broadcaster.Subscribe()
	defer broadcaster.Unsubscribe(ch)

	select {
	case got := <-ch:
		t.Errorf("unexpected event %s from empty backend", got.Type)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBackendBroadcaster_ExtraSources(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	extra := make(chan events.Event, 1)
	broadcaster := (&Backend{}).NewBroadcaster(ctx, extra)
	ch := broadcaster.Subscribe()
	defer broadcaster.Unsubscribe(ch)

	extra <- events.Event{Type: events.TypeWindowUpdated}
	select {
	case got := <-ch:
		if got.Type != events.TypeWindowUpdated {
			t.Errorf("got %s", got.Type)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("extra source not fanned in")
	}
}

func TestFanIn_ClosesWhenSourcesClose(t *testing.T) {
	a := make(chan events.Event)
	c := make(chan events.Event)
	merged := fanIn(context.Background(), a, nil, c)
	close(a)
	close(c)

	select {
	case _, ok := <-merged:
		if ok {
			t.Error("merged channel should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("merged channel not closed")
	}
}
