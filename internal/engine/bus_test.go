package engine

import (
	"testing"
	"time"

	"github.com/divitsinghall/Vortex/internal/model"
)

func event(seq int, msg string) model.LogEvent {
	return model.LogEvent{
		Seq:       seq,
		Level:     model.LevelLog,
		Message:   msg,
		Timestamp: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMemoryBusSingleSubscriber(t *testing.T) {
	b := NewMemoryBus(time.Minute)
	b.Open("t1")

	ch, unsub := b.Subscribe("t1")
	defer unsub()

	want := []string{"a", "b", "c"}
	for i, m := range want {
		b.Publish("t1", event(i+1, m))
	}
	b.Close("t1")

	var got []string
	for ev := range ch {
		got = append(got, ev.Message)
	}

	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i, m := range got {
		if m != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, m, want[i])
		}
	}
}

func TestMemoryBusMultipleSubscribers(t *testing.T) {
	b := NewMemoryBus(time.Minute)
	b.Open("t1")

	ch1, unsub1 := b.Subscribe("t1")
	defer unsub1()
	ch2, unsub2 := b.Subscribe("t1")
	defer unsub2()

	b.Publish("t1", event(1, "hello"))
	b.Close("t1")

	for i, ch := range []<-chan model.LogEvent{ch1, ch2} {
		var got []string
		for ev := range ch {
			got = append(got, ev.Message)
		}
		if len(got) != 1 || got[0] != "hello" {
			t.Errorf("subscriber %d got %v, want [hello]", i+1, got)
		}
	}
}

func TestMemoryBusLateSubscriberMissesEarlierEvents(t *testing.T) {
	b := NewMemoryBus(time.Minute)
	b.Open("t1")

	ch1, unsub1 := b.Subscribe("t1")
	defer unsub1()

	b.Publish("t1", event(1, "early"))

	ch2, unsub2 := b.Subscribe("t1")
	defer unsub2()

	b.Publish("t1", event(2, "late"))
	b.Close("t1")

	var got1, got2 []string
	for ev := range ch1 {
		got1 = append(got1, ev.Message)
	}
	for ev := range ch2 {
		got2 = append(got2, ev.Message)
	}

	if len(got1) != 2 {
		t.Errorf("early subscriber got %v, want [early late]", got1)
	}
	if len(got2) != 1 || got2[0] != "late" {
		t.Errorf("late subscriber got %v, want [late]", got2)
	}
}

func TestMemoryBusSubscribeAfterCloseGetsEndOfStream(t *testing.T) {
	b := NewMemoryBus(time.Minute)
	b.Open("t1")
	b.Publish("t1", event(1, "gone"))
	b.Close("t1")

	ch, unsub := b.Subscribe("t1")
	defer unsub()

	if _, ok := <-ch; ok {
		t.Error("late subscriber should get a closed channel")
	}
}

func TestMemoryBusPublishWithNoSubscribersIsDropped(t *testing.T) {
	b := NewMemoryBus(time.Minute)
	b.Open("t1")
	// Must not block or panic.
	b.Publish("t1", event(1, "void"))
	b.Close("t1")
}

func TestMemoryBusPublishToClosedTopicIsDropped(t *testing.T) {
	b := NewMemoryBus(time.Minute)
	b.Open("t1")
	b.Close("t1")
	b.Publish("t1", event(1, "too late"))
}

func TestMemoryBusReopenAfterClose(t *testing.T) {
	b := NewMemoryBus(time.Minute)
	b.Open("t1")
	b.Close("t1")

	// A new execution under the same key reopens the topic.
	b.Open("t1")
	ch, unsub := b.Subscribe("t1")
	defer unsub()

	b.Publish("t1", event(1, "second run"))

	select {
	case ev := <-ch:
		if ev.Message != "second run" {
			t.Errorf("got %q, want second run", ev.Message)
		}
	case <-time.After(time.Second):
		t.Fatal("reopened topic did not deliver")
	}
}

func TestMemoryBusGraceSweep(t *testing.T) {
	b := NewMemoryBus(10 * time.Millisecond)
	b.Open("t1")
	b.Close("t1")

	// After the grace period the closed marker is swept; a fresh
	// subscriber then attaches to a live (unclosed) topic.
	time.Sleep(50 * time.Millisecond)

	b.mu.Lock()
	_, exists := b.topics["t1"]
	b.mu.Unlock()
	if exists {
		t.Error("closed marker should be swept after grace period")
	}
}

func TestMemoryBusUnsubscribeStopsDelivery(t *testing.T) {
	b := NewMemoryBus(time.Minute)
	b.Open("t1")

	ch, unsub := b.Subscribe("t1")
	unsub()

	b.Publish("t1", event(1, "after unsub"))

	select {
	case ev, ok := <-ch:
		if ok {
			t.Errorf("got unexpected event %q after unsubscribe", ev.Message)
		}
	default:
	}
}

func TestMemoryBusSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewMemoryBus(time.Minute)
	b.Open("t1")

	_, unsub := b.Subscribe("t1")
	defer unsub()

	// Publish far beyond the buffer without draining; publishers must not
	// block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBufferSize*3; i++ {
			b.Publish("t1", event(i+1, "flood"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}
}
