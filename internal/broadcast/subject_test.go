package broadcast

import "testing"

func TestSubscribeReceivesCurrentValue(t *testing.T) {
	s := NewSubject(1)
	ch, cancel := s.Subscribe()
	defer cancel()

	if v := <-ch; v != 1 {
		t.Fatalf("initial value = %d, want 1", v)
	}

	s.Publish(2)
	if v := <-ch; v != 2 {
		t.Fatalf("published value = %d, want 2", v)
	}
}

func TestSlowSubscriberSeesLatest(t *testing.T) {
	s := NewSubject("a")
	ch, cancel := s.Subscribe()
	defer cancel()

	s.Publish("b")
	s.Publish("c")
	s.Publish("d")

	if v := <-ch; v != "d" {
		t.Fatalf("got %q, want latest value d", v)
	}
	if s.Value() != "d" {
		t.Fatalf("Value() = %q", s.Value())
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s := NewSubject(0)
	ch, cancel := s.Subscribe()
	<-ch
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after unsubscribe")
	}
	s.Publish(1)
}

func TestCloseEndsAllSubscriptions(t *testing.T) {
	s := NewSubject(0)
	a, cancelA := s.Subscribe()
	b, _ := s.Subscribe()
	<-a
	<-b

	s.Close()
	cancelA()

	if _, ok := <-a; ok {
		t.Fatal("subscriber a still open")
	}
	if _, ok := <-b; ok {
		t.Fatal("subscriber b still open")
	}

	late, _ := s.Subscribe()
	if _, ok := <-late; ok {
		t.Fatal("subscription after Close must be closed")
	}
}
