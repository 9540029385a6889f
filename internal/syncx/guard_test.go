package syncx

import (
	"sync"
	"testing"
)

func TestPublishedStartsAtZero(t *testing.T) {
	p := NewPublished("Запуск")

	v, version := p.Load()
	if v != "Запуск" || version != 0 {
		t.Errorf("Load() = %q, %d; want Запуск, 0", v, version)
	}
}

func TestPublishBumpsVersion(t *testing.T) {
	p := NewPublished("hidden")

	if got := p.Publish("shown"); got != 1 {
		t.Errorf("first Publish() = %d, want 1", got)
	}
	// republishing the same value still counts
	if got := p.Publish("shown"); got != 2 {
		t.Errorf("second Publish() = %d, want 2", got)
	}

	v, version := p.Load()
	if v != "shown" || version != 2 {
		t.Errorf("Load() = %q, %d; want shown, 2", v, version)
	}
}

func TestPublishedLoadIsCopy(t *testing.T) {
	type snapshot struct{ label string }
	p := NewPublished(snapshot{label: "Привет"})

	got, _ := p.Load()
	got.label = "changed"

	if again, _ := p.Load(); again.label != "Привет" {
		t.Errorf("Load() after mutating a copy = %q, want Привет", again.label)
	}
}

func TestPublishedConcurrentSafety(t *testing.T) {
	p := NewPublished(0)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			p.Publish(n)
		}(i)
		go func() {
			defer wg.Done()
			_, _ = p.Load()
		}()
	}
	wg.Wait()

	if _, version := p.Load(); version != 100 {
		t.Errorf("version = %d, want 100", version)
	}
}
