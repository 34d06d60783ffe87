package useragent

import "testing"

func TestPool_RoundRobin(t *testing.T) {
	agents := []string{"A/1.0", "B/2.0", "C/3.0"}
	pool := NewPool(agents)

	for i := 0; i < 6; i++ {
		got := pool.Next()
		want := agents[i%len(agents)]
		if got != want {
			t.Errorf("call %d: expected %q, got %q", i, want, got)
		}
	}
}

func TestPool_DefaultsWhenEmpty(t *testing.T) {
	pool := NewPool(nil)

	if len(pool.List()) == 0 {
		t.Fatalf("expected built-in default agents")
	}
	if pool.Next() == "" {
		t.Errorf("expected non-empty User-Agent")
	}
}

func TestPool_RandomIsMember(t *testing.T) {
	agents := []string{"A/1.0", "B/2.0"}
	pool := NewPool(agents)

	for i := 0; i < 10; i++ {
		got := pool.Random()
		if got != "A/1.0" && got != "B/2.0" {
			t.Errorf("random agent %q not in pool", got)
		}
	}
}

func TestPool_CopiesInput(t *testing.T) {
	agents := []string{"A/1.0"}
	pool := NewPool(agents)
	agents[0] = "mutated"

	if got := pool.Next(); got != "A/1.0" {
		t.Errorf("pool must copy its input, got %q", got)
	}
}
