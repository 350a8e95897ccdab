package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubEngine is a scripted Engine for chain tests.
type stubEngine struct {
	name  string
	html  string
	err   error
	calls int
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &FetchResult{HTML: s.html, EngineName: s.name, FinalURL: req.URL}, nil
}

func TestChain_FirstEngineWins(t *testing.T) {
	fast := &stubEngine{name: "http", html: "<html>listings</html>"}
	slow := &stubEngine{name: "rod", html: "<html>rendered</html>"}
	c := NewChain("bunjang", []Engine{fast, slow}, nil)

	result, err := c.Fetch(context.Background(), &FetchRequest{URL: "https://example.com"}, nil)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.EngineName != "http" {
		t.Errorf("engine = %q, want http", result.EngineName)
	}
	if slow.calls != 0 {
		t.Errorf("fallback engine ran %d times, want 0", slow.calls)
	}
}

func TestChain_FallsBackOnError(t *testing.T) {
	fast := &stubEngine{name: "http", err: errors.New("blocked")}
	slow := &stubEngine{name: "rod", html: "<html>rendered</html>"}
	c := NewChain("bunjang", []Engine{fast, slow}, nil)

	result, err := c.Fetch(context.Background(), &FetchRequest{URL: "https://example.com"}, nil)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.EngineName != "rod" {
		t.Errorf("engine = %q, want rod", result.EngineName)
	}
	if fast.calls != 1 || slow.calls != 1 {
		t.Errorf("calls = (%d, %d), want (1, 1)", fast.calls, slow.calls)
	}
}

func TestChain_FallsBackOnUnusableOutput(t *testing.T) {
	fast := &stubEngine{name: "http", html: "<html>empty spa shell</html>"}
	slow := &stubEngine{name: "rod", html: "<html>rendered listings</html>"}
	c := NewChain("danggeun", []Engine{fast, slow}, nil)

	usable := func(r *FetchResult) bool { return r.EngineName == "rod" }

	result, err := c.Fetch(context.Background(), &FetchRequest{URL: "https://example.com"}, usable)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.EngineName != "rod" {
		t.Errorf("engine = %q, want rod after unusable fast-fetch", result.EngineName)
	}
}

func TestChain_AllEnginesFail(t *testing.T) {
	wantErr := errors.New("rendering failed too")
	c := NewChain("joonggonara", []Engine{
		&stubEngine{name: "http", err: errors.New("blocked")},
		&stubEngine{name: "rod", err: wantErr},
	}, nil)

	_, err := c.Fetch(context.Background(), &FetchRequest{URL: "https://example.com"}, nil)
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want last engine's error", err)
	}
}

func TestChain_RemembersWorkingEngine(t *testing.T) {
	memory := NewMemory(time.Minute)
	defer memory.Stop()

	fast := &stubEngine{name: "http", err: errors.New("blocked")}
	slow := &stubEngine{name: "rod", html: "<html>rendered</html>"}
	c := NewChain("bunjang", []Engine{fast, slow}, memory)

	if _, err := c.Fetch(context.Background(), &FetchRequest{URL: "https://example.com"}, nil); err != nil {
		t.Fatalf("first Fetch failed: %v", err)
	}

	// The second fetch should go straight to the remembered engine.
	if _, err := c.Fetch(context.Background(), &FetchRequest{URL: "https://example.com"}, nil); err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if fast.calls != 1 {
		t.Errorf("fast engine ran %d times, want 1 (remembered engine should jump the queue)", fast.calls)
	}
	if slow.calls != 2 {
		t.Errorf("remembered engine ran %d times, want 2", slow.calls)
	}
}

func TestChain_ForgetsBrokenMemory(t *testing.T) {
	memory := NewMemory(time.Minute)
	defer memory.Stop()
	memory.Set("bunjang", "rod")

	fast := &stubEngine{name: "http", html: "<html>listings</html>"}
	slow := &stubEngine{name: "rod", err: errors.New("browser gone")}
	c := NewChain("bunjang", []Engine{fast, slow}, memory)

	result, err := c.Fetch(context.Background(), &FetchRequest{URL: "https://example.com"}, nil)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.EngineName != "http" {
		t.Errorf("engine = %q, want http after remembered engine broke", result.EngineName)
	}
	if got := memory.Get("bunjang"); got != "http" {
		t.Errorf("memory = %q, want http", got)
	}
	if slow.calls != 1 {
		t.Errorf("broken remembered engine retried %d times, want 1", slow.calls)
	}
}

func TestChain_StopsWhenBudgetExhausted(t *testing.T) {
	fast := &stubEngine{name: "http", err: errors.New("blocked")}
	slow := &stubEngine{name: "rod", html: "<html>rendered</html>"}
	c := NewChain("bunjang", []Engine{fast, slow}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Fetch(ctx, &FetchRequest{URL: "https://example.com"}, nil); err == nil {
		t.Fatal("expired context should abort the chain")
	}
	if slow.calls != 0 {
		t.Errorf("engine ran %d times after budget exhaustion, want 0", slow.calls)
	}
}

func TestMemory_Expiry(t *testing.T) {
	memory := NewMemory(40 * time.Millisecond)
	defer memory.Stop()

	memory.Set("bunjang", "rod")
	if got := memory.Get("bunjang"); got != "rod" {
		t.Fatalf("fresh entry = %q, want rod", got)
	}

	time.Sleep(80 * time.Millisecond)
	if got := memory.Get("bunjang"); got != "" {
		t.Errorf("expired entry = %q, want empty", got)
	}
}
