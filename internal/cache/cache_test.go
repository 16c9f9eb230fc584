package cache

import (
	"errors"
	"testing"
	"time"
)

func TestSetThenGetRoundTrips(t *testing.T) {
	c := New(10, time.Hour, 0, 0, nil)
	c.Set("k1", []byte("hello"))

	e, ok := c.Get("k1")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if string(e.Bytes) != "hello" {
		t.Errorf("Bytes = %q", e.Bytes)
	}
}

func TestGetMissOnUnknownKey(t *testing.T) {
	c := New(10, time.Hour, 0, 0, nil)
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss on an unset key")
	}
}

func TestL1TTLExpiresEntries(t *testing.T) {
	c := New(10, time.Millisecond, 0, 0, nil)
	c.Set("k1", []byte("hello"))
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("k1"); ok {
		t.Error("expected entry to have expired past its TTL")
	}
}

func TestEvictsLeastRecentlyUsedOnceFull(t *testing.T) {
	c := New(2, time.Hour, 0, 0, nil)
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Get("a") // touch a, making b the LRU entry
	c.Set("c", []byte("3"))

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted as the least recently used entry")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive eviction since it was touched")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected the newly set entry to be present")
	}
}

type fakeL2 struct {
	data map[string][]byte
	err  error
}

func newFakeL2() *fakeL2 { return &fakeL2{data: make(map[string][]byte)} }

func (f *fakeL2) Get(key string) ([]byte, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeL2) Set(key string, value []byte, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.data[key] = value
	return nil
}

func TestGetAsyncFallsBackToL2AndRepopulatesL1(t *testing.T) {
	l2 := newFakeL2()
	l2.data["webpeel:response:k1"] = []byte("from-l2")

	c := New(10, time.Hour, time.Hour, time.Second, l2)
	e, ok := c.GetAsync("k1")
	if !ok {
		t.Fatal("expected an L2 hit")
	}
	if string(e.Bytes) != "from-l2" {
		t.Errorf("Bytes = %q", e.Bytes)
	}
	if _, ok := c.Get("k1"); !ok {
		t.Error("expected the L2 hit to repopulate L1")
	}
}

func TestGetAsyncL2ErrorEntersCooldownWithoutFailing(t *testing.T) {
	l2 := newFakeL2()
	l2.err = errors.New("connection refused")

	c := New(10, time.Hour, time.Hour, time.Minute, l2)
	if _, ok := c.GetAsync("k1"); ok {
		t.Fatal("expected a miss when the L2 backend errors")
	}
	// A second call within the cooldown window should skip L2 entirely
	// rather than erroring again; Len staying at zero confirms no L1
	// entry was spuriously created either way.
	if _, ok := c.GetAsync("k1"); ok {
		t.Fatal("expected a miss while L2 is in cooldown")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}
