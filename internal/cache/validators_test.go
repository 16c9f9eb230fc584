package cache

import "testing"

func TestValidatorsRecordAndGet(t *testing.T) {
	v := NewValidators(10)
	v.Record("https://example.com/", ValidatorRecord{ETag: `"abc"`})

	rec, ok := v.Get("https://example.com/")
	if !ok {
		t.Fatal("expected a recorded validator")
	}
	if rec.ETag != `"abc"` {
		t.Errorf("ETag = %q", rec.ETag)
	}
}

func TestValidatorsRecordNoopWhenBothEmpty(t *testing.T) {
	v := NewValidators(10)
	v.Record("https://example.com/", ValidatorRecord{})

	if _, ok := v.Get("https://example.com/"); ok {
		t.Error("expected no-op when neither ETag nor LastModified is set")
	}
}

func TestValidatorsEvictsLeastRecentlyUsed(t *testing.T) {
	v := NewValidators(2)
	v.Record("a", ValidatorRecord{ETag: "1"})
	v.Record("b", ValidatorRecord{ETag: "2"})
	v.Get("a") // touch a
	v.Record("c", ValidatorRecord{ETag: "3"})

	if _, ok := v.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := v.Get("a"); !ok {
		t.Error("expected a to survive since it was touched")
	}
}
