package fetch

import (
	"strings"
	"testing"
	"time"
)

func TestNormalizeActionsClick(t *testing.T) {
	out, err := NormalizeActions([]RawAction{{Type: "click", Selector: "#submit"}}, "req-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Type != ActionClick || out[0].Selector != "#submit" {
		t.Errorf("unexpected normalized action: %+v", out)
	}
}

func TestNormalizeActionsClickMissingSelectorErrors(t *testing.T) {
	if _, err := NormalizeActions([]RawAction{{Type: "click"}}, "req-1"); err == nil {
		t.Error("expected an error for click without a selector")
	}
}

func TestNormalizeActionsTypePrefersTextOverValue(t *testing.T) {
	out, err := NormalizeActions([]RawAction{{Type: "type", Selector: "#q", Text: "hello", Value: "ignored"}}, "req-1")
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Value != "hello" {
		t.Errorf("Value = %q, want hello", out[0].Value)
	}
}

func TestNormalizeActionsWaitUsesMSOrMilliseconds(t *testing.T) {
	out, err := NormalizeActions([]RawAction{{Type: "wait", Milliseconds: 250}}, "req-1")
	if err != nil {
		t.Fatal(err)
	}
	if out[0].MS != 250*time.Millisecond {
		t.Errorf("MS = %v, want 250ms", out[0].MS)
	}
}

func TestNormalizeActionsScrollDefaultsToBottom(t *testing.T) {
	out, err := NormalizeActions([]RawAction{{Type: "scroll"}}, "req-1")
	if err != nil {
		t.Fatal(err)
	}
	if out[0].To != "bottom" {
		t.Errorf("To = %q, want bottom", out[0].To)
	}
}

func TestNormalizeActionsScrollAbsoluteCoordinates(t *testing.T) {
	out, err := NormalizeActions([]RawAction{{Type: "scroll", To: map[string]any{"x": 10.0, "y": 20.0}}}, "req-1")
	if err != nil {
		t.Fatal(err)
	}
	if out[0].ToX != 10 || out[0].ToY != 20 || out[0].To != "absolute" {
		t.Errorf("unexpected scroll action: %+v", out[0])
	}
}

func TestNormalizeActionsPressRequiresValue(t *testing.T) {
	if _, err := NormalizeActions([]RawAction{{Type: "press"}}, "req-1"); err == nil {
		t.Error("expected an error for press without a key value")
	}
}

func TestNormalizeActionsUnknownTypeErrors(t *testing.T) {
	if _, err := NormalizeActions([]RawAction{{Type: "levitate"}}, "req-1"); err == nil {
		t.Error("expected an error for an unknown action type")
	}
}

func TestNormalizeActionsScreenshotDefaultsFormatToPNG(t *testing.T) {
	out, err := NormalizeActions([]RawAction{{Type: "screenshot"}}, "req-1")
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Format != "png" {
		t.Errorf("Format = %q, want png", out[0].Format)
	}
}

func TestNormalizeActionsCustomTimeoutOverridesDefault(t *testing.T) {
	out, err := NormalizeActions([]RawAction{{Type: "wait", MS: 10, Timeout: 9000}}, "req-1")
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Timeout != 9000*time.Millisecond {
		t.Errorf("Timeout = %v, want 9s", out[0].Timeout)
	}
}

func TestNormalizeActionsErrorIncludesIndex(t *testing.T) {
	_, err := NormalizeActions([]RawAction{{Type: "click", Selector: "#ok"}, {Type: "click"}}, "req-1")
	if err == nil {
		t.Fatal("expected an error for the second, invalid action")
	}
	if !strings.Contains(err.Error(), "action 1") {
		t.Errorf("error %q does not name the failing action's index", err)
	}
}
