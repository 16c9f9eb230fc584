// Action normalization and the action list contract, grounded on the
// teacher's scraper/actions.go. The rod-specific execution lives in
// browser.go (it needs a live *rod.Page); this file only normalizes
// the caller-supplied list and enforces deadlines, per spec.md §4.6.
package fetch

import (
	"fmt"
	"time"

	webpeelerrors "github.com/use-agent/webpeel/errors"
)

// ActionType enumerates the normalized action vocabulary.
type ActionType string

const (
	ActionWait       ActionType = "wait"
	ActionClick      ActionType = "click"
	ActionTypeText   ActionType = "type" // avoid colliding with the ActionType type name
	ActionFill       ActionType = "fill"
	ActionSelect     ActionType = "select"
	ActionPress      ActionType = "press"
	ActionHover      ActionType = "hover"
	ActionScroll     ActionType = "scroll"
	ActionWaitForSel ActionType = "waitForSelector"
	ActionScreenshot ActionType = "screenshot"
)

const (
	defaultActionTimeout = 5 * time.Second
	totalActionsDeadline = 30 * time.Second
)

// Action is one normalized, ready-to-execute step.
type Action struct {
	Type     ActionType
	Selector string
	Value    string        // normalized from `text`/`value`
	MS       time.Duration // normalized from `ms`/`milliseconds`
	Timeout  time.Duration
	// Scroll fields.
	Direction string // "up"/"down", used with Amount
	Amount    int
	To        string // "top"/"bottom", or "absolute" for ToX/ToY; used when Direction is empty
	ToX, ToY  int
	// Screenshot fields.
	FullPage bool
	Format   string // "png" or "jpeg"
	Quality  int
}

// RawAction is the loosely-typed shape a caller may submit, honoring
// spec.md §4.6's competing naming conventions before normalization.
type RawAction struct {
	Type         string         `json:"type"`
	Selector     string         `json:"selector"`
	Text         string         `json:"text"`
	Value        string         `json:"value"`
	MS           int            `json:"ms"`
	Milliseconds int            `json:"milliseconds"`
	Timeout      int            `json:"timeout"`
	Direction    string         `json:"direction"`
	Amount       int            `json:"amount"`
	To           any            `json:"to"`
	FullPage     bool           `json:"fullPage"`
	Format       string         `json:"format"`
	Quality      int            `json:"quality"`
}

// NormalizeActions converts a raw, loosely-shaped action list into the
// canonical Action list, rejecting unknown or malformed actions.
func NormalizeActions(raw []RawAction, requestID string) ([]Action, error) {
	out := make([]Action, 0, len(raw))
	for i, r := range raw {
		a, err := normalizeOne(r, requestID)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func normalizeOne(r RawAction, requestID string) (Action, error) {
	a := Action{Type: ActionType(r.Type)}
	switch a.Type {
	case ActionWait:
		ms := r.MS
		if ms == 0 {
			ms = r.Milliseconds
		}
		a.MS = time.Duration(ms) * time.Millisecond
	case ActionClick, ActionHover:
		if r.Selector == "" {
			return Action{}, webpeelerrors.WebPeel(requestID, string(a.Type)+" requires a selector")
		}
		a.Selector = r.Selector
	case ActionTypeText, ActionFill:
		if r.Selector == "" {
			return Action{}, webpeelerrors.WebPeel(requestID, string(a.Type)+" requires a selector")
		}
		a.Selector = r.Selector
		a.Value = firstNonEmptyStr(r.Text, r.Value)
	case ActionSelect:
		if r.Selector == "" {
			return Action{}, webpeelerrors.WebPeel(requestID, "select requires a selector")
		}
		a.Selector = r.Selector
		a.Value = firstNonEmptyStr(r.Value, r.Text)
	case ActionPress:
		a.Value = firstNonEmptyStr(r.Value, r.Text)
		if a.Value == "" {
			return Action{}, webpeelerrors.WebPeel(requestID, "press requires a key value")
		}
	case ActionScroll:
		a.Direction = r.Direction
		a.Amount = r.Amount
		switch v := r.To.(type) {
		case string:
			a.To = v
		case float64:
			a.ToY = int(v)
			a.To = "absolute"
		case map[string]any:
			if x, ok := v["x"].(float64); ok {
				a.ToX = int(x)
			}
			if y, ok := v["y"].(float64); ok {
				a.ToY = int(y)
			}
			a.To = "absolute"
		}
		if a.Direction == "" && a.To == "" {
			a.To = "bottom"
		}
	case ActionWaitForSel:
		if r.Selector == "" {
			return Action{}, webpeelerrors.WebPeel(requestID, "waitForSelector requires a selector")
		}
		a.Selector = r.Selector
	case ActionScreenshot:
		a.FullPage = r.FullPage
		a.Format = r.Format
		if a.Format == "" {
			a.Format = "png"
		}
		a.Quality = r.Quality
	default:
		return Action{}, webpeelerrors.WebPeel(requestID, "unknown action type "+r.Type)
	}

	timeout := defaultActionTimeout
	if r.Timeout > 0 {
		timeout = time.Duration(r.Timeout) * time.Millisecond
	}
	a.Timeout = timeout
	return a, nil
}

func firstNonEmptyStr(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// ActionDeadline computes the clamped per-action timeout given the
// remaining total-list budget.
func ActionDeadline(remaining time.Duration, perAction time.Duration) time.Duration {
	if perAction > remaining {
		return remaining
	}
	return perAction
}
