package distill

import "testing"

func TestSchemaTemplatesCoverNamedSchemas(t *testing.T) {
	for _, name := range []string{"product", "article", "listing", "contact", "event", "recipe", "job", "review"} {
		if _, ok := SchemaTemplates[name]; !ok {
			t.Errorf("missing schema template %q", name)
		}
	}
}

func TestExtractSchemaAnswersEachField(t *testing.T) {
	blocks := []Block{
		{Text: "The product name is WidgetPro 3000.", Order: 0},
		{Text: "Price: $49.99 USD, in stock now.", Order: 1},
	}
	fields := map[string]string{
		"name":  "what is the product name",
		"price": "what is the price",
	}
	out := ExtractSchema(blocks, fields)
	if len(out) != 2 {
		t.Fatalf("expected 2 fields answered, got %d: %+v", len(out), out)
	}
	if out["name"] == "" || out["price"] == "" {
		t.Errorf("expected non-empty answers, got %+v", out)
	}
}
