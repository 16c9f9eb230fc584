// Schema-template field extraction, answering each field's question
// via BM25 over the distilled content blocks (spec.md §4.8 stage 6).
// No schema-template library exists in the retrieved pack; the
// field->question maps are new code following the teacher's
// data-shape conventions (compare models/extract.go's Schema field).
package distill

import "strings"

// SchemaTemplates maps a named template to its field->question map.
// Every field in spec.md §4.8's named list (product, article, listing,
// contact, event, recipe, job, review) is represented.
var SchemaTemplates = map[string]map[string]string{
	"product": {
		"name":        "what is the product name or title",
		"price":       "what is the price",
		"currency":    "what currency is the price in",
		"availability": "is the product in stock or available",
		"brand":       "what is the brand or manufacturer",
		"rating":      "what is the product rating",
	},
	"article": {
		"headline":    "what is the headline or title",
		"author":      "who is the author",
		"publishedAt": "when was this published",
		"summary":     "what is this article about",
	},
	"listing": {
		"title":    "what is the listing title",
		"price":    "what is the asking price",
		"location": "where is this located",
		"contact":  "how can the lister be contacted",
	},
	"contact": {
		"email":   "what is the contact email address",
		"phone":   "what is the contact phone number",
		"address": "what is the physical address",
	},
	"event": {
		"name":     "what is the event name",
		"date":     "when does the event take place",
		"location": "where does the event take place",
		"organizer": "who is organizing the event",
	},
	"recipe": {
		"title":       "what is the recipe title",
		"ingredients": "what are the ingredients",
		"steps":       "what are the preparation steps",
		"servings":    "how many servings does this make",
	},
	"job": {
		"title":    "what is the job title",
		"company":  "what company is hiring",
		"location": "where is the job located",
		"salary":   "what is the salary range",
	},
	"review": {
		"subject": "what is being reviewed",
		"rating":  "what rating was given",
		"summary": "what is the overall opinion expressed",
	},
}

// ExtractSchema answers every field in the named template (or a
// caller-supplied field->question map) by running FilterByQuestion
// against its question and joining the best-matching blocks.
func ExtractSchema(blocks []Block, fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for field, question := range fields {
		matched := FilterByQuestion(blocks, question)
		out[field] = joinBlockText(matched)
	}
	return out
}

func joinBlockText(blocks []Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.Text)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
