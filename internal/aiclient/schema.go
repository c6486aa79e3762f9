// internal/aiclient/schema.go
package aiclient

import "google.golang.org/genai"

const (
	defaultObserveInstruction = "Find the interactive elements on this page."
	defaultExtractInstruction = "Extract the main text content of this page."

	observeSystemPrompt = `You are a precise web page analyst. You are given the HTML of a page and an
instruction describing the elements the caller is interested in. Return every
matching interactive element as a JSON array. For each element provide a short
human-readable description and a selector expression (CSS preferred, XPath
when CSS cannot address the element) that uniquely locates it in the given
HTML. Only return elements that actually exist in the HTML. Return an empty
array when nothing matches.`

	extractSystemPrompt = `You are a precise data extraction engine. You are given the HTML of a page
and an instruction describing the data to extract. Return JSON that conforms
exactly to the requested schema. Extract only data present in the HTML; never
invent records. Omit nothing the instruction asks for that is present.`
)

// CandidateActionSchema is the response contract for observation calls: an
// array of description/selector pairs.
func CandidateActionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"description": {
					Type:        genai.TypeString,
					Description: "Short human-readable description of the element and its role.",
				},
				"selector": {
					Type:        genai.TypeString,
					Description: "CSS or XPath expression uniquely locating the element.",
				},
			},
			Required: []string{"description", "selector"},
		},
	}
}

// ProductListSchema is the response contract for search-result extraction.
func ProductListSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"products": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name": {
							Type:        genai.TypeString,
							Description: "Product name as shown in the listing.",
						},
						"price": {
							Type:        genai.TypeString,
							Description: "Displayed price, including currency symbol.",
						},
						"quantity": {
							Type:        genai.TypeString,
							Description: "Pack size or unit, e.g. '500 g' or '6 pcs'.",
						},
					},
					Required: []string{"name"},
				},
			},
		},
		Required: []string{"products"},
	}
}

// PageTextSchema is the fallback extraction contract used when the caller
// supplies no schema.
func PageTextSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"content": {
				Type:        genai.TypeString,
				Description: "The extracted text content.",
			},
		},
		Required: []string{"content"},
	}
}
