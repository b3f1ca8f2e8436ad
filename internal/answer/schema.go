package answer

import "github.com/verasca/lociq/internal/generator"

// ResponseSchema returns the fixed structured-output contract sent to the
// generator with every request.
func ResponseSchema() *generator.Schema {
	return &generator.Schema{
		Type: "object",
		Properties: map[string]*generator.Schema{
			"aiOverview": {
				Type: "object",
				Properties: map[string]*generator.Schema{
					"gene":     {Type: "string", Description: "Narrative summary of the gene's molecular function"},
					"qtl":      {Type: "string", Description: "Known quantitative trait associations for the locus"},
					"relation": {Type: "string", Description: "Disease or phenotype relationships"},
				},
				Required: []string{"gene", "qtl", "relation"},
			},
			"citations": {
				Type: "array",
				Items: &generator.Schema{
					Type: "object",
					Properties: map[string]*generator.Schema{
						"id":      {Type: "integer", Description: "In-text citation marker number, starting at 1"},
						"title":   {Type: "string"},
						"authors": {Type: "string"},
						"journal": {Type: "string"},
						"pmid":    {Type: "string", Description: "PubMed identifier"},
					},
					Required: []string{"id", "title", "authors", "journal", "pmid"},
				},
			},
			"followUpQuestions": {
				Type:  "array",
				Items: &generator.Schema{Type: "string"},
			},
		},
		Required: []string{"aiOverview", "citations", "followUpQuestions"},
	}
}
