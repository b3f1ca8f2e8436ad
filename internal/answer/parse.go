package answer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/verasca/lociq/internal/conversation"
)

// rawAnswer mirrors the generator's output schema. Pointer fields
// distinguish "absent" from "empty": an empty narrative string is tolerated,
// a missing field is a schema violation.
type rawAnswer struct {
	AIOverview        *rawOverview            `json:"aiOverview"`
	Citations         []conversation.Citation `json:"citations"`
	FollowUpQuestions []string                `json:"followUpQuestions"`
}

type rawOverview struct {
	Gene     *string `json:"gene"`
	QTL      *string `json:"qtl"`
	Relation *string `json:"relation"`
}

// parsed is the validated, sanitized answer content ready to become a Turn.
type parsed struct {
	Overview  conversation.Overview
	Citations []conversation.Citation
	FollowUps []string
}

// parseAnswer validates the generator's raw JSON text against the fixed
// schema. Citations and follow-ups default to empty sequences when absent;
// duplicate citation ids are stored as given. Narrative fields are flattened
// of any markup the model emitted.
func parseAnswer(raw string) (parsed, error) {
	if strings.TrimSpace(raw) == "" {
		return parsed{}, fmt.Errorf("empty response body")
	}

	var a rawAnswer
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return parsed{}, fmt.Errorf("malformed JSON: %w", err)
	}

	if a.AIOverview == nil {
		return parsed{}, fmt.Errorf("response missing aiOverview")
	}
	for field, v := range map[string]*string{
		"gene":     a.AIOverview.Gene,
		"qtl":      a.AIOverview.QTL,
		"relation": a.AIOverview.Relation,
	} {
		if v == nil {
			return parsed{}, fmt.Errorf("aiOverview missing field %q", field)
		}
	}

	p := parsed{
		Overview: conversation.Overview{
			Gene:     stripMarkup(*a.AIOverview.Gene),
			QTL:      stripMarkup(*a.AIOverview.QTL),
			Relation: stripMarkup(*a.AIOverview.Relation),
		},
		Citations: a.Citations,
		FollowUps: a.FollowUpQuestions,
	}
	if p.Citations == nil {
		p.Citations = []conversation.Citation{}
	}
	if p.FollowUps == nil {
		p.FollowUps = []string{}
	}
	return p, nil
}
