package conversation

import "time"

// DefaultSeed returns the Turn the store is seeded with before any user
// interaction. It doubles as a worked example of the answer format the UI
// renders: narrative overview sections with in-text citation markers,
// the citation list, and follow-up prompts.
func DefaultSeed() Turn {
	return Turn{
		ID:      "seed",
		Query:   "What is the role of DGAT1 in milk fat composition?",
		AskedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Overview: Overview{
			Gene: "DGAT1 (diacylglycerol O-acyltransferase 1) encodes the enzyme " +
				"catalyzing the final step of triglyceride synthesis. In dairy " +
				"cattle it is the textbook example of a quantitative trait gene: " +
				"the K232A substitution alters enzyme activity and shifts milk " +
				"fat yield [1].",
			QTL: "A major QTL on bovine chromosome 14 centered on DGAT1 explains " +
				"a large share of the variance in milk fat percentage across " +
				"breeds, with the lysine variant associated with higher fat " +
				"content [1][2].",
			Relation: "Beyond production traits, DGAT1 loss-of-function variants " +
				"in humans cause a rare congenital diarrheal disorder, linking " +
				"the same lipid-synthesis pathway to intestinal disease [3].",
		},
		Citations: []Citation{
			{
				ID:      1,
				Title:   "Positional candidate cloning of a QTL in dairy cattle: identification of a missense mutation in the bovine DGAT1 gene with major effect on milk yield and composition",
				Authors: "Grisart B, Coppieters W, Farnir F, et al.",
				Journal: "Genome Research",
				PMID:    "11827942",
			},
			{
				ID:      2,
				Title:   "The DGAT1 K232A mutation is not solely responsible for the milk production quantitative trait locus on the bovine chromosome 14",
				Authors: "Bennewitz J, Reinsch N, Paul S, et al.",
				Journal: "Journal of Dairy Science",
				PMID:    "15290987",
			},
			{
				ID:      3,
				Title:   "DGAT1 mutation is linked to a congenital diarrheal disorder",
				Authors: "Haas JT, Winter HS, Lim E, et al.",
				Journal: "Journal of Clinical Investigation",
				PMID:    "23114594",
			},
		},
		FollowUps: []string{
			"Which other genes on BTA14 affect milk composition?",
			"How does the DGAT1 K232A variant differ across cattle breeds?",
			"What QTLs influence milk protein percentage?",
		},
	}
}
