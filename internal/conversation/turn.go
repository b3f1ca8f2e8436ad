package conversation

import "time"

// Citation is one reference record supporting a Turn's overview. The ID is
// the small integer used as an in-text citation marker; it is unique within
// a Turn but carries no meaning across Turns.
type Citation struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Authors string `json:"authors"`
	Journal string `json:"journal"`
	PMID    string `json:"pmid"`
}

// Overview holds the three narrative sections of a generated answer.
type Overview struct {
	Gene     string `json:"gene"`
	QTL      string `json:"qtl"`
	Relation string `json:"relation"`
}

// Turn is one question/answer exchange: the user's query plus the generated
// structured answer. A Turn is never mutated after creation.
type Turn struct {
	ID        string     `json:"id"`
	Query     string     `json:"query"`
	AskedAt   time.Time  `json:"asked_at"`
	Overview  Overview   `json:"overview"`
	Citations []Citation `json:"citations"`
	FollowUps []string   `json:"follow_ups"`
}
