package models

import "time"

// CompanyRow is one row of the hosted companies table.
type CompanyRow struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MenuRow is one row of the hosted test_menus table. MenuJSON is the nested
// category/test structure the graph loader transforms into a FlowGraph.
type MenuRow struct {
	CompanyID string    `json:"company_id"`
	MenuJSON  string    `json:"menu_json"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MenuCategory is an ordered category of tests inside a menu document.
type MenuCategory struct {
	Name  string     `json:"name"`
	Tests []MenuTest `json:"tests"`
}

// MenuTest is a single test inside a menu category. QuestionSetIDs maps a
// complexity-level name (any case) to the ordered question-set identifiers
// for that tier; missing tiers are allowed and become empty sequences.
type MenuTest struct {
	Name           string              `json:"name"`
	QuestionSetIDs map[string][]string `json:"question_set_ids"`
}
