package appraisal

// Question is one competency item rated on a 1-5 ordinal level.
type Question struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

const (
	CategoryWorkQuality   = "Work Quality"
	CategoryKnowledge     = "Knowledge & Skills"
	CategoryCommunication = "Communication & Teamwork"
	CategoryLeadership    = "Leadership & Initiative"
)

// questionCatalog is the reference question set. It is versionless and shared by
// every cycle; both evaluation phases answer the same ten questions.
var questionCatalog = []Question{
	{ID: "q01", Category: CategoryWorkQuality, Text: "Delivers work that meets the expected standard of accuracy and completeness"},
	{ID: "q02", Category: CategoryWorkQuality, Text: "Completes assigned duties within agreed deadlines"},
	{ID: "q03", Category: CategoryWorkQuality, Text: "Plans and organises own workload effectively"},
	{ID: "q04", Category: CategoryKnowledge, Text: "Demonstrates the technical knowledge required for the role"},
	{ID: "q05", Category: CategoryKnowledge, Text: "Applies training and new skills to day-to-day work"},
	{ID: "q06", Category: CategoryKnowledge, Text: "Solves routine problems without escalation"},
	{ID: "q07", Category: CategoryCommunication, Text: "Communicates clearly with colleagues and stakeholders"},
	{ID: "q08", Category: CategoryCommunication, Text: "Cooperates with team members to achieve shared goals"},
	{ID: "q09", Category: CategoryLeadership, Text: "Takes initiative beyond assigned duties"},
	{ID: "q10", Category: CategoryLeadership, Text: "Upholds organisational values and professional conduct"},
}

// Questions returns the catalog in rating order.
func Questions() []Question {
	out := make([]Question, len(questionCatalog))
	copy(out, questionCatalog)
	return out
}

func QuestionCount() int {
	return len(questionCatalog)
}

// MaxTotalScore is the total attainable when every question is rated at the top
// level. The level-points table is normalised so this is 100.
func MaxTotalScore() int {
	return len(questionCatalog) * levelPoints[len(levelPoints)]
}

func isCatalogQuestion(id string) bool {
	for _, q := range questionCatalog {
		if q.ID == id {
			return true
		}
	}
	return false
}
