package model

// Bank is a named collection of questions.
type Bank struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// QuestionBlock asks for a number of questions matching any of its tags.
// An empty tag list matches every question.
type QuestionBlock struct {
	ID                string   `json:"id"`
	NumberOfQuestions int      `json:"numberOfQuestions"`
	Tags              []string `json:"tags"`
}

// ExamSeed is a template for generating exams. Blocks are resolved in order
// and earlier blocks win shared candidates.
type ExamSeed struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	BankIDs        []string        `json:"bankIds"`
	QuestionBlocks []QuestionBlock `json:"questionBlocks"`
	CreatedAt      int64           `json:"createdAt"`
	UpdatedAt      int64           `json:"updatedAt"`
}

// Exam is a concrete, ordered list of question references.
// BankIDs is a hint for discovering new questions; QuestionIDs is authoritative.
type Exam struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	BankIDs     []string `json:"bankIds"`
	QuestionIDs []string `json:"questionIds"`
	CreatedAt   int64    `json:"createdAt"`
	UpdatedAt   int64    `json:"updatedAt"`
}

// ExamDetails is an exam with its questions resolved in display order.
type ExamDetails struct {
	Exam      Exam              `json:"exam"`
	Questions []Question        `json:"questions"`
	BanksMap  map[string]string `json:"banksMap"`
}

// ExamPatch holds the mutable exam fields. Nil fields are left untouched.
type ExamPatch struct {
	Name        *string
	BankIDs     []string
	QuestionIDs []string
}

// SeedPatch holds the mutable seed fields. Nil fields are left untouched.
type SeedPatch struct {
	Name           *string
	Description    *string
	BankIDs        []string
	QuestionBlocks []QuestionBlock
}

// QuestionPatch holds the mutable question fields. Nil fields are left untouched.
type QuestionPatch struct {
	Title   *string
	Content *string
	Tags    []string
	Body    QuestionBody
}

// Stats are the dashboard counters.
type Stats struct {
	Banks     int `json:"banks"`
	Questions int `json:"questions"`
	Seeds     int `json:"seeds"`
	Exams     int `json:"exams"`
}
