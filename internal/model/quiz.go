package model

// MCQ 多项选择题。
type MCQ struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// SAQ 简答题。
type SAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// LAQ 论述题。
type LAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Quiz is the canonical quiz shape. After normalization every quiz has
// exactly these three groups present, each possibly empty.
type Quiz struct {
	MCQs []MCQ `json:"mcqs"`
	SAQs []SAQ `json:"saqs"`
	LAQs []LAQ `json:"laqs"`
}

// QuestionType 区分评分路径。
type QuestionType string

const (
	TypeMCQ QuestionType = "mcq"
	TypeSAQ QuestionType = "saq"
	TypeLAQ QuestionType = "laq"
)

// GradingItem 是一道待评分的题目。
type GradingItem struct {
	Question      string       `json:"question"`
	QuestionType  QuestionType `json:"questionType"`
	CorrectAnswer string       `json:"correctAnswer"`
	UserAnswer    string       `json:"userAnswer"`
}

// GradedQuestion 评分结果。MCQ 得分在 {0,1}，SAQ 在 [0,3]，LAQ 在 [0,5]。
type GradedQuestion struct {
	Question     string       `json:"question"`
	QuestionType QuestionType `json:"questionType"`
	UserAnswer   string       `json:"userAnswer"`
	Score        float64      `json:"score"`
	Explanation  string       `json:"explanation"`
}

// GradeResult 整批评分结果，条目顺序与提交顺序一致。
type GradeResult struct {
	GradedQuestions []GradedQuestion `json:"gradedQuestions"`
	TotalScore      float64          `json:"totalScore"`
}
