package store

// Category is a canonical grouping of questions.
type Category struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Icon          string `json:"icon"`
	SortOrder     int    `json:"sort_order"`
	QuestionCount int    `json:"question_count"`
}

// SubCategory belongs to exactly one Category.
type SubCategory struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	SortOrder  int    `json:"sort_order"`
}

// Question is keyed by (CategoryID, Title). SubCategoryID is zero when the
// question has no sub-category.
type Question struct {
	ID              int64    `json:"id"`
	CategoryID      int64    `json:"category_id"`
	SubCategoryID   int64    `json:"sub_category_id,omitempty"`
	Title           string   `json:"title"`
	BriefAnswer     string   `json:"brief_answer"`
	DetailedAnswer  string   `json:"detailed_answer"`
	KeyPoints       []string `json:"key_points"`
	Difficulty      int      `json:"difficulty"`
	SourceURL       string   `json:"source_url"`
	Tags            []string `json:"tags"`
	CategoryName    string   `json:"category_name"`
	SubCategoryName string   `json:"sub_category_name,omitempty"`
}

type User struct {
	ID           int64
	Username     string
	Nickname     string
	Role         string
	TotalAnswers int
	AvgScore     float64
}

// Profile is the cached knowledge profile derived from a user's answers.
type Profile struct {
	UserID         int64
	CategoryScores map[string]float64
	Strengths      []string
	Weaknesses     []string
	Suggestions    []string
	OverallLevel   string
}

// UserStats joins a user's aggregate counters with their cached profile.
type UserStats struct {
	User
	Profile Profile
}

const defaultDifficulty = 3
