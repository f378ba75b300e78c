package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/bagu-prep/questionbank/pkg/errors"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds every statement the pipeline and the CLI issue. Statements
// are written with ? placeholders and rebound for PostgreSQL.
type Queries struct {
	db      DBTX
	dialect Dialect
}

func (q *Queries) rebind(query string) string {
	if q.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.rebind(query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.rebind(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.rebind(query), args...)
}

// GetOrCreateCategory returns the category called name, creating it with
// icon and sortOrder if it does not exist yet.
func (q *Queries) GetOrCreateCategory(ctx context.Context, name, icon string, sortOrder int) (Category, error) {
	if _, err := q.exec(ctx,
		`INSERT INTO categories (name, icon, sort_order) VALUES (?, ?, ?)
		ON CONFLICT (name) DO NOTHING`, name, icon, sortOrder); err != nil {
		return Category{}, fmt.Errorf("creating category %q: %w", name, err)
	}
	var c Category
	err := q.queryRow(ctx,
		`SELECT id, name, icon, sort_order, question_count FROM categories WHERE name = ?`, name).
		Scan(&c.ID, &c.Name, &c.Icon, &c.SortOrder, &c.QuestionCount)
	if err != nil {
		return Category{}, fmt.Errorf("loading category %q: %w", name, err)
	}
	return c, nil
}

// GetOrCreateSubCategory returns the sub-category called name within
// categoryID, creating it if needed.
func (q *Queries) GetOrCreateSubCategory(ctx context.Context, categoryID int64, name string) (SubCategory, error) {
	if _, err := q.exec(ctx,
		`INSERT INTO sub_categories (category_id, name) VALUES (?, ?)
		ON CONFLICT (category_id, name) DO NOTHING`, categoryID, name); err != nil {
		return SubCategory{}, fmt.Errorf("creating sub-category %q: %w", name, err)
	}
	var s SubCategory
	err := q.queryRow(ctx,
		`SELECT id, category_id, name, sort_order FROM sub_categories WHERE category_id = ? AND name = ?`,
		categoryID, name).Scan(&s.ID, &s.CategoryID, &s.Name, &s.SortOrder)
	if err != nil {
		return SubCategory{}, fmt.Errorf("loading sub-category %q: %w", name, err)
	}
	return s, nil
}

// UpsertQuestion writes question keyed by (CategoryID, Title). An existing
// row has its content fields overwritten and created is false.
func (q *Queries) UpsertQuestion(ctx context.Context, question Question) (created bool, err error) {
	keyPoints, err := encodeJSON(question.KeyPoints, "[]")
	if err != nil {
		return false, err
	}
	tags, err := encodeJSON(question.Tags, "[]")
	if err != nil {
		return false, err
	}

	var id int64
	err = q.queryRow(ctx,
		`SELECT id FROM questions WHERE category_id = ? AND title = ?`,
		question.CategoryID, question.Title).Scan(&id)
	switch {
	case err == nil:
		_, err = q.exec(ctx,
			`UPDATE questions
			SET sub_category_id = ?, brief_answer = ?, detailed_answer = ?, key_points = ?,
			    source_url = ?, tags = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			nullableID(question.SubCategoryID), question.BriefAnswer, question.DetailedAnswer,
			keyPoints, question.SourceURL, tags, id)
		if err != nil {
			return false, fmt.Errorf("updating question %q: %w", question.Title, err)
		}
		return false, nil
	case errors.Is(err, sql.ErrNoRows):
	default:
		return false, fmt.Errorf("looking up question %q: %w", question.Title, err)
	}

	difficulty := question.Difficulty
	if difficulty == 0 {
		difficulty = defaultDifficulty
	}
	err = q.queryRow(ctx,
		`INSERT INTO questions
		    (category_id, sub_category_id, title, brief_answer, detailed_answer, key_points,
		     difficulty, source_url, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		question.CategoryID, nullableID(question.SubCategoryID), question.Title,
		question.BriefAnswer, question.DetailedAnswer, keyPoints, difficulty,
		question.SourceURL, tags).Scan(&id)
	if err != nil {
		return false, fmt.Errorf("inserting question %q: %w", question.Title, err)
	}
	return true, nil
}

// RefreshCategoryCounts recomputes every category's cached question count.
func (q *Queries) RefreshCategoryCounts(ctx context.Context) error {
	_, err := q.exec(ctx,
		`UPDATE categories
		SET question_count = (SELECT COUNT(*) FROM questions WHERE questions.category_id = categories.id)`)
	if err != nil {
		return fmt.Errorf("refreshing category counts: %w", err)
	}
	return nil
}

// DeleteAllCategories removes every category together with its
// sub-categories and questions, and returns the number of categories
// deleted.
func (q *Queries) DeleteAllCategories(ctx context.Context) (int64, error) {
	if _, err := q.exec(ctx, `DELETE FROM questions`); err != nil {
		return 0, fmt.Errorf("deleting questions: %w", err)
	}
	if _, err := q.exec(ctx, `DELETE FROM sub_categories`); err != nil {
		return 0, fmt.Errorf("deleting sub-categories: %w", err)
	}
	res, err := q.exec(ctx, `DELETE FROM categories`)
	if err != nil {
		return 0, fmt.Errorf("deleting categories: %w", err)
	}
	return res.RowsAffected()
}

// ResetUserStats zeroes every user's answer counters and clears the cached
// knowledge profiles.
func (q *Queries) ResetUserStats(ctx context.Context) (users, profiles int64, err error) {
	res, err := q.exec(ctx, `UPDATE users SET total_answers = 0, avg_score = 0`)
	if err != nil {
		return 0, 0, fmt.Errorf("resetting user counters: %w", err)
	}
	if users, err = res.RowsAffected(); err != nil {
		return 0, 0, err
	}
	res, err = q.exec(ctx,
		`UPDATE user_profiles
		SET category_scores = '{}', strengths = '[]', weaknesses = '[]', suggestions = '[]',
		    overall_level = 'beginner', updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, 0, fmt.Errorf("resetting user profiles: %w", err)
	}
	if profiles, err = res.RowsAffected(); err != nil {
		return 0, 0, err
	}
	return users, profiles, nil
}

// ListCategories returns categories in display order.
func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.query(ctx,
		`SELECT id, name, icon, sort_order, question_count FROM categories ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.SortOrder, &c.QuestionCount); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

const questionColumns = `q.id, q.category_id, q.sub_category_id, q.title, q.brief_answer,
	q.detailed_answer, q.key_points, q.difficulty, q.source_url, q.tags, c.name, COALESCE(s.name, '')`

const questionFrom = ` FROM questions q
	JOIN categories c ON c.id = q.category_id
	LEFT JOIN sub_categories s ON s.id = q.sub_category_id`

// ListQuestions returns the questions of one category, or of all categories
// when categoryName is empty.
func (q *Queries) ListQuestions(ctx context.Context, categoryName string) ([]Question, error) {
	query := `SELECT ` + questionColumns + questionFrom
	var args []any
	if categoryName != "" {
		query += ` WHERE c.name = ?`
		args = append(args, categoryName)
	}
	query += ` ORDER BY c.sort_order, c.name, q.title`

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	return questions, rows.Err()
}

// GetQuestionByTitle looks a question up by its natural key.
func (q *Queries) GetQuestionByTitle(ctx context.Context, categoryName, title string) (Question, error) {
	row := q.queryRow(ctx,
		`SELECT `+questionColumns+questionFrom+` WHERE c.name = ? AND q.title = ?`,
		categoryName, title)
	question, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, apperrors.Newf(apperrors.ErrNotFound, 0, "question %q in %q", title, categoryName)
	}
	return question, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (Question, error) {
	var (
		question  Question
		subID     sql.NullInt64
		keyPoints string
		tags      string
	)
	err := row.Scan(&question.ID, &question.CategoryID, &subID, &question.Title,
		&question.BriefAnswer, &question.DetailedAnswer, &keyPoints, &question.Difficulty,
		&question.SourceURL, &tags, &question.CategoryName, &question.SubCategoryName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, err
		}
		return Question{}, fmt.Errorf("scanning question: %w", err)
	}
	question.SubCategoryID = subID.Int64
	if err := decodeJSON(keyPoints, &question.KeyPoints); err != nil {
		return Question{}, err
	}
	if err := decodeJSON(tags, &question.Tags); err != nil {
		return Question{}, err
	}
	return question, nil
}

// CreateUser inserts a user and returns its id.
func (q *Queries) CreateUser(ctx context.Context, user User) (int64, error) {
	role := user.Role
	if role == "" {
		role = "user"
	}
	var id int64
	err := q.queryRow(ctx,
		`INSERT INTO users (username, nickname, role, total_answers, avg_score)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		user.Username, user.Nickname, role, user.TotalAnswers, user.AvgScore).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating user %q: %w", user.Username, err)
	}
	return id, nil
}

// SaveProfile inserts or replaces the cached profile of a user.
func (q *Queries) SaveProfile(ctx context.Context, profile Profile) error {
	scores, err := encodeJSON(profile.CategoryScores, "{}")
	if err != nil {
		return err
	}
	strengths, err := encodeJSON(profile.Strengths, "[]")
	if err != nil {
		return err
	}
	weaknesses, err := encodeJSON(profile.Weaknesses, "[]")
	if err != nil {
		return err
	}
	suggestions, err := encodeJSON(profile.Suggestions, "[]")
	if err != nil {
		return err
	}
	level := profile.OverallLevel
	if level == "" {
		level = "beginner"
	}
	_, err = q.exec(ctx,
		`INSERT INTO user_profiles (user_id, category_scores, strengths, weaknesses, suggestions, overall_level)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
		    category_scores = excluded.category_scores,
		    strengths = excluded.strengths,
		    weaknesses = excluded.weaknesses,
		    suggestions = excluded.suggestions,
		    overall_level = excluded.overall_level,
		    updated_at = CURRENT_TIMESTAMP`,
		profile.UserID, scores, strengths, weaknesses, suggestions, level)
	if err != nil {
		return fmt.Errorf("saving profile of user %d: %w", profile.UserID, err)
	}
	return nil
}

// ListUserStats returns every user with their cached profile, ordered by
// username. Users without a profile get an empty one.
func (q *Queries) ListUserStats(ctx context.Context) ([]UserStats, error) {
	rows, err := q.query(ctx,
		`SELECT u.id, u.username, u.nickname, u.role, u.total_answers, u.avg_score,
		    COALESCE(p.category_scores, '{}'), COALESCE(p.strengths, '[]'),
		    COALESCE(p.weaknesses, '[]'), COALESCE(p.suggestions, '[]'),
		    COALESCE(p.overall_level, 'beginner')
		FROM users u
		LEFT JOIN user_profiles p ON p.user_id = u.id
		ORDER BY u.username`)
	if err != nil {
		return nil, fmt.Errorf("listing user stats: %w", err)
	}
	defer rows.Close()

	var stats []UserStats
	for rows.Next() {
		var (
			s                                          UserStats
			scores, strengths, weaknesses, suggestions string
		)
		if err := rows.Scan(&s.ID, &s.Username, &s.Nickname, &s.Role, &s.TotalAnswers, &s.AvgScore,
			&scores, &strengths, &weaknesses, &suggestions, &s.Profile.OverallLevel); err != nil {
			return nil, fmt.Errorf("scanning user stats: %w", err)
		}
		s.Profile.UserID = s.ID
		for _, field := range []struct {
			raw string
			dst any
		}{
			{scores, &s.Profile.CategoryScores},
			{strengths, &s.Profile.Strengths},
			{weaknesses, &s.Profile.Weaknesses},
			{suggestions, &s.Profile.Suggestions},
		} {
			if err := decodeJSON(field.raw, field.dst); err != nil {
				return nil, err
			}
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func encodeJSON(v any, empty string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding json column: %w", err)
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}

func decodeJSON(raw string, dst any) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decoding json column: %w", err)
	}
	return nil
}
