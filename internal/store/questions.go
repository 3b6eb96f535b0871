package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pavelanni/examhelper/internal/apperrors"
	"github.com/pavelanni/examhelper/internal/model"
)

const questionColumns = `id, bank_id, type, title, content, tags, body, created_at`

// idBatchSize keeps IN lists well below SQLite's host parameter limit.
const idBatchSize = 500

// bodyRow is the JSON stored in questions.body.
type bodyRow struct {
	Choices []string `json:"choices,omitempty"`
	Answer  *int     `json:"answerIndex,omitempty"`
	Answers []bool   `json:"answers,omitempty"`
	Text    string   `json:"answerText,omitempty"`
}

func encodeBody(body model.QuestionBody) (model.QuestionType, string, error) {
	var row bodyRow
	switch b := body.(type) {
	case model.MultipleChoice:
		answer := b.Answer
		row = bodyRow{Choices: orEmpty(b.Choices), Answer: &answer}
	case model.TrueFalse:
		row = bodyRow{Choices: orEmpty(b.Choices), Answers: b.Answers}
	case model.Essay:
		row = bodyRow{Text: b.Answer}
	case nil:
		return "", "", errors.New("question body is missing")
	default:
		return "", "", fmt.Errorf("unsupported question body %T", b)
	}
	raw, err := encodeJSON(row)
	return body.Type(), raw, err
}

func decodeBody(t model.QuestionType, raw string) (model.QuestionBody, error) {
	var row bodyRow
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			return nil, err
		}
	}
	switch t {
	case model.TypeMultipleChoice:
		mc := model.MultipleChoice{Choices: orEmpty(row.Choices)}
		if row.Answer != nil {
			mc.Answer = *row.Answer
		}
		return mc, nil
	case model.TypeTrueFalse:
		answers := row.Answers
		if answers == nil {
			answers = []bool{}
		}
		return model.TrueFalse{Choices: orEmpty(row.Choices), Answers: answers}, nil
	case model.TypeEssay:
		return model.Essay{Answer: row.Text}, nil
	default:
		return nil, fmt.Errorf("unknown question type %q", t)
	}
}

func scanQuestion(row interface{ Scan(...any) error }) (model.Question, error) {
	var (
		q          model.Question
		t          string
		tags, body string
	)
	if err := row.Scan(&q.ID, &q.BankID, &t, &q.Title, &q.Content, &tags, &body, &q.CreatedAt); err != nil {
		return q, err
	}
	var err error
	if q.Tags, err = decodeStrings(tags); err != nil {
		return q, fmt.Errorf("question %s tags: %w", q.ID, err)
	}
	if q.Body, err = decodeBody(model.QuestionType(t), body); err != nil {
		return q, fmt.Errorf("question %s body: %w", q.ID, err)
	}
	return q, nil
}

func (s *Store) queryQuestions(ctx context.Context, query string, args ...any) ([]model.Question, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	questions := []model.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CreateQuestion stores a new question with a fresh id and creation time.
// Caller-supplied ID and CreatedAt are ignored.
func (s *Store) CreateQuestion(ctx context.Context, q model.Question) (model.Question, error) {
	q.ID = s.newID()
	q.CreatedAt = s.now()
	if q.Tags == nil {
		q.Tags = []string{}
	}
	if err := s.SaveQuestion(ctx, q); err != nil {
		return model.Question{}, err
	}
	return q, nil
}

// SaveQuestion inserts or overwrites a question, keeping its id and bank id.
func (s *Store) SaveQuestion(ctx context.Context, q model.Question) error {
	t, body, err := encodeBody(q.Body)
	if err != nil {
		return fmt.Errorf("question %s: %w", q.ID, err)
	}
	tags, err := encodeJSON(orEmpty(q.Tags))
	if err != nil {
		return err
	}
	_, err = s.conn(ctx).ExecContext(ctx,
		`INSERT INTO questions (`+questionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET bank_id = excluded.bank_id, type = excluded.type,
		 title = excluded.title, content = excluded.content, tags = excluded.tags,
		 body = excluded.body, created_at = excluded.created_at`,
		q.ID, q.BankID, t, q.Title, q.Content, tags, body, q.CreatedAt,
	)
	return err
}

// GetQuestion returns a question by id.
func (s *Store) GetQuestion(ctx context.Context, id string) (model.Question, error) {
	q, err := scanQuestion(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Question{}, apperrors.NotFound("question", id)
	}
	return q, err
}

// ListQuestionsByBank returns a bank's questions, newest first.
func (s *Store) ListQuestionsByBank(ctx context.Context, bankID string) ([]model.Question, error) {
	return s.queryQuestions(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE bank_id = ? ORDER BY created_at DESC, id`, bankID)
}

// GetQuestionsByIDs returns the questions that exist among ids, in no
// particular order. Missing ids are not an error.
func (s *Store) GetQuestionsByIDs(ctx context.Context, ids []string) ([]model.Question, error) {
	out := []model.Question{}
	for chunk := range slices.Chunk(ids, idBatchSize) {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		qs, err := s.queryQuestions(ctx,
			`SELECT `+questionColumns+` FROM questions WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, err
		}
		out = append(out, qs...)
	}
	return out, nil
}

// UpdateQuestion applies the non-nil fields of patch.
func (s *Store) UpdateQuestion(ctx context.Context, id string, patch model.QuestionPatch) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		q, err := s.GetQuestion(ctx, id)
		if err != nil {
			return err
		}
		if patch.Title != nil {
			q.Title = *patch.Title
		}
		if patch.Content != nil {
			q.Content = *patch.Content
		}
		if patch.Tags != nil {
			q.Tags = patch.Tags
		}
		if patch.Body != nil {
			q.Body = patch.Body
		}
		return s.SaveQuestion(ctx, q)
	})
}

// DeleteQuestion removes a question. Exams keep their reference to it.
func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "question", id)
}

// AddTag appends tag to a question unless it is already present.
func (s *Store) AddTag(ctx context.Context, id, tag string) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		q, err := s.GetQuestion(ctx, id)
		if err != nil {
			return err
		}
		if slices.Contains(q.Tags, tag) {
			return nil
		}
		return s.setTags(ctx, id, append(q.Tags, tag))
	})
}

// RemoveTag drops every occurrence of tag from a question.
func (s *Store) RemoveTag(ctx context.Context, id, tag string) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		q, err := s.GetQuestion(ctx, id)
		if err != nil {
			return err
		}
		return s.setTags(ctx, id, slices.DeleteFunc(q.Tags, func(t string) bool { return t == tag }))
	})
}

func (s *Store) setTags(ctx context.Context, id string, tags []string) error {
	raw, err := encodeJSON(orEmpty(tags))
	if err != nil {
		return err
	}
	_, err = s.conn(ctx).ExecContext(ctx, `UPDATE questions SET tags = ? WHERE id = ?`, raw, id)
	return err
}

// ListTags returns the distinct tags used in a bank, alphabetically.
// An empty bankID lists tags across all banks.
func (s *Store) ListTags(ctx context.Context, bankID string) ([]string, error) {
	query := `SELECT DISTINCT j.value FROM questions q, json_each(q.tags) j`
	var args []any
	if bankID != "" {
		query += ` WHERE q.bank_id = ?`
		args = append(args, bankID)
	}
	query += ` ORDER BY j.value`
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tags := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
