package model

import (
	"encoding/json"
	"fmt"
	"slices"
)

// QuestionType discriminates the question variants.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TypeTrueFalse      QuestionType = "TRUE_FALSE"
	TypeEssay          QuestionType = "ESSAY"
)

// ParseQuestionType validates a wire type string.
func ParseQuestionType(s string) (QuestionType, error) {
	switch t := QuestionType(s); t {
	case TypeMultipleChoice, TypeTrueFalse, TypeEssay:
		return t, nil
	default:
		return "", fmt.Errorf("unknown question type %q", s)
	}
}

// QuestionBody is the variant part of a question. It is implemented only by
// MultipleChoice, TrueFalse and Essay.
type QuestionBody interface {
	Type() QuestionType
	isBody()
}

// MultipleChoice has exactly one correct choice, by zero-based index.
// Answer may be out of range on malformed input.
type MultipleChoice struct {
	Choices []string
	Answer  int
}

// TrueFalse has one boolean per proposition, positionally.
type TrueFalse struct {
	Choices []string
	Answers []bool
}

// Essay carries an optional model answer.
type Essay struct {
	Answer string
}

func (MultipleChoice) Type() QuestionType { return TypeMultipleChoice }
func (TrueFalse) Type() QuestionType      { return TypeTrueFalse }
func (Essay) Type() QuestionType          { return TypeEssay }

func (MultipleChoice) isBody() {}
func (TrueFalse) isBody()      {}
func (Essay) isBody()          {}

// CorrectChoice returns the answer index and whether it points at a real choice.
func (mc MultipleChoice) CorrectChoice() (int, bool) {
	return mc.Answer, mc.Answer >= 0 && mc.Answer < len(mc.Choices)
}

// AnswerAt returns the truth value for proposition i; missing answers read as false.
func (tf TrueFalse) AnswerAt(i int) bool {
	if i < 0 || i >= len(tf.Answers) {
		return false
	}
	return tf.Answers[i]
}

// Question is a bank item. Body is never nil for a well-formed question.
type Question struct {
	ID        string
	BankID    string
	Title     string
	Content   string
	Tags      []string
	CreatedAt int64
	Body      QuestionBody
}

// Type returns the variant type, or "" when the body is missing.
func (q Question) Type() QuestionType {
	if q.Body == nil {
		return ""
	}
	return q.Body.Type()
}

// HasAnyTag reports whether the question carries at least one of tags.
// Matching is exact and case-sensitive.
func (q Question) HasAnyTag(tags []string) bool {
	for _, t := range q.Tags {
		if slices.Contains(tags, t) {
			return true
		}
	}
	return false
}

// questionWire is the flat tagged-object JSON form.
type questionWire struct {
	ID        string          `json:"id"`
	BankID    string          `json:"bankId"`
	Type      QuestionType    `json:"type"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Tags      []string        `json:"tags"`
	CreatedAt int64           `json:"createdAt"`
	Choices   []string        `json:"choices,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Answers   []bool          `json:"answers,omitempty"`
}

// MarshalJSON writes the flat form: common fields plus the variant fields.
func (q Question) MarshalJSON() ([]byte, error) {
	w := questionWire{
		ID:        q.ID,
		BankID:    q.BankID,
		Title:     q.Title,
		Content:   q.Content,
		Tags:      q.Tags,
		CreatedAt: q.CreatedAt,
	}
	if w.Tags == nil {
		w.Tags = []string{}
	}
	var err error
	switch b := q.Body.(type) {
	case MultipleChoice:
		w.Type = TypeMultipleChoice
		w.Choices = nonNil(b.Choices)
		w.Answer, err = json.Marshal(b.Answer)
	case TrueFalse:
		w.Type = TypeTrueFalse
		w.Choices = nonNil(b.Choices)
		w.Answers = b.Answers
		if w.Answers == nil {
			w.Answers = []bool{}
		}
	case Essay:
		w.Type = TypeEssay
		if b.Answer != "" {
			w.Answer, err = json.Marshal(b.Answer)
		}
	case nil:
		return nil, fmt.Errorf("question %s has no body", q.ID)
	default:
		return nil, fmt.Errorf("question %s: unsupported body %T", q.ID, b)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the flat form. The type field is required.
func (q *Question) UnmarshalJSON(data []byte) error {
	var w questionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t, err := ParseQuestionType(string(w.Type))
	if err != nil {
		return err
	}
	*q = Question{
		ID:        w.ID,
		BankID:    w.BankID,
		Title:     w.Title,
		Content:   w.Content,
		Tags:      w.Tags,
		CreatedAt: w.CreatedAt,
	}
	if q.Tags == nil {
		q.Tags = []string{}
	}
	switch t {
	case TypeMultipleChoice:
		mc := MultipleChoice{Choices: nonNil(w.Choices)}
		if len(w.Answer) > 0 && string(w.Answer) != "null" {
			if err := json.Unmarshal(w.Answer, &mc.Answer); err != nil {
				return fmt.Errorf("multiple choice answer: %w", err)
			}
		}
		q.Body = mc
	case TypeTrueFalse:
		q.Body = TrueFalse{Choices: nonNil(w.Choices), Answers: w.Answers}
	case TypeEssay:
		var e Essay
		if len(w.Answer) > 0 && string(w.Answer) != "null" {
			if err := json.Unmarshal(w.Answer, &e.Answer); err != nil {
				return fmt.Errorf("essay answer: %w", err)
			}
		}
		q.Body = e
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
