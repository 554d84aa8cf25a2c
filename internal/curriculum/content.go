package curriculum

import (
	"encoding/json"
	"errors"
	"fmt"
)

// LessonType kind of lesson, selects the content variant
type LessonType string

// lesson types
const (
	LessonVideo          LessonType = "video"
	LessonArticle        LessonType = "article"
	LessonQuiz           LessonType = "quiz"
	LessonAssignment     LessonType = "assignment"
	LessonCodingExercise LessonType = "coding-exercise"
)

// Valid reports whether t is a known lesson type
func (t LessonType) Valid() bool {
	switch t {
	case LessonVideo, LessonArticle, LessonQuiz, LessonAssignment, LessonCodingExercise:
		return true
	}
	return false
}

// VideoContent video descriptor
type VideoContent struct {
	URL             string   `json:"url"`
	Provider        string   `json:"provider,omitempty"`
	DurationSeconds int      `json:"duration_seconds,omitempty"`
	Captions        []string `json:"captions,omitempty"`
}

// ArticleContent article body
type ArticleContent struct {
	Body           string `json:"body"`
	ReadingMinutes int    `json:"reading_minutes,omitempty"`
}

// QuizContent reference to a quiz
type QuizContent struct {
	QuizID        string `json:"quiz_id"`
	PassingScore  int    `json:"passing_score,omitempty"`
	QuestionCount int    `json:"question_count,omitempty"`
}

// AssignmentContent assignment brief
type AssignmentContent struct {
	Instructions string `json:"instructions"`
	DueDays      int    `json:"due_days,omitempty"`
}

// CodingExerciseContent coding exercise setup
type CodingExerciseContent struct {
	Language     string `json:"language"`
	StarterCode  string `json:"starter_code,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// LessonContent tagged union keyed by Type, exactly one variant is set
type LessonContent struct {
	Type           LessonType
	Video          *VideoContent
	Article        *ArticleContent
	Quiz           *QuizContent
	Assignment     *AssignmentContent
	CodingExercise *CodingExerciseContent
}

// ErrUnknownContentType content carries a type tag we cannot decode
var ErrUnknownContentType = errors.New("unknown lesson content type")

// Validate checks that the variant matching Type is the only one present
func (c *LessonContent) Validate() error {
	set := 0
	for _, present := range []bool{c.Video != nil, c.Article != nil, c.Quiz != nil, c.Assignment != nil, c.CodingExercise != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("lesson content must carry exactly one variant, got %d", set)
	}

	var ok bool
	switch c.Type {
	case LessonVideo:
		ok = c.Video != nil
	case LessonArticle:
		ok = c.Article != nil
	case LessonQuiz:
		ok = c.Quiz != nil
	case LessonAssignment:
		ok = c.Assignment != nil
	case LessonCodingExercise:
		ok = c.CodingExercise != nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownContentType, c.Type)
	}
	if !ok {
		return fmt.Errorf("lesson content variant does not match type %q", c.Type)
	}
	return nil
}

// UnmarshalJSON decodes {"type": "...", ...variant fields}
func (c *LessonContent) UnmarshalJSON(data []byte) error {
	var head struct {
		Type LessonType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	content := LessonContent{Type: head.Type}
	var target interface{}
	switch head.Type {
	case LessonVideo:
		content.Video = new(VideoContent)
		target = content.Video
	case LessonArticle:
		content.Article = new(ArticleContent)
		target = content.Article
	case LessonQuiz:
		content.Quiz = new(QuizContent)
		target = content.Quiz
	case LessonAssignment:
		content.Assignment = new(AssignmentContent)
		target = content.Assignment
	case LessonCodingExercise:
		content.CodingExercise = new(CodingExerciseContent)
		target = content.CodingExercise
	default:
		return fmt.Errorf("%w: %q", ErrUnknownContentType, head.Type)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return err
	}
	*c = content
	return nil
}

// MarshalJSON flattens the active variant next to the type tag
func (c LessonContent) MarshalJSON() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var variant interface{}
	switch c.Type {
	case LessonVideo:
		variant = c.Video
	case LessonArticle:
		variant = c.Article
	case LessonQuiz:
		variant = c.Quiz
	case LessonAssignment:
		variant = c.Assignment
	case LessonCodingExercise:
		variant = c.CodingExercise
	}
	raw, err := json.Marshal(variant)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["type"], _ = json.Marshal(c.Type)
	return json.Marshal(fields)
}
