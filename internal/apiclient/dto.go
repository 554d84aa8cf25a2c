package apiclient

import (
	"math"
	"time"

	"github.com/pot-code/learning-gateway/internal/curriculum"
)

// recordID platform records carry `_id`, a few endpoints already send `id`
type recordID struct {
	MongoID string `json:"_id"`
	ID      string `json:"id"`
}

func (r recordID) value() string {
	if r.MongoID != "" {
		return r.MongoID
	}
	return r.ID
}

type courseDTO struct {
	recordID
	Title         string  `json:"title"`
	Price         float64 `json:"price"`
	DiscountPrice float64 `json:"discountPrice"`
	IsFree        bool    `json:"isFree"`
	TotalSections int     `json:"totalSections"`
	TotalLessons  int     `json:"totalLessons"`
	TotalDuration int     `json:"totalDuration"`
}

func (d *courseDTO) toCourse() *curriculum.Course {
	return &curriculum.Course{
		ID:            d.value(),
		Title:         d.Title,
		Price:         d.Price,
		DiscountPrice: d.DiscountPrice,
		IsFree:        d.IsFree,
		TotalSections: d.TotalSections,
		TotalLessons:  d.TotalLessons,
		TotalDuration: d.TotalDuration,
	}
}

type sectionDTO struct {
	recordID
	Course        curriculum.Ref `json:"course"`
	Title         string         `json:"title"`
	Order         int            `json:"order"`
	TotalLessons  int            `json:"totalLessons"`
	TotalDuration int            `json:"totalDuration"`
}

func (d *sectionDTO) toSection() *curriculum.Section {
	return &curriculum.Section{
		ID:            d.value(),
		Course:        d.Course,
		Title:         d.Title,
		Order:         d.Order,
		TotalLessons:  d.TotalLessons,
		TotalDuration: d.TotalDuration,
	}
}

type lessonDTO struct {
	recordID
	Section  curriculum.Ref        `json:"section"`
	Course   curriculum.Ref        `json:"course"`
	Title    string                `json:"title"`
	Order    int                   `json:"order"`
	Duration int                   `json:"duration"`
	Type     curriculum.LessonType `json:"type"`
	IsFree   bool                  `json:"isFree"`
}

func (d *lessonDTO) toLesson() *curriculum.Lesson {
	return &curriculum.Lesson{
		ID:       d.value(),
		Section:  d.Section,
		Course:   d.Course,
		Title:    d.Title,
		Order:    d.Order,
		Duration: d.Duration,
		Type:     d.Type,
		IsFree:   d.IsFree,
	}
}

type progressDTO struct {
	Progress         float64          `json:"progress"`
	CompletedLessons []curriculum.Ref `json:"completedLessons"`
	LastLessonID     curriculum.Ref   `json:"lastLessonId"`
}

func (d *progressDTO) toProgress() *curriculum.Progress {
	completed := make([]string, 0, len(d.CompletedLessons))
	for _, ref := range d.CompletedLessons {
		if ref.ID != "" {
			completed = append(completed, ref.ID)
		}
	}
	return &curriculum.Progress{
		Percentage:       int(math.Round(d.Progress)),
		CompletedLessons: completed,
		LastLessonID:     d.LastLessonID.ID,
	}
}

// Certificate issued course certificate
type Certificate struct {
	ID       string    `json:"id"`
	CourseID string    `json:"course_id"`
	URL      string    `json:"url"`
	IssuedAt time.Time `json:"issued_at"`
}

type certificateDTO struct {
	recordID
	Course   curriculum.Ref `json:"course"`
	URL      string         `json:"certificateUrl"`
	IssuedAt time.Time      `json:"issuedAt"`
}

func (d *certificateDTO) toCertificate(courseID string) *Certificate {
	cert := &Certificate{
		ID:       d.value(),
		CourseID: d.Course.ID,
		URL:      d.URL,
		IssuedAt: d.IssuedAt,
	}
	if cert.CourseID == "" {
		cert.CourseID = courseID
	}
	return cert
}

type lessonProgressRequest struct {
	Completed bool `json:"completed"`
}
