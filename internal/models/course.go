package models

import (
	"time"

	"gorm.io/datatypes"
)

const CollectionCourses = "courses"

type Resource struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type,omitempty"`
	URL   string `json:"url,omitempty"`
}

type Lesson struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Resources   []Resource `json:"resources"`
}

type Module struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

// Course is owned by the catalog; this service only reads it.
type Course struct {
	ID          string                      `gorm:"type:text;primaryKey" json:"id"`
	Title       string                      `gorm:"type:text;not null" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	Objectives  datatypes.JSONSlice[string] `json:"objectives"`
	TechStack   datatypes.JSONSlice[string] `json:"techStack"`
	Modules     datatypes.JSONSlice[Module] `json:"modules"`
	CreatedBy   string                      `gorm:"type:text;index" json:"createdBy,omitempty"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

func (Course) TableName() string {
	return CollectionCourses
}

func (c *Course) DocumentID() string      { return c.ID }
func (c *Course) SetDocumentID(id string) { c.ID = id }
