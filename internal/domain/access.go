package domain

import "github.com/google/uuid"

// Principal is the authenticated caller. It is passed explicitly to every use case.
type Principal struct {
	UserID uuid.UUID
}

type Access struct {
	IsCreator bool `json:"isCreator"`
	Purchased bool `json:"purchased"`
}

func (a Access) Entitled() bool {
	return a.IsCreator || a.Purchased
}

type CourseDetail struct {
	Course    *Course `json:"course"`
	Purchased bool    `json:"purchased"`
	IsCreator bool    `json:"isCreator"`
}

// Redacted returns a copy of c whose non-preview lectures carry no video URL.
func (c *Course) Redacted() *Course {
	out := *c
	out.Lectures = make([]Lecture, len(c.Lectures))
	for i, l := range c.Lectures {
		if !l.IsPreviewFree {
			l.VideoURL = ""
			l.PublicID = ""
		}
		out.Lectures[i] = l
	}
	return &out
}
