package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrRecordNotFound    = errors.New("content record not found")
	ErrUnknownKind       = errors.New("unknown content kind")
	ErrInvalidRecord     = errors.New("invalid content record")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrAlreadySubscribed = errors.New("email already subscribed")
)

type Kind string

const (
	KindSlides       Kind = "slides"
	KindTeachers     Kind = "teachers"
	KindAssignments  Kind = "assignments"
	KindExamRoutines Kind = "exam-routines"
	KindNews         Kind = "news"
	KindContact      Kind = "contact"
	KindSubscribers  Kind = "subscribers"
)

var kinds = map[Kind]bool{
	KindSlides:       true,
	KindTeachers:     true,
	KindAssignments:  true,
	KindExamRoutines: true,
	KindNews:         true,
	KindContact:      true,
	KindSubscribers:  true,
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !kinds[k] {
		return "", ErrUnknownKind
	}
	return k, nil
}

// IsPublic reports whether active records of this kind are served on the
// public site. Subscriber addresses are admin only.
func (k Kind) IsPublic() bool {
	return kinds[k] && k != KindSubscribers
}

// Record is one piece of site content. Kind specific fields (dates, image
// urls, teacher subjects, ...) live in Data as a JSON object.
type Record struct {
	ID        int             `json:"id"`
	Kind      Kind            `json:"kind"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Data      json.RawMessage `json:"data"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// RecordInput is the admin create/update payload.
type RecordInput struct {
	Title    string          `json:"title"`
	Body     string          `json:"body"`
	Data     json.RawMessage `json:"data"`
	IsActive *bool           `json:"isActive"`
}

var emptyData = json.RawMessage(`{}`)

func (in RecordInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidRecord)
	}
	if len(in.Data) > 0 && string(in.Data) != "null" {
		var obj map[string]any
		if err := json.Unmarshal(in.Data, &obj); err != nil {
			return fmt.Errorf("%w: data must be a json object", ErrInvalidRecord)
		}
	}
	return nil
}

func (in RecordInput) data() json.RawMessage {
	if len(in.Data) == 0 || string(in.Data) == "null" {
		return emptyData
	}
	return in.Data
}

func (in RecordInput) isActive() bool {
	return in.IsActive == nil || *in.IsActive
}
