package feed

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// Event types carried by an Envelope.
const (
	TypeInsert = "INSERT"
	TypeUpdate = "UPDATE"
	TypeDelete = "DELETE"
)

// ErrMalformed is returned by Decode for frames that cannot become a Change.
var ErrMalformed = errors.New("malformed change frame")

// Envelope is the wire form of a change.
//
//	{"type":"INSERT","new":{...}}
//	{"type":"UPDATE","new":{...}}
//	{"type":"DELETE","old":{"id":"..."}}
//
// Delete frames only need old.id; any other field is ignored.
type Envelope struct {
	Type string           `json:"type"`
	New  *domain.Bookmark `json:"new,omitempty"`
	Old  *OldRecord       `json:"old,omitempty"`
}

// OldRecord is the part of a deleted row a delete frame carries.
type OldRecord struct {
	ID string `json:"id"`
}

// Encode serializes a change.
func Encode(ch domain.Change) ([]byte, error) {
	var env Envelope
	switch c := ch.(type) {
	case domain.Inserted:
		b := c.Bookmark
		env = Envelope{Type: TypeInsert, New: &b}
	case domain.Updated:
		b := c.Bookmark
		env = Envelope{Type: TypeUpdate, New: &b}
	case domain.Deleted:
		env = Envelope{Type: TypeDelete, Old: &OldRecord{ID: c.ID}}
	default:
		return nil, fmt.Errorf("unsupported change %T", ch)
	}
	return json.Marshal(env)
}

// Decode parses a frame into a Change.
func Decode(data []byte) (domain.Change, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeInsert, TypeUpdate:
		if env.New == nil || env.New.ID == "" {
			return nil, fmt.Errorf("%w: %s without new.id", ErrMalformed, env.Type)
		}
		if env.Type == TypeInsert {
			return domain.Inserted{Bookmark: *env.New}, nil
		}
		return domain.Updated{Bookmark: *env.New}, nil
	case TypeDelete:
		if env.Old == nil || env.Old.ID == "" {
			return nil, fmt.Errorf("%w: DELETE without old.id", ErrMalformed)
		}
		return domain.Deleted{ID: env.Old.ID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, env.Type)
	}
}
