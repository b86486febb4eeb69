package fence

import (
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// DrawingTool is the operator's polygon drawing control.
type DrawingTool interface {
	// All returns the drawn features, oldest first.
	All() []*geojson.Feature
	Delete(ids ...string)
}

// Selection mirrors the browser drawing tool. Deletions made here are
// remembered until TakeDeleted so they can be replayed in the browser.
type Selection struct {
	features []*geojson.Feature
	deleted  []string
}

func NewSelection() *Selection {
	return &Selection{}
}

// Replace sets the selection to what the browser currently shows.
func (s *Selection) Replace(features []*geojson.Feature) {
	s.features = append([]*geojson.Feature(nil), features...)
}

func (s *Selection) All() []*geojson.Feature {
	return append([]*geojson.Feature(nil), s.features...)
}

// Delete removes one feature per id, oldest first, so repeated or empty
// ids never take more features than were named.
func (s *Selection) Delete(ids ...string) {
	for _, id := range ids {
		for i, f := range s.features {
			if featureID(f) == id {
				s.features = append(s.features[:i:i], s.features[i+1:]...)
				s.deleted = append(s.deleted, id)
				break
			}
		}
	}
}

// TakeDeleted returns and forgets the ids deleted since the last call.
func (s *Selection) TakeDeleted() []string {
	out := s.deleted
	s.deleted = nil
	return out
}

func featureID(f *geojson.Feature) string {
	switch id := f.ID.(type) {
	case nil:
		return ""
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}
