package store

import (
	"nexcrm/models"

	"gorm.io/gorm"
)

// EventableRef is a resolved polymorphic link: the concrete kind plus the
// display name shown on calendar views.
type EventableRef struct {
	Kind models.EventableKind `json:"-"`
	Tag  string               `json:"type"`
	ID   uint                 `json:"id"`
	Name string               `json:"name"`
}

// ResolveEventable dispatches over the closed kind set and loads the concrete
// record within the tenant. A missing row is a not-found error, never a silent
// nil; kinds outside the set never reach this point (tag validation rejects
// them first).
func (s *TenantStore) ResolveEventable(kind models.EventableKind, id uint) (*EventableRef, error) {
	ref := &EventableRef{Kind: kind, Tag: models.ProjectEventableKind(kind), ID: id}

	switch kind {
	case models.EventableEntity:
		entity, err := s.FindEntity(id)
		if err != nil {
			return nil, err
		}
		ref.Name = entity.Name
	case models.EventablePerson:
		person, err := s.FindPerson(id)
		if err != nil {
			return nil, err
		}
		ref.Name = person.Name
	case models.EventableDeal:
		deal, err := s.FindDeal(id)
		if err != nil {
			return nil, err
		}
		ref.Name = deal.Title
	default:
		return nil, gorm.ErrRecordNotFound
	}
	return ref, nil
}
