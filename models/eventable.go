package models

import "fmt"

// EventableKind is the stored discriminator of a polymorphic calendar link.
// The set is closed: a tag outside the public list below is a validation
// failure before anything reaches storage.
type EventableKind string

const (
	EventableEntity EventableKind = "entity"
	EventablePerson EventableKind = "person"
	EventableDeal   EventableKind = "deal"
)

// Public short tag <-> stored kind. Expansion happens on write, projection
// back to the short tag on every read path shown to a user.
var eventableTags = map[string]EventableKind{
	"Entity": EventableEntity,
	"Person": EventablePerson,
	"Deal":   EventableDeal,
}

var eventableKinds = map[EventableKind]string{
	EventableEntity: "Entity",
	EventablePerson: "Person",
	EventableDeal:   "Deal",
}

// ExpandEventableTag maps a public tag to its stored kind. The empty tag means
// "no linked record" and is valid.
func ExpandEventableTag(tag string) (EventableKind, error) {
	if tag == "" {
		return "", nil
	}
	kind, ok := eventableTags[tag]
	if !ok {
		return "", fmt.Errorf("unknown eventable type %q", tag)
	}
	return kind, nil
}

// ProjectEventableKind maps a stored kind back to its public tag. Unknown or
// empty kinds project to the empty tag rather than leaking internals.
func ProjectEventableKind(kind EventableKind) string {
	return eventableKinds[kind]
}
