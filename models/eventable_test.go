package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEventableTag(t *testing.T) {
	cases := map[string]EventableKind{
		"Entity": EventableEntity,
		"Person": EventablePerson,
		"Deal":   EventableDeal,
	}
	for tag, want := range cases {
		kind, err := ExpandEventableTag(tag)
		require.NoError(t, err)
		assert.Equal(t, want, kind)
	}
}

func TestExpandEmptyTagMeansUnlinked(t *testing.T) {
	kind, err := ExpandEventableTag("")
	require.NoError(t, err)
	assert.Equal(t, EventableKind(""), kind)
}

func TestExpandUnknownTagFails(t *testing.T) {
	for _, tag := range []string{"Invoice", "entity", "DEAL", "App\\Models\\Deal"} {
		_, err := ExpandEventableTag(tag)
		assert.Error(t, err, "tag %q should not expand", tag)
	}
}

func TestProjectionRoundTrips(t *testing.T) {
	for _, kind := range []EventableKind{EventableEntity, EventablePerson, EventableDeal} {
		tag := ProjectEventableKind(kind)
		back, err := ExpandEventableTag(tag)
		require.NoError(t, err)
		assert.Equal(t, kind, back)
	}
}

func TestProjectUnknownKindIsEmpty(t *testing.T) {
	assert.Equal(t, "", ProjectEventableKind(EventableKind("invoice")))
	assert.Equal(t, "", ProjectEventableKind(EventableKind("")))
}
