package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fStatus  = NewField[string]("status")
	fReason  = NewField[string]("reason")
	fCount   = NewField[int64]("count")
	fTags    = NewField[[]string]("tags")
	fEnabled = NewField[bool]("enabled")
)

func TestUpdate_ApplySetAddRemove(t *testing.T) {
	u := NewUpdate()
	Set(u, fStatus, "APPROVED")
	Set(u, fTags, []string{"a", "b"})
	Set(u, fEnabled, true)
	Add(u, fCount, 2)
	Remove(u, fReason)
	u.SetIndex(IndexGSI2, "LISTING_STATUS#APPROVED", "x")

	plan, err := u.Plan()
	require.NoError(t, err)

	got, err := plan.Apply(Item{PK: "p", SK: "s", Data: map[string]any{"status": "IN_REVIEW", "reason": "old", "count": float64(3)}})
	require.NoError(t, err)

	assert.Equal(t, "APPROVED", got.Data["status"])
	assert.Equal(t, []any{"a", "b"}, got.Data["tags"])
	assert.Equal(t, true, got.Data["enabled"])
	assert.Equal(t, float64(5), got.Data["count"])
	assert.NotContains(t, got.Data, "reason")
	assert.Equal(t, "LISTING_STATUS#APPROVED", got.GSI2PK)
	assert.Equal(t, "x", got.GSI2SK)
}

func TestUpdate_LastOperationOnFieldWins(t *testing.T) {
	u := NewUpdate()
	Set(u, fReason, "x")
	Remove(u, fReason)
	plan, err := u.Plan()
	require.NoError(t, err)
	assert.Empty(t, plan.Sets)
	assert.Equal(t, []string{"reason"}, plan.Removes)
}

func TestUpdate_AddOnMissingCounterStartsAtZero(t *testing.T) {
	u := Add(NewUpdate(), fCount, -1)
	plan, err := u.Plan()
	require.NoError(t, err)
	got, err := plan.Apply(Item{})
	require.NoError(t, err)
	assert.Equal(t, float64(-1), got.Data["count"])
}

func TestUpdate_ExpectInRejectsOtherValues(t *testing.T) {
	u := ExpectIn(NewUpdate(), fStatus, "ONLINE", "APPROVED")
	Set(u, fStatus, "LOCKED")
	plan, err := u.Plan()
	require.NoError(t, err)

	_, err = plan.Apply(Item{Data: map[string]any{"status": "DRAFT"}})
	assert.True(t, errors.Is(err, ErrConditionFailed))

	got, err := plan.Apply(Item{Data: map[string]any{"status": "ONLINE"}})
	require.NoError(t, err)
	assert.Equal(t, "LOCKED", got.Data["status"])
}

func TestUpdate_ApplyDoesNotMutateInput(t *testing.T) {
	in := Item{Data: map[string]any{"status": "A"}}
	plan, err := Set(NewUpdate(), fStatus, "B").Plan()
	require.NoError(t, err)
	_, err = plan.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, "A", in.Data["status"])
}

func TestUpdate_Empty(t *testing.T) {
	var nilUpdate *Update
	assert.True(t, nilUpdate.Empty())
	assert.True(t, NewUpdate().Empty())
	assert.True(t, ExpectIn(NewUpdate(), fStatus, "A").Empty())
	assert.False(t, Set(NewUpdate(), fStatus, "A").Empty())
}

func TestEncodeDecodeRoundTripsStruct(t *testing.T) {
	type doc struct {
		Name  string `json:"name"`
		Price int64  `json:"price"`
	}
	data, err := Encode(doc{Name: "basic", Price: 990})
	require.NoError(t, err)
	assert.Equal(t, float64(990), data["price"])

	var out doc
	require.NoError(t, Decode(Item{Data: data}, &out))
	assert.Equal(t, doc{Name: "basic", Price: 990}, out)
}
