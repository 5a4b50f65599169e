package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsScanAndValue(t *testing.T) {
	in := Fields{FieldMosqueName: "جامع النور", "الرز": 4}
	raw, err := in.Value()
	require.NoError(t, err)

	var out Fields
	require.NoError(t, out.Scan(raw))
	assert.Equal(t, "جامع النور", out.String(FieldMosqueName))
	rating, ok := out.Rating("الرز")
	assert.True(t, ok)
	assert.Equal(t, 4, rating)

	require.NoError(t, out.Scan(nil))
	assert.Empty(t, out)
	assert.Error(t, out.Scan(42))
}

func TestFieldsRating(t *testing.T) {
	f := Fields{"a": "5", "b": 0, "c": "x", "d": 3.5, "e": 6, "f": " 2 "}
	for key, want := range map[string]bool{"a": true, "b": false, "c": false, "d": false, "e": false, "f": true, "missing": false} {
		_, ok := f.Rating(key)
		assert.Equal(t, want, ok, key)
	}
}

func TestAttendanceTotal(t *testing.T) {
	r := Record{Kind: KindAttendance, Fields: Fields{FieldMenCount: "120", FieldWomenCount: 30.0}}
	assert.Equal(t, 150, r.Attendance().Total())

	assert.Equal(t, 0, Record{Fields: Fields{FieldMenCount: "كثير"}}.Attendance().Total())
}

func TestEvaluationViewSkipsUnrated(t *testing.T) {
	r := Record{Fields: Fields{"الرز": 4, "الدجاج": 0, FieldEvaluator: " علي "}}
	view := r.Evaluation()
	assert.Equal(t, map[string]int{"الرز": 4}, view.Ratings)
	assert.Equal(t, "علي", view.Evaluator)
}

func TestStatusDefaults(t *testing.T) {
	assert.Equal(t, StatusPending, Record{}.StatusOrDefault())
	assert.Equal(t, TonePending, ApprovalStatus("").Tone())
	assert.Equal(t, ToneApproved, StatusApproved.Tone())
	assert.Equal(t, ToneReturned, StatusReturned.Tone())
	assert.True(t, StatusReject.BulkTarget())
	assert.False(t, StatusReturned.BulkTarget())
	assert.Equal(t, TonePending, ApprovalStatus("x").Tone())
}

func TestParseKind(t *testing.T) {
	kind, ok := ParseKind(" Maintenance ")
	assert.True(t, ok)
	assert.Equal(t, "MNT", kind.Prefix())

	_, ok = ParseKind("grades")
	assert.False(t, ok)
}

func TestFilterNormalize(t *testing.T) {
	f := FilterState{Mosque: "all", Day: " D1 ", Status: ""}.Normalize()
	assert.Equal(t, FilterState{Day: "D1"}, f)
	assert.True(t, FilterState{Mosque: "ALL"}.Normalize().IsZero())
}

func TestReferenceLookups(t *testing.T) {
	refs := ReferenceData{Mosques: []Mosque{{Code: "M1", Name: "جامع النور"}}, Days: []Day{{Code: "D1", Label: "الليلة الأولى"}}}
	m, ok := refs.Mosque("M1")
	assert.True(t, ok)
	assert.Equal(t, "جامع النور", m.Name)
	assert.Equal(t, "", refs.DayLabel("D9"))
}
