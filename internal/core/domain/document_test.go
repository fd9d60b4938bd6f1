package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
		ok       bool
	}{
		{"report.pdf", FormatPDF, true},
		{"NOTES.TXT", FormatText, true},
		{"discharge.docx", FormatDOCX, true},
		{"scan.jpeg", FormatImage, true},
		{"scan.webp", FormatImage, true},
		{"archive.zip", "", false},
		{"noext", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, ok := FormatFromFilename(tt.filename)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSupportedExtensions_AllDetectable(t *testing.T) {
	for _, ext := range SupportedExtensions() {
		f, ok := FormatFromFilename("file" + ext)
		assert.True(t, ok, ext)
		assert.True(t, f.IsValid(), ext)
	}
}

func TestChunk_Len(t *testing.T) {
	c := Chunk{Start: 450, End: 950}
	assert.Equal(t, 500, c.Len())
}

func TestDemographics_JSON(t *testing.T) {
	t.Run("known fields", func(t *testing.T) {
		data, err := json.Marshal(Demographics{Name: "John Doe", Age: KnownAge(45), Gender: "male"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"John Doe","age":45,"gender":"male"}`, string(data))
	})

	t.Run("unknown fields", func(t *testing.T) {
		data, err := json.Marshal(Demographics{})
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"unknown","age":"unknown","gender":"unknown"}`, string(data))
	})

	t.Run("newborn", func(t *testing.T) {
		data, err := json.Marshal(Demographics{Age: KnownAge(0)})
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"unknown","age":0,"gender":"unknown"}`, string(data))

		var d Demographics
		require.NoError(t, json.Unmarshal(data, &d))
		require.True(t, d.HasAge())
		assert.Equal(t, 0, *d.Age)
	})

	t.Run("decodes both shapes", func(t *testing.T) {
		var d Demographics
		require.NoError(t, json.Unmarshal([]byte(`{"name":"Jane","age":61,"gender":"unknown"}`), &d))
		assert.Equal(t, Demographics{Name: "Jane", Age: KnownAge(61)}, d)

		require.NoError(t, json.Unmarshal([]byte(`{"name":"unknown","age":"unknown","gender":"female"}`), &d))
		assert.Equal(t, Demographics{Gender: "female"}, d)
	})
}

func TestRecoveryEstimate(t *testing.T) {
	r := RecoveryEstimate{Min: 2, Max: 3, Unit: RecoveryMonths}
	assert.Equal(t, 60, r.MinDays())
	assert.Equal(t, 90, r.MaxDays())
	assert.Equal(t, "2-3 months", r.String())

	same := RecoveryEstimate{Min: 2, Max: 2, Unit: RecoveryWeeks}
	assert.Equal(t, "2 weeks", same.String())

	varies := RecoveryEstimate{Unit: RecoveryVaries, Note: "Varies"}
	assert.Equal(t, 0, varies.MaxDays())
	assert.Equal(t, "Varies", varies.String())
}

func TestReport_JSONNullFollowUp(t *testing.T) {
	r := Report{DocumentID: "doc-1", Conditions: []Condition{}, RetrievalProvenance: []string{}}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Contains(t, m, "follow_up_date")
	assert.Nil(t, m["follow_up_date"])
	assert.Equal(t, []any{}, m["conditions"])
	assert.Equal(t, []any{}, m["retrieval_provenance"])
	assert.Contains(t, m, "processing_time")
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2025-06-01 ", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), got)

	for _, bad := range []string{"", "06/01/2025", "2025-02-30", "tomorrow"} {
		_, err := ParseDate(bad, time.UTC)
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}
}
