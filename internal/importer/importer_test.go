package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthickst/agenticosv2.0/internal/domain"
)

func TestDetect(t *testing.T) {
	assert.Equal(t, FormatJSON, Detect("  [{\"a\":1}]"))
	assert.Equal(t, FormatJSON, Detect("\n{\"a\":1}"))
	assert.Equal(t, FormatCSV, Detect("name,age\nAnn,31"))
}

func TestParseCSV(t *testing.T) {
	res, err := ParseCSV("name, city\nAnn, \"Paris, FR\"\nBob\n")
	require.NoError(t, err)

	assert.Equal(t, []domain.SchemaColumn{{Name: "name", Type: "string"}, {Name: "city", Type: "string"}}, res.Schema)
	require.Len(t, res.Records, 2)
	assert.Equal(t, map[string]any{"name": "Ann", "city": "Paris, FR"}, res.Records[0])
	assert.Equal(t, map[string]any{"name": "Bob", "city": ""}, res.Records[1])
}

func TestParseCSVHeaderOnly(t *testing.T) {
	res, err := ParseCSV("name,age\n")
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Schema)
	assert.NotNil(t, res.Records)
}

func TestParseJSON(t *testing.T) {
	res, err := ParseJSON(`[{"name":"Ann","age":31,"admin":true,"tags":["a"]},{"name":"Bob"}]`)
	require.NoError(t, err)

	assert.Equal(t, []domain.SchemaColumn{
		{Name: "name", Type: "string"},
		{Name: "age", Type: "number"},
		{Name: "admin", Type: "boolean"},
		{Name: "tags", Type: "object"},
	}, res.Schema)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "Bob", res.Records[1]["name"])
}

func TestParseJSONEdgeCases(t *testing.T) {
	res, err := ParseJSON(`{"name":"Ann"}`)
	require.NoError(t, err)
	assert.Empty(t, res.Records)

	res, err = ParseJSON(`[]`)
	require.NoError(t, err)
	assert.Empty(t, res.Schema)

	_, err = ParseJSON(`[1, 2]`)
	assert.Error(t, err)

	_, err = ParseJSON(`[{"a":`)
	assert.Error(t, err)
}

func TestParseDispatch(t *testing.T) {
	res, err := Parse(FormatAuto, `[{"a":"x"}]`)
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)

	_, err = Parse("xml", "<a/>")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWriteCSV(t *testing.T) {
	var b strings.Builder
	schema := []domain.SchemaColumn{{Name: "name"}, {Name: "note"}, {Name: "age"}}
	records := []map[string]any{
		{"name": "Ann", "note": `say "hi"`, "age": float64(31)},
		{"name": "Bob"},
	}
	require.NoError(t, WriteCSV(&b, schema, records))
	assert.Equal(t, "name,note,age\n\"Ann\",\"say \"\"hi\"\"\",\"31\"\n\"Bob\",\"\",\"\"", b.String())

	var none strings.Builder
	require.NoError(t, WriteCSV(&none, nil, records))
	assert.Empty(t, none.String())
}
