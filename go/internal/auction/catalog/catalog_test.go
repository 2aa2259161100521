package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "categories": [
    {"category": "Batsmen", "players": [{"name": "Kohli", "basePrice": 200}, {"name": "Rohit", "basePrice": 180}]},
    {"name": "Bowlers", "players": [{"name": "Bumrah", "basePrice": 150}]}
  ]
}`

func TestParse_NormalizesCategoryLabel(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	categories := c.Categories()
	require.Len(t, categories, 2)
	assert.Equal(t, "Batsmen", categories[0].Name)
	assert.Equal(t, "Bowlers", categories[1].Name, "legacy name field should be used when category is missing")
	assert.Equal(t, 3, c.Len())
}

func TestParse_Rejects(t *testing.T) {
	cases := []struct {
		name string
		data string
		want error
	}{
		{name: "no categories", data: `{"categories": []}`, want: ErrEmptyCatalog},
		{name: "empty category", data: `{"categories": [{"category": "A", "players": []}]}`, want: ErrEmptyCategory},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			require.ErrorIs(t, err, tc.want)
		})
	}

	_, err := Parse([]byte(`{not json`))
	require.Error(t, err)
}

func TestNext_TraversesInOrder(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	var names []string
	cur := c.First()
	for {
		lot, ok := c.Lot(cur)
		require.True(t, ok)
		names = append(names, lot.Category+"/"+lot.Name)

		next, ok := c.Next(cur)
		if !ok {
			break
		}
		cur = next
	}

	assert.Equal(t, []string{"Batsmen/Kohli", "Batsmen/Rohit", "Bowlers/Bumrah"}, names)
}

func TestLot_OutOfRange(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	_, ok := c.Lot(Cursor{Category: 5})
	assert.False(t, ok)
	_, ok = c.Lot(Cursor{Category: 0, Item: 9})
	assert.False(t, ok)
}

func TestNew_CopiesInput(t *testing.T) {
	in := []Category{{Name: "A", Players: []Item{{Name: "x", BasePrice: 1}}}}
	c, err := New(in)
	require.NoError(t, err)

	in[0].Players[0].Name = "mutated"
	lot, ok := c.Lot(c.First())
	require.True(t, ok)
	assert.Equal(t, "x", lot.Name)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "players.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
