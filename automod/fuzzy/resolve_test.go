package fuzzy

import (
	"fmt"
	"testing"

	"github.com/nutsandbolts/modcore/automod/similarity"

	"github.com/stretchr/testify/assert"
)

func testCollection() *Collection[string] {
	c := NewCollection[string]()
	c.Add("owner1", &Record{Aliases: []string{"rules", "server rules"}, Content: "be nice"})
	c.Add("owner2", &Record{Aliases: []string{"faq"}, Content: "read the docs"})
	c.Add("owner1", &Record{Aliases: []string{"python", "py"}, Content: "python.org"})
	return c
}

func TestResolveEmpty(t *testing.T) {
	assert := assert.New(t)

	res := Resolve("rules", NewCollection[string]())
	assert.False(res.Found())
	assert.Empty(res.Suggestions)

	var nilColl *Collection[string]
	res = Resolve("rules", nilColl)
	assert.False(res.Found())
	assert.Empty(res.Suggestions)
}

func TestResolveExact(t *testing.T) {
	assert := assert.New(t)
	c := testCollection()

	for _, alias := range []string{"rules", "server rules", "faq", "python", "py"} {
		res := Resolve(alias, c)
		assert.True(res.Found(), alias)
		assert.True(res.Record.HasAlias(alias))
		assert.Empty(res.Suggestions)
	}

	res := Resolve("py", c)
	assert.Equal("owner1", res.Owner)
	assert.Equal("python.org", res.Record.Content)
	assert.Equal("python", res.Record.Name())

	res = Resolve("faq", c)
	assert.Equal("owner2", res.Owner)

	// case-sensitive
	res = Resolve("FAQ", c)
	assert.False(res.Found())
}

func TestResolveExactBeatsFuzzy(t *testing.T) {
	assert := assert.New(t)

	c := NewCollection[int]()
	for i := 0; i < 30; i++ {
		c.Add(i%3, &Record{Aliases: []string{fmt.Sprintf("welcome%d", i)}})
	}
	c.Add(99, &Record{Aliases: []string{"welcome"}, Content: "hi!"})

	res := Resolve("welcome", c)
	assert.True(res.Found())
	assert.Equal(99, res.Owner)
	assert.Equal("hi!", res.Record.Content)
	assert.Empty(res.Suggestions)
}

func TestResolveFirstExactWins(t *testing.T) {
	assert := assert.New(t)

	c := NewCollection[string]()
	c.Add("b", &Record{Aliases: []string{"dup"}, Content: "first"})
	c.Add("a", &Record{Aliases: []string{"dup"}, Content: "second"})

	res := Resolve("dup", c)
	assert.Equal("b", res.Owner)
	assert.Equal("first", res.Record.Content)
}

func TestResolveSuggestions(t *testing.T) {
	assert := assert.New(t)
	c := testCollection()
	strict := similarity.Scorer{Threshold: 75}

	res := ResolveWith(Resolver{Scorer: &strict}, "rule", c)
	assert.False(res.Found())
	assert.Equal([]string{"rules", "server rules"}, res.Suggestions)

	res = ResolveWith(Resolver{Scorer: &strict}, "zzzz", c)
	assert.False(res.Found())
	assert.Empty(res.Suggestions)
}

func TestResolveSuggestionCap(t *testing.T) {
	assert := assert.New(t)

	c := NewCollection[int]()
	var aliases []string
	for i := 0; i < 25; i++ {
		a := fmt.Sprintf("tag-%02d", i)
		aliases = append(aliases, a)
		c.Add(i%4, &Record{Aliases: []string{a}})
	}

	// expected order: owner insertion order, then record order within each owner
	var expected []string
	for owner := 0; owner < 4; owner++ {
		for _, rec := range c.Records(owner) {
			expected = append(expected, rec.Aliases...)
		}
	}

	res := Resolve("tag", c)
	assert.False(res.Found())
	assert.Len(res.Suggestions, MaxSuggestions)
	assert.Equal(expected[:MaxSuggestions], res.Suggestions)

	res = ResolveWith(Resolver{Limit: 3}, "tag", c)
	assert.Equal(expected[:3], res.Suggestions)

	// stable across repeated calls
	for i := 0; i < 10; i++ {
		again := Resolve("tag", c)
		assert.Equal(res.Suggestions[:3], again.Suggestions[:3])
		assert.Len(again.Suggestions, MaxSuggestions)
	}
}

func TestCollectionOrder(t *testing.T) {
	assert := assert.New(t)
	c := testCollection()

	assert.Equal([]string{"owner1", "owner2"}, c.Owners())
	assert.Equal(3, c.Len())
	assert.Len(c.Records("owner1"), 2)
	assert.Nil(c.Records("missing"))
	assert.False(c.Empty())
}
