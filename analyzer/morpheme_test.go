package analyzer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steosofficial/steoslattice/lattice"
)

func TestSplitFeature(t *testing.T) {
	assert.Equal(t, []string{"noun", "general", "*"}, splitFeature("noun,general,*"))
	assert.Equal(t, []string{"symbol", "a,b", "x"}, splitFeature(`symbol,"a,b",x`))
	assert.Equal(t, []string{""}, splitFeature(""))
}

func TestPartialMatch(t *testing.T) {
	tests := []struct {
		pattern, feature string
		want             bool
	}{
		{"noun", "noun,general,*", true},
		{"*,general", "noun,general,*", true},
		{"verb", "noun,general", false},
		{"noun,general,x,y,z", "noun,general", true},
		{"*", "anything", true},
		{"noun,*,proper", "noun,general,common", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, partialMatch(tt.pattern, tt.feature), "%s ~ %s", tt.pattern, tt.feature)
	}
}

func TestNewMorpheme(t *testing.T) {
	n := &lattice.Node{
		Begin:   2,
		Length:  3,
		RLength: 4,
		Feature: "verb,main,*,*,godan,base,run,ran,ran",
		WCost:   -7,
		Cost:    120,
		Stat:    lattice.UnknownNode,
		PosID:   5,
	}
	m := newMorpheme("run", n)
	assert.Equal(t, "verb", m.PartOfSpeech)
	assert.Equal(t, []string{"main"}, m.POSDetails)
	assert.Equal(t, "godan", m.ConjugationType)
	assert.Equal(t, "base", m.ConjugationForm)
	assert.Equal(t, "run", m.BaseForm)
	assert.Equal(t, "ran", m.Reading)
	assert.Equal(t, 2, m.Begin)
	assert.Equal(t, 5, m.End)
	assert.Equal(t, -7, m.WordCost)
	assert.True(t, m.Unknown)

	short := newMorpheme("x", &lattice.Node{Feature: "unk"})
	assert.Equal(t, "unk", short.PartOfSpeech)
	assert.Empty(t, short.POSDetails)
	assert.Empty(t, short.Pronunciation)

	data, err := json.Marshal(short)
	require.NoError(t, err)
	assert.JSONEq(t, `{"surface":"x","feature":"unk","part_of_speech":"unk","begin":0,"end":0,
		"word_cost":0,"cost":0,"unknown":false,"pos_id":0}`, string(data))
}

func TestMorphemes_NotAvailable(t *testing.T) {
	l := lattice.New()
	l.SetSentence("AB")
	assert.Nil(t, Morphemes(l))
}
