package owner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractName(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		want       string
		confidence float64
	}{
		{"reversed with account type", "SMITH, JOHN SAVINGS", "John Smith", ConfidenceReversed},
		{"reversed mixed case", "Nguyen, Lee", "Lee Nguyen", ConfidenceReversed},
		{"leading words with product", "ALEX CHEN ACCESS ADVANTAGE", "Alex Chen", ConfidenceLeadingWords},
		{"three words", "Mary Anne Jones Everyday", "Mary Anne Jones", ConfidenceLeadingWords},
		{"bank and number noise", "Commonwealth Bank 062-000 1234 5678 PRIYA PATEL", "Priya Patel", ConfidenceLeadingWords},
		{"apostrophe and hyphen", "O'BRIEN-SMITH KATE", "O'Brien-Smith Kate", ConfidenceLeadingWords},
		{"honorific", "MR JOHN SMITH", "John Smith", ConfidenceLeadingWords},
		{"joint account keeps first holder", "JOHN SMITH & JANE SMITH", "John Smith", ConfidenceLeadingWords},
		{"joint with ampersand", "Bendigo & Adelaide Bank JOHN SMITH and JANE SMITH", "John Smith", ConfidenceLeadingWords},
		{"bank name containing and", "BENDIGO AND ADELAIDE BANK EVERYDAY JOHN SMITH", "John Smith", ConfidenceLeadingWords},
		{"bank name containing and with dash", "Bendigo and Adelaide Bank - John Smith", "John Smith", ConfidenceLeadingWords},
		{"accented all caps", "ZOË NGUYEN SAVINGS", "Zoë Nguyen", ConfidenceLeadingWords},
		{"accented mixed case", "José García", "José García", ConfidenceLeadingWords},
		{"accented single word", "ZOË EVERYDAY", "Zoë", ConfidenceLeadingWord},
		{"accented reversed", "GARCÍA, JOSÉ", "José García", ConfidenceReversed},
		{"single word", "MORGAN EVERYDAY", "Morgan", ConfidenceLeadingWord},
		{"dash separated", "my account - Mary Jones", "Mary Jones", ConfidenceDashed},
		{"last resort one token", "xyz Mary", "Mary", 0.3},
		{"only noise", "WESTPAC EVERYDAY ACCOUNT 1234", "", 0},
		{"empty", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractName(tt.input)
			assert.Equal(t, tt.want, got.Name)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-9)
		})
	}
}

func TestExtractName_RemainderScales(t *testing.T) {
	assert.InDelta(t, 0.4, ExtractName("paid to Jane Doe").Confidence, 1e-9)
	assert.InDelta(t, 0.5, ExtractName("paid to Jane Mary Doe").Confidence, 1e-9)
	assert.Equal(t, "Jane Mary Doe", ExtractName("paid to Jane Mary Doe").Name)
	assert.Equal(t, "Zoë Renée", ExtractName("paid to Zoë Renée").Name)
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"John Smith", "john  smith", SimilarityExact},
		{"John", "John Smith", SimilarityContains},
		{"John Smith", "Smith", SimilarityContains},
		{"John Smith", "John Citizen", SimilarityFirstName},
		{"Jon Smith", "John Smith", 0.9},
		{"Smith-Jones", "smith jones", SimilarityExact},
		{"", "John", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
			assert.InDelta(t, Similarity(tt.a, tt.b), Similarity(tt.b, tt.a), 1e-9)
		})
	}

	assert.Less(t, Similarity("Alice Brown", "Robert Green"), MatchThreshold)
}

func TestFindMatchingMember(t *testing.T) {
	members := []Member{
		{ID: "m1", Name: "John Smith", Active: true},
		{ID: "m2", Name: "Jane Smith", Active: true},
		{ID: "m3", Name: "Priya Patel", Active: false},
		{ID: "m4", Name: "John Smith", Active: true},
	}

	t.Run("levenshtein fallback", func(t *testing.T) {
		m, ok := FindMatchingMember("Jon Smith", members)
		require.True(t, ok)
		assert.Equal(t, "m1", m.Member.ID)
		assert.GreaterOrEqual(t, m.Similarity, MatchThreshold)
	})

	t.Run("ties keep roster order", func(t *testing.T) {
		m, ok := FindMatchingMember("John Smith", members)
		require.True(t, ok)
		assert.Equal(t, "m1", m.Member.ID)
		assert.Equal(t, SimilarityExact, m.Similarity)
	})

	t.Run("inactive members are ignored", func(t *testing.T) {
		_, ok := FindMatchingMember("Priya Patel", members)
		assert.False(t, ok)
	})

	t.Run("below threshold is no match", func(t *testing.T) {
		_, ok := FindMatchingMember("Bartholomew Quince", members)
		assert.False(t, ok)
	})

	t.Run("empty roster", func(t *testing.T) {
		_, ok := FindMatchingMember("John Smith", nil)
		assert.False(t, ok)
	})
}

func TestSuggest(t *testing.T) {
	members := []Member{
		{ID: "m1", Name: "John Smith", Active: true},
		{ID: "m2", Name: "Alex Chen", Active: true},
	}

	t.Run("matched member", func(t *testing.T) {
		res := Suggest("SMITH, JOHN SAVINGS", members)
		assert.Equal(t, "John Smith", res.DetectedName)
		assert.Equal(t, "m1", res.SuggestedMemberID)
		assert.Equal(t, "John Smith", res.SuggestedMemberName)
		assert.InDelta(t, ConfidenceReversed*SimilarityExact, res.Confidence, 1e-9)
		assert.False(t, res.IsNewMember)
		assert.Equal(t, "matched", res.Outcome())
	})

	t.Run("confidence is extraction times similarity", func(t *testing.T) {
		res := Suggest("JON SMITH EVERYDAY", members)
		assert.Equal(t, "m1", res.SuggestedMemberID)
		assert.InDelta(t, ConfidenceLeadingWords*0.9, res.Confidence, 1e-9)
	})

	t.Run("new member", func(t *testing.T) {
		res := Suggest("PRIYA PATEL ORANGE EVERYDAY", members)
		assert.Empty(t, res.SuggestedMemberID)
		assert.True(t, res.IsNewMember)
		assert.Equal(t, "Priya Patel", res.SuggestedMemberName)
		assert.InDelta(t, ConfidenceLeadingWords, res.Confidence, 1e-9)
		assert.Equal(t, "new_member", res.Outcome())
	})

	t.Run("no suggestion", func(t *testing.T) {
		res := Suggest("BANKWEST 302-985 1234567", members)
		assert.Equal(t, NameParseResult{}, res)
		assert.Equal(t, "none", res.Outcome())
	})
}
