package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byKey(pairs []Pair, canonical string) []Pair {
	var out []Pair
	for _, p := range pairs {
		if p.CanonicalKey == canonical {
			out = append(out, p)
		}
	}
	return out
}

func TestFromText_ColonLines(t *testing.T) {
	pairs := New(nil).FromText("Project Name: Apollo\nCity: Warsaw\nEmpty:\nhttps://example.com\n")
	require.Len(t, pairs, 2)

	assert.Equal(t, "Project Name", pairs[0].RawKey)
	assert.Equal(t, "project name", pairs[0].CanonicalKey)
	assert.Equal(t, "Apollo", pairs[0].Value)
	assert.Equal(t, "Project Name: Apollo", pairs[0].DisplayText)
	assert.Equal(t, 0, pairs[0].Sequence)

	assert.Equal(t, "city", pairs[1].CanonicalKey)
	assert.Equal(t, "Warsaw", pairs[1].Value)
	assert.Equal(t, 1, pairs[1].Sequence)
}

func TestFromText_LongLabelIsProse(t *testing.T) {
	label := strings.Repeat("x", 81)
	pairs := New(nil).FromText(label + ": value")
	assert.Empty(t, pairs)
}

func TestFromText_BulletedLabels(t *testing.T) {
	pairs := New(nil).FromText("- **Budget**: 10k EUR\n1. Deadline: June")
	require.Len(t, pairs, 2)
	assert.Equal(t, "Budget", pairs[0].RawKey)
	assert.Equal(t, "budget", pairs[0].CanonicalKey)
	assert.Equal(t, "deadline", pairs[1].CanonicalKey)
}

func TestFromText_OverviewBlockStopsAtNextField(t *testing.T) {
	pairs := New(nil).FromText("Overview\nLine one.\n\nLine two.\nCity: Warsaw")

	ov := byKey(pairs, "overview")
	require.Len(t, ov, 1)
	assert.Contains(t, ov[0].Value, "Line one.")
	assert.Contains(t, ov[0].Value, "Line two.")
	assert.Equal(t, "Line one.\n\nLine two.", ov[0].Value)
	assert.NotContains(t, ov[0].Value, "Warsaw")

	city := byKey(pairs, "city")
	require.Len(t, city, 1)
	assert.Equal(t, "Warsaw", city[0].Value)
}

func TestFromText_OverviewInlineAndFAQStop(t *testing.T) {
	text := "Overview: Internal tooling.\nIt ships quarterly.\n\n\n\nMore text.\nq. Is it open source?\na. No"
	pairs := New(nil).FromText(text)

	ov := byKey(pairs, "overview")
	require.Len(t, ov, 1)
	assert.Equal(t, "Overview", ov[0].RawKey)
	assert.Equal(t, "Internal tooling.\nIt ships quarterly.\n\nMore text.", ov[0].Value)

	faq := byKey(pairs, "is it open source")
	require.Len(t, faq, 1)
	assert.Equal(t, "No", faq[0].Value)
}

func TestFromText_OverviewKeepsURLLines(t *testing.T) {
	pairs := New(nil).FromText("Overview\nOur docs live at https://example.com/docs and more.\nSecond line.\nCity: Warsaw")

	ov := byKey(pairs, "overview")
	require.Len(t, ov, 1)
	assert.Equal(t, "Our docs live at https://example.com/docs and more.\nSecond line.", ov[0].Value)
	require.Len(t, byKey(pairs, "city"), 1)
	assert.Len(t, pairs, 2)
}

func TestFromText_OverviewKeepsSentencesWithColons(t *testing.T) {
	pairs := New(nil).FromText("Overview\nThe plan is simple: ship fast.\n\nThen iterate.\nCity: Warsaw")

	ov := byKey(pairs, "overview")
	require.Len(t, ov, 1)
	assert.Equal(t, "The plan is simple: ship fast.\n\nThen iterate.", ov[0].Value)

	city := byKey(pairs, "city")
	require.Len(t, city, 1)
	assert.Equal(t, "Warsaw", city[0].Value)
}

func TestFromText_OverviewEndsAtShortLabelAndHeader(t *testing.T) {
	pairs := New(nil).FromText("Overview\nFirst.\nTeam size: 5\nOverview\nSecond.\nContacts:\nann@example.com")

	ov := byKey(pairs, "overview")
	require.Len(t, ov, 2)
	assert.Equal(t, "First.", ov[0].Value)
	assert.Equal(t, "Second.", ov[1].Value)
	require.Len(t, byKey(pairs, "team size"), 1)
}

func TestFromText_OverviewAliases(t *testing.T) {
	pairs := New(nil).FromText("Summary\nShort text.\nBudget: 5k")
	ov := byKey(pairs, "overview")
	require.Len(t, ov, 1)
	assert.Equal(t, "Short text.", ov[0].Value)
}

func TestFromText_PipeRows(t *testing.T) {
	text := strings.Join([]string{
		"| Question | Answer |",
		"|---|---|",
		"| Deadline | 2025-06-30 |",
		"Client | ACME",
		"a | b | c",
		"| | empty |",
	}, "\n")
	pairs := New(nil).FromText(text)
	require.Len(t, pairs, 2)
	assert.Equal(t, "deadline", pairs[0].CanonicalKey)
	assert.Equal(t, "2025-06-30", pairs[0].Value)
	assert.Equal(t, "client", pairs[1].CanonicalKey)
	assert.Equal(t, "ACME", pairs[1].Value)
}

func TestFromText_FAQPairing(t *testing.T) {
	pairs := New(nil).FromText("q. What is the SLA?\na. 24/7")
	require.Len(t, pairs, 1)
	assert.Equal(t, "What is the SLA?", pairs[0].RawKey)
	assert.Equal(t, "24/7", pairs[0].Value)
}

func TestFromText_FAQOrphans(t *testing.T) {
	text := "a. stray answer\nq. Unanswered?\nq: Second question\nA - Second answer\nq. Trailing?"
	pairs := New(nil).FromText(text)
	require.Len(t, pairs, 1)
	assert.Equal(t, "Second question", pairs[0].RawKey)
	assert.Equal(t, "Second answer", pairs[0].Value)
}

func TestFromText_HyphenatedLabelsAreNotFAQ(t *testing.T) {
	pairs := New(nil).FromText("A-team members: 5\nQ-learning rate: 0.1")
	require.Len(t, pairs, 2)
	assert.Equal(t, "A-team members", pairs[0].RawKey)
	assert.Equal(t, "5", pairs[0].Value)
	assert.Equal(t, "Q-learning rate", pairs[1].RawKey)
	assert.Equal(t, "0.1", pairs[1].Value)
}

func TestFromText_StrategyOrderAndSequence(t *testing.T) {
	text := "q. Who pays?\na. The client\nStatus | Active\nCity: Kraków\nOverview\nA tool."
	pairs := New(nil).FromText(text)
	require.Len(t, pairs, 4)
	assert.Equal(t, []string{"city", "overview", "status", "who pays"}, []string{
		pairs[0].CanonicalKey, pairs[1].CanonicalKey, pairs[2].CanonicalKey, pairs[3].CanonicalKey,
	})
	for i, p := range pairs {
		assert.Equal(t, i, p.Sequence)
	}
}

func TestFromText_LineEndingsAndBOM(t *testing.T) {
	pairs := New(nil).FromText("\ufeffCity: Gdańsk\r\nBudget: 1\r")
	require.Len(t, pairs, 2)
	assert.Equal(t, "City", pairs[0].RawKey)
	assert.Equal(t, "Gdańsk", pairs[0].Value)
}

func TestFromText_NoPairs(t *testing.T) {
	assert.Empty(t, New(nil).FromText("just some prose without any structure"))
	assert.Empty(t, New(nil).FromText(""))
}

func TestDisplayText_Truncated(t *testing.T) {
	long := strings.Repeat("ż", 600)
	d := DisplayText("key", long)
	assert.Equal(t, MaxDisplayRunes, len([]rune(d)))
	assert.True(t, strings.HasPrefix(d, "key: "))
}

func TestFromJSON_QAAndFlatten(t *testing.T) {
	doc := `{
		"project": {"name": "Apollo", "city": "Warsaw"},
		"faq": [
			{"q": "What is the SLA?", "a": "24/7"},
			{"q": "Support email?", "a": "help@example.com"}
		],
		"budget": 1200.50,
		"active": true,
		"notes": null
	}`
	pairs, err := New(nil).FromJSON([]byte(doc))
	require.NoError(t, err)

	var raw []string
	for _, p := range pairs {
		raw = append(raw, p.RawKey+"="+p.Value)
	}
	assert.Equal(t, []string{
		"What is the SLA?=24/7",
		"Support email?=help@example.com",
		"project name=Apollo",
		"project city=Warsaw",
		"budget=1200.50",
		"active=true",
	}, raw)
	assert.Equal(t, "project name", pairs[2].CanonicalKey)
}

func TestFromJSON_NestedQAOutsideArrayIsKeptTwice(t *testing.T) {
	pairs, err := New(nil).FromJSON([]byte(`{"help": {"q": "Hours?", "a": "9-17"}}`))
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	assert.Equal(t, "Hours?", pairs[0].RawKey)
	assert.Equal(t, "help q", pairs[1].RawKey)
	assert.Equal(t, "help a", pairs[2].RawKey)
}

func TestFromJSON_TopLevelArray(t *testing.T) {
	pairs, err := New(nil).FromJSON([]byte(`[{"q": "Q1", "a": "A1", "tag": "x"}]`))
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "Q1", pairs[0].RawKey)
	assert.Equal(t, "0 tag", pairs[1].RawKey)
}

func TestFromJSON_NonScalarQAIsIgnored(t *testing.T) {
	pairs, err := New(nil).FromJSON([]byte(`{"q": {"text": "x"}, "a": "y"}`))
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "q text", pairs[0].RawKey)
	assert.Equal(t, "a", pairs[1].RawKey)
}

func TestFromJSON_Malformed(t *testing.T) {
	_, err := New(nil).FromJSON([]byte(`{"a": `))
	assert.Error(t, err)

	_, err = New(nil).FromJSON([]byte(`{} {}`))
	assert.Error(t, err)
}

func TestParseJSON_KeepsMemberOrder(t *testing.T) {
	n, err := ParseJSON([]byte(`{"z": 1, "a": 2, "m": [3]}`))
	require.NoError(t, err)
	obj, ok := n.(*Object)
	require.True(t, ok)
	require.Len(t, obj.Members, 3)
	assert.Equal(t, "z", obj.Members[0].Key)
	assert.Equal(t, "a", obj.Members[1].Key)
	arr, ok := obj.Members[2].Value.(*Array)
	require.True(t, ok)
	assert.Equal(t, Scalar{Text: "3"}, arr.Items[0])
}
