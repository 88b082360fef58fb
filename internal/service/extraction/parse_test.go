package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recall-backend/internal/domain"
	appErrors "recall-backend/pkg/errors"
)

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object untouched",
			in:   `{"entities": []}`,
			want: `{"entities": []}`,
		},
		{
			name: "surrounding whitespace trimmed",
			in:   "\n  {\"entities\": []}  \n",
			want: `{"entities": []}`,
		},
		{
			name: "json code fence stripped",
			in:   "```json\n{\"entities\": []}\n```",
			want: `{"entities": []}`,
		},
		{
			name: "plain code fence stripped",
			in:   "```\n{\"entities\": []}\n```",
			want: `{"entities": []}`,
		},
		{
			name: "prose around object removed",
			in:   "Here is the extraction:\n{\"entities\": []}\nLet me know if you need more.",
			want: `{"entities": []}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanResponse(tt.in))
		})
	}
}

func TestParseResultSkipsInvalidItems(t *testing.T) {
	raw := `{
		"entities": [
			{"name": "Brian", "system_labels": ["PERSON"]},
			{"name": "", "system_labels": ["PERSON"]},
			{"name": "Mordor", "system_labels": ["KINGDOM"]}
		],
		"relations": [
			{"source": "Brian", "target": "Mordor", "relationType": "visited there"},
			{"source": "Brian", "target": "Yoli", "relationType": "knows"}
		]
	}`
	entry := testEntry(t, "Brian")

	result, err := parseResult(raw, entry, "openai", zap.NewNop())
	require.NoError(t, err)

	// The unnamed entity and the unknown system label are dropped.
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "Brian", result.Entities[0].Name)

	// The relation type with spaces fails the character-set gate; the
	// remaining one is uppercased.
	require.Len(t, result.Relations, 1)
	assert.Equal(t, "KNOWS", result.Relations[0].RelationType)
}

func TestParseResultNothingUsableIsExtractionError(t *testing.T) {
	raw := `{"entities": [{"name": "", "system_labels": ["PERSON"]}], "relations": []}`
	entry := testEntry(t, "Brian")

	_, err := parseResult(raw, entry, "ollama", zap.NewNop())
	require.Error(t, err)
	assert.True(t, appErrors.IsExtraction(err))
}

func TestParseResultMalformedJSONIsExtractionError(t *testing.T) {
	_, err := parseResult("this is not json", testEntry(t, "Brian"), "ollama", zap.NewNop())
	require.Error(t, err)
	assert.True(t, appErrors.IsExtraction(err))
}

func TestClipText(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}

	clipped, truncated := clipText(string(long), 10)
	assert.Len(t, clipped, 40)
	assert.True(t, truncated)

	clipped, truncated = clipText("short", 10)
	assert.Equal(t, "short", clipped)
	assert.False(t, truncated)

	clipped, truncated = clipText(string(long), 0)
	assert.Equal(t, string(long), clipped)
	assert.False(t, truncated)
}

func TestBuildPromptAnchorsEntry(t *testing.T) {
	entry := testEntry(t, "Brian met Yoli at Twilight Florist.")

	prompt := buildPrompt(entry, "Brian met Yoli at Twilight Florist.", false, 8192)

	// The model needs the entry's literal id to emit entry-anchored edges.
	assert.Contains(t, prompt, "ENTRY_ID: "+entry.ID)
	assert.Contains(t, prompt, `set "source" to "`+entry.ID+`"`)
	assert.Contains(t, prompt, `"source_entry_id": "`+entry.ID+`"`)
	assert.Contains(t, prompt, "ENTRY_LABELS: [ENTRY]")
	assert.Contains(t, prompt, "Ignore pronouns")
	assert.Contains(t, prompt, "You may use up to 8192 tokens.")
	assert.NotContains(t, prompt, "truncated")

	prompt = buildPrompt(entry, "Brian met", true, 8192)
	assert.Contains(t, prompt, "truncated to 8192 tokens maximum")
}

func TestSourceTextPriority(t *testing.T) {
	entry := domain.Entity{
		Summary:  "summary text",
		Metadata: map[string]interface{}{"raw_text": "raw text"},
		Content:  &domain.ContentBlock{Format: domain.FormatText, Body: "content body"},
	}

	assert.Equal(t, "content body", sourceText(entry, map[string]interface{}{"text": "metadata text"}))

	entry.Content = nil
	assert.Equal(t, "summary text", sourceText(entry, map[string]interface{}{"text": "metadata text"}))

	entry.Summary = ""
	assert.Equal(t, "metadata text", sourceText(entry, map[string]interface{}{"text": "metadata text"}))

	assert.Equal(t, "raw text", sourceText(entry, nil))

	entry.Metadata = nil
	assert.Equal(t, "", sourceText(entry, nil))
}
