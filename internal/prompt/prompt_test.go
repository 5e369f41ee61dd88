package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/browseruse/types"
)

func TestBuild_Search(t *testing.T) {
	got, err := Build(ActionSearch, "cats", nil)
	require.NoError(t, err)
	assert.Equal(t, "Search for 'cats' on Google and return the top 3 results with titles and URLs", got)
}

func TestBuild_Scrape(t *testing.T) {
	got, err := Build(ActionScrape, "https://example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "Go to https://example.com and extract the main content, headings, and key information from the page", got)
}

func TestBuild_Click(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want string
	}{
		{
			name: "default element",
			data: nil,
			want: "Go to https://example.com and click on the element: submit button",
		},
		{
			name: "named element",
			data: map[string]any{"element": "login button"},
			want: "Go to https://example.com and click on the element: login button",
		},
		{
			name: "non-string element falls back",
			data: map[string]any{"element": 42},
			want: "Go to https://example.com and click on the element: submit button",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build(ActionClick, "https://example.com", tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuild_FillForm(t *testing.T) {
	got, err := Build(ActionFillForm, "http://x", map[string]any{"field": "value"})
	require.NoError(t, err)
	assert.Equal(t, `Go to http://x and fill out the form with this data: {"field":"value"}`, got)

	// nil data serializes as an empty object, not null.
	got, err = Build(ActionFillForm, "http://x", nil)
	require.NoError(t, err)
	assert.Equal(t, "Go to http://x and fill out the form with this data: {}", got)
}

func TestBuild_Unsupported(t *testing.T) {
	_, err := Build(Action("bogus"), "anything", nil)
	require.Error(t, err)

	var typed *types.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, types.ErrUnsupportedAction, typed.Code)
	assert.Contains(t, typed.Message, "bogus")
	assert.Equal(t, 400, typed.HTTPStatus)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported(ActionSearch))
	assert.True(t, Supported(ActionFillForm))
	assert.False(t, Supported(Action("bogus")))
	assert.False(t, Supported(Action("")))
}
