package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpress/bookchat/internal/core/domain"
	"github.com/mcpress/bookchat/internal/core/ports/driving"
)

func TestSearchCommand(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
	assert.NotNil(t, searchCmd.Flags().Lookup("json"))
}

func TestSearchTableOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	searchJSON = false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search", "subfiles in RPG"})

	err := rootCmd.Execute()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "threshold 0.70")
	assert.Contains(t, out, "subfiles.pdf, p. 42")
	assert.Contains(t, out, "distance 0.300")
	assert.Contains(t, out, "Confidence: 0.700")
}

func TestSearchJSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	searchJSON = false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search", "subfiles in RPG", "--json"})

	err := rootCmd.Execute()
	require.NoError(t, err)
	searchJSON = false

	var out searchOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "subfiles in RPG", out.Query)
	assert.InDelta(t, 0.70, out.Threshold, 1e-9)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "subfiles.pdf", out.Results[0].Filename)
	assert.Equal(t, "42", out.Results[0].Page)
	assert.True(t, out.Results[0].TrueVector)
}

func TestSearchSnippetMultibyte(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	searchJSON = false

	content := strings.Repeat("画", 150)
	retrievalService = &mockRetrievalService{
		retrieval: &driving.Retrieval{
			Results: []domain.SearchResult{
				{
					Content:  content,
					Metadata: domain.ChunkMetadata{Filename: "kanji.pdf", Type: domain.ChunkTypeText},
					Distance: 0.2,
				},
			},
			Threshold: 0.50,
		},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search", "anything"})

	err := rootCmd.Execute()
	require.NoError(t, err)

	// The snippet is cut at 120 runes, never mid-character.
	assert.True(t, utf8.ValidString(buf.String()))
	assert.Contains(t, buf.String(), strings.Repeat("画", 120)+"...")
	assert.NotContains(t, buf.String(), strings.Repeat("画", 121))
}

func TestSearchNoResults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	searchJSON = false

	retrievalService = &mockRetrievalService{
		retrieval: &driving.Retrieval{Threshold: 0.50},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search", "nothing matches this"})

	err := rootCmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No results above the relevance threshold.")
}

func TestSearchServiceError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	searchJSON = false

	retrievalService = &mockRetrievalService{err: errMockService}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search", "anything"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search failed")
}

func TestSearchServiceNotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	searchJSON = false

	retrievalService = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search", "anything"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestSearchRequiresQuery(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	searchJSON = false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search"})

	err := rootCmd.Execute()
	require.Error(t, err)
}
