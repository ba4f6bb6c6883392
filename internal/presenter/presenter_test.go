package presenter

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"sjsage522/passoworker/internal/crawler"
	"sjsage522/passoworker/services/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestRenderList(t *testing.T) {
	var out bytes.Buffer
	p := New(&out, &out, FormatText)

	err := p.RenderList([]crawler.MatchSummary{
		{Index: 0, Title: "Galatasaray - Fenerbahçe", Date: "12 Ekim", Location: "RAMS Park"},
		{Index: 1, Title: "No Title", Date: "No Date", Location: "No Location"},
	})

	require.NoError(t, err)
	s := out.String()
	assert.Contains(t, s, "EVENT NAME")
	assert.Contains(t, s, "Galatasaray - Fenerbahçe")
	assert.Contains(t, s, "No Location")
	assert.Contains(t, s, "2 MATCHES")
}

func TestRenderDetail(t *testing.T) {
	var out bytes.Buffer
	p := New(&out, &out, FormatText)

	require.NoError(t, p.RenderDetail(&crawler.MatchDetail{
		Venue:      "RAMS Park",
		Categories: []string{"Kategori 1", "Misafir"},
	}))

	s := out.String()
	assert.Contains(t, s, "DATE: N/A")
	assert.Contains(t, s, "VENUE: RAMS Park")
	assert.Contains(t, s, "Kategori 1")
	assert.Contains(t, s, "Misafir")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("CATEGORIES:")), bytes.Index(out.Bytes(), []byte("Kategori 1")))
}

func TestRenderDetail_NoCategories(t *testing.T) {
	var out bytes.Buffer
	p := New(&out, &out, FormatText)

	require.NoError(t, p.RenderDetail(&crawler.MatchDetail{Date: "1 Kasım", Categories: []string{}}))

	assert.Contains(t, out.String(), "CATEGORIES:\n  N/A\n")
}

func TestRenderJSON(t *testing.T) {
	var out bytes.Buffer
	p := New(&out, &out, FormatJSON)

	require.NoError(t, p.RenderDetail(&crawler.MatchDetail{Categories: []string{}}))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, []interface{}{}, got["categories"])
	assert.NotContains(t, got, "venue")
}

func TestHandle(t *testing.T) {
	var out, status bytes.Buffer
	p := New(&out, &status, FormatText)

	require.NoError(t, p.Handle(worker.Event{Kind: worker.EventLogLine, Message: "Listing matches..."}))
	require.NoError(t, p.Handle(worker.Event{
		Kind:    worker.EventErrorOccurred,
		Message: "Error fetching match list: boom",
		Err:     errors.New("boom"),
	}))

	assert.Empty(t, out.String())
	assert.Contains(t, status.String(), "» Listing matches...")
	assert.Contains(t, status.String(), "Error fetching match list: boom")
	assert.Contains(t, status.String(), "An error occurred:")
}
