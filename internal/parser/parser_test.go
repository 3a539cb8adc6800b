package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prism/internal/analysis"
	"prism/internal/llmclient"
)

func TestParse_PlainText(t *testing.T) {
	doc, err := Parse("paper.txt", []byte("  Abstract. We study things.  "))
	require.NoError(t, err)
	assert.Equal(t, "paper.txt", doc.Name)
	assert.Equal(t, "Abstract. We study things.", doc.Text)
	assert.Empty(t, doc.Images)
}

func TestParse_EmptyTextRejected(t *testing.T) {
	_, err := Parse("empty.md", []byte("   \n\t "))
	require.ErrorIs(t, err, ErrNoText)
}

func TestParse_ImageBecomesAttachment(t *testing.T) {
	data := []byte{0x89, 0x50, 0x4e, 0x47}
	doc, err := Parse("figure1.png", data)
	require.NoError(t, err)
	assert.Empty(t, doc.Text)
	require.Len(t, doc.Images, 1)
	assert.Equal(t, "image/png", doc.Images[0].MIMEType)
	assert.Equal(t, data, doc.Images[0].Data)
}

func TestParse_JPEGExtensions(t *testing.T) {
	for _, name := range []string{"f.jpg", "f.JPEG"} {
		doc, err := Parse(name, []byte{0xff, 0xd8})
		require.NoError(t, err)
		require.Len(t, doc.Images, 1)
		assert.Equal(t, "image/jpeg", doc.Images[0].MIMEType)
	}
}

func TestMerge_AttachesImagesToFirstTextDocument(t *testing.T) {
	docs := []analysis.Document{
		{Name: "fig.png", Images: []llmclient.Attachment{{MIMEType: "image/png"}}},
		{Name: "paper.txt", Text: "body"},
		{Name: "fig2.png", Images: []llmclient.Attachment{{MIMEType: "image/png"}}},
	}
	merged := Merge(docs)
	require.Len(t, merged, 1)
	assert.Equal(t, "paper.txt", merged[0].Name)
	assert.Len(t, merged[0].Images, 2)
}

func TestMerge_ImagesOnlyYieldsNothing(t *testing.T) {
	merged := Merge([]analysis.Document{
		{Name: "fig.png", Images: []llmclient.Attachment{{MIMEType: "image/png"}}},
	})
	assert.Empty(t, merged)
}
