package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multipartEmail = `From: sender@example.com
To: list@groups.example.com
Subject: Multipart
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

Plain version.

--b1
Content-Type: text/html; charset=utf-8

<p>HTML version.</p>

--b1--
`

const attachmentEmail = `From: sender@example.com
Subject: With attachment
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b2"

--b2
Content-Type: text/plain; charset=utf-8

See attached.

--b2
Content-Type: text/plain; charset=utf-8
Content-Disposition: attachment; filename="notes.txt"

attached notes

--b2--
`

func TestDecompose_MultipartAlternative(t *testing.T) {
	d := Decompose([]byte(multipartEmail))

	require.Len(t, d.Parts, 2)
	assert.Contains(t, d.Body(), "Plain version.")
	assert.Contains(t, d.HTMLBody(), "HTML version.")
	assert.Zero(t, d.AttachmentCount())
}

func TestDecompose_AttachmentClassification(t *testing.T) {
	d := Decompose([]byte(attachmentEmail))

	require.Len(t, d.Parts, 2)
	assert.Contains(t, d.Body(), "See attached.")

	assert.False(t, d.Parts[0].IsAttachment())
	assert.True(t, d.Parts[1].IsAttachment())
	assert.Equal(t, "notes.txt", d.Parts[1].Filename)
	assert.Equal(t, 1, d.AttachmentCount())
}

func TestDecompose_PartMetadata(t *testing.T) {
	d := Decompose([]byte(attachmentEmail))

	att := d.Parts[1]
	assert.Equal(t, "text", att.MainType)
	assert.Equal(t, "plain", att.SubType)
	assert.NotEmpty(t, att.FileID)
	assert.NotEmpty(t, att.MD5)
	assert.Equal(t, len(att.Payload), att.Length)
}

func TestDecompose_TotalPayloadBytes(t *testing.T) {
	d := Decompose([]byte(attachmentEmail))

	total := 0
	for _, p := range d.Parts {
		total += p.Length
	}
	assert.Equal(t, total, d.TotalPayloadBytes())
	assert.Positive(t, total)
}

func TestDecompose_HeaderOrderPreserved(t *testing.T) {
	d := Decompose([]byte(multipartEmail))

	require.GreaterOrEqual(t, len(d.HeaderPairs), 4)
	assert.Equal(t, "From", d.HeaderPairs[0].Name)
	assert.Equal(t, "To", d.HeaderPairs[1].Name)
	assert.Equal(t, "Subject", d.HeaderPairs[2].Name)

	flat := d.FlattenedHeaders()
	assert.Contains(t, flat, "From: sender@example.com")
	assert.Contains(t, flat, "Subject: Multipart")
}

func TestDecompose_FoldedHeaderUnfolded(t *testing.T) {
	raw := "Subject: a long\n subject line\nFrom: a@example.com\n\nhi\n"
	d := Decompose([]byte(raw))

	assert.Equal(t, "a long subject line", d.HeaderPairs[0].Value)
}

func TestDecompose_GetHeaderCaseInsensitive(t *testing.T) {
	d := Decompose([]byte(multipartEmail))

	assert.Equal(t, "sender@example.com", d.GetHeader("from", ""))
	assert.Equal(t, "fallback", d.GetHeader("X-Missing", "fallback"))
}

func TestDecompose_GarbageInput(t *testing.T) {
	// Completely unparseable input degrades to a single text/plain record
	// rather than failing.
	d := Decompose([]byte("no headers here, just noise"))

	require.NotEmpty(t, d.Parts)
	assert.Equal(t, "text/plain", d.Parts[0].MimeType)
}

func TestDecompose_UndecodablePartStillRecorded(t *testing.T) {
	bad := `From: sender@example.com
Subject: Broken
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b3"

--b3
Content-Type: application/octet-stream
Content-Transfer-Encoding: base64
Content-Disposition: attachment; filename="blob.bin"

!!!! not valid base64 !!!!

--b3--
`
	d := Decompose([]byte(bad))

	require.NotEmpty(t, d.Parts)
	var blob *PartRecord
	for i := range d.Parts {
		if d.Parts[i].Filename == "blob.bin" {
			blob = &d.Parts[i]
		}
	}
	require.NotNil(t, blob, "undecodable attachment must still be recorded")
	assert.Equal(t, "application/octet-stream", blob.MimeType)
	assert.NotEmpty(t, blob.FileID)
}
