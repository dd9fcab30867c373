package message

import (
	"bytes"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/listmill/listmill/internal/hashid"
)

// PartRecord is one leaf payload of a decomposed message. Every leaf of the
// MIME tree becomes a record, including the plain-text and HTML bodies; true
// attachments are the records carrying a filename.
type PartRecord struct {
	Payload   []byte
	FileID    string
	Filename  string
	Length    int
	MD5       string
	Charset   string
	MainType  string
	SubType   string
	MimeType  string
	ContentID string
}

// IsAttachment reports whether the record is a true attachment rather than
// a message body.
func (p PartRecord) IsAttachment() bool {
	return p.Filename != ""
}

// HeaderPair is a single raw header, order-preserved.
type HeaderPair struct {
	Name  string
	Value string
}

// Decomposed is the result of pulling a raw message apart: the ordered raw
// headers, decoded header access, and the flat list of leaf payloads.
type Decomposed struct {
	HeaderPairs []HeaderPair
	Parts       []PartRecord

	envelope *enmime.Envelope
}

// Decompose parses a raw message into headers and leaf payloads. Malformed
// MIME never aborts decomposition: a part whose payload cannot be decoded is
// still recorded, with an empty payload and its stated MIME type, so that
// identity hashing can proceed from the metadata. A message that cannot be
// parsed at all degrades to a single text/plain record holding the raw body.
func Decompose(raw []byte) *Decomposed {
	d := &Decomposed{
		HeaderPairs: parseRawHeaders(raw),
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil || env.Root == nil {
		d.Parts = []PartRecord{newPartRecord(rawBody(raw), "", "text/plain", "", "")}
		return d
	}
	d.envelope = env

	for _, part := range leafParts(env.Root) {
		contentType := part.ContentType
		if contentType == "" {
			contentType = "text/plain"
		}
		d.Parts = append(d.Parts, newPartRecord(
			part.Content, part.FileName, contentType, part.Charset, part.ContentID))
	}
	return d
}

// GetHeader returns the decoded value of a header, or the default when the
// header is absent.
func (d *Decomposed) GetHeader(name, def string) string {
	if d.envelope != nil {
		if v := d.envelope.GetHeader(name); v != "" {
			return v
		}
	}
	for _, h := range d.HeaderPairs {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return def
}

// FlattenedHeaders renders the raw headers as "Name: value" lines, in their
// original order.
func (d *Decomposed) FlattenedHeaders() string {
	lines := make([]string, 0, len(d.HeaderPairs))
	for _, h := range d.HeaderPairs {
		lines = append(lines, h.Name+": "+h.Value)
	}
	return strings.Join(lines, "\n")
}

// Body returns the plain-text body: the first leaf without a filename whose
// subtype is not HTML.
func (d *Decomposed) Body() string {
	for _, p := range d.Parts {
		if p.Filename == "" && p.SubType != "html" {
			return string(p.Payload)
		}
	}
	return ""
}

// HTMLBody returns the HTML body: the first leaf without a filename whose
// subtype is HTML.
func (d *Decomposed) HTMLBody() string {
	for _, p := range d.Parts {
		if p.Filename == "" && p.SubType == "html" {
			return string(p.Payload)
		}
	}
	return ""
}

// AttachmentCount counts the leaves that carry a filename.
func (d *Decomposed) AttachmentCount() int {
	count := 0
	for _, p := range d.Parts {
		if p.IsAttachment() {
			count++
		}
	}
	return count
}

// TotalPayloadBytes sums the length of every leaf payload, bodies included.
func (d *Decomposed) TotalPayloadBytes() int {
	total := 0
	for _, p := range d.Parts {
		total += p.Length
	}
	return total
}

func newPartRecord(payload []byte, filename, contentType, charset, contentID string) PartRecord {
	mainType, subType := splitContentType(contentType)
	fileID, length, payloadMD5 := hashid.FileID(payload, contentType)
	return PartRecord{
		Payload:   payload,
		FileID:    fileID,
		Filename:  filename,
		Length:    length,
		MD5:       payloadMD5,
		Charset:   charset,
		MainType:  mainType,
		SubType:   subType,
		MimeType:  contentType,
		ContentID: contentID,
	}
}

func splitContentType(contentType string) (mainType, subType string) {
	mainType, subType, found := strings.Cut(contentType, "/")
	if !found {
		return contentType, ""
	}
	if i := strings.IndexByte(subType, ';'); i >= 0 {
		subType = strings.TrimSpace(subType[:i])
	}
	return mainType, subType
}

// leafParts walks the MIME tree depth-first and returns the leaves in
// document order.
func leafParts(root *enmime.Part) []*enmime.Part {
	var leaves []*enmime.Part
	var walk func(p *enmime.Part)
	walk = func(p *enmime.Part) {
		if p.FirstChild == nil {
			leaves = append(leaves, p)
			return
		}
		for child := p.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return leaves
}

// parseRawHeaders reads the raw header block, preserving order and
// duplicates. Continuation lines are unfolded with a single space.
func parseRawHeaders(raw []byte) []HeaderPair {
	var pairs []HeaderPair
	for _, line := range strings.Split(headerBlock(raw), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if len(pairs) > 0 {
				pairs[len(pairs)-1].Value += " " + strings.TrimSpace(line)
			}
			continue
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		pairs = append(pairs, HeaderPair{Name: name, Value: strings.TrimSpace(value)})
	}
	return pairs
}

func headerBlock(raw []byte) string {
	s := string(raw)
	for _, sep := range []string{"\r\n\r\n", "\n\n"} {
		if i := strings.Index(s, sep); i >= 0 {
			return s[:i]
		}
	}
	return s
}

func rawBody(raw []byte) []byte {
	s := string(raw)
	for _, sep := range []string{"\r\n\r\n", "\n\n"} {
		if i := strings.Index(s, sep); i >= 0 {
			return []byte(s[i+len(sep):])
		}
	}
	return nil
}
