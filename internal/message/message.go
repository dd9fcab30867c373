// Package message turns a raw mailing-list email into a uniquely
// identified, deduplicated post record. Identity is a pure function of
// content: two structurally identical messages collide by design, which
// makes ingestion idempotent.
package message

import (
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/listmill/listmill/internal/hashid"
)

// SenderIDLookup resolves an email address to a user identifier. An empty
// return value means the sender is unknown.
type SenderIDLookup func(email string) string

// Option configures parsing.
type Option func(*Message)

// WithSenderLookup resolves the sender to a user ID during parsing.
func WithSenderLookup(lookup SenderIDLookup) Option {
	return func(m *Message) {
		m.senderLookup = lookup
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// StripSubject tidies a subject line: the bracketed list title is removed,
// whitespace runs are collapsed to a single space, and a single leading
// "re:" token is dropped when the remaining subject is longer than three
// characters. An empty subject becomes "No Subject".
func StripSubject(subject, listTitle string) string {
	subject = strings.TrimSpace(strings.ReplaceAll(subject, "["+listTitle+"]", ""))
	subject = strings.TrimSpace(whitespaceRun.ReplaceAllString(subject, " "))

	if strings.HasPrefix(strings.ToLower(subject), "re:") && len(subject) > 3 {
		subject = strings.TrimSpace(subject[3:])
	} else if len(subject) == 0 {
		subject = "No Subject"
	}
	return subject
}

// CompressSubject removes all whitespace and lower-cases the subject. The
// result is the topic-clustering key; it is never shown to users.
func CompressSubject(subject string) string {
	return strings.ToLower(whitespaceRun.ReplaceAllString(subject, ""))
}

// WordCounts tokenizes the body on whitespace and counts occurrences of
// lowercase-folded tokens between 3 and 18 characters that consist solely
// of ASCII letters. A best-effort signal for the search indexer, not a
// linguistically correct word count.
func WordCounts(body string) map[string]int {
	counts := map[string]int{}
	for _, word := range strings.Fields(body) {
		word = strings.ToLower(word)
		if len(word) < 3 || len(word) > 18 {
			continue
		}
		ok := true
		for i := 0; i < len(word); i++ {
			if word[i] < 'a' || word[i] > 'z' {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		counts[word]++
	}
	return counts
}

// Message is a fully derived post: identity, normalized subject, bodies,
// and the metadata the storage collaborator persists.
type Message struct {
	GroupID string
	SiteID  string

	PostID  string
	TopicID string

	Subject           string
	CompressedSubject string
	Body              string
	HTMLBody          string
	BodyMD5           string

	Sender    string
	SenderID  string
	To        string
	InReplyTo string
	Date      time.Time

	Headers         string
	Parts           []PartRecord
	AttachmentCount int

	senderLookup SenderIDLookup
}

// Parse decomposes a raw message and derives its identity within the given
// list context. It never fails on malformed input: decomposition degrades
// per part and identity is computed from whatever was extracted.
func Parse(raw []byte, listTitle, groupID, siteID string, opts ...Option) *Message {
	d := Decompose(raw)

	m := &Message{
		GroupID:         groupID,
		SiteID:          siteID,
		Body:            d.Body(),
		HTMLBody:        d.HTMLBody(),
		Headers:         d.FlattenedHeaders(),
		Parts:           d.Parts,
		AttachmentCount: d.AttachmentCount(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.Subject = StripSubject(d.GetHeader("Subject", ""), listTitle)
	m.CompressedSubject = CompressSubject(m.Subject)
	m.Sender = firstAddress(d.GetHeader("From", ""))
	m.To = firstAddress(d.GetHeader("To", ""))
	m.InReplyTo = d.GetHeader("In-Reply-To", "")
	m.Date = parseDate(d.GetHeader("Date", ""))
	m.BodyMD5 = hashid.MD5Hex([]byte(m.Body))

	if m.senderLookup != nil {
		m.SenderID = m.senderLookup(m.Sender)
	}

	// Two posts share a topic iff the compressed subject, group and site
	// are all identical.
	m.TopicID = hashid.Hash(hashid.Join(m.CompressedSubject, m.GroupID, m.SiteID))

	// Two messages collide into the same post iff the topic, subject, body
	// digest, sender, in-reply-to and total attachment size all match.
	// Reposting byte-identical content is a no-op, not an error.
	m.PostID = hashid.Hash(hashid.Join(
		m.TopicID,
		m.Subject,
		m.BodyMD5,
		m.Sender,
		m.InReplyTo,
		strconv.Itoa(d.TotalPayloadBytes()),
	))

	return m
}

// Title is a display name for the message.
func (m *Message) Title() string {
	return m.Subject + " / " + m.Sender
}

// WordCount tokenizes the plain body for the search-index collaborator.
func (m *Message) WordCount() map[string]int {
	return WordCounts(m.Body)
}

func firstAddress(header string) string {
	if header == "" {
		return ""
	}
	addrs, err := mail.ParseAddressList(header)
	if err != nil || len(addrs) == 0 {
		return strings.TrimSpace(header)
	}
	return addrs[0].Address
}

func parseDate(header string) time.Time {
	header = strings.TrimSpace(header)
	if header != "" {
		if t, err := mail.ParseDate(header); err == nil {
			return t
		}
	}
	return time.Now()
}
