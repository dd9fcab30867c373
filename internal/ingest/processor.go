// Package ingest turns raw inbound email into stored posts and feeds
// delivery-failure reports through bounce escalation.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/listmill/listmill/internal/keylock"
	"github.com/listmill/listmill/internal/logger"
	"github.com/listmill/listmill/internal/message"
	"github.com/listmill/listmill/internal/models"
	"github.com/listmill/listmill/internal/repository"
	"github.com/listmill/listmill/internal/storage"
	"github.com/listmill/listmill/internal/websocket"
)

// Broadcaster pushes new-post events to subscribed clients.
type Broadcaster interface {
	BroadcastNewPost(groupID string, payload *websocket.NewPostPayload)
}

// Result describes one processed message.
type Result struct {
	PostID          string `json:"post_id"`
	TopicID         string `json:"topic_id"`
	GroupID         string `json:"group_id"`
	Created         bool   `json:"created"`
	AttachmentCount int    `json:"attachment_count"`
}

// BatchItem pairs one batch entry with its outcome. A failed item never
// aborts the rest of the batch.
type BatchItem struct {
	Index  int     `json:"index"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Processor ingests raw messages for a mailing list: decompose, derive
// identity, persist post/topic/word counts/file payloads, then notify
// websocket subscribers.
type Processor struct {
	lists   repository.ListRepository
	posts   repository.PostRepository
	members repository.MemberRepository
	files   storage.FileStorage
	hub     Broadcaster
	audit   *logger.SecurityLogger

	// Serializes the create-vs-increment decision per topic so concurrent
	// messages hashing to the same topic cannot both create it.
	locks *keylock.KeyLock
}

// NewProcessor creates a Processor. files and hub may be nil; attachments
// are then recorded without payload storage and no events are broadcast.
func NewProcessor(
	lists repository.ListRepository,
	posts repository.PostRepository,
	members repository.MemberRepository,
	files storage.FileStorage,
	hub Broadcaster,
	audit *logger.SecurityLogger,
) *Processor {
	return &Processor{
		lists:   lists,
		posts:   posts,
		members: members,
		files:   files,
		hub:     hub,
		audit:   audit,
		locks:   keylock.New(),
	}
}

// ProcessRaw resolves the list a message was addressed to and processes it.
func (p *Processor) ProcessRaw(ctx context.Context, raw []byte, mailto string) (*Result, error) {
	list, err := p.lists.GetByMailto(ctx, mailto)
	if err != nil {
		return nil, fmt.Errorf("resolving list for <%s>: %w", mailto, err)
	}
	return p.Process(ctx, raw, list)
}

// Process ingests one raw message for the given list. Malformed input is not
// an error: decomposition degrades per part and the best achievable post is
// stored. Re-ingesting byte-identical content hits the same post id and is
// reported with Created=false.
func (p *Processor) Process(ctx context.Context, raw []byte, list *models.List) (*Result, error) {
	if list == nil {
		return nil, fmt.Errorf("process: nil list")
	}

	var opts []message.Option
	if p.members != nil {
		opts = append(opts, message.WithSenderLookup(func(email string) string {
			id, err := p.members.UserIDByEmail(ctx, email)
			if err != nil {
				return ""
			}
			return id
		}))
	}

	msg := message.Parse(raw, list.Title, list.GroupID, list.SiteID, opts...)

	post := &models.Post{
		PostID:            msg.PostID,
		TopicID:           msg.TopicID,
		GroupID:           msg.GroupID,
		SiteID:            msg.SiteID,
		SenderID:          msg.SenderID,
		Sender:            msg.Sender,
		Subject:           msg.Subject,
		CompressedSubject: msg.CompressedSubject,
		InReplyTo:         msg.InReplyTo,
		Date:              msg.Date,
		Body:              msg.Body,
		HTMLBody:          msg.HTMLBody,
		Headers:           msg.Headers,
		AttachmentCount:   msg.AttachmentCount,
		Files:             p.storeAttachments(msg),
	}

	// The topic create-or-increment read-then-write must be atomic per
	// topic id.
	unlock := p.locks.Lock(msg.TopicID)
	created, err := p.posts.InsertPost(ctx, post, msg.WordCount())
	unlock()
	if err != nil {
		return nil, fmt.Errorf("storing post %s: %w", msg.PostID, err)
	}

	if created {
		if p.audit != nil {
			p.audit.PostAccepted(msg.PostID, msg.TopicID, msg.GroupID, msg.Sender)
		}
		if p.hub != nil {
			p.hub.BroadcastNewPost(msg.GroupID, &websocket.NewPostPayload{
				PostID:  msg.PostID,
				TopicID: msg.TopicID,
				GroupID: msg.GroupID,
				Sender:  msg.Sender,
				Subject: msg.Subject,
				Date:    msg.Date,
			})
		}
	}

	return &Result{
		PostID:          msg.PostID,
		TopicID:         msg.TopicID,
		GroupID:         msg.GroupID,
		Created:         created,
		AttachmentCount: msg.AttachmentCount,
	}, nil
}

// ProcessBatch ingests a batch of raw messages for one list, degrading per
// item: a bad message is reported in its BatchItem and the rest continue.
func (p *Processor) ProcessBatch(ctx context.Context, raws [][]byte, list *models.List) []BatchItem {
	items := make([]BatchItem, 0, len(raws))
	for i, raw := range raws {
		item := BatchItem{Index: i}
		result, err := p.Process(ctx, raw, list)
		if err != nil {
			item.Error = err.Error()
			if p.audit != nil {
				p.audit.Error("batch item failed",
					slog.Int("index", i),
					slog.String("group_id", list.GroupID),
					slog.String("error", err.Error()))
			}
		} else {
			item.Result = result
		}
		items = append(items, item)
	}
	return items
}

// storeAttachments writes true attachment payloads to file storage and
// returns the file records to persist with the post. A payload that cannot
// be stored is still recorded with its metadata, matching the rule that one
// bad attachment never aborts ingestion.
func (p *Processor) storeAttachments(msg *message.Message) []models.FileRecord {
	var records []models.FileRecord
	for _, part := range msg.Parts {
		if !part.IsAttachment() {
			continue
		}
		record := models.FileRecord{
			FileID:    part.FileID,
			PostID:    msg.PostID,
			Filename:  part.Filename,
			MimeType:  part.MimeType,
			Charset:   part.Charset,
			ContentID: part.ContentID,
			Length:    part.Length,
			MD5:       part.MD5,
		}
		if p.files != nil && len(part.Payload) > 0 {
			if err := storage.ValidateFile(part.Filename, int64(part.Length)); err != nil {
				if p.audit != nil {
					p.audit.BlockedFileUpload("smtp", part.Filename, err.Error())
				}
			} else {
				path, err := p.files.Save(part.Filename, bytes.NewReader(part.Payload))
				if err != nil {
					if p.audit != nil {
						p.audit.Error("attachment storage failed",
							slog.String("filename", part.Filename),
							slog.String("error", err.Error()))
					}
				} else {
					record.FilePath = path
				}
			}
		}
		records = append(records, record)
	}
	return records
}
