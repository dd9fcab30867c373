package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/listmill/listmill/internal/errors"
	"github.com/listmill/listmill/internal/models"
)

// PostRepository defines the interface for post and topic data access
type PostRepository interface {
	// InsertPost persists a post together with its topic bookkeeping in one
	// transaction: the topic is created on the first post carrying its id,
	// otherwise its post count and last-post fields advance. Word counts are
	// merged into the topic's accumulated counts. Returns false when the
	// post already exists; content-addressed ids make that a no-op.
	InsertPost(ctx context.Context, post *models.Post, wordCounts map[string]int) (bool, error)
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	GetTopic(ctx context.Context, topicID string) (*models.Topic, error)
	LatestPosts(ctx context.Context, groupID string, limit, offset int) ([]models.PostListItem, int64, error)
	LatestTopics(ctx context.Context, groupID string, limit, offset int) ([]models.Topic, int64, error)
	PostsForTopic(ctx context.Context, topicID string) ([]models.Post, error)
	PostCount(ctx context.Context, groupID string) (int64, error)
	TopicCount(ctx context.Context, groupID string) (int64, error)
	TopicIDForPost(ctx context.Context, postID string) (string, error)
	// DeletePost removes a post and rolls the topic bookkeeping back,
	// deleting the topic when its last post goes.
	DeletePost(ctx context.Context, postID string) error
}

// postRepository implements PostRepository using GORM
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new PostRepository instance
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) InsertPost(ctx context.Context, post *models.Post, wordCounts map[string]int) (bool, error) {
	if post.PostID == "" || post.TopicID == "" {
		return false, fmt.Errorf("post is missing identity fields: %w", apperrors.ErrInvalidInput)
	}

	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Post
		err := tx.Select("post_id").Where("post_id = ?", post.PostID).First(&existing).Error
		if err == nil {
			// Same content hashed to the same post id; ingestion is
			// idempotent so this is not an error.
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check for existing post: %w", err)
		}

		// Topic rows go in first so the post's topic reference is always
		// satisfiable.
		var topic models.Topic
		err = tx.Where("topic_id = ?", post.TopicID).First(&topic).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			topic = models.Topic{
				TopicID:         post.TopicID,
				GroupID:         post.GroupID,
				SiteID:          post.SiteID,
				OriginalSubject: post.Subject,
				FirstPostID:     post.PostID,
				LastPostID:      post.PostID,
				LastPostDate:    post.Date,
				PostCount:       1,
			}
			if err := tx.Create(&topic).Error; err != nil {
				return fmt.Errorf("failed to create topic: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to load topic: %w", err)
		default:
			if topic.GroupID == "" || topic.FirstPostID == "" {
				return fmt.Errorf("topic %s has missing required fields: %w",
					topic.TopicID, apperrors.ErrInvariant)
			}
			updates := map[string]interface{}{
				"post_count":     gorm.Expr("post_count + 1"),
				"last_post_id":   post.PostID,
				"last_post_date": post.Date,
			}
			if err := tx.Model(&models.Topic{}).Where("topic_id = ?", topic.TopicID).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update topic: %w", err)
			}
		}

		if err := tx.Create(post).Error; err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}
		created = true

		return mergeWordCounts(tx, post.TopicID, wordCounts)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// mergeWordCounts upserts the per-word counters accumulated on the topic.
func mergeWordCounts(tx *gorm.DB, topicID string, wordCounts map[string]int) error {
	for word, count := range wordCounts {
		row := models.TopicWordCount{TopicID: topicID, Word: word, Count: count}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "topic_id"}, {Name: "word"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count": gorm.Expr("count + ?", count),
			}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to merge word count for %q: %w", word, err)
		}
	}
	return nil
}

func (r *postRepository) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	result := r.db.WithContext(ctx).Preload("Files").Where("post_id = ?", postID).First(&post)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", result.Error)
	}
	return &post, nil
}

func (r *postRepository) GetTopic(ctx context.Context, topicID string) (*models.Topic, error) {
	var topic models.Topic
	result := r.db.WithContext(ctx).Where("topic_id = ?", topicID).First(&topic)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTopicNotFound
		}
		return nil, fmt.Errorf("failed to get topic: %w", result.Error)
	}
	return &topic, nil
}

// LatestPosts retrieves a group's posts ordered by date descending
func (r *postRepository) LatestPosts(ctx context.Context, groupID string, limit, offset int) ([]models.PostListItem, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("group_id = ?", groupID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	var results []models.PostListItem
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Select("post_id, topic_id, group_id, sender_id, sender, subject, date, attachment_count").
		Where("group_id = ?", groupID).
		Order("date DESC").
		Limit(limit).Offset(offset).
		Scan(&results).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}
	return results, total, nil
}

// LatestTopics retrieves a group's topics ordered by last post date descending
func (r *postRepository) LatestTopics(ctx context.Context, groupID string, limit, offset int) ([]models.Topic, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Topic{}).Where("group_id = ?", groupID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count topics: %w", err)
	}

	var topics []models.Topic
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("last_post_date DESC").
		Limit(limit).Offset(offset).
		Find(&topics).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list topics: %w", err)
	}
	return topics, total, nil
}

// PostsForTopic retrieves a topic's posts in chronological order
func (r *postRepository) PostsForTopic(ctx context.Context, topicID string) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Where("topic_id = ?", topicID).
		Order("date ASC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list topic posts: %w", err)
	}
	return posts, nil
}

func (r *postRepository) PostCount(ctx context.Context, groupID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Where("group_id = ?", groupID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

func (r *postRepository) TopicCount(ctx context.Context, groupID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Topic{}).Where("group_id = ?", groupID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count topics: %w", err)
	}
	return count, nil
}

func (r *postRepository) TopicIDForPost(ctx context.Context, postID string) (string, error) {
	var post models.Post
	result := r.db.WithContext(ctx).Select("topic_id").Where("post_id = ?", postID).First(&post)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrPostNotFound
		}
		return "", fmt.Errorf("failed to look up topic for post: %w", result.Error)
	}
	return post.TopicID, nil
}

func (r *postRepository) DeletePost(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		err := tx.Where("post_id = ?", postID).First(&post).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrPostNotFound
			}
			return fmt.Errorf("failed to load post for deletion: %w", err)
		}

		if err := tx.Where("post_id = ?", postID).Delete(&models.FileRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete post files: %w", err)
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Post{}).Error; err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}

		var topic models.Topic
		err = tx.Where("topic_id = ?", post.TopicID).First(&topic).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to load topic for deletion: %w", err)
		}

		if topic.PostCount <= 1 {
			if err := tx.Where("topic_id = ?", topic.TopicID).Delete(&models.TopicWordCount{}).Error; err != nil {
				return fmt.Errorf("failed to delete topic word counts: %w", err)
			}
			if err := tx.Where("topic_id = ?", topic.TopicID).Delete(&models.Topic{}).Error; err != nil {
				return fmt.Errorf("failed to delete empty topic: %w", err)
			}
			return nil
		}

		updates := map[string]interface{}{
			"post_count": gorm.Expr("post_count - 1"),
		}
		if topic.LastPostID == postID {
			var last models.Post
			err := tx.Where("topic_id = ?", topic.TopicID).Order("date DESC").First(&last).Error
			if err != nil {
				return fmt.Errorf("failed to find new last post: %w", err)
			}
			updates["last_post_id"] = last.PostID
			updates["last_post_date"] = last.Date
		}
		if err := tx.Model(&models.Topic{}).Where("topic_id = ?", topic.TopicID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update topic after deletion: %w", err)
		}
		return nil
	})
}
