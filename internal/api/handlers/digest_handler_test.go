package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/listmill/listmill/internal/models"
	"github.com/listmill/listmill/internal/repository"
)

// DigestHandlerTestSuite is the test suite for DigestHandler
type DigestHandlerTestSuite struct {
	suite.Suite
	echo    *echo.Echo
	db      *gorm.DB
	lists   repository.ListRepository
	posts   repository.PostRepository
	handler *DigestHandler
}

// SetupSuite runs once before all tests
func (s *DigestHandlerTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(s.T(), err)

	err = db.AutoMigrate(
		&models.List{}, &models.Topic{}, &models.TopicWordCount{},
		&models.Post{}, &models.FileRecord{}, &models.GroupDigest{},
	)
	require.NoError(s.T(), err)

	s.db = db
	s.lists = repository.NewListRepository(db)
	s.posts = repository.NewPostRepository(db)
}

// TearDownSuite runs once after all tests
func (s *DigestHandlerTestSuite) TearDownSuite() {
	sqlDB, _ := s.db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SetupTest runs before each test
func (s *DigestHandlerTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM group_digests")
	s.db.Exec("DELETE FROM file_records")
	s.db.Exec("DELETE FROM posts")
	s.db.Exec("DELETE FROM topic_word_counts")
	s.db.Exec("DELETE FROM topics")
	s.db.Exec("DELETE FROM lists")

	s.echo = echo.New()
	s.handler = NewDigestHandler(repository.NewDigestRepository(s.db), s.lists)
}

// TestDigestHandlerTestSuite runs the test suite
func TestDigestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(DigestHandlerTestSuite))
}

func (s *DigestHandlerTestSuite) createContext(method, path string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(""))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	return c, rec
}

func (s *DigestHandlerTestSuite) seedActiveGroup(groupID string) {
	ctx := context.Background()
	require.NoError(s.T(), s.lists.Create(ctx, &models.List{
		GroupID: groupID, SiteID: "example.com", Title: "Dev Chatter",
		Mailto: groupID + "@lists.example.com",
	}))
	created, err := s.posts.InsertPost(ctx, &models.Post{
		PostID:  groupID + "-post", TopicID: groupID + "-topic",
		GroupID: groupID, SiteID: "example.com",
		Sender: "alice@example.com", Subject: "hello",
		Date: time.Now().UTC().Add(-time.Hour), Body: "hello",
	}, nil)
	require.NoError(s.T(), err)
	require.True(s.T(), created)
}

func (s *DigestHandlerTestSuite) TestDue_ActiveGroupListed() {
	s.seedActiveGroup("dev")

	c, rec := s.createContext(http.MethodGet, "/api/digests/due")

	err := s.handler.Due(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			GroupIDs []string `json:"group_ids"`
		} `json:"data"`
	}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal([]string{"dev"}, resp.Data.GroupIDs)
}

func (s *DigestHandlerTestSuite) TestDue_EmptyWhenNothingPending() {
	c, rec := s.createContext(http.MethodGet, "/api/digests/due")

	err := s.handler.Due(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			GroupIDs []string `json:"group_ids"`
		} `json:"data"`
	}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Empty(resp.Data.GroupIDs)
}

func (s *DigestHandlerTestSuite) TestMarkSent_ClearsGroupFromDue() {
	s.seedActiveGroup("dev")

	c, rec := s.createContext(http.MethodPost, "/api/digests/dev/sent")
	c.SetParamNames("group_id")
	c.SetParamValues("dev")

	err := s.handler.MarkSent(c)

	s.NoError(err)
	s.Equal(http.StatusOK, rec.Code)

	c2, rec2 := s.createContext(http.MethodGet, "/api/digests/due")
	require.NoError(s.T(), s.handler.Due(c2))

	var resp struct {
		Data struct {
			GroupIDs []string `json:"group_ids"`
		} `json:"data"`
	}
	require.NoError(s.T(), json.Unmarshal(rec2.Body.Bytes(), &resp))
	s.Empty(resp.Data.GroupIDs)
}

func (s *DigestHandlerTestSuite) TestMarkSent_UnknownGroup() {
	c, rec := s.createContext(http.MethodPost, "/api/digests/ghost/sent")
	c.SetParamNames("group_id")
	c.SetParamValues("ghost")

	err := s.handler.MarkSent(c)

	s.NoError(err)
	s.Equal(http.StatusNotFound, rec.Code)
}
