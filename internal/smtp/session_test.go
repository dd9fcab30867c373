package smtp

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/listmill/listmill/internal/bounce"
	"github.com/listmill/listmill/internal/ingest"
	"github.com/listmill/listmill/internal/logger"
	"github.com/listmill/listmill/internal/models"
	"github.com/listmill/listmill/internal/repository"
)

// SessionTestSuite is the test suite for the SMTP session
type SessionTestSuite struct {
	suite.Suite
	db      *gorm.DB
	lists   repository.ListRepository
	posts   repository.PostRepository
	members repository.MemberRepository
	backend *Backend
}

// SetupSuite runs once before all tests
func (s *SessionTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(s.T(), err)

	err = db.AutoMigrate(
		&models.List{}, &models.Topic{}, &models.TopicWordCount{},
		&models.Post{}, &models.FileRecord{}, &models.UserEmail{},
		&models.BounceEvent{},
	)
	require.NoError(s.T(), err)

	s.db = db
	s.lists = repository.NewListRepository(db)
	s.posts = repository.NewPostRepository(db)
	s.members = repository.NewMemberRepository(db)
}

// TearDownSuite runs once after all tests
func (s *SessionTestSuite) TearDownSuite() {
	sqlDB, _ := s.db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SetupTest runs before each test
func (s *SessionTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM bounce_events")
	s.db.Exec("DELETE FROM file_records")
	s.db.Exec("DELETE FROM posts")
	s.db.Exec("DELETE FROM topic_word_counts")
	s.db.Exec("DELETE FROM topics")
	s.db.Exec("DELETE FROM user_emails")
	s.db.Exec("DELETE FROM lists")

	ctx := context.Background()
	require.NoError(s.T(), s.lists.Create(ctx, &models.List{
		GroupID: "dev", SiteID: "example.com", Title: "Dev Chatter",
		Mailto: "dev@lists.example.com",
	}))
	require.NoError(s.T(), s.members.AddEmail(ctx, "user-1", "bob@example.com", true))

	audit := logger.NewSecurityLoggerWithHandler(slog.NewJSONHandler(io.Discard, nil))
	processor := ingest.NewProcessor(s.lists, s.posts, s.members, nil, nil, audit)
	tracker := bounce.NewTracker(repository.NewBounceRepository(s.db), s.members, s.lists)
	bounces := ingest.NewBounceService(tracker, s.members, nil, audit)

	s.backend = NewBackend(&BackendConfig{
		Lists:     s.lists,
		Processor: processor,
		Bounces:   bounces,
	})
}

// TestSessionTestSuite runs the test suite
func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

func (s *SessionTestSuite) TestRcpt_KnownList() {
	session := NewSession(s.backend)

	err := session.Rcpt("dev@lists.example.com", nil)
	require.NoError(s.T(), err)
	require.Len(s.T(), session.targets, 1)
	assert.Equal(s.T(), "dev", session.targets[0].list.GroupID)
	assert.False(s.T(), session.targets[0].bounce)
}

func (s *SessionTestSuite) TestRcpt_BounceAddress() {
	session := NewSession(s.backend)

	err := session.Rcpt("dev-bounce@lists.example.com", nil)
	require.NoError(s.T(), err)
	require.Len(s.T(), session.targets, 1)
	assert.Equal(s.T(), "dev", session.targets[0].list.GroupID)
	assert.True(s.T(), session.targets[0].bounce)
}

func (s *SessionTestSuite) TestRcpt_UnknownList() {
	session := NewSession(s.backend)

	err := session.Rcpt("nobody@lists.example.com", nil)
	require.Error(s.T(), err)
	smtpErr, ok := err.(*gosmtp.SMTPError)
	require.True(s.T(), ok)
	assert.Equal(s.T(), 550, smtpErr.Code)
}

func (s *SessionTestSuite) TestRcpt_InvalidAddress() {
	session := NewSession(s.backend)

	err := session.Rcpt("not-an-address", nil)
	require.Error(s.T(), err)
	smtpErr, ok := err.(*gosmtp.SMTPError)
	require.True(s.T(), ok)
	assert.Equal(s.T(), 550, smtpErr.Code)
}

func (s *SessionTestSuite) TestData_IngestsPost() {
	session := NewSession(s.backend)
	require.NoError(s.T(), session.Mail("alice@example.com", nil))
	require.NoError(s.T(), session.Rcpt("dev@lists.example.com", nil))

	raw := "From: alice@example.com\r\n" +
		"To: dev@lists.example.com\r\n" +
		"Subject: Hello list\r\n" +
		"\r\n" +
		"first post\r\n"
	require.NoError(s.T(), session.Data(bytes.NewReader([]byte(raw))))

	count, err := s.posts.PostCount(context.Background(), "dev")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), count)
}

func (s *SessionTestSuite) TestData_NoRecipients() {
	session := NewSession(s.backend)

	err := session.Data(bytes.NewReader([]byte("Subject: x\r\n\r\nbody\r\n")))
	require.Error(s.T(), err)
	smtpErr, ok := err.(*gosmtp.SMTPError)
	require.True(s.T(), ok)
	assert.Equal(s.T(), 503, smtpErr.Code)
}

func (s *SessionTestSuite) TestData_BounceReportRecorded() {
	session := NewSession(s.backend)
	require.NoError(s.T(), session.Mail("MAILER-DAEMON@mx.example.net", nil))
	require.NoError(s.T(), session.Rcpt("dev-bounce@lists.example.com", nil))

	raw := "From: MAILER-DAEMON@mx.example.net\r\n" +
		"To: dev-bounce@lists.example.com\r\n" +
		"X-Failed-Recipients: bob@example.com\r\n" +
		"Subject: Mail delivery failed\r\n" +
		"\r\n" +
		"delivery failed\r\n"
	require.NoError(s.T(), session.Data(bytes.NewReader([]byte(raw))))

	var count int64
	s.db.Model(&models.BounceEvent{}).Where("email = ?", "bob@example.com").Count(&count)
	assert.Equal(s.T(), int64(1), count)
}

func (s *SessionTestSuite) TestReset() {
	session := NewSession(s.backend)
	require.NoError(s.T(), session.Rcpt("dev@lists.example.com", nil))

	session.Reset()

	assert.Empty(s.T(), session.targets)
	assert.Empty(s.T(), session.from)
}
