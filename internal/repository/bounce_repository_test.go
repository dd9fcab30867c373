package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/listmill/listmill/internal/models"
)

// BounceRepositoryTestSuite is the test suite for BounceRepository
type BounceRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo BounceRepository
}

// SetupSuite runs once before all tests
func (s *BounceRepositoryTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)

	err = db.AutoMigrate(&models.BounceEvent{})
	require.NoError(s.T(), err)

	s.db = db
	s.repo = NewBounceRepository(db)
}

// TearDownSuite runs once after all tests
func (s *BounceRepositoryTestSuite) TearDownSuite() {
	sqlDB, _ := s.db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SetupTest runs before each test
func (s *BounceRepositoryTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM bounce_events")
}

// TestBounceRepositoryTestSuite runs the test suite
func TestBounceRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(BounceRepositoryTestSuite))
}

func (s *BounceRepositoryTestSuite) addBounce(email string, at time.Time) {
	err := s.repo.AddBounce(context.Background(), "user-1", "dev", "example.com", email, at)
	require.NoError(s.T(), err)
}

func (s *BounceRepositoryTestSuite) TestDistinctBounceDays_CollapsesSameDay() {
	base := time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC)
	s.addBounce("bob@example.com", base)
	s.addBounce("bob@example.com", base.Add(3*time.Hour))
	s.addBounce("bob@example.com", base.AddDate(0, 0, 1))

	days, err := s.repo.DistinctBounceDays(context.Background(),
		"bob@example.com", "dev", base.AddDate(0, 0, -60))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"20260711", "20260710"}, days, "distinct days, newest first")
}

func (s *BounceRepositoryTestSuite) TestDistinctBounceDays_HonorsWindow() {
	base := time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC)
	s.addBounce("bob@example.com", base.AddDate(0, 0, -90))
	s.addBounce("bob@example.com", base)

	days, err := s.repo.DistinctBounceDays(context.Background(),
		"bob@example.com", "dev", base.AddDate(0, 0, -60))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"20260710"}, days)
}

func (s *BounceRepositoryTestSuite) TestDistinctBounceDays_ScopedToEmailAndGroup() {
	base := time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC)
	s.addBounce("bob@example.com", base)
	require.NoError(s.T(), s.repo.AddBounce(context.Background(),
		"user-2", "dev", "example.com", "carol@example.com", base))
	require.NoError(s.T(), s.repo.AddBounce(context.Background(),
		"user-1", "ops", "example.com", "bob@example.com", base))

	days, err := s.repo.DistinctBounceDays(context.Background(),
		"bob@example.com", "dev", base.AddDate(0, 0, -60))
	require.NoError(s.T(), err)
	assert.Len(s.T(), days, 1)
}

func (s *BounceRepositoryTestSuite) TestRecentBounces() {
	base := time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		s.addBounce("bob@example.com", base.Add(time.Duration(i)*time.Hour))
	}

	events, err := s.repo.RecentBounces(context.Background(), "bob@example.com", "dev", 2)
	require.NoError(s.T(), err)
	require.Len(s.T(), events, 2)
	assert.True(s.T(), events[0].BouncedAt.After(events[1].BouncedAt))
	assert.Equal(s.T(), "20260710", events[0].Day)
}
