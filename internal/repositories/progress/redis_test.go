package progress

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/SantiZetina/steamcodle/internal/constants"
	"github.com/SantiZetina/steamcodle/internal/models"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *redis.Client
	repo   Repository
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{
		Addr: s.mr.Addr(),
	})

	repo, err := NewRedis(&Config{
		RedisClient: s.client,
	})
	s.Require().NoError(err)
	s.repo = repo
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestRedisRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}

func (s *RedisRepositoryTestSuite) TestSaveAndGetStats() {
	ctx := context.Background()
	stats := &models.StatsSnapshot{
		Version:        1,
		TotalGuesses:   42,
		CorrectGames:   7,
		IncorrectGames: 3,
		CurrentStreak:  2,
		BestStreak:     5,
		LastPlayedDate: "2026-08-29",
		LossesToday:    1,
	}

	err := s.repo.SaveStats(ctx, &SaveStatsInput{SessionID: "sess-1", Stats: stats})
	s.Require().NoError(err)

	loaded, err := s.repo.GetStats(ctx, &GetStatsInput{SessionID: "sess-1"})
	s.Require().NoError(err)
	s.Equal(stats, loaded)
}

func (s *RedisRepositoryTestSuite) TestGetStatsAbsentReturnsDefaults() {
	loaded, err := s.repo.GetStats(context.Background(), &GetStatsInput{SessionID: "nobody"})
	s.Require().NoError(err)
	s.Equal(&models.StatsSnapshot{Version: 1}, loaded)
}

func (s *RedisRepositoryTestSuite) TestGetStatsCorruptReturnsDefaults() {
	s.Require().NoError(s.mr.Set(constants.StatsKeyPrefix+"sess-1", "{not json"))

	loaded, err := s.repo.GetStats(context.Background(), &GetStatsInput{SessionID: "sess-1"})
	s.Require().NoError(err)
	s.Equal(&models.StatsSnapshot{Version: 1}, loaded)
}

func (s *RedisRepositoryTestSuite) TestGetStatsMigratesLegacyCounter() {
	// A v0 snapshot stored the day counter as playedToday.
	s.Require().NoError(s.mr.Set(constants.StatsKeyPrefix+"sess-1",
		`{"totalGuesses": 10, "correctGames": 2, "playedToday": 3, "lastPlayedDate": "2026-08-28"}`))

	loaded, err := s.repo.GetStats(context.Background(), &GetStatsInput{SessionID: "sess-1"})
	s.Require().NoError(err)
	s.Equal(1, loaded.Version)
	s.Equal(3, loaded.LossesToday)
	s.Zero(loaded.PlayedToday)
	s.Equal(10, loaded.TotalGuesses)
}

func (s *RedisRepositoryTestSuite) TestGetStatsMigrationIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.mr.Set(constants.StatsKeyPrefix+"sess-1", `{"playedToday": 3}`))

	first, err := s.repo.GetStats(ctx, &GetStatsInput{SessionID: "sess-1"})
	s.Require().NoError(err)
	s.Require().NoError(s.repo.SaveStats(ctx, &SaveStatsInput{SessionID: "sess-1", Stats: first}))

	second, err := s.repo.GetStats(ctx, &GetStatsInput{SessionID: "sess-1"})
	s.Require().NoError(err)
	s.Equal(3, second.LossesToday, "a migrated value must not migrate twice")
}

func (s *RedisRepositoryTestSuite) TestGetStatsValidation() {
	_, err := s.repo.GetStats(context.Background(), nil)
	s.Error(err)

	_, err = s.repo.GetStats(context.Background(), &GetStatsInput{})
	s.Error(err)
}

func (s *RedisRepositoryTestSuite) TestSaveAndGetHistory() {
	ctx := context.Background()

	loaded, err := s.repo.GetHistory(ctx)
	s.Require().NoError(err)
	s.Empty(loaded)

	err = s.repo.SaveHistory(ctx, &SaveHistoryInput{IDs: []int{570, 730, 440}})
	s.Require().NoError(err)

	loaded, err = s.repo.GetHistory(ctx)
	s.Require().NoError(err)
	s.Equal([]int{570, 730, 440}, loaded)
}

func (s *RedisRepositoryTestSuite) TestGetHistoryCorruptStartsEmpty() {
	s.Require().NoError(s.mr.Set(constants.HistoryKey, "oops"))

	loaded, err := s.repo.GetHistory(context.Background())
	s.Require().NoError(err)
	s.Empty(loaded)
}

func (s *RedisRepositoryTestSuite) TestNewRedisValidation() {
	_, err := NewRedis(nil)
	s.Error(err)

	_, err = NewRedis(&Config{})
	s.Error(err)
}
