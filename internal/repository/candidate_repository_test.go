package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	pkglogger "github.com/stitts-dev/squad-optimizer/pkg/logger"
	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

type CandidateRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo *CandidateRepository
}

func (s *CandidateRepositoryTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.db = db
	s.repo = NewCandidateRepository(db, "", pkglogger.NewDiscardLogger())
	s.Require().NoError(s.repo.AutoMigrate())
}

func (s *CandidateRepositoryTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	s.Require().NoError(sqlDB.Close())
}

func (s *CandidateRepositoryTestSuite) TestUsesDefaultTable() {
	s.Equal(DefaultTable, s.repo.Name())
	s.True(s.db.Migrator().HasTable(DefaultTable))
}

func (s *CandidateRepositoryTestSuite) TestLoadCandidatesMapsColumns() {
	rows := []CandidateRecord{
		{PlayerID: "p2", PlayerName: " Rodri ", APIPos: "Defensive Midfield", PerformanceScore: 91.5, MarketValueMio: 110, Nationality: "Spain"},
		{PlayerID: "p1", PlayerName: "Alisson", APIPos: "Goalkeeper", PerformanceScore: 74, MarketValueMio: 28, Nationality: "Brazil"},
	}
	s.Require().NoError(s.db.Table(DefaultTable).Create(&rows).Error)

	candidates, err := s.repo.LoadCandidates(context.Background())
	s.Require().NoError(err)
	s.Require().Len(candidates, 2)

	s.Equal(types.Candidate{
		ID: "p1", Name: "Alisson", Position: "Goalkeeper", PerformanceScore: 74, MarketValue: 28, Nationality: "Brazil",
	}, candidates[0])
	s.Equal("Rodri", candidates[1].Name)
	s.Equal("Defensive Midfield", candidates[1].Position)
}

func (s *CandidateRepositoryTestSuite) TestReplaceCandidates() {
	ctx := context.Background()
	s.Require().NoError(s.repo.ReplaceCandidates(ctx, []types.Candidate{
		{ID: "a", Name: "A", Position: "Centre-Back", PerformanceScore: 50, MarketValue: 20},
		{ID: "b", Name: "B", Position: "Centre-Back", PerformanceScore: 60, MarketValue: 30},
	}))
	s.Require().NoError(s.repo.ReplaceCandidates(ctx, []types.Candidate{
		{ID: "c", Name: "C", Position: "Centre-Forward", PerformanceScore: 70, MarketValue: 40},
	}))

	candidates, err := s.repo.LoadCandidates(ctx)
	s.Require().NoError(err)
	s.Require().Len(candidates, 1)
	s.Equal("c", candidates[0].ID)
}

func (s *CandidateRepositoryTestSuite) TestCustomTable() {
	repo := NewCandidateRepository(s.db, "scouting_pool", pkglogger.NewDiscardLogger())
	s.Require().NoError(repo.AutoMigrate())
	s.Require().NoError(repo.ReplaceCandidates(context.Background(), []types.Candidate{{ID: "x", Name: "X", Position: "Goalkeeper"}}))

	fromDefault, err := s.repo.LoadCandidates(context.Background())
	s.Require().NoError(err)
	s.Empty(fromDefault)

	fromCustom, err := repo.LoadCandidates(context.Background())
	s.Require().NoError(err)
	s.Len(fromCustom, 1)
}

func (s *CandidateRepositoryTestSuite) TestMissingTableFails() {
	repo := NewCandidateRepository(s.db, "does_not_exist", pkglogger.NewDiscardLogger())
	_, err := repo.LoadCandidates(context.Background())
	s.Error(err)
}

func TestCandidateRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(CandidateRepositoryTestSuite))
}

func TestCandidateRecord_FallsBackToNameForID(t *testing.T) {
	c := CandidateRecord{PlayerName: "Bukayo Saka", APIPos: "Right Winger"}.ToCandidate()
	if c.ID != "Bukayo Saka" {
		t.Fatalf("expected name as id, got %q", c.ID)
	}
}
