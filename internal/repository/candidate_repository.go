package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

// DefaultTable is the table the scoring pipeline publishes candidates to.
const DefaultTable = "optimization_final_input"

// CandidateSource loads the full candidate pool.
type CandidateSource interface {
	Name() string
	LoadCandidates(ctx context.Context) ([]types.Candidate, error)
}

// CandidateRecord is one row of the candidate table.
type CandidateRecord struct {
	PlayerID         string  `gorm:"column:player_id;primaryKey"`
	PlayerName       string  `gorm:"column:player_name;not null"`
	APIPos           string  `gorm:"column:api_pos;not null"`
	PerformanceScore float64 `gorm:"column:performance_score"`
	MarketValueMio   float64 `gorm:"column:market_value_mio"`
	Nationality      string  `gorm:"column:nationality"`
}

// ToCandidate converts the row; rows without a player id are keyed by name.
func (r CandidateRecord) ToCandidate() types.Candidate {
	id := strings.TrimSpace(r.PlayerID)
	if id == "" {
		id = strings.TrimSpace(r.PlayerName)
	}
	return types.Candidate{
		ID:               id,
		Name:             strings.TrimSpace(r.PlayerName),
		Position:         strings.TrimSpace(r.APIPos),
		PerformanceScore: r.PerformanceScore,
		MarketValue:      r.MarketValueMio,
		Nationality:      strings.TrimSpace(r.Nationality),
	}
}

// RecordFromCandidate is the inverse of ToCandidate.
func RecordFromCandidate(c types.Candidate) CandidateRecord {
	return CandidateRecord{
		PlayerID:         c.ID,
		PlayerName:       c.Name,
		APIPos:           c.Position,
		PerformanceScore: c.PerformanceScore,
		MarketValueMio:   c.MarketValue,
		Nationality:      c.Nationality,
	}
}

// CandidateRepository reads the candidate table through gorm.
type CandidateRepository struct {
	db     *gorm.DB
	table  string
	logger *logrus.Entry
}

// NewCandidateRepository creates a repository over the given table.
func NewCandidateRepository(db *gorm.DB, table string, logger *logrus.Logger) *CandidateRepository {
	if table == "" {
		table = DefaultTable
	}
	return &CandidateRepository{
		db:     db,
		table:  table,
		logger: logger.WithFields(logrus.Fields{"component": "candidate_repository", "table": table}),
	}
}

// Name identifies the source in cache keys and logs.
func (r *CandidateRepository) Name() string {
	return r.table
}

// LoadCandidates returns every row ordered by player id.
func (r *CandidateRepository) LoadCandidates(ctx context.Context) ([]types.Candidate, error) {
	var records []CandidateRecord
	if err := r.db.WithContext(ctx).Table(r.table).Order("player_id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load candidates from %s: %w", r.table, err)
	}

	candidates := make([]types.Candidate, len(records))
	for i, record := range records {
		candidates[i] = record.ToCandidate()
	}

	r.logger.WithField("candidates", len(candidates)).Debug("Loaded candidates from database")
	return candidates, nil
}

// AutoMigrate creates the candidate table when it does not exist.
func (r *CandidateRepository) AutoMigrate() error {
	if err := r.db.Table(r.table).AutoMigrate(&CandidateRecord{}); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", r.table, err)
	}
	return nil
}

// ReplaceCandidates swaps the table contents for the given pool in one transaction.
func (r *CandidateRepository) ReplaceCandidates(ctx context.Context, candidates []types.Candidate) error {
	records := make([]CandidateRecord, len(candidates))
	for i, c := range candidates {
		records[i] = RecordFromCandidate(c)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(r.table).Where("1 = 1").Delete(&CandidateRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.Table(r.table).CreateInBatches(records, 500).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace candidates in %s: %w", r.table, err)
	}

	r.logger.WithField("candidates", len(records)).Info("Replaced candidate table")
	return nil
}
