package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-observer-api/internal/models"
)

// SectionRepository manages the lazily-provisioned sections of each shift.
// Sections are append-only: they are never deleted or renumbered.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs a SectionRepository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// ListByShift returns the shift's sections ordered by section number.
func (r *SectionRepository) ListByShift(ctx context.Context, shiftID string) ([]models.Section, error) {
	const query = `SELECT id, shift_id, section_number, created_at FROM sections WHERE shift_id = $1 ORDER BY section_number`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, shiftID); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// Create inserts a section with the given number under the shift.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	section.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO sections (id, shift_id, section_number, created_at)
		VALUES (:id, :shift_id, :section_number, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// EnsureSections guarantees the shift has sections numbered 1..required and
// returns the section-number to id mapping covering that range. Missing
// sections are appended with consecutive numbers; repeated calls with the
// same or a smaller count are read-only.
func (r *SectionRepository) EnsureSections(ctx context.Context, shiftID string, required int) (map[int]string, error) {
	existing, err := r.ListByShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	byNumber := make(map[int]string, required)
	for _, section := range existing {
		byNumber[section.SectionNumber] = section.ID
	}

	for number := len(existing) + 1; number <= required; number++ {
		section := &models.Section{ShiftID: shiftID, SectionNumber: number}
		if err := r.Create(ctx, section); err != nil {
			return nil, err
		}
		byNumber[number] = section.ID
	}

	return byNumber, nil
}
