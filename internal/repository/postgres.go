package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/immxrtalbeast/axenix_signal/internal/domain"
	"github.com/immxrtalbeast/axenix_signal/internal/repository/model"
	"gorm.io/gorm"
)

type PostgresMeetingRepository struct {
	db *gorm.DB
}

func NewPostgresMeetingRepository(db *gorm.DB) *PostgresMeetingRepository {
	return &PostgresMeetingRepository{db: db}
}

func (r *PostgresMeetingRepository) Create(ctx context.Context, meeting *domain.Meeting) error {
	const op = "repository.postgres.meeting.create"
	if err := ctx.Err(); err != nil {
		return err
	}
	if meeting == nil {
		return errors.New("meeting is nil")
	}

	if err := r.db.WithContext(ctx).Create(toModelMeeting(meeting)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrMeetingExists
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *PostgresMeetingRepository) GetByID(ctx context.Context, id string) (*domain.Meeting, error) {
	const op = "repository.postgres.meeting.get"
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var meeting model.Meeting
	err := r.db.WithContext(ctx).First(&meeting, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toDomainMeeting(&meeting), nil
}

func (r *PostgresMeetingRepository) Update(ctx context.Context, meeting *domain.Meeting) error {
	const op = "repository.postgres.meeting.update"
	if err := ctx.Err(); err != nil {
		return err
	}
	if meeting == nil {
		return errors.New("meeting is nil")
	}

	m := toModelMeeting(meeting)

	updates := map[string]any{
		"name":    m.Name,
		"host_id": m.HostID,
		"status":  m.Status,
	}
	if m.EndedAt == nil {
		updates["ended_at"] = gorm.Expr("NULL")
	} else {
		updates["ended_at"] = m.EndedAt
	}

	res := r.db.WithContext(ctx).Model(&model.Meeting{}).Where("id = ?", m.ID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrMeetingNotFound
	}
	return nil
}

func (r *PostgresMeetingRepository) List(ctx context.Context) ([]*domain.Meeting, error) {
	const op = "repository.postgres.meeting.list"
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var meetings []model.Meeting
	if err := r.db.WithContext(ctx).Order("created_at").Find(&meetings).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]*domain.Meeting, 0, len(meetings))
	for i := range meetings {
		result = append(result, toDomainMeeting(&meetings[i]))
	}
	return result, nil
}

func toModelMeeting(meeting *domain.Meeting) *model.Meeting {
	var endedAt *time.Time
	if !meeting.EndedAt.IsZero() {
		t := meeting.EndedAt.UTC()
		endedAt = &t
	}

	createdAt := meeting.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	status := meeting.Status
	if status == "" {
		status = domain.MeetingStatusActive
	}

	return &model.Meeting{
		ID:        meeting.ID,
		Name:      meeting.Name,
		HostID:    meeting.HostID,
		Status:    string(status),
		CreatedAt: createdAt.UTC(),
		EndedAt:   endedAt,
	}
}

func toDomainMeeting(meeting *model.Meeting) *domain.Meeting {
	var endedAt time.Time
	if meeting.EndedAt != nil {
		endedAt = meeting.EndedAt.UTC()
	}

	return &domain.Meeting{
		ID:        meeting.ID,
		Name:      meeting.Name,
		HostID:    meeting.HostID,
		Status:    domain.MeetingStatus(meeting.Status),
		CreatedAt: meeting.CreatedAt.UTC(),
		EndedAt:   endedAt,
	}
}
