package repository

import (
	"context"
	"errors"

	"github.com/immxrtalbeast/axenix_signal/internal/domain"
)

//go:generate mockgen -source=repository.go -destination=mocks/repository.go -package=mocks

var (
	ErrMeetingNotFound = errors.New("meeting not found")
	ErrMeetingExists   = errors.New("meeting already exists")
)

// MeetingRepository stores the meetings participants are allowed to join.
type MeetingRepository interface {
	Create(ctx context.Context, meeting *domain.Meeting) error
	GetByID(ctx context.Context, id string) (*domain.Meeting, error)
	Update(ctx context.Context, meeting *domain.Meeting) error
	List(ctx context.Context) ([]*domain.Meeting, error)
}
