package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/immxrtalbeast/axenix_signal/internal/domain"
	"github.com/immxrtalbeast/axenix_signal/internal/repository"
	"github.com/immxrtalbeast/axenix_signal/lib/logger/sl"
)

const (
	maxMeetingNameLength  = 255
	createMeetingAttempts = 3
)

var ErrInvalidMeetingName = errors.New("meeting name is required and must not exceed 255 characters")

type MeetingService struct {
	meetings repository.MeetingRepository
	log      *slog.Logger
}

func NewMeetingService(meetings repository.MeetingRepository, log *slog.Logger) *MeetingService {
	if log == nil {
		log = slog.Default()
	}
	return &MeetingService{meetings: meetings, log: log}
}

func (s *MeetingService) CreateMeeting(ctx context.Context, name string, hostID string) (*domain.Meeting, error) {
	const op = "service.meeting.create"
	log := s.log.With(slog.String("op", op))

	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxMeetingNameLength {
		return nil, ErrInvalidMeetingName
	}

	var err error
	for attempt := 0; attempt < createMeetingAttempts; attempt++ {
		meeting := domain.NewMeeting(name, strings.TrimSpace(hostID))
		err = s.meetings.Create(ctx, meeting)
		if err == nil {
			log.Info("meeting created", slog.String("meeting_id", meeting.ID), slog.String("host_id", meeting.HostID))
			return meeting, nil
		}
		if !errors.Is(err, repository.ErrMeetingExists) {
			break
		}
	}

	log.Error("failed to create meeting", sl.Err(err))
	return nil, err
}

func (s *MeetingService) GetMeeting(ctx context.Context, id string) (*domain.Meeting, error) {
	return s.meetings.GetByID(ctx, id)
}

// EndMeeting marks the meeting as ended so that further joins are refused.
// Ending an already ended meeting is a no-op.
func (s *MeetingService) EndMeeting(ctx context.Context, id string) (*domain.Meeting, error) {
	const op = "service.meeting.end"
	log := s.log.With(slog.String("op", op), slog.String("meeting_id", id))

	meeting, err := s.meetings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !meeting.IsActive() {
		return meeting, nil
	}

	meeting.End()
	if err := s.meetings.Update(ctx, meeting); err != nil {
		log.Error("failed to end meeting", sl.Err(err))
		return nil, err
	}

	log.Info("meeting ended")
	return meeting, nil
}

func (s *MeetingService) ListMeetings(ctx context.Context) ([]*domain.Meeting, error) {
	return s.meetings.List(ctx)
}
