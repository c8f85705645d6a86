package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/axenix_signal/internal/api/http/converter"
	"github.com/immxrtalbeast/axenix_signal/internal/domain"
	"github.com/immxrtalbeast/axenix_signal/internal/repository"
	"github.com/immxrtalbeast/axenix_signal/internal/service"
	"github.com/immxrtalbeast/axenix_signal/lib/logger/sl"
)

type MeetingController struct {
	meetings service.MeetingInteractor
	rooms    service.RoomInspector
	log      *slog.Logger
}

func NewMeetingController(meetings service.MeetingInteractor, rooms service.RoomInspector, log *slog.Logger) *MeetingController {
	return &MeetingController{meetings: meetings, rooms: rooms, log: log}
}

func (c *MeetingController) CreateMeeting(ctx *gin.Context) {
	type CreateMeetingRequest struct {
		Name   string `json:"name" binding:"required"`
		HostID string `json:"host_id"`
	}
	var req CreateMeetingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	meeting, err := c.meetings.CreateMeeting(ctx.Request.Context(), req.Name, req.HostID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidMeetingName) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.log.Error("create meeting failed", sl.Err(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create meeting"})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"meeting": converter.MeetingToApi(meeting, nil)})
}

func (c *MeetingController) GetMeeting(ctx *gin.Context) {
	meeting, err := c.meetings.GetMeeting(ctx.Request.Context(), ctx.Param("meetingID"))
	if err != nil {
		c.writeLookupError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"meeting": converter.MeetingToApi(meeting, c.rooms.Roster(meeting.ID))})
}

func (c *MeetingController) ListParticipants(ctx *gin.Context) {
	meetingID := ctx.Param("meetingID")
	if _, err := c.meetings.GetMeeting(ctx.Request.Context(), meetingID); err != nil {
		c.writeLookupError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"participants": converter.ParticipantsToApi(c.rooms.Roster(meetingID))})
}

// EndMeeting closes the meeting for new joins. Participants already in the
// room keep their connections until they leave.
func (c *MeetingController) EndMeeting(ctx *gin.Context) {
	meeting, err := c.meetings.EndMeeting(ctx.Request.Context(), ctx.Param("meetingID"))
	if err != nil {
		c.writeLookupError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"meeting": converter.MeetingToApi(meeting, c.rooms.Roster(meeting.ID))})
}

func (c *MeetingController) ListMeetings(ctx *gin.Context) {
	meetings, err := c.meetings.ListMeetings(ctx.Request.Context())
	if err != nil {
		c.log.Error("list meetings failed", sl.Err(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list meetings"})
		return
	}

	out := make([]*converter.MeetingResponse, 0, len(meetings))
	for _, m := range meetings {
		var roster []domain.Participant
		if m.IsActive() {
			roster = c.rooms.Roster(m.ID)
		}
		out = append(out, converter.MeetingToApi(m, roster))
	}
	ctx.JSON(http.StatusOK, gin.H{"meetings": out})
}

func (c *MeetingController) writeLookupError(ctx *gin.Context, err error) {
	if errors.Is(err, repository.ErrMeetingNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.log.Error("meeting lookup failed", sl.Err(err))
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load meeting"})
}
