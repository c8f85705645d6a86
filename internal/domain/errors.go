package domain

// ErrorCode is the code carried by outbound error events.
type ErrorCode string

const (
	CodeMeetingUnavailable ErrorCode = "MeetingUnavailable"
	CodeRoomFull           ErrorCode = "RoomFull"
	CodeInternalError      ErrorCode = "InternalError"
	CodeInvalidMessage     ErrorCode = "InvalidMessage"
)
