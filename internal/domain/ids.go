package domain

import (
	"strings"

	"github.com/google/uuid"
)

func NewMeetingID() MeetingID {
	return MeetingID("m-" + hexID())
}

func NewRunID() RunID {
	return RunID("r-" + hexID())
}

func NewMessageID() string {
	return "msg-" + hexID()
}

func NewResumeToken() string {
	return "resume-" + hexID()
}

func hexID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
