package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDsCarryPrefixAndHex(t *testing.T) {
	t.Parallel()

	assert.Regexp(t, `^m-[0-9a-f]{32}$`, string(NewMeetingID()))
	assert.Regexp(t, `^r-[0-9a-f]{32}$`, string(NewRunID()))
	assert.Regexp(t, `^msg-[0-9a-f]{32}$`, NewMessageID())
	assert.Regexp(t, `^resume-[0-9a-f]{32}$`, NewResumeToken())
	assert.NotEqual(t, NewResumeToken(), NewResumeToken())
}
