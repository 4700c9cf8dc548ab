package model

import "time"

// TranscriptSegment is one diarized slice of the recording.
// Timestamp uses HH:MM:SS; fields are empty strings when unknown, never null.
type TranscriptSegment struct {
	Speaker   string `json:"speaker"`
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

type ActionItem struct {
	Task     string `json:"task"`
	Assignee string `json:"assignee"`
	Deadline string `json:"deadline"`
	Status   string `json:"status"`
}

// TranscriptRecord holds the structured analysis of one meeting. Written at
// most once per meeting id; a retried job overwrites rather than duplicates.
type TranscriptRecord struct {
	MeetingID   string              `json:"meeting_id"`
	Transcript  []TranscriptSegment `json:"transcript"`
	Summary     string              `json:"summary"`
	Highlights  []string            `json:"highlights"`
	ActionItems []ActionItem        `json:"action_items"`
	CreatedAt   time.Time           `json:"created_at"`
}
