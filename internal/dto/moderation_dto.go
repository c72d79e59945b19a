package dto

import "time"

// ModerateRequest is the body the chat app sends when a user files a complaint.
type ModerateRequest struct {
	ReporterID     string `json:"reporterId"`
	ReportedUserID string `json:"reportedUserId"`
	ChatID         string `json:"chatId"`
	Reason         string `json:"reason"`
	MessageID      string `json:"messageId,omitempty"`
}

type ModerateResponse struct {
	Success    bool    `json:"success"`
	Verdict    string  `json:"verdict"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Blocked    bool    `json:"blocked"`
	ReportID   string  `json:"reportId"`
}

// FailureResponse is a non-error outcome the app shows to the reporter.
type FailureResponse struct {
	Success        bool   `json:"success"`
	Error          string `json:"error"`
	AlreadyBlocked bool   `json:"alreadyBlocked,omitempty"`
}

type BlockStatusResponse struct {
	Blocked   bool       `json:"blocked"`
	Reason    string     `json:"reason,omitempty"`
	BlockedAt *time.Time `json:"blockedAt,omitempty"`
}
