package models

import "time"

// CheckInToken is a short-lived, single-use credential binding a participant
// to an agenda item and the device that requested it. Only TokenID is ever
// revealed to the client (rendered as a QR code); the scope rides along in
// the store. A token is never mutated after creation, only deleted.
type CheckInToken struct {
	TokenID       string
	ParticipantID string
	AgendaItemID  string
	DeviceID      string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// ExpiredAt reports whether the token is past its TTL at the given instant.
func (t CheckInToken) ExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt) || now.Equal(t.ExpiresAt)
}

// AttendanceRecord is one successful check-in. Append-only: the core never
// mutates or deletes these; corrections are an administrative concern.
type AttendanceRecord struct {
	RecordID        string
	ParticipantID   string
	AgendaItemID    string
	CheckinTime     time.Time
	Method          string
	ScannerDeviceID string
	Valid           bool
}

// MethodQR is the only check-in method this core produces.
const MethodQR = "QR_CODE"

type IssueTokenRequest struct {
	ParticipantID string `json:"participant_id"`
	AgendaItemID  string `json:"agenda_item_id"`
	DeviceID      string `json:"device_id"`
}

type IssueTokenResult struct {
	Token     string `json:"qr_code_token"`
	ExpiresIn int    `json:"expires_in"`
}

type CheckInRequest struct {
	Token           string `json:"qr_code_token"`
	AgendaItemID    string `json:"agenda_item_id"`
	ScannerDeviceID string `json:"scanner_device_id"`
}

type CheckInResult struct {
	ParticipantName string    `json:"participant_name"`
	ParticipantID   string    `json:"participant_id"`
	CheckinTime     time.Time `json:"checkin_time"`
}
