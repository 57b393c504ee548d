package dto

import (
	"encoding/json"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/noah-isme/childcare-reservation-api/internal/calendar"
	"github.com/noah-isme/childcare-reservation-api/internal/models"
)

// SubmitReservationRequest is a guardian submission after alias resolution.
// Both camelCase and snake_case field names are accepted on input.
type SubmitReservationRequest struct {
	GuardianName   string `json:"guardianName" validate:"required,max=100"`
	Email          string `json:"email" validate:"required,email,max=254"`
	ChildName      string `json:"childName,omitempty" validate:"max=100"`
	ChildBirthdate string `json:"childBirthdate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PreferredDate  string `json:"preferredDate" validate:"required,datetime=2006-01-02"`
	DropoffTime    string `json:"dropoffTime" validate:"required"`
}

type submitReservationWire struct {
	GuardianName        string `json:"guardianName"`
	GuardianNameSnake   string `json:"guardian_name"`
	Email               string `json:"email"`
	ChildName           string `json:"childName"`
	ChildNameSnake      string `json:"child_name"`
	ChildBirthdate      string `json:"childBirthdate"`
	ChildBirthdateSnake string `json:"child_birthdate"`
	PreferredDate       string `json:"preferredDate"`
	PreferredDateSnake  string `json:"preferred_date"`
	DropoffTime         string `json:"dropoffTime"`
	DropoffTimeSnake    string `json:"dropoff_time"`
}

// UnmarshalJSON resolves field aliases. camelCase wins when both are present.
func (r *SubmitReservationRequest) UnmarshalJSON(data []byte) error {
	var wire submitReservationWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = SubmitReservationRequest{
		GuardianName:   firstNonEmpty(wire.GuardianName, wire.GuardianNameSnake),
		Email:          wire.Email,
		ChildName:      firstNonEmpty(wire.ChildName, wire.ChildNameSnake),
		ChildBirthdate: firstNonEmpty(wire.ChildBirthdate, wire.ChildBirthdateSnake),
		PreferredDate:  firstNonEmpty(wire.PreferredDate, wire.PreferredDateSnake),
		DropoffTime:    firstNonEmpty(wire.DropoffTime, wire.DropoffTimeSnake),
	}
	return nil
}

// Normalize trims every field, lowercases the email and zero-pads the drop-off time.
// A drop-off time that does not parse is left as is for validation to report.
func (r *SubmitReservationRequest) Normalize() {
	r.GuardianName = strings.TrimSpace(r.GuardianName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.ChildName = strings.TrimSpace(r.ChildName)
	r.ChildBirthdate = strings.TrimSpace(r.ChildBirthdate)
	r.PreferredDate = strings.TrimSpace(r.PreferredDate)
	r.DropoffTime = strings.TrimSpace(r.DropoffTime)
	if clock, err := calendar.ParseClock(r.DropoffTime); err == nil {
		r.DropoffTime = clock
	}
}

// ChildKey identifies a child across submissions: the NFKC-folded, lowercased
// name without whitespace, joined with the birthdate. Empty without a child name.
func (r *SubmitReservationRequest) ChildKey() string {
	return ChildKey(r.ChildName, r.ChildBirthdate)
}

// ChildKey builds the child identity key from a name and birthdate.
func ChildKey(name, birthdate string) string {
	folded := strings.ToLower(norm.NFKC.String(name))
	var b strings.Builder
	for _, r := range folded {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String() + "|" + strings.TrimSpace(birthdate)
}

// SubmitReservationResponse is returned for an admitted submission.
type SubmitReservationResponse struct {
	ID     string                   `json:"id"`
	Status models.ReservationStatus `json:"status"`
	Period models.Period            `json:"period"`
}

// UpdateStatusRequest changes a reservation's status. Version enables
// optimistic concurrency; without it the write is last-write-wins.
type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=pending approved rejected canceled"`
	Version *int   `json:"version,omitempty" validate:"omitempty,min=1"`
}

// Normalize lowercases the status and folds the British spelling of canceled.
func (r *UpdateStatusRequest) Normalize() {
	r.Status = NormalizeStatus(r.Status)
}

// UpdateDropoffRequest corrects a reservation's drop-off time.
type UpdateDropoffRequest struct {
	DropoffTime string `json:"dropoff_time" validate:"required"`
	Version     *int   `json:"version,omitempty" validate:"omitempty,min=1"`
}

// NormalizeStatus maps a raw status string to its canonical form.
func NormalizeStatus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "cancelled" {
		return string(models.StatusCanceled)
	}
	return s
}

// ParseStatuses splits a comma separated status filter. Unknown values are returned in invalid.
func ParseStatuses(raw string) (statuses []models.ReservationStatus, invalid []string) {
	for _, part := range strings.Split(raw, ",") {
		s := NormalizeStatus(part)
		if s == "" {
			continue
		}
		status := models.ReservationStatus(s)
		if !status.Valid() {
			invalid = append(invalid, part)
			continue
		}
		statuses = append(statuses, status)
	}
	return statuses, invalid
}

// ReservationListQuery captures staff list query parameters.
type ReservationListQuery struct {
	From     string `validate:"omitempty,datetime=2006-01-02"`
	To       string `validate:"omitempty,datetime=2006-01-02"`
	Status   string
	Search   string `validate:"max=100"`
	Page     int    `validate:"min=0"`
	PageSize int    `validate:"min=0,max=200"`
	Sort     string `validate:"omitempty,oneof=asc desc"`
}

// AvailabilityQuery is the guardian availability lookup.
type AvailabilityQuery struct {
	Date string `validate:"required,datetime=2006-01-02"`
	Time string
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
