package dto

// UpsertOverrideRequest sets or replaces the override for one date.
type UpsertOverrideRequest struct {
	IsOpen     *bool   `json:"is_open" validate:"required"`
	DailyLimit *int    `json:"daily_limit,omitempty" validate:"omitempty,min=0,max=100"`
	Note       *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// ExportQuery filters the staff CSV exports.
type ExportQuery struct {
	From   string `validate:"omitempty,datetime=2006-01-02"`
	To     string `validate:"omitempty,datetime=2006-01-02"`
	Status string
	Search string `validate:"max=100"`
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}
