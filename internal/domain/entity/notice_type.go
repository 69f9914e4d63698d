package entity

// NoticeType is a named category of event. Default is the spam-sensitivity
// threshold: a medium whose configured sensitivity is <= Default receives
// the type unless the user changed the setting.
type NoticeType struct {
	ID          int64
	Label       string
	Display     string
	Description string
	Default     int
}

// Validate checks the fields required before a notice type is stored.
func (nt *NoticeType) Validate() error {
	if err := ValidateLabel(nt.Label); err != nil {
		return err
	}
	if nt.Display == "" {
		return &ValidationError{Field: "display", Message: "display is required"}
	}
	if nt.Default < 0 {
		return &ValidationError{Field: "default", Message: "default must not be negative"}
	}
	return nil
}

// NoticeSetting pins whether a user receives a notice type on one medium.
// Rows are created lazily the first time eligibility is checked.
type NoticeSetting struct {
	ID           int64
	UserID       int64
	NoticeTypeID int64
	Medium       string // medium label, stable across configuration reorderings
	Send         bool
}
