package model

import "time"

// SchoolSetting is one key of the school profile.
type SchoolSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedBy *int      `json:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Known setting keys.
const (
	SettingSchoolName          = "school_name"
	SettingMassarCode          = "massar_code"
	SettingEmail               = "email"
	SettingPhone               = "phone"
	SettingAddress             = "address"
	SettingCity                = "city"
	SettingLogoURL             = "logo_url"
	SettingDefaultCurrency     = "default_currency"
	SettingDefaultPaymentTerms = "default_payment_terms"
	SettingLateFeePercentage   = "late_fee_percentage"
)

// SettingKeys lists every key the settings API accepts.
var SettingKeys = []string{
	SettingSchoolName,
	SettingMassarCode,
	SettingEmail,
	SettingPhone,
	SettingAddress,
	SettingCity,
	SettingLogoURL,
	SettingDefaultCurrency,
	SettingDefaultPaymentTerms,
	SettingLateFeePercentage,
}

// PublicSettingKeys are served without authentication.
var PublicSettingKeys = []string{
	SettingSchoolName,
	SettingPhone,
	SettingAddress,
	SettingCity,
	SettingLogoURL,
}

// UpdateSettingsRequest is the payload for bulk updating settings.
type UpdateSettingsRequest struct {
	Settings map[string]string `json:"settings" binding:"required"`
}
