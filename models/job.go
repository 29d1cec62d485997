package models

import "time"

// Job is one configured registration event.
type Job struct {
	ID              int       `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	ProfileEncoding string    `json:"profile_encoding" db:"player_profile"`
	MetadataJSON    *string   `json:"-" db:"player_profile_metadata_json"`
	OptionsJSON     *string   `json:"-" db:"job_options_json"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`

	// Populated by listing queries that skip the metadata body.
	HasMetadata bool `json:"has_metadata" db:"-"`
}

func (j Job) Profile() ProfileEncoding {
	return ParseProfileEncoding(j.ProfileEncoding)
}

func (j Job) Metadata() string {
	if j.MetadataJSON == nil {
		return ""
	}
	return *j.MetadataJSON
}

func (j Job) Options() string {
	if j.OptionsJSON == nil {
		return ""
	}
	return *j.OptionsJSON
}
