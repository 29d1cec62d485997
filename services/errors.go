package services

import "errors"

// Errors shared by services and the HTTP error mapping.
var (
	ErrValidationFailed = errors.New("validation failed")

	// Profiles and migrations
	ErrProfileTypeInvalid  = errors.New("invalid profile type")
	ErrDefinitionNotFound  = errors.New("profile definition not found")
	ErrDefinitionInvalid   = errors.New("profile definition could not be parsed")
	ErrSchemaInvalid       = errors.New("schema is invalid")
	ErrJobNotFound         = errors.New("job not found")
	ErrJobHasNoProfile     = errors.New("job has no profile type configured")
	ErrMetadataTooLong     = errors.New("serialized metadata exceeds the column limit")
	ErrExportUploadFailed  = errors.New("failed to upload SQL export")
	ErrExportStoreDisabled = errors.New("object storage is not configured")

	// Registration sessions
	ErrSessionNotFound   = errors.New("registration session not found or expired")
	ErrEntityNotSelected = errors.New("entity is not selected in this session")
	ErrFieldNotFound     = errors.New("field not found in schema")
	ErrNotWaiverField    = errors.New("field is not a waiver")
)
