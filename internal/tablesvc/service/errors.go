package service

import "errors"

var (
	ErrNotReady          = errors.New("identity not resolved yet")
	ErrTableNotFound     = errors.New("table not found")
	ErrTableClosed       = errors.New("table is closed")
	ErrNameTaken         = errors.New("name already taken at this table")
	ErrCodeExhausted     = errors.New("could not allocate a table code, try again")
	ErrConflictDetected  = errors.New("credential already linked to another account")
	ErrMediaUploadFailed = errors.New("photo upload failed")
	ErrUnauthorized      = errors.New("not allowed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidScore      = errors.New("invalid score")
	ErrPhotoRequired     = errors.New("a plate photo is required")
)
