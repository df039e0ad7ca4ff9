package service

import "errors"

var (
	ErrInvalidPlate      = errors.New("plate number must be 4 digits")
	ErrBackupFileMissing = errors.New("backup file not found")
	ErrSchedulerStopped  = errors.New("backup scheduler stopped")
	ErrAdminCode         = errors.New("admin code rejected")
)
