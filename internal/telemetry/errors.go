package telemetry

import "github.com/amrinderguler/ilo-collector/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig

	// Storage Errors
	ErrStoreConnect = errors.ErrorCode("telemetry_store_connect_failed")
	ErrStoreWrite   = errors.ErrorCode("telemetry_store_write_failed")
	ErrStoreClose   = errors.ErrorCode("telemetry_store_close_failed")

	// Record Errors
	ErrInvalidRecord = errors.ErrorCode("telemetry_invalid_record")

	// Archive Errors
	ErrArchiveInit  = errors.ErrorCode("telemetry_archive_init_failed")
	ErrArchiveWrite = errors.ErrorCode("telemetry_archive_write_failed")
)
