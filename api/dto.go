package api

import (
	"github.com/warp/erp-offline/generic"
)

// ErrorDTO is the JSON error envelope.
type ErrorDTO struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ModeDTO carries the operator mode setting.
type ModeDTO struct {
	Mode string `json:"mode"`
	// Effective reports the mode after the connectivity signal is applied;
	// "offline" when either input says so.
	Effective string `json:"effective,omitempty"`
}

// BackupDTO is the full local-data dump for export/restore.
type BackupDTO struct {
	Version    int                                    `json:"version"`
	ExportDate string                                 `json:"exportDate"`
	Stores     map[generic.StoreName][]generic.Record `json:"stores"`
	Queue      []generic.QueueEntry                   `json:"queue,omitempty"`
}
