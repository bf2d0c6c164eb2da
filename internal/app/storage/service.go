/*
Package storage archives finished battles to S3-compatible object storage and hands out
presigned download links for the stored transcripts.
*/
package storage

import (
	"context"
	"time"

	"dojo/internal/app/battle"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// ArchiveService defines the public interface for the battle transcript archive.
type ArchiveService interface {
	// RecordBattle uploads the JSON form of a finished battle.
	RecordBattle(ctx context.Context, res battle.Result) error

	// PresignDownload generates a pre-signed URL for downloading an archived battle.
	PresignDownload(ctx context.Context, roomCode string, finishedAtMs int64, duration time.Duration) (string, error)

	// Exists reports whether a battle was archived under the code and finish time.
	Exists(ctx context.Context, roomCode string, finishedAtMs int64) (bool, error)
}

// NewArchiveService is the factory function for ArchiveService.
// It initializes and returns a concrete implementation based on the provided configuration.
func NewArchiveService(ctx context.Context, cfg ServiceConfig) (ArchiveService, error) {
	// Currently, only S3 compatible implementations are supported.
	return newS3Archive(ctx, cfg)
}
