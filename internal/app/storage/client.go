package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"dojo/internal/app/battle"
	"dojo/internal/pkg/logx"
)

const archivePrefix = "battles"

// ArchiveKey is the object key of a battle transcript: battles/{CODE}/{finishedAtUnixMs}.json.
func ArchiveKey(roomCode string, finishedAtMs int64) string {
	return fmt.Sprintf("%s/%s/%d.json", archivePrefix, strings.ToUpper(strings.TrimSpace(roomCode)), finishedAtMs)
}

// s3Archive implements the ArchiveService interface, handling interactions with S3-compatible storage.
type s3Archive struct {
	cfg      ServiceConfig
	client   *s3.Client
	uploader *manager.Uploader
	logger   zerolog.Logger
}

// newS3Archive initializes the S3 client using a custom configuration that supports S3-compatible endpoints.
func newS3Archive(ctx context.Context, cfg ServiceConfig) (*s3Archive, error) {
	logger := logx.Component("Archive")

	// Load Configuration
	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load AWS SDK config.")
		return nil, errors.New("failed to initialize S3 client configuration")
	}

	// Create S3 Client with Custom Endpoint Resolver.
	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &s3Archive{
		cfg:      cfg,
		client:   client,
		uploader: manager.NewUploader(client),
		logger:   logger,
	}, nil
}

// RecordBattle uploads the result as indented JSON under its ArchiveKey.
func (a *s3Archive) RecordBattle(ctx context.Context, res battle.Result) error {
	body, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode battle %s: %w", res.RoomCode, err)
	}

	key := ArchiveKey(res.RoomCode, res.FinishedAt.UnixMilli())
	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &a.cfg.S3BucketName,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		a.logger.Error().Err(err).Str("key", key).Msg("S3 upload failed.")
		return errors.New("failed to upload battle archive")
	}

	a.logger.Info().
		Str("room_code", res.RoomCode).
		Str("key", key).
		Int("bytes", len(body)).
		Msg("Battle archived.")
	return nil
}

// PresignDownload generates a presigned URL for downloading an archived battle.
func (a *s3Archive) PresignDownload(ctx context.Context, roomCode string, finishedAtMs int64, duration time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(a.client)
	key := ArchiveKey(roomCode, finishedAtMs)

	resp, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &a.cfg.S3BucketName,
		Key:    &key,
	}, s3.WithPresignExpires(duration))
	if err != nil {
		a.logger.Error().Err(err).Str("key", key).Msg("Failed to generate presigned URL.")
		return "", errors.New("failed to generate presigned URL")
	}

	return resp.URL, nil
}

// Exists checks the archived object with a HEAD request.
func (a *s3Archive) Exists(ctx context.Context, roomCode string, finishedAtMs int64) (bool, error) {
	key := ArchiveKey(roomCode, finishedAtMs)

	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &a.cfg.S3BucketName,
		Key:    &key,
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		a.logger.Error().Err(err).Str("key", key).Msg("Failed to get S3 object metadata.")
		return false, errors.New("failed to fetch S3 metadata")
	}

	return true, nil
}
