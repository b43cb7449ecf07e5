package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/fitcore/fitcore-api/internal/config"
	"github.com/fitcore/fitcore-api/internal/domain/wallet"
	"github.com/fitcore/fitcore-api/internal/pkg/database"
	"github.com/fitcore/fitcore-api/internal/pkg/logger"
	"github.com/fitcore/fitcore-api/internal/pkg/storage"
)

const (
	maxOriginalSide = 2000
	jpegQuality     = 85
)

type receiptJob struct {
	ID         string `db:"id"`
	ReceiptKey string `db:"receipt_key"`
}

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().Msg("Starting receipt-worker")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	r2, err := storage.NewR2Storage(storage.R2Config{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		AccessKeySecret: cfg.R2AccessKeySecret,
		BucketName:      cfg.R2BucketName,
		PublicURL:       cfg.R2PublicURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create R2 storage client")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis pub/sub wake-up; polling still runs
	wake := make(chan struct{}, 1)
	go subscribeWakeups(ctx, rdb, wake)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		log.Info().Msg("Shutdown signal received")
		cancel()
	}()

	ticker := time.NewTicker(cfg.ReceiptPollInterval)
	defer ticker.Stop()
	lastIdleLog := time.Time{}
	idleLogEvery := 1 * time.Minute

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("receipt-worker stopped")
			return
		case <-wake:
			// immediate poll
		case <-ticker.C:
		}

		job, ok, err := claimNextJob(ctx, db, cfg.ReceiptMaxAttempts)
		if err != nil {
			log.Error().Err(err).Msg("DB error while claiming job")
			continue
		}
		if !ok {
			now := time.Now()
			if lastIdleLog.IsZero() || now.Sub(lastIdleLog) >= idleLogEvery {
				log.Info().Msg("Idle: no unprocessed receipts found")
				lastIdleLog = now
			}
			continue
		}

		start := time.Now()
		log.Info().
			Str("transaction_id", job.ID).
			Str("key", job.ReceiptKey).
			Msg("Processing receipt")

		finalKey, err := processOne(ctx, r2, job.ReceiptKey)

		if err != nil {
			log.Error().
				Err(err).
				Str("transaction_id", job.ID).
				Msg("Processing failed")

			if err2 := markFailed(ctx, db, job.ID, err.Error()); err2 != nil {
				log.Error().Err(err2).Str("transaction_id", job.ID).Msg("Failed to update DB status=failed")
			}
			continue
		}

		if err := markDone(ctx, db, job.ID, r2.PublicURL(finalKey)); err != nil {
			log.Error().Err(err).Str("transaction_id", job.ID).Msg("Failed to update DB status=done")
			continue
		}

		log.Info().
			Str("transaction_id", job.ID).
			Dur("took", time.Since(start)).
			Msg("Processing done")
	}
}

// processOne normalizes an uploaded receipt. Images are re-encoded as
// web-sized JPEGs with a preview thumbnail; PDFs are only verified to exist.
// Returns the key the receipt URL should point at.
func processOne(ctx context.Context, st *storage.R2Storage, originalKey string) (string, error) {
	if strings.EqualFold(path.Ext(originalKey), ".pdf") {
		exists, err := st.Exists(ctx, originalKey)
		if err != nil {
			return "", fmt.Errorf("check pdf: %w", err)
		}
		if !exists {
			return "", errors.New("receipt object missing")
		}
		return originalKey, nil
	}

	rc, err := st.Get(ctx, originalKey)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	opt := img
	if maxSide(img) > maxOriginalSide {
		opt = imaging.Fit(img, maxOriginalSide, maxOriginalSide, imaging.Lanczos)
	}

	var optBuf bytes.Buffer
	if err := imaging.Encode(&optBuf, opt, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("encode optimized: %w", err)
	}

	base := strings.TrimSuffix(originalKey, path.Ext(originalKey))
	finalKey := base + ".jpg"
	if err := st.Put(ctx, finalKey, bytes.NewReader(optBuf.Bytes()), "image/jpeg"); err != nil {
		return "", fmt.Errorf("upload optimized: %w", err)
	}

	// Preview thumbnail for the admin console list view
	thumb := imaging.Fit(opt, 400, 400, imaging.Lanczos)
	var b bytes.Buffer
	if err := imaging.Encode(&b, thumb, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("encode thumb: %w", err)
	}
	if err := st.Put(ctx, base+"_thumb.jpg", bytes.NewReader(b.Bytes()), "image/jpeg"); err != nil {
		return "", fmt.Errorf("upload thumb: %w", err)
	}

	if finalKey != originalKey {
		if err := st.Delete(ctx, originalKey); err != nil {
			log.Warn().Err(err).Str("key", originalKey).Msg("Failed to delete original receipt")
		}
	}

	return finalKey, nil
}

func claimNextJob(ctx context.Context, db *sqlx.DB, maxAttempts int) (*receiptJob, bool, error) {
	var j receiptJob
	err := db.GetContext(ctx, &j, `
		SELECT id, receipt_key
		FROM wallet_transactions
		WHERE receipt_key IS NOT NULL
		  AND receipt_key <> ''
		  AND receipt_status IN ('pending','failed')
		  AND receipt_attempts < $1
		ORDER BY created_at ASC
		LIMIT 1
	`, maxAttempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	// Claim atomically; safe if multiple workers run
	res, err := db.ExecContext(ctx, `
		UPDATE wallet_transactions
		SET receipt_status = 'processing',
		    receipt_attempts = receipt_attempts + 1,
		    receipt_error = NULL
		WHERE id = $1
		  AND receipt_status IN ('pending','failed')
		  AND receipt_attempts < $2
	`, j.ID, maxAttempts)
	if err != nil {
		return nil, false, err
	}

	aff, _ := res.RowsAffected()
	if aff == 0 {
		return nil, false, nil
	}

	return &j, true, nil
}

func markDone(ctx context.Context, db *sqlx.DB, id, receiptURL string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE wallet_transactions
		SET receipt_status = 'done',
		    receipt_url = $2,
		    receipt_error = NULL
		WHERE id = $1
	`, id, receiptURL)
	return err
}

func markFailed(ctx context.Context, db *sqlx.DB, id string, msg string) error {
	// attempts already incremented in claim
	if len(msg) > 2000 {
		msg = msg[:2000]
	}
	_, err := db.ExecContext(ctx, `
		UPDATE wallet_transactions
		SET receipt_status = 'failed',
		    receipt_error = $2
		WHERE id = $1
	`, id, msg)
	return err
}

func subscribeWakeups(ctx context.Context, rdb *redis.Client, wake chan<- struct{}) {
	sub := rdb.Subscribe(ctx, wallet.ReceiptWakeChannel)
	defer func() { _ = sub.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Channel():
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	}
}

func maxSide(i image.Image) int {
	w, h := i.Bounds().Dx(), i.Bounds().Dy()
	if w > h {
		return w
	}
	return h
}
