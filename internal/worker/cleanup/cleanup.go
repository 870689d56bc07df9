// Package cleanup は期限切れの認証データを定期削除するジョブを提供する。
// セッションの有効期限は読み取り時にも判定するため、このジョブは
// テーブルの肥大化を防ぐためだけに動作する。
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/authpage/internal/metrics"
)

// ExpiredPurger は期限切れレコードを削除するインターフェース。
// repository.SessionRepository と repository.VerificationTokenRepository が実装する。
type ExpiredPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// target は削除対象の種別とその削除処理の組。
type target struct {
	kind   string
	purger ExpiredPurger
}

// CleanupJob は期限切れのセッションと検証トークンの削除ジョブ。
// 冪等であり、削除対象がない場合もエラーにならない。
type CleanupJob struct {
	targets   []target
	collector metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(
	sessions ExpiredPurger,
	tokens ExpiredPurger,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *CleanupJob {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &CleanupJob{
		targets: []target{
			{kind: metrics.KindSession, purger: sessions},
			{kind: metrics.KindVerificationToken, purger: tokens},
		},
		collector: collector,
		logger:    logger,
		now:       time.Now,
	}
}

// Run は期限切れレコードを1回削除する。
// 一方の削除に失敗しても他方は実行し、失敗はまとめて返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	now := j.now().UTC()

	var errs []error
	var total int64
	for _, t := range j.targets {
		deleted, err := t.purger.DeleteExpired(ctx, now)
		if err != nil {
			j.logger.Error("期限切れレコードの削除に失敗しました",
				slog.String("kind", t.kind),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("failed to purge expired %s: %w", t.kind, err))
			continue
		}
		j.collector.RecordExpiredPurged(t.kind, deleted)
		total += deleted
		j.logger.Debug("期限切れレコードを削除しました",
			slog.String("kind", t.kind),
			slog.Int64("deleted_count", deleted),
		)
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", total),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return errors.Join(errs...)
}

// Start はinterval間隔でRunを実行する。起動直後に1回実行し、
// コンテキストがキャンセルされるまで継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました", slog.Duration("interval", interval))

	// Runはエラーをログ出力済み
	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
