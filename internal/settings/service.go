// Package settings はポータル設定（ニュースキーワード・Xターゲット・電力使用量）の
// 検証と保存を提供する。
package settings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uhot33-create/MyPortal/internal/metrics"
	"github.com/uhot33-create/MyPortal/internal/model"
	"github.com/uhot33-create/MyPortal/internal/repository"
)

// コレクション名（ログ・メトリクス・エラーメッセージで使用）
const (
	CollectionNews         = "news"
	CollectionXTargets     = "x"
	CollectionPowerDaily   = "power_daily"
	CollectionPowerMonthly = "power_monthly"
)

// PowerSettings は日次・月次の電力使用量をまとめたもの。
type PowerSettings struct {
	DailyItems   []model.PowerUsageDailySetting   `json:"dailyItems"`
	MonthlyItems []model.PowerUsageMonthlySetting `json:"monthlyItems"`
}

// Service は設定の取得と保存のサービス層。
// 保存は入力全体の検証に成功した場合のみ行い、検証エラーは*model.APIErrorで返す。
type Service struct {
	news         repository.NewsSettingsRepository
	xTargets     repository.XTargetRepository
	powerDaily   repository.PowerDailyRepository
	powerMonthly repository.PowerMonthlyRepository
	urlChecker   URLChecker
	metrics      metrics.Recorder
	logger       *slog.Logger
}

// NewService はServiceを生成する。
func NewService(repos *repository.Repositories, urlChecker URLChecker, rec metrics.Recorder, logger *slog.Logger) *Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{
		news:         repos.News,
		xTargets:     repos.XTargets,
		powerDaily:   repos.PowerDaily,
		powerMonthly: repos.PowerMonthly,
		urlChecker:   urlChecker,
		metrics:      rec,
		logger:       logger,
	}
}

// ListNews はニュースキーワード設定をorder昇順で返す。
func (s *Service) ListNews(ctx context.Context) ([]model.NewsKeywordSetting, error) {
	items, err := s.news.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ニュースキーワード設定の取得に失敗しました: %w", err)
	}
	return items, nil
}

// SaveNews はニュースキーワード設定を検証し、渡された集合で置き換える。
func (s *Service) SaveNews(ctx context.Context, inputs []NewsKeywordInput) error {
	records, err := SanitizeNews(inputs, s.urlChecker)
	if err != nil {
		return err
	}
	return s.save(CollectionNews, len(records), func() error { return s.news.ReplaceAll(ctx, records) })
}

// ListXTargets はXターゲット設定をorder昇順で返す。
func (s *Service) ListXTargets(ctx context.Context) ([]model.XTargetSetting, error) {
	items, err := s.xTargets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("Xターゲット設定の取得に失敗しました: %w", err)
	}
	return items, nil
}

// SaveXTargets はXターゲット設定を検証し、渡された集合で置き換える。
func (s *Service) SaveXTargets(ctx context.Context, inputs []XTargetInput) error {
	records, err := SanitizeXTargets(inputs)
	if err != nil {
		return err
	}
	return s.save(CollectionXTargets, len(records), func() error { return s.xTargets.ReplaceAll(ctx, records) })
}

// ListPower は日次（日付降順）と月次（年月降順）の電力使用量を返す。
func (s *Service) ListPower(ctx context.Context) (*PowerSettings, error) {
	daily, err := s.powerDaily.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("日次電力使用量の取得に失敗しました: %w", err)
	}
	monthly, err := s.powerMonthly.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("月次電力使用量の取得に失敗しました: %w", err)
	}
	return &PowerSettings{DailyItems: daily, MonthlyItems: monthly}, nil
}

// SavePower は日次・月次の両方を検証し、両方が妥当な場合のみそれぞれを置き換える。
func (s *Service) SavePower(ctx context.Context, daily []PowerDailyInput, monthly []PowerMonthlyInput) error {
	dailyRecords, err := SanitizePowerDaily(daily)
	if err != nil {
		return err
	}
	monthlyRecords, err := SanitizePowerMonthly(monthly)
	if err != nil {
		return err
	}

	if err := s.save(CollectionPowerDaily, len(dailyRecords), func() error {
		return s.powerDaily.ReplaceAll(ctx, dailyRecords)
	}); err != nil {
		return err
	}
	return s.save(CollectionPowerMonthly, len(monthlyRecords), func() error {
		return s.powerMonthly.ReplaceAll(ctx, monthlyRecords)
	})
}

// save は保存処理を実行し、結果をログとメトリクスに記録する。
func (s *Service) save(collection string, count int, replace func() error) error {
	err := replace()
	s.metrics.RecordSettingsSave(collection, err == nil)
	if err != nil {
		s.logger.Error("設定の保存に失敗しました",
			slog.String("collection", collection),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s の保存に失敗しました: %w", collection, err)
	}
	s.logger.Info("設定を保存しました",
		slog.String("collection", collection),
		slog.Int("count", count),
	)
	return nil
}
