// Package cli はローカル用のpetcalコマンドを提供する。
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/k-negishi/pet-calendar/internal/app"
	"github.com/k-negishi/pet-calendar/internal/config"
	"github.com/k-negishi/pet-calendar/internal/domain"
)

// AppFactory 設定からAppを組み立てる関数
type AppFactory func(ctx context.Context) (*app.App, error)

type env struct {
	newApp AppFactory
	app    *app.App
}

// NewRootCmd 環境変数・.env・CONFIG_FILEの設定で動くルートコマンド
func NewRootCmd() *cobra.Command {
	return newRootCmd(func(ctx context.Context) (*app.App, error) {
		cfg, err := config.Load(ctx)
		if err != nil {
			return nil, err
		}
		return app.New(ctx, cfg)
	})
}

func newRootCmd(newApp AppFactory) *cobra.Command {
	e := &env{newApp: newApp}

	cmd := &cobra.Command{
		Use:          "petcal",
		Short:        "ペットカレンダーのCLI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # 今月のカレンダー
  petcal grid

  # 日付の予定
  petcal day 2026-02-05

  # 毎月の予定を作成
  petcal create --title "フィラリアの薬" --start "2026-02-01 08:00" --repeat monthly
`),
	}

	cmd.AddCommand(newGridCmd(e))
	cmd.AddCommand(newDayCmd(e))
	cmd.AddCommand(newShowCmd(e))
	cmd.AddCommand(newCreateCmd(e))
	cmd.AddCommand(newUpdateCmd(e))
	cmd.AddCommand(newDeleteCmd(e))
	cmd.AddCommand(newExportCmd(e))
	cmd.AddCommand(newDigestCmd(e))

	return cmd
}

// load 初回呼び出し時にAppを組み立てる
func (e *env) load(ctx context.Context) (*app.App, error) {
	if e.app != nil {
		return e.app, nil
	}
	a, err := e.newApp(ctx)
	if err != nil {
		return nil, err
	}
	e.app = a
	return a, nil
}

// resolveMonth --month（YYYY-MM）、未指定なら今月
func resolveMonth(a *app.App, value string) (domain.MonthKey, error) {
	if value == "" {
		return domain.MonthKeyOf(a.Today()), nil
	}
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return domain.MonthKey{}, fmt.Errorf("--monthの形式が不正です（YYYY-MM）: %q", value)
	}
	return domain.MonthKey{Year: t.Year(), Month: int(t.Month()) - 1}, nil
}

var dateTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDateTime 日時をタイムゾーンlocで解釈
func parseDateTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("日時の形式が不正です: %q", value)
}
