package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/k-negishi/pet-calendar/internal/domain"
	"github.com/k-negishi/pet-calendar/internal/recurrence"
)

func newDayCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "day <YYYY-MM-DD>",
		Short: "指定日の予定を表示",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.load(cmd.Context())
			if err != nil {
				return err
			}
			date, err := domain.ParseDate(args[0])
			if err != nil {
				return err
			}

			events := a.DayDetail(cmd.Context(), date)
			defer a.Overlay.Close()

			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintf(out, "%s: 予定なし\n", date)
				return nil
			}
			fmt.Fprintf(out, "%s (%d件)\n", date, len(events))
			for _, ev := range events {
				writeEvent(out, ev, a.Location())
			}
			return nil
		},
	}
}

func newShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <event-id>",
		Short: "イベントの詳細を表示",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.load(cmd.Context())
			if err != nil {
				return err
			}
			ev := a.Store.GetEvent(cmd.Context(), args[0])
			if ev == nil {
				return fmt.Errorf("イベントが見つかりません: %s", args[0])
			}
			writeEvent(cmd.OutOrStdout(), *ev, a.Location())
			return nil
		},
	}
}

// eventFlags create/updateで共通のフラグ
type eventFlags struct {
	title    string
	start    string
	end      string
	location string
	phone    string
	repeat   string
	color    string
}

func (f *eventFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "タイトル")
	cmd.Flags().StringVar(&f.start, "start", "", "開始日時（YYYY-MM-DD HH:MM）")
	cmd.Flags().StringVar(&f.end, "end", "", "終了日時（YYYY-MM-DD HH:MM）")
	cmd.Flags().StringVar(&f.location, "location", "", "場所")
	cmd.Flags().StringVar(&f.phone, "phone", "", "電話番号")
	cmd.Flags().StringVar(&f.repeat, "repeat", "none", "繰り返し（none|daily|weekly|monthly|yearly）")
	cmd.Flags().StringVar(&f.color, "color", "", "表示色（#rrggbb）")
}

func newCreateCmd(e *env) *cobra.Command {
	var f eventFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "イベントを作成",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.load(cmd.Context())
			if err != nil {
				return err
			}

			start, err := parseDateTime(f.start, a.Location())
			if err != nil {
				return err
			}
			freq, err := recurrence.ParseFrequency(f.repeat)
			if err != nil {
				return err
			}
			in := domain.EventInput{
				Title:          f.title,
				Location:       f.location,
				Phone:          f.phone,
				StartDate:      start,
				RecurrenceRule: recurrence.Encode(freq),
				Color:          f.color,
			}
			if f.end != "" {
				end, err := parseDateTime(f.end, a.Location())
				if err != nil {
					return err
				}
				in.EndDate = &end
			}

			created := a.CreateEvent(cmd.Context(), in)
			if created == nil {
				return errors.New("イベントの作成に失敗しました")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "作成しました: %s\n", created.ID)
			return nil
		},
	}

	f.register(cmd)
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newUpdateCmd(e *env) *cobra.Command {
	var (
		f        eventFlags
		clearEnd bool
	)

	cmd := &cobra.Command{
		Use:   "update <event-id>",
		Short: "イベントを更新（指定したフラグだけ変更）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.load(cmd.Context())
			if err != nil {
				return err
			}

			var patch domain.EventPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &f.title
			}
			if flags.Changed("location") {
				patch.Location = &f.location
			}
			if flags.Changed("phone") {
				patch.Phone = &f.phone
			}
			if flags.Changed("color") {
				patch.Color = &f.color
			}
			if flags.Changed("start") {
				start, err := parseDateTime(f.start, a.Location())
				if err != nil {
					return err
				}
				patch.StartDate = &start
			}
			if flags.Changed("end") {
				end, err := parseDateTime(f.end, a.Location())
				if err != nil {
					return err
				}
				patch.EndDate = &end
			}
			patch.ClearEndDate = clearEnd
			if flags.Changed("repeat") {
				freq, err := recurrence.ParseFrequency(f.repeat)
				if err != nil {
					return err
				}
				if freq == recurrence.None {
					patch.ClearRecurrence = true
				} else {
					patch.RecurrenceRule = recurrence.Encode(freq)
				}
			}
			if patch.IsEmpty() {
				return errors.New("変更する項目を指定してください")
			}

			updated := a.Store.UpdateEvent(cmd.Context(), args[0], patch)
			if updated == nil {
				return fmt.Errorf("イベントの更新に失敗しました: %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "更新しました: %s\n", updated.ID)
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().BoolVar(&clearEnd, "clear-end", false, "終了日時を削除")
	cmd.MarkFlagsMutuallyExclusive("end", "clear-end")
	return cmd
}

func newDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <event-id>",
		Short: "イベントを削除",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.load(cmd.Context())
			if err != nil {
				return err
			}
			if !a.Store.DeleteEvent(cmd.Context(), args[0]) {
				return fmt.Errorf("イベントの削除に失敗しました: %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "削除しました: %s\n", args[0])
			return nil
		},
	}
}

func newExportCmd(e *env) *cobra.Command {
	var (
		month  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "月のイベントをiCalendar形式で出力",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.load(cmd.Context())
			if err != nil {
				return err
			}
			key, err := resolveMonth(a, month)
			if err != nil {
				return err
			}

			ics := a.ExportMonth(cmd.Context(), key)
			if output == "" || output == "-" {
				_, err := io.WriteString(cmd.OutOrStdout(), ics)
				return err
			}
			if err := os.WriteFile(output, []byte(ics), 0o644); err != nil {
				return fmt.Errorf("ファイルの書き込みに失敗しました: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "出力する月（YYYY-MM、既定は今月）")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "出力先ファイル（-は標準出力）")
	return cmd
}

func newDigestCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "今日と明日の予定をLINEで通知",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.load(cmd.Context())
			if err != nil {
				return err
			}
			skipped, err := a.Digest(cmd.Context())
			if err != nil {
				return err
			}
			if skipped {
				fmt.Fprintln(cmd.OutOrStdout(), "予定なしのため通知スキップ")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "通知送信完了")
			return nil
		},
	}
}
