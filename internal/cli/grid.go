package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/k-negishi/pet-calendar/internal/calendar"
	"github.com/k-negishi/pet-calendar/internal/domain"
)

func newGridCmd(e *env) *cobra.Command {
	var (
		month    string
		selected string
		prev     bool
		next     bool
	)

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "月のカレンダーを表示",
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
			if prev {
				key = key.Prev()
			}
			if next {
				key = key.Next()
			}

			var sel domain.Date
			if selected != "" {
				sel, err = domain.ParseDate(selected)
				if err != nil {
					return err
				}
			}

			grid := a.MonthGrid(cmd.Context(), key, sel)
			writeGrid(cmd.OutOrStdout(), key, grid)
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "表示する月（YYYY-MM、既定は今月）")
	cmd.Flags().StringVar(&selected, "select", "", "選択中の日付（YYYY-MM-DD）")
	cmd.Flags().BoolVar(&prev, "prev", false, "前の月を表示")
	cmd.Flags().BoolVar(&next, "next", false, "次の月を表示")
	cmd.MarkFlagsMutuallyExclusive("prev", "next")
	return cmd
}

// writeGrid グリッドをテキストで出力する。
// 今日は[ ]、選択日は< >、イベントのある日は*、前後の月の日は( )で囲む。
func writeGrid(w io.Writer, key domain.MonthKey, grid calendar.Grid) {
	fmt.Fprintf(w, "%s\n", key)
	fmt.Fprintln(w, "  月    火    水    木    金    土    日")
	for _, week := range grid.Weeks() {
		cells := make([]string, 0, calendar.DaysPerWeek)
		for _, c := range week {
			cells = append(cells, formatCell(c))
		}
		fmt.Fprintln(w, strings.Join(cells, " "))
	}
}

func formatCell(c calendar.Cell) string {
	mark := " "
	if len(c.Events) > 0 {
		mark = "*"
	}
	day := fmt.Sprintf("%2d", c.DayOfMonth)
	switch {
	case !c.IsCurrentMonth:
		return fmt.Sprintf("(%s)%s", day, mark)
	case c.IsToday:
		return fmt.Sprintf("[%s]%s", day, mark)
	case c.IsSelected:
		return fmt.Sprintf("<%s>%s", day, mark)
	default:
		return fmt.Sprintf(" %s %s", day, mark)
	}
}
