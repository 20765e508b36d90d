package layout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/trainrace/log"
	"github.com/mpapenbr/trainrace/pkg/cmd/util"
	"github.com/mpapenbr/trainrace/pkg/config"
	"github.com/mpapenbr/trainrace/pkg/layout"
	"github.com/mpapenbr/trainrace/pkg/model"
)

func NewLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "manage stored station and crossing layouts",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			util.SetupLogger(os.Stderr)
		},
	}
	cmd.AddCommand(newSaveCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newDeleteCmd())
	return cmd
}

func newSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save NAME",
		Short: "stores the waypoints given by the position flags under NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve()
			if err != nil {
				return err
			}
			l := layout.FromWaypointSets(args[0], cfg.Waypoints)
			return withStore(cmd.Context(), func(ctx context.Context, s *layout.Store) error {
				if err := s.Save(ctx, l); err != nil {
					return err
				}
				log.Info("layout saved", log.String("name", l.Name))
				return nil
			})
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "lists the stored layouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, s *layout.Store) error {
				all, err := s.List(ctx)
				if err != nil {
					return err
				}
				writeList(cmd.OutOrStdout(), all)
				return nil
			})
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "shows the positions of a stored layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, s *layout.Store) error {
				l, err := s.Load(ctx, args[0])
				if err != nil {
					return err
				}
				writeLayout(cmd.OutOrStdout(), &l)
				return nil
			})
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "removes a stored layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, s *layout.Store) error {
				return s.Delete(ctx, args[0])
			})
		},
	}
}

//nolint:whitespace // multiline signature
func withStore(
	ctx context.Context,
	fn func(ctx context.Context, s *layout.Store) error,
) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := layout.Open(config.LayoutDB)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Warn("could not close layout db", log.ErrorField(err))
		}
	}()
	return fn(ctx, s)
}

func writeList(w io.Writer, all []layout.Layout) {
	if len(all) == 0 {
		fmt.Fprintln(w, "no layouts stored")
		return
	}
	width := lo.Max(lo.Map(all, func(l layout.Layout, _ int) int { return len(l.Name) }))
	for i := range all {
		counts := lo.Map(model.Trains[:], func(id model.TrainID, _ int) string {
			tl := all[i].Trains[id]
			return fmt.Sprintf("%s %d/%d", id, tl.StationCount, tl.CrossingCount)
		})
		fmt.Fprintf(w, "%-*s  %s  (stations/crossings)  %s\n",
			width, all[i].Name, strings.Join(counts, "  "),
			all[i].UpdatedAt.Format("2006-01-02 15:04"))
	}
}

func writeLayout(w io.Writer, l *layout.Layout) {
	fmt.Fprintf(w, "layout %s\n", l.Name)
	for _, id := range model.Trains {
		tl := l.Trains[id]
		fmt.Fprintf(w, "  %-5s stations:  %s\n", id, formatPositions(tl.Stations))
		fmt.Fprintf(w, "  %-5s crossings: %s\n", id, formatPositions(tl.Crossings))
	}
}

func formatPositions(p []float64) string {
	if len(p) == 0 {
		return "-"
	}
	return strings.Join(lo.Map(p, func(v float64, _ int) string {
		return fmt.Sprintf("%g", v)
	}), ", ")
}
