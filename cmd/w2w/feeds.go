package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/w2w-movies/w2w/internal/app"
	"github.com/w2w-movies/w2w/internal/domain"
)

func (c *cli) homeCmd() *cobra.Command {
	var rows int
	cmd := &cobra.Command{
		Use:   "home",
		Short: "Afficher l'accueil: nouveautés, films, séries, animation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			out := cmd.OutOrStdout()
			settings, err := c.settings(ctx)
			if err != nil {
				return err
			}
			screens := app.NewScreenService(c.logger, c.catalogue, settings, nil)
			defer screens.CloseAll()

			scr, err := screens.Open(ctx, app.ScreenSpec{Layout: app.LayoutHome}, true)
			if err != nil {
				return err
			}

			if history, err := c.history(ctx); err == nil {
				if recent, err := history.ContinueWatching(ctx, rows); err == nil && len(recent) > 0 {
					section(out, "Continue watching")
					if err := renderHistory(out, recent); err != nil {
						return err
					}
				}
			}

			for _, feed := range scr.View().Feeds {
				section(out, fmt.Sprintf("%s (%s)", feed.Kind, feed.State))
				if feed.HasError {
					warnf(out, "  %s", feed.Error)
					continue
				}
				items := feed.Items
				if rows > 0 && len(items) > rows {
					items = items[:rows]
				}
				if err := renderMovies(out, items, 0); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 10, "lignes affichées par section")
	return cmd
}

type listOptions struct {
	pages    int
	limit    int
	sort     string
	lang     string
	category string
	country  string
	year     int
}

func (o listOptions) feedConfig(kind domain.FeedKind) (app.FeedConfig, error) {
	sortSpec := domain.DefaultSort()
	if o.sort != "" {
		s, err := domain.ParseSort(o.sort)
		if err != nil {
			return app.FeedConfig{}, err
		}
		sortSpec = s
	}
	filter := domain.ListFilter{Lang: o.lang, Category: o.category, Country: o.country, Year: o.year}
	if err := filter.Validate(); err != nil {
		return app.FeedConfig{}, err
	}
	return app.FeedConfig{Kind: kind, PageSize: o.limit, Sort: sortSpec, Filter: filter}, nil
}

func (c *cli) listCmd() *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "Lister un flux (movies, series, animation, tvshows, new...) page par page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseFeedKind(args[0])
			if err != nil {
				return err
			}
			cfg, err := opts.feedConfig(kind)
			if err != nil {
				return err
			}
			snap, err := accumulate(commandContext(cmd), app.NewAccumulator(app.CatalogueFetcher(c.catalogue), app.AccumulatorOptions{
				Name:   kind.String(),
				Logger: c.logger,
			}), cfg, opts.pages)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := renderMovies(out, snap.Items, 0); err != nil {
				return err
			}
			switch {
			case snap.Halted:
				warnf(out, "page %d/%d: loading more failed, showing what was loaded", snap.Page, snap.TotalPages)
			case snap.CanLoadMore():
				plainf(out, "page %d/%d (--pages %d for more)", snap.Page, snap.TotalPages, snap.Page+1)
			default:
				okf(out, "page %d/%d: end of list", snap.Page, snap.TotalPages)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.pages, "pages", 1, "nombre de pages à charger")
	cmd.Flags().IntVar(&opts.limit, "limit", domain.DefaultPageSize, "films par page")
	cmd.Flags().StringVar(&opts.sort, "sort", "", "tri field:order (modified.time, _id, year; asc|desc)")
	cmd.Flags().StringVar(&opts.lang, "lang", "", "vietsub, thuyet-minh ou long-tieng")
	cmd.Flags().StringVar(&opts.category, "category", "", "slug de catégorie (ex: hanh-dong)")
	cmd.Flags().StringVar(&opts.country, "country", "", "slug de pays (ex: han-quoc)")
	cmd.Flags().IntVar(&opts.year, "year", 0, "année de sortie")
	return cmd
}

// accumulate charge la première page puis demande les suivantes jusqu'à pages
// (ou la fin de la liste). Une erreur sur la première page est renvoyée.
func accumulate(ctx context.Context, acc *app.Accumulator[domain.Movie], cfg app.FeedConfig, pages int) (app.FeedSnapshot[domain.Movie], error) {
	defer acc.Close()
	if err := acc.Initialize(cfg); err != nil {
		return app.FeedSnapshot[domain.Movie]{}, err
	}
	for {
		if err := acc.WaitSettled(ctx); err != nil {
			return app.FeedSnapshot[domain.Movie]{}, err
		}
		snap := acc.Snapshot()
		if snap.HasError() {
			return snap, snap.Err
		}
		if snap.Page >= pages || !acc.RequestNextPage() {
			return snap, nil
		}
	}
}
