package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/w2w-movies/w2w/internal/adapters/phimapi"
	"github.com/w2w-movies/w2w/internal/adapters/player"
	"github.com/w2w-movies/w2w/internal/app"
	"github.com/w2w-movies/w2w/internal/buildinfo"
	"github.com/w2w-movies/w2w/internal/domain"
	"github.com/w2w-movies/w2w/internal/ports"
)

func (c *cli) searchCmd() *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Rechercher un film par mot-clé",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := app.NewSearchService(c.logger, c.catalogue, nil, nil)
			res, err := svc.Search(commandContext(cmd), strings.Join(args, " "), page, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(res.Items) == 0 {
				warnf(out, "no results")
				return nil
			}
			offset := (max(page, 1) - 1) * len(res.Items)
			if err := renderMovies(out, res.Items, offset); err != nil {
				return err
			}
			plainf(out, "%d result(s), page %d/%d", res.Pagination.TotalItems, res.Pagination.CurrentPage, res.Pagination.TotalPages)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page de résultats")
	cmd.Flags().IntVar(&limit, "limit", 20, "résultats par page")
	return cmd
}

func (c *cli) detailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detail <slug|title>",
		Short: "Afficher la fiche d'un film et ses épisodes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.NewDetailService(c.catalogue).Get(commandContext(cmd), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			m := d.Movie
			section(out, m.Name)
			if m.OriginName != "" {
				plainf(out, "%s (%d)", m.OriginName, m.Year)
			}
			plainf(out, "%s · %s · %s", domain.FormatEpisode(m.EpisodeCurrent, m.EpisodeTotal), m.Quality, m.Lang)
			if m.Content != "" {
				plainf(out, "%s", domain.Truncate(m.Content, 300))
			}
			for i, srv := range d.Servers {
				section(out, fmt.Sprintf("[%d] %s: %d episode(s)", i, srv.Name, len(srv.Episodes)))
				names := make([]string, 0, len(srv.Episodes))
				for j, ep := range srv.Episodes {
					names = append(names, fmt.Sprintf("%d:%s", j, ep.Name))
				}
				plainf(out, "  %s", strings.Join(names, "  "))
			}
			if len(d.Servers) == 0 {
				warnf(out, "%s", app.MsgNoEpisodes)
			}
			return nil
		},
	}
}

func (c *cli) watchCmd() *cobra.Command {
	var (
		server, episode int
		playerCmd       string
		noPlay, direct  bool
	)
	cmd := &cobra.Command{
		Use:   "watch <slug>",
		Short: "Lancer un épisode dans le lecteur externe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			out := cmd.OutOrStdout()
			settings, err := c.settings(ctx)
			if err != nil {
				return err
			}
			history, err := c.history(ctx)
			if err != nil {
				return err
			}
			resolver := app.NewStreamResolver(phimapi.NewHTTPClient(c.cfg.API.Timeout, c.cfg.API.RetryMax, c.cfg.API.RetryBackoff))
			svc := app.NewWatchService(c.logger, app.NewDetailService(c.catalogue), history, settings, resolver, nil)

			var (
				p  *player.ExecPlayer
				pl ports.Player
			)
			if !noPlay {
				p = player.New(c.logger.With().Str("component", "player").Logger(), playerCmd)
				pl = p
			}
			sess, err := svc.Open(ctx, args[0], pl)
			if err != nil {
				return err
			}
			sess.ResolveDirect(direct)

			view, err := sess.Start(ctx, server, episode)
			if err != nil {
				return err
			}
			if !view.Playable() {
				warnf(out, "%s", view.Message)
				return nil
			}
			ep := ""
			if view.Episode != nil {
				ep = view.Episode.Name
			}
			okf(out, "%s · %s · %s", view.Title, view.Servers[view.ServerIndex].Name, ep)
			plainf(out, "%s", view.StreamURL)
			if p == nil {
				return nil
			}
			return p.Wait(ctx)
		},
	}
	cmd.Flags().IntVar(&server, "server", 0, "index du serveur")
	cmd.Flags().IntVar(&episode, "episode", 0, "index de l'épisode")
	cmd.Flags().StringVar(&playerCmd, "player", "mpv", "commande du lecteur")
	cmd.Flags().BoolVar(&noPlay, "no-play", false, "afficher le lien sans lancer le lecteur")
	cmd.Flags().BoolVar(&direct, "direct", false, "résoudre les liens embarqués en m3u8/mp4")
	return cmd
}

func (c *cli) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Lister les catégories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := app.NewDetailService(c.catalogue).Categories(commandContext(cmd))
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(cats))
			for _, cat := range cats {
				rows = append(rows, []string{cat.Name, cat.Slug})
			}
			return renderTable(cmd.OutOrStdout(), []string{"Name", "Slug"}, rows)
		},
	}
}

func (c *cli) countriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "Lister les pays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			countries, err := app.NewDetailService(c.catalogue).Countries(commandContext(cmd))
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(countries))
			for _, co := range countries {
				rows = append(rows, []string{co.Name, co.Slug})
			}
			return renderTable(cmd.OutOrStdout(), []string{"Name", "Slug"}, rows)
		},
	}
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Afficher la version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plainf(cmd.OutOrStdout(), "w2w %s", buildinfo.Current())
			return nil
		},
	}
}
