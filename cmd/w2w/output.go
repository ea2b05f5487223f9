package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/w2w-movies/w2w/internal/domain"
)

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	warnColor  = color.New(color.FgYellow)
	okColor    = color.New(color.FgGreen)
)

func disableColors() { color.NoColor = true }

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	t := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	t.Header(headers)
	if err := t.Bulk(rows); err != nil {
		return err
	}
	return t.Render()
}

func renderMovies(w io.Writer, movies []domain.Movie, offset int) error {
	rows := make([][]string, 0, len(movies))
	for i, m := range movies {
		year := ""
		if m.Year > 0 {
			year = strconv.Itoa(m.Year)
		}
		rows = append(rows, []string{
			strconv.Itoa(offset + i + 1),
			domain.Truncate(m.Name, 40),
			year,
			domain.FormatEpisode(m.EpisodeCurrent, m.EpisodeTotal),
			m.Quality,
			m.Lang,
			m.Slug,
		})
	}
	return renderTable(w, []string{"#", "Name", "Year", "Episode", "Quality", "Lang", "Slug"}, rows)
}

func renderHistory(w io.Writer, entries []domain.HistoryEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			domain.Truncate(e.Name, 40),
			e.ServerName,
			e.EpisodeName,
			e.WatchedAt.Local().Format("2006-01-02 15:04"),
			e.Slug,
		})
	}
	return renderTable(w, []string{"Name", "Server", "Episode", "Watched", "Slug"}, rows)
}

func section(w io.Writer, title string) {
	titleColor.Fprintf(w, "\n%s\n", title)
}

func warnf(w io.Writer, format string, args ...any) {
	warnColor.Fprintf(w, format+"\n", args...)
}

func okf(w io.Writer, format string, args ...any) {
	okColor.Fprintf(w, format+"\n", args...)
}

func plainf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}
