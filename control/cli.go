package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sv4u/mtag/tagger/lyrics"
	"github.com/sv4u/mtag/tagger/metadata"
	"github.com/sv4u/mtag/tagger/netease"
)

// Exit codes for the one-shot commands.
const (
	ExitSuccess     = 0
	ExitUsage       = 1
	ExitConfigError = 2
	ExitNotFound    = 3
	ExitNetwork     = 4
	ExitFileError   = 5
)

const commandTimeout = 30 * time.Second

// infoCommand prints the tracked frames of one MP3 file.
func infoCommand(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	lrcOnly := fs.Bool("lrc", false, "Print only the synchronised lyrics as LRC")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: mtag info [--lrc] <file.mp3>")
		return ExitUsage
	}
	path := fs.Arg(0)

	c, err := metadata.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitFileError
	}
	defer c.Close()
	info, err := c.Info()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitFileError
	}

	if *lrcOnly {
		fmt.Fprintln(out, lyrics.Encode(info.SyncLyrics))
		return ExitSuccess
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "File:\t%s\n", path)
	fmt.Fprintf(tw, "Title:\t%s\n", info.Title)
	fmt.Fprintf(tw, "Artist:\t%s\n", info.Artist)
	fmt.Fprintf(tw, "Album:\t%s\n", info.Album)
	if len(info.Image) > 0 {
		fmt.Fprintf(tw, "Cover:\t%d bytes\n", len(info.Image))
	} else {
		fmt.Fprintf(tw, "Cover:\tnone\n")
	}
	fmt.Fprintf(tw, "URL:\t%s\n", info.URL)
	fmt.Fprintf(tw, "Lyrics:\t%d synced lines\n", len(info.SyncLyrics))
	tw.Flush()

	if len(info.SyncLyrics) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, lyrics.Encode(info.SyncLyrics))
	} else if info.UnsyncLyrics != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, info.UnsyncLyrics)
	}
	return ExitSuccess
}

// searchCommand lists catalog matches for a query.
func searchCommand(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	envFile := fs.String("env", defaultEnvFile, "Path to .env file")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: mtag search [--config path] <query>")
		return ExitUsage
	}

	cfg, err := loadConfig(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return ExitConfigError
	}
	client := netease.NewClient(catalogConfig(&cfg.Catalog))
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	songs, err := client.Search(ctx, query)
	if errors.Is(err, netease.ErrNoResults) {
		fmt.Fprintf(os.Stderr, "No results for %q\n", query)
		return ExitNotFound
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitNetwork
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tARTIST\tALBUM")
	for _, s := range songs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.ID, s.Name, s.Artist, s.Album)
	}
	tw.Flush()
	return ExitSuccess
}

// lyricsCommand prints the decoded lyrics of a catalog song as LRC.
func lyricsCommand(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("lyrics", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	envFile := fs.String("env", defaultEnvFile, "Path to .env file")
	noTranslation := fs.Bool("no-translation", false, "Drop translated lines")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: mtag lyrics [--config path] [--no-translation] <song-id>")
		return ExitUsage
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintf(os.Stderr, "Invalid song id: %q\n", fs.Arg(0))
		return ExitUsage
	}

	cfg, err := loadConfig(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return ExitConfigError
	}
	client := netease.NewClient(catalogConfig(&cfg.Catalog))
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	raw, err := client.Lyric(ctx, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitNetwork
	}
	res := lyrics.Decode(raw, *cfg.Catalog.IncludeTranslation && !*noTranslation)
	if !res.Found {
		fmt.Fprintf(os.Stderr, "No lyrics for song %d\n", id)
		return ExitNotFound
	}
	fmt.Fprintln(out, lyrics.Encode(res.Lines))
	return ExitSuccess
}
