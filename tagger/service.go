// Package tagger ties the tag container, the catalog client and the review
// session together behind one mutex-guarded service.
package tagger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/sv4u/mtag/tagger/config"
	"github.com/sv4u/mtag/tagger/history"
	"github.com/sv4u/mtag/tagger/logging"
	"github.com/sv4u/mtag/tagger/lyrics"
	"github.com/sv4u/mtag/tagger/metadata"
	"github.com/sv4u/mtag/tagger/netease"
	"github.com/sv4u/mtag/tagger/scanner"
	"github.com/sv4u/mtag/tagger/session"
)

var (
	// ErrNoDirectory is returned before SetDirectory has succeeded.
	ErrNoDirectory = errors.New("no music directory selected")
	// ErrFileChanged is returned by Select when another file was opened
	// while the candidate was being fetched.
	ErrFileChanged = errors.New("open file changed during select")
)

// Catalog is the song catalog the service searches.
type Catalog interface {
	Search(ctx context.Context, query string) ([]netease.Song, error)
	Lyric(ctx context.Context, id int64) (lyrics.Raw, error)
	Image(ctx context.Context, url string) ([]byte, error)
}

// EditLog records saved edits. It may be nil.
type EditLog interface {
	Record(e history.Edit) (history.Edit, error)
	Recent(limit int) ([]history.Edit, error)
	ForPath(path string) ([]history.Edit, error)
}

// Service is safe for concurrent use.
type Service struct {
	config    *config.MtagConfig
	logger    *logging.Logger
	catalog   Catalog
	converter scanner.TextConverter
	history   EditLog

	mu      sync.Mutex
	dir     string
	entries []scanner.Entry
	session *session.Session
	songs   map[int64]netease.Song // last search results by id

	watchCtx    context.Context
	watchNotify func(scanner.Event)
	stopWatch   context.CancelFunc
}

// NewService creates a service. history may be nil.
func NewService(cfg *config.MtagConfig, logger *logging.Logger, catalog Catalog, conv scanner.TextConverter, hist EditLog) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	if conv == nil {
		conv = scanner.Identity{}
	}
	return &Service{
		config:    cfg,
		logger:    logger,
		catalog:   catalog,
		converter: conv,
		history:   hist,
		session:   session.New(nil),
		songs:     make(map[int64]netease.Song),
	}
}

// SetDirectory scans dir, resets the session over its files and remembers
// dir for the next start.
func (s *Service) SetDirectory(dir string) ([]scanner.Entry, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, &scanner.ScanError{Dir: dir, Original: err}
	}
	entries, err := scanner.Scan(abs)
	if err != nil {
		s.logger.Error("scan", "directory scan failed", err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.session.Close(); err != nil {
		log.Printf("WARN: session_close_failed error=%v", err)
	}
	s.dir = abs
	s.entries = entries
	s.session = session.New(entryPaths(entries))
	s.songs = make(map[int64]netease.Song)

	if s.watchNotify != nil {
		if err := s.startWatchLocked(abs); err != nil {
			s.logger.Warn("watch", "could not watch "+abs, err)
		}
	}
	if err := s.config.SaveLastDir(abs); err != nil {
		s.logger.Warn("scan", "could not persist last directory", err)
	}
	s.logger.Infof("scan", "scanned %s: %d files", abs, len(entries))
	return entries, nil
}

// Files returns the scanned directory and its entries in review order.
func (s *Service) Files() (string, []scanner.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir, append([]scanner.Entry(nil), s.entries...)
}

// Rescan refreshes entry flags without disturbing the session. Known files
// keep their place in the review order, new files are appended in work order
// and removed files are dropped.
func (s *Service) Rescan() ([]scanner.Entry, error) {
	s.mu.Lock()
	dir := s.dir
	s.mu.Unlock()
	if dir == "" {
		return nil, ErrNoDirectory
	}

	fresh, err := scanner.Scan(dir)
	if err != nil && !errors.Is(err, scanner.ErrNoFiles) {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != dir {
		return append([]scanner.Entry(nil), s.entries...), nil
	}
	s.entries = mergeEntries(s.entries, fresh)
	if err := s.session.SetFiles(entryPaths(s.entries)); err != nil {
		log.Printf("WARN: session_close_failed error=%v", err)
	}
	return append([]scanner.Entry(nil), s.entries...), nil
}

// OpenFile opens entry i of the review order.
func (s *Service) OpenFile(i int) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir == "" {
		return State{}, ErrNoDirectory
	}
	err := s.session.Open(i)
	return s.stateLocked(), err
}

// OpenPath opens the entry at path.
func (s *Service) OpenPath(path string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir == "" {
		return State{}, ErrNoDirectory
	}
	err := s.session.OpenPath(path)
	return s.stateLocked(), err
}

// Move opens the file delta positions away from the current one.
func (s *Service) Move(delta int) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir == "" {
		return State{}, ErrNoDirectory
	}
	err := s.session.Move(delta)
	return s.stateLocked(), err
}

// State returns the review state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Cover returns the pending cover image of the open file.
func (s *Service) Cover() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.session.Current(); !ok {
		return nil, session.ErrNoFile
	}
	return s.session.Pending().Image, nil
}

// Edit applies a manual edit to the open file. Lyrics, when set, is LRC text.
func (s *Service) Edit(req EditRequest) (State, error) {
	fields := metadata.Fields{Title: req.Title, Album: req.Album, Artist: req.Artist, URL: req.URL}
	if req.Lyrics != "" {
		result := lyrics.Decode(lyrics.Raw{Primary: req.Lyrics}, false)
		fields.SyncLyrics = result.Lines
		fields.UnsyncLyrics = result.Text
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.session.Edit(fields)
	return s.stateLocked(), err
}

// Candidates searches the catalog with the open file's name.
func (s *Service) Candidates(ctx context.Context) (string, []netease.Song, error) {
	s.mu.Lock()
	path, ok := s.session.Current()
	s.mu.Unlock()
	if !ok {
		return "", nil, session.ErrNoFile
	}

	key := scanner.SearchKey(path, s.converter)
	songs, err := s.catalog.Search(ctx, key)
	if err != nil {
		if !errors.Is(err, netease.ErrNoResults) {
			s.logger.Error("search", fmt.Sprintf("catalog search for %q failed", key), err)
		}
		return key, nil, err
	}

	byID := make(map[int64]netease.Song, len(songs))
	for _, song := range songs {
		byID[song.ID] = song
	}
	s.mu.Lock()
	s.songs = byID
	s.mu.Unlock()
	return key, songs, nil
}

// LyricText fetches and decodes the lyric of a catalog song.
func (s *Service) LyricText(ctx context.Context, id int64) (lyrics.Result, error) {
	raw, err := s.catalog.Lyric(ctx, id)
	if err != nil {
		return lyrics.Result{}, err
	}
	return lyrics.Decode(raw, s.includeTranslation()), nil
}

// Select overlays catalog song id onto the open file. The song must come from
// the last Candidates call. Lyric and cover fetch failures are logged and
// leave those fields as they were.
func (s *Service) Select(ctx context.Context, id int64) (State, error) {
	s.mu.Lock()
	song, known := s.songs[id]
	path, open := s.session.Current()
	s.mu.Unlock()
	if !open {
		return s.State(), session.ErrNoFile
	}
	if !known {
		return s.State(), fmt.Errorf("song %d: %w", id, netease.ErrNoResults)
	}

	var lyric *lyrics.Result
	if result, err := s.LyricText(ctx, id); err != nil {
		s.logger.Warn("select", fmt.Sprintf("lyric fetch for song %d failed", id), err)
	} else {
		lyric = &result
	}

	var image []byte
	if song.PicURL != "" {
		img, err := s.catalog.Image(ctx, song.PicURL)
		if err != nil {
			s.logger.Warn("select", fmt.Sprintf("cover fetch for song %d failed", id), err)
		} else {
			image = img
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.session.Current(); !ok || current != path {
		log.Printf("WARN: select_discarded song=%d file=%s", id, path)
		return s.stateLocked(), fmt.Errorf("song %d for %s: %w", id, filepath.Base(path), ErrFileChanged)
	}
	err := s.session.ApplyCandidate(song, lyric, image, netease.SongURL(id))
	return s.stateLocked(), err
}

// SaveAndNext writes the pending edit, records it and opens the next file.
// Saving the last file leaves no file open and is not an error.
func (s *Service) SaveAndNext() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, ok := s.session.Current()
	if !ok {
		return s.stateLocked(), session.ErrNoFile
	}
	written, err := s.session.Save()
	if err != nil {
		s.logger.Error("save", "tag save failed for "+path, err)
		return s.stateLocked(), err
	}
	s.recordLocked(path, written)
	s.refreshEntryLocked(path, s.session.Baseline())

	if err := s.session.Move(1); err != nil && !errors.Is(err, session.ErrOutOfRange) {
		return s.stateLocked(), err
	}
	return s.stateLocked(), nil
}

// History returns the most recent saved edits, or those of path when set.
func (s *Service) History(path string, limit int) ([]history.Edit, error) {
	if s.history == nil {
		return []history.Edit{}, nil
	}
	if path != "" {
		return s.history.ForPath(path)
	}
	return s.history.Recent(limit)
}

// Watch reports MP3 changes in the current directory, and in every directory
// set later, until ctx is done. Each event triggers a rescan before notify.
func (s *Service) Watch(ctx context.Context, notify func(scanner.Event)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchCtx = ctx
	s.watchNotify = notify
	if s.dir == "" {
		return nil
	}
	return s.startWatchLocked(s.dir)
}

func (s *Service) startWatchLocked(dir string) error {
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
	w, err := scanner.NewWatcher(dir, s.config.Scanner.DebounceDuration())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(s.watchCtx)
	s.stopWatch = cancel
	notify := s.watchNotify

	go w.Run(ctx)
	go func() {
		for ev := range w.Events() {
			if _, err := s.Rescan(); err != nil {
				log.Printf("WARN: rescan_failed dir=%s error=%v", dir, err)
			}
			notify(ev)
		}
	}()
	log.Printf("INFO: watching dir=%s", dir)
	return nil
}

// Close stops watching and releases the open file.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
	return s.session.Close()
}

func (s *Service) includeTranslation() bool {
	t := s.config.Catalog.IncludeTranslation
	return t == nil || *t
}

func (s *Service) recordLocked(path string, written metadata.Fields) {
	kinds := written.Kinds()
	frames := make([]string, len(kinds))
	for i, k := range kinds {
		frames[i] = k.String()
	}
	s.logger.Log(logging.LogLevelInfo, "save", "tag saved", nil, map[string]interface{}{
		"path":   path,
		"frames": frames,
	})
	if s.history == nil {
		return
	}
	_, err := s.history.Record(history.Edit{
		Path:       path,
		Title:      written.Title,
		Artist:     written.Artist,
		Album:      written.Album,
		SourceURL:  written.URL,
		HasCover:   len(written.Image) > 0,
		LyricLines: len(written.SyncLyrics),
		Frames:     frames,
	})
	if err != nil {
		s.logger.Warn("save", "history record failed", err)
	}
}

// refreshEntryLocked updates the flags of path in place. The order is kept
// so that the session cursor stays valid.
func (s *Service) refreshEntryLocked(path string, info metadata.MusicInfo) {
	for i := range s.entries {
		if s.entries[i].Path == path {
			s.entries[i].SetInfo(info)
			return
		}
	}
}

// mergeEntries returns old in its order with the values of fresh, followed by
// the entries only fresh holds. Entries missing from fresh are dropped.
func mergeEntries(old, fresh []scanner.Entry) []scanner.Entry {
	byPath := make(map[string]scanner.Entry, len(fresh))
	for _, e := range fresh {
		byPath[e.Path] = e
	}
	merged := make([]scanner.Entry, 0, len(fresh))
	for _, e := range old {
		if f, ok := byPath[e.Path]; ok {
			merged = append(merged, f)
			delete(byPath, e.Path)
		}
	}
	for _, e := range fresh {
		if _, ok := byPath[e.Path]; ok {
			merged = append(merged, e)
		}
	}
	return merged
}

func entryPaths(entries []scanner.Entry) []string {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return paths
}
