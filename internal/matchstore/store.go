// Package matchstore reads and maintains the directory of match input
// records and their event logs. Match records are named *_match.json and
// point at their event log through the eventsLogFile field.
package matchstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"amongus-ranked/internal/events"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrNotFound is returned when no match record carries the requested ID.
var ErrNotFound = errors.New("match file not found")

const listWorkers = 8

type Store struct {
	dir    string
	logger zerolog.Logger
}

func New(dir string, logger zerolog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// Dir returns the store's directory.
func (s *Store) Dir() string {
	return s.dir
}

// ListSorted returns every match file name ordered by game start time.
// Records whose timestamp is missing or malformed sort first, so they are
// visited before anything dated.
func (s *Store) ListSorted(ctx context.Context) ([]string, error) {
	names, err := s.matchFiles()
	if err != nil {
		return nil, err
	}

	type entry struct {
		name  string
		start time.Time
	}
	entries := make([]entry, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(listWorkers)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entries[i] = entry{name: name, start: s.startTimeOf(name)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].start.Before(entries[j].start)
	})
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.name
	}
	return out, nil
}

// FindByID locates the match file carrying the given ID. Returns ErrNotFound
// when no record matches.
func (s *Store) FindByID(ctx context.Context, matchID int) (string, error) {
	names, err := s.matchFiles()
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("failed to read match file")
			continue
		}
		info, err := events.DecodeMatchInfo(data)
		if err != nil {
			continue
		}
		if info.MatchID == matchID {
			return name, nil
		}
	}
	return "", fmt.Errorf("match %d: %w", matchID, ErrNotFound)
}

// Info reads a match record without its event log.
func (s *Store) Info(fileName string) (events.MatchInfo, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, fileName))
	if err != nil {
		return events.MatchInfo{}, fmt.Errorf("reading match file %s: %w", fileName, err)
	}
	info, err := events.DecodeMatchInfo(data)
	if err != nil {
		return events.MatchInfo{}, fmt.Errorf("match file %s: %w", fileName, err)
	}
	return info, nil
}

// Load reads a match record and its event log.
func (s *Store) Load(fileName string) (events.MatchInfo, []events.Event, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, fileName))
	if err != nil {
		return events.MatchInfo{}, nil, fmt.Errorf("reading match file %s: %w", fileName, err)
	}
	info, err := events.DecodeMatchInfo(data)
	if err != nil {
		return events.MatchInfo{}, nil, fmt.Errorf("match file %s: %w", fileName, err)
	}

	if info.EventsLogFile == "" {
		return info, nil, fmt.Errorf("match file %s names no event log", fileName)
	}
	evData, err := os.ReadFile(filepath.Join(s.dir, info.EventsLogFile))
	if err != nil {
		return events.MatchInfo{}, nil, fmt.Errorf("reading event log %s: %w", info.EventsLogFile, err)
	}
	evs, err := events.DecodeEvents(evData)
	if err != nil {
		return events.MatchInfo{}, nil, fmt.Errorf("event log %s: %w", info.EventsLogFile, err)
	}
	return info, evs, nil
}

// UpdateResult rewrites the result field of a match record in place,
// preserving the rest of the record.
func (s *Store) UpdateResult(fileName, result string) error {
	path := filepath.Join(s.dir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading match file %s: %w", fileName, err)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("match file %s: %w", fileName, err)
	}

	key := "result"
	for k := range record {
		if strings.EqualFold(k, "result") {
			key = k
			break
		}
	}
	record[key] = result

	return s.writeRecord(path, record)
}

// RenamePlayer replaces a player's name across every match record roster and
// event log in the store. Returns the number of files touched.
func (s *Store) RenamePlayer(oldName, newName string) (int, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("reading match directory: %w", err)
	}

	changed := 0
	for _, entry := range dirEntries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		touched, err := s.renameInFile(path, oldName, newName)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("failed to rename player in file")
			continue
		}
		if touched {
			changed++
		}
	}
	return changed, nil
}

func (s *Store) renameInFile(path, oldName, newName string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	var record map[string]any
	if err := json.Unmarshal(data, &record); err == nil {
		touched := renameInRosters(record, oldName, newName)
		if !touched {
			return false, nil
		}
		return true, s.writeRecord(path, record)
	}

	var log []map[string]any
	if err := json.Unmarshal(data, &log); err != nil {
		return false, nil
	}
	touched := false
	for _, ev := range log {
		for k, v := range ev {
			switch strings.ToLower(k) {
			case "name", "player", "target", "killer", "deadplayer":
				str, ok := v.(string)
				if ok && events.CleanName(str) == oldName {
					ev[k] = newName
					touched = true
				}
			}
		}
	}
	if !touched {
		return false, nil
	}
	return true, s.writeRecord(path, log)
}

func renameInRosters(record map[string]any, oldName, newName string) bool {
	touched := false
	for k, v := range record {
		switch strings.ToLower(k) {
		case "players", "impostors":
			joined, ok := v.(string)
			if !ok {
				continue
			}
			parts := strings.Split(joined, ",")
			for i, p := range parts {
				if events.CleanName(p) == oldName {
					parts[i] = newName
					touched = true
				}
			}
			if touched {
				record[k] = strings.Join(parts, ",")
			}
		}
	}
	return touched
}

func (s *Store) writeRecord(path string, v any) error {
	out, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (s *Store) matchFiles() ([]string, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("match directory %s does not exist: %w", s.dir, err)
		}
		return nil, fmt.Errorf("reading match directory: %w", err)
	}
	var names []string
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		if strings.Contains(strings.ToLower(entry.Name()), "match.json") {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func (s *Store) startTimeOf(name string) time.Time {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		s.logger.Error().Err(err).Str("file", name).Msg("failed to read match file")
		return time.Time{}
	}
	info, err := events.DecodeMatchInfo(data)
	if err != nil {
		s.logger.Error().Err(err).Str("file", name).Msg("failed to decode match file")
		return time.Time{}
	}
	return info.StartTime
}
