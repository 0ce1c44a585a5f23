package store

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/fleetguard/fleetguard/core/model"
)

// Archive is a write-through JSONL audit trail of everything the service
// accepts. It sits next to the primary store so operators can replay or
// export raw history even when the memory backend is in use. Files rotate
// by size and age.
type Archive struct {
	telemetry *lumberjack.Logger
	commands  *lumberjack.Logger
}

// NewArchive creates rotating JSONL files under dir.
func NewArchive(dir string, maxSizeMB, maxBackups, maxAgeDays int) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	mk := func(name string) *lumberjack.Logger {
		return &lumberjack.Logger{
			Filename:   filepath.Join(dir, name),
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   false,
		}
	}
	return &Archive{
		telemetry: mk("telemetry.jsonl"),
		commands:  mk("commands.jsonl"),
	}, nil
}

// AppendTelemetry writes one record and triggers rotation if needed. The
// encoder emits each record as a single line, so concurrent appends never
// interleave.
func (a *Archive) AppendTelemetry(rec model.TelemetryRecord) error {
	return json.NewEncoder(a.telemetry).Encode(rec)
}

// AppendCommand writes one command record.
func (a *Archive) AppendCommand(rec model.CommandRecord) error {
	return json.NewEncoder(a.commands).Encode(rec)
}

// Close closes both underlying writers.
func (a *Archive) Close() error {
	terr := a.telemetry.Close()
	cerr := a.commands.Close()
	if terr != nil {
		return terr
	}
	return cerr
}

// ReadTelemetryArchive loads every record from path and its rotated
// siblings, sorted by timestamp ascending. Lines that fail to parse are
// skipped; a crash mid-write must not poison the whole archive.
func ReadTelemetryArchive(path string) ([]model.TelemetryRecord, error) {
	var res []model.TelemetryRecord
	err := eachArchiveLine(path, func(line []byte) {
		var r model.TelemetryRecord
		if err := json.Unmarshal(line, &r); err == nil {
			res = append(res, r)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Timestamp < res[j].Timestamp })
	return res, nil
}

// ReadCommandArchive loads every command from path and its rotated
// siblings, sorted by timestamp ascending.
func ReadCommandArchive(path string) ([]model.CommandRecord, error) {
	var res []model.CommandRecord
	err := eachArchiveLine(path, func(line []byte) {
		var r model.CommandRecord
		if err := json.Unmarshal(line, &r); err == nil {
			res = append(res, r)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Timestamp < res[j].Timestamp })
	return res, nil
}

// eachArchiveLine visits every line of path and its rotated siblings.
// Rotated backups carry a timestamp before the extension, so the glob has
// to account for the split name.
func eachArchiveLine(path string, fn func(line []byte)) error {
	ext := filepath.Ext(path)
	pattern := strings.TrimSuffix(path, ext) + "*" + ext
	files, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			fn(scanner.Bytes())
		}
		_ = f.Close()
	}
	return nil
}
