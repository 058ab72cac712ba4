package eventlog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cuemby/jobmgr/pkg/errs"
)

// Encode serializes entry to its canonical wire/storage form: one line of
// UTF-8 JSON text with a trailing newline (spec §4.5, §6).
func Encode(entry Entry) ([]byte, error) {
	if err := entry.Validate(); err != nil {
		return nil, errs.Wrap(errs.Malformed, "invalid event entry", err)
	}

	buf, err := json.Marshal(entry)
	if err != nil {
		return nil, errs.Wrap(errs.Malformed, "failed to encode event entry", err)
	}
	buf = append(buf, '\n')
	return buf, nil
}

// Parse decodes a single encoded line back into an Entry.
func Parse(line []byte) (Entry, error) {
	var entry Entry
	trimmed := bytes.TrimRight(line, "\n")
	if err := json.Unmarshal(trimmed, &entry); err != nil {
		return Entry{}, errs.Wrap(errs.Malformed, "failed to parse event entry", err)
	}
	if err := entry.Validate(); err != nil {
		return Entry{}, errs.Wrap(errs.Malformed, "invalid event entry", err)
	}
	return entry, nil
}

// ParseLog splits a multi-line eventlog blob (as stored at
// jobs/<id>/eventlog) into its entries, in append order.
func ParseLog(blob []byte) ([]Entry, error) {
	lines := bytes.Split(bytes.TrimRight(blob, "\n"), []byte("\n"))
	entries := make([]Entry, 0, len(lines))
	for i, line := range lines {
		if len(line) == 0 {
			continue
		}
		entry, err := Parse(line)
		if err != nil {
			return nil, fmt.Errorf("eventlog line %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
