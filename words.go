/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"bytes"
	"errors"
	"io/fs"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// fileWordSource reads one word per line. Blank lines are skipped.
type fileWordSource struct {
	cfg  *Config
	fs   afero.Fs
	path string
}

func newFileWordSource(cfg *Config, fsys afero.Fs, path string) *fileWordSource {
	return &fileWordSource{
		cfg:  cfg,
		fs:   fsys,
		path: path,
	}
}

// Load never fails. A missing file is an empty pool, anything else is
// logged and also yields an empty pool.
func (w *fileWordSource) Load() []string {
	if w.path == "" {
		return nil
	}

	data, err := afero.ReadFile(w.fs, w.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logf(w.cfg, "WORDS: No word list at %s, automatic pool is empty", w.path)

		return nil
	case err != nil:
		log.Warn().Err(err).Str("path", w.path).Msg("unable to read word list, automatic pool is empty")

		return nil
	}

	words := parseWords(data)

	logf(w.cfg, "WORDS: Loaded %d words (%s) from %s", len(words), humanReadableSize(int64(len(data))), w.path)

	return words
}

func parseWords(data []byte) []string {
	var words []string

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		word := string(bytes.TrimSpace(scanner.Bytes()))
		if word == "" {
			continue
		}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Int("loaded", len(words)).Msg("word list truncated")
	}

	return words
}
