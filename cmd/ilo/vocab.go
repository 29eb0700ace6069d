package main

import (
	"fmt"
	"io"
	"os"

	"github.com/xeniagda/ilo-pi-ante-toki/internal/corpus"
	"github.com/xeniagda/ilo-pi-ante-toki/internal/vocab"
)

// openVocab loads the vocabulary named by --vocab. Bundles carry their own
// boundary; bare tables use --boundary.
func openVocab() (*vocab.Vocabulary, *vocab.Info, error) {
	boundary, err := vocab.ParseBoundary(boundaryName)
	if err != nil {
		return nil, nil, err
	}
	return vocab.Load(vocabPath, boundary)
}

// readCorpus reads units from path, or stdin when path is "-".
func readCorpus(path string, opts corpus.Options) ([]corpus.Unit, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	units, err := corpus.Read(r, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return units, nil
}

func corpusOptions(format, lang string, boundary rune) (corpus.Options, error) {
	f, err := corpus.ParseFormat(format)
	if err != nil {
		return corpus.Options{}, err
	}
	return corpus.Options{Format: f, Lang: lang, Boundary: boundary, SkipEmpty: true}, nil
}
