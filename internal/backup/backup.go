// Package backup encodes and decodes whole-catalog backups.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gen2brain/go-unarr"
	"github.com/ogero/filmoteca/pkg/catalog"
	"github.com/wlynxg/chardet"
	"github.com/wlynxg/chardet/consts"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encode renders the collection as an indented JSON document, the same
// format the desktop exports used.
func Encode(movies catalog.Collection) ([]byte, error) {

	data, err := json.MarshalIndent(movies, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to json.MarshalIndent: %w", err)
	}

	return data, nil
}

// Decode parses a backup. The payload may be the JSON document itself or a
// ZIP/RAR/7z archive containing it; ISO-8859-1 legacy exports are normalized
// to UTF-8 before parsing.
func Decode(data []byte) (catalog.Collection, error) {

	if isArchive(data) {
		var err error
		data, err = extractJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to extract backup archive: %w", err)
		}
	}

	data, err := normalizeEncoding(data)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize backup encoding: %w", err)
	}

	movies := catalog.Collection{}
	if err := json.Unmarshal(data, &movies); err != nil {
		return nil, fmt.Errorf("failed to json.Unmarshal: %w", err)
	}

	return movies, nil
}

// Magic bytes of the archive formats go-unarr handles.
func isArchive(data []byte) bool {
	// standard ZIP signature
	return bytes.HasPrefix(data, []byte("PK\x03\x04")) ||
		// RAR 1.5-4.0
		bytes.HasPrefix(data, []byte("Rar!\x1A\x07\x00")) ||
		// RAR 5.0
		bytes.HasPrefix(data, []byte("Rar!\x1A\x07\x01\x00")) ||
		// 7-Zip
		bytes.HasPrefix(data, []byte("7z\xBC\xAF\x27\x1C"))
}

func extractJSON(data []byte) ([]byte, error) {

	a, err := unarr.NewArchiveFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unarr.NewArchiveFromMemory: %w", err)
	}
	defer a.Close()

	for {
		if err := a.Entry(); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to unarr.Archive.Entry: %w", err)
		}

		if !strings.HasSuffix(strings.ToLower(a.Name()), ".json") {
			continue
		}

		contents, err := a.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to unarr.Archive.ReadAll: %w", err)
		}

		return contents, nil
	}

	return nil, fmt.Errorf("no JSON document found in archive")
}

func normalizeEncoding(data []byte) ([]byte, error) {

	switch chardet.Detect(data).Encoding {
	case consts.ISO88591:
		normalized, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
		if err != nil {
			return nil, fmt.Errorf("failed to transform.Bytes: %w", err)
		}
		return normalized, nil
	default:
		return data, nil
	}
}
