package plaintext

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

func FromReader(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	if !utf8.Valid(raw) {
		return "", fmt.Errorf("document is not valid utf-8 text")
	}

	return strings.TrimSpace(string(raw)), nil
}
