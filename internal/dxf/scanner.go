package dxf

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"

	"github.com/sells-group/geo-loader/internal/diag"
)

// Tag is one group code / value pair.
type Tag struct {
	Code  int
	Value string
}

// ScanTags splits raw DXF text into ordered (code, value) pairs. It tolerates
// CRLF/LF/CR line endings and skips 999 comment pairs. Lines whose code fails
// to parse, and a trailing code with no value line, are reported as parse
// warnings. Empty content and content yielding zero valid pairs are fatal.
func ScanTags(content string, rep *diag.Reporter) ([]Tag, error) {
	if strings.TrimSpace(content) == "" {
		return nil, eris.New("dxf: empty content")
	}

	lines := splitLines(content)
	tags := make([]Tag, 0, len(lines)/2)

	for i := 0; i < len(lines); i += 2 {
		codeLine := strings.TrimSpace(lines[i])
		if codeLine == "" && i == len(lines)-1 {
			break // trailing blank line
		}

		code, err := strconv.Atoi(codeLine)
		if err != nil {
			rep.Warn(diag.CodeParseWarning, "line %d: group code %q is not an integer", i+1, codeLine)
			i-- // resync on the next line
			continue
		}

		if i+1 >= len(lines) {
			rep.Warn(diag.CodeParseWarning, "line %d: group code %d has no value", i+1, code)
			break
		}

		if code == 999 {
			continue // comment
		}

		tags = append(tags, Tag{Code: code, Value: strings.TrimSpace(lines[i+1])})
	}

	if len(tags) == 0 {
		return nil, eris.New("dxf: malformed DXF: no valid group code pairs")
	}
	return tags, nil
}

// splitLines splits on CRLF, LF or CR.
func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	return strings.Split(content, "\n")
}

// Sections extracts named sections delimited by (0,SECTION)..(0,ENDSEC), the
// name coming from the following (2,NAME) tag. Returns an error when no
// section markers are present at all.
func Sections(tags []Tag) (map[string][]Tag, error) {
	sections := make(map[string][]Tag)

	for i := 0; i < len(tags); i++ {
		if tags[i].Code != 0 || tags[i].Value != "SECTION" {
			continue
		}
		if i+1 >= len(tags) || tags[i+1].Code != 2 {
			continue // nameless section, skip its marker
		}
		name := tags[i+1].Value

		start := i + 2
		end := start
		for end < len(tags) && !(tags[end].Code == 0 && tags[end].Value == "ENDSEC") {
			end++
		}
		sections[name] = tags[start:end]
		i = end
	}

	if len(sections) == 0 {
		return nil, eris.New("dxf: malformed DXF: no section markers found")
	}
	return sections, nil
}

// DecodeBytes converts raw file bytes to UTF-8 text. Valid UTF-8 passes
// through untouched; anything else is treated as a Windows ANSI code page,
// which covers the common $DWGCODEPAGE values for files in this pipeline.
func DecodeBytes(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", eris.Wrap(err, "dxf: decode code page")
	}
	return string(decoded), nil
}
