package catalog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/papapumpkin/slitforge/internal/coords"
)

// LineError locates an ingestion failure within a source file.
type LineError struct {
	Line int
	Text string
	Err  error
}

// Error returns the line number, text and cause.
func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LineError) Unwrap() error {
	return e.Err
}

// Load reads a catalog file, picking the parser from the extension
// (.obj, .json or .toml). The catalog is named after the file unless name is set.
func Load(path, name string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("reading catalog: %w", err)
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	var objects []Object
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj", ".obw":
		objects, err = ParseObjectFile(bytes.NewReader(data))
	case ".json":
		objects, err = ParseJSON(data)
	case ".toml":
		objects, err = ParseTOML(data)
	default:
		return Catalog{}, fmt.Errorf("catalog %s: unsupported file type %q", path, filepath.Ext(path))
	}
	if err != nil {
		return Catalog{}, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return New(name, objects)
}

// ParseObjectFile reads the legacy object file format: an optional
// "&RADEGREE" header, then lines "<marker><name> <ra> <dec> Pri=<p> [key=value...]".
// Lines without a target or align marker are skipped.
func ParseObjectFile(r io.Reader) ([]Object, error) {
	var objects []Object
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "&") || strings.HasPrefix(line, "#") {
			continue
		}
		kind, err := ParseKind(line[:1])
		if err != nil {
			continue
		}
		obj, err := parseObjectLine(kind, line[1:])
		if err != nil {
			return nil, &LineError{Line: n, Text: line, Err: err}
		}
		objects = append(objects, obj)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading object file: %w", err)
	}
	return objects, nil
}

func parseObjectLine(kind Kind, rest string) (Object, error) {
	fields := strings.Fields(rest)
	if len(fields) < 3 {
		return Object{}, fmt.Errorf("expected name, ra and dec, got %d fields", len(fields))
	}

	ra, dec, err := coords.Normalize(fields[1], fields[2])
	if err != nil {
		return Object{}, err
	}
	obj := Object{Name: fields[0], Kind: kind, RA: ra, Dec: dec}

	for _, tok := range fields[3:] {
		key, val, ok := strings.Cut(tok, "=")
		if !ok || key == "" {
			return Object{}, fmt.Errorf("malformed attribute %q", tok)
		}
		if strings.EqualFold(key, "pri") {
			p, err := parsePriority(val)
			if err != nil {
				return Object{}, err
			}
			obj.Priority = p
			continue
		}
		if obj.Aux == nil {
			obj.Aux = Aux{}
		}
		obj.Aux[normalizeAuxKey(key)] = val
	}
	return obj, nil
}

// normalizeAuxKey maps historical spellings (alen, blen) onto canonical keys.
func normalizeAuxKey(key string) string {
	k := strings.ToLower(key)
	switch k {
	case "alen":
		return "a_len"
	case "blen":
		return "b_len"
	}
	return k
}

// parsePriority accepts integral values written as "3" or "3.0".
func parsePriority(s string) (int, error) {
	if p, err := strconv.Atoi(s); err == nil {
		return p, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid priority %q", s)
	}
	return int(f), nil
}

// ParseJSON reads an array of {"name","type","ra","dec","priority",...} rows.
// Keys other than those five become auxiliary attributes.
func ParseJSON(data []byte) ([]Object, error) {
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decoding catalog JSON: %w", err)
	}
	objects := make([]Object, 0, len(rows))
	for i, row := range rows {
		obj, err := objectFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// tomlCatalog is the on-disk shape of a TOML catalog: [[object]] tables.
type tomlCatalog struct {
	Objects []map[string]any `toml:"object"`
}

// ParseTOML reads a catalog written as [[object]] tables with the same keys
// as the JSON form. A nested [object.aux] table is merged into Aux.
func ParseTOML(data []byte) ([]Object, error) {
	var doc tomlCatalog
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding catalog TOML: %w", err)
	}
	objects := make([]Object, 0, len(doc.Objects))
	for i, row := range doc.Objects {
		if nested, ok := row["aux"].(map[string]any); ok {
			delete(row, "aux")
			for k, v := range nested {
				row[k] = v
			}
		}
		obj, err := objectFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i+1, err)
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func objectFromRow(row map[string]any) (Object, error) {
	name, _ := row["name"].(string)
	if strings.TrimSpace(name) == "" {
		return Object{}, fmt.Errorf("missing name")
	}
	kindStr, _ := row["type"].(string)
	kind, err := ParseKind(kindStr)
	if err != nil {
		return Object{}, fmt.Errorf("object %s: %w", name, err)
	}
	ra, err := coords.Value(coords.AxisRA, row["ra"])
	if err != nil {
		return Object{}, fmt.Errorf("object %s: %w", name, err)
	}
	dec, err := coords.Value(coords.AxisDec, row["dec"])
	if err != nil {
		return Object{}, fmt.Errorf("object %s: %w", name, err)
	}
	priority, err := priorityValue(row["priority"])
	if err != nil {
		return Object{}, fmt.Errorf("object %s: %w", name, err)
	}

	obj := Object{Name: name, Kind: kind, RA: ra, Dec: dec, Priority: priority}
	for k, v := range row {
		switch k {
		case "name", "type", "ra", "dec", "priority":
			continue
		}
		if obj.Aux == nil {
			obj.Aux = Aux{}
		}
		obj.Aux[normalizeAuxKey(k)] = auxText(v)
	}
	return obj, nil
}

func priorityValue(v any) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		if t != float64(int(t)) {
			return 0, fmt.Errorf("invalid priority %v", t)
		}
		return int(t), nil
	case int64:
		return int(t), nil
	case string:
		return parsePriority(t)
	}
	return 0, fmt.Errorf("invalid priority type %T", v)
}

func auxText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}
