package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from a file extension; JSON is the default.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads a snapshot document from disk.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	doc, err := Decode(f, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return doc, nil
}

// Decode reads either the object form or the table form.
func Decode(r io.Reader, format Format) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if format == FormatYAML {
		return decodeYAML(data)
	}
	return decodeJSON(data)
}

func decodeJSON(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidSnapshot)
	}

	switch trimmed[0] {
	case '[':
		table := []Relation{}
		if err := json.Unmarshal(trimmed, &table); err != nil {
			return nil, err
		}
		return &Document{Table: table}, nil
	case '{':
		var s Snapshot
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		return &Document{Snapshot: &s}, nil
	}
	return nil, fmt.Errorf("%w: expected an object or an array", ErrInvalidSnapshot)
}

func decodeYAML(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidSnapshot)
	}

	n := root.Content[0]
	switch n.Kind {
	case yaml.SequenceNode:
		table := []Relation{}
		if err := n.Decode(&table); err != nil {
			return nil, err
		}
		return &Document{Table: table}, nil
	case yaml.MappingNode:
		var s Snapshot
		if err := n.Decode(&s); err != nil {
			return nil, err
		}
		return &Document{Snapshot: &s}, nil
	}
	return nil, fmt.Errorf("%w: expected a mapping or a sequence", ErrInvalidSnapshot)
}

// Encode writes v (a Document, Snapshot or any value) in the given format.
func Encode(w io.Writer, v any, format Format) error {
	if format == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- Link ---

func (l Link) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{l.Source, l.Target})
}

func (l *Link) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) < 2 {
			return fmt.Errorf("%w: link needs source and target", ErrInvalidSnapshot)
		}
		l.Source, l.Target = pair[0], pair[1]
		return nil
	}

	var obj struct {
		Source string `json:"source"`
		Target string `json:"target"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%w: link: %v", ErrInvalidSnapshot, err)
	}
	l.Source, l.Target = obj.Source, obj.Target
	return nil
}

func (l Link) MarshalYAML() (interface{}, error) {
	return []string{l.Source, l.Target}, nil
}

func (l *Link) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var pair []string
		if err := value.Decode(&pair); err != nil {
			return err
		}
		if len(pair) < 2 {
			return fmt.Errorf("%w: link needs source and target", ErrInvalidSnapshot)
		}
		l.Source, l.Target = pair[0], pair[1]
		return nil
	case yaml.MappingNode:
		var obj struct {
			Source string `yaml:"source"`
			Target string `yaml:"target"`
		}
		if err := value.Decode(&obj); err != nil {
			return err
		}
		l.Source, l.Target = obj.Source, obj.Target
		return nil
	}
	return fmt.Errorf("%w: link at line %d", ErrInvalidSnapshot, value.Line)
}

// --- Module ---

func (m Module) fields() map[string]any {
	out := make(map[string]any, len(m.Meta)+1)
	for k, v := range m.Meta {
		out[k] = v
	}
	if m.Size != nil {
		out["size"] = *m.Size
	}
	return out
}

func (m *Module) setFields(fields map[string]any) {
	m.Size = nil
	m.Meta = nil
	for k, v := range fields {
		if k == "size" {
			if f, ok := toFloat(v); ok {
				m.Size = &f
				continue
			}
		}
		if m.Meta == nil {
			m.Meta = make(map[string]any)
		}
		m.Meta[k] = v
	}
}

func (m Module) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.fields())
}

func (m *Module) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: module: %v", ErrInvalidSnapshot, err)
	}
	m.setFields(fields)
	return nil
}

func (m Module) MarshalYAML() (interface{}, error) {
	return m.fields(), nil
}

func (m *Module) UnmarshalYAML(value *yaml.Node) error {
	var fields map[string]any
	if err := value.Decode(&fields); err != nil {
		return err
	}
	m.setFields(fields)
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// --- Relation ---

func (r Relation) MarshalJSON() ([]byte, error) {
	if r.Size == nil {
		return json.Marshal([]any{r.Source, r.Target})
	}
	return json.Marshal([]any{r.Source, r.Target, *r.Size})
}

func (r *Relation) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("%w: relation: %v", ErrInvalidSnapshot, err)
	}
	if len(parts) < 2 {
		return fmt.Errorf("%w: relation needs source and target", ErrInvalidSnapshot)
	}
	if err := json.Unmarshal(parts[0], &r.Source); err != nil {
		return fmt.Errorf("%w: relation source: %v", ErrInvalidSnapshot, err)
	}
	if err := json.Unmarshal(parts[1], &r.Target); err != nil {
		return fmt.Errorf("%w: relation target: %v", ErrInvalidSnapshot, err)
	}
	r.Size = nil
	if len(parts) > 2 {
		var size *float64
		if err := json.Unmarshal(parts[2], &size); err != nil {
			return fmt.Errorf("%w: relation size: %v", ErrInvalidSnapshot, err)
		}
		r.Size = size
	}
	return nil
}

func (r Relation) MarshalYAML() (interface{}, error) {
	if r.Size == nil {
		return []any{r.Source, r.Target}, nil
	}
	return []any{r.Source, r.Target, *r.Size}, nil
}

func (r *Relation) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode || len(value.Content) < 2 {
		return fmt.Errorf("%w: relation at line %d", ErrInvalidSnapshot, value.Line)
	}
	if err := value.Content[0].Decode(&r.Source); err != nil {
		return err
	}
	if err := value.Content[1].Decode(&r.Target); err != nil {
		return err
	}
	r.Size = nil
	if len(value.Content) > 2 && value.Content[2].Tag != "!!null" {
		var size float64
		if err := value.Content[2].Decode(&size); err != nil {
			return err
		}
		r.Size = &size
	}
	return nil
}

// --- Snapshot ---

func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	links := s.Links
	if links == nil {
		links = []Link{}
	}
	linkJSON, err := json.Marshal(links)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"links":`)
	buf.Write(linkJSON)
	buf.WriteString(`,"modules":{`)
	for i, id := range s.ModuleIDs() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.Modules[id])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw struct {
		Links   []Link          `json:"links"`
		Modules json.RawMessage `json:"modules"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	s.Links = raw.Links
	s.Modules = make(map[string]Module)
	s.Order = nil

	body := bytes.TrimSpace(raw.Modules)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: modules must be an object", ErrInvalidSnapshot)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		id, _ := keyTok.(string)
		var m Module
		if err := dec.Decode(&m); err != nil {
			return fmt.Errorf("module %q: %w", id, err)
		}
		if _, dup := s.Modules[id]; !dup {
			s.Order = append(s.Order, id)
		}
		s.Modules[id] = m
	}
	_, err = dec.Token()
	return err
}

func (s Snapshot) MarshalYAML() (interface{}, error) {
	links := s.Links
	if links == nil {
		links = []Link{}
	}
	linkNode := &yaml.Node{}
	if err := linkNode.Encode(links); err != nil {
		return nil, err
	}

	modules := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, id := range s.ModuleIDs() {
		val := &yaml.Node{}
		if err := val.Encode(s.Modules[id]); err != nil {
			return nil, err
		}
		modules.Content = append(modules.Content, scalar(id), val)
	}

	return &yaml.Node{
		Kind:    yaml.MappingNode,
		Tag:     "!!map",
		Content: []*yaml.Node{scalar("links"), linkNode, scalar("modules"), modules},
	}, nil
}

func (s *Snapshot) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: snapshot at line %d", ErrInvalidSnapshot, value.Line)
	}
	s.Links = nil
	s.Modules = make(map[string]Module)
	s.Order = nil

	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		switch key.Value {
		case "links":
			if err := val.Decode(&s.Links); err != nil {
				return err
			}
		case "modules":
			if val.Kind != yaml.MappingNode {
				continue
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				id := val.Content[j].Value
				var m Module
				if err := val.Content[j+1].Decode(&m); err != nil {
					return fmt.Errorf("module %q: %w", id, err)
				}
				if _, dup := s.Modules[id]; !dup {
					s.Order = append(s.Order, id)
				}
				s.Modules[id] = m
			}
		}
	}
	return nil
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
