// Package deck loads practice phrase decks from files.
package deck

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultName is the name of the built-in deck.
const DefaultName = "default"

//go:embed default.txt
var defaultDeck []byte

// Phrase is one reference phrase.
type Phrase struct {
	ID   string   `yaml:"id"`
	Text string   `yaml:"text"`
	Tags []string `yaml:"tags,omitempty"`
}

// Deck is a named set of phrases.
type Deck struct {
	Name    string
	Path    string
	Phrases []Phrase
}

type yamlFile struct {
	Name    string   `yaml:"name,omitempty"`
	Phrases []Phrase `yaml:"phrases"`
}

// Builtin returns the deck compiled into the binary.
func Builtin() *Deck {
	phrases, err := parseText(bytes.NewReader(defaultDeck))
	if err != nil {
		panic("deck: built-in deck is invalid: " + err.Error())
	}
	return &Deck{Name: DefaultName, Phrases: phrases}
}

// Load reads a deck file. ".yaml" and ".yml" files are structured decks;
// anything else is one phrase per line.
func Load(path string) (*Deck, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only deck.
			_ = cerr
		}
	}()

	d := &Deck{Name: nameFromPath(path), Path: path}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		name, phrases, err := parseYAML(file)
		if err != nil {
			return nil, fmt.Errorf("parse deck %q: %w", path, err)
		}
		if name != "" {
			d.Name = name
		}
		d.Phrases = phrases
	default:
		phrases, err := parseText(file)
		if err != nil {
			return nil, fmt.Errorf("parse deck %q: %w", path, err)
		}
		d.Phrases = phrases
	}
	return d, nil
}

// Resolve finds a deck by name in dir, trying .txt, .yaml and .yml. The
// built-in deck is returned for DefaultName when no file overrides it.
func Resolve(dir, name string) (*Deck, error) {
	for _, ext := range []string{".txt", ".yaml", ".yml"} {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	if name == DefaultName {
		return Builtin(), nil
	}
	return nil, fmt.Errorf("deck %q not found in %s", name, dir)
}

// Info describes a deck file on disk.
type Info struct {
	Name string
	Path string
}

// List returns the deck files in dir sorted by name. A missing dir is empty.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Info
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".yaml", ".yml":
			out = append(out, Info{Name: nameFromPath(e.Name()), Path: filepath.Join(dir, e.Name())})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func parseText(r io.Reader) ([]Phrase, error) {
	var phrases []Phrase
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		phrases = append(phrases, Phrase{ID: fmt.Sprintf("line-%d", lineNo), Text: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(phrases) == 0 {
		return nil, fmt.Errorf("deck is empty")
	}
	return phrases, nil
}

func parseYAML(r io.Reader) (string, []Phrase, error) {
	var f yamlFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return "", nil, fmt.Errorf("decode deck yaml: %w", err)
	}
	seen := map[string]struct{}{}
	phrases := make([]Phrase, 0, len(f.Phrases))
	for i, p := range f.Phrases {
		p.Text = strings.TrimSpace(p.Text)
		if p.Text == "" {
			continue
		}
		if p.ID == "" {
			p.ID = fmt.Sprintf("item-%d", i+1)
		}
		if _, dup := seen[p.ID]; dup {
			return "", nil, fmt.Errorf("duplicate phrase id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		phrases = append(phrases, p)
	}
	if len(phrases) == 0 {
		return "", nil, fmt.Errorf("deck is empty")
	}
	return f.Name, phrases, nil
}

func nameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
