// Package experiment stores the operator's subject-to-group labels for one
// experiment directory in config/experiment_config.csv.
package experiment

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/clams-cli/internal/table"
	"github.com/KaramelBytes/clams-cli/internal/utils"
)

const (
	configDir      = "config"
	configFileName = "experiment_config.csv"
)

// Header is the first row of every experiment config file.
var Header = []string{"ID", "GROUP LABEL"}

// Label assigns a subject to an experimental group.
type Label struct {
	ID    string
	Group string
}

// Config is the ordered, append-only list of labels of one experiment.
type Config struct {
	Labels []Label

	path string
}

// Path returns where the config of an experiment directory lives.
func Path(dir string) string {
	return filepath.Join(dir, configDir, configFileName)
}

// Init creates an empty config (header only) unless one already exists, and
// returns the config on disk.
func Init(dir string) (*Config, error) {
	path := Path(dir)
	if _, err := os.Stat(path); err == nil {
		return Load(dir)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat experiment config: %w", err)
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := table.WriteRecords(path, [][]string{Header}); err != nil {
		return nil, fmt.Errorf("create experiment config: %w", err)
	}
	return &Config{path: path}, nil
}

// Load reads the config of an experiment directory.
func Load(dir string) (*Config, error) {
	path := Path(dir)
	t, err := table.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("experiment config not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read experiment config: %w", err)
	}
	idIdx, groupIdx := t.Index(Header[0]), t.Index(Header[1])
	if idIdx < 0 || groupIdx < 0 {
		return nil, fmt.Errorf("experiment config %s: header must be %q", path, strings.Join(Header, ","))
	}
	c := &Config{path: path}
	for _, r := range t.Rows {
		id := strings.TrimSpace(r[idIdx])
		if id == "" {
			continue
		}
		c.Labels = append(c.Labels, Label{ID: id, Group: strings.TrimSpace(r[groupIdx])})
	}
	return c, nil
}

// LoadOptional is Load that returns nil, nil when the experiment has no config.
func LoadOptional(dir string) (*Config, error) {
	if _, err := os.Stat(Path(dir)); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return Load(dir)
}

// FilePath returns the on-disk location of the config.
func (c *Config) FilePath() string { return c.path }

// Append adds a label to the end of the config file.
func (c *Config) Append(id, group string) error {
	id, group = strings.TrimSpace(id), strings.TrimSpace(group)
	if id == "" {
		return errors.New("subject id is required")
	}
	if c.path == "" {
		return errors.New("experiment config path not set")
	}
	f, err := os.OpenFile(c.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open experiment config: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{id, group}); err != nil {
		f.Close()
		return fmt.Errorf("append label: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("append label: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close experiment config: %w", err)
	}
	c.Labels = append(c.Labels, Label{ID: id, Group: group})
	return nil
}

// Lookup returns the group of a subject. When a subject was labelled more
// than once the latest entry wins.
func (c *Config) Lookup(id string) (string, bool) {
	if c == nil {
		return "", false
	}
	for i := len(c.Labels) - 1; i >= 0; i-- {
		if c.Labels[i].ID == id {
			return c.Labels[i].Group, true
		}
	}
	return "", false
}
