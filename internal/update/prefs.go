package update

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sandeepkv93/restodo/internal/derive"
)

// Prefs is the view state kept between sessions.
type Prefs struct {
	Filter derive.Filter  `json:"filter"`
	Sort   derive.SortKey `json:"sort"`
}

func SavePrefs(path string, prefs Prefs) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	payload, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(payload, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadPrefs returns zero Prefs when the file does not exist. Unknown filter
// or sort names are an error.
func LoadPrefs(path string) (Prefs, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Prefs{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Prefs{}, nil
		}
		return Prefs{}, err
	}
	if strings.TrimSpace(string(raw)) == "" {
		return Prefs{}, nil
	}
	var prefs Prefs
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return Prefs{}, fmt.Errorf("decode prefs: %w", err)
	}
	if prefs.Filter != "" {
		if prefs.Filter, err = derive.ParseFilter(string(prefs.Filter)); err != nil {
			return Prefs{}, err
		}
	}
	if prefs.Sort != "" {
		if prefs.Sort, err = derive.ParseSort(string(prefs.Sort)); err != nil {
			return Prefs{}, err
		}
	}
	return prefs, nil
}

func (m *Model) persistPrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := SavePrefs(m.prefsPath, Prefs{Filter: m.Filter, Sort: m.Sort}); err != nil {
		m.logger.Warn("failed to save preferences", zap.String("path", m.prefsPath), zap.Error(err))
	}
}
