package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const prefsFile = "prefs.json"

// Prefs are remembered between runs. Nothing here is secret.
type Prefs struct {
	LastPath  string `json:"last_path,omitempty"`
	LastEmail string `json:"last_email,omitempty"`
}

func prefsPath(dir string) (string, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(base, "scandraw")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, prefsFile), nil
}

func Save(dir string, p Prefs) error {
	path, err := prefsPath(dir)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load returns zero Prefs when nothing was saved yet.
func Load(dir string) (Prefs, error) {
	path, err := prefsPath(dir)
	if err != nil {
		return Prefs{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Prefs{}, nil
		}
		return Prefs{}, err
	}
	var p Prefs
	if err := json.Unmarshal(data, &p); err != nil {
		return Prefs{}, err
	}
	return p, nil
}

// Update loads, applies fn and saves.
func Update(dir string, fn func(*Prefs)) error {
	p, err := Load(dir)
	if err != nil {
		return err
	}
	fn(&p)
	return Save(dir, p)
}
