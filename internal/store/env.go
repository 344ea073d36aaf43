package store

import "github.com/rvcli/rv/internal/model"

const envFilename = "env.json"

type envFile struct {
	Vars model.EnvStore `json:"vars"`
}

// LoadEnv returns the user's persisted environment-variable overlay. A
// missing env.json yields an empty, non-nil store.
func LoadEnv() (model.EnvStore, error) {
	var f envFile
	if err := readJSON(envFilename, &f); err != nil {
		return nil, err
	}
	if f.Vars == nil {
		f.Vars = model.EnvStore{}
	}
	return f.Vars, nil
}

// SaveEnv overwrites env.json with vars.
func SaveEnv(vars model.EnvStore) error {
	if vars == nil {
		vars = model.EnvStore{}
	}
	return writeJSON(envFilename, envFile{Vars: vars})
}

// SetEnvVar reads env.json, sets key=value, and writes it back.
func SetEnvVar(key, value string) error {
	vars, err := LoadEnv()
	if err != nil {
		return err
	}
	vars[key] = value
	return SaveEnv(vars)
}

// UnsetEnvVar reads env.json, removes key if present, and writes it back.
func UnsetEnvVar(key string) error {
	vars, err := LoadEnv()
	if err != nil {
		return err
	}
	delete(vars, key)
	return SaveEnv(vars)
}
