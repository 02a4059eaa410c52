package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/perceptio/backend/internal/domain/participant"
)

// JSONUserStore keeps every aggregate in memory and rewrites one JSON file
// on each update.
type JSONUserStore struct {
	path  string
	mu    sync.Mutex
	users map[string]*participant.Aggregate
}

var _ UserStore = (*JSONUserStore)(nil)

type usersFile struct {
	Users map[string]*participant.Aggregate `json:"users"`
}

// legacyUsersFile is the older layout that kept one map per metric.
type legacyUsersFile struct {
	Scores     map[string]float64         `json:"scores"`
	Times      map[string]float64         `json:"times"`
	Precisions map[string]json.RawMessage `json:"precisions"`
}

type legacyPrecision struct {
	Mean     float64 `json:"moyenne"`
	Sessions int     `json:"sessions"`
}

// NewJSONUserStore loads path. A missing file starts an empty store.
func NewJSONUserStore(path string) (*JSONUserStore, error) {
	users, err := LoadUsersFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if users == nil {
		users = map[string]*participant.Aggregate{}
	}
	return &JSONUserStore{path: path, users: users}, nil
}

// LoadUsersFile reads aggregates in either the current or the legacy layout.
func LoadUsersFile(path string) (map[string]*participant.Aggregate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	users, err := DecodeUsers(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return users, nil
}

// DecodeUsers parses a users document. Legacy documents are merged per
// pseudo: scores, times, and precisions given either as a bare mean or as
// {moyenne, sessions}.
func DecodeUsers(data []byte) (map[string]*participant.Aggregate, error) {
	users := map[string]*participant.Aggregate{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return users, nil
	}

	var current usersFile
	if err := json.Unmarshal(data, &current); err != nil {
		return nil, err
	}
	for pseudo, a := range current.Users {
		if a == nil {
			continue
		}
		a.Pseudo = pseudo
		users[pseudo] = a
	}

	var legacy legacyUsersFile
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, err
	}
	get := func(pseudo string) *participant.Aggregate {
		a, ok := users[pseudo]
		if !ok {
			a = participant.New(pseudo)
			a.Pseudo = pseudo
			users[pseudo] = a
		}
		return a
	}
	for pseudo, v := range legacy.Scores {
		get(pseudo).TotalScore += int(v)
	}
	for pseudo, v := range legacy.Times {
		get(pseudo).TotalTime += int(v)
	}
	for pseudo, raw := range legacy.Precisions {
		a := get(pseudo)
		var mean float64
		if err := json.Unmarshal(raw, &mean); err == nil {
			a.Precision = mean
			continue
		}
		var p legacyPrecision
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("precision of %q: %w", pseudo, err)
		}
		a.Precision = p.Mean
		a.SessionCount += p.Sessions
	}
	return users, nil
}

func (s *JSONUserStore) GetUser(ctx context.Context, pseudo string) (*participant.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.users[pseudo]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *JSONUserStore) UpdateUser(ctx context.Context, pseudo string, fn UpdateFunc) (*participant.Aggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := participant.New(pseudo)
	next.Pseudo = pseudo
	prev, existed := s.users[pseudo]
	if existed {
		*next = *prev
	}
	if err := fn(next); err != nil {
		return nil, err
	}

	s.users[pseudo] = next
	if err := s.persist(); err != nil {
		if existed {
			s.users[pseudo] = prev
		} else {
			delete(s.users, pseudo)
		}
		return nil, err
	}
	cp := *next
	return &cp, nil
}

func (s *JSONUserStore) ListUsers(ctx context.Context) ([]*participant.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*participant.Aggregate, 0, len(s.users))
	for _, a := range s.users {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pseudo < out[j].Pseudo })
	return out, nil
}

// persist writes through a temporary file so a crash never leaves a
// truncated document behind. Callers hold mu.
func (s *JSONUserStore) persist() error {
	data, err := json.MarshalIndent(usersFile{Users: s.users}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write users: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync users: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
