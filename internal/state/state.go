package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"recycle-watch/internal/tracker"
)

// ErrStateIO marks failures reading or writing the persisted flags.
var ErrStateIO = errors.New("state io")

// Store persists the notification flags between cycles.
type Store interface {
	Load(ctx context.Context) (tracker.State, error)
	Save(ctx context.Context, st tracker.State) error
}

// document is the on-disk shape: {"low":0|1,"super_low":0|1}.
type document struct {
	Low      int `json:"low"`
	SuperLow int `json:"super_low"`
}

func encode(st tracker.State) ([]byte, error) {
	doc := document{Low: boolToInt(st.Low), SuperLow: boolToInt(st.SuperLow)}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return data, nil
}

func decode(data []byte) (tracker.State, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return tracker.State{}, fmt.Errorf("decode state: %w", err)
	}
	return tracker.State{Low: doc.Low != 0, SuperLow: doc.SuperLow != 0}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
