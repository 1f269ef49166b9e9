package talent

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// LoadCandidates reads a candidate records file (yaml or json, with a
// top-level items list) into a Candidates collection.
func LoadCandidates(path string) (*Candidates, error) {
	items, err := readItems(path)
	if err != nil {
		return nil, fmt.Errorf("reading candidates file: %w", err)
	}

	var records []*CandidateRecord
	if err := decodeRecords(items, &records); err != nil {
		return nil, fmt.Errorf("decoding candidates from %q: %w", path, err)
	}

	return &Candidates{Items: records}, nil
}

// LoadJobs reads a job records file into a Jobs collection.
func LoadJobs(path string) (*Jobs, error) {
	items, err := readItems(path)
	if err != nil {
		return nil, fmt.Errorf("reading jobs file: %w", err)
	}

	var records []*JobRecord
	if err := decodeRecords(items, &records); err != nil {
		return nil, fmt.Errorf("decoding jobs from %q: %w", path, err)
	}

	return &Jobs{Items: records}, nil
}

func readItems(path string) (any, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return v.Get("items"), nil
}

func decodeRecords(items any, result any) error {
	cfg := &mapstructure.DecoderConfig{
		Result:           result,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	return decoder.Decode(items)
}
