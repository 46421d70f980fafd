package storage

import (
	"encoding/json"
	"errors"

	"github.com/danijoo/adaptiveumbrella/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeIteration(r model.IterationRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeIteration(data []byte) (model.IterationRecord, error) {
	var record model.IterationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.IterationRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.IterationRecord{}, err
	}
	return record, nil
}

func EncodePMFSnapshot(s model.PMFSnapshot) ([]byte, error) {
	return json.Marshal(s)
}

func DecodePMFSnapshot(data []byte) (model.PMFSnapshot, error) {
	var snapshot model.PMFSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.PMFSnapshot{}, err
	}
	if err := checkVersion(snapshot.VersionedRecord); err != nil {
		return model.PMFSnapshot{}, err
	}
	return snapshot, nil
}

// Stamp sets the current schema and codec versions on a record before it is
// persisted.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
	}
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
