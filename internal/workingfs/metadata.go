package workingfs

import (
	"encoding/json"
	"time"
)

// Metadata groups the optional preservation facts attached to an entry.
type Metadata struct {
	Storage   *StorageMetadata    `json:"storage,omitempty" yaml:"storage,omitempty"`
	Format    *FileFormatMetadata `json:"format,omitempty" yaml:"format,omitempty"`
	VirusScan *VirusScanMetadata  `json:"virusScan,omitempty" yaml:"virusScan,omitempty"`
}

// StorageMetadata records where an entry came from and where it is stored.
type StorageMetadata struct {
	Source          string `json:"source" yaml:"source"`
	OriginalName    string `json:"originalName,omitempty" yaml:"originalName,omitempty"`
	StorageLocation string `json:"storageLocation,omitempty" yaml:"storageLocation,omitempty"`
}

// FileFormatMetadata is the format identification of a file.
type FileFormatMetadata struct {
	Source     string `json:"source" yaml:"source"`
	Digest     string `json:"digest,omitempty" yaml:"digest,omitempty"`
	PronomKey  string `json:"pronomKey,omitempty" yaml:"pronomKey,omitempty"`
	FormatName string `json:"formatName,omitempty" yaml:"formatName,omitempty"`
}

// Display renders the format as "key: name".
func (m *FileFormatMetadata) Display() string {
	return m.PronomKey + ": " + m.FormatName
}

// VirusScanMetadata is the outcome of a virus scan event.
type VirusScanMetadata struct {
	Source          string    `json:"source" yaml:"source"`
	Timestamp       time.Time `json:"timestamp,omitzero" yaml:"timestamp,omitempty"`
	HasVirus        bool      `json:"hasVirus" yaml:"hasVirus"`
	VirusFound      string    `json:"virusFound,omitempty" yaml:"virusFound,omitempty"`
	VirusDefinition string    `json:"virusDefinition,omitempty" yaml:"virusDefinition,omitempty"`
}

// MetsExtensions keeps the METS identifiers an entry was built from.
type MetsExtensions struct {
	DivID string `json:"physDivId,omitempty" yaml:"physDivId,omitempty"`
	AdmID string `json:"admId,omitempty" yaml:"admId,omitempty"`
}

// MarshalJSON adds the "type" discriminator.
func (f *WorkingFile) MarshalJSON() ([]byte, error) {
	type plain WorkingFile
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*plain
	}{KindFile, (*plain)(f)})
}

// MarshalJSON adds the "type" discriminator.
func (d *WorkingDirectory) MarshalJSON() ([]byte, error) {
	type plain WorkingDirectory
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*plain
	}{KindDirectory, (*plain)(d)})
}
