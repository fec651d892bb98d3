package model

import (
	"maps"
	"strings"
)

// StorageMetadata holds health and size facts about one or more backing stores.
// Zero values mean "unknown"; Combine treats them that way.
type StorageMetadata struct {
	Name       string            `json:"name,omitempty"`
	Connected  *bool             `json:"connected,omitempty"`
	PingMillis int64             `json:"ping_ms,omitempty"`
	SizeBytes  int64             `json:"size_bytes,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
}

func (m StorageMetadata) WithConnected(connected bool) StorageMetadata {
	m.Connected = &connected
	return m
}

// Combine merges two metadata values into the view of one logical store.
// Names are joined, connectivity is the conjunction, ping is the slowest
// backend, sizes add up, and details are merged with later keys winning.
func (m StorageMetadata) Combine(other StorageMetadata) StorageMetadata {
	res := StorageMetadata{
		PingMillis: max(m.PingMillis, other.PingMillis),
		SizeBytes:  m.SizeBytes + other.SizeBytes,
	}

	switch {
	case m.Name == "":
		res.Name = other.Name
	case other.Name == "" || strings.EqualFold(m.Name, other.Name):
		res.Name = m.Name
	default:
		res.Name = m.Name + ", " + other.Name
	}

	switch {
	case m.Connected == nil:
		res.Connected = other.Connected
	case other.Connected == nil:
		res.Connected = m.Connected
	default:
		both := *m.Connected && *other.Connected
		res.Connected = &both
	}

	if len(m.Details) > 0 || len(other.Details) > 0 {
		res.Details = make(map[string]string, len(m.Details)+len(other.Details))
		maps.Copy(res.Details, m.Details)
		maps.Copy(res.Details, other.Details)
	}

	return res
}

// IsConnected reports false only when a backend explicitly said so.
func (m StorageMetadata) IsConnected() bool {
	return m.Connected == nil || *m.Connected
}
