package storage

import (
	"fmt"
	"slices"
	"strings"
)

// Type is the closed set of backends a deployment can select.
type Type string

const (
	TypeMemory     Type = "memory"
	TypeSQLite     Type = "sqlite"
	TypeMySQL      Type = "mysql"
	TypeMariaDB    Type = "mariadb"
	TypePostgreSQL Type = "postgresql"
	TypeRedis      Type = "redis"
)

var typeIdentifiers = map[Type][]string{
	TypeMemory:     {"memory", "in-memory"},
	TypeSQLite:     {"sqlite", "sqlite3"},
	TypeMySQL:      {"mysql"},
	TypeMariaDB:    {"mariadb"},
	TypePostgreSQL: {"postgresql", "postgres", "pg"},
	TypeRedis:      {"redis"},
}

// ParseType resolves a configured identifier, case-insensitively.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	for t, ids := range typeIdentifiers {
		for _, id := range ids {
			if strings.EqualFold(id, s) {
				return t, nil
			}
		}
	}
	return "", fmt.Errorf("storage: unknown method %q", s)
}

// IsSQL reports whether the backend is served by the gorm SQL implementation.
func (t Type) IsSQL() bool {
	switch t {
	case TypeSQLite, TypeMySQL, TypeMariaDB, TypePostgreSQL:
		return true
	}
	return false
}

func (t Type) DisplayName() string {
	switch t {
	case TypeMemory:
		return "Memory"
	case TypeSQLite:
		return "SQLite"
	case TypeMySQL:
		return "MySQL"
	case TypeMariaDB:
		return "MariaDB"
	case TypePostgreSQL:
		return "PostgreSQL"
	case TypeRedis:
		return "Redis"
	default:
		return string(t)
	}
}

// SplitType is a record category that split storage can route on its own.
type SplitType string

const (
	SplitUser SplitType = "user"
	SplitUUID SplitType = "uuid"
)

func ParseSplitType(s string) (SplitType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(SplitUser):
		return SplitUser, nil
	case string(SplitUUID):
		return SplitUUID, nil
	}
	return "", fmt.Errorf("storage: unknown split category %q", s)
}

// Routes resolves the configured storage method and optional split routing
// into the backend serving each record category.
func Routes(method string, splitEnabled bool, split map[string]string) (map[SplitType]Type, error) {
	primary, err := ParseType(method)
	if err != nil {
		return nil, err
	}
	routes := map[SplitType]Type{SplitUser: primary, SplitUUID: primary}
	if !splitEnabled {
		return routes, nil
	}
	for category, m := range split {
		st, err := ParseSplitType(category)
		if err != nil {
			return nil, err
		}
		t, err := ParseType(m)
		if err != nil {
			return nil, err
		}
		routes[st] = t
	}
	return routes, nil
}

// Distinct lists each backend referenced by routes once, in stable order.
func Distinct(routes map[SplitType]Type) []Type {
	var out []Type
	for _, st := range []SplitType{SplitUser, SplitUUID} {
		t, ok := routes[st]
		if ok && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}
