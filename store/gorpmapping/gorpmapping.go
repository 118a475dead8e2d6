// Package gorpmapping is the table-registration mechanism component C4's store
// package uses, copied in spirit from the teacher's
// engine/api/database/gorpmapping package: a global list of (Go type, table
// name, key columns) tuples that the process-wide *gorp.DbMap is built from at
// startup.
package gorpmapping

// TableMapping binds a Go struct to a Postgres table.
type TableMapping struct {
	Target        interface{}
	Name          string
	AutoIncrement bool
	Keys          []string
}

// New builds a TableMapping.
func New(target interface{}, name string, autoIncrement bool, keys ...string) TableMapping {
	return TableMapping{Target: target, Name: name, AutoIncrement: autoIncrement, Keys: keys}
}

// Mapping accumulates every TableMapping registered by this process's store
// packages, consumed once at startup by store.New.
var Mapping []TableMapping

// Register appends table mappings to Mapping. Called from package-level init()
// functions the same way the teacher's dao packages call it.
func Register(m ...TableMapping) {
	Mapping = append(Mapping, m...)
}
