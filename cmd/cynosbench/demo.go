package main

import (
	"fmt"

	"github.com/cynos-db/cynos/internal/config"
	"github.com/cynos-db/cynos/internal/engine"
	"github.com/cynos-db/cynos/internal/storage"
	"github.com/cynos-db/cynos/internal/value"
)

// buildDemoDatabase creates a fresh engine.Database with the three
// tables every subcommand exercises: employees and departments (for
// join and filter demos) and orders (for aggregate demos).
func buildDemoDatabase(cfg config.EngineConfig) *engine.Database {
	db := engine.NewWithCacheSize(cfg.PlanCacheSize)

	must(db.CreateTable(&storage.Schema{
		Name:       "departments",
		Columns:    []storage.Column{{Name: "id", Type: value.KindInt64}, {Name: "name", Type: value.KindString}},
		PrimaryKey: []string{"id"},
	}))
	must(db.CreateTable(&storage.Schema{
		Name: "employees",
		Columns: []storage.Column{
			{Name: "id", Type: value.KindInt64},
			{Name: "name", Type: value.KindString},
			{Name: "dept_id", Type: value.KindInt64},
		},
		PrimaryKey: []string{"id"},
		Indexes:    []storage.IndexDef{{Name: "idx_dept", Columns: []string{"dept_id"}, Kind: storage.IndexBTree}},
	}))
	must(db.CreateTable(&storage.Schema{
		Name: "orders",
		Columns: []storage.Column{
			{Name: "id", Type: value.KindInt64},
			{Name: "employee_id", Type: value.KindInt64},
			{Name: "amount", Type: value.KindFloat64},
		},
		PrimaryKey: []string{"id"},
	}))

	return db
}

var deptNames = []string{"engineering", "sales", "support", "finance"}

// seedDemoData inserts one department per entry of deptNames and
// numEmployees employees assigned round-robin across them, for bench and
// explain workloads that want non-trivial data volume.
func seedDemoData(db *engine.Database, numEmployees int) {
	for i, name := range deptNames {
		must1(db.Insert("departments", []value.Value{value.Int64(int64(i + 1)), value.String(name)}))
	}
	for i := 0; i < numEmployees; i++ {
		deptID := int64(i%len(deptNames) + 1)
		must1(db.Insert("employees", []value.Value{
			value.Int64(int64(i + 1)),
			value.String(fmt.Sprintf("employee-%d", i+1)),
			value.Int64(deptID),
		}))
	}
}

func must(err error) {
	if err != nil {
		fatalf("%v", err)
	}
}

func must1(_ *value.Row, err error) {
	must(err)
}
