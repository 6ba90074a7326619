package main

import (
	"testing"

	"github.com/cynos-db/cynos/internal/config"
)

func init() {
	engineCfg = config.DefaultEngineConfig()
}

func TestRunBenchSmallInsertCount(t *testing.T) {
	benchInserts = 50
	if err := runBench(benchCmd, nil); err != nil {
		t.Fatalf("runBench failed: %v", err)
	}
}

func TestRunExplainProducesNoError(t *testing.T) {
	if err := runExplain(explainCmd, nil); err != nil {
		t.Fatalf("runExplain failed: %v", err)
	}
}

func TestRunViewDemonstratesIncrementalUpdate(t *testing.T) {
	if err := runView(viewCmd, nil); err != nil {
		t.Fatalf("runView failed: %v", err)
	}
}

func TestBuildDemoDatabaseRegistersAllTables(t *testing.T) {
	db := buildDemoDatabase(config.DefaultEngineConfig())
	for _, name := range []string{"employees", "departments", "orders"} {
		if _, ok := db.Table(name); !ok {
			t.Errorf("expected table %q to be registered", name)
		}
	}
}

func TestSeedDemoDataDistributesAcrossDepartments(t *testing.T) {
	db := buildDemoDatabase(config.DefaultEngineConfig())
	seedDemoData(db, 12)

	rs, ok := db.Table("employees")
	if !ok {
		t.Fatal("expected employees table to exist")
	}
	if got := len(rs.Scan()); got != 12 {
		t.Errorf("expected 12 employees, got %d", got)
	}

	perDept := map[int64]int{}
	for _, r := range rs.Scan() {
		perDept[r.Values[2].Int()]++
	}
	for dept := int64(1); dept <= int64(len(deptNames)); dept++ {
		if perDept[dept] != 3 {
			t.Errorf("expected 3 employees in department %d, got %d", dept, perDept[dept])
		}
	}
}
