// Package engine is the top-level façade: the single entry point that
// owns every table's row store, hands logical plans to the optimizer and
// physical converter, runs them through the executor, and keeps any
// registered materialized views current as rows change. It plays the
// role query_engine.rs's TableCacheDataSource and its
// build_execution_context/execute_plan/compile_plan/explain_plan
// functions play in the original: one object a caller can build a schema
// against, mutate, and query, without reaching into internal/query or
// internal/dataflow directly.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cynos-db/cynos/internal/dataflow"
	"github.com/cynos-db/cynos/internal/planctx"
	"github.com/cynos-db/cynos/internal/query/ast"
	"github.com/cynos-db/cynos/internal/query/executor"
	"github.com/cynos-db/cynos/internal/query/optimizer"
	"github.com/cynos-db/cynos/internal/query/physical"
	"github.com/cynos-db/cynos/internal/storage"
	"github.com/cynos-db/cynos/internal/telemetry"
	"github.com/cynos-db/cynos/internal/value"
)

// Database owns every table in a running instance: their row stores, the
// statistics and index catalog the optimizer consults, a cache of
// compiled physical plans, and any materialized views registered against
// it. A Database is safe for concurrent use.
type Database struct {
	mu sync.RWMutex

	tables     map[string]*storage.RowStore
	tableIDs   map[string]value.TableId
	tableNames map[value.TableId]string

	ec *planctx.ExecutionContext

	views map[string]*dataflow.MaterializedView
}

// New builds an empty Database with a default-sized plan cache.
func New() *Database {
	return &Database{
		tables:     make(map[string]*storage.RowStore),
		tableIDs:   make(map[string]value.TableId),
		tableNames: make(map[value.TableId]string),
		ec:         planctx.NewExecutionContext(optimizer.NewContext(), planctx.DefaultPlanCacheSize),
		views:      make(map[string]*dataflow.MaterializedView),
	}
}

// NewWithCacheSize builds an empty Database whose plan cache holds at
// most cacheSize entries, for callers wiring internal/config's
// PlanCacheSize through.
func NewWithCacheSize(cacheSize int) *Database {
	db := New()
	db.ec = planctx.NewExecutionContext(optimizer.NewContext(), cacheSize)
	return db
}

// CreateTable registers a new table with the given schema and an empty
// row store, and seeds the optimizer's index catalog from the schema's
// declared indexes (mirroring NewContextFromSchemas, applied
// incrementally rather than all at once at startup).
func (db *Database) CreateTable(schema *storage.Schema) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.tables[schema.Name]; exists {
		return fmt.Errorf("engine: table %q already exists", schema.Name)
	}
	db.tables[schema.Name] = storage.New(schema)
	id := value.TableId(len(db.tableIDs))
	db.tableIDs[schema.Name] = id
	db.tableNames[id] = schema.Name

	if len(schema.PrimaryKey) > 0 {
		db.ec.Stats.RegisterIndex(schema.Name, optimizer.IndexInfo{
			Name: "__pk__", Kind: storage.IndexBTree, Columns: schema.PrimaryKey, Unique: true,
		})
	}
	for _, idx := range schema.Indexes {
		db.ec.Stats.RegisterIndex(schema.Name, optimizer.IndexInfo{
			Name: idx.Name, Kind: idx.Kind, Columns: idx.Columns, Unique: idx.Unique,
		})
	}
	return nil
}

// Table returns the row store backing name, if it exists.
func (db *Database) Table(name string) (*storage.RowStore, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	rs, ok := db.tables[name]
	return rs, ok
}

// dataSource builds an executor.DataSource over every registered table,
// the Go analogue of the Rust TableCacheDataSource: a thin read-only view
// over the same row stores Insert/Update/Delete mutate, rebuilt per call
// since RowStoreDataSource itself holds no state beyond the map.
func (db *Database) dataSource() executor.DataSource {
	return executor.NewRowStoreDataSource(db.tables)
}

// Insert adds a row to table and propagates the resulting delta to every
// materialized view that depends on it.
func (db *Database) Insert(table string, values []value.Value) (*value.Row, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rs, ok := db.tables[table]
	if !ok {
		return nil, fmt.Errorf("engine: table %q not found", table)
	}
	row, delta, err := rs.InsertWithDelta(values)
	if err != nil {
		return nil, err
	}
	telemetry.Metrics.RowStoreInsertCount.Add(context.Background(), 1)
	db.ec.Stats.SetCardinality(table, len(rs.RowIDs()))
	db.propagate(table, []value.RowDelta{delta})
	return row, nil
}

// Delete removes a row from table by id and propagates the resulting
// delta.
func (db *Database) Delete(table string, id value.RowId) (*value.Row, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rs, ok := db.tables[table]
	if !ok {
		return nil, fmt.Errorf("engine: table %q not found", table)
	}
	delta, err := rs.DeleteWithDelta(id)
	if err != nil {
		return nil, err
	}
	telemetry.Metrics.RowStoreDeleteCount.Add(context.Background(), 1)
	db.ec.Stats.SetCardinality(table, len(rs.RowIDs()))
	db.propagate(table, []value.RowDelta{delta})
	return delta.Data, nil
}

// Update replaces the values of the row identified by id in table and
// propagates the resulting delete+insert delta pair.
func (db *Database) Update(table string, id value.RowId, newValues []value.Value) (*value.Row, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rs, ok := db.tables[table]
	if !ok {
		return nil, fmt.Errorf("engine: table %q not found", table)
	}
	deltas, err := rs.UpdateWithDelta(id, newValues)
	if err != nil {
		return nil, err
	}
	telemetry.Metrics.RowStoreUpdateCount.Add(context.Background(), 1)
	db.propagate(table, deltas)
	var updated *value.Row
	for _, d := range deltas {
		if d.Diff > 0 {
			updated = d.Data
		}
	}
	return updated, nil
}

// propagate hands deltas observed on table to every materialized view
// that depends on it, timing each propagation for
// telemetry.Metrics.DataflowDeltaLatency. Callers must hold db.mu.
func (db *Database) propagate(table string, deltas []value.RowDelta) {
	tableID, ok := db.tableIDs[table]
	if !ok {
		return
	}
	for _, view := range db.views {
		if !view.DependsOn(tableID) {
			continue
		}
		start := time.Now()
		view.OnTableChange(tableID, deltas)
		telemetry.Metrics.DataflowDeltaLatency.Record(context.Background(), float64(time.Since(start).Microseconds())/1000)
	}
}

// Execute optimizes, compiles and runs plan, caching the compiled
// physical plan under a fingerprint of the optimized logical plan so a
// repeated query shape skips straight to execution — the Go analogue of
// execute_plan, which looks up an already-compiled PhysicalPlan in its
// cache before falling back to the full optimize-then-convert path.
func (db *Database) Execute(plan ast.LogicalPlan) (*executor.Relation, error) {
	phys := db.Compile(plan)
	return db.ExecutePhysical(phys)
}

// ExecutePhysical runs an already-compiled physical plan directly,
// skipping optimization — the Go analogue of execute_physical_plan, used
// when a caller has its own cached plan from an earlier Compile or
// Explain call.
func (db *Database) ExecutePhysical(plan physical.Plan) (*executor.Relation, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	runner := executor.NewRunner(db.dataSource())
	return runner.Execute(plan)
}

// Compile optimizes plan and converts it to a physical plan, reusing a
// cached conversion when the optimized shape has been seen before. The
// Go analogue of compile_plan.
func (db *Database) Compile(plan ast.LogicalPlan) physical.Plan {
	db.mu.Lock()
	defer db.mu.Unlock()

	start := time.Now()
	optimized := optimizer.Optimize(plan, db.ec.Stats)
	telemetry.Metrics.OptimizerPassDuration.Record(context.Background(), float64(time.Since(start).Microseconds())/1000)

	if cached, ok := db.ec.Lookup(optimized); ok {
		telemetry.Metrics.PlanCacheHitCount.Add(context.Background(), 1)
		return cached
	}
	telemetry.Metrics.PlanCacheMissCount.Add(context.Background(), 1)
	phys := physical.Convert(optimized, db.ec.Stats)
	db.ec.Store(optimized, phys)
	return phys
}

// ExplainResult is the three-stage plan dump: the logical plan as built,
// the logical plan after the optimizer pipeline has run, and the final
// physical plan — mirroring explain_plan's ExplainResult{logical_plan,
// optimized_plan, physical_plan}, a pretty-printed dump at every stage so
// a caller can see exactly what each pass rewrote.
type ExplainResult struct {
	Logical   string
	Optimized string
	Physical  string
}

// Explain produces a three-stage pretty-printed dump of plan without
// executing it.
func (db *Database) Explain(plan ast.LogicalPlan) ExplainResult {
	db.mu.RLock()
	optimized := optimizer.Optimize(plan, db.ec.Stats)
	phys := physical.Convert(optimized, db.ec.Stats)
	db.mu.RUnlock()

	return ExplainResult{
		Logical:   formatLogicalPlan(plan, 0),
		Optimized: formatLogicalPlan(optimized, 0),
		Physical:  formatPhysicalPlan(phys, 0),
	}
}

// CreateView registers a materialized view named name over plan, bootstrapped
// by replaying every row already in each table it depends on through the
// compiled dataflow graph as an insert batch, then kept current afterward
// by feeding every subsequent Insert/Update/Delete through the same
// graph — the Go analogue of the incremental views
// crates/incremental/src/materialize.rs builds over a compiled physical
// plan. Bootstrapping via replay, rather than seeding the maintained
// result directly from a one-shot query, is what lets a later change on
// either side of a join find the rows that existed before the view was
// created: a Join node's matching state (internal/dataflow.JoinState) is
// only ever populated by the inserts it has seen.
//
// plan must be incrementalizable: it may not contain a Sort, Limit or
// TopN anywhere in its tree, and any aggregate it uses must be one
// internal/dataflow can maintain incrementally (COUNT, SUM, AVG, MIN,
// MAX — not DISTINCT, STDDEV or GEOMEAN). CreateView returns an error
// naming the view instead of silently falling back to re-query, so a
// caller never ends up with a "materialized" view that's actually
// recomputed from scratch on every change without knowing it.
func (db *Database) CreateView(name string, plan ast.LogicalPlan) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.views[name]; exists {
		return fmt.Errorf("engine: view %q already exists", name)
	}

	optimized := optimizer.Optimize(plan, db.ec.Stats)
	phys := physical.Convert(optimized, db.ec.Stats)

	node, ok := dataflow.Compile(phys, db.dataSource(), db.tableIDs)
	if !ok {
		return fmt.Errorf("engine: view %q has no incremental maintenance plan (uses Sort/Limit/TopN or an unsupported aggregate)", name)
	}

	view := dataflow.NewMaterializedView(node)
	for _, tableID := range view.Dependencies() {
		rs, ok := db.tables[db.tableNames[tableID]]
		if !ok {
			continue
		}
		rows := rs.Scan()
		deltas := make([]value.RowDelta, len(rows))
		for i, row := range rows {
			deltas[i] = value.Insert(row)
		}
		view.OnTableChange(tableID, deltas)
	}

	db.views[name] = view
	return nil
}

// DropView removes a previously registered materialized view. It is not
// an error to drop a view that doesn't exist.
func (db *Database) DropView(name string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.views, name)
}

// ViewResult returns the current contents of a materialized view.
func (db *Database) ViewResult(name string) ([]*value.Row, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	view, ok := db.views[name]
	if !ok {
		return nil, false
	}
	return view.Result(), true
}
