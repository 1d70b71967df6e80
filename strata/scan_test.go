package strata_test

import (
	"errors"
	"testing"

	"github.com/justapithecus/strata/strata"
)

func TestScanBuilder_DefaultReadSchema(t *testing.T) {
	engine, store := newTestEngine()
	writeCommit(t, store, 0, protocolAction(), metadataAction(nil))
	snapshot := resolveLatest(t, engine)

	scan, err := strata.NewScanBuilder(snapshot).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	names := scan.GlobalState().ReadSchema.FieldNames()
	if len(names) != 2 || names[0] != "id" || names[1] != "val" {
		t.Errorf("expected full schema [id val], got %v", names)
	}
}

func TestScanBuilder_Projection(t *testing.T) {
	engine, store := newTestEngine()
	writeCommit(t, store, 0, protocolAction(), metadataAction(nil))
	snapshot := resolveLatest(t, engine)

	scan, err := strata.NewScanBuilder(snapshot).WithProjection("val").Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	names := scan.GlobalState().ReadSchema.FieldNames()
	if len(names) != 1 || names[0] != "val" {
		t.Errorf("expected projected schema [val], got %v", names)
	}
}

func TestScanBuilder_ProjectionPreservesRequestOrder(t *testing.T) {
	engine, store := newTestEngine()
	writeCommit(t, store, 0, protocolAction(), metadataAction(nil))
	snapshot := resolveLatest(t, engine)

	scan, err := strata.NewScanBuilder(snapshot).WithProjection("val", "id").Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	names := scan.GlobalState().ReadSchema.FieldNames()
	if len(names) != 2 || names[0] != "val" || names[1] != "id" {
		t.Errorf("expected [val id], got %v", names)
	}
}

func TestScanBuilder_InvalidProjection(t *testing.T) {
	engine, store := newTestEngine()
	writeCommit(t, store, 0, protocolAction(), metadataAction(nil))
	snapshot := resolveLatest(t, engine)

	_, err := strata.NewScanBuilder(snapshot).WithProjection("id", "nope").Build()
	if !errors.Is(err, strata.ErrInvalidProjection) {
		t.Errorf("expected ErrInvalidProjection, got: %v", err)
	}
}

func TestScanBuilder_GlobalState(t *testing.T) {
	engine, store := newTestEngine()
	writeCommit(t, store, 0, protocolAction(),
		metadataAction(map[string]string{"delta.enableDeletionVectors": "true"}, "region"))
	snapshot := resolveLatest(t, engine)

	scan, err := strata.NewScanBuilder(snapshot).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	state := scan.GlobalState()
	if state.Version != 0 {
		t.Errorf("expected version 0, got %d", state.Version)
	}
	if !state.DeletionVectorsEnabled {
		t.Error("expected deletion vectors enabled")
	}
	if len(state.PartitionColumns) != 1 || state.PartitionColumns[0] != "region" {
		t.Errorf("expected partition columns [region], got %v", state.PartitionColumns)
	}
}

func TestScanBuilder_DeletionVectorsDisabledByDefault(t *testing.T) {
	engine, store := newTestEngine()
	writeCommit(t, store, 0, protocolAction(), metadataAction(nil))
	snapshot := resolveLatest(t, engine)

	scan, err := strata.NewScanBuilder(snapshot).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if scan.GlobalState().DeletionVectorsEnabled {
		t.Error("expected deletion vectors disabled without configuration")
	}
}

type stringPredicate string

func (p stringPredicate) String() string { return string(p) }

func TestScanBuilder_PredicateRecorded(t *testing.T) {
	engine, store := newTestEngine()
	writeCommit(t, store, 0, protocolAction(), metadataAction(nil))
	snapshot := resolveLatest(t, engine)

	scan, err := strata.NewScanBuilder(snapshot).
		WithPredicate(stringPredicate("id > 10")).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if scan.Predicate() == nil || scan.Predicate().String() != "id > 10" {
		t.Errorf("expected predicate recorded, got %v", scan.Predicate())
	}
}
