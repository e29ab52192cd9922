package reporting

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestPredefinedMeasures(t *testing.T) {
	expectedIDs := []string{
		"revenue-by-doctor",
		"revenue-total",
		"appointment-volume-by-status",
		"slot-utilization",
	}
	if len(PredefinedMeasures) != len(expectedIDs) {
		t.Fatalf("expected %d predefined measures, got %d", len(expectedIDs), len(PredefinedMeasures))
	}
	for i, expectedID := range expectedIDs {
		if PredefinedMeasures[i].ID != expectedID {
			t.Errorf("expected measure[%d].ID = %s, got %s", i, expectedID, PredefinedMeasures[i].ID)
		}
	}
}

func TestPredefinedMeasures_HaveSQL(t *testing.T) {
	for _, m := range PredefinedMeasures {
		if m.SQL == "" {
			t.Errorf("measure %s has empty SQL", m.ID)
		}
		if m.Name == "" {
			t.Errorf("measure %s has empty name", m.ID)
		}
		if m.Description == "" {
			t.Errorf("measure %s has empty description", m.ID)
		}
	}
}

func TestRevenueMeasures_ExcludeCancelled(t *testing.T) {
	for _, id := range []string{"revenue-by-doctor", "revenue-total"} {
		m := FindMeasure(id)
		if m == nil {
			t.Fatalf("expected to find %s", id)
		}
		if !strings.Contains(m.SQL, "status <> 'cancelled'") {
			t.Errorf("measure %s must exclude cancelled appointments", id)
		}
		if len(m.Parameters) != 2 || m.Parameters[0] != "from" || m.Parameters[1] != "to" {
			t.Errorf("measure %s must take from/to parameters, got %v", id, m.Parameters)
		}
	}
}

func TestFindMeasure(t *testing.T) {
	m := FindMeasure("revenue-by-doctor")
	if m == nil {
		t.Fatal("expected to find revenue-by-doctor measure")
	}
	if m.Name != "Revenue by Doctor" {
		t.Errorf("expected 'Revenue by Doctor', got %s", m.Name)
	}
	if FindMeasure("nonexistent") != nil {
		t.Error("expected nil for nonexistent measure")
	}
}

func TestEvaluateMeasure_UnknownID(t *testing.T) {
	h := NewHandler(nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/reports/measures/nope/evaluate", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	err := h.EvaluateMeasure(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestEvaluateMeasure_MissingParameter(t *testing.T) {
	h := NewHandler(nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/reports/measures/revenue-total/evaluate?from=2026-01-01", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("revenue-total")

	err := h.EvaluateMeasure(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing 'to', got %v", err)
	}
}

func TestEvaluateMeasure_MalformedDate(t *testing.T) {
	h := NewHandler(nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/reports/measures/revenue-total/evaluate?from=not-a-date&to=2026-02-01", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("revenue-total")

	err := h.EvaluateMeasure(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed 'from', got %v", err)
	}
}

func TestListMeasures(t *testing.T) {
	h := NewHandler(nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/reports/measures", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListMeasures(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
