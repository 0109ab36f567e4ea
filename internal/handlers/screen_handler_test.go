package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/funnel/internal/interfaces"
	"github.com/ternarybob/funnel/internal/models"
)

type stubScreenService struct {
	result *models.ScreenResult
	err    error
}

func (s *stubScreenService) Screen(ctx context.Context, criteria *models.ScreenCriteria, size int) (*models.ScreenResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestScreenHandler(t *testing.T) {
	result := &models.ScreenResult{
		Candidates: []models.ScoredCandidate{
			{Ticker: "NYSE:AAA", Score: 82.5, Rank: 1},
		},
		Diagnostics: models.ScreenDiagnostics{RunID: "run-1", Scanned: 5, Matched: 1},
	}
	handler := NewScreenHandler(&stubScreenService{result: result}, arbor.NewLogger())

	t.Run("valid request", func(t *testing.T) {
		body := `{"criteria": {"min_roic": 0.15}, "size": 10}`
		req := httptest.NewRequest("POST", "/api/screen", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.ScreenHandler(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var got models.ScreenResult
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		if len(got.Candidates) != 1 || got.Candidates[0].Ticker != "NYSE:AAA" {
			t.Errorf("candidates = %+v", got.Candidates)
		}
	})

	t.Run("rejects wrong method", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/screen", nil)
		rec := httptest.NewRecorder()

		handler.ScreenHandler(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/screen", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()

		handler.ScreenHandler(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("invalid criteria is 400", func(t *testing.T) {
		bad := NewScreenHandler(&stubScreenService{
			err: fmt.Errorf("%w: no thresholds", interfaces.ErrInvalidCriteria),
		}, arbor.NewLogger())

		req := httptest.NewRequest("POST", "/api/screen", strings.NewReader(`{"criteria": {}}`))
		rec := httptest.NewRecorder()

		bad.ScreenHandler(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestParseGroupsParam(t *testing.T) {
	groups, err := parseGroupsParam("fundamentals, Valuation")
	if err != nil {
		t.Fatalf("parseGroupsParam() error = %v", err)
	}
	if len(groups) != 2 || groups[0] != models.GroupFundamentals || groups[1] != models.GroupValuation {
		t.Errorf("groups = %v", groups)
	}

	if _, err := parseGroupsParam("bogus"); err == nil {
		t.Error("parseGroupsParam(bogus) error = nil, want unknown group")
	}

	groups, err = parseGroupsParam("")
	if err != nil || groups != nil {
		t.Errorf("empty param = (%v, %v), want (nil, nil)", groups, err)
	}
}
