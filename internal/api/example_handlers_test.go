package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hearsayhq/hearsay/internal/example"
	"github.com/hearsayhq/hearsay/internal/listing"
)

func TestCreateExample_RequiresAuth(t *testing.T) {
	f := newHandlerFixture(t)
	fig := f.addFigure(t, "Sinead OConnor")

	body, _ := json.Marshal(CreateExampleRequest{
		FigureID:     fig.ID,
		VideoURL:     "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		StartSeconds: 1,
		EndSeconds:   3,
	})
	req := httptest.NewRequest(http.MethodPost, "/examples", bytes.NewReader(body))
	w := httptest.NewRecorder()

	f.exampleHandlers.CreateExample(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

func TestCreateExample_Success(t *testing.T) {
	f := newHandlerFixture(t)
	fig := f.addFigure(t, "Chiwetel Ejiofor")

	body, _ := json.Marshal(CreateExampleRequest{
		FigureID:     fig.ID,
		VideoURL:     "https://youtu.be/dQw4w9WgXcQ",
		StartSeconds: 12.5,
		EndSeconds:   15,
		Note:         "around the 12 second mark",
	})
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/examples", bytes.NewReader(body)), "user-1")
	w := httptest.NewRecorder()

	f.exampleHandlers.CreateExample(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var created example.Example
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("expected extracted video ID dQw4w9WgXcQ, got %s", created.VideoID)
	}
	if created.Upvotes != 0 || created.Downvotes != 0 || created.Score != 0 {
		t.Error("expected fresh example counters to be zero")
	}
	if created.CreatedBy == nil || *created.CreatedBy != "user-1" {
		t.Error("expected created_by to record the authenticated user")
	}
}

func TestCreateExample_InvalidVideoURL(t *testing.T) {
	f := newHandlerFixture(t)
	fig := f.addFigure(t, "Lupita Nyongo")

	body, _ := json.Marshal(CreateExampleRequest{
		FigureID:     fig.ID,
		VideoURL:     "https://example.com/not-a-video",
		StartSeconds: 1,
		EndSeconds:   3,
	})
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/examples", bytes.NewReader(body)), "user-1")
	w := httptest.NewRecorder()

	f.exampleHandlers.CreateExample(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	if errResp := decodeError(t, w); errResp.Error.Code != ErrCodeInvalidVideoID {
		t.Errorf("expected error code %s, got %s", ErrCodeInvalidVideoID, errResp.Error.Code)
	}
}

func TestCreateExample_InvalidTimeRange(t *testing.T) {
	f := newHandlerFixture(t)
	fig := f.addFigure(t, "Nguyen Phan")

	body, _ := json.Marshal(CreateExampleRequest{
		FigureID:     fig.ID,
		VideoURL:     "dQw4w9WgXcQ",
		StartSeconds: 5,
		EndSeconds:   5,
	})
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/examples", bytes.NewReader(body)), "user-1")
	w := httptest.NewRecorder()

	f.exampleHandlers.CreateExample(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	if errResp := decodeError(t, w); errResp.Error.Code != ErrCodeInvalidTimeRange {
		t.Errorf("expected error code %s, got %s", ErrCodeInvalidTimeRange, errResp.Error.Code)
	}
}

func TestCreateExample_UnknownFigure(t *testing.T) {
	f := newHandlerFixture(t)

	body, _ := json.Marshal(CreateExampleRequest{
		FigureID:     "no-such-figure",
		VideoURL:     "dQw4w9WgXcQ",
		StartSeconds: 1,
		EndSeconds:   3,
	})
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/examples", bytes.NewReader(body)), "user-1")
	w := httptest.NewRecorder()

	f.exampleHandlers.CreateExample(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestGetExample(t *testing.T) {
	f := newHandlerFixture(t)
	fig := f.addFigure(t, "Saara Aalto")
	e := f.addExample(t, fig.ID, "user-1")

	req := httptest.NewRequest(http.MethodGet, "/examples/"+e.ID, nil)
	req.SetPathValue("id", e.ID)
	w := httptest.NewRecorder()

	f.exampleHandlers.GetExample(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var got example.Example
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != e.ID {
		t.Errorf("expected example %s, got %s", e.ID, got.ID)
	}
}

func TestGetExample_NotFound(t *testing.T) {
	f := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/examples/missing", nil)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()

	f.exampleHandlers.GetExample(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestDeleteExample_CreatorOnly(t *testing.T) {
	f := newHandlerFixture(t)
	fig := f.addFigure(t, "Xochitl Gomez")
	e := f.addExample(t, fig.ID, "creator")

	tests := []struct {
		name     string
		userID   string
		wantCode int
	}{
		{name: "anonymous", userID: "", wantCode: http.StatusUnauthorized},
		{name: "non-creator", userID: "someone-else", wantCode: http.StatusForbidden},
		{name: "creator", userID: "creator", wantCode: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/examples/"+e.ID, nil)
			req.SetPathValue("id", e.ID)
			if tt.userID != "" {
				req = authedRequest(req, tt.userID)
			}
			w := httptest.NewRecorder()

			f.exampleHandlers.DeleteExample(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
		})
	}
}

func TestListExamples_UnknownFigure(t *testing.T) {
	f := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/figures/nobody/examples", nil)
	req.SetPathValue("slug", "nobody")
	w := httptest.NewRecorder()

	f.exampleHandlers.ListExamples(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestListExamples_InvalidPage(t *testing.T) {
	f := newHandlerFixture(t)
	fig := f.addFigure(t, "Siobhan Roy")

	for _, raw := range []string{"0", "-1", "abc"} {
		t.Run(raw, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/figures/"+fig.Slug+"/examples?page="+raw, nil)
			req.SetPathValue("slug", fig.Slug)
			w := httptest.NewRecorder()

			f.exampleHandlers.ListExamples(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400 for page=%s, got %d", raw, w.Code)
			}
		})
	}
}

func TestListExamples_Paginates(t *testing.T) {
	f := newHandlerFixture(t)
	fig := f.addFigure(t, "Mikko Hypponen")
	for i := 0; i < 13; i++ {
		f.addExample(t, fig.ID, fmt.Sprintf("user-%d", i))
	}

	page1 := f.listExamplesPage(t, fig.Slug, "")
	if len(page1.Examples) != 10 {
		t.Errorf("expected 10 examples on page 1, got %d", len(page1.Examples))
	}
	if page1.Total != 13 {
		t.Errorf("expected total 13, got %d", page1.Total)
	}
	if !page1.HasMore {
		t.Error("expected has_more on page 1")
	}

	page2 := f.listExamplesPage(t, fig.Slug, "2")
	if len(page2.Examples) != 3 {
		t.Errorf("expected 3 examples on page 2, got %d", len(page2.Examples))
	}
	if page2.HasMore {
		t.Error("expected has_more false on page 2")
	}
	if len(page2.HiddenExamples) != 0 {
		t.Errorf("expected no hidden set past page 1, got %d", len(page2.HiddenExamples))
	}
}

func (f *handlerFixture) listExamplesPage(t *testing.T, slug, page string) *listing.PageResult {
	t.Helper()
	url := "/figures/" + slug + "/examples"
	if page != "" {
		url += "?page=" + page
	}
	req := httptest.NewRequest(http.MethodGet, url, nil)
	req.SetPathValue("slug", slug)
	w := httptest.NewRecorder()

	f.exampleHandlers.ListExamples(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result listing.PageResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return &result
}
