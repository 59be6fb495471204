package verification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"communifund/platform-backend/internal/apierr"
)

func TestVerifyProjectParsesResult(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(Result{Prediction: 1, Confidence: 0.82, Notes: "ok"})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	result, err := client.VerifyProject(context.Background(), "abc123")

	assert.NoError(t, err)
	assert.Equal(t, PredictionApprove, result.Prediction)
	assert.Equal(t, 0.82, result.Confidence)
	assert.Equal(t, "/verify/project/abc123", gotPath)
	assert.Equal(t, true, gotBody["dry_run"])
}

func TestVerifyProjectRejectsUnknownPrediction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Result{Prediction: 3, Confidence: 0.9})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	result, err := client.VerifyProject(context.Background(), "abc123")

	assert.Nil(t, result)
	assert.True(t, apierr.IsKind(err, apierr.KindExternal))
}

func TestVerifyProjectRejectsOutOfRangeConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Result{Prediction: 1, Confidence: 1.4})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	result, err := client.VerifyProject(context.Background(), "abc123")

	assert.Nil(t, result)
	assert.True(t, apierr.IsKind(err, apierr.KindExternal))
}

func TestVerifyProjectClassifiesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	result, err := client.VerifyProject(context.Background(), "abc123")

	assert.Nil(t, result)
	assert.True(t, apierr.IsKind(err, apierr.KindExternal))
}

func TestVerifyProjectClassifiesTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(Result{Prediction: 1, Confidence: 0.9})
	}))
	defer server.Close()

	client := NewClient(server.URL, 20*time.Millisecond)
	result, err := client.VerifyProject(context.Background(), "abc123")

	assert.Nil(t, result)
	assert.True(t, apierr.IsKind(err, apierr.KindExternal))
}

func TestTriggerBulkScoringAlwaysDryRun(t *testing.T) {
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(BulkResult{Processed: 4, Approved: 2})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	result, err := client.TriggerBulkScoring(context.Background(), 0.5)

	assert.NoError(t, err)
	assert.Equal(t, 4, result.Processed)
	assert.Equal(t, 2, result.Approved)
	assert.Equal(t, true, gotBody["dry_run"])
	assert.Equal(t, 0.5, gotBody["confidence_threshold"])
}
