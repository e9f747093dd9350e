package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestVisionRecognize(t *testing.T) {
	var gotKey string
	var gotReq visionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"responses":[{"textAnnotations":[
			{"description":"Cargo: Analista\nLocal: Remoto\nR$ 3000,00\n","locale":"pt"},
			{"description":"Cargo:"}]}]}`))
	}))
	defer srv.Close()

	c := NewVisionClient(Config{VisionURL: srv.URL, VisionAPIKey: "k-1"}, srv.Client(), nil)
	res, err := c.Recognize(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if res.Text != "Cargo: Analista\nLocal: Remoto\nR$ 3000,00" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Language != "pt" {
		t.Errorf("Language = %q", res.Language)
	}
	if gotKey != "k-1" {
		t.Errorf("api key = %q", gotKey)
	}
	if len(gotReq.Requests) != 1 || gotReq.Requests[0].Features[0].Type != "TEXT_DETECTION" {
		t.Errorf("unexpected request: %+v", gotReq)
	}
	if gotReq.Requests[0].Image.Content != "aW1n" {
		t.Errorf("image content = %q, want base64 of img", gotReq.Requests[0].Image.Content)
	}
}

func TestVisionNoText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"responses":[{}]}`))
	}))
	defer srv.Close()

	res, err := NewVisionClient(Config{VisionURL: srv.URL}, srv.Client(), nil).Recognize(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if res.Text != "" {
		t.Errorf("Text = %q, want empty", res.Text)
	}
}

func TestVisionErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"http status", http.StatusForbidden, `{"error":{"message":"API key not valid"}}`, "vision status 403"},
		{"per-image error", http.StatusOK, `{"responses":[{"error":{"code":3,"message":"Bad image data."}}]}`, "Bad image data."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewVisionClient(Config{VisionURL: srv.URL}, srv.Client(), nil).Recognize(context.Background(), []byte("img"))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}
