package drivethrusdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSayPostsUtterance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sessions/lane 1/turns" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Turn{SessionID: "lane 1", Reply: "echo " + body["text"]})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.BearerToken = "tok"
	turn, err := c.Say(context.Background(), "lane 1", "hash brown")
	if err != nil {
		t.Fatalf("say: %v", err)
	}
	if turn.Reply != "echo hash brown" {
		t.Fatalf("unexpected reply %q", turn.Reply)
	}
}

func TestAPIErrorCarriesCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":{"code":"order_finalized","message":"order already finalized"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Say(context.Background(), "s1", "more")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusConflict || apiErr.Code != "order_finalized" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}
