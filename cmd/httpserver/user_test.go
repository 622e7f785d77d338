//go:build integration

package httpserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/moneta-bank/moneta/internal/domain"
	"github.com/moneta-bank/moneta/internal/integrationtest"
	"github.com/moneta-bank/moneta/internal/middleware"
	"github.com/moneta-bank/moneta/pkg/randompkg"
	"github.com/moneta-bank/moneta/pkg/tokenpkg"
)

func TestUserFlowAPI(t *testing.T) {
	server := integrationtest.SetupServer(t)

	username := randompkg.Username()
	email := randompkg.Email()
	password := randompkg.String(10)

	register := map[string]string{
		"username":   username,
		"email":      email,
		"first_name": randompkg.Name(),
		"last_name":  randompkg.Name(),
		"password":   password,
	}

	body, err := json.Marshal(register)
	if err != nil {
		t.Fatalf("json.Marshal(%v) returned error: %v", register, err)
	}

	request, err := http.NewRequest(http.MethodPost, "/users", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("http.NewRequest() returned error: %v", err)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("recorder.Code = %v, want %v, body %v", recorder.Code, http.StatusOK, recorder.Body)
	}

	var createRes struct {
		Data struct {
			User domain.UserWithoutPassword `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(recorder.Body).Decode(&createRes); err != nil {
		t.Fatalf("Decoding response body error: %v", err)
	}

	if createRes.Data.User.Balance != "100.00" {
		t.Errorf("createRes.Data.User.Balance = %v, want 100.00", createRes.Data.User.Balance)
	}

	// Registering the same username again conflicts.
	request, err = http.NewRequest(http.MethodPost, "/users", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("http.NewRequest() returned error: %v", err)
	}

	recorder = httptest.NewRecorder()
	server.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusConflict {
		t.Errorf("recorder.Code = %v, want %v", recorder.Code, http.StatusConflict)
	}

	// Login returns an access token.
	login := map[string]string{"username": username, "password": password}

	body, err = json.Marshal(login)
	if err != nil {
		t.Fatalf("json.Marshal(%v) returned error: %v", login, err)
	}

	request, err = http.NewRequest(http.MethodPost, "/users/login", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("http.NewRequest() returned error: %v", err)
	}

	recorder = httptest.NewRecorder()
	server.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("recorder.Code = %v, want %v, body %v", recorder.Code, http.StatusOK, recorder.Body)
	}

	var loginRes struct {
		Data struct {
			AccessToken          string                     `json:"access_token"`
			AccessTokenExpiresAt time.Time                  `json:"access_token_expires_at"`
			User                 domain.UserWithoutPassword `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(recorder.Body).Decode(&loginRes); err != nil {
		t.Fatalf("Decoding response body error: %v", err)
	}

	if loginRes.Data.AccessToken == "" {
		t.Fatal("loginRes.Data.AccessToken is empty")
	}

	// The issued token authenticates a username lookup.
	request, err = http.NewRequest(http.MethodGet, "/users/"+username, nil)
	if err != nil {
		t.Fatalf("http.NewRequest() returned error: %v", err)
	}

	request.Header.Set(middleware.AuthHeaderKey, middleware.AuthTypeBearer+" "+loginRes.Data.AccessToken)

	recorder = httptest.NewRecorder()
	server.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("recorder.Code = %v, want %v, body %v", recorder.Code, http.StatusOK, recorder.Body)
	}

	var getRes struct {
		Data struct {
			User domain.UserWithoutPassword `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(recorder.Body).Decode(&getRes); err != nil {
		t.Fatalf("Decoding response body error: %v", err)
	}

	if getRes.Data.User.Username != username {
		t.Errorf("getRes.Data.User.Username = %v, want %v", getRes.Data.User.Username, username)
	}

	// Another user's token cannot read the profile.
	tokenMaker, err := tokenpkg.NewJWTMaker(server.Config.TokenSymmetricKey)
	if err != nil {
		t.Fatalf("tokenpkg.NewJWTMaker() returned error: %v", err)
	}

	request, err = http.NewRequest(http.MethodGet, "/users/"+username, nil)
	if err != nil {
		t.Fatalf("http.NewRequest() returned error: %v", err)
	}

	err = middleware.AddAuthorization(request, tokenMaker, middleware.AuthTypeBearer, "intruder", server.Config.AccessTokenDuration)
	if err != nil {
		t.Fatalf("middleware.AddAuthorization() returned error: %v", err)
	}

	recorder = httptest.NewRecorder()
	server.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("recorder.Code = %v, want %v", recorder.Code, http.StatusUnauthorized)
	}

	// Wrong password is rejected.
	login["password"] = "wrongpassword"

	body, err = json.Marshal(login)
	if err != nil {
		t.Fatalf("json.Marshal(%v) returned error: %v", login, err)
	}

	request, err = http.NewRequest(http.MethodPost, "/users/login", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("http.NewRequest() returned error: %v", err)
	}

	recorder = httptest.NewRecorder()
	server.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("recorder.Code = %v, want %v", recorder.Code, http.StatusUnauthorized)
	}
}
