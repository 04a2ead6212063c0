package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"controlling_heatpump/internal/repository"
	"controlling_heatpump/internal/service"
)

const operatorBody = `{"username":"operator","password":"warm-and-dry"}`

func TestSignUp(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"registered", operatorBody, nil, http.StatusOK, ""},
		{"missing password", `{"username":"operator"}`, nil, http.StatusBadRequest, ""},
		{"blank username", `{"username":"  ","password":"pw"}`, service.ErrEmptyUsername, http.StatusBadRequest, service.ErrEmptyUsername.Error()},
		{"taken", operatorBody, fmt.Errorf("%w: %q", repository.ErrUsernameTaken, "operator"), http.StatusConflict, `username already taken: "operator"`},
		{"store down", operatorBody, errors.New("database is locked"), http.StatusInternalServerError, errAuthBackend},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{signUpID: 5, signUpErr: tc.err}
			w := doJSON(newTestRouter(&service.Service{Authorization: auth}), http.MethodPost, "/auth/sign-up", tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d; body %s", w.Code, tc.wantCode, w.Body.String())
			}
			body := decode(t, w)
			if tc.wantCode == http.StatusOK {
				if body["id"] != float64(5) || auth.lastSignUpUsername != "operator" {
					t.Fatalf("body = %v, username = %q", body, auth.lastSignUpUsername)
				}
				return
			}
			if tc.wantErr != "" && body["error"] != tc.wantErr {
				t.Fatalf("error = %v, want %q", body["error"], tc.wantErr)
			}
		})
	}
}

func TestSignIn(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"token issued", operatorBody, nil, http.StatusOK, ""},
		{"wrong body type", `{"username":1}`, nil, http.StatusBadRequest, ""},
		{"unknown operator", operatorBody, service.ErrUserNotFound, http.StatusUnauthorized, errCredentials},
		{"wrong password", operatorBody, service.ErrInvalidPassword, http.StatusUnauthorized, errCredentials},
		{"store down", operatorBody, errors.New("disk I/O error"), http.StatusInternalServerError, errAuthBackend},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{genTokenToken: "eyJ.op.sig", genTokenErr: tc.err}
			w := doJSON(newTestRouter(&service.Service{Authorization: auth}), http.MethodPost, "/auth/sign-in", tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d; body %s", w.Code, tc.wantCode, w.Body.String())
			}
			body := decode(t, w)
			if tc.wantCode == http.StatusOK {
				if body["token"] != "eyJ.op.sig" || auth.lastGenPassword != "warm-and-dry" {
					t.Fatalf("body = %v, password = %q", body, auth.lastGenPassword)
				}
				return
			}
			if tc.wantErr != "" && body["error"] != tc.wantErr {
				t.Fatalf("error = %v, want %q", body["error"], tc.wantErr)
			}
		})
	}
}
