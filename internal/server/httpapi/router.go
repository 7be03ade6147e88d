package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *HTTPServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.sessionMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/send-otp", s.sendOTP).Methods(http.MethodPost)
	api.HandleFunc("/auth/verify-otp", s.verifyOTP).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", s.logout).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/me", s.me).Methods(http.MethodGet)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	}).Methods(http.MethodGet)

	return r
}
