package api

import (
	"net/http"
	"time"
)

var startTime = time.Now()

type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int    `json:"uptimeSeconds"`
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		UptimeSeconds: int(time.Since(startTime).Seconds()),
	})
}
