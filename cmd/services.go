package cmd

import (
	"fmt"
	"os"

	"github.com/wanderstay/wander/auth"
	"github.com/wanderstay/wander/client"
	"github.com/wanderstay/wander/db"
)

// services bundles the API client, the session coordinator, and the local
// repositories the commands share. Everything hangs off one Coordinator, so
// no matter how many commands or workers hit an expired token at the same
// time, only a single refresh goes out.
type services struct {
	api      *client.WanderClient
	auth     *auth.Service
	offline  *client.OfflineQueue
	tokens   db.TokenRepository
	stays    db.StayRepository
	profiles db.ProfileRepository
}

// newServices wires the service stack against the open database. The API
// client's HTTP client carries the session transport, which attaches bearer
// tokens, renews them on 401, and parks network failures on the offline
// queue; the queue replays through the same authenticated client.
func newServices() *services {
	gormDB := db.GetDB()
	svc := &services{
		api:      client.NewWanderClient(),
		tokens:   db.NewTokenRepository(gormDB),
		stays:    db.NewStayRepository(gormDB),
		profiles: db.NewProfileRepository(gormDB),
	}

	svc.auth = auth.NewServiceWithRepo(svc.tokens, svc.api)
	svc.offline = client.NewOfflineQueue(svc.api.BaseURL + "/v1/health")

	sessionHTTP := client.NewSessionHTTPClient(svc.auth.Coordinator, svc.offline)
	svc.api.HTTP = sessionHTTP
	svc.offline.HTTP = sessionHTTP

	svc.auth.Coordinator.OnSessionExpired(auth.SessionExpiryFunc(func(error) {
		fmt.Fprintln(os.Stderr, "Your session has expired. Please run 'wander login' to sign in again.")
	}))

	return svc
}
