// Package httpapi exposes the service over HTTP: a browser channel under
// /account/ authenticated by cookie, and a programmatic channel under /v1/
// authenticated by the x-token header.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/flocknet/flockd/internal/ambry"
	"github.com/flocknet/flockd/internal/limiter"
	"github.com/flocknet/flockd/internal/model"
	"github.com/flocknet/flockd/internal/repository"
	"github.com/flocknet/flockd/internal/service"
)

const (
	hexFlock  = "[a-f0-9]{16}"
	hexDevice = "[a-f0-9]{8}"
)

// maxBody caps request bodies at one byte over the full ambry size, the
// largest legitimate payload.
const maxBody = ambry.FullSize + 1

// Config carries the deployment knobs the handlers need.
type Config struct {
	// Cathedral is the primary rendezvous address handed to clients.
	Cathedral string
	// NATPort is the cathedral's NAT traversal port.
	NATPort string
	// Dev disables the Secure cookie attribute for local runs.
	Dev bool
}

// Services bundles everything the router dispatches into.
type Services struct {
	Sessions   service.SessionService
	Flocks     service.FlockService
	Devices    service.DeviceService
	Links      service.TrustLinkService
	Ambries    service.AmbryService
	Cathedrals repository.CathedralRepository
}

type Router struct {
	sessions   service.SessionService
	flocks     service.FlockService
	devices    service.DeviceService
	links      service.TrustLinkService
	ambries    service.AmbryService
	cathedrals repository.CathedralRepository
	lim        limiter.Limiter
	log        *zap.Logger
	cfg        Config
}

// NewRouter wires middleware and the route table.
func NewRouter(svc Services, lim limiter.Limiter, log *zap.Logger, cfg Config) http.Handler {
	r := &Router{
		sessions:   svc.Sessions,
		flocks:     svc.Flocks,
		devices:    svc.Devices,
		links:      svc.Links,
		ambries:    svc.Ambries,
		cathedrals: svc.Cathedrals,
		lim:        lim,
		log:        log,
		cfg:        cfg,
	}

	mux := chi.NewRouter()
	mux.Use(r.logging, r.recover, r.rateLimit)

	// Bootstrap endpoints: no session required. Enrollment is deliberately
	// reachable by anyone holding a flock id.
	mux.Post("/v1/register", r.handleRegister)
	mux.Post("/v1/init", r.handleInit)
	mux.Post("/v1/device/{flock:"+hexFlock+"}/create", r.handleDeviceEnroll)
	mux.Get("/account/login", r.handleLoginPage)
	mux.Post("/account/login", r.handleLogin)

	// Browser channel: cookie token. All four routes stay reachable for
	// lapsed accounts (self-service allow-list).
	mux.Group(func(pr chi.Router) {
		pr.Use(r.authenticate(model.ChannelWeb))
		pr.Get("/account/", r.handleAccountView)
		pr.Post("/account/time", r.handleAccountAddTime)
		pr.Post("/account/delete", r.handleAccountDelete)
		pr.Post("/account/logout", r.handleLogout)
	})

	// Programmatic channel: x-token header.
	mux.Group(func(pr chi.Router) {
		pr.Use(r.authenticate(model.ChannelAPI))
		pr.Get("/v1/cathedrals", r.handleCathedralList)
		pr.Get("/v1/flock/list", r.handleFlockList)
		pr.Post("/v1/flock/create", r.handleFlockCreate)
		pr.Post("/v1/flock/{flock:"+hexFlock+"}/delete", r.handleFlockDelete)
		pr.Get("/v1/device/list/{flock:"+hexFlock+"}", r.handleDeviceList)
		pr.Post("/v1/device/{flock:"+hexFlock+"}/{device:"+hexDevice+"}/delete", r.handleDeviceDelete)
		pr.Post("/v1/device/{flock:"+hexFlock+"}/{device:"+hexDevice+"}/approve", r.handleDeviceApprove)
		pr.Post("/v1/xflock/{src:"+hexFlock+"}/{dst:"+hexFlock+"}/create", r.handleLinkCreate)
		pr.Post("/v1/xflock/{src:"+hexFlock+"}/{dst:"+hexFlock+"}/delete", r.handleLinkDelete)
		pr.Get("/v1/xflock/list", r.handleLinkList)
		pr.Get("/v1/xflock/list/{flock:"+hexFlock+"}", r.handleLinkListForFlock)
		pr.Post("/v1/ambry/{flock:"+hexFlock+"}", r.handleAmbryUpload)
		pr.Post("/v1/ambry/{a:"+hexFlock+"}/{b:"+hexFlock+"}", r.handleAmbryUploadBilateral)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
