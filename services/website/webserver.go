// Package website contains the service delivering the dashboard website and API
package website

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	_ "net/http/pprof"
	"sync"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/flashbots/go-utils/httplogger"
	"github.com/flashbots/streamscan/database"
	"github.com/flashbots/streamscan/services/resolver"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/tdewolff/minify"
	"github.com/tdewolff/minify/html"
	uberatomic "go.uber.org/atomic"
)

var (
	ErrServerAlreadyStarted = errors.New("server was already started")

	_ resolver.Publisher = (*Webserver)(nil)
)

const DefaultUpdateInterval = 30 * time.Second

type WebserverOpts struct {
	ListenAddress  string
	Log            *logrus.Entry
	Pipeline       *resolver.Pipeline
	UpdateInterval time.Duration

	// DB is optional, enables the top withdrawers table
	DB *database.DatabaseService

	EnablePprof bool
	Dev         bool // reloads template on every request
}

type Webserver struct {
	opts     *WebserverOpts
	log      *logrus.Entry
	pipeline *resolver.Pipeline
	db       *database.DatabaseService

	srv        *http.Server
	srvStarted uberatomic.Bool

	// cancelRefresh stops the refresh loop, refreshDone is closed once it returned
	refreshCtx    context.Context
	cancelRefresh context.CancelFunc
	refreshDone   chan struct{}

	indexTemplate    *template.Template
	HTMLData         HTMLData
	rootResponseLock sync.RWMutex

	snapshot         *resolver.Snapshot
	statusAPIResp    *[]byte
	buildersAPIResp  *[]byte
	snapshotRespLock sync.RWMutex

	htmlDefault *[]byte
	minifier    *minify.M

	subscribers     map[string]*subscription
	subscribersLock sync.RWMutex
}

func NewWebserver(opts *WebserverOpts) (*Webserver, error) {
	var err error

	minifier := minify.New()
	minifier.AddFunc("text/css", html.Minify)
	minifier.AddFunc("text/html", html.Minify)

	server := &Webserver{
		opts:     opts,
		log:      opts.Log.WithField("service", "website"),
		pipeline: opts.Pipeline,
		db:       opts.DB,

		statusAPIResp:   &[]byte{},
		buildersAPIResp: &[]byte{},
		htmlDefault:     &[]byte{},
		minifier:        minifier,
		subscribers:     make(map[string]*subscription),
	}

	server.indexTemplate, err = ParseIndexTemplate()
	if err != nil {
		return nil, err
	}

	server.HTMLData = HTMLData{}
	server.update(opts.Pipeline.Snapshot())
	opts.Pipeline.AddPublisher(server)

	server.refreshCtx, server.cancelRefresh = context.WithCancel(context.Background())
	server.refreshDone = make(chan struct{})
	server.srv = &http.Server{
		Addr:    opts.ListenAddress,
		Handler: server.getRouter(),

		ReadTimeout:       600 * time.Millisecond,
		ReadHeaderTimeout: 400 * time.Millisecond,
		WriteTimeout:      3 * time.Second,
		IdleTimeout:       3 * time.Second,
	}
	return server, nil
}

// StartServer runs the refresh loop in the background and serves until the server is closed
func (srv *Webserver) StartServer() (err error) {
	if srv.srvStarted.Swap(true) {
		return ErrServerAlreadyStarted
	}

	interval := srv.opts.UpdateInterval
	if interval == 0 {
		interval = DefaultUpdateInterval
	}
	go func() {
		defer close(srv.refreshDone)
		_ = srv.pipeline.Run(srv.refreshCtx, interval)
	}()

	err = srv.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the refresh loop and then the HTTP server
func (srv *Webserver) Shutdown(ctx context.Context) error {
	srv.cancelRefresh()
	if srv.srvStarted.Load() {
		select {
		case <-srv.refreshDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return srv.srv.Shutdown(ctx)
}

func (srv *Webserver) getRouter() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", srv.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/api/status", srv.handleStatusAPI).Methods(http.MethodGet)
	r.HandleFunc("/api/builders", srv.handleBuildersAPI).Methods(http.MethodGet)
	r.HandleFunc("/api/withdrawals", srv.handleWithdrawalsAPI).Methods(http.MethodGet)
	r.HandleFunc("/api/viewer/{address}", srv.handleViewerAPI).Methods(http.MethodGet)
	r.HandleFunc("/api/top-withdrawers", srv.handleTopWithdrawersAPI).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if srv.opts.EnablePprof {
		srv.log.Info("pprof API enabled")
		r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	}

	loggedRouter := httplogger.LoggingMiddlewareLogrus(srv.log, r)
	withGz := gziphandler.GzipHandler(loggedRouter)

	// websocket upgrades must bypass the gzip writer
	root := mux.NewRouter()
	root.HandleFunc("/ws", srv.handleWebsocket)
	root.PathPrefix("/").Handler(withGz)
	return root
}

// refresh runs one pipeline tick, the new snapshot arrives through Publish
func (srv *Webserver) refresh(ctx context.Context) {
	if _, err := srv.pipeline.Tick(ctx); err != nil {
		srv.log.WithError(err).Error("pipeline tick failed")
	}
}

// Publish swaps in the responses rendered from a new snapshot and pushes it to websocket
// subscribers
func (srv *Webserver) Publish(ctx context.Context, snapshot *resolver.Snapshot) error {
	srv.update(snapshot)
	srv.broadcast(snapshot)
	return nil
}

func (srv *Webserver) update(snapshot *resolver.Snapshot) {
	htmlDefault := bytes.Buffer{}

	htmlData := HTMLData{
		Title:          "Builder streams",
		GeneratedAt:    time.Now().UTC(),
		Snapshot:       snapshot,
		Builders:       prepareBuilderEntries(snapshot.Builders),
		Contributions:  prepareWithdrawalEntries(snapshot.Contributions),
		TotalWithdrawn: totalWithdrawn(snapshot.Contributions),
	}
	htmlData.LastUpdateTime = htmlData.GeneratedAt.Format("2006-01-02 15:04")

	if srv.db != nil {
		topWithdrawers, err := srv.db.GetTopWithdrawers(context.Background(), 10)
		if err != nil {
			srv.log.WithError(err).Error("failed getting top withdrawers from database")
		} else {
			htmlData.TopWithdrawers = topWithdrawers
		}
	}

	if err := srv.indexTemplate.Execute(&htmlDefault, htmlData); err != nil {
		srv.log.WithError(err).Error("error rendering template")
	}

	htmlDefaultBytes, err := srv.minifier.Bytes("text/html", htmlDefault.Bytes())
	if err != nil {
		srv.log.WithError(err).Error("error minifying htmlDefault")
		htmlDefaultBytes = htmlDefault.Bytes()
	}

	srv.rootResponseLock.Lock()
	srv.HTMLData = htmlData
	srv.htmlDefault = &htmlDefaultBytes
	srv.rootResponseLock.Unlock()

	statusBytes, err := json.Marshal(snapshot.Status)
	if err != nil {
		srv.log.WithError(err).Error("error marshalling status")
		return
	}
	buildersBytes, err := json.Marshal(buildersResp{
		Contract: snapshot.Contract,
		Builders: prepareBuilderEntries(snapshot.Builders),
	})
	if err != nil {
		srv.log.WithError(err).Error("error marshalling builders")
		return
	}

	srv.snapshotRespLock.Lock()
	srv.snapshot = snapshot
	srv.statusAPIResp = &statusBytes
	srv.buildersAPIResp = &buildersBytes
	srv.snapshotRespLock.Unlock()
}

func (srv *Webserver) currentSnapshot() *resolver.Snapshot {
	srv.snapshotRespLock.RLock()
	defer srv.snapshotRespLock.RUnlock()
	return srv.snapshot
}

func (srv *Webserver) RespondError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := HTTPErrorResp{code, message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		srv.log.WithField("response", resp).WithError(err).Error("Couldn't write error response")
		http.Error(w, "", http.StatusInternalServerError)
	}
}

func (srv *Webserver) RespondOK(w http.ResponseWriter, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		srv.log.WithField("response", response).WithError(err).Error("Couldn't write OK response")
		http.Error(w, "", http.StatusInternalServerError)
	}
}

func (srv *Webserver) handleRoot(w http.ResponseWriter, req *http.Request) {
	var err error

	srv.rootResponseLock.RLock()
	defer srv.rootResponseLock.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if srv.opts.Dev {
		tpl, err := template.New("index.html").Funcs(funcMap).ParseFiles("services/website/templates/index.html")
		if err != nil {
			srv.log.WithError(err).Error("error parsing template")
			return
		}
		err = tpl.Execute(w, srv.HTMLData)
		if err != nil {
			srv.log.WithError(err).Error("error executing template")
			return
		}

		srv.log.Info("rendered template")
	} else {
		_, err = w.Write(*srv.htmlDefault)
	}
	if err != nil {
		srv.log.WithError(err).Error("error writing template")
	}
}

func (srv *Webserver) handleStatusAPI(w http.ResponseWriter, req *http.Request) {
	srv.snapshotRespLock.RLock()
	defer srv.snapshotRespLock.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(*srv.statusAPIResp)
}

func (srv *Webserver) handleBuildersAPI(w http.ResponseWriter, req *http.Request) {
	srv.snapshotRespLock.RLock()
	defer srv.snapshotRespLock.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(*srv.buildersAPIResp)
}

func (srv *Webserver) handleWithdrawalsAPI(w http.ResponseWriter, req *http.Request) {
	snapshot := srv.currentSnapshot()
	builder := req.URL.Query().Get("builder")
	if builder == "" {
		srv.RespondOK(w, prepareWithdrawalEntries(snapshot.Contributions))
		return
	}
	if !isAddress(builder) {
		srv.RespondError(w, http.StatusBadRequest, "invalid builder address")
		return
	}
	srv.RespondOK(w, prepareWithdrawalEntries(snapshot.WithdrawalsOf(builder)))
}

func (srv *Webserver) handleViewerAPI(w http.ResponseWriter, req *http.Request) {
	viewer := mux.Vars(req)["address"]
	if !isAddress(viewer) {
		srv.RespondError(w, http.StatusBadRequest, "invalid address")
		return
	}
	snapshot := srv.currentSnapshot()
	srv.RespondOK(w, viewerResp{
		Address:           viewer,
		Ready:             snapshot.Status.Ready,
		IsEligibleBuilder: snapshot.IsEligibleBuilder(viewer),
		Withdrawals:       prepareWithdrawalEntries(snapshot.WithdrawalsOf(viewer)),
	})
}

func (srv *Webserver) handleTopWithdrawersAPI(w http.ResponseWriter, req *http.Request) {
	if srv.db == nil {
		srv.RespondError(w, http.StatusNotFound, "no database configured")
		return
	}
	entries, err := srv.db.GetTopWithdrawers(req.Context(), 25)
	if err != nil {
		srv.log.WithError(err).Error("failed getting top withdrawers")
		srv.RespondError(w, http.StatusInternalServerError, "database error")
		return
	}
	srv.RespondOK(w, entries)
}
