package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	logging "github.com/ipfs/go-log/v2"
	"github.com/mining-pool/pow-ledger/banningManager"
	"github.com/mining-pool/pow-ledger/config"
	"github.com/mining-pool/pow-ledger/ledger"
	"github.com/mining-pool/pow-ledger/storage"
)

var log = logging.Logger("api")

// Server exposes a chain over HTTP and streams sealed blocks over websocket.
type Server struct {
	*mux.Router

	apiConf *config.APIOptions
	chain   *ledger.Chain
	storage *storage.DB
	hub     *Hub
	http    *http.Server

	banning *banningManager.BanningManager
	cancel  context.CancelFunc

	availablePaths []string
	config         map[string]interface{}
}

// NewAPIServer registers the routes and subscribes the websocket hub to the
// chain. db may be nil, the archive routes are then left out.
func NewAPIServer(options *config.Options, chain *ledger.Chain, db *storage.DB) *Server {
	s := &Server{
		Router: mux.NewRouter(),

		apiConf: options.API,
		chain:   chain,
		storage: db,
		hub:     NewHub(),

		availablePaths: make([]string, 0),
		config:         make(map[string]interface{}),
	}

	s.ConvertConf(options)
	chain.AddSink(s.hub)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	if options.Banning != nil {
		s.banning = banningManager.NewBanningManager(options.Banning)
		s.banning.Init(ctx)
	}

	s.RegisterFunc("/", s.indexFunc, http.MethodGet)

	s.RegisterFunc("/chain", s.chainFunc, http.MethodGet)
	s.RegisterFunc("/blocks", s.blocksFunc, http.MethodGet)
	s.RegisterFunc("/blocks/{index:[0-9]+}", s.blockFunc, http.MethodGet)
	s.RegisterFunc("/blocks/{index:[0-9]+}/proof/{tx}", s.proofFunc, http.MethodGet)
	s.RegisterFunc("/pending", s.pendingFunc, http.MethodGet)
	s.RegisterFunc("/transactions", s.transactionFunc, http.MethodPost, http.MethodOptions)
	s.RegisterFunc("/mine", s.mineFunc, http.MethodPost, http.MethodOptions)
	s.RegisterFunc("/balance/{address}", s.balanceFunc, http.MethodGet)
	s.RegisterFunc("/reward", s.rewardFunc, http.MethodGet)
	s.RegisterFunc("/validate", s.validateFunc, http.MethodGet)
	s.RegisterFunc("/wallets", s.walletFunc, http.MethodPost, http.MethodOptions)
	s.RegisterFunc("/stats", s.statsFunc, http.MethodGet)

	s.RegisterFunc("/config", s.configIndexFunc, http.MethodGet)
	s.RegisterFunc("/config/{key}", s.configFunc, http.MethodGet)

	if db != nil {
		s.RegisterFunc("/archive/stats", s.archiveStatsFunc, http.MethodGet)
		s.RegisterFunc("/archive/rewards", s.archiveRewardsFunc, http.MethodGet)
		s.RegisterFunc("/archive/blocks/{index:[0-9]+}", s.archiveBlockFunc, http.MethodGet)
	}

	s.RegisterFunc("/ws/blocks", s.hub.ServeWS, http.MethodGet)

	s.Use(mux.CORSMethodMiddleware(s.Router))

	return s
}

// ConvertConf keeps the public part of the options, storage credentials
// are never served.
func (s *Server) ConvertConf(options *config.Options) {
	s.config["chain"] = options.Chain
	s.config["mining"] = options.Mining
	s.config["api"] = options.API
}

func (s *Server) RegisterFunc(path string, fn func(http.ResponseWriter, *http.Request), methods ...string) {
	s.HandleFunc(path, fn).Methods(methods...)
	s.availablePaths = append(s.availablePaths, path)
}

// Serve starts listening in the background. Listen errors other than a
// shutdown are logged.
func (s *Server) Serve() error {
	addr := s.apiConf.Addr()
	s.http = &http.Server{
		Addr:    addr,
		Handler: s,
	}

	if s.apiConf.TLS != nil {
		tlsConfig, err := s.apiConf.TLS.ToTLSConfig()
		if err != nil {
			return err
		}
		s.http.TLSConfig = tlsConfig
	}

	log.Warn("API server listening on ", addr)
	go func() {
		var err error
		if s.http.TLSConfig != nil {
			err = s.http.ListenAndServeTLS("", "")
		} else {
			err = s.http.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Error("API server stopped: ", err)
		}
	}()

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	s.hub.Close()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
