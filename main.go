package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yabood/yabood/internal/apperr"
	"github.com/yabood/yabood/internal/auth"
	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/content"
	"github.com/yabood/yabood/internal/db"
	"github.com/yabood/yabood/internal/draft"
	"github.com/yabood/yabood/internal/feed"
	"github.com/yabood/yabood/internal/logger"
	"github.com/yabood/yabood/internal/profile"
	"github.com/yabood/yabood/internal/render"
	"github.com/yabood/yabood/internal/routes"
	"github.com/yabood/yabood/internal/search"
	"github.com/yabood/yabood/internal/sse"
	"github.com/yabood/yabood/internal/vcs"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file loaded")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	l := logger.New(cfg.Logging.Level)
	setLoggers(l)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, closeFn, err := newServer(ctx, cfg, l)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to build server")
	}
	defer closeFn()

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	l.Info().Str("addr", srv.Addr).Msg("Server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Fatal().Err(err).Msg("Server failed")
	}
	l.Info().Msg("Server stopped")
}

func setLoggers(l zerolog.Logger) {
	config.SetLogger(l.With().Str("component", "config").Logger())
	vcs.SetLogger(l.With().Str("component", "vcs").Logger())
	content.SetLogger(l.With().Str("component", "content").Logger())
	draft.SetLogger(l.With().Str("component", "draft").Logger())
	search.SetLogger(l.With().Str("component", "search").Logger())
	feed.SetLogger(l.With().Str("component", "feed").Logger())
	auth.SetLogger(l.With().Str("component", "auth").Logger())
	profile.SetLogger(l.With().Str("component", "profile").Logger())
	db.SetLogger(l.With().Str("component", "db").Logger())
	render.SetLogger(l.With().Str("component", "render").Logger())
}

// newServer wires every component from cfg. The returned func releases the
// profile store.
func newServer(ctx context.Context, cfg *config.Config, l zerolog.Logger) (http.Handler, func(), error) {
	clients := sse.NewSSEClients()

	var manager *draft.Manager
	var loader *content.Loader
	if err := cfg.GitHub.Validate(); err == nil {
		host, err := vcs.NewGitHub(cfg.GitHub, nil)
		if err != nil {
			return nil, nil, err
		}
		manager, err = draft.NewManager(host, cfg, draft.WithNotifier(clients))
		if err != nil {
			return nil, nil, err
		}
		loader = manager.Loader()
	} else if cfg.Server.ContentDir != "" {
		l.Warn().Str("dir", cfg.Server.ContentDir).Msg("GitHub not configured, serving content from a local checkout")
		loader = content.NewLoader(vcs.NewLocal(cfg.Server.ContentDir), cfg.GitHub.ContentRoot)
	} else {
		l.Warn().Msg("GitHub not configured, content endpoints will report a configuration error")
	}

	profiles, err := profile.Open(ctx, cfg.Profiles)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+routes.RobotsPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCType, "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(routes.RobotsBody))
	})
	mux.HandleFunc("GET "+routes.HealthPath, func(w http.ResponseWriter, r *http.Request) {
		apperr.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	guard, resolveUser, err := registerAuth(mux, cfg, profiles, l)
	if err != nil {
		profiles.Close()
		return nil, nil, err
	}

	draft.RegisterRoutes(mux, draft.NewHandler(manager, clients, cfg.Preview.SyntaxTheme), guard)
	search.RegisterRoutes(mux, search.NewHandler(loader, cfg.GitHub.Trunk, cfg.Server.Dev, cfg.Search.CacheTTL))
	feed.RegisterRoutes(mux, feed.NewHandler(loader, cfg.GitHub.Trunk, cfg.Site))
	render.RegisterRoutes(mux, render.NewHandler(cfg.Preview.SyntaxTheme))

	gzip, err := gzhttp.NewWrapper(gzhttp.ExceptContentTypes([]string{config.CTypeSSE}))
	if err != nil {
		profiles.Close()
		return nil, nil, err
	}
	compress := func(next http.Handler) http.Handler { return gzip(next) }

	h := chain(
		logger.Middleware(l),
		compress,
		recoverer,
		secureHeaders,
		resolveUser,
	)(mux)

	return h, func() { profiles.Close() }, nil
}

// registerAuth mounts the auth API. It returns the guard for admin routes
// and the middleware that resolves the caller on every request.
func registerAuth(mux *http.ServeMux, cfg *config.Config, profiles profile.Store, l zerolog.Logger) (draft.Guard, func(http.Handler) http.Handler, error) {
	if !cfg.Auth.Enabled {
		l.Warn().Msg("Auth disabled, admin routes are open")
		auth.RegisterRoutes(mux, auth.Routes{Profiles: profiles})
		open := func(next http.HandlerFunc) http.HandlerFunc { return next }
		return open, auth.Middleware(), nil
	}

	rt := auth.Routes{Profiles: profiles}
	var providers []auth.AuthProvider

	tokens, err := auth.NewJWTProvider(cfg.Auth.Secret, cfg.Auth.TokenTTL, cfg.Auth.CookieName)
	if err != nil {
		l.Warn().Err(err).Msg("Access tokens disabled")
	} else {
		rt.Tokens = tokens
		providers = append(providers, tokens)

		if oauthProviders := auth.OAuthProviders(cfg.Auth); len(oauthProviders) > 0 {
			rt.OAuth = auth.NewOAuth(tokens, cfg.Auth.SessionSecret, cfg.Auth.AdminEmailDomain, oauthProviders...)
		}

		if cfg.Auth.OperatorPublicKey != "" {
			op, err := auth.NewEd25519AuthProvider(cfg.Auth.OperatorPublicKey, auth.OperatorSignatureHeader, auth.OperatorUser, tokens)
			if err != nil {
				return nil, nil, err
			}
			rt.Operator = op
		}
	}

	resolve := auth.Middleware(providers...)
	if cfg.Auth.ClerkSecretKey != "" {
		rt.Clerk = auth.NewClerkAuthProvider(cfg.Auth.ClerkSecretKey, profiles, cfg.Auth.AdminEmailDomain)
		resolve = chain(rt.Clerk.WithHeaderAuthorization(), auth.Middleware(append(providers, rt.Clerk)...))
	}

	auth.RegisterRoutes(mux, rt)
	return auth.RequireAdmin, resolve, nil
}

// chain applies mws so that the first one sees the request first.
func chain(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// recoverer turns a handler panic into a 500.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				zerolog.Ctx(r.Context()).Error().Interface("panic", v).Msg("Handler panicked")
				apperr.WriteMessage(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
