package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/imagegate/internal/application"
	appadvice "github.com/bryanwahyu/imagegate/internal/application/advice"
	appgate "github.com/bryanwahyu/imagegate/internal/application/gate"
	"github.com/bryanwahyu/imagegate/internal/config"
	"github.com/bryanwahyu/imagegate/internal/domain/findings"
	"github.com/bryanwahyu/imagegate/internal/domain/policy"
	aiclient "github.com/bryanwahyu/imagegate/internal/infra/ai/openai"
	dockerbuilder "github.com/bryanwahyu/imagegate/internal/infra/builder/docker"
	mysqlp "github.com/bryanwahyu/imagegate/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/imagegate/internal/infra/db/postgres"
	"github.com/bryanwahyu/imagegate/internal/infra/httpserver"
	dockerpublisher "github.com/bryanwahyu/imagegate/internal/infra/publisher/docker"
	"github.com/bryanwahyu/imagegate/internal/infra/scanner/grype"
	"github.com/bryanwahyu/imagegate/internal/infra/scanner/trivy"
	minioStore "github.com/bryanwahyu/imagegate/internal/infra/storage"
	"github.com/bryanwahyu/imagegate/internal/middleware"
)

// exit codes: 0 pass+publish, 1 policy fail, 2 tool or infrastructure error
const (
	exitPass       = 0
	exitPolicyFail = 1
	exitInfraError = 2
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitInfraError)
	}
	switch os.Args[1] {
	case "run":
		os.Exit(runCmd(os.Args[2:]))
	case "serve":
		serveCmd(os.Args[2:])
	default:
		usage()
		os.Exit(exitInfraError)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  gate run   --context <path> --tag <ref> --policy <file> [--destination <ref>] [--config <file>] [--tenant <id>]
  gate serve --config <file> --policy <file>
`)
}

// gate run: one pipeline execution, verdict on stdout, exit code as contract
func runCmd(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	contextPath := fs.String("context", "", "build context path")
	tag := fs.String("tag", "", "image tag to build")
	policyPath := fs.String("policy", "", "policy rules file")
	destination := fs.String("destination", "", "destination registry reference (defaults to tag)")
	configPath := fs.String("config", "", "optional config file")
	tenant := fs.String("tenant", "default", "tenant id for persisted runs")
	fs.Parse(args)

	if *contextPath == "" || *tag == "" || *policyPath == "" {
		usage()
		return exitInfraError
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Printf("config load error: %v", err)
		return exitInfraError
	}
	rules, err := policy.Load(*policyPath)
	if err != nil {
		log.Printf("policy load error: %v", err)
		return exitInfraError
	}

	// cancellation via SIGINT/SIGTERM propagates to every in-flight scanner
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, db, err := buildGateService(ctx, cfg)
	if err != nil {
		log.Printf("gate init error: %v", err)
		return exitInfraError
	}
	if db != nil {
		defer db.Close()
	}

	dest := *destination
	if dest == "" {
		dest = cfg.Registry.Destination
	}
	if dest == "" {
		dest = *tag
	}

	result, err := svc.Run(ctx, appgate.RunCommand{
		TenantID:    *tenant,
		ContextPath: *contextPath,
		Tag:         *tag,
		Destination: dest,
		Policy:      rules,
	})
	printVerdict(result)
	if err != nil {
		log.Printf("gate run error: %v", err)
		return exitInfraError
	}
	if !result.Verdict.Pass {
		return exitPolicyFail
	}
	log.Printf("published %s as %s", result.Verdict.Digest, result.Publish.PushedRef)
	return exitPass
}

func printVerdict(result appgate.RunResult) {
	if result.Run == nil || result.Run.Digest == "" {
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result.Verdict)
}

// gate serve: long-running HTTP service around the same pipeline
func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "config file")
	policyPath := fs.String("policy", "", "policy rules file")
	fs.Parse(args)

	path := *configPath
	if path == "" {
		path = "config.yaml"
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	var rules policy.RuleSet
	if *policyPath != "" {
		rules, err = policy.Load(*policyPath)
		if err != nil {
			log.Fatalf("policy load error: %v", err)
		}
	}

	ctx := context.Background()

	svc, db, err := buildGateService(ctx, cfg)
	if err != nil {
		log.Fatalf("gate init error: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	var adviceSvc *appadvice.Service
	if cfg.AI.APIKey != "" {
		adviceSvc = &appadvice.Service{
			Client: aiclient.NewClient(cfg.AI.APIKey, cfg.AI.Model),
			Clock:  application.SystemClock{},
		}
		if db != nil {
			if cfg.Database.Driver == "postgres" {
				adviceSvc.Repo = postgresp.NewAdviceRepository(db)
			} else {
				adviceSvc.Repo = mysqlp.NewAdviceRepository(db)
			}
		}
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	if len(cfg.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(cfg.APIKeys))
	}
	mux.Use(middleware.RateLimitMiddleware(30, 1))

	checkers := map[string]middleware.HealthChecker{
		"docker": middleware.DockerHealthChecker{},
	}
	if db != nil {
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}
	mux.Get("/healthz", middleware.HealthHandler(checkers))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Mount("/", httpserver.NewRouter(svc, adviceSvc, rules))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// buildGateService wires the pipeline from config: builder, scanners,
// publisher, and the optional persistence adapters.
func buildGateService(ctx context.Context, cfg *config.Config) (*appgate.Service, *sql.DB, error) {
	var scanners []findings.Scanner
	for _, sc := range cfg.Scanners {
		if sc.Disabled {
			continue
		}
		switch sc.Name {
		case trivy.Name:
			scanners = append(scanners, trivy.New(sc.ToolImage, cfg.Gate.TempDir, sc.Severities))
		case grype.Name:
			scanners = append(scanners, grype.New(sc.ToolImage, cfg.Gate.TempDir, sc.Severities))
		default:
			return nil, nil, fmt.Errorf("unknown scanner in config: %s", sc.Name)
		}
	}

	var signer dockerpublisher.Signer
	if cfg.Registry.Sign {
		signer = dockerpublisher.NewCosignSigner(cfg.Registry.CosignKey)
	}

	svc := &appgate.Service{
		Builder:   dockerbuilder.NewBuilder(),
		Scanners:  scanners,
		Publisher: dockerpublisher.NewPublisher(signer),
		Clock:     application.SystemClock{},
		Options: appgate.Options{
			Parallelism:  cfg.Gate.Parallelism,
			ScanTimeout:  cfg.Gate.ScanTimeout.Std(),
			BuildRetries: cfg.Gate.BuildRetries,
			ScanRetries:  cfg.Gate.ScanRetries,
			Sign:         cfg.Registry.Sign,
		},
	}

	var db *sql.DB
	var err error
	if cfg.Database.Host != "" {
		if cfg.Database.Driver == "postgres" {
			db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
			if err != nil {
				return nil, nil, fmt.Errorf("postgres connect error: %w", err)
			}
			svc.Repo = postgresp.NewRunRepository(db)
			svc.Events = postgresp.NewEventRepository(db)
		} else {
			db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
			if err != nil {
				return nil, nil, fmt.Errorf("mysql connect error: %w", err)
			}
			svc.Repo = mysqlp.NewRunRepository(db)
			svc.Events = mysqlp.NewEventRepository(db)
		}
	}

	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			if db != nil {
				db.Close()
			}
			return nil, nil, fmt.Errorf("minio init error: %w", err)
		}
		svc.Artifacts = store
	}

	return svc, db, nil
}
