package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/app"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/config"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/db"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/eval"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/logging"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "drivethru",
	Short: "Drive-thru order taking assistant",
	Long: `drivethru takes breakfast orders in natural language.
Core concepts:
- Menu: the catalog of one location; only items on it can be ordered.
- Session: one customer conversation, stored in the workspace (.drivethru) or the configured backend.
- Turn: one customer utterance; the assistant may look up items, change the order and reply.
- Order: the ledger of line items; identical items merge and their quantities add up.
- Finalize: the customer is done; the session is closed and downstream systems are notified.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("DRIVETHRU")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", ".", "workspace directory")
	flags.Bool("json", false, "output JSON")
	flags.String("provider", "", "llm provider: mistral, gemini or scripted")
	flags.String("model", "", "llm model name")
	flags.String("menu", "", "menu file (JSON or YAML); empty uses the built-in breakfast menu")
	flags.String("store", "", "session store: sqlite, memory or redis")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("workspace", flags.Lookup("workspace"))
	_ = viper.BindPFlag("json", flags.Lookup("json"))
	_ = viper.BindPFlag("llm.provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("llm.model", flags.Lookup("model"))
	_ = viper.BindPFlag("menu.path", flags.Lookup("menu"))
	_ = viper.BindPFlag("store.backend", flags.Lookup("store"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(menuCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(evalCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

func menuCmd() *cobra.Command {
	menu := &cobra.Command{Use: "menu", Short: "Inspect the menu"}
	menu.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "List menu items",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cat, err := catalog.Load(cfg.Menu.Path)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{
					"menu_id":   cat.MenuID,
					"menu_name": cat.MenuName,
					"version":   cat.Version,
					"location":  cat.Location,
					"items":     cat.Items(),
				})
			}
			printMenu(cat)
			return nil
		},
	})
	return menu
}

func sessionCmd() *cobra.Command {
	sess := &cobra.Command{Use: "session", Short: "Inspect stored sessions"}
	sess.AddCommand(sessionListCmd())
	sess.AddCommand(sessionShowCmd())
	sess.AddCommand(sessionDeleteCmd())
	return sess
}

func sessionListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *app.Service) error {
				items, err := svc.Sessions(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				printSessions(items)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of sessions")
	return cmd
}

func sessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a session's order and decision log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *app.Service) error {
				conv, err := svc.Session(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(conv)
				}
				status := "open"
				if conv.Finalized {
					status = "finalized"
				}
				fmt.Printf("Session %s (%s, menu %s)\n", conv.SessionID, status, conv.MenuID)
				printOrder(conv.Order)
				if len(conv.Rationale) > 0 {
					fmt.Println("Decision log:")
					for i, r := range conv.Rationale {
						fmt.Printf("  %2d. %s\n", i+1, r)
					}
				}
				return nil
			})
		},
	}
}

func sessionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session and its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *app.Service) error {
				if err := svc.Store.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func evalCmd() *cobra.Command {
	var datasetPath string
	var concurrency int
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score order taking against a dataset",
		Long:  "Eval replays every dataset utterance as a fresh single-turn session and scores the resulting order. Sessions are kept in memory and never written to the workspace.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := eval.LoadDataset(datasetPath)
			if err != nil {
				return err
			}
			viper.Set("store.backend", config.BackendMemory)
			return withService(cmd.Context(), func(ctx context.Context, svc *app.Service) error {
				runner := eval.Runner{
					Turn:        svc.Turn,
					Catalog:     svc.Catalog,
					Concurrency: concurrency,
					Logger:      svc.Log().Named("eval"),
				}
				report, err := runner.Run(ctx, ds)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(report)
				}
				printReport(report)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "dataset YAML file; empty uses the built-in order correctness set")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "cases run in parallel")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage drivethru.yml",
		Long:  "Config lives in drivethru.yml inside the workspace. DRIVETHRU_* environment variables, a workspace .env file and flags override it.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default drivethru.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.LLM.APIKey != "" {
				cfg.LLM.APIKey = "***"
			}
			if cfg.Server.JWTSecret != "" {
				cfg.Server.JWTSecret = "***"
			}
			if cfg.Notify.WebhookSecret != "" {
				cfg.Notify.WebhookSecret = "***"
			}
			return printJSONOrYAML(cfg)
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			return withService(cmd.Context(), func(ctx context.Context, svc *app.Service) error {
				authCfg := server.AuthConfig{JWTSecret: cfg.Server.JWTSecret, Logger: svc.Log()}
				if authCfg.JWTSecret == "" {
					svc.Log().Warn("no jwt secret configured, serving requests anonymously")
				}
				handler, err := server.New(server.Config{
					Service:  svc,
					BasePath: basePath,
					Auth:     authCfg,
					Logger:   svc.Log().Named("http"),
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving drive-thru API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	return cmd
}

// --- helpers ---

func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetString("workspace"), viper.GetViper())
}

func withService(ctx context.Context, fn func(context.Context, *app.Service) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, JSON: cfg.Log.JSON})
	if err != nil {
		return err
	}
	defer logger.Sync()
	svc, closeFn, err := app.Build(ctx, cfg, viper.GetString("workspace"), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Warn("close service", zap.Error(err))
		}
	}()
	return fn(ctx, svc)
}
