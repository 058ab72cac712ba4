// Command jobmgrd runs the job-manager event engine daemon and offers a
// couple of local administrative subcommands for smoke-testing it
// (SPEC_FULL.md §A.4), in the teacher's cobra root-command idiom
// (cmd/warren/main.go).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/jobmgr/pkg/collab"
	"github.com/cuemby/jobmgr/pkg/config"
	"github.com/cuemby/jobmgr/pkg/engine"
	"github.com/cuemby/jobmgr/pkg/errs"
	"github.com/cuemby/jobmgr/pkg/eventlog"
	"github.com/cuemby/jobmgr/pkg/kvs"
	"github.com/cuemby/jobmgr/pkg/log"
	"github.com/cuemby/jobmgr/pkg/metrics"
	"github.com/cuemby/jobmgr/pkg/pubsub"
	"github.com/cuemby/jobmgr/pkg/replica"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "jobmgrd",
	Short:   "jobmgrd runs the job-manager event engine",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("jobmgrd version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to jobmgr.yaml (defaults built in if omitted)")
	runCmd.Flags().Bool("replicated", false, "Replicate KVS commits through raft (config.Raft)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(replayCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the job-manager daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := kvs.Open(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open kvs: %w", err)
		}

		var jobStore kvs.KVS = store
		replicated, _ := cmd.Flags().GetBool("replicated")
		if replicated {
			rep, err := replica.Open(replica.Config{
				NodeID:      cfg.NodeID,
				BindAddr:    cfg.Raft.BindAddr,
				DataDir:     cfg.DataDir,
				Bootstrap:   cfg.Raft.Bootstrap,
				HeartbeatMs: cfg.Raft.HeartbeatMs,
				ElectionMs:  cfg.Raft.ElectionMs,
			}, store)
			if err != nil {
				return fmt.Errorf("failed to start raft replicator: %w", err)
			}
			jobStore = replica.NewReplicatedKVS(rep, store)
		}
		defer jobStore.Close()

		broker := pubsub.NewBroker()
		broker.Start()
		defer broker.Stop()

		e := engine.New(jobStore, broker, demoCollaborators(), engine.Config{
			BatchWindow: cfg.BatchWindow(),
			Fatal: func(err *errs.Error) {
				log.Errorf("fatal batch engine error, shutting down", err)
				os.Exit(1)
			},
		})
		e.Start()

		go func() {
			log.WithComponent("jobmgrd").Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
			if err := http.ListenAndServe(cfg.MetricsAddr, metrics.Handler()); err != nil {
				log.Errorf("metrics server stopped", err)
			}
		}()

		log.WithComponent("jobmgrd").Info().Str("node_id", cfg.NodeID).Msg("job-manager event engine started")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info("shutting down")
		return e.Shutdown(context.Background())
	},
}

var postCmd = &cobra.Command{
	Use:   "post <job-id> <event-name>",
	Short: "Post a single event against a job in the local store and exit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		var jobID uint64
		if _, err := fmt.Sscanf(args[0], "%d", &jobID); err != nil {
			return fmt.Errorf("invalid job id %q: %w", args[0], err)
		}

		store, err := kvs.Open(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open kvs: %w", err)
		}
		defer store.Close()

		e := engine.New(store, pubsub.NewFakePublisher(), demoCollaborators(), engine.Config{
			BatchWindow: cfg.BatchWindow(),
		})
		e.Start()
		defer e.Shutdown(context.Background())

		if err := e.PostEvent(context.Background(), jobID, eventlog.Name(args[1]), 0, nil); err != nil {
			return fmt.Errorf("post_event failed: %w", err)
		}
		fmt.Printf("posted %s against job %d\n", args[1], jobID)
		return nil
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay <job-id>",
	Short: "Print a job's durable event log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		var jobID uint64
		if _, err := fmt.Sscanf(args[0], "%d", &jobID); err != nil {
			return fmt.Errorf("invalid job id %q: %w", args[0], err)
		}

		store, err := kvs.Open(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open kvs: %w", err)
		}
		defer store.Close()

		data, err := store.Read(context.Background(), kvs.JobKey(jobID))
		if err != nil {
			return err
		}
		entries, err := eventlog.ParseLog(data)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		for _, entry := range entries {
			if err := enc.Encode(entry); err != nil {
				return err
			}
		}
		return nil
	},
}

// demoCollaborators wires the in-process stand-ins for every external
// collaborator named in spec §6, so jobmgrd can drive a full job lifecycle
// without a real scheduler, exec layer, or dependency resolver attached.
func demoCollaborators() engine.Collaborators {
	return engine.Collaborators{
		Scheduler: collab.NewDemoScheduler(),
		Exec:      collab.NewDemoExec(),
		Wait:      collab.NewDemoWait(),
		Drain:     collab.NewDemoDrain(),
		Annotate:  collab.NewDemoAnnotate(),
	}
}
