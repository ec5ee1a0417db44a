// hanapilot drives a batch of account transfers through the bank's web
// portal: certificate login, multi-account form entry, and ledger
// reconciliation against the shared spreadsheet.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hanapilot/internal/auth"
	"hanapilot/internal/browser"
	"hanapilot/internal/config"
	"hanapilot/internal/console"
	"hanapilot/internal/ledger"
	"hanapilot/internal/logging"
	"hanapilot/internal/profile"
	"hanapilot/internal/transfer"
	"hanapilot/internal/watchdog"
)

var (
	configPath string
	sheetName  string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hanapilot",
	Short: "Batch account transfers through the Hana banking portal",
	Long: `hanapilot reads pending transfer rows from a spreadsheet ledger,
logs into the banking portal with a certificate, fills the multi-account
transfer form, and marks completed rows back in the ledger with read-back
verification.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one transfer batch end to end",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch()
	},
}

var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "List the configured spreadsheet ledgers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		for _, s := range cfg.Sheets {
			marker := " "
			if s.Name == cfg.DefaultSheetName {
				marker = "*"
			}
			fmt.Printf("%s %s\t%s\n", marker, s.Name, s.URL)
		}
		return nil
	},
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the managed browser profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		profiles, err := profile.List(cfg.UserDataPath)
		if err != nil {
			return err
		}
		for _, p := range profiles {
			fmt.Println(p.DisplayName)
		}
		archived, err := profile.ListArchived(cfg.UserDataPath)
		if err != nil {
			return err
		}
		for _, p := range archived {
			fmt.Printf("%s (보관됨)\n", p.DisplayName)
		}
		return nil
	},
}

var profilesArchiveCmd = &cobra.Command{
	Use:   "archive [name]",
	Short: "Hide a profile from selection, keeping its data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := profile.ArchiveByName(cfg.UserDataPath, args[0]); err != nil {
			return err
		}
		fmt.Printf("프로필 %q 을(를) 보관했습니다.\n", args[0])
		return nil
	},
}

var profilesActivateCmd = &cobra.Command{
	Use:   "activate [name]",
	Short: "Restore an archived profile into the selectable set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		p, err := profile.Activate(cfg.UserDataPath, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("프로필 %q 을(를) 복원했습니다.\n", p.DisplayName)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	runCmd.Flags().StringVar(&sheetName, "sheet", "", "ledger to process (default from config)")
	profilesCmd.AddCommand(profilesArchiveCmd, profilesActivateCmd)
	rootCmd.AddCommand(runCmd, sheetsCmd, profilesCmd)
}

func runBatch() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	if err := logging.Initialize(cfg.Logging.Dir, logging.Settings{
		DebugMode:  cfg.Logging.DebugMode || verbose,
		Categories: cfg.Logging.Categories,
		Level:      cfg.Logging.Level,
	}); err != nil {
		return fmt.Errorf("logging init: %w", err)
	}
	defer logging.Close()

	logger.Info("starting batch",
		zap.String("config", configPath),
		zap.Int("max_rows", cfg.Transfer.MaxRows),
		zap.Bool("auto_submit", cfg.Transfer.AutoSubmit))

	prompter := console.New(os.Stdin, os.Stdout)

	prof, err := profile.Select(prompter, cfg.UserDataPath)
	if err != nil {
		return fmt.Errorf("profile selection: %w", err)
	}

	name := sheetName
	if name == "" {
		name = cfg.DefaultSheetName
	}
	sheet, ok := cfg.SheetByName(name)
	if !ok && name != "" {
		prompter.Say("시트 %q 를 찾을 수 없어 %q 를 사용합니다.", name, sheet.Name)
	}
	if len(cfg.Sheets) > 1 && sheetName == "" {
		names := make([]string, len(cfg.Sheets))
		def := 0
		for i, s := range cfg.Sheets {
			names[i] = s.Name
			if s.Name == sheet.Name {
				def = i
			}
		}
		idx, err := console.ChooseIndex(prompter, "처리할 시트를 선택하세요", names, def)
		if err != nil {
			return err
		}
		sheet = cfg.Sheets[idx]
	}

	src, err := ledger.NewGoogleSheets(ctx,
		ledger.ServiceAccountFile{Path: cfg.Auth.CredentialsFile}, sheet.URL, sheet.SheetName)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	work, err := ledger.BuildWorkSet(ctx, src, sheet.Columns, cfg.Transfer.MaxRows)
	if err != nil {
		return err
	}
	if len(work) == 0 {
		prompter.Say("이체할 행이 없습니다.")
		return nil
	}
	prompter.Say("이체 대상 %d건을 불러왔습니다.", len(work))

	session := browser.NewSession(cfg.Browser, prof.Path)
	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("browser start: %w", err)
	}
	defer session.Shutdown()

	page, err := session.Open(ctx, cfg.LoginURL)
	if err != nil {
		return fmt.Errorf("open portal: %w", err)
	}

	dumper := browser.NewDumper(cfg.Browser.DumpDir)
	exec := browser.NewExecutor()
	resolver := browser.NewResolver(dumper)
	secureGuard := watchdog.New(watchdog.SecureInputSignatures())

	flow := auth.New(auth.Config{
		StoreKeywords: cfg.Auth.CertStoreKeywords,
		OwnerName:     cfg.Auth.OwnerName,
		Password:      cfg.Auth.CertPassword,
	}, exec, resolver, secureGuard, prompter)
	if err := flow.Run(ctx, page); err != nil {
		prompter.Say("자동 로그인에 실패했습니다. 브라우저에서 직접 로그인과 이체를 진행해 주세요.")
		return fmt.Errorf("certificate login: %w", err)
	}
	prompter.Say("로그인 완료.")

	proc := transfer.New(transfer.Config{
		AccountPassword: cfg.Auth.AccountPassword,
		AutoSubmit:      cfg.Transfer.AutoSubmit,
	}, exec, resolver, secureGuard, prompter, dumper)
	outcome, err := proc.Run(ctx, page, work)
	if err != nil {
		prompter.Say("자동 입력에 실패했습니다. 남은 단계는 브라우저에서 직접 진행해 주세요.")
		return fmt.Errorf("transfer batch: %w", err)
	}
	for _, s := range outcome.Skipped {
		prompter.Say("건너뜀: %s (%s)", s.Row.CustomerName, s.Reason)
	}

	if !outcome.Submitted {
		if err := prompter.WaitForEnter("이체가 완료되었으면 엔터를 눌러 주세요..."); err != nil {
			return err
		}
	}

	engine := ledger.NewEngine(src, sheet.Columns)
	results := engine.ReconcileAll(ctx, outcome.Processed)
	verified, failed := 0, 0
	for _, r := range results {
		if r.Verified {
			verified++
			continue
		}
		failed++
		prompter.Say("대사 실패: %s (%v)", r.Row.CustomerName, r.Err)
	}
	prompter.Say("대사 완료: 성공 %d건 / 실패 %d건", verified, failed)
	logger.Info("batch finished", zap.Int("verified", verified), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d rows failed reconciliation", failed)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
