package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/novasvilla/facelift/internal/config"
	"github.com/novasvilla/facelift/internal/copilot"
	"github.com/novasvilla/facelift/internal/perception"
	"github.com/novasvilla/facelift/internal/types"
	"github.com/novasvilla/facelift/internal/watch"
)

// perceptionClient builds the Gemini capability client from config.
func perceptionClient(cfg *config.Config) types.CapabilityClient {
	gc := perception.DefaultGeminiConfig(cfg.LLM.APIKey)
	if cfg.LLM.BaseURL != "" {
		gc.BaseURL = cfg.LLM.BaseURL
	}
	if cfg.LLM.Model != "" {
		gc.Model = cfg.LLM.Model
	}
	if cfg.LLM.ImageModel != "" {
		gc.ImageModel = cfg.LLM.ImageModel
	}
	gc.Timeout = cfg.LLM.TimeoutDuration()
	return perception.NewGeminiClientWithConfig(gc)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to the workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = filepath.Join(workspace, ".facelift", "config.yaml")
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", path)
		fmt.Println("Set GOOGLE_API_KEY in your environment to get started.")
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>...",
	Short: "Inventory the photos and propose three design alternatives",
	Long: `Analyzes one or more photos of the same space, proposes three complete
design alternatives and renders each one as an edited photo.

Example:
  facelift analyze fachada.jpg lateral.jpg --style "mediterráneo moderno" \
    --project villa-sur --section fachada-principal --type fachada`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.close()

		ctx, cancel := commandContext()
		defer cancel()

		logger.Info("analyzing photos",
			zap.Int("count", len(args)),
			zap.String("session", sessionKey))

		report, err := app.copilot.AnalyzeAndPropose(ctx, copilot.AnalyzeRequest{
			Key:         sessionKey,
			Project:     project,
			Section:     section,
			SectionType: sectionType,
			Style:       style,
			ImagePaths:  args,
		})
		if err != nil {
			return err
		}
		fmt.Print(renderMarkdown(report))
		return nil
	},
}

var refineCmd = &cobra.Command{
	Use:   "refine <feedback>...",
	Short: "Apply conversational feedback to the current design",
	Long: `Merges your feedback into the session's design and regenerates the image.
Everything you do not mention stays exactly as before.

Example:
  facelift refine "me gusta la B pero la puerta en verde abeto" -c B`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.close()

		ctx, cancel := commandContext()
		defer cancel()

		report, err := app.copilot.RefineAndGenerate(ctx, copilot.RefineRequest{
			Key:      sessionKey,
			Feedback: strings.Join(args, " "),
			Choice:   choice,
		})
		if err != nil {
			return err
		}
		fmt.Print(renderMarkdown(report))
		return nil
	},
}

var productsCmd = &cobra.Command{
	Use:   "products <query>...",
	Short: "Find purchasable materials with store links",
	Long: `Searches online for products matching the query and appends direct
search links for Leroy Merlin, ManoMano, Bricomart and Amazon.

Example:
  facelift products "pintura mineral RAL 7016 exterior"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.close()

		ctx, cancel := commandContext()
		defer cancel()

		out := app.copilot.FindProducts(ctx, strings.Join(args, " "))
		fmt.Print(renderMarkdown(out))
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.close()

		infos, err := app.manager.List()
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No sessions yet. Start one with: facelift analyze <image>")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%-24s %s\n", info.Key, info.UpdatedAt.Local().Format(time.DateTime))
		}
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the current session's state",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.close()

		if err := app.manager.Reset(sessionKey); err != nil {
			return err
		}
		fmt.Printf("Session %q reset.\n", sessionKey)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a directory and analyze every new photo batch",
	Long: `Watches a drop directory. Every settled batch of new photos is analyzed
in the current session, like running analyze by hand.

Example:
  facelift watch ./drop --style "moderno elegante"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.close()

		ctx, cancel := commandContext()
		defer cancel()

		watcher, err := watch.NewPhotoWatcher(args[0], func(paths []string) {
			fmt.Printf("\nAnalyzing %d new photo(s)...\n", len(paths))
			report, err := app.copilot.AnalyzeAndPropose(ctx, copilot.AnalyzeRequest{
				Key:         sessionKey,
				Project:     project,
				Section:     section,
				SectionType: sectionType,
				Style:       style,
				ImagePaths:  paths,
			})
			if err != nil {
				fmt.Printf("Analysis failed: %v\n", err)
				return
			}
			fmt.Print(renderMarkdown(report))
		})
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()

		fmt.Printf("Watching %s. Drop photos there; Ctrl-C stops.\n", args[0])
		<-ctx.Done()
		if ctx.Err() == context.DeadlineExceeded {
			return ctx.Err()
		}
		return nil
	},
}
