package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/coursechat-backend/internal/app"
	"github.com/yungbote/coursechat-backend/internal/domain/course"
	"github.com/yungbote/coursechat-backend/internal/extract"
	"github.com/yungbote/coursechat-backend/internal/format"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
	"github.com/yungbote/coursechat-backend/internal/platform/openai"
	"github.com/yungbote/coursechat-backend/internal/services"
)

// newExtractCmd prints what the configured extractors pull out of a local file, which
// is what a question grounded on that file would see before the context cap.
func newExtractCmd(cfg *app.Config) *cobra.Command {
	var kindFlag string
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract text from a local file using the configured providers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			kind := course.Classify(path)
			if kindFlag != "" {
				k, err := course.ParseMessageKind(kindFlag)
				if err != nil {
					return err
				}
				kind = k
			}

			log := logger.Nop()
			var engine openai.Client
			if cfg.Engine.APIKey != "" {
				if engine, err = openai.NewClient(log, cfg.Engine.Client()); err != nil {
					return err
				}
			}
			// only the target kind is switched on, whatever the server policy says, so no
			// other provider gets dialed
			exCfg := cfg.Extract
			exCfg.Audio, exCfg.Image, exCfg.PDF, exCfg.File = "off", "off", "off", "off"
			switch kind {
			case course.KindAudio:
				exCfg.Audio = "eager"
			case course.KindImage:
				exCfg.Image = "eager"
			case course.KindPDF:
				exCfg.PDF = "eager"
			case course.KindFile:
				exCfg.File = "eager"
			case course.KindText:
				return fmt.Errorf("text messages carry no file")
			}
			if engine == nil && exCfg.AudioProvider == app.ProviderOpenAI {
				exCfg.AudioProvider = app.ProviderNone
			}
			ex, closers, err := app.BuildExtractor(log, exCfg, engine)
			defer func() {
				for _, c := range closers {
					_ = c()
				}
			}()
			if err != nil {
				return err
			}

			text, err := ex.Extract(cmd.Context(), kind, data, filepath.Base(path))
			if errors.Is(err, extract.ErrNoExtractor) || errors.Is(err, extract.ErrNotText) {
				return fmt.Errorf("no extractor for %s files: %w", kind, err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&kindFlag, "kind", "", "override the kind inferred from the extension (audio, image, pdf, file)")
	return cmd
}

func newAskCmd(cfg *app.Config) *cobra.Command {
	var courseID, fileName string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the answer engine a question, optionally grounded on a course file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.NewWithLogger(cmd.Context(), logger.Nop(), *cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Services.Ask.Ask(cmd.Context(), services.AskRequest{
				Question: strings.Join(args, " "),
				CourseID: courseID,
				FileName: fileName,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Answer)
			return nil
		},
	}
	cmd.Flags().StringVar(&courseID, "course", "", "course id")
	cmd.Flags().StringVar(&fileName, "file", "", "stored file name to ground the answer on")
	return cmd
}

func newFormatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "format",
		Short: "Normalize raw answer text from stdin the way the API does",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), format.Answer(string(raw)))
			return nil
		},
	}
}
