package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/supoclip/supoclip/internal/pipeline"
)

func run(cmd *cobra.Command, source string) error {
	outDir, _ := cmd.Flags().GetString("out")
	clips, _ := cmd.Flags().GetInt("clips")
	profile, _ := cmd.Flags().GetString("profile")
	transitions, _ := cmd.Flags().GetString("transitions")
	segmentsFile, _ := cmd.Flags().GetString("segments")
	ratio, _ := cmd.Flags().GetFloat64("ratio")
	captionWords, _ := cmd.Flags().GetInt("caption-words")

	if !isRemote(source) {
		abs, err := filepath.Abs(source)
		if err != nil {
			return err
		}
		source = abs
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Hour)
	defer cancel()

	cfg := pipeline.Config{
		Source:         source,
		OutDir:         outDir,
		MaxClips:       clips,
		ProfileName:    profile,
		TargetRatio:    ratio,
		CaptionWords:   captionWords,
		TransitionsDir: transitions,
		SegmentsFile:   segmentsFile,

		FFmpegPath:  getenvDefault("SUPOCLIP_FFMPEG", "ffmpeg"),
		FFprobePath: getenvDefault("SUPOCLIP_FFPROBE", "ffprobe"),
		YtDlpPath:   getenvDefault("SUPOCLIP_YTDLP", "yt-dlp"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		LLMModel:      os.Getenv("SUPOCLIP_LLM_MODEL"),
		WhisperModel:  os.Getenv("SUPOCLIP_WHISPER_MODEL"),

		FaceModelPath:   os.Getenv("SUPOCLIP_FACE_MODEL"),
		OnnxLibPath:     os.Getenv("SUPOCLIP_ONNX_LIB"),
		FaceCascadePath: os.Getenv("SUPOCLIP_FACE_CASCADE"),

		Logf: logInfof,
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return pipeline.Run(ctx, cfg)
}

func isRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
